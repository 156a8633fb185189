package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/cmsshowcase/internal/cart"
	"github.com/hitoshi/cmsshowcase/internal/config"
	"github.com/hitoshi/cmsshowcase/internal/content"
	"github.com/hitoshi/cmsshowcase/internal/database"
	"github.com/hitoshi/cmsshowcase/internal/handler"
	"github.com/hitoshi/cmsshowcase/internal/logger"
	"github.com/hitoshi/cmsshowcase/internal/metrics"
	"github.com/hitoshi/cmsshowcase/internal/middleware"
	"github.com/hitoshi/cmsshowcase/internal/model"
	"github.com/hitoshi/cmsshowcase/internal/mutation"
	"github.com/hitoshi/cmsshowcase/internal/repository"
	"github.com/hitoshi/cmsshowcase/internal/security"
	"github.com/hitoshi/cmsshowcase/internal/session"
	"github.com/hitoshi/cmsshowcase/internal/storefront"
	"github.com/hitoshi/cmsshowcase/internal/upstream"
)

const dbPingTimeout = 5 * time.Second

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップし、環境変数からConfigを読み込む。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 設定読み込み前にログを使えるようにする。レベルはLOG_LEVELを直接参照する
	logger.SetupDefault(w, logger.ParseLevel(os.Getenv("LOG_LEVEL")))

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("session_store", cfg.SessionStore),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// 全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	router, closeFn, err := buildHandler(context.Background(), cfg, slog.Default(), reg)
	if err != nil {
		return err
	}
	defer closeFn()

	server := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
		// 取得元のタイムアウト分の待ちを含めても切られないようにする
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.UpstreamTimeout*2 + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
			slog.String("drupal", cfg.DrupalBaseURL),
			slog.String("wordpress", cfg.WordPressBaseURL),
			slog.String("woocommerce", cfg.WooCommerceBaseURL),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// buildHandler は設定から全サービスを組み立て、ルーターを返す。
// 返却されるcloseFnでDB接続とレートリミッターを解放する。
func buildHandler(ctx context.Context, cfg *config.Config, log *slog.Logger, reg *prometheus.Registry) (http.Handler, func(), error) {
	// 1. 取得元URLの検証
	guard := security.NewUpstreamGuard(cfg.UpstreamAllowPrivate)
	for name, u := range map[string]string{
		"DRUPAL_BASE_URL":      cfg.DrupalBaseURL,
		"WORDPRESS_BASE_URL":   cfg.WordPressBaseURL,
		"WOOCOMMERCE_BASE_URL": cfg.WooCommerceBaseURL,
	} {
		if err := guard.ValidateBaseURL(u); err != nil {
			return nil, nil, fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	if cfg.WordPressFeedURL != "" {
		if err := guard.ValidateBaseURL(cfg.WordPressFeedURL); err != nil {
			return nil, nil, fmt.Errorf("invalid WORDPRESS_FEED_URL: %w", err)
		}
	}

	// 2. セッション保存先
	store, db, err := openSessionStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	// 3. 取得元クライアント
	collector := metrics.NewCollector(reg)
	sanitizer := security.NewHTMLSanitizer()
	normalizer := content.NewNormalizer(sanitizer)

	drupalAPI := upstream.NewClient(guard.NewClient(cfg.UpstreamTimeout), string(model.PlatformDrupal),
		cfg.DrupalBaseURL, cfg.UpstreamMaxSize, collector, log)
	wordpressAPI := upstream.NewClient(guard.NewClient(cfg.UpstreamTimeout), string(model.PlatformWordPress),
		cfg.WordPressBaseURL, cfg.UpstreamMaxSize, collector, log)
	wooAPI := upstream.NewClient(guard.NewClient(cfg.UpstreamTimeout), "woocommerce",
		cfg.WooCommerceBaseURL, cfg.UpstreamMaxSize, collector, log)

	// セッションクライアントはCookie Jarを持つため専用のhttp.Clientを渡す
	sessionClient, err := session.NewClient(guard.NewClient(cfg.UpstreamTimeout), store, session.Config{
		BaseURL:     cfg.DrupalBaseURL,
		MaxBodySize: cfg.UpstreamMaxSize,
		TTL:         cfg.SessionTTL,
	}, collector, log)
	if err != nil {
		closeDB(db)
		return nil, nil, fmt.Errorf("failed to create session client: %w", err)
	}

	// 4. ドメインサービス
	gateway := content.NewGateway(
		content.NewDrupalSource(drupalAPI, normalizer, log),
		content.NewWordPressSource(wordpressAPI, normalizer, log, cfg.WordPressFeedURL),
	)
	mutator := mutation.NewClient(sessionClient, normalizer, collector, log)
	shopCart := cart.New()
	catalog := storefront.NewCatalog(wooAPI, sanitizer, log)
	orders := storefront.NewOrderService(shopCart, collector, log)

	// 5. ルーター
	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitMutation), log)

	deps := &handler.RouterDeps{
		Logger:            log,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
			Logger:       log,
		},
		RateLimiter:    rateLimiter,
		MetricsHandler: metrics.Handler(reg),

		ContentService: gateway,
		SessionService: sessionClient,
		ArticleMutator: mutator,
		Catalog:        catalog,
		Cart:           shopCart,
		Orders:         orders,
	}
	// nilの*sql.DBをインターフェースに入れるとnil判定が効かないため、DBがある場合のみ設定する
	if db != nil {
		deps.HealthChecker = db
	}

	closeFn := func() {
		rateLimiter.Stop()
		closeDB(db)
	}

	return handler.NewRouter(deps), closeFn, nil
}

// openSessionStore はSESSION_STOREに応じたKeyValueStoreを返す。
// postgresの場合は接続済みの*sql.DBも返す。
func openSessionStore(ctx context.Context, cfg *config.Config) (repository.KeyValueStore, *sql.DB, error) {
	switch cfg.SessionStore {
	case config.SessionStorePostgres:
		db, err := database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := database.Ping(ctx, db, dbPingTimeout); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		slog.Info("database connection established",
			slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
		)
		return repository.NewPostgresKeyValueRepo(db), db, nil
	case config.SessionStoreMemory:
		return repository.NewMemoryKeyValueStore(), nil, nil
	default:
		return repository.NewFileKeyValueStore(cfg.SessionFile), nil, nil
	}
}

func closeDB(db *sql.DB) {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		slog.Warn("failed to close database", slog.String("error", err.Error()))
	}
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("migration requires DATABASE_URL")
	}

	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
