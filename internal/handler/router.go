package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/cmsshowcase/internal/middleware"
	"github.com/hitoshi/cmsshowcase/internal/model"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	CORSAllowedOrigin string
	CSRFConfig        middleware.CSRFConfig
	RateLimiter       *middleware.RateLimiter

	// 運用
	HealthChecker  HealthChecker
	MetricsHandler http.Handler

	// コンテンツ
	ContentService ContentServiceInterface
	SessionService SessionServiceInterface
	ArticleMutator ArticleMutatorInterface

	// ショップ
	Catalog ProductCatalogInterface
	Cart    CartInterface
	Orders  OrderServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	ResponseSeq → RequestID → Recovery → Logging → CORS → SecurityHeaders → ClientKey
//	→ RateLimit(General) → CSRF → RateLimit(Mutation, 変更系のみ)
//
// /health と /metrics はレート制限とCSRF検証の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	// エラーレスポンスにも連番を付けるため最上位に置く
	r.Use(middleware.NewResponseSeqMiddleware())
	r.Use(chimw.RequestID)
	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewClientKeyMiddleware())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeAPIErrorResponse(w, http.StatusNotFound, &model.APIError{
			Code:     "NOT_FOUND",
			Message:  "指定されたAPIは存在しません。",
			Category: "validation",
			Action:   "URLを確認してください。",
		})
	})

	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	contentHandler := NewContentHandler(deps.ContentService)
	sessionHandler := NewSessionHandler(deps.SessionService)
	articleHandler := NewArticleHandler(deps.ArticleMutator)
	shopHandler := NewShopHandler(deps.Catalog, deps.Cart, deps.Orders)

	mutation := deps.RateLimiter.MutationMiddleware()

	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// CSRFトークン取得（トークン発行のためCSRF検証の外）
		r.Get("/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig).ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

			// ショップ
			r.Route("/api/shop/products", func(r chi.Router) {
				r.Get("/", shopHandler.ListProducts)
				r.Get("/{id}", shopHandler.GetProduct)
			})
			r.Route("/api/cart", func(r chi.Router) {
				r.Get("/", shopHandler.GetCart)
				r.Delete("/", shopHandler.ClearCart)
				r.Post("/items", shopHandler.AddCartItem)
				r.Put("/items/{id}", shopHandler.SetCartItemQuantity)
				r.Delete("/items/{id}", shopHandler.RemoveCartItem)
			})
			r.With(mutation).Post("/api/checkout", shopHandler.Checkout)
			r.Get("/api/orders/{id}", shopHandler.GetOrder)

			// コンテンツ（/api/drupal, /api/wordpress）
			r.Route("/api/{platform}", func(r chi.Router) {
				r.Get("/articles", contentHandler.ListArticles)
				r.Get("/events", contentHandler.ListEvents)
				r.Get("/articles/{id}", contentHandler.GetArticle)
				r.Get("/{kind}/{id}", contentHandler.GetContent)

				// セッションと記事の変更はDrupalのみ
				r.Group(func(r chi.Router) {
					r.Use(requirePlatform(model.PlatformDrupal))

					r.Get("/session", sessionHandler.GetSession)
					r.With(mutation).Post("/session", sessionHandler.Login)
					r.Delete("/session", sessionHandler.Logout)

					r.With(mutation).Post("/articles", articleHandler.CreateArticle)
					r.With(mutation).Patch("/articles/{id}", articleHandler.UpdateArticle)
				})
			})
		})
	})

	return r
}

// requirePlatform はURLのplatformが指定のものでない場合に404を返すミドルウェア。
func requirePlatform(platform model.Platform) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := chi.URLParam(r, "platform"); got != string(platform) {
				writeAPIErrorResponse(w, http.StatusNotFound, model.NewUnknownPlatformError(got))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
