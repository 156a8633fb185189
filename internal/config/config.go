package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// セッション保存先の種類。
const (
	SessionStorePostgres = "postgres"
	SessionStoreFile     = "file"
	SessionStoreMemory   = "memory"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Upstream
	DrupalBaseURL        string
	WordPressBaseURL     string
	WordPressFeedURL     string
	WooCommerceBaseURL   string
	UpstreamTimeout      time.Duration
	UpstreamMaxSize      int64
	UpstreamAllowPrivate bool

	// Session
	SessionTTL   time.Duration
	SessionStore string
	SessionFile  string

	// Database
	DatabaseURL string

	// Rate Limit
	RateLimitGeneral  int
	RateLimitMutation int

	// Logging
	LogLevel string

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 設定値の組み合わせが不正な場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.DrupalBaseURL = trimBase(getEnvString("DRUPAL_BASE_URL", "https://drupalize.me"))
	cfg.WordPressBaseURL = trimBase(getEnvString("WORDPRESS_BASE_URL", "https://wptavern.com"))
	cfg.WordPressFeedURL = getEnvString("WORDPRESS_FEED_URL", "")
	cfg.WooCommerceBaseURL = trimBase(getEnvString("WOOCOMMERCE_BASE_URL", "https://www.thecrucible.org"))
	cfg.UpstreamTimeout = getEnvDuration("UPSTREAM_TIMEOUT", 10*time.Second)
	cfg.UpstreamMaxSize = getEnvInt64("UPSTREAM_MAX_SIZE", 5242880)
	cfg.UpstreamAllowPrivate = getEnvBool("UPSTREAM_ALLOW_PRIVATE", false)

	cfg.SessionTTL = getEnvDuration("SESSION_TTL", time.Hour)
	cfg.SessionStore = strings.ToLower(getEnvString("SESSION_STORE", SessionStoreFile))
	cfg.SessionFile = getEnvString("SESSION_FILE", "data/session.json")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")

	switch cfg.SessionStore {
	case SessionStorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("required environment variables are not set: [DATABASE_URL] (SESSION_STORE=%s)", cfg.SessionStore)
		}
	case SessionStoreFile, SessionStoreMemory:
	default:
		return nil, fmt.Errorf("invalid SESSION_STORE: %q (allowed: postgres, file, memory)", cfg.SessionStore)
	}

	if cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("SESSION_TTL must be positive: %s", cfg.SessionTTL)
	}

	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitMutation = getEnvInt("RATE_LIMIT_MUTATION", 20)
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.BaseURL = getEnvString("BASE_URL", "http://localhost:8080")
	cfg.CookieSecure = getEnvBool("COOKIE_SECURE", strings.HasPrefix(cfg.BaseURL, "https://"))
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

// trimBase は末尾のスラッシュを除去する。パスは常に"/"始まりで連結する。
func trimBase(u string) string {
	return strings.TrimRight(u, "/")
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
