package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Redis（空の場合はレート制限カウンタをプロセス内に保持する）
	RedisURL string

	// Admin
	AdminPassword      string
	SessionSecret      string
	AdminSessionMaxAge time.Duration
	AdminFailureDelay  time.Duration

	// Visitor
	VisitorRetention time.Duration

	// Rate Limit（各ウィンドウ内の上限回数）
	RateLimitSubmit     int
	RateLimitVote       int
	RateLimitAdminLogin int
	RateLimitGeneral    int
	TrustProxyHeaders   bool

	// Cleanup
	CleanupInterval time.Duration

	// Logging
	LogLevel string

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS / 埋め込み
	CORSAllowedOrigins  []string
	EmbedAllowedOrigins []string
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリに.envがあれば先に読み込むが、既存の環境変数は上書きしない。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	if cfg.SessionSecret == "" {
		missing = append(missing, "SESSION_SECRET")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.RedisURL = getEnvString("REDIS_URL", "")
	cfg.AdminPassword = getEnvString("ADMIN_PASSWORD", "")
	cfg.AdminSessionMaxAge = getEnvDuration("ADMIN_SESSION_MAX_AGE", 7*24*time.Hour)
	cfg.AdminFailureDelay = getEnvDuration("ADMIN_FAILURE_DELAY", 500*time.Millisecond)
	cfg.VisitorRetention = getEnvDuration("VISITOR_RETENTION", 30*24*time.Hour)
	cfg.RateLimitSubmit = getEnvInt("RATE_LIMIT_SUBMIT", 1)
	cfg.RateLimitVote = getEnvInt("RATE_LIMIT_VOTE", 6)
	cfg.RateLimitAdminLogin = getEnvInt("RATE_LIMIT_ADMIN_LOGIN", 10)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 100)
	cfg.TrustProxyHeaders = getEnvBool("TRUST_PROXY_HEADERS", false)
	cfg.CleanupInterval = getEnvDuration("CLEANUP_INTERVAL", time.Hour)
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigins = getEnvList("CORS_ALLOWED_ORIGIN", []string{"http://localhost:3000"})
	cfg.EmbedAllowedOrigins = getEnvList("EMBED_ALLOWED_ORIGINS", nil)

	return cfg, nil
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
	if err != nil || i <= 0 {
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
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

// getEnvList はカンマ区切りの値を空要素を除いて分割する。
func getEnvList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var list []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	if len(list) == 0 {
		return defaultVal
	}
	return list
}
