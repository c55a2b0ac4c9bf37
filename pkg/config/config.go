package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config is built once at startup and treated as immutable afterwards.
type Config struct {
	AppEnv   string
	HTTPAddr string
	LogLevel string

	MigrationsPath string

	// Session storage backend: "postgres", "redis" or "memory".
	SessionBackend string

	// Postgres runtime connection (often a pooler DSN) and a direct
	// connection for migrations.
	DatabaseURL string
	DirectURL   string

	RedisURL string

	Shopify ShopifyConfig

	Auth AuthPaths
}

type ShopifyConfig struct {
	APIKey    string
	APISecret string
	Scopes    []string

	// AppURL is the externally reachable URL of this app, without a
	// trailing slash. Example: https://my-app.example.com
	AppURL string

	APIVersion string

	// WebhookSecret signs webhook deliveries. For apps created through the
	// partner dashboard this is the API secret itself.
	WebhookSecret string

	IsEmbeddedApp   bool
	UseOnlineTokens bool
}

// AuthPaths are the routes the gateway claims for itself.
type AuthPaths struct {
	Path                  string
	CallbackPath          string
	ExitIframePath        string
	PatchSessionTokenPath string
}

func Load() Config {
	// Convenience for local dev: load variables from .env if present.
	// In production, rely on real environment variables.
	_ = godotenv.Load()

	httpAddr := os.Getenv("HTTP_ADDR")
	if httpAddr == "" {
		if port := os.Getenv("PORT"); port != "" {
			httpAddr = ":" + port
		} else {
			httpAddr = ":8081"
		}
	}

	appURL := strings.TrimRight(strings.TrimSpace(os.Getenv("SHOPIFY_APP_URL")), "/")

	return Config{
		AppEnv:         env("APP_ENV", "dev"),
		HTTPAddr:       httpAddr,
		LogLevel:       env("LOG_LEVEL", "info"),
		MigrationsPath: os.Getenv("MIGRATIONS_PATH"),
		SessionBackend: env("SESSION_BACKEND", "memory"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DirectURL:      os.Getenv("DIRECT_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		Shopify: ShopifyConfig{
			APIKey:          os.Getenv("SHOPIFY_API_KEY"),
			APISecret:       os.Getenv("SHOPIFY_API_SECRET"),
			Scopes:          envList("SHOPIFY_SCOPES", ""),
			AppURL:          appURL,
			APIVersion:      env("SHOPIFY_API_VERSION", "2025-10"),
			WebhookSecret:   env("SHOPIFY_WEBHOOK_SECRET", os.Getenv("SHOPIFY_API_SECRET")),
			IsEmbeddedApp:   envBool("SHOPIFY_EMBEDDED_APP", true),
			UseOnlineTokens: envBool("SHOPIFY_USE_ONLINE_TOKENS", false),
		},
		Auth: AuthPaths{
			Path:                  env("AUTH_PATH", "/auth"),
			CallbackPath:          env("AUTH_CALLBACK_PATH", "/auth/callback"),
			ExitIframePath:        env("AUTH_EXITIFRAME_PATH", "/exitiframe"),
			PatchSessionTokenPath: env("AUTH_PATCH_SESSION_TOKEN_PATH", "/auth/session-token"),
		},
	}
}

func env(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func envBool(key string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func envList(key, fallbackCSV string) []string {
	v := os.Getenv(key)
	if v == "" {
		v = fallbackCSV
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
