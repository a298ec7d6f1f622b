package app

import (
	"errors"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Issuer string // Issuer claim for access tokens (default: noteloom-identity)

	// Exactly one signing scheme: a shared HS256 secret, or an RS256
	// private key file whose public half is handed to the gateway.
	JWTSecret         string // IDENTITY_JWT_SECRET
	JWTPrivateKeyFile string // IDENTITY_JWT_PRIVATE_KEY_FILE

	AccessTTL  time.Duration // Access token / session lifetime (default: 30m)
	RefreshTTL time.Duration // Refresh token lifetime (default: 720h)

	DatabaseFile string // Path to SQLite database file (default: ./identity.db)
	PepperFile   string // Path to password hashing pepper file (default: ./pepper)

	RedisAddr     string // Session cache address (default: localhost:6379)
	RedisPassword string
	RedisDB       int

	RequireCaptcha bool          // Demand a captcha ticket on password logins
	EmailCodeTTL   time.Duration // One-time login code lifetime (default: 5m)

	// Third-party providers activate when their client id is set.
	GitHubClientID     string
	GitHubClientSecret string
	GitHubRedirectURL  string
	QQClientID         string
	QQClientSecret     string
	QQRedirectURL      string
	WeChatAppID        string
	WeChatAppSecret    string
	WeChatRedirectURL  string

	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)
}

func LoadConfig() Config {
	return Config{
		Issuer:            getEnvOrDefault("IDENTITY_ISSUER", "noteloom-identity"),
		JWTSecret:         os.Getenv("IDENTITY_JWT_SECRET"),
		JWTPrivateKeyFile: os.Getenv("IDENTITY_JWT_PRIVATE_KEY_FILE"),

		AccessTTL:  getEnvDurationOrDefault("IDENTITY_ACCESS_TTL", 30*time.Minute),
		RefreshTTL: getEnvDurationOrDefault("IDENTITY_REFRESH_TTL", 30*24*time.Hour),

		DatabaseFile: getEnvOrDefault("IDENTITY_DATABASE_FILE", "identity.db"),
		PepperFile:   getEnvOrDefault("IDENTITY_PEPPER_FILE", "pepper"),

		RedisAddr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvIntOrDefault("REDIS_DB", 0),

		RequireCaptcha: getEnvBoolOrDefault("IDENTITY_REQUIRE_CAPTCHA", false),
		EmailCodeTTL:   getEnvDurationOrDefault("IDENTITY_EMAIL_CODE_TTL", 5*time.Minute),

		GitHubClientID:     os.Getenv("OAUTH_GITHUB_CLIENT_ID"),
		GitHubClientSecret: os.Getenv("OAUTH_GITHUB_CLIENT_SECRET"),
		GitHubRedirectURL:  os.Getenv("OAUTH_GITHUB_REDIRECT_URL"),
		QQClientID:         os.Getenv("OAUTH_QQ_CLIENT_ID"),
		QQClientSecret:     os.Getenv("OAUTH_QQ_CLIENT_SECRET"),
		QQRedirectURL:      os.Getenv("OAUTH_QQ_REDIRECT_URL"),
		WeChatAppID:        os.Getenv("OAUTH_WECHAT_APP_ID"),
		WeChatAppSecret:    os.Getenv("OAUTH_WECHAT_APP_SECRET"),
		WeChatRedirectURL:  os.Getenv("OAUTH_WECHAT_REDIRECT_URL"),

		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}
}

// Validate rejects configurations the process could start with but never
// issue a verifiable token under.
func (cfg Config) Validate() error {
	if cfg.JWTSecret == "" && cfg.JWTPrivateKeyFile == "" {
		return errors.New("one of IDENTITY_JWT_SECRET or IDENTITY_JWT_PRIVATE_KEY_FILE is required")
	}
	if cfg.JWTSecret != "" && cfg.JWTPrivateKeyFile != "" {
		return errors.New("IDENTITY_JWT_SECRET and IDENTITY_JWT_PRIVATE_KEY_FILE are mutually exclusive")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if boolValue, err := strconv.ParseBool(value); err == nil {
		return boolValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Accept bare integers as minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
