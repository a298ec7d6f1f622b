package app

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Issuer string // Expected issuer claim (default: noteloom-identity)

	// Exactly one verification scheme: the shared HS256 secret, or the
	// RS256 public key exported by the identity service. The gateway
	// never holds signing material in RS256 mode.
	JWTSecret        string // GATEWAY_JWT_SECRET
	JWTPublicKeyFile string // GATEWAY_JWT_PUBLIC_KEY_FILE

	DownstreamURL string        // Where verified requests are proxied (required)
	SessionTTL    time.Duration // Sliding session window, matches the identity access TTL (default: 30m)

	Allowlist []string // Comma-separated path globs that bypass verification
	Blacklist []string // Comma-separated IPs / CIDR ranges rejected outright

	RedisAddr     string // Session cache address (default: localhost:6379)
	RedisPassword string
	RedisDB       int

	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8081)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)
}

func LoadConfig() Config {
	return Config{
		Issuer:           getEnvOrDefault("GATEWAY_ISSUER", "noteloom-identity"),
		JWTSecret:        os.Getenv("GATEWAY_JWT_SECRET"),
		JWTPublicKeyFile: os.Getenv("GATEWAY_JWT_PUBLIC_KEY_FILE"),

		DownstreamURL: os.Getenv("GATEWAY_DOWNSTREAM_URL"),
		SessionTTL:    getEnvDurationOrDefault("GATEWAY_SESSION_TTL", 30*time.Minute),

		Allowlist: splitList(getEnvOrDefault("GATEWAY_ALLOWLIST", "/v1/auth/*,/v1/oauth/*,/livez,/readyz")),
		Blacklist: splitList(os.Getenv("GATEWAY_BLACKLIST")),

		RedisAddr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvIntOrDefault("REDIS_DB", 0),

		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8081),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}
}

func (cfg Config) Validate() error {
	if cfg.DownstreamURL == "" {
		return errors.New("GATEWAY_DOWNSTREAM_URL is required")
	}
	if cfg.JWTSecret == "" && cfg.JWTPublicKeyFile == "" {
		return errors.New("one of GATEWAY_JWT_SECRET or GATEWAY_JWT_PUBLIC_KEY_FILE is required")
	}
	if cfg.JWTSecret != "" && cfg.JWTPublicKeyFile != "" {
		return errors.New("GATEWAY_JWT_SECRET and GATEWAY_JWT_PUBLIC_KEY_FILE are mutually exclusive")
	}
	return nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
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

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
