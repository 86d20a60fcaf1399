package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	ServerPort string

	// Database settings. DatabaseType selects the dialect (sqlite, postgres,
	// mysql); DatabasePath is used by sqlite, DatabaseURL by the others.
	DatabaseType   string
	DatabasePath   string
	DatabaseURL    string
	MigrationsPath string

	// Auth settings
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// Google OAuth login
	GoogleClientID       string
	GoogleClientSecret   string
	OAuthRedirectBaseURL string

	// Email delivery (Amazon SES). Leaving SESFromEmail empty disables email.
	AWSRegion    string
	SESFromEmail string
	SESFromName  string
	AppBaseURL   string

	// Rate limiting for auth endpoints
	AuthRateLimit  int
	AuthRateWindow time.Duration
}

// Load reads configuration from environment variables with sensible defaults
func Load() *Config {
	return &Config{
		ServerPort:     getEnv("PORT", "8080"),
		DatabaseType:   getEnv("DB_TYPE", "sqlite"),
		DatabasePath:   getEnv("DB_PATH", "./famledger.db"),
		DatabaseURL:    getEnv("DB_URL", ""),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "./migrations"),

		JWTSecret:       getEnv("JWT_SECRET", ""),
		AccessTokenTTL:  getDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL: getDuration("REFRESH_TOKEN_TTL", 30*24*time.Hour),

		GoogleClientID:       getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:   getEnv("GOOGLE_CLIENT_SECRET", ""),
		OAuthRedirectBaseURL: getEnv("OAUTH_REDIRECT_BASE_URL", "http://localhost:8080"),

		AWSRegion:    getEnv("AWS_REGION", "us-east-1"),
		SESFromEmail: getEnv("SES_FROM_EMAIL", ""),
		SESFromName:  getEnv("SES_FROM_NAME", "FamLedger"),
		AppBaseURL:   getEnv("APP_BASE_URL", "http://localhost:8080"),

		AuthRateLimit:  getInt("AUTH_RATE_LIMIT", 10),
		AuthRateWindow: getDuration("AUTH_RATE_WINDOW", time.Minute),
	}
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
