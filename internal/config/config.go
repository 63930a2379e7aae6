package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	CORSAllowedOrigins []string
	PortalJWTSecret    string

	// Stripe checkout
	StripeSecretKey  string
	StripeSuccessURL string
	StripeCancelURL  string
	StripeDryRun     bool

	// Real-time clock resolution
	TimeProviderTimeout time.Duration
	TimeFallbackURL     string
	TimeFallbackTimeout time.Duration
	ClockCacheTTL       time.Duration

	// Dashboard preview refresh
	RefreshInterval    time.Duration
	PreviewLimit       int
	AppointmentsAPIURL string
	PreviewClientIDs   []string
	PreviewSnapshotTTL time.Duration
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", nil),
		PortalJWTSecret:    getEnv("PORTAL_JWT_SECRET", ""),

		StripeSecretKey:  getEnv("STRIPE_SECRET_KEY", ""),
		StripeSuccessURL: getEnv("STRIPE_SUCCESS_URL", ""),
		StripeCancelURL:  getEnv("STRIPE_CANCEL_URL", ""),
		StripeDryRun:     getEnvAsBool("STRIPE_DRY_RUN", false),

		TimeProviderTimeout: getEnvAsDuration("TIME_PROVIDER_TIMEOUT", 3*time.Second),
		TimeFallbackURL:     getEnv("TIME_FALLBACK_URL", ""),
		TimeFallbackTimeout: getEnvAsDuration("TIME_FALLBACK_TIMEOUT", 5*time.Second),
		ClockCacheTTL:       getEnvAsDuration("CLOCK_CACHE_TTL", 5*time.Minute),

		RefreshInterval:    getEnvAsDuration("DASHBOARD_REFRESH_INTERVAL", 20*time.Second),
		PreviewLimit:       getEnvAsInt("DASHBOARD_PREVIEW_LIMIT", 2),
		AppointmentsAPIURL: getEnv("APPOINTMENTS_API_URL", ""),
		PreviewClientIDs:   getEnvAsList("DASHBOARD_PREVIEW_CLIENT_IDS", nil),
		PreviewSnapshotTTL: getEnvAsDuration("DASHBOARD_SNAPSHOT_TTL", 2*time.Minute),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList parses a comma-separated environment variable, trimming blanks.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
