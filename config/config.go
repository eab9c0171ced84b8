package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// API Configuration
	APIPort        string
	APIHost        string
	APIEnvironment string

	// Firebase / Firestore
	FirebaseProjectID string
	CredentialsFile   string
	StoreBackend      string // firestore or memory

	// Auth
	AuthMode  string // firebase or jwt
	JWTSecret string

	// Redis
	RedisURL string

	// Rate Limiting
	RateLimitRequestsPerMinute int
	RateLimitBurst             int
	WebhookRateLimitPerMinute  int

	// Stripe
	StripeSecretKey     string
	StripeWebhookSecret string
	StripePricePro      string
	StripePriceBusiness string
	StripeTimeout       time.Duration

	// Frontend
	FrontendURL          string
	AllowedRedirectHosts []string

	// Sentry
	SentryDSN         string
	SentryEnvironment string

	// Email
	SendGridAPIKey string
	EmailFrom      string
	EmailFromName  string

	// Reconciliation
	ReconcileEnabled  bool
	ReconcileSchedule string

	// Logging
	LogLevel  string
	LogFormat string
}

// Load loads configuration from environment variables.
// A .env file in the working directory is read first when present.
func Load() *Config {
	_ = godotenv.Load()

	frontendURL := getEnv("FRONTEND_URL", "http://localhost:3000")

	return &Config{
		// API
		APIPort:        getEnv("API_PORT", "8080"),
		APIHost:        getEnv("API_HOST", "0.0.0.0"),
		APIEnvironment: getEnv("API_ENVIRONMENT", "development"),

		// Firebase
		FirebaseProjectID: getEnv("FIREBASE_PROJECT_ID", "restoplan-dev"),
		CredentialsFile:   getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		StoreBackend:      getEnv("STORE_BACKEND", "firestore"),

		// Auth
		AuthMode:  getEnv("AUTH_MODE", "firebase"),
		JWTSecret: getEnv("JWT_SECRET", "change-this-in-production"),

		// Redis
		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379"),

		// Rate Limiting
		RateLimitRequestsPerMinute: getEnvAsInt("RATE_LIMIT_REQUESTS_PER_MINUTE", 60),
		RateLimitBurst:             getEnvAsInt("RATE_LIMIT_BURST", 10),
		WebhookRateLimitPerMinute:  getEnvAsInt("WEBHOOK_RATE_LIMIT_PER_MINUTE", 100),

		// Stripe
		StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
		StripePricePro:      getEnv("STRIPE_PRICE_PRO", "price_pro"),
		StripePriceBusiness: getEnv("STRIPE_PRICE_BUSINESS", "price_business"),
		StripeTimeout:       getEnvAsDuration("STRIPE_TIMEOUT", 10*time.Second),

		// Frontend
		FrontendURL:          frontendURL,
		AllowedRedirectHosts: getEnvAsList("ALLOWED_REDIRECT_HOSTS", []string{"localhost:3000"}),

		// Sentry
		SentryDSN:         getEnv("SENTRY_DSN", ""),
		SentryEnvironment: getEnv("SENTRY_ENVIRONMENT", "development"),

		// Email
		SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
		EmailFrom:      getEnv("EMAIL_FROM", "billing@restoplan.app"),
		EmailFromName:  getEnv("EMAIL_FROM_NAME", "RestoPlan"),

		// Reconciliation
		ReconcileEnabled:  getEnvAsBool("RECONCILE_ENABLED", true),
		ReconcileSchedule: getEnv("RECONCILE_SCHEDULE", "@hourly"),

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}
}

// Helper functions
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil || value <= 0 {
		return defaultValue
	}

	return value
}

// getEnvAsList splits a comma-separated value, dropping empty entries.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
