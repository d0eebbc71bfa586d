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
	PublicBaseURL string
	LogLevel      string
	DatabaseURL   string

	// OrgID identifies the tenant this deployment serves; one CallRail
	// account maps to one org.
	OrgID string

	// CallRail integration
	CallRailAPIKey        string
	CallRailAccountID     string
	CallRailWebhookSecret string
	CallRailBaseURL       string
	CallRailMaxRetries    int
	CallRailRetryBackoff  time.Duration

	// Historical import
	ImportLookbackDays  int
	ImportPageSize      int
	ImportPageDelay     time.Duration
	ImportMaxPages      int
	ImportSkipDispatch  bool
	RecorderMaxAttempts int
	RecorderBaseDelay   time.Duration

	// Real-time fan-out
	RedisAddr      string
	RedisPassword  string
	RedisTLS       bool
	RealtimePrefix string

	// Notification email (trigger only)
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	LeadAlertEmail    string

	AdminJWTSecret     string
	CORSAllowedOrigins []string
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),

		OrgID: getEnv("ORG_ID", "default"),

		CallRailAPIKey:        getEnv("CALLRAIL_API_KEY", ""),
		CallRailAccountID:     getEnv("CALLRAIL_ACCOUNT_ID", ""),
		CallRailWebhookSecret: getEnv("CALLRAIL_WEBHOOK_SECRET", ""),
		CallRailBaseURL:       getEnv("CALLRAIL_BASE_URL", ""),
		CallRailMaxRetries:    getEnvAsInt("CALLRAIL_MAX_RETRIES", 3),
		CallRailRetryBackoff:  getEnvAsDuration("CALLRAIL_RETRY_BACKOFF", 250*time.Millisecond),

		ImportLookbackDays:  getEnvAsInt("IMPORT_LOOKBACK_DAYS", 30),
		ImportPageSize:      getEnvAsInt("IMPORT_PAGE_SIZE", 100),
		ImportPageDelay:     getEnvAsDuration("IMPORT_PAGE_DELAY", 500*time.Millisecond),
		ImportMaxPages:      getEnvAsInt("IMPORT_MAX_PAGES", 200),
		ImportSkipDispatch:  getEnvAsBool("IMPORT_SKIP_DISPATCH", true),
		RecorderMaxAttempts: getEnvAsInt("RECORDER_MAX_ATTEMPTS", 3),
		RecorderBaseDelay:   getEnvAsDuration("RECORDER_BASE_DELAY", 100*time.Millisecond),

		RedisAddr:      getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisTLS:       getEnvAsBool("REDIS_TLS", false),
		RealtimePrefix: getEnv("REALTIME_CHANNEL_PREFIX", "calls"),

		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Oakline CRM"),
		LeadAlertEmail:    getEnv("LEAD_ALERT_EMAIL", ""),

		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
		RateLimitPerSecond: getEnvAsFloat("RATE_LIMIT_PER_SECOND", 25),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 50),
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
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

func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
