package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration
type Config struct {
	Environment string
	ServerPort  int
	LogLevel    string

	DatabaseHost     string
	DatabasePort     int
	DatabaseUser     string
	DatabasePassword string
	DatabaseName     string
	DatabaseSSLMode  string

	// RedisURL is optional; when empty the dashboard summary cache runs
	// in-process.
	RedisURL string

	JWTSecret string
	TokenTTL  time.Duration

	CORSAllowedOrigins []string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	SummaryCacheTTL time.Duration
	StatsInterval   time.Duration

	// Plan tier limits on business count; 0 means unlimited.
	PlanLimits map[string]int

	// Report export target; feature is disabled when the endpoint is
	// empty.
	ReportStoreEndpoint  string
	ReportStoreBucket    string
	ReportStoreAccessKey string
	ReportStoreSecretKey string
	ReportStoreUseSSL    bool
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	port, err := strconv.Atoi(getEnv("SERVER_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	tokenTTL, err := strconv.Atoi(getEnv("TOKEN_TTL_MINUTES", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid TOKEN_TTL_MINUTES: %w", err)
	}

	rateLimit, err := strconv.Atoi(getEnv("RATE_LIMIT_REQUESTS", "100"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_REQUESTS: %w", err)
	}

	summaryTTL, err := strconv.Atoi(getEnv("SUMMARY_CACHE_TTL_SECONDS", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid SUMMARY_CACHE_TTL_SECONDS: %w", err)
	}

	statsInterval, err := strconv.Atoi(getEnv("STATS_INTERVAL_SECONDS", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid STATS_INTERVAL_SECONDS: %w", err)
	}

	freeLimit, err := strconv.Atoi(getEnv("PLAN_LIMIT_FREE", "3"))
	if err != nil {
		return nil, fmt.Errorf("invalid PLAN_LIMIT_FREE: %w", err)
	}

	proLimit, err := strconv.Atoi(getEnv("PLAN_LIMIT_PRO", "25"))
	if err != nil {
		return nil, fmt.Errorf("invalid PLAN_LIMIT_PRO: %w", err)
	}

	return &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		ServerPort:  port,
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		DatabaseHost:     getEnv("DB_HOST", "localhost"),
		DatabasePort:     dbPort,
		DatabaseUser:     getEnv("DB_USER", "cashflowpro"),
		DatabasePassword: getEnv("DB_PASSWORD", "dev"),
		DatabaseName:     getEnv("DB_NAME", "cashflowpro"),
		DatabaseSSLMode:  getEnv("DB_SSLMODE", "disable"),

		RedisURL: os.Getenv("REDIS_URL"),

		JWTSecret: getEnv("JWT_SECRET", ""),
		TokenTTL:  time.Duration(tokenTTL) * time.Minute,

		CORSAllowedOrigins: parseCSVEnv("CORS_ALLOWED_ORIGINS", []string{
			"http://localhost:5173",
			"http://localhost:3000",
		}),

		RateLimitRequests: rateLimit,
		RateLimitWindow:   time.Minute,

		SummaryCacheTTL: time.Duration(summaryTTL) * time.Second,
		StatsInterval:   time.Duration(statsInterval) * time.Second,

		PlanLimits: map[string]int{
			"FREE":       freeLimit,
			"PRO":        proLimit,
			"ENTERPRISE": 0,
		},

		ReportStoreEndpoint:  os.Getenv("REPORT_STORE_ENDPOINT"),
		ReportStoreBucket:    getEnv("REPORT_STORE_BUCKET", "cashflowpro-reports"),
		ReportStoreAccessKey: os.Getenv("REPORT_STORE_ACCESS_KEY"),
		ReportStoreSecretKey: os.Getenv("REPORT_STORE_SECRET_KEY"),
		ReportStoreUseSSL:    getEnv("REPORT_STORE_USE_SSL", "false") == "true",
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseCSVEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
