package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL   string
	Port          string
	IsProduction  bool
	EnableDBCheck bool

	JWTSecret         string
	JWTExpiryDuration time.Duration
	JWTIssuer         string

	// LedgerUTCOffset is the fixed UTC offset ("+05:30") every civil ledger
	// day is anchored to; LedgerOffsetSeconds is the same value in seconds.
	LedgerUTCOffset     string
	LedgerOffsetSeconds int

	SchedulerEnabled     bool
	SchedulerConcurrency int

	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	SummaryCacheTTL time.Duration

	RateLimitFormatted string
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("ENABLE_DB_CHECK", false)
	viper.SetDefault("JWT_SECRET", "a-very-secret-key-should-be-longer-and-random")
	viper.SetDefault("JWT_EXPIRY_DURATION", "1h")
	viper.SetDefault("JWT_ISSUER", "stock-ledger-app")
	viper.SetDefault("LEDGER_UTC_OFFSET", "+05:30")
	viper.SetDefault("SCHEDULER_ENABLED", true)
	viper.SetDefault("SCHEDULER_CONCURRENCY", 8)
	viper.SetDefault("REDIS_ADDR", "")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("SUMMARY_CACHE_TTL", "5m")
	viper.SetDefault("RATE_LIMIT", "100-M")

	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}

	cfg.Port = viper.GetString("PORT")
	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")
	cfg.EnableDBCheck = viper.GetBool("ENABLE_DB_CHECK")

	cfg.JWTSecret = viper.GetString("JWT_SECRET")
	if cfg.JWTSecret == "a-very-secret-key-should-be-longer-and-random" {
		log.Println("Warning: JWT_SECRET not set. Using default insecure key.")
	}

	jwtExpiryStr := viper.GetString("JWT_EXPIRY_DURATION")
	jwtExpiryDuration, err := time.ParseDuration(jwtExpiryStr)
	if err != nil {
		jwtExpiryDuration = time.Hour
		log.Printf("Warning: Invalid value for JWT_EXPIRY_DURATION ('%s'). Defaulting to %s.\n", jwtExpiryStr, jwtExpiryDuration)
	}
	cfg.JWTExpiryDuration = jwtExpiryDuration
	cfg.JWTIssuer = viper.GetString("JWT_ISSUER")

	cfg.LedgerUTCOffset = viper.GetString("LEDGER_UTC_OFFSET")
	offsetSeconds, err := parseUTCOffset(cfg.LedgerUTCOffset)
	if err != nil {
		return nil, fmt.Errorf("invalid LEDGER_UTC_OFFSET %q: %w", cfg.LedgerUTCOffset, err)
	}
	cfg.LedgerOffsetSeconds = offsetSeconds

	cfg.SchedulerEnabled = viper.GetBool("SCHEDULER_ENABLED")
	cfg.SchedulerConcurrency = viper.GetInt("SCHEDULER_CONCURRENCY")
	if cfg.SchedulerConcurrency < 1 {
		cfg.SchedulerConcurrency = 1
	}

	cfg.RedisAddr = viper.GetString("REDIS_ADDR")
	cfg.RedisPassword = viper.GetString("REDIS_PASSWORD")
	cfg.RedisDB = viper.GetInt("REDIS_DB")

	summaryTTLStr := viper.GetString("SUMMARY_CACHE_TTL")
	summaryTTL, err := time.ParseDuration(summaryTTLStr)
	if err != nil {
		summaryTTL = 5 * time.Minute
		log.Printf("Warning: Invalid value for SUMMARY_CACHE_TTL ('%s'). Defaulting to %s.\n", summaryTTLStr, summaryTTL)
	}
	cfg.SummaryCacheTTL = summaryTTL

	cfg.RateLimitFormatted = viper.GetString("RATE_LIMIT")

	return cfg, nil
}

// parseUTCOffset converts "+05:30" / "-08:00" into seconds east of UTC.
func parseUTCOffset(offset string) (int, error) {
	var sign rune
	var hours, minutes int
	if _, err := fmt.Sscanf(offset, "%c%02d:%02d", &sign, &hours, &minutes); err != nil {
		return 0, fmt.Errorf("expected format ±HH:MM: %w", err)
	}
	if sign != '+' && sign != '-' {
		return 0, fmt.Errorf("offset must start with '+' or '-'")
	}
	if hours > 14 || minutes > 59 {
		return 0, fmt.Errorf("offset out of range")
	}
	seconds := hours*3600 + minutes*60
	if sign == '-' {
		seconds = -seconds
	}
	return seconds, nil
}
