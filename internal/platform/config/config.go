package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store drivers selectable with STORE_DRIVER.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL    string
	Port           string
	IsProduction   bool
	LogLevel       string
	StoreDriver    string
	MigrationsPath string
	JWTSecret      string
	JWTIssuer      string

	// Payment gateway; an empty key selects the sandbox gateway
	StripeSecretKey string
	GatewayTimeout  time.Duration

	// Reconciliation queue
	ReconcileWorkers    int
	ReconcileQueueSize  int
	ReconcileMaxRetries int

	RecurringInterval time.Duration

	// Monthly reports are written to this GCS bucket; empty logs them instead
	ReportBucket string

	RateLimit          string
	CORSAllowedOrigins []string
	PosthogAPIKey      string
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("STORE_DRIVER", StoreDriverPostgres)
	viper.SetDefault("MIGRATIONS_PATH", "file://migrations")
	viper.SetDefault("JWT_SECRET", "a-very-secret-key-should-be-longer-and-random")
	viper.SetDefault("JWT_ISSUER", "finance-ledger")
	viper.SetDefault("STRIPE_SECRET_KEY", "")
	viper.SetDefault("GATEWAY_TIMEOUT", "10s")
	viper.SetDefault("RECONCILE_WORKERS", 4)
	viper.SetDefault("RECONCILE_QUEUE_SIZE", 100)
	viper.SetDefault("RECONCILE_MAX_RETRIES", 3)
	viper.SetDefault("RECURRING_INTERVAL", "1h")
	viper.SetDefault("REPORT_BUCKET", "")
	viper.SetDefault("RATE_LIMIT", "100-M")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	viper.SetDefault("POSTHOG_API_KEY", "")

	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	cfg.Port = viper.GetString("PORT")
	if cfg.Port == "" {
		cfg.Port = "8080" // Default port
		log.Printf("Warning: PORT environment variable not set. Defaulting to %s\n", cfg.Port)
	}
	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")
	cfg.LogLevel = strings.ToLower(viper.GetString("LOG_LEVEL"))

	cfg.StoreDriver = strings.ToLower(viper.GetString("STORE_DRIVER"))
	if cfg.StoreDriver != StoreDriverPostgres && cfg.StoreDriver != StoreDriverMemory {
		log.Printf("Warning: Unknown STORE_DRIVER ('%s'). Defaulting to %s.\n", cfg.StoreDriver, StoreDriverPostgres)
		cfg.StoreDriver = StoreDriverPostgres
	}
	if cfg.StoreDriver == StoreDriverPostgres && cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}
	cfg.MigrationsPath = viper.GetString("MIGRATIONS_PATH")

	cfg.JWTSecret = viper.GetString("JWT_SECRET")
	if cfg.IsProduction && cfg.JWTSecret == "a-very-secret-key-should-be-longer-and-random" {
		log.Println("Warning: JWT_SECRET environment variable not set. Using default insecure key.")
	}
	cfg.JWTIssuer = viper.GetString("JWT_ISSUER")

	cfg.StripeSecretKey = viper.GetString("STRIPE_SECRET_KEY")
	if cfg.StripeSecretKey == "" {
		log.Println("Warning: STRIPE_SECRET_KEY not set. Payments use the sandbox gateway.")
	}
	cfg.GatewayTimeout = parseDuration("GATEWAY_TIMEOUT", 10*time.Second)

	cfg.ReconcileWorkers = viper.GetInt("RECONCILE_WORKERS")
	if cfg.ReconcileWorkers < 1 {
		cfg.ReconcileWorkers = 1
	}
	cfg.ReconcileQueueSize = viper.GetInt("RECONCILE_QUEUE_SIZE")
	if cfg.ReconcileQueueSize < 1 {
		cfg.ReconcileQueueSize = 1
	}
	cfg.ReconcileMaxRetries = viper.GetInt("RECONCILE_MAX_RETRIES")
	if cfg.ReconcileMaxRetries < 0 {
		cfg.ReconcileMaxRetries = 0
	}

	cfg.RecurringInterval = parseDuration("RECURRING_INTERVAL", time.Hour)
	cfg.ReportBucket = viper.GetString("REPORT_BUCKET")
	cfg.RateLimit = viper.GetString("RATE_LIMIT")
	cfg.CORSAllowedOrigins = splitList(viper.GetString("CORS_ALLOWED_ORIGINS"))
	cfg.PosthogAPIKey = viper.GetString("POSTHOG_API_KEY")

	return cfg, nil
}

// parseDuration reads key as a Go duration string (e.g. "60m", "1h"), falling back to def.
func parseDuration(key string, def time.Duration) time.Duration {
	raw := viper.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		if raw != "" {
			log.Printf("Warning: Invalid value for %s ('%s'). Defaulting to %s.\n", key, raw, def.String())
		}
		return def
	}
	return d
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
