package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration
type Config struct {
	// Upstream feed
	FeedAPIToken       string        `envconfig:"FEED_API_TOKEN" required:"true"`
	FeedBaseURL        string        `envconfig:"FEED_BASE_URL" default:"https://api.football-data.org/v4"`
	FeedConnectTimeout time.Duration `envconfig:"FEED_CONNECT_TIMEOUT" default:"5s"`
	FeedRequestTimeout time.Duration `envconfig:"FEED_REQUEST_TIMEOUT" default:"30s"`
	FeedMaxRetries     int           `envconfig:"FEED_MAX_RETRIES" default:"3"`
	FeedRetryBackoff   time.Duration `envconfig:"FEED_RETRY_BACKOFF" default:"1s"`

	// Ingestion scheduler
	IngestStartDate  string        `envconfig:"INGEST_START_DATE" default:"2023-08-01"`
	BatchWindowDays  int           `envconfig:"BATCH_WINDOW_DAYS" default:"7"`
	CompetitionDelay time.Duration `envconfig:"COMPETITION_DELAY" default:"1s"`
	FetchWaitTimeout time.Duration `envconfig:"FETCH_WAIT_TIMEOUT" default:"45s"`
	NightlyCatchUp   bool          `envconfig:"NIGHTLY_CATCHUP" default:"true"`
	CatchUpCron      string        `envconfig:"CATCHUP_CRON" default:"0 3 * * *"`
	CatchUpLookback  int           `envconfig:"CATCHUP_LOOKBACK_DAYS" default:"7"`

	// Database
	DatabaseHost     string `envconfig:"DATABASE_HOST" default:"localhost"`
	DatabasePort     int    `envconfig:"DATABASE_PORT" default:"5432"`
	DatabaseName     string `envconfig:"DATABASE_NAME" default:"matchrank"`
	DatabaseUser     string `envconfig:"DATABASE_USER" default:"matchrank"`
	DatabasePassword string `envconfig:"DATABASE_PASSWORD" required:"true"`
	DatabaseSSLMode  string `envconfig:"DATABASE_SSL_MODE" default:"disable"`

	// Redis (ranking snapshot cache)
	RedisHost     string        `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int           `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	RankingsTTL   time.Duration `envconfig:"RANKINGS_CACHE_TTL" default:"10m"`

	// Application
	AppEnv   string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Monitoring
	EnableMetrics bool `envconfig:"ENABLE_METRICS" default:"true"`
	MetricsPort   int  `envconfig:"METRICS_PORT" default:"9090"`
}

// Load loads configuration from environment variables
// It first attempts to load from .env file if present
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.FeedAPIToken == "" {
		return fmt.Errorf("FEED_API_TOKEN is required")
	}

	if c.DatabasePassword == "" {
		return fmt.Errorf("DATABASE_PASSWORD is required")
	}

	if _, err := time.Parse("2006-01-02", c.IngestStartDate); err != nil {
		return fmt.Errorf("INGEST_START_DATE must be YYYY-MM-DD: %w", err)
	}

	if c.BatchWindowDays < 1 {
		return fmt.Errorf("BATCH_WINDOW_DAYS must be at least 1")
	}

	return nil
}

// StartDate returns the parsed ingestion start date. Validate has already
// checked the format.
func (c *Config) StartDate() time.Time {
	t, _ := time.Parse("2006-01-02", c.IngestStartDate)
	return t
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DatabaseUser,
		c.DatabasePassword,
		c.DatabaseHost,
		c.DatabasePort,
		c.DatabaseName,
		c.DatabaseSSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// MustLoad loads configuration or exits on error
// Use this in main() where we want to fail fast
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}
