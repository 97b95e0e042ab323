package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"valwatch/database"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration
type Config struct {
	// Discord configuration
	DiscordToken string `envconfig:"DISCORD_TOKEN"`

	// Database configuration
	DatabaseURL  string `envconfig:"DATABASE_URL"`
	DatabaseName string `envconfig:"DATABASE_NAME"`

	// Match source configuration
	MatchSourceBaseURL   string        `envconfig:"MATCH_SOURCE_BASE_URL" default:"https://api.henrikdev.xyz"`
	MatchSourceAPIKey    string        `envconfig:"MATCH_SOURCE_API_KEY"`
	MatchSourceRateLimit time.Duration `envconfig:"MATCH_SOURCE_RATE_LIMIT" default:"2s"` // Minimum spacing between upstream requests

	// Watch cycle configuration
	TickInterval    time.Duration `envconfig:"TICK_INTERVAL" default:"30s"`
	AccountDelay    time.Duration `envconfig:"ACCOUNT_DELAY" default:"500ms"`
	FetchTimeout    time.Duration `envconfig:"FETCH_TIMEOUT" default:"10s"`
	DefaultCooldown time.Duration `envconfig:"DEFAULT_COOLDOWN" default:"5m"`
	StreakThreshold int           `envconfig:"STREAK_THRESHOLD" default:"3"`

	// Guild settings are read on every account turn, so they are cached for this long
	GuildSettingsCacheTTL time.Duration `envconfig:"GUILD_SETTINGS_CACHE_TTL" default:"1m"`

	// NATS configuration
	NATSEnabled bool   `envconfig:"NATS_ENABLED" default:"false"`
	NATSServers string `envconfig:"NATS_SERVERS" default:"nats://nats:4222"` // NATS server addresses (comma-separated)

	// Admin HTTP surface (health, prometheus metrics, summaries)
	AdminAddr string `envconfig:"ADMIN_ADDR" default:":8080"`

	// OpenTelemetry configuration
	OTelEnabled              bool   `envconfig:"OTEL_ENABLED" default:"false"`
	OTelServiceName          string `envconfig:"OTEL_SERVICE_NAME" default:"valwatch"`
	OTelExporterType         string `envconfig:"OTEL_EXPORTER_TYPE" default:"console"` // console, otlp or none
	OTelOTLPEndpoint         string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT" default:"otel-collector:4317"`
	OTelExportIntervalMillis int    `envconfig:"OTEL_EXPORT_INTERVAL_MILLIS" default:"60000"`

	// Logging
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Environment
	Environment string `envconfig:"ENVIRONMENT" default:"development"` // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	// If instance is already set (e.g., by tests), return it
	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			// In test environment, use a default test config instead of panicking
			if os.Getenv("GO_TEST") == "1" || os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// IsProduction reports whether the service runs in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// load loads configuration from the environment, reading a local .env file first when present
func load() (*Config, error) {
	// Missing .env is fine; real deployments set the environment directly
	_ = godotenv.Load()

	config := &Config{}
	if err := envconfig.Process("", config); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// validate checks required configuration outside of tests
func (c *Config) validate() error {
	if c.Environment == "test" {
		return nil
	}

	if c.DiscordToken == "" && !c.NATSEnabled {
		return fmt.Errorf("DISCORD_TOKEN is required unless NATS_ENABLED is set")
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	// If DatabaseName is provided, ensure it's not empty
	if c.DatabaseName != "" && strings.TrimSpace(c.DatabaseName) == "" {
		return fmt.Errorf("DATABASE_NAME cannot be empty when provided")
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("TICK_INTERVAL must be positive")
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT must be positive")
	}
	if c.StreakThreshold < 1 {
		return fmt.Errorf("STREAK_THRESHOLD must be at least 1")
	}

	return nil
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
// This should only be called from test files
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
// This should only be called from test files
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment:           "test",
		MatchSourceBaseURL:    "http://localhost",
		TickInterval:          30 * time.Second,
		AccountDelay:          0,
		FetchTimeout:          time.Second,
		DefaultCooldown:       5 * time.Minute,
		StreakThreshold:       3,
		GuildSettingsCacheTTL: time.Minute,
		OTelServiceName:       "valwatch",
		OTelExporterType:      "none",
		LogLevel:              "debug",
	}
}
