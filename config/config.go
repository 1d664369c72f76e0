package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"streambet/database"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL  string
	DatabaseName string

	// Redis configuration (rate limiter counters)
	RedisURL          string
	RateLimitFailOpen bool // allow requests when the counter store is unreachable

	// NATS configuration
	NATSServers string // NATS server addresses (comma-separated)
	NATSEnabled bool

	// Telegram / session configuration
	BotToken             string
	JWTSecret            string
	JWTExpire            time.Duration
	TelegramAdminIDs     []int64 // Telegram IDs that become admins on first login
	TelegramAuthMaxAge   time.Duration
	StartingBalance      int64 // wallet seed for users created on login
	AdminStartingBalance int64 // wallet seed for admins created by seed-admins

	// HTTP configuration
	HTTPAddr    string
	MetricsAddr string
	CORSOrigins []string

	// Logging
	LogLevel string

	// Environment
	Environment string // "development", "production" or "test"
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
			if os.Getenv("ENVIRONMENT") == "test" {
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

// IsAdminTelegramID reports whether the Telegram ID is configured as an admin
func (c *Config) IsAdminTelegramID(telegramID int64) bool {
	for _, id := range c.TelegramAdminIDs {
		if id == telegramID {
			return true
		}
	}
	return false
}

// IsProduction reports whether the service runs in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// load loads configuration from environment variables
func load() (*Config, error) {
	// A missing .env file is fine, the environment may already be populated
	_ = godotenv.Load()

	config := &Config{
		// Database
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DatabaseName: os.Getenv("DATABASE_NAME"),

		// Redis
		RedisURL:          getEnvWithDefault("REDIS_URL", "redis://localhost:6379/0"),
		RateLimitFailOpen: getEnvWithDefault("RATE_LIMIT_FAIL_OPEN", "true") == "true",

		// NATS
		NATSServers: getEnvWithDefault("NATS_SERVERS", "nats://nats:4222"),
		NATSEnabled: os.Getenv("NATS_ENABLED") == "true",

		// Telegram / session
		BotToken:             os.Getenv("BOT_TOKEN"),
		JWTSecret:            os.Getenv("JWT_SECRET"),
		JWTExpire:            120 * time.Minute,
		TelegramAuthMaxAge:   24 * time.Hour,
		StartingBalance:      1000,
		AdminStartingBalance: 10000,

		// HTTP
		HTTPAddr:    getEnvWithDefault("HTTP_ADDR", ":8080"),
		MetricsAddr: getEnvWithDefault("METRICS_ADDR", ":9090"),

		LogLevel: getEnvWithDefault("LOG_LEVEL", "info"),

		// Environment
		Environment: os.Getenv("ENVIRONMENT"),
	}

	// Override defaults if environment variables are set
	if minutes := os.Getenv("JWT_EXPIRE_MINUTES"); minutes != "" {
		if parsed, err := strconv.Atoi(minutes); err == nil && parsed > 0 {
			config.JWTExpire = time.Duration(parsed) * time.Minute
		}
	}
	if hours := os.Getenv("TELEGRAM_AUTH_MAX_AGE_HOURS"); hours != "" {
		if parsed, err := strconv.Atoi(hours); err == nil && parsed > 0 {
			config.TelegramAuthMaxAge = time.Duration(parsed) * time.Hour
		}
	}
	if balance := os.Getenv("STARTING_BALANCE"); balance != "" {
		if parsedBalance, err := strconv.ParseInt(balance, 10, 64); err == nil {
			config.StartingBalance = parsedBalance
		}
	}
	if balance := os.Getenv("ADMIN_STARTING_BALANCE"); balance != "" {
		if parsedBalance, err := strconv.ParseInt(balance, 10, 64); err == nil {
			config.AdminStartingBalance = parsedBalance
		}
	}

	config.TelegramAdminIDs = parseIDList(os.Getenv("TELEGRAM_ADMIN_IDS"))

	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		for _, origin := range strings.Split(origins, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				config.CORSOrigins = append(config.CORSOrigins, origin)
			}
		}
	} else {
		config.CORSOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		// Validate required configuration
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		if config.BotToken == "" {
			return nil, fmt.Errorf("BOT_TOKEN is required")
		}
		if config.JWTSecret == "" {
			return nil, fmt.Errorf("JWT_SECRET is required")
		}
		// If DatabaseName is provided, ensure it's not empty
		if config.DatabaseName != "" && strings.TrimSpace(config.DatabaseName) == "" {
			return nil, fmt.Errorf("DATABASE_NAME cannot be empty when provided")
		}
	}

	return config, nil
}

// parseIDList parses a comma-separated list of Telegram IDs, skipping malformed entries
func parseIDList(raw string) []int64 {
	var ids []int64
	for _, idStr := range strings.Split(raw, ",") {
		idStr = strings.TrimSpace(idStr)
		if idStr == "" {
			continue
		}
		if id, err := strconv.ParseInt(idStr, 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// getEnvWithDefault returns the environment variable value or a default if not set
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
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
		Environment:          "test",
		BotToken:             "test-bot-token",
		JWTSecret:            "test-jwt-secret",
		JWTExpire:            120 * time.Minute,
		TelegramAdminIDs:     []int64{999999},
		TelegramAuthMaxAge:   24 * time.Hour,
		StartingBalance:      1000,
		AdminStartingBalance: 10000,
		RateLimitFailOpen:    true,
		LogLevel:             "debug",
	}
}
