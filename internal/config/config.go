package config

import (
	"os"      // For environment variables
	"strconv" // For string to int conversion
	"strings" // For list parsing
	"time"    // For token and cache lifetimes

	"github.com/joho/godotenv"      // For loading .env files
	"github.com/shopspring/decimal" // For the contribution constant
)

// Supported database drivers
const (
	DriverMySQL  = "mysql"  // Production database
	DriverSQLite = "sqlite" // Local development and tests
)

// Config holds the application configuration
type Config struct {
	AppPort    string // Application port
	DBDriver   string // Database driver: mysql or sqlite
	DBUser     string // Database user
	DBPassword string // Database password
	DBHost     string // Database host
	DBPort     string // Database port
	DBName     string // Database name
	DBPath     string // SQLite database file

	JWTSecret  string        // JWT secret key
	AccessTTL  time.Duration // Access token lifetime
	RefreshTTL time.Duration // Refresh token lifetime

	RedisAddr string        // Redis server address
	RedisPass string        // Redis password
	RedisDB   int           // Redis database number
	CacheTTL  time.Duration // Lifetime of cached dashboard snapshots

	AMQPURL      string // RabbitMQ URL, events are disabled when empty
	AMQPExchange string // Exchange ledger events are published to

	MediaRoot             string          // Directory for uploaded profile photos
	ContributionPerMember decimal.Decimal // Amount each member pays per marriage
	NotifyBatchSize       int             // Rows per insert when broadcasting
	TrustedProxies        []string        // Proxies allowed to set client IP headers
	LogLevel              string          // Logrus level name
	IsProd                bool            // Is production environment
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	return &Config{
		AppPort:    getEnv("APP_PORT", "8000"),       // Application port
		DBDriver:   getEnv("DB_DRIVER", DriverMySQL), // Database driver
		DBUser:     os.Getenv("DB_USER"),             // Database user
		DBPassword: os.Getenv("DB_PASSWORD"),         // Database password
		DBHost:     getEnv("DB_HOST", "127.0.0.1"),   // Database host
		DBPort:     getEnv("DB_PORT", "3306"),        // Database port
		DBName:     os.Getenv("DB_NAME"),             // Database name
		DBPath:     getEnv("DB_PATH", "cbms.db"),     // SQLite file

		JWTSecret:  os.Getenv("JWT_SECRET"),                        // JWT secret key
		AccessTTL:  getDuration("JWT_ACCESS_TTL", 24*time.Hour),    // Access token lifetime
		RefreshTTL: getDuration("JWT_REFRESH_TTL", 7*24*time.Hour), // Refresh token lifetime

		RedisAddr: getEnv("REDIS_ADDR", "127.0.0.1:6379"),   // Redis server address
		RedisPass: os.Getenv("REDIS_PASS"),                  // Redis password
		RedisDB:   getInt("REDIS_DB", 0),                    // Redis database number
		CacheTTL:  getDuration("CACHE_TTL", 60*time.Second), // Dashboard cache lifetime

		AMQPURL:      os.Getenv("AMQP_URL"),                  // Events disabled when empty
		AMQPExchange: getEnv("AMQP_EXCHANGE", "cbms.events"), // Topic exchange for ledger events

		MediaRoot:             getEnv("MEDIA_ROOT", "media"),                                   // Upload directory
		ContributionPerMember: getDecimal("CONTRIBUTION_PER_MEMBER", decimal.NewFromInt(5000)), // Per-member contribution
		NotifyBatchSize:       getInt("NOTIFY_BATCH_SIZE", 500),                                // Broadcast batch size
		TrustedProxies:        getList("TRUSTED_PROXIES", []string{"127.0.0.1"}),               // Proxies allowed to set client IP headers
		LogLevel:              getEnv("LOG_LEVEL", "info"),                                     // Log level
		IsProd:                os.Getenv("IS_PROD") == "true",                                  // Is production environment
	}
}

// DSN builds the MySQL Data Source Name
func (c *Config) DSN() string {
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?parseTime=true&charset=utf8mb4"
}

// getEnv returns the variable or a fallback when it is unset or empty
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getInt parses an integer variable, falling back on absence or parse errors
func getInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

// getDuration parses a Go duration such as "15m" or "24h"
func getDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return fallback
}

// getDecimal parses a decimal amount such as "5000" or "2500.50"
func getDecimal(key string, fallback decimal.Decimal) decimal.Decimal {
	if v, err := decimal.NewFromString(os.Getenv(key)); err == nil && !v.IsNegative() {
		return v
	}
	return fallback
}

// getList splits a comma separated variable, dropping empty items
func getList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
