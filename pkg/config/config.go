package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Upper bounds for fraud tuning values read from the environment
const (
	MaxAnalyzerTimeoutMs = 30000
	MaxCacheEntries      = 1000000
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	NATS       NATSConfig
	Fraud      FraudConfig
	Resilience ResilienceConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port        string // operations listener (health, metrics)
	Environment string
	ServiceName string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// NATSConfig holds event bus configuration
type NATSConfig struct {
	URL        string
	Name       string
	StreamName string
}

// FraudConfig holds tuning for the review fraud engine
type FraudConfig struct {
	UserCacheTTLSeconds  int
	UserCacheSize        int
	ContentCacheTTLHours int
	ContentCacheSize     int
	AnalyzerTimeoutMs    int
	RulesFile            string
	FingerprintBackend   string // "memory" or "redis"
	StatsCacheTTLSeconds int
	RecentIndexSize      int
	SearchBreakerEnabled bool
}

// ResilienceConfig groups runtime resilience controls
type ResilienceConfig struct {
	CircuitBreaker CircuitBreakerConfig
}

// CircuitBreakerConfig captures breaker tuning
type CircuitBreakerConfig struct {
	FailureThreshold int
	SuccessThreshold int
	TimeoutSeconds   int
	IntervalSeconds  int
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
			ServiceName: serviceName,
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "safaribookings"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns: getEnvAsInt("DB_MIN_CONNS", 5),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		NATS: NATSConfig{
			URL:        getEnv("NATS_URL", "nats://127.0.0.1:4222"),
			Name:       getEnv("NATS_CLIENT_NAME", serviceName),
			StreamName: getEnv("NATS_STREAM", "SAFARIBOOKINGS"),
		},
		Fraud: FraudConfig{
			UserCacheTTLSeconds:  getEnvAsInt("FRAUD_USER_CACHE_TTL_SECONDS", 300),
			UserCacheSize:        getEnvAsInt("FRAUD_USER_CACHE_SIZE", 10000),
			ContentCacheTTLHours: getEnvAsInt("FRAUD_CONTENT_CACHE_TTL_HOURS", 24),
			ContentCacheSize:     getEnvAsInt("FRAUD_CONTENT_CACHE_SIZE", 10000),
			AnalyzerTimeoutMs:    getEnvAsInt("FRAUD_ANALYZER_TIMEOUT_MS", 2000),
			RulesFile:            getEnv("FRAUD_RULES_FILE", ""),
			FingerprintBackend:   getEnv("FRAUD_FINGERPRINT_BACKEND", "memory"),
			StatsCacheTTLSeconds: getEnvAsInt("FRAUD_STATS_CACHE_TTL_SECONDS", 60),
			RecentIndexSize:      getEnvAsInt("FRAUD_RECENT_INDEX_SIZE", 500),
			SearchBreakerEnabled: getEnvAsBool("FRAUD_SEARCH_BREAKER_ENABLED", true),
		},
		Resilience: ResilienceConfig{
			CircuitBreaker: CircuitBreakerConfig{
				FailureThreshold: getEnvAsInt("CB_FAILURE_THRESHOLD", 5),
				SuccessThreshold: getEnvAsInt("CB_SUCCESS_THRESHOLD", 1),
				TimeoutSeconds:   getEnvAsInt("CB_TIMEOUT_SECONDS", 30),
				IntervalSeconds:  getEnvAsInt("CB_INTERVAL_SECONDS", 60),
			},
		},
	}

	if err := cfg.Fraud.validate(); err != nil {
		return nil, err
	}

	if cfg.Resilience.CircuitBreaker.FailureThreshold <= 0 {
		cfg.Resilience.CircuitBreaker.FailureThreshold = 5
	}
	if cfg.Resilience.CircuitBreaker.SuccessThreshold <= 0 {
		cfg.Resilience.CircuitBreaker.SuccessThreshold = 1
	}
	if cfg.Resilience.CircuitBreaker.TimeoutSeconds <= 0 {
		cfg.Resilience.CircuitBreaker.TimeoutSeconds = 30
	}
	if cfg.Resilience.CircuitBreaker.IntervalSeconds <= 0 {
		cfg.Resilience.CircuitBreaker.IntervalSeconds = 60
	}

	return cfg, nil
}

func (c *FraudConfig) validate() error {
	if c.AnalyzerTimeoutMs <= 0 {
		return fmt.Errorf("FRAUD_ANALYZER_TIMEOUT_MS must be positive, got %d", c.AnalyzerTimeoutMs)
	}
	if c.AnalyzerTimeoutMs > MaxAnalyzerTimeoutMs {
		return fmt.Errorf("FRAUD_ANALYZER_TIMEOUT_MS exceeds maximum of %d", MaxAnalyzerTimeoutMs)
	}
	if c.UserCacheSize <= 0 || c.UserCacheSize > MaxCacheEntries {
		return fmt.Errorf("FRAUD_USER_CACHE_SIZE must be between 1 and %d", MaxCacheEntries)
	}
	if c.ContentCacheSize <= 0 || c.ContentCacheSize > MaxCacheEntries {
		return fmt.Errorf("FRAUD_CONTENT_CACHE_SIZE must be between 1 and %d", MaxCacheEntries)
	}
	if c.UserCacheTTLSeconds <= 0 {
		c.UserCacheTTLSeconds = 300
	}
	if c.ContentCacheTTLHours <= 0 {
		c.ContentCacheTTLHours = 24
	}
	if c.RecentIndexSize <= 0 {
		c.RecentIndexSize = 500
	}
	switch c.FingerprintBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("invalid FRAUD_FINGERPRINT_BACKEND value: %q", c.FingerprintBackend)
	}
	return nil
}

// UserCacheTTL returns the profile cache lifetime
func (c FraudConfig) UserCacheTTL() time.Duration {
	return time.Duration(c.UserCacheTTLSeconds) * time.Second
}

// ContentCacheTTL returns the fingerprint cache lifetime
func (c FraudConfig) ContentCacheTTL() time.Duration {
	return time.Duration(c.ContentCacheTTLHours) * time.Hour
}

// AnalyzerTimeout returns the per-analyzer deadline
func (c FraudConfig) AnalyzerTimeout() time.Duration {
	return time.Duration(c.AnalyzerTimeoutMs) * time.Millisecond
}

// StatsCacheTTL returns how long statistics reports stay cached
func (c FraudConfig) StatsCacheTTL() time.Duration {
	return time.Duration(c.StatsCacheTTLSeconds) * time.Second
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}
