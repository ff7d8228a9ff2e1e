package config

import (
	"fmt"
	"os"
	"strconv"

	apperrors "github.com/zatekoja/recommendation-metrics/pkg/errors"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig
	Evaluation EvaluationConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	OTEL       OTELConfig
}

// AppConfig holds process-wide settings
type AppConfig struct {
	Env string
}

// EvaluationConfig holds the metric cutoff and batch scoring settings
type EvaluationConfig struct {
	K            int
	StrictBatch  bool
	Workers      int
	MinRelevance int64
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Database          string
	SSLMode           string
	InteractionsTable string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host      string
	Port      int
	Password  string
	DB        int
	KeyPrefix string
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Env: getEnv("APP_ENV", "development"),
		},
		Evaluation: EvaluationConfig{
			K:            getEnvAsInt("EVAL_K", 5),
			StrictBatch:  getEnvAsBool("EVAL_STRICT_BATCH", true),
			Workers:      getEnvAsInt("EVAL_WORKERS", 1),
			MinRelevance: int64(getEnvAsInt("EVAL_MIN_RELEVANCE", 1)),
		},
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Database:          getEnv("DB_NAME", "recommendations"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			InteractionsTable: getEnv("EVAL_INTERACTIONS_TABLE", "interactions"),
		},
		Redis: RedisConfig{
			Host:      getEnv("REDIS_HOST", "localhost"),
			Port:      getEnvAsInt("REDIS_PORT", 6379),
			Password:  getEnv("REDIS_PASSWORD", ""),
			DB:        getEnvAsInt("REDIS_DB", 0),
			KeyPrefix: getEnv("EVAL_REDIS_KEY_PREFIX", "recs:"),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "recommendation-metrics"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that the metrics cannot work with
func (c *Config) Validate() error {
	if c.Evaluation.K <= 0 {
		return apperrors.NewValidationError(fmt.Sprintf("EVAL_K must be positive, got %d", c.Evaluation.K))
	}
	if c.Evaluation.Workers <= 0 {
		return apperrors.NewValidationError(fmt.Sprintf("EVAL_WORKERS must be positive, got %d", c.Evaluation.Workers))
	}
	return nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
