package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Env         string
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	Lists       ListConfig
	Warehance   WarehanceConfig
	HealthCheck HealthCheckConfig
	AWS         AWSConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	Migrate  bool // run embedded migrations on start (local/dev databases only)
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds the secret used to verify tokens issued by the hosted auth provider.
type JWTConfig struct {
	Secret string
}

// ListConfig controls fetching, staleness and polling of the dashboard lists.
type ListConfig struct {
	MaxRows          int
	StaleSec         int
	RefetchSec       int
	SearchDebounceMs int
}

// WarehanceConfig holds Warehance REST API settings.
type WarehanceConfig struct {
	BaseURL    string
	TimeoutSec int
}

// HealthCheckConfig holds store health-check sweep settings for the worker.
type HealthCheckConfig struct {
	IntervalMin int
}

// AWSConfig holds AWS credentials and the exports bucket.
type AWSConfig struct {
	Region               string
	AccessKeyID          string
	SecretAccessKey      string
	ExportsBucket        string
	PresignExpireMinutes int
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (e.g. DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// StaleWindow is how long a fetched list snapshot stays fresh.
func (c ListConfig) StaleWindow() time.Duration {
	return seconds(c.StaleSec, 30)
}

// RefetchInterval is how often live sessions re-issue their read.
func (c ListConfig) RefetchInterval() time.Duration {
	return seconds(c.RefetchSec, 30)
}

// SearchDebounce is the quiet period before a search update is committed.
func (c ListConfig) SearchDebounce() time.Duration {
	if c.SearchDebounceMs <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(c.SearchDebounceMs) * time.Millisecond
}

// Timeout returns the Warehance HTTP client timeout.
func (c WarehanceConfig) Timeout() time.Duration {
	return seconds(c.TimeoutSec, 15)
}

// Interval returns the period between health-check sweeps.
func (c HealthCheckConfig) Interval() time.Duration {
	if c.IntervalMin <= 0 {
		return time.Hour
	}
	return time.Duration(c.IntervalMin) * time.Minute
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env: getEnv("APP_ENV", "development"),
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 30),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "postgres"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			Migrate:  getEnvBool("DB_MIGRATE", false),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", ""),
		},
		Lists: ListConfig{
			MaxRows:          getEnvInt("LIST_MAX_ROWS", 200),
			StaleSec:         getEnvInt("LIST_STALE_SEC", 30),
			RefetchSec:       getEnvInt("LIST_REFETCH_INTERVAL_SEC", 30),
			SearchDebounceMs: getEnvInt("SEARCH_DEBOUNCE_MS", 500),
		},
		Warehance: WarehanceConfig{
			BaseURL:    getEnv("WAREHANCE_BASE_URL", "https://api.warehance.com/v1"),
			TimeoutSec: getEnvInt("WAREHANCE_TIMEOUT_SEC", 15),
		},
		HealthCheck: HealthCheckConfig{
			IntervalMin: getEnvInt("HEALTH_CHECK_INTERVAL_MIN", 60),
		},
		AWS: AWSConfig{
			Region:               getEnv("AWS_REGION", ""),
			AccessKeyID:          getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:      getEnv("AWS_SECRET_ACCESS_KEY", ""),
			ExportsBucket:        getEnv("AWS_S3_EXPORTS_BUCKET", "merchant-ops-exports"),
			PresignExpireMinutes: getEnvInt("AWS_PRESIGN_EXPIRE_MINUTES", 15),
		},
	}
	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	return cfg, nil
}

func seconds(n, fallback int) time.Duration {
	if n <= 0 {
		n = fallback
	}
	return time.Duration(n) * time.Second
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
