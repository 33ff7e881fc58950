package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr          string
	GRPCAddr          string
	MySQLDSN          string
	RedisAddr         string
	CartTTL           time.Duration
	CartCacheIdle     time.Duration
	CheckoutWorkers   int
	CheckoutQueueSize int
	MigrationsPath    string
	CatalogSeed       string
	LogLevel          string
	ShutdownTimeout   time.Duration
	GRPCReflection    bool
}

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment win over the file.
func Load(files ...string) (*Config, error) {
	// a missing .env is normal outside local development
	_ = godotenv.Load(files...)

	cfg := &Config{
		HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
		GRPCAddr:       getEnv("GRPC_ADDR", ":50051"),
		MySQLDSN:       getEnv("MYSQL_DSN", "root:root@tcp(localhost:3306)/storefront?parseTime=true"),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),
		CatalogSeed:    getEnv("CATALOG_SEED", ""),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.CartTTL, err = getDuration("CART_TTL", 30*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.CartCacheIdle, err = getDuration("CART_CACHE_IDLE", time.Hour); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = getDuration("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.CheckoutWorkers, err = getInt("CHECKOUT_WORKERS", 10); err != nil {
		return nil, err
	}
	if cfg.CheckoutQueueSize, err = getInt("CHECKOUT_QUEUE_SIZE", 1000); err != nil {
		return nil, err
	}
	if cfg.GRPCReflection, err = getBool("GRPC_REFLECTION", true); err != nil {
		return nil, err
	}

	if cfg.CartCacheIdle < time.Minute || cfg.CartCacheIdle > cfg.CartTTL {
		return nil, fmt.Errorf("CART_CACHE_IDLE must be between 1m and CART_TTL (%s), got %s", cfg.CartTTL, cfg.CartCacheIdle)
	}
	if cfg.CheckoutWorkers < 1 {
		return nil, fmt.Errorf("CHECKOUT_WORKERS must be at least 1, got %d", cfg.CheckoutWorkers)
	}
	if cfg.CheckoutQueueSize < 0 {
		return nil, fmt.Errorf("CHECKOUT_QUEUE_SIZE must not be negative, got %d", cfg.CheckoutQueueSize)
	}
	return cfg, nil
}

// Development reports whether the logger should use the human-readable encoder.
func (c *Config) Development() bool {
	return c.LogLevel == "debug"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
