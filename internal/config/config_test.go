package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = []string{
	"HTTP_ADDR", "GRPC_ADDR", "MYSQL_DSN", "REDIS_ADDR", "CART_TTL", "CART_CACHE_IDLE",
	"CHECKOUT_WORKERS", "CHECKOUT_QUEUE_SIZE", "MIGRATIONS_PATH",
	"CATALOG_SEED", "LOG_LEVEL", "SHUTDOWN_TIMEOUT", "GRPC_REFLECTION",
}

// unsetAll clears every key for the duration of the test.
func unsetAll(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoad_Defaults(t *testing.T) {
	unsetAll(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, ":50051", cfg.GRPCAddr)
	assert.Contains(t, cfg.MySQLDSN, "parseTime=true")
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 30*24*time.Hour, cfg.CartTTL)
	assert.Equal(t, time.Hour, cfg.CartCacheIdle)
	assert.Equal(t, 10, cfg.CheckoutWorkers)
	assert.Equal(t, 1000, cfg.CheckoutQueueSize)
	assert.Equal(t, "migrations", cfg.MigrationsPath)
	assert.True(t, cfg.GRPCReflection)
	assert.False(t, cfg.Development())
}

func TestLoad_Environment(t *testing.T) {
	unsetAll(t)
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("CART_TTL", "48h")
	t.Setenv("CART_CACHE_IDLE", "20m")
	t.Setenv("CHECKOUT_WORKERS", "4")
	t.Setenv("GRPC_REFLECTION", "false")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, 48*time.Hour, cfg.CartTTL)
	assert.Equal(t, 20*time.Minute, cfg.CartCacheIdle)
	assert.Equal(t, 4, cfg.CheckoutWorkers)
	assert.False(t, cfg.GRPCReflection)
	assert.True(t, cfg.Development())
}

func TestLoad_DotEnvFile(t *testing.T) {
	unsetAll(t)
	t.Setenv("GRPC_ADDR", ":6000")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("REDIS_ADDR=cache:6380\nGRPC_ADDR=:7000\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "cache:6380", cfg.RedisAddr)
	assert.Equal(t, ":6000", cfg.GRPCAddr, "environment wins over the file")
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"CART_TTL", "a month"},
		{"CART_CACHE_IDLE", "soon"},
		{"CART_CACHE_IDLE", "10s"},
		{"CART_CACHE_IDLE", "1000h"},
		{"CHECKOUT_WORKERS", "many"},
		{"CHECKOUT_WORKERS", "0"},
		{"CHECKOUT_QUEUE_SIZE", "-1"},
		{"GRPC_REFLECTION", "maybe"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			unsetAll(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}
