package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.App.Storage)
	assert.Equal(t, 3, cfg.Inventory.ConflictRetries)
	assert.Equal(t, 20*time.Millisecond, cfg.Inventory.RetryBaseDelay)
	assert.Equal(t, int32(10), cfg.DB.MaxConns)
	assert.False(t, cfg.Redis.Enabled())
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("APP_STORAGE", "MEMORY")
	t.Setenv("INVENTORY_CONFLICT_RETRIES", "5")
	t.Setenv("INVENTORY_RETRY_BASE_DELAY", "50ms")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("DB_MAX_CONNS", "no-numero")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.App.Storage)
	assert.Equal(t, 5, cfg.Inventory.ConflictRetries)
	assert.Equal(t, 50*time.Millisecond, cfg.Inventory.RetryBaseDelay)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, int32(10), cfg.DB.MaxConns, "valor ilegible usa el default")
}

func TestLoad_StorageInvalido(t *testing.T) {
	t.Setenv("APP_STORAGE", "sqlite")
	_, err := Load()
	assert.ErrorContains(t, err, "APP_STORAGE")
}

func TestDBConfig_ConnectionString(t *testing.T) {
	c := DBConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss:word", DBName: "commerce", SSLMode: "disable"}
	assert.Equal(t, "postgres://app:p%40ss%3Aword@db:5432/commerce?sslmode=disable", c.ConnectionString())

	c.DatabaseURL = "postgres://otro"
	assert.Equal(t, "postgres://otro", c.ConnectionString())
}
