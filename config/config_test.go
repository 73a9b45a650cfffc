package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("LIST_MAX_ROWS", "")
	t.Setenv("DB_MIGRATE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 200, cfg.Lists.MaxRows)
	assert.Equal(t, 30*time.Second, cfg.Lists.StaleWindow())
	assert.Equal(t, 30*time.Second, cfg.Lists.RefetchInterval())
	assert.Equal(t, 500*time.Millisecond, cfg.Lists.SearchDebounce())
	assert.False(t, cfg.Database.Migrate)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("LIST_MAX_ROWS", "50")
	t.Setenv("SEARCH_DEBOUNCE_MS", "250")
	t.Setenv("DB_MIGRATE", "true")
	t.Setenv("HEALTH_CHECK_INTERVAL_MIN", "5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.Lists.MaxRows)
	assert.Equal(t, 250*time.Millisecond, cfg.Lists.SearchDebounce())
	assert.True(t, cfg.Database.Migrate)
	assert.Equal(t, 5*time.Minute, cfg.HealthCheck.Interval())
}

func TestLoad_RequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "ops", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5432/ops?sslmode=disable", c.DSN())

	c.URL = "postgres://elsewhere/ops"
	assert.Equal(t, "postgres://elsewhere/ops", c.DSN())
}
