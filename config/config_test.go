package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PLATEFEED_JWT_SECRET", "test-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 6, cfg.PageSize)
	assert.Contains(t, cfg.DSN(), "dbname=platefeed")
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PLATEFEED_JWT_SECRET", "test-secret")
	t.Setenv("PLATEFEED_SERVER_PORT", "9999")
	t.Setenv("PLATEFEED_DB_DRIVER", "sqlite")
	t.Setenv("PLATEFEED_DB_NAME", "test.db")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9999", cfg.Addr())
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "test.db", cfg.DBName)
}

func TestValidate(t *testing.T) {
	cfg := Config{DBDriver: "postgres", PageSize: 6}
	assert.Error(t, cfg.Validate(), "missing jwt secret")

	cfg.JWTSecret = "s"
	assert.NoError(t, cfg.Validate())

	cfg.DBDriver = "oracle"
	assert.Error(t, cfg.Validate())

	cfg.DBDriver = "sqlite"
	cfg.PageSize = 0
	assert.Error(t, cfg.Validate())
}
