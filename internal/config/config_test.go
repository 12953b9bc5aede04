package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("FOLIOSCOPE_DATA_DIR", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "EUR", cfg.BaseCurrency)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.DevMode)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("FOLIOSCOPE_DATA_DIR", t.TempDir())
	t.Setenv("PORT", "9090")
	t.Setenv("BASE_CURRENCY", "usd")
	t.Setenv("DEV_MODE", "true")
	t.Setenv("TIINGO_API_KEY", "tk")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "USD", cfg.BaseCurrency)
	assert.True(t, cfg.DevMode)
	assert.Equal(t, "tk", cfg.TiingoAPIKey)
}

func TestValidateRejectsBadCurrency(t *testing.T) {
	cfg := &Config{BaseCurrency: "EURO"}
	assert.Error(t, cfg.Validate())

	cfg.BaseCurrency = "EUR"
	assert.NoError(t, cfg.Validate())
}
