package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "mongodb://localhost:27017", cfg.Database.URI)
	assert.Equal(t, "run_tracker", cfg.Database.Name)
	assert.Equal(t, "24h0m0s", cfg.JWT.Expiration.String())
	assert.Equal(t, "UTC", cfg.Rollover.DefaultTimezone)
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	content := []byte(`
server:
  address: ":9999"
strava:
  client_id: "12345"
  webhook_verify_token: "verify-me"
rollover:
  default_timezone: "Europe/Amsterdam"
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), content, 0o644))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Server.Address)
	assert.Equal(t, "12345", cfg.Strava.ClientID)
	assert.Equal(t, "verify-me", cfg.Strava.WebhookVerifyToken)
	assert.Equal(t, "Europe/Amsterdam", cfg.Rollover.DefaultTimezone)
	// Untouched sections keep their defaults.
	assert.Equal(t, "run_tracker", cfg.Database.Name)
}
