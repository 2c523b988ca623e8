package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadConfigLayersEnvOverBase(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
db:
  host: localhost
  port: 5432
  name: fundportal
server:
  port: "8080"
`)
	writeFile(t, dir, "prod.yaml", `
db:
  host: db.internal
`)

	cfg, err := LoadConfig("prod", dir)
	require.NoError(t, err)

	db := cfg["db"].(map[string]interface{})
	assert.Equal(t, "db.internal", db["host"])
	assert.Equal(t, 5432, db["port"])
	assert.Equal(t, "fundportal", db["name"])

	server := cfg["server"].(map[string]interface{})
	assert.Equal(t, "8080", server["port"])
}

func TestLoadConfigSubstitutesSecrets(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
db:
  password: "${DB_PASSWORD}"
wati:
  api_key: "${WATI_API_KEY}"
`)
	writeFile(t, dir, "secrets.env", `
# local secrets
DB_PASSWORD=hunter2
WATI_API_KEY="key-abc"
`)

	cfg, err := LoadConfig("local", dir)
	require.NoError(t, err)

	db := cfg["db"].(map[string]interface{})
	assert.Equal(t, "hunter2", db["password"])

	wati := cfg["wati"].(map[string]interface{})
	assert.Equal(t, "key-abc", wati["api_key"])
}

func TestLoadConfigMissingBaseFails(t *testing.T) {
	_, err := LoadConfig("local", t.TempDir())
	assert.Error(t, err)
}

func TestEscalationConfigDefaults(t *testing.T) {
	var cfg EscalationConfig
	assert.Equal(t, 6*time.Hour, cfg.SweepIntervalDuration())
	assert.Equal(t, 7*24*time.Hour, cfg.WaitThreshold())
}

func TestEscalationConfigParsing(t *testing.T) {
	cfg := EscalationConfig{WaitDays: 3, SweepInterval: "30m"}
	assert.Equal(t, 30*time.Minute, cfg.SweepIntervalDuration())
	assert.Equal(t, 3*24*time.Hour, cfg.WaitThreshold())

	bad := EscalationConfig{SweepInterval: "not-a-duration", WaitDays: -1}
	assert.Equal(t, 6*time.Hour, bad.SweepIntervalDuration())
	assert.Equal(t, 7*24*time.Hour, bad.WaitThreshold())
}

func TestOverrideEscalationFromEnv(t *testing.T) {
	t.Setenv("ESCALATION_WAIT_DAYS", "2")
	t.Setenv("ESCALATION_SWEEP_INTERVAL", "15m")

	cfg := EscalationConfig{WaitDays: 7, SweepInterval: "6h"}
	OverrideEscalationFromEnv(&cfg)

	assert.Equal(t, 2, cfg.WaitDays)
	assert.Equal(t, "15m", cfg.SweepInterval)
}
