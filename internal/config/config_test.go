package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 9090, cfg.MetricsPort)
	assert.Equal(t, "release", cfg.GinMode)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 64, cfg.BlockingWorkers)
	assert.Empty(t, cfg.NATSUrl)
	assert.Equal(t, 5.0, cfg.TransferRateLimit)
	assert.Equal(t, 10, cfg.TransferRateBurst)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
}

func TestLoad_EnvAndFlags(t *testing.T) {
	t.Setenv("PORT", "3000")
	t.Setenv("KEYPAIR_PATH", "/keys/id.json")
	t.Setenv("BLOCKING_WORKERS", "not-a-number")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")

	cfg, err := Load("", []string{"-port", "4000", "-transfer-rate", "0.5"})
	require.NoError(t, err)

	assert.Equal(t, 4000, cfg.Port, "flag beats env")
	assert.Equal(t, "/keys/id.json", cfg.KeypairPath)
	assert.Equal(t, 64, cfg.BlockingWorkers, "unparsable env falls back to default")
	assert.Equal(t, 0.5, cfg.TransferRateLimit)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}

func TestLoad_DotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("LOG_LEVEL=debug\nGIN_MODE=debug\n"), 0o600))
	t.Setenv("GIN_MODE", "test")
	t.Cleanup(func() { os.Unsetenv("LOG_LEVEL") })

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "test", cfg.GinMode, "process environment wins over .env")
}

func TestLoad_MissingDotEnvIsFine(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.env"), nil)
	assert.NoError(t, err)
}

func TestLoad_BadFlag(t *testing.T) {
	_, err := Load("", []string{"-port", "eighty"})
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{Port: 8080, MetricsPort: 9090, KeypairPath: "id.json", BlockingWorkers: 4}
	}
	require.NoError(t, valid().Validate())

	cases := map[string]func(c *Config){
		"missing_keypair":  func(c *Config) { c.KeypairPath = " " },
		"bad_port":         func(c *Config) { c.Port = 0 },
		"bad_metrics_port": func(c *Config) { c.MetricsPort = 70000 },
		"same_ports":       func(c *Config) { c.MetricsPort = c.Port },
		"no_workers":       func(c *Config) { c.BlockingWorkers = 0 },
		"negative_rate":    func(c *Config) { c.TransferRateLimit = -1 },
		"negative_burst":   func(c *Config) { c.TransferRateBurst = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
