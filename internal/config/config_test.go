package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://maps.googleapis.com/maps/api/place", cfg.Google.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Google.Timeout())
	assert.InDelta(t, 10.0, cfg.Google.RateLimit, 0.001)
	assert.Equal(t, 3, cfg.Google.MaxPages)
	assert.Equal(t, 2*time.Second, cfg.Google.PageTokenDelay())
	assert.Equal(t, 400, cfg.Google.PhotoMaxWidth)
	assert.Equal(t, 3, cfg.Google.MaxRetries)
	assert.Equal(t, 5, cfg.Google.BreakerThreshold)
	assert.Equal(t, 30, cfg.Google.BreakerCooldownSecs)
	assert.Equal(t, 300*time.Second, cfg.Search.CacheTTL())
	assert.Equal(t, 4, cfg.Search.DetailsConcurrency)
	assert.Equal(t, 3, cfg.Highlights.Count)
	assert.Equal(t, 200, cfg.Highlights.MaxChars)
	assert.Equal(t, "none", cfg.Store.Driver)
	assert.False(t, cfg.Store.Enabled())
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
google:
  api_key: from-file
  max_pages: 1
store:
  driver: sqlite
  database_url: history.db
log:
  level: debug
  format: console
server:
  port: 9090
  cors_origins:
    - https://app.example.com
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.Google.APIKey)
	assert.Equal(t, 1, cfg.Google.MaxPages)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.True(t, cfg.Store.Enabled())
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.Server.CORSOrigins)
	// Defaults still apply for unset values
	assert.Equal(t, 300, cfg.Search.CacheTTLSecs)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("REVIEWCMP_STORE_DRIVER", "postgres")
	t.Setenv("REVIEWCMP_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("REVIEWCMP_SERVER_PORT", "3000")
	t.Setenv("REVIEWCMP_GOOGLE_API_KEY", "env-key")
	t.Setenv("REVIEWCMP_SEARCH_CACHE_TTL_SECS", "60")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "env-key", cfg.Google.APIKey)
	assert.Equal(t, time.Minute, cfg.Search.CacheTTL())
}

func TestLoadInvalidFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("google: [unterminated"), 0644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Google.APIKey = "key"
	cfg.Google.MaxPages = 3
	cfg.Google.RateLimit = 10
	cfg.Search.CacheTTLSecs = 300
	cfg.Search.DetailsConcurrency = 4
	cfg.Highlights.Count = 3
	cfg.Highlights.MaxChars = 200
	cfg.Store.Driver = "none"
	cfg.Server.Port = 8080
	return cfg
}

func TestValidateSearch_AllPresent(t *testing.T) {
	assert.NoError(t, validDefaults().Validate("search"))
}

func TestValidateSearch_MissingKey(t *testing.T) {
	cfg := validDefaults()
	cfg.Google.APIKey = ""
	cfg.Google.MaxPages = 0
	cfg.Google.BreakerThreshold = -1

	err := cfg.Validate("search")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "google.api_key is required")
	assert.Contains(t, err.Error(), "google.max_pages must be >= 1")
	assert.Contains(t, err.Error(), "google.breaker_threshold must be >= 0")
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")

	cfg.Server.Port = 9090
	assert.NoError(t, cfg.Validate("serve"))
}

func TestValidateStore(t *testing.T) {
	cfg := validDefaults()

	err := cfg.Validate("store")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver must be sqlite or postgres")

	cfg.Store.Driver = "sqlite"
	err = cfg.Validate("store")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")

	cfg.Store.DatabaseURL = "history.db"
	assert.NoError(t, cfg.Validate("store"))
}

func TestValidateUnsupportedDriver(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "mysql"

	err := cfg.Validate("search")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `store.driver "mysql" is not supported`)
}

func TestValidateUnknownMode(t *testing.T) {
	err := validDefaults().Validate("unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestValidateBounds(t *testing.T) {
	cfg := validDefaults()

	cfg.Search.DetailsConcurrency = 0
	err := cfg.Validate("search")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "details_concurrency must be between 1 and 32")

	cfg.Search.DetailsConcurrency = 4
	cfg.Highlights.MaxChars = 0
	err = cfg.Validate("search")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "highlights.max_chars")

	cfg.Highlights.MaxChars = 200
	cfg.Search.CacheTTLSecs = -1
	err = cfg.Validate("search")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache_ttl_secs")
}
