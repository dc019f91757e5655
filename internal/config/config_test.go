package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestFromLookup_Defaults(t *testing.T) {
	cfg, err := FromLookup(lookupMap(nil))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, ":8080", cfg.Addr())
}

func TestFromLookup_Overrides(t *testing.T) {
	cfg, err := FromLookup(lookupMap(map[string]string{
		"PORT":            "9090",
		"READ_TIMEOUT":    "5",
		"WRITE_TIMEOUT":   "1m",
		"IDLE_TIMEOUT":    " 90s ",
		"DATABASE_PATH":   "/var/lib/bizsearch.db",
		"LOG_LEVEL":       "DEBUG",
		"MAX_EXPANSIONS":  "0",
		"PAGE_SIZE":       "25",
		"POPULAR_LIMIT":   "",
		"WORKERS":         "2",
		"SUGGEST_REFRESH": "*/10 * * * *",
	}))
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.ReadTimeout)
	assert.Equal(t, time.Minute, cfg.WriteTimeout)
	assert.Equal(t, 90*time.Second, cfg.IdleTimeout)
	assert.Equal(t, "/var/lib/bizsearch.db", cfg.DatabasePath)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 0, cfg.MaxExpansions)
	assert.Equal(t, 25, cfg.PageSize)
	assert.Equal(t, 10, cfg.PopularLimit)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, "*/10 * * * *", cfg.SuggestRefresh)
	assert.True(t, cfg.RefreshEnabled())
}

func TestFromLookup_RefreshOff(t *testing.T) {
	cfg, err := FromLookup(lookupMap(map[string]string{"SUGGEST_REFRESH": "off"}))
	require.NoError(t, err)
	assert.False(t, cfg.RefreshEnabled())
}

func TestFromLookup_Invalid(t *testing.T) {
	tests := map[string]map[string]string{
		"port not a number": {"PORT": "http"},
		"port out of range": {"PORT": "70000"},
		"bad duration":      {"READ_TIMEOUT": "soon"},
		"zero timeout":      {"IDLE_TIMEOUT": "0"},
		"unknown level":     {"LOG_LEVEL": "verbose"},
		"negative cap":      {"MAX_EXPANSIONS": "-1"},
		"page size too big": {"PAGE_SIZE": "5000"},
		"bad schedule":      {"SUGGEST_REFRESH": "every tuesday"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := FromLookup(lookupMap(env))
			assert.Error(t, err)
		})
	}
}

func TestLoad_DotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("PAGE_SIZE=42\nPOPULAR_LIMIT=3\n"), 0o600))
	t.Setenv("POPULAR_LIMIT", "7")
	t.Setenv("PAGE_SIZE", "")
	os.Unsetenv("PAGE_SIZE")

	cfg, err := Load(path, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, 42, cfg.PageSize)
	assert.Equal(t, 7, cfg.PopularLimit)
}
