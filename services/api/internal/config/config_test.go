package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// isolate runs the test from an empty directory with the config variables
// cleared.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	for _, key := range []string{
		"PORT", "DATABASE_URL", "CORS_ORIGINS", "ADMIN_IDS", "PRICE",
		"NOTIFY_WEBHOOK_URL", "NOTIFY_TIMEOUT", "LOG_LEVEL", EnvConfigFile,
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	return dir
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("", discard)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	kind, dsn, err := cfg.Backend()
	require.NoError(t, err)
	assert.Equal(t, BackendPostgres, kind)
	assert.Equal(t, DefaultDatabaseURL, dsn)
}

func TestLoadPrecedence(t *testing.T) {
	dir := isolate(t)

	yamlPath := filepath.Join(dir, "keyshop.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(strings.Join([]string{
		"port: \"9000\"",
		"price: 700",
		"admin_ids: [1, 2]",
		"notify_timeout: 2s",
		"database_url: sqlite:///var/lib/keyshop/shop.db",
	}, "\n")), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(strings.Join([]string{
		"# local overrides",
		"export PRICE=900",
		"LOG_LEVEL='debug'",
	}, "\n")), 0o600))
	t.Setenv("ADMIN_IDS", "5, 6")

	cfg, err := Load(yamlPath, discard)
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, int64(900), cfg.Price)
	assert.Equal(t, []int64{5, 6}, cfg.AdminIDs)
	assert.Equal(t, 2*time.Second, cfg.NotifyTimeout)
	assert.Equal(t, "debug", cfg.LogLevel)

	kind, dsn, err := cfg.Backend()
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, kind)
	assert.Equal(t, "/var/lib/keyshop/shop.db", dsn)
}

func TestLoadConfigFromEnvVariable(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "c.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: \"7000\"\n"), 0o600))
	t.Setenv(EnvConfigFile, path)

	cfg, err := Load("", discard)
	require.NoError(t, err)
	assert.Equal(t, "7000", cfg.Port)
}

func TestLoadRejectsBadInput(t *testing.T) {
	cases := map[string]map[string]string{
		"price":     {"PRICE": "0"},
		"price nan": {"PRICE": "free"},
		"admin ids": {"ADMIN_IDS": "1,abc"},
		"database":  {"DATABASE_URL": "mysql://localhost/shop"},
		"log level": {"LOG_LEVEL": "loud"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			isolate(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load("", discard)
			assert.Error(t, err)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		isolate(t)
		_, err := Load("does-not-exist.yaml", discard)
		assert.Error(t, err)
	})
}

func TestBackend(t *testing.T) {
	cases := []struct {
		url  string
		kind string
		dsn  string
	}{
		{"postgresql://u@h/db", BackendPostgres, "postgresql://u@h/db"},
		{"sqlite://shop.db", BackendSQLite, "shop.db"},
		{"file:data/shop.db", BackendSQLite, "data/shop.db"},
	}
	for _, tc := range cases {
		kind, dsn, err := Config{DatabaseURL: tc.url}.Backend()
		require.NoError(t, err, tc.url)
		assert.Equal(t, tc.kind, kind)
		assert.Equal(t, tc.dsn, dsn)
	}
}

func TestParseEnvFileKeepsExistingValues(t *testing.T) {
	isolate(t)
	t.Setenv("PORT", "1234")

	err := parseEnvFile(discard, strings.NewReader("\ufeffPORT=9999\nNOTIFY_WEBHOOK_URL=\"http://bot/hook\"\nbroken line\n"))
	require.NoError(t, err)
	assert.Equal(t, "1234", os.Getenv("PORT"))
	assert.Equal(t, "http://bot/hook", os.Getenv("NOTIFY_WEBHOOK_URL"))
}
