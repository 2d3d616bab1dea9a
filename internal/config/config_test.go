package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fahmaliyi/nspm/vault"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allConfigKeys = []string{
	"NSPM_VAULT_DIR",
	"NSPM_LOG_LEVEL",
	"NSPM_MAX_ATTEMPTS",
	"NSPM_CLIPBOARD_CLEAR",
	"XDG_CONFIG_HOME",
}

// isolateConfigEnv unsets every variable Load reads for the duration of the
// test.
func isolateConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range allConfigKeys {
		if orig, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, orig) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("NSPM_VAULT_DIR", "/tmp/vault")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))

	require.NoError(t, err)
	assert.Equal(t, "/tmp/vault", cfg.VaultDir)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 30*time.Second, cfg.ClipboardClear)
	assert.Equal(t, vault.DefaultKDFParams(), cfg.KDFParams())
}

func TestDefault_VaultDirUnderHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	assert.Equal(t, filepath.Join(home, ".nspm", "vault"), Default().VaultDir)
}

func TestLoad_File(t *testing.T) {
	isolateConfigEnv(t)
	path := writeConfig(t, `
vault_dir: /srv/secrets
log_level: debug
max_attempts: 5
clipboard_clear: 10s
kdf:
  time: 2
  memory_kib: 65536
  threads: 4
`)

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "/srv/secrets", cfg.VaultDir)
	assert.Equal(t, 5, cfg.MaxAttempts)
	assert.Equal(t, 10*time.Second, cfg.ClipboardClear)
	assert.Equal(t, vault.KDFParams{Time: 2, Memory: 65536, Threads: 4}, cfg.KDFParams())

	lvl, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, lvl)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	isolateConfigEnv(t)
	path := writeConfig(t, "vault_dir: /srv/secrets\nmax_attempts: 5\n")
	t.Setenv("NSPM_VAULT_DIR", "/override")
	t.Setenv("NSPM_MAX_ATTEMPTS", "1")
	t.Setenv("NSPM_CLIPBOARD_CLEAR", "1m")
	t.Setenv("NSPM_LOG_LEVEL", "error")

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "/override", cfg.VaultDir)
	assert.Equal(t, 1, cfg.MaxAttempts)
	assert.Equal(t, time.Minute, cfg.ClipboardClear)
	assert.Equal(t, "error", cfg.LogLevel)
}

func TestLoad_XDGDefaultPath(t *testing.T) {
	isolateConfigEnv(t)
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nspm"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nspm", "config.yaml"), []byte("vault_dir: /from/xdg\n"), 0o600))

	assert.Equal(t, filepath.Join(dir, "nspm", "config.yaml"), DefaultPath())
	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, "/from/xdg", cfg.VaultDir)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		env        map[string]string
		noVaultEnv bool
	}{
		{name: "malformed yaml", body: "vault_dir: [unterminated"},
		{name: "zero attempts", body: "max_attempts: 0"},
		{name: "negative clear", body: "clipboard_clear: -5s"},
		{name: "unknown level", body: "log_level: chatty"},
		{name: "kdf out of range", body: "kdf:\n  time: 100\n"},
		{name: "empty vault dir", body: "vault_dir: \"\"", noVaultEnv: true},
		{name: "bad attempts env", env: map[string]string{"NSPM_MAX_ATTEMPTS": "three"}},
		{name: "bad duration env", env: map[string]string{"NSPM_CLIPBOARD_CLEAR": "soon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateConfigEnv(t)
			if !tt.noVaultEnv {
				t.Setenv("NSPM_VAULT_DIR", "/tmp/vault")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}
