package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// allConfigKeys lists every TEAMPANEL_ env var that Load() reads.
var allConfigKeys = []string{
	"TEAMPANEL_CONFIG_FILE",
	"TEAMPANEL_LISTEN_ADDR",
	"TEAMPANEL_STORE_BACKEND",
	"TEAMPANEL_DATA_PATH",
	"TEAMPANEL_METRICS_ADDR",
	"TEAMPANEL_PASSWORD_HASHING",
	"TEAMPANEL_BCRYPT_COST",
	"TEAMPANEL_BOOTSTRAP_ADMIN",
}

// isolateConfigEnv saves and unsets all TEAMPANEL_ env vars so tests don't
// inherit values from the host environment (e.g. a running dev server).
// t.Cleanup restores original values after the test.
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

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "teampanel.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	isolateConfigEnv(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8443", cfg.ListenAddr)
	assert.Equal(t, BackendFile, cfg.StoreBackend)
	assert.Equal(t, "users.json", cfg.DataPath)
	assert.Equal(t, "", cfg.MetricsAddr)
	assert.False(t, cfg.HasMetrics())
	assert.Equal(t, HashingBcrypt, cfg.PasswordHashing)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.True(t, cfg.BootstrapAdmin)
}

func TestLoad_Success(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("TEAMPANEL_LISTEN_ADDR", "0.0.0.0:9443")
	t.Setenv("TEAMPANEL_STORE_BACKEND", "SQLite")
	t.Setenv("TEAMPANEL_DATA_PATH", "/tmp/teampanel.db")
	t.Setenv("TEAMPANEL_METRICS_ADDR", "127.0.0.1:9100")
	t.Setenv("TEAMPANEL_PASSWORD_HASHING", "plaintext")
	t.Setenv("TEAMPANEL_BCRYPT_COST", "12")
	t.Setenv("TEAMPANEL_BOOTSTRAP_ADMIN", "false")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9443", cfg.ListenAddr)
	assert.Equal(t, BackendSQLite, cfg.StoreBackend)
	assert.Equal(t, "/tmp/teampanel.db", cfg.DataPath)
	assert.True(t, cfg.HasMetrics())
	assert.Equal(t, HashingPlaintext, cfg.PasswordHashing)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.False(t, cfg.BootstrapAdmin)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{"unknown backend", "TEAMPANEL_STORE_BACKEND", "postgres", "TEAMPANEL_STORE_BACKEND"},
		{"unknown hashing", "TEAMPANEL_PASSWORD_HASHING", "md5", "TEAMPANEL_PASSWORD_HASHING"},
		{"cost not a number", "TEAMPANEL_BCRYPT_COST", "high", "TEAMPANEL_BCRYPT_COST"},
		{"cost too low", "TEAMPANEL_BCRYPT_COST", "3", "TEAMPANEL_BCRYPT_COST"},
		{"cost too high", "TEAMPANEL_BCRYPT_COST", "32", "TEAMPANEL_BCRYPT_COST"},
		{"bootstrap not a bool", "TEAMPANEL_BOOTSTRAP_ADMIN", "maybe", "TEAMPANEL_BOOTSTRAP_ADMIN"},
		{"empty listen addr", "TEAMPANEL_LISTEN_ADDR", "", "TEAMPANEL_LISTEN_ADDR"},
		{"empty data path", "TEAMPANEL_DATA_PATH", "", "TEAMPANEL_DATA_PATH"},
		{"metrics on listen addr", "TEAMPANEL_METRICS_ADDR", "127.0.0.1:8443", "TEAMPANEL_METRICS_ADDR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateConfigEnv(t)
			t.Setenv(tt.key, tt.value)

			cfg, err := Load()

			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_ReportsAllInvalidValues(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("TEAMPANEL_STORE_BACKEND", "postgres")
	t.Setenv("TEAMPANEL_PASSWORD_HASHING", "md5")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "TEAMPANEL_STORE_BACKEND")
	assert.Contains(t, err.Error(), "TEAMPANEL_PASSWORD_HASHING")
}

func TestLoad_ConfigFile(t *testing.T) {
	isolateConfigEnv(t)
	path := writeConfigFile(t, `
listen_addr = "0.0.0.0:8000"
store_backend = "bolt"
data_path = "/var/lib/teampanel/users.db"
bcrypt_cost = 11
bootstrap_admin = false
`)
	t.Setenv("TEAMPANEL_CONFIG_FILE", path)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8000", cfg.ListenAddr)
	assert.Equal(t, BackendBolt, cfg.StoreBackend)
	assert.Equal(t, "/var/lib/teampanel/users.db", cfg.DataPath)
	assert.Equal(t, 11, cfg.BcryptCost)
	assert.False(t, cfg.BootstrapAdmin)
	// Keys absent from the file keep their defaults.
	assert.Equal(t, HashingBcrypt, cfg.PasswordHashing)
}

func TestLoad_EnvOverridesConfigFile(t *testing.T) {
	isolateConfigEnv(t)
	path := writeConfigFile(t, `
listen_addr = "0.0.0.0:8000"
store_backend = "bolt"
`)
	t.Setenv("TEAMPANEL_CONFIG_FILE", path)
	t.Setenv("TEAMPANEL_STORE_BACKEND", "file")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8000", cfg.ListenAddr)
	assert.Equal(t, BackendFile, cfg.StoreBackend)
}

func TestLoad_ConfigFileErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"syntax error", `listen_addr = `, "TEAMPANEL_CONFIG_FILE"},
		{"wrong type", `bcrypt_cost = "ten"`, "TEAMPANEL_CONFIG_FILE"},
		{"unknown key", `listen_adr = "0.0.0.0:1"`, "unknown keys listen_adr"},
		{"invalid value", `store_backend = "mongo"`, "TEAMPANEL_STORE_BACKEND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateConfigEnv(t)
			t.Setenv("TEAMPANEL_CONFIG_FILE", writeConfigFile(t, tt.content))

			_, err := Load()

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_MissingConfigFile(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("TEAMPANEL_CONFIG_FILE", filepath.Join(t.TempDir(), "absent.toml"))

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "TEAMPANEL_CONFIG_FILE")
}
