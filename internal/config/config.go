// Package config loads application configuration from environment variables,
// optionally layered over a TOML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// Store backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendBolt   = "bolt"
)

// Password hashing schemes.
const (
	HashingBcrypt    = "bcrypt"
	HashingPlaintext = "plaintext"
)

// bcrypt cost bounds, mirrored from golang.org/x/crypto/bcrypt.
const (
	minBcryptCost = 4
	maxBcryptCost = 31
)

// Config holds the credential service configuration.
type Config struct {
	ListenAddr      string `toml:"listen_addr"`
	StoreBackend    string `toml:"store_backend"`
	DataPath        string `toml:"data_path"`
	MetricsAddr     string `toml:"metrics_addr"`
	PasswordHashing string `toml:"password_hashing"`
	BcryptCost      int    `toml:"bcrypt_cost"`
	BootstrapAdmin  bool   `toml:"bootstrap_admin"`
}

// HasMetrics reports whether the metrics listener is enabled.
func (c *Config) HasMetrics() bool {
	return c.MetricsAddr != ""
}

func defaults() Config {
	return Config{
		ListenAddr:      "127.0.0.1:8443",
		StoreBackend:    BackendFile,
		DataPath:        "users.json",
		PasswordHashing: HashingBcrypt,
		BcryptCost:      10,
		BootstrapAdmin:  true,
	}
}

// Load returns a validated Config. Values come from, in increasing priority:
// built-in defaults, the TOML file named by TEAMPANEL_CONFIG_FILE (if set),
// and TEAMPANEL_* environment variables.
//
// Defaults: TEAMPANEL_LISTEN_ADDR (127.0.0.1:8443), TEAMPANEL_STORE_BACKEND
// (file), TEAMPANEL_DATA_PATH (users.json), TEAMPANEL_METRICS_ADDR (disabled),
// TEAMPANEL_PASSWORD_HASHING (bcrypt), TEAMPANEL_BCRYPT_COST (10),
// TEAMPANEL_BOOTSTRAP_ADMIN (true).
func Load() (*Config, error) {
	cfg := defaults()

	if path, ok := os.LookupEnv("TEAMPANEL_CONFIG_FILE"); ok && path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	if v, ok := os.LookupEnv("TEAMPANEL_LISTEN_ADDR"); ok {
		cfg.ListenAddr = v
	}
	if v, ok := os.LookupEnv("TEAMPANEL_STORE_BACKEND"); ok {
		cfg.StoreBackend = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := os.LookupEnv("TEAMPANEL_DATA_PATH"); ok {
		cfg.DataPath = v
	}
	if v, ok := os.LookupEnv("TEAMPANEL_METRICS_ADDR"); ok {
		cfg.MetricsAddr = v
	}
	if v, ok := os.LookupEnv("TEAMPANEL_PASSWORD_HASHING"); ok {
		cfg.PasswordHashing = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := os.LookupEnv("TEAMPANEL_BCRYPT_COST"); ok {
		cost, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("TEAMPANEL_BCRYPT_COST has invalid integer %q: %w", v, err)
		}
		cfg.BcryptCost = cost
	}
	if v, ok := os.LookupEnv("TEAMPANEL_BOOTSTRAP_ADMIN"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("TEAMPANEL_BOOTSTRAP_ADMIN has invalid boolean %q: %w", v, err)
		}
		cfg.BootstrapAdmin = b
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadFile decodes the TOML file at path over cfg. Unknown keys are an error
// so a typo does not silently fall back to a default.
func loadFile(path string, cfg *Config) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("TEAMPANEL_CONFIG_FILE %q: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("TEAMPANEL_CONFIG_FILE %q: unknown keys %s", path, strings.Join(keys, ", "))
	}
	return nil
}

func (c *Config) validate() error {
	var errs []error

	if c.ListenAddr == "" {
		errs = append(errs, errors.New("TEAMPANEL_LISTEN_ADDR must not be empty"))
	}
	switch c.StoreBackend {
	case BackendFile, BackendSQLite, BackendBolt:
	default:
		errs = append(errs, fmt.Errorf("TEAMPANEL_STORE_BACKEND must be one of %s, %s, %s; got %q",
			BackendFile, BackendSQLite, BackendBolt, c.StoreBackend))
	}
	if c.DataPath == "" {
		errs = append(errs, errors.New("TEAMPANEL_DATA_PATH must not be empty"))
	}
	switch c.PasswordHashing {
	case HashingBcrypt, HashingPlaintext:
	default:
		errs = append(errs, fmt.Errorf("TEAMPANEL_PASSWORD_HASHING must be %s or %s; got %q",
			HashingBcrypt, HashingPlaintext, c.PasswordHashing))
	}
	if c.BcryptCost < minBcryptCost || c.BcryptCost > maxBcryptCost {
		errs = append(errs, fmt.Errorf("TEAMPANEL_BCRYPT_COST must be between %d and %d; got %d",
			minBcryptCost, maxBcryptCost, c.BcryptCost))
	}
	if c.MetricsAddr != "" && c.MetricsAddr == c.ListenAddr {
		errs = append(errs, errors.New("TEAMPANEL_METRICS_ADDR must differ from TEAMPANEL_LISTEN_ADDR"))
	}

	return errors.Join(errs...)
}
