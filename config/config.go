// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jinzhu/configor"
	"gopkg.in/yaml.v3"
)

// ConfigFileName is the file name used inside the data directory.
const ConfigFileName = "config.yaml"

// EnvPrefix is the prefix for environment overrides, e.g. TBCWALLET_NETWORK.
const EnvPrefix = "TBCWALLET"

// Config holds the wallet core settings.
type Config struct {
	DataDir  string `yaml:"data_dir"`
	Network  string `yaml:"network" default:"mainnet"`
	LogLevel string `yaml:"log_level" default:"info"`
	LogFile  string `yaml:"log_file"`
	LogJSON  bool   `yaml:"log_json"`

	// ChainAPIURL serves TBC UTXOs, raw transactions, FT data and broadcast.
	ChainAPIURL string `yaml:"chain_api_url" default:"https://turingwallet.xyz/v1/tbc/main"`
	// BTCAPIURL serves BTC UTXOs, raw transactions, fee tiers and broadcast.
	BTCAPIURL string `yaml:"btc_api_url" default:"https://mempool.space/api"`
	// CosignURL is the multisig coordination server.
	CosignURL string `yaml:"cosign_url" default:"https://turingwallet.xyz/multy/sig"`

	FeeRateSatPerKB uint64 `yaml:"fee_rate_sat_per_kb" default:"80"`
	BTCFeeTier      string `yaml:"btc_fee_tier" default:"halfHour"`

	MergeMaxIterations int           `yaml:"merge_max_iterations" default:"10"`
	MergeDelay         time.Duration `yaml:"merge_delay" default:"3s"`
	EstimateDebounce   time.Duration `yaml:"estimate_debounce" default:"1s"`
	HTTPTimeout        time.Duration `yaml:"http_timeout" default:"30s"`
}

// DefaultConfig returns the built-in configuration rooted at ~/.tbcwallet.
func DefaultConfig() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return Config{
		DataDir:            filepath.Join(home, ".tbcwallet"),
		Network:            "mainnet",
		LogLevel:           "info",
		ChainAPIURL:        "https://turingwallet.xyz/v1/tbc/main",
		BTCAPIURL:          "https://mempool.space/api",
		CosignURL:          "https://turingwallet.xyz/multy/sig",
		FeeRateSatPerKB:    80,
		BTCFeeTier:         "halfHour",
		MergeMaxIterations: 10,
		MergeDelay:         3 * time.Second,
		EstimateDebounce:   time.Second,
		HTTPTimeout:        30 * time.Second,
	}
}

// ConfigPath returns the config file location inside dataDir.
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, ConfigFileName)
}

// LoadConfig reads the config file at path, applies struct defaults and
// TBCWALLET_* environment overrides, and validates the result.
func LoadConfig(path string) (Config, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return Config{}, fmt.Errorf("config: stat %s: %w", path, err)
	}

	cfg := DefaultConfig()
	loader := configor.New(&configor.Config{ENVPrefix: EnvPrefix})
	if err := loader.Load(&cfg, path); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfigFile, err)
	}
	if err := ValidateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// SaveConfig writes cfg as YAML, creating parent directories as needed.
func SaveConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}
