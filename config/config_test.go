// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// ---------------------------------------------------------------------------
// DefaultConfig tests
// ---------------------------------------------------------------------------

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"Network", cfg.Network, "mainnet"},
		{"LogLevel", cfg.LogLevel, "info"},
		{"LogFile", cfg.LogFile, ""},
		{"FeeRateSatPerKB", cfg.FeeRateSatPerKB, uint64(80)},
		{"BTCFeeTier", cfg.BTCFeeTier, "halfHour"},
		{"MergeMaxIterations", cfg.MergeMaxIterations, 10},
		{"MergeDelay", cfg.MergeDelay, 3 * time.Second},
		{"EstimateDebounce", cfg.EstimateDebounce, time.Second},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.got != tc.want {
				t.Errorf("got %v, want %v", tc.got, tc.want)
			}
		})
	}

	if !strings.HasSuffix(cfg.DataDir, ".tbcwallet") {
		t.Errorf("DataDir %q should end with .tbcwallet", cfg.DataDir)
	}
	if err := ValidateConfig(cfg); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

// ---------------------------------------------------------------------------
// SaveConfig / LoadConfig round-trip tests
// ---------------------------------------------------------------------------

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := ConfigPath(dir)

	original := DefaultConfig()
	original.DataDir = "/tmp/test-tbcwallet"
	original.Network = "testnet"
	original.LogLevel = "debug"
	original.LogFile = "/tmp/tbcwallet.log"
	original.ChainAPIURL = "http://127.0.0.1:9000/v1/tbc/test"
	original.MergeMaxIterations = 4
	original.MergeDelay = 500 * time.Millisecond

	if err := SaveConfig(path, original); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	tests := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"DataDir", loaded.DataDir, original.DataDir},
		{"Network", loaded.Network, original.Network},
		{"LogLevel", loaded.LogLevel, original.LogLevel},
		{"LogFile", loaded.LogFile, original.LogFile},
		{"ChainAPIURL", loaded.ChainAPIURL, original.ChainAPIURL},
		{"MergeMaxIterations", loaded.MergeMaxIterations, original.MergeMaxIterations},
		{"MergeDelay", loaded.MergeDelay, original.MergeDelay},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.got != tc.want {
				t.Errorf("got %v, want %v", tc.got, tc.want)
			}
		})
	}
}

func TestSaveConfigCreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "subdir", ConfigFileName)

	cfg := DefaultConfig()
	if err := SaveConfig(path, cfg); err != nil {
		t.Fatalf("SaveConfig should create parent dirs: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Errorf("Config file not created: %v", err)
	}
}

// ---------------------------------------------------------------------------
// LoadConfig error tests
// ---------------------------------------------------------------------------

func TestLoadConfigNotFound(t *testing.T) {
	_, err := LoadConfig("/nonexistent/path/config.yaml")
	if !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("LoadConfig nonexistent: got %v, want ErrConfigNotFound", err)
	}
}

func TestLoadConfigPartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := ConfigPath(dir)

	content := "data_dir: " + dir + "\nnetwork: testnet\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Network != "testnet" {
		t.Errorf("Network: got %q, want testnet", cfg.Network)
	}
	if cfg.MergeMaxIterations != 10 {
		t.Errorf("MergeMaxIterations: got %d, want default 10", cfg.MergeMaxIterations)
	}
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()
	path := ConfigPath(dir)

	content := "data_dir: " + dir + "\nnetwork: regtest\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	_, err := LoadConfig(path)
	if !errors.Is(err, ErrInvalidNetwork) {
		t.Errorf("LoadConfig bad network: got %v, want ErrInvalidNetwork", err)
	}
}

// ---------------------------------------------------------------------------
// ValidateConfig tests
// ---------------------------------------------------------------------------

func TestValidateConfig(t *testing.T) {
	base := DefaultConfig()

	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"valid", func(*Config) {}, nil},
		{"empty data dir", func(c *Config) { c.DataDir = "" }, ErrEmptyDataDir},
		{"bad network", func(c *Config) { c.Network = "moon" }, ErrInvalidNetwork},
		{"bad log level", func(c *Config) { c.LogLevel = "trace" }, ErrInvalidLogLevel},
		{"uppercase log level", func(c *Config) { c.LogLevel = "DEBUG" }, nil},
		{"bad chain url", func(c *Config) { c.ChainAPIURL = "ftp://x" }, ErrInvalidURL},
		{"missing host", func(c *Config) { c.CosignURL = "https://" }, ErrInvalidURL},
		{"bad fee tier", func(c *Config) { c.BTCFeeTier = "slow" }, ErrInvalidFeeTier},
		{"zero merge iterations", func(c *Config) { c.MergeMaxIterations = 0 }, ErrInvalidMerge},
		{"negative merge delay", func(c *Config) { c.MergeDelay = -time.Second }, ErrInvalidMerge},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)
			err := ValidateConfig(cfg)
			if tc.want == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tc.want) {
				t.Errorf("got %v, want %v", err, tc.want)
			}
		})
	}
}
