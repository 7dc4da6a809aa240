// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import (
	"fmt"
	"net/url"
	"strings"
)

// validLogLevels lists the accepted log level strings.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validFeeTiers lists the BTC recommended-fee tiers the chain API reports.
var validFeeTiers = map[string]bool{
	"fastest":  true,
	"halfHour": true,
	"hour":     true,
}

// ValidateConfig checks that all configuration values are within acceptable
// ranges and returns the first error encountered, or nil if valid.
func ValidateConfig(cfg Config) error {
	if cfg.DataDir == "" {
		return ErrEmptyDataDir
	}

	if cfg.Network != "mainnet" && cfg.Network != "testnet" {
		return ErrInvalidNetwork
	}

	if !validLogLevels[strings.ToLower(cfg.LogLevel)] {
		return ErrInvalidLogLevel
	}

	for name, raw := range map[string]string{
		"chain_api_url": cfg.ChainAPIURL,
		"btc_api_url":   cfg.BTCAPIURL,
		"cosign_url":    cfg.CosignURL,
	} {
		if err := validateURL(raw); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidURL, name, err)
		}
	}

	if !validFeeTiers[cfg.BTCFeeTier] {
		return ErrInvalidFeeTier
	}

	if cfg.MergeMaxIterations < 1 || cfg.MergeDelay < 0 {
		return ErrInvalidMerge
	}

	return nil
}

// validateURL checks that raw is an absolute http(s) URL.
func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme %q is not http(s)", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}
