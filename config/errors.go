// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import "errors"

var (
	// ErrInvalidNetwork indicates the network name is not recognized.
	ErrInvalidNetwork = errors.New("config: invalid network (must be \"mainnet\" or \"testnet\")")

	// ErrInvalidURL indicates one of the service URLs is malformed.
	ErrInvalidURL = errors.New("config: invalid service URL")

	// ErrInvalidLogLevel indicates the log level is not recognized.
	ErrInvalidLogLevel = errors.New("config: invalid log level (must be \"debug\", \"info\", \"warn\", or \"error\")")

	// ErrInvalidFeeTier indicates the BTC fee tier is not recognized.
	ErrInvalidFeeTier = errors.New("config: invalid BTC fee tier (must be \"fastest\", \"halfHour\", or \"hour\")")

	// ErrInvalidMerge indicates the FT merge settings are out of range.
	ErrInvalidMerge = errors.New("config: merge iterations must be >= 1 and delay >= 0")

	// ErrEmptyDataDir indicates the data directory path is empty.
	ErrEmptyDataDir = errors.New("config: data directory must not be empty")

	// ErrConfigNotFound indicates the configuration file does not exist.
	ErrConfigNotFound = errors.New("config: configuration file not found")

	// ErrInvalidConfigFile indicates the configuration file could not be parsed.
	ErrInvalidConfigFile = errors.New("config: invalid configuration file")
)
