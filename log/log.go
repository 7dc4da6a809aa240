// Package log provides structured logging for the wallet core.
package log

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the global logger instance.
var Logger zerolog.Logger

// Component loggers for different parts of the system.
var (
	Builder   zerolog.Logger
	FT        zerolog.Logger
	MultiSig  zerolog.Logger
	Broadcast zerolog.Logger
	Chain     zerolog.Logger
	Cosign    zerolog.Logger
	Store     zerolog.Logger
	Wallet    zerolog.Logger
)

func init() {
	Logger = NewConsoleLogger(os.Stdout, "info")
	initComponentLoggers()
}

// Init initializes the logger with the given configuration.
// When file is non-empty, logs go to the console and to a rotating JSON
// file managed by lumberjack.
func Init(level string, jsonOutput bool, file string) {
	var console io.Writer = os.Stdout
	if !jsonOutput {
		console = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
	}

	if file != "" {
		rotating := &lumberjack.Logger{
			Filename:   file,
			MaxSize:    20, // megabytes
			MaxBackups: 5,
			Compress:   true,
		}
		Logger = zerolog.New(zerolog.MultiLevelWriter(console, rotating)).
			Level(parseLevel(level)).
			With().
			Timestamp().
			Logger()
	} else {
		Logger = zerolog.New(console).
			Level(parseLevel(level)).
			With().
			Timestamp().
			Logger()
	}

	initComponentLoggers()
}

// SetOutput replaces the global logger with a JSON logger writing to w.
// Used by tests that assert on log output.
func SetOutput(w io.Writer, level string) {
	Logger = NewJSONLogger(w, level)
	initComponentLoggers()
}

// NewConsoleLogger creates a colored console logger.
func NewConsoleLogger(w io.Writer, level string) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: "15:04:05",
	}
	return zerolog.New(output).
		Level(parseLevel(level)).
		With().
		Timestamp().
		Logger()
}

// NewJSONLogger creates a structured JSON logger.
func NewJSONLogger(w io.Writer, level string) zerolog.Logger {
	return zerolog.New(w).
		Level(parseLevel(level)).
		With().
		Timestamp().
		Logger()
}

// parseLevel converts a string level to zerolog.Level.
func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func initComponentLoggers() {
	Builder = WithComponent("builder")
	FT = WithComponent("ft")
	MultiSig = WithComponent("multisig")
	Broadcast = WithComponent("broadcast")
	Chain = WithComponent("chain")
	Cosign = WithComponent("cosign")
	Store = WithComponent("store")
	Wallet = WithComponent("wallet")
}

// WithComponent returns a logger with a component field.
func WithComponent(name string) zerolog.Logger {
	return Logger.With().Str("component", name).Logger()
}
