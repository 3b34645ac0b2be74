// Package main is the entry point for the Fountain sync agent.
package main

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/fountainhq/fountain-agent/cmd/fountain-agent/app"
	"github.com/fountainhq/fountain-agent/internal/config"
)

const envPrefix = "FOUNTAIN"

// getLogLevel parses the FOUNTAIN_LOG_LEVEL environment variable.
// Defaults to slog.LevelInfo if unset or invalid.
func getLogLevel() slog.Level {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	levelStr := v.GetString("LOG_LEVEL")

	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info", "":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		slog.Warn("Invalid FOUNTAIN_LOG_LEVEL, using INFO", "value", levelStr)
		return slog.LevelInfo
	}
}

func main() {
	// The agent runs headless under a tray shell, so logs tee to a rotating
	// file as well as stderr. Stdout stays clean for commands that output
	// data (e.g. version --format json).
	logFile := &lumberjack.Logger{
		Filename:   config.DefaultLogPath(),
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     30, // days
	}
	handler := slog.NewJSONHandler(
		io.MultiWriter(os.Stderr, logFile),
		&slog.HandlerOptions{Level: getLogLevel()},
	)
	slog.SetDefault(slog.New(handler))

	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
