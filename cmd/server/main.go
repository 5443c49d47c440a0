// Package main is the entry point for the Kitchi API server.
//
// The main package stays minimal. Its job is to:
//  1. Read configuration (.env file, then the environment)
//  2. Create the logger
//  3. Build and start the server
//
// All actual logic lives in internal/: server wires it together, handler
// speaks HTTP, service holds the rules, repository/sqlite stores the data.
package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/sakif/kitchi/internal/config"
	"github.com/sakif/kitchi/internal/server"
)

func main() {
	// === 1. READ CONFIGURATION ===
	cfg, err := config.Load()
	if err != nil {
		// No logger yet; fall back to a plain one so the failure is visible.
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 2. SET UP LOGGING ===
	// LOG_FORMAT=json in production so log shippers can parse it,
	// text locally so a human can read it.
	logger := newLogger(cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)

	// === 3. CREATE AND START THE SERVER ===
	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM).
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func newLogger(format, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}

	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
