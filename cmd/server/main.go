// Package main is the entry point for the blog server.
//
// It only reads configuration, builds the logger and the engine, and hands
// them to internal/server. All logic lives in internal/.
//
// CONFIGURATION:
// CONFIG_PATH names an optional YAML file; environment variables override it.
// See internal/config for the full list.
package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sakif/awesome-blog/internal/config"
	"github.com/sakif/awesome-blog/internal/db"
	"github.com/sakif/awesome-blog/internal/server"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.Level(),
	}))
	slog.SetDefault(logger)

	// SQLite creates the file but not its directory.
	if cfg.DB.Driver == db.DriverSQLite {
		dir := filepath.Dir(cfg.DB.Database)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("dir", dir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	engine, err := db.CreateEngine(cfg.DB, logger)
	if err != nil {
		logger.Error("failed to open database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	srv, err := server.New(cfg, engine, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		engine.Close()
		os.Exit(1)
	}

	// Start blocks until SIGINT / SIGTERM.
	err = srv.Start()
	if closeErr := engine.Close(); closeErr != nil {
		logger.Error("closing database", slog.String("error", closeErr.Error()))
	}
	if err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
