package main

import (
	"context"
	"errors"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/scrobblex/internal/services"
	"github.com/desertthunder/scrobblex/internal/shared"
)

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("failed to load config, using defaults", "error", err)
		}
	}

	var lastfm services.Service
	var auth services.Authenticator
	if svc, err := services.NewLastFMService(config.Credentials.LastFM, nil, logger); err == nil {
		lastfm = svc
		auth = svc
	} else {
		logger.Debug("Last.fm service unavailable", "error", err)
	}

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: "config.toml",
		LastFM:     lastfm,
		Auth:       auth,
		Logger:     logger,
	})
	defer runner.Close()

	app := &cli.Command{
		Name:     "scrobblex",
		Usage:    "Browse your Last.fm listening history as a dashboard",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		}
		runner.Close()
		logger.Fatalf("application error: %v", err)
	}
}
