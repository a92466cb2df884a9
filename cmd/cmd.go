// submodule cmd contains command definitions
package main

import (
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/scrobblex/internal/formatter"
	"github.com/desertthunder/scrobblex/internal/models"
)

func userFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "user",
		Aliases:  []string{"u"},
		Usage:    "Last.fm username",
		Required: true,
	}
}

func periodFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "period",
		Aliases: []string{"p"},
		Usage:   "Top list period (overall, 7day, 1month, 3month, 6month, 12month)",
		Value:   string(models.PeriodOverall),
	}
}

// setupCommand handles database setup and migrations.
func setupCommand(r *Runner) *cli.Command {
	configFlag := &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}

	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Flags:  []cli.Flag{configFlag},
				Action: r.SetupDatabase,
			},
			{
				Name:   "status",
				Usage:  "Show the applied and pending migrations",
				Flags:  []cli.Flag{configFlag},
				Action: r.SetupStatus,
			},
			{
				Name:   "rollback",
				Usage:  "Roll back the most recent migration",
				Flags:  []cli.Flag{configFlag},
				Action: r.SetupRollback,
			},
		},
	}
}

// authCommand connects a Last.fm account through the web authentication flow.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "auth",
		Usage:  "Authorize scrobblex with your Last.fm account",
		Action: r.Auth,
	}
}

// serveCommand runs the browser dashboard.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the browser dashboard",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (default: server.host:server.port)",
			},
			&cli.BoolFlag{
				Name:  "open",
				Usage: "Open the dashboard in a browser",
			},
		},
		Action: r.Serve,
	}
}

// tuiCommand returns the top-level TUI command for the terminal dashboard.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the terminal dashboard",
		Flags: []cli.Flag{
			userFlag(),
			periodFlag(),
			&cli.StringFlag{
				Name:  "theme",
				Usage: "Dashboard theme",
			},
			&cli.StringFlag{
				Name:  "tab",
				Usage: "Tab shown first",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Directory exports are written to",
				Value:   ".",
			},
			&cli.StringFlag{
				Name:  "log",
				Usage: "Log file path",
				Value: "./tmp/scrobblex-tui.log",
			},
		},
		Action: r.TUI,
	}
}

// statsCommand prints the chart data of a dashboard.
func statsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Print the dashboard data of a user",
		Flags: []cli.Flag{
			userFlag(),
			periodFlag(),
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Print progress while loading",
			},
		},
		Action: r.Stats,
	}
}

// exportCommand syncs the scrobble cache and writes an export file.
func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export dashboard data or the full scrobble history",
		Flags: []cli.Flag{
			userFlag(),
			periodFlag(),
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Export format (csv, json, yaml, txt, scrobbles)",
				Value:   string(formatter.FormatCSV),
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output directory",
				Value:   ".",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Print sync progress",
			},
		},
		Action: r.Export,
	}
}
