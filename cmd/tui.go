package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/scrobblex/internal/dashboard"
	"github.com/desertthunder/scrobblex/internal/models"
	"github.com/desertthunder/scrobblex/internal/repositories"
	"github.com/desertthunder/scrobblex/internal/shared"
	"github.com/desertthunder/scrobblex/internal/tasks"
	"github.com/desertthunder/scrobblex/internal/theme"
	"github.com/desertthunder/scrobblex/internal/ui"
)

// TUI launches the terminal dashboard for one user.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireLastFM(); err != nil {
		return err
	}

	period, err := models.ParsePeriod(cmd.String("period"))
	if err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, logFile, err := shared.NewFileLogger(cmd.String("log"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	defer logFile.Close()
	r.SetLogger(fileLogger)

	var engine tasks.Engine = r.engine
	if db, err := r.database(); err == nil {
		engine = tasks.NewCachedEngine(r.engine,
			repositories.NewProfileRepository(db),
			repositories.NewSnapshotRepository(db),
			r.config.Dashboard.CacheTTL(), r.logger)
	} else {
		r.logger.Warn("dashboard cache disabled", "error", err)
	}

	themeKey := cmd.String("theme")
	if themeKey == "" {
		themeKey = r.config.Dashboard.Theme
	} else if _, err := theme.Lookup(themeKey); err != nil {
		return err
	}
	tab := cmd.String("tab")
	if tab == "" {
		tab = r.config.Dashboard.DefaultTab
	}

	model, err := ui.NewModel(ctx, ui.Options{
		Engine:     engine,
		User:       cmd.String("user"),
		Period:     period,
		Theme:      themeKey,
		DefaultTab: tab,
		Delays:     dashboard.Delays{Fade: r.config.Dashboard.FadeDelay(), Reveal: r.config.Dashboard.RevealDelay()},
		Logger:     r.logger,
		ExportDir:  cmd.String("output"),
	})
	if err != nil {
		return err
	}
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
