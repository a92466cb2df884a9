package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/scrobblex/internal/models"
	"github.com/desertthunder/scrobblex/internal/repositories"
	"github.com/desertthunder/scrobblex/internal/server"
	"github.com/desertthunder/scrobblex/internal/tasks"
)

// Serve runs the browser dashboard until interrupted.
//
// Dashboards are served from snapshots younger than dashboard.cache_ttl_minutes; the scrobbles
// export syncs the scrobble cache first.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireLastFM(); err != nil {
		return err
	}

	db, err := r.database()
	if err != nil {
		return err
	}
	profiles := repositories.NewProfileRepository(db)
	snapshots := repositories.NewSnapshotRepository(db)
	scrobbles := repositories.NewScrobbleRepository(db)

	engine := tasks.NewCachedEngine(r.engine, profiles, snapshots, r.config.Dashboard.CacheTTL(), r.logger)
	dash, err := server.NewDashboard(server.DashboardOptions{
		Engine:     engine,
		History:    r.history(profiles, scrobbles),
		Config:     r.config.Dashboard,
		SessionTTL: r.config.Server.SessionTTL(),
		Logger:     r.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create dashboard: %w", err)
	}
	defer dash.Close()

	router := server.NewBasicRouter()
	router.Use(server.Recover(r.logger), server.Logging(r.logger))
	dash.Register(router)
	if r.auth != nil {
		router.Handler(server.NewAuthHandler(r.auth, r.saveSession(ctx, profiles)))
	}

	addr := cmd.String("addr")
	if addr == "" {
		addr = r.config.Server.Addr()
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	r.writePlain("→ Dashboard running at http://%s (Ctrl+C to stop)\n", addr)
	if cmd.Bool("open") {
		if err := r.openBrowser("http://" + addr); err != nil {
			r.logger.Warnf("failed to open browser automatically %v", err)
		}
	}

	return server.Serve(ctx, addr, router, r.logger)
}

// history returns the full scrobble history loader of the scrobbles export: an incremental sync
// into the cache followed by a read of everything cached.
func (r *Runner) history(profiles *repositories.ProfileRepository, scrobbles *repositories.ScrobbleRepository) func(ctx context.Context, user string) ([]models.Scrobble, error) {
	return func(ctx context.Context, user string) ([]models.Scrobble, error) {
		p, err := r.profile(ctx, profiles, user)
		if err != nil {
			return nil, err
		}

		result, err := r.engine.Sync(ctx, nil, scrobbles, p.ID(), p.Username())
		if err != nil {
			return nil, fmt.Errorf("failed to sync scrobbles: %w", err)
		}
		r.logger.Info("synced scrobbles", "user", p.Username(), "fetched", result.Fetched, "inserted", result.Inserted)

		return scrobbles.History(p.ID())
	}
}
