package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/scrobblex/internal/formatter"
	"github.com/desertthunder/scrobblex/internal/models"
	"github.com/desertthunder/scrobblex/internal/repositories"
	"github.com/desertthunder/scrobblex/internal/tasks"
)

// Export syncs the scrobble cache of a user and writes one export file.
//
// The scrobbles format writes the full cached history; the others write the dashboard datasets.
// Every run is recorded as an export job.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireLastFM(); err != nil {
		return err
	}

	f, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	period, err := models.ParsePeriod(cmd.String("period"))
	if err != nil {
		return err
	}

	db, err := r.database()
	if err != nil {
		return err
	}
	profiles := repositories.NewProfileRepository(db)
	scrobbles := repositories.NewScrobbleRepository(db)
	jobs := repositories.NewExportJobRepository(db)

	p, err := r.profile(ctx, profiles, cmd.String("user"))
	if err != nil {
		return err
	}

	job := models.NewExportJob(0, p.ID(), string(f))
	if err := jobs.Create(job); err != nil {
		return fmt.Errorf("failed to create export job: %w", err)
	}
	job.Start(time.Now())
	if err := jobs.Update(job); err != nil {
		r.logger.Warn("failed to update export job", "id", job.ID(), "error", err)
	}

	path, items, err := r.runExport(ctx, f, p, period, scrobbles, cmd.String("output"), cmd.Bool("verbose"))
	job.SetOutputPath(path)
	job.SetProgress(items, items)
	job.Finish(time.Now(), err)
	if updateErr := jobs.Update(job); updateErr != nil {
		r.logger.Warn("failed to update export job", "id", job.ID(), "error", updateErr)
	}
	if err != nil {
		return err
	}

	r.writePlainln("%s", tasks.ExportUpdate(path, items).Message)
	return nil
}

func (r *Runner) runExport(ctx context.Context, f formatter.Format, p *models.Profile, period models.Period, scrobbles *repositories.ScrobbleRepository, dir string, verbose bool) (string, int, error) {
	user := p.Username()

	progress := make(chan tasks.ProgressUpdate, 50)
	done := r.drainProgress(progress, verbose)

	result, err := r.engine.Sync(ctx, progress, scrobbles, p.ID(), user)
	if err != nil {
		close(progress)
		<-done
		return "", 0, fmt.Errorf("failed to sync scrobbles: %w", err)
	}

	var dash *models.Dashboard
	if f != formatter.FormatScrobbles {
		dash, err = r.engine.Build(ctx, progress, user, period)
	}
	close(progress)
	<-done
	if err != nil {
		return "", 0, err
	}

	history, err := scrobbles.History(p.ID())
	if err != nil {
		return "", 0, fmt.Errorf("failed to read scrobble history: %w", err)
	}
	r.logger.Info("scrobble cache synced", "user", user, "inserted", result.Inserted, "cached", len(history))

	e, err := formatter.Render(f, user, dash, history, time.Now())
	if err != nil {
		return "", 0, err
	}

	path, err := formatter.WriteExport(e, dir)
	if err != nil {
		return "", 0, err
	}
	return path, e.Items, nil
}
