package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/scrobblex/internal/formatter"
	"github.com/desertthunder/scrobblex/internal/models"
	"github.com/desertthunder/scrobblex/internal/tasks"
)

// Stats builds a dashboard and prints its chart data.
func (r *Runner) Stats(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireLastFM(); err != nil {
		return err
	}

	user := cmd.String("user")
	period, err := models.ParsePeriod(cmd.String("period"))
	if err != nil {
		return err
	}

	r.logger.Infof("building dashboard for %s (%s)", user, period)

	progress := make(chan tasks.ProgressUpdate, 50)
	done := r.drainProgress(progress, cmd.Bool("verbose"))
	dash, err := r.engine.Build(ctx, progress, user, period)
	close(progress)
	<-done
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(dash.Charts, cmd.Bool("pretty"))
	}

	text, err := formatter.ExportToText(dash)
	if err != nil {
		return fmt.Errorf("failed to format dashboard: %w", err)
	}

	r.writePlainHeader(fmt.Sprintf("%s • %s", dash.Username, period.Label()))
	if dash.User != nil {
		r.writePlain("Scrobbles: %d\n", dash.User.Playcount)
	}
	if dash.NowPlaying != nil {
		r.writePlain("Now playing: %s by %s\n", dash.NowPlaying.Track, dash.NowPlaying.Artist)
	}
	return r.writePlain("\n%s", text)
}
