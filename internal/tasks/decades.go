package tasks

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"

	"github.com/desertthunder/scrobblex/internal/models"
	"github.com/desertthunder/scrobblex/internal/shared"
	"golang.org/x/time/rate"
)

// decadeJob is one track waiting for its release date.
type decadeJob struct {
	index int
	track models.Track
}

type decadeOutcome struct {
	index int
	res   DecadeResult
}

// DecadeResult is the outcome of resolving one track's release year.
type DecadeResult struct {
	Track  models.Track
	Year   int   // Zero when Last.fm has no usable release date
	Decade int   // Year floored to its decade
	Error  error // Lookup failure
}

// Decades resolves the release decade of each track and sums playcounts per decade.
//
// Lookups run in a worker pool behind a rate limiter. Tracks without a parsable release date are left out.
// The dataset is labelled by decade in ascending order, or nil when no track could be dated.
func (e *DashboardEngine) Decades(ctx context.Context, prog chan<- ProgressUpdate, tracks []models.Track) (*models.Dataset, error) {
	if e.svc == nil {
		return nil, fmt.Errorf("%w: Last.fm service not initialized", shared.ErrServiceUnavailable)
	}

	results, err := e.resolveDecades(ctx, prog, tracks)
	if err != nil {
		return nil, err
	}

	sums := make(map[int]float64)
	for _, res := range results {
		if res.Year > 0 {
			sums[res.Decade] += float64(res.Track.Playcount)
		}
	}
	if len(sums) == 0 {
		return nil, nil
	}

	decades := make([]int, 0, len(sums))
	for d := range sums {
		decades = append(decades, d)
	}
	slices.Sort(decades)

	ds := &models.Dataset{}
	for _, d := range decades {
		ds.Labels = append(ds.Labels, strconv.Itoa(d))
		ds.Data = append(ds.Data, sums[d])
	}
	return ds, nil
}

// resolveDecades looks up every track and returns the results in input order.
func (e *DashboardEngine) resolveDecades(ctx context.Context, prog chan<- ProgressUpdate, tracks []models.Track) ([]DecadeResult, error) {
	limiter := rate.NewLimiter(rate.Limit(e.opts.RateLimit), 1)

	jobs := make(chan decadeJob, len(tracks))
	results := make(chan decadeOutcome, len(tracks))

	var wg sync.WaitGroup
	for i := 0; i < e.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				select {
				case <-ctx.Done():
					return
				default:
				}
				results <- decadeOutcome{index: job.index, res: e.resolveDecade(ctx, job.track)}
			}
		}()
	}

	go func() {
		e.sendProgress(prog, resolveDecadeUpdate(0, len(tracks), nil, nil))
		defer close(jobs)
		for i, track := range tracks {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
			jobs <- decadeJob{index: i, track: track}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	out := make([]DecadeResult, len(tracks))
	completed := 0
	for r := range results {
		completed++
		out[r.index] = r.res
		e.sendProgress(prog, resolveDecadeUpdate(completed, len(tracks), &r.res.Track, r.res.Error))
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: decade lookup interrupted: %w", shared.ErrTimeout, err)
	}
	return out, nil
}

// resolveDecade fetches the release date of one track.
func (e *DashboardEngine) resolveDecade(ctx context.Context, track models.Track) DecadeResult {
	res := DecadeResult{Track: track}

	info, err := e.svc.TrackInfo(ctx, track.Artist, track.Name)
	if err != nil {
		res.Error = fmt.Errorf("failed to fetch track info: %w", err)
		return res
	}

	if year, ok := info.ReleaseYear(); ok {
		res.Year = year
		res.Decade = models.Decade(year)
	}
	return res
}
