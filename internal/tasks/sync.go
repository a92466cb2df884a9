package tasks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/scrobblex/internal/models"
	"github.com/desertthunder/scrobblex/internal/shared"
)

// ScrobbleStore persists scrobbles for a profile (repositories.ScrobbleRepository).
type ScrobbleStore interface {
	// Latest returns the newest stored scrobble time, or the zero time.
	Latest(profileID string) (time.Time, error)
	// SaveAll stores scrobbles and returns how many were new.
	SaveAll(profileID string, scrobbles []models.Scrobble) (int, error)
}

// SyncResult summarizes one incremental sync.
type SyncResult struct {
	Since    time.Time // Newest cached scrobble before the sync, zero for a full sync
	Pages    int       // Pages fetched
	Fetched  int       // Scrobbles received, now playing excluded
	Inserted int       // Scrobbles that were not cached yet
}

// Sync fetches every scrobble newer than the latest one in store and saves it page by page.
//
// A page is saved before the next one is requested, so an interrupted sync keeps what it fetched
// and the next run resumes from there.
func (e *DashboardEngine) Sync(ctx context.Context, progress chan<- ProgressUpdate, store ScrobbleStore, profileID, user string) (*SyncResult, error) {
	if e.svc == nil {
		return nil, fmt.Errorf("%w: Last.fm service not initialized", shared.ErrServiceUnavailable)
	}
	if store == nil {
		return nil, fmt.Errorf("%w: scrobble store", shared.ErrMissingArgument)
	}
	if strings.TrimSpace(user) == "" || profileID == "" {
		return nil, fmt.Errorf("%w: username and profile id are required", shared.ErrMissingArgument)
	}

	since, err := store.Latest(profileID)
	if err != nil {
		return nil, err
	}

	result := &SyncResult{Since: since}
	q := models.RecentQuery{Limit: e.opts.PageSize}
	if !since.IsZero() {
		q.From = since.Add(time.Second)
	}

	for q.Page = 1; ; q.Page++ {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("%w: sync interrupted: %w", shared.ErrTimeout, err)
		}

		page, err := e.svc.RecentTracks(ctx, user, q)
		if err != nil {
			return result, fmt.Errorf("%w: failed to fetch page %d: %w", shared.ErrAPIRequest, q.Page, err)
		}
		result.Pages++

		dated := make([]models.Scrobble, 0, len(page.Scrobbles))
		for _, s := range page.Scrobbles {
			if !s.NowPlaying {
				dated = append(dated, s)
			}
		}
		result.Fetched += len(dated)

		n, err := store.SaveAll(profileID, dated)
		if err != nil {
			return result, err
		}
		result.Inserted += n

		e.sendProgress(progress, syncPageUpdate(q.Page, max(page.TotalPages, q.Page), result.Fetched))
		if page.Last(q.Limit) {
			break
		}
	}

	e.sendProgress(progress, syncCompletedUpdate(result))
	return result, nil
}
