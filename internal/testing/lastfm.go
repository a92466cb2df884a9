package testing

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/desertthunder/scrobblex/internal/models"
	"github.com/desertthunder/scrobblex/internal/shared"
)

// MockService is an in-memory Last.fm service.
//
// Recent scrobbles must be ordered newest first, as Last.fm returns them.
// Errs fails a method by name, e.g. "TrackInfo".
type MockService struct {
	mu sync.Mutex

	User    *models.UserInfo
	Artists []models.Artist
	Tracks  []models.Track
	Albums  []models.Album
	Recent  []models.Scrobble
	Infos   map[string]models.TrackInfo // keyed by shared.NormalizeTrackKey(track, artist)
	Errs    map[string]error

	calls   map[string]int
	queries []models.RecentQuery
}

func (m *MockService) record(method string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[method]++
	return m.Errs[method]
}

// Calls returns how often method was invoked.
func (m *MockService) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

// Queries returns every RecentTracks query in call order.
func (m *MockService) Queries() []models.RecentQuery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.RecentQuery(nil), m.queries...)
}

func (m *MockService) Name() string { return "mock" }

func (m *MockService) UserInfo(ctx context.Context, user string) (*models.UserInfo, error) {
	if err := m.record("UserInfo"); err != nil {
		return nil, err
	}
	if m.User == nil || !strings.EqualFold(m.User.Name, user) {
		return nil, fmt.Errorf("%w: %s", shared.ErrUserNotFound, user)
	}
	u := *m.User
	return &u, nil
}

func (m *MockService) TopArtists(ctx context.Context, user string, period models.Period, limit int) ([]models.Artist, error) {
	if err := m.record("TopArtists"); err != nil {
		return nil, err
	}
	return head(m.Artists, limit), nil
}

func (m *MockService) TopTracks(ctx context.Context, user string, period models.Period, limit int) ([]models.Track, error) {
	if err := m.record("TopTracks"); err != nil {
		return nil, err
	}
	return head(m.Tracks, limit), nil
}

func (m *MockService) TopAlbums(ctx context.Context, user string, period models.Period, limit int) ([]models.Album, error) {
	if err := m.record("TopAlbums"); err != nil {
		return nil, err
	}
	return head(m.Albums, limit), nil
}

// RecentTracks filters by the query range and pages the result like Last.fm.
// Now-playing entries are prepended to the first page of an open-ended query and do not count towards paging.
func (m *MockService) RecentTracks(ctx context.Context, user string, q models.RecentQuery) (*models.RecentPage, error) {
	if err := m.record("RecentTracks"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.queries = append(m.queries, q)
	m.mu.Unlock()

	var playing, matched []models.Scrobble
	for _, s := range m.Recent {
		if s.NowPlaying {
			playing = append(playing, s)
			continue
		}
		if !q.From.IsZero() && s.PlayedAt.Before(q.From) {
			continue
		}
		if !q.To.IsZero() && s.PlayedAt.After(q.To) {
			continue
		}
		matched = append(matched, s)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	page := max(q.Page, 1)
	total := len(matched)
	pages := (total + limit - 1) / limit

	start := min((page-1)*limit, total)
	end := min(start+limit, total)

	var out []models.Scrobble
	if page == 1 && q.From.IsZero() && q.To.IsZero() {
		out = append(out, playing...)
	}
	out = append(out, matched[start:end]...)
	return &models.RecentPage{
		Scrobbles:  out,
		Page:       page,
		TotalPages: pages,
		Total:      total,
	}, nil
}

func (m *MockService) TrackInfo(ctx context.Context, artist, track string) (*models.TrackInfo, error) {
	if err := m.record("TrackInfo"); err != nil {
		return nil, err
	}
	info, ok := m.Infos[shared.NormalizeTrackKey(track, artist)]
	if !ok {
		return nil, fmt.Errorf("%w: track %q not found", shared.ErrAPIRequest, track)
	}
	return &info, nil
}

func head[T any](items []T, limit int) []T {
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return append([]T(nil), items...)
}
