package tasks

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/scrobblex/internal/models"
	"github.com/desertthunder/scrobblex/internal/shared"
)

// SnapshotStore persists serialized dashboards.
type SnapshotStore interface {
	Fresh(profileID string, period models.Period, now time.Time, ttl time.Duration) (*models.Snapshot, error)
	Create(s *models.Snapshot) error
}

// ProfileStore maps Last.fm users to the profiles snapshots are stored under.
type ProfileStore interface {
	GetByUsername(username string) (*models.Profile, error)
	Sync(info models.UserInfo) (*models.Profile, error)
}

// CachedEngine serves dashboards from snapshots younger than its TTL and builds the rest
// with the wrapped [Engine]. Sync is not cached.
type CachedEngine struct {
	Engine

	profiles  ProfileStore
	snapshots SnapshotStore
	ttl       time.Duration
	logger    *log.Logger
	now       func() time.Time
}

// NewCachedEngine wraps inner with a snapshot cache.
func NewCachedEngine(inner Engine, profiles ProfileStore, snapshots SnapshotStore, ttl time.Duration, logger *log.Logger) *CachedEngine {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &CachedEngine{
		Engine:    inner,
		profiles:  profiles,
		snapshots: snapshots,
		ttl:       ttl,
		logger:    logger,
		now:       time.Now,
	}
}

// Build returns a fresh cached dashboard when there is one. Cache failures are logged and fall
// through to the wrapped engine.
func (c *CachedEngine) Build(ctx context.Context, progress chan<- ProgressUpdate, user string, period models.Period) (*models.Dashboard, error) {
	user = strings.TrimSpace(user)
	if period == "" {
		period = models.PeriodOverall
	}

	if d := c.lookup(user, period); d != nil {
		return d, nil
	}

	d, err := c.Engine.Build(ctx, progress, user, period)
	if err != nil {
		return nil, err
	}
	c.store(d)
	return d, nil
}

func (c *CachedEngine) lookup(user string, period models.Period) *models.Dashboard {
	if user == "" || c.ttl <= 0 {
		return nil
	}

	p, err := c.profiles.GetByUsername(user)
	if err != nil {
		return nil
	}
	snap, err := c.snapshots.Fresh(p.ID(), period, c.now(), c.ttl)
	if err != nil {
		return nil
	}

	var d models.Dashboard
	if err := json.Unmarshal(snap.Payload(), &d); err != nil {
		c.logger.Warn("discarding unreadable snapshot", "user", user, "period", period, "err", err)
		return nil
	}
	c.logger.Debug("serving cached dashboard", "user", user, "period", period, "generated_at", snap.GeneratedAt())
	return &d
}

func (c *CachedEngine) store(d *models.Dashboard) {
	if d.User == nil || c.ttl <= 0 {
		return
	}

	p, err := c.profiles.Sync(*d.User)
	if err != nil {
		c.logger.Warn("failed to sync profile", "user", d.Username, "err", err)
		return
	}
	payload, err := shared.MarshalJSON(d, false)
	if err != nil {
		c.logger.Warn("failed to encode snapshot", "user", d.Username, "err", err)
		return
	}
	if err := c.snapshots.Create(models.NewSnapshot(0, p.ID(), d.Period, payload, d.GeneratedAt)); err != nil {
		c.logger.Warn("failed to store snapshot", "user", d.Username, "err", err)
	}
}
