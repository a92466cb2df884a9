package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/scrobblex/internal/shared"
)

// Profile is a Last.fm user known to this install.
type Profile struct {
	entity
	username     string
	realName     string
	url          string
	country      string
	playcount    int
	registeredAt time.Time
	sessionKey   string
	theme        string
}

// NewProfile creates a [Profile] for username.
func NewProfile(sequence int, username string) *Profile {
	return &Profile{entity: newEntity(sequence), username: username, theme: "black"}
}

// ProfileFromUserInfo creates a [Profile] populated from a user.getInfo response.
func ProfileFromUserInfo(info UserInfo) *Profile {
	p := NewProfile(0, info.Name)
	p.ApplyUserInfo(info)
	return p
}

func (p *Profile) Username() string        { return p.username }
func (p *Profile) RealName() string        { return p.realName }
func (p *Profile) URL() string             { return p.url }
func (p *Profile) Country() string         { return p.country }
func (p *Profile) Playcount() int          { return p.playcount }
func (p *Profile) RegisteredAt() time.Time { return p.registeredAt }
func (p *Profile) SessionKey() string      { return p.sessionKey }
func (p *Profile) Theme() string           { return p.theme }

func (p *Profile) SetSessionKey(key string)    { p.sessionKey = key }
func (p *Profile) SetTheme(theme string)       { p.theme = theme }
func (p *Profile) SetRegisteredAt(t time.Time) { p.registeredAt = t }

func (p *Profile) SetDetails(realName, url, country string, playcount int) {
	p.realName, p.url, p.country, p.playcount = realName, url, country, playcount
}

// ApplyUserInfo copies the Last.fm profile fields onto p.
func (p *Profile) ApplyUserInfo(info UserInfo) {
	p.SetDetails(info.RealName, info.URL, info.Country, info.Playcount)
	p.registeredAt = info.Registered
}

func (p *Profile) Validate() error {
	if strings.TrimSpace(p.username) == "" {
		return fmt.Errorf("%w: username is required", shared.ErrInvalidInput)
	}
	if p.playcount < 0 {
		return fmt.Errorf("%w: playcount cannot be negative", shared.ErrInvalidInput)
	}
	return nil
}

// CachedScrobble is a scrobble stored for a profile.
type CachedScrobble struct {
	entity
	profileID string
	scrobble  Scrobble
}

func NewCachedScrobble(sequence int, profileID string, s Scrobble) *CachedScrobble {
	return &CachedScrobble{entity: newEntity(sequence), profileID: profileID, scrobble: s}
}

func (c *CachedScrobble) ProfileID() string  { return c.profileID }
func (c *CachedScrobble) Scrobble() Scrobble { return c.scrobble }

// TrackKey is the normalized (track, artist) key used for de-duplication.
func (c *CachedScrobble) TrackKey() string {
	return shared.NormalizeTrackKey(c.scrobble.Track, c.scrobble.Artist)
}

func (c *CachedScrobble) Validate() error {
	switch {
	case c.profileID == "":
		return fmt.Errorf("%w: profile id is required", shared.ErrInvalidInput)
	case c.scrobble.Track == "" || c.scrobble.Artist == "":
		return fmt.Errorf("%w: track and artist are required", shared.ErrInvalidInput)
	case c.scrobble.NowPlaying || c.scrobble.PlayedAt.IsZero():
		return fmt.Errorf("%w: now playing tracks are not cached", shared.ErrInvalidInput)
	}
	return nil
}

// Snapshot is a serialized [Dashboard] for a profile and period.
type Snapshot struct {
	entity
	profileID   string
	period      Period
	payload     []byte
	generatedAt time.Time
}

func NewSnapshot(sequence int, profileID string, period Period, payload []byte, generatedAt time.Time) *Snapshot {
	return &Snapshot{
		entity:      newEntity(sequence),
		profileID:   profileID,
		period:      period,
		payload:     payload,
		generatedAt: generatedAt,
	}
}

func (s *Snapshot) ProfileID() string      { return s.profileID }
func (s *Snapshot) Period() Period         { return s.period }
func (s *Snapshot) Payload() []byte        { return s.payload }
func (s *Snapshot) GeneratedAt() time.Time { return s.generatedAt }

// Fresh reports whether the snapshot is younger than ttl at now.
func (s *Snapshot) Fresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(s.generatedAt) < ttl
}

func (s *Snapshot) Validate() error {
	if s.profileID == "" {
		return fmt.Errorf("%w: profile id is required", shared.ErrInvalidInput)
	}
	if _, err := ParsePeriod(string(s.period)); err != nil {
		return err
	}
	if len(s.payload) == 0 {
		return fmt.Errorf("%w: snapshot payload is empty", shared.ErrInvalidInput)
	}
	return nil
}

// ExportStatus is the lifecycle state of an [ExportJob].
type ExportStatus string

const (
	ExportPending   ExportStatus = "pending"
	ExportRunning   ExportStatus = "running"
	ExportCompleted ExportStatus = "completed"
	ExportFailed    ExportStatus = "failed"
)

// ExportJob records one export of a profile's data.
type ExportJob struct {
	entity
	profileID    string
	format       string
	status       ExportStatus
	outputPath   string
	totalItems   int
	writtenItems int
	errorMessage string
	startedAt    *time.Time
	completedAt  *time.Time
}

func NewExportJob(sequence int, profileID, format string) *ExportJob {
	return &ExportJob{entity: newEntity(sequence), profileID: profileID, format: format, status: ExportPending}
}

func (j *ExportJob) ProfileID() string        { return j.profileID }
func (j *ExportJob) Format() string           { return j.format }
func (j *ExportJob) Status() ExportStatus     { return j.status }
func (j *ExportJob) OutputPath() string       { return j.outputPath }
func (j *ExportJob) TotalItems() int          { return j.totalItems }
func (j *ExportJob) WrittenItems() int        { return j.writtenItems }
func (j *ExportJob) ErrorMessage() string     { return j.errorMessage }
func (j *ExportJob) StartedAt() *time.Time    { return j.startedAt }
func (j *ExportJob) CompletedAt() *time.Time  { return j.completedAt }
func (j *ExportJob) SetStatus(s ExportStatus) { j.status = s }
func (j *ExportJob) SetOutputPath(p string)   { j.outputPath = p }
func (j *ExportJob) SetStartedAt(t *time.Time) {
	j.startedAt = t
}
func (j *ExportJob) SetCompletedAt(t *time.Time) {
	j.completedAt = t
}
func (j *ExportJob) SetProgress(written, total int) {
	j.writtenItems, j.totalItems = written, total
}
func (j *ExportJob) SetErrorMessage(msg string) { j.errorMessage = msg }

// Start marks the job running at now.
func (j *ExportJob) Start(now time.Time) {
	j.status = ExportRunning
	j.startedAt = &now
}

// Finish marks the job completed, or failed when err is non-nil.
func (j *ExportJob) Finish(now time.Time, err error) {
	j.completedAt = &now
	if err != nil {
		j.status = ExportFailed
		j.errorMessage = err.Error()
		return
	}
	j.status = ExportCompleted
}

func (j *ExportJob) Validate() error {
	switch {
	case j.profileID == "":
		return fmt.Errorf("%w: profile id is required", shared.ErrInvalidInput)
	case j.format == "":
		return fmt.Errorf("%w: format is required", shared.ErrInvalidInput)
	case j.writtenItems > j.totalItems && j.totalItems > 0:
		return fmt.Errorf("%w: written items exceed total", shared.ErrInvalidInput)
	}
	switch j.status {
	case ExportPending, ExportRunning, ExportCompleted, ExportFailed:
		return nil
	default:
		return fmt.Errorf("%w: unknown status %q", shared.ErrInvalidInput, j.status)
	}
}
