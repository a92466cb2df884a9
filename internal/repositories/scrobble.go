package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/scrobblex/internal/models"
	"github.com/desertthunder/scrobblex/internal/shared"
)

const scrobbleColumns = `id, sequence, profile_id, track, artist, album, played_at, created_at, updated_at`

// ScrobbleRepository implements models.Repository[*models.CachedScrobble] for listening history.
//
// Rows are unique per (profile, played_at, track key); saving a scrobble twice is a no-op.
type ScrobbleRepository struct {
	db *sql.DB
}

// NewScrobbleRepository creates a new ScrobbleRepository with the given database connection
func NewScrobbleRepository(db *sql.DB) *ScrobbleRepository {
	return &ScrobbleRepository{db: db}
}

// Create inserts a new [models.CachedScrobble] with generated ID and sequence
func (r *ScrobbleRepository) Create(s *models.CachedScrobble) error {
	sequence, err := NextSequence(r.db, "scrobbles")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	s.SetID(id)
	s.SetSequence(sequence)

	if err := s.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sc := s.Scrobble()
	query := `
		INSERT INTO scrobbles (id, sequence, profile_id, track_key, track, artist, album, played_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id, sequence, s.ProfileID(), s.TrackKey(), sc.Track, sc.Artist, sc.Album, sc.PlayedAt.UTC(),
		s.CreatedAt(), s.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert scrobble: %w", err)
	}

	return nil
}

// SaveAll stores scrobbles for a profile in one transaction and returns how many were new.
//
// Now-playing entries and already cached scrobbles are skipped.
func (r *ScrobbleRepository) SaveAll(profileID string, scrobbles []models.Scrobble) (int, error) {
	var fresh []*models.CachedScrobble
	for _, sc := range scrobbles {
		c := models.NewCachedScrobble(0, profileID, sc)
		if c.Validate() != nil {
			continue
		}
		fresh = append(fresh, c)
	}
	if len(fresh) == 0 {
		return 0, nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var base int
	if err := tx.QueryRow("SELECT value FROM scrobbles_sequence WHERE id = 1").Scan(&base); err != nil {
		return 0, fmt.Errorf("failed to get sequence value: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO scrobbles
			(id, sequence, profile_id, track_key, track, artist, album, played_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, c := range fresh {
		sc := c.Scrobble()
		result, err := stmt.Exec(
			shared.GenerateID(), base+inserted+1, profileID, c.TrackKey(), sc.Track, sc.Artist, sc.Album,
			sc.PlayedAt.UTC(), c.CreatedAt(), c.UpdatedAt(),
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert scrobble: %w", err)
		}
		if n, _ := result.RowsAffected(); n > 0 {
			inserted++
		}
	}

	if _, err := tx.Exec("UPDATE scrobbles_sequence SET value = ? WHERE id = 1", base+inserted); err != nil {
		return 0, fmt.Errorf("failed to advance sequence: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit scrobbles: %w", err)
	}
	return inserted, nil
}

// Get retrieves a scrobble by ID
func (r *ScrobbleRepository) Get(id string) (*models.CachedScrobble, error) {
	query := `SELECT ` + scrobbleColumns + ` FROM scrobbles WHERE id = ?`

	s, err := scanScrobble(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: scrobble %s", shared.ErrNotFound, id)
	}
	return s, err
}

// Update corrects the album of a cached scrobble. Track, artist and time identify the row and are not changed.
func (r *ScrobbleRepository) Update(s *models.CachedScrobble) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	s.SetUpdatedAt(now)

	result, err := r.db.Exec(`UPDATE scrobbles SET album = ?, updated_at = ? WHERE id = ?`,
		s.Scrobble().Album, now, s.ID())
	if err != nil {
		return fmt.Errorf("failed to update scrobble: %w", err)
	}

	return checkAffected(result, fmt.Errorf("%w: scrobble %s", shared.ErrNotFound, s.ID()))
}

// Delete removes a scrobble by ID
func (r *ScrobbleRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM scrobbles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete scrobble: %w", err)
	}

	return checkAffected(result, fmt.Errorf("%w: scrobble %s", shared.ErrNotFound, id))
}

// List retrieves scrobbles newest first.
//
// Supported criteria: "profile_id" (string), "artist" (string), "from" and "to" ([time.Time], inclusive),
// "limit" (int).
func (r *ScrobbleRepository) List(criteria map[string]any) ([]*models.CachedScrobble, error) {
	query := `SELECT ` + scrobbleColumns + ` FROM scrobbles WHERE 1 = 1`
	args := []any{}

	if profileID, ok := criteria["profile_id"].(string); ok && profileID != "" {
		query += " AND profile_id = ?"
		args = append(args, profileID)
	}

	if artist, ok := criteria["artist"].(string); ok && artist != "" {
		query += " AND artist = ? COLLATE NOCASE"
		args = append(args, artist)
	}

	if from, ok := criteria["from"].(time.Time); ok && !from.IsZero() {
		query += " AND played_at >= ?"
		args = append(args, from.UTC())
	}

	if to, ok := criteria["to"].(time.Time); ok && !to.IsZero() {
		query += " AND played_at <= ?"
		args = append(args, to.UTC())
	}

	query += " ORDER BY played_at DESC, sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query scrobbles: %w", err)
	}
	defer rows.Close()

	var out []*models.CachedScrobble
	for rows.Next() {
		s, err := scanScrobble(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return out, nil
}

// History returns the cached scrobbles of a profile, newest first.
func (r *ScrobbleRepository) History(profileID string) ([]models.Scrobble, error) {
	cached, err := r.List(map[string]any{"profile_id": profileID})
	if err != nil {
		return nil, err
	}

	out := make([]models.Scrobble, len(cached))
	for i, c := range cached {
		out[i] = c.Scrobble()
	}
	return out, nil
}

// Latest returns the time of the newest cached scrobble of a profile, or the zero time.
func (r *ScrobbleRepository) Latest(profileID string) (time.Time, error) {
	var latest time.Time
	err := r.db.QueryRow(
		`SELECT played_at FROM scrobbles WHERE profile_id = ? ORDER BY played_at DESC LIMIT 1`, profileID,
	).Scan(&latest)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to query latest scrobble: %w", err)
	}
	return latest.UTC(), nil
}

// Count returns the number of cached scrobbles of a profile.
func (r *ScrobbleRepository) Count(profileID string) (int, error) {
	var n int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM scrobbles WHERE profile_id = ?`, profileID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count scrobbles: %w", err)
	}
	return n, nil
}

func scanScrobble(s scanner) (*models.CachedScrobble, error) {
	var (
		id, profileID, track, artist, album string
		sequence                            int
		playedAt, createdAt, updatedAt      time.Time
	)

	err := s.Scan(&id, &sequence, &profileID, &track, &artist, &album, &playedAt, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan scrobble: %w", err)
	}

	c := models.NewCachedScrobble(sequence, profileID, models.Scrobble{
		Track:    track,
		Artist:   artist,
		Album:    album,
		PlayedAt: playedAt.UTC(),
	})
	c.SetID(id)
	c.SetCreatedAt(createdAt)
	c.SetUpdatedAt(updatedAt)
	return c, nil
}
