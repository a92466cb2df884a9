package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/scrobblex/internal/models"
	"github.com/desertthunder/scrobblex/internal/shared"
)

const snapshotColumns = `id, sequence, profile_id, period, payload, generated_at, created_at, updated_at`

// SnapshotRepository implements models.Repository[*models.Snapshot] for cached dashboards.
type SnapshotRepository struct {
	db *sql.DB
}

// NewSnapshotRepository creates a new SnapshotRepository with the given database connection
func NewSnapshotRepository(db *sql.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Create inserts a new snapshot with generated ID and sequence
func (r *SnapshotRepository) Create(s *models.Snapshot) error {
	sequence, err := NextSequence(r.db, "snapshots")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	s.SetID(id)
	s.SetSequence(sequence)

	if err := s.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `INSERT INTO snapshots (` + snapshotColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.Exec(query,
		id, sequence, s.ProfileID(), string(s.Period()), s.Payload(), s.GeneratedAt().UTC(),
		s.CreatedAt(), s.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}

	return nil
}

// Get retrieves a snapshot by ID, excluding soft-deleted snapshots
func (r *SnapshotRepository) Get(id string) (*models.Snapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM snapshots WHERE id = ? AND deleted_at IS NULL`

	s, err := scanSnapshot(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: snapshot %s", shared.ErrNotFound, id)
	}
	return s, err
}

// Latest retrieves the newest snapshot of a profile and period.
func (r *SnapshotRepository) Latest(profileID string, period models.Period) (*models.Snapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM snapshots
		WHERE profile_id = ? AND period = ? AND deleted_at IS NULL
		ORDER BY generated_at DESC, sequence DESC
		LIMIT 1
	`

	s, err := scanSnapshot(r.db.QueryRow(query, profileID, string(period)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: snapshot for %s/%s", shared.ErrNotFound, profileID, period)
	}
	return s, err
}

// Fresh returns the newest snapshot younger than ttl at now, or an error wrapping [shared.ErrNotFound].
func (r *SnapshotRepository) Fresh(profileID string, period models.Period, now time.Time, ttl time.Duration) (*models.Snapshot, error) {
	s, err := r.Latest(profileID, period)
	if err != nil {
		return nil, err
	}
	if !s.Fresh(now, ttl) {
		return nil, fmt.Errorf("%w: snapshot for %s/%s expired", shared.ErrNotFound, profileID, period)
	}
	return s, nil
}

// Update replaces the payload of an existing snapshot
func (r *SnapshotRepository) Update(s *models.Snapshot) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	s.SetUpdatedAt(now)

	query := `
		UPDATE snapshots
		SET payload = ?, generated_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, s.Payload(), s.GeneratedAt().UTC(), now, s.ID())
	if err != nil {
		return fmt.Errorf("failed to update snapshot: %w", err)
	}

	return checkAffected(result, fmt.Errorf("%w: snapshot %s", shared.ErrNotFound, s.ID()))
}

// Delete soft-deletes a snapshot by ID
func (r *SnapshotRepository) Delete(id string) error {
	result, err := r.db.Exec(`UPDATE snapshots SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}

	return checkAffected(result, fmt.Errorf("%w: snapshot %s", shared.ErrNotFound, id))
}

// Expire soft-deletes every snapshot of a profile generated before cutoff and returns the count.
func (r *SnapshotRepository) Expire(profileID string, cutoff time.Time) (int, error) {
	result, err := r.db.Exec(
		`UPDATE snapshots SET deleted_at = ? WHERE profile_id = ? AND generated_at < ? AND deleted_at IS NULL`,
		time.Now(), profileID, cutoff.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to expire snapshots: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return int(n), nil
}

// List retrieves snapshots newest first, excluding soft-deleted snapshots
//
// Supported criteria: "profile_id" (string), "period" ([models.Period] or string).
func (r *SnapshotRepository) List(criteria map[string]any) ([]*models.Snapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM snapshots WHERE deleted_at IS NULL`
	args := []any{}

	if profileID, ok := criteria["profile_id"].(string); ok && profileID != "" {
		query += " AND profile_id = ?"
		args = append(args, profileID)
	}

	switch period := criteria["period"].(type) {
	case models.Period:
		query += " AND period = ?"
		args = append(args, string(period))
	case string:
		if period != "" {
			query += " AND period = ?"
			args = append(args, period)
		}
	}

	query += " ORDER BY generated_at DESC, sequence DESC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var out []*models.Snapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
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

func scanSnapshot(s scanner) (*models.Snapshot, error) {
	var (
		id, profileID, period              string
		sequence                           int
		payload                            []byte
		generatedAt, createdAt, updatedAt time.Time
	)

	err := s.Scan(&id, &sequence, &profileID, &period, &payload, &generatedAt, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan snapshot: %w", err)
	}

	snap := models.NewSnapshot(sequence, profileID, models.Period(period), payload, generatedAt.UTC())
	snap.SetID(id)
	snap.SetCreatedAt(createdAt)
	snap.SetUpdatedAt(updatedAt)
	return snap, nil
}
