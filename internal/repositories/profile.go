package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/scrobblex/internal/models"
	"github.com/desertthunder/scrobblex/internal/shared"
)

const profileColumns = `id, sequence, username, real_name, url, country, playcount, registered_at,
	session_key, theme, created_at, updated_at`

// ProfileRepository implements [models.Repository] for [models.Profile] persistence.
type ProfileRepository struct {
	db *sql.DB
}

// NewProfileRepository creates a new [ProfileRepository] with the given database connection
func NewProfileRepository(db *sql.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Create inserts a new profile into the database with generated ID and sequence
func (r *ProfileRepository) Create(p *models.Profile) error {
	sequence, err := NextSequence(r.db, "profiles")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	p.SetID(id)
	p.SetSequence(sequence)

	if err := p.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO profiles (` + profileColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	registered := p.RegisteredAt()
	_, err = r.db.Exec(query,
		id, sequence, p.Username(), p.RealName(), p.URL(), p.Country(), p.Playcount(), nullTime(&registered),
		p.SessionKey(), p.Theme(), p.CreatedAt(), p.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert profile: %w", err)
	}

	return nil
}

// Get retrieves a profile by ID, excluding soft-deleted profiles
func (r *ProfileRepository) Get(id string) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = ? AND deleted_at IS NULL`
	return r.scanOne(r.db.QueryRow(query, id), id)
}

// GetByUsername retrieves a profile by Last.fm username, ignoring case.
func (r *ProfileRepository) GetByUsername(username string) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE username = ? COLLATE NOCASE AND deleted_at IS NULL`
	return r.scanOne(r.db.QueryRow(query, username), username)
}

// Update modifies an existing profile in the database
func (r *ProfileRepository) Update(p *models.Profile) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	p.SetUpdatedAt(now)

	query := `
		UPDATE profiles
		SET real_name = ?, url = ?, country = ?, playcount = ?, registered_at = ?,
			session_key = ?, theme = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	registered := p.RegisteredAt()
	result, err := r.db.Exec(query,
		p.RealName(), p.URL(), p.Country(), p.Playcount(), nullTime(&registered),
		p.SessionKey(), p.Theme(), now, p.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}

	return checkAffected(result, fmt.Errorf("%w: profile %s", shared.ErrNotFound, p.ID()))
}

// Delete soft-deletes a profile by ID
func (r *ProfileRepository) Delete(id string) error {
	query := `UPDATE profiles SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`

	result, err := r.db.Exec(query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}

	return checkAffected(result, fmt.Errorf("%w: profile %s", shared.ErrNotFound, id))
}

// List retrieves all profiles matching the given criteria, excluding soft-deleted profiles
//
// Supported criteria: "username" (string), "theme" (string).
func (r *ProfileRepository) List(criteria map[string]any) ([]*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE deleted_at IS NULL`
	args := []any{}

	if username, ok := criteria["username"].(string); ok && username != "" {
		query += " AND username = ? COLLATE NOCASE"
		args = append(args, username)
	}

	if theme, ok := criteria["theme"].(string); ok && theme != "" {
		query += " AND theme = ?"
		args = append(args, theme)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*models.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return profiles, nil
}

// Sync creates or refreshes the profile of a Last.fm user from a user.getInfo response.
func (r *ProfileRepository) Sync(info models.UserInfo) (*models.Profile, error) {
	existing, err := r.GetByUsername(info.Name)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		p := models.ProfileFromUserInfo(info)
		if err := r.Create(p); err != nil {
			return nil, err
		}
		return p, nil
	case err != nil:
		return nil, err
	}

	existing.ApplyUserInfo(info)
	if err := r.Update(existing); err != nil {
		return nil, err
	}
	return existing, nil
}

func (r *ProfileRepository) scanOne(row *sql.Row, key string) (*models.Profile, error) {
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: profile %s", shared.ErrNotFound, key)
	}
	return p, err
}

func scanProfile(s scanner) (*models.Profile, error) {
	var (
		id, username, realName, url, country, sessionKey, theme string
		sequence, playcount                                     int
		registeredAt                                            sql.NullTime
		createdAt, updatedAt                                    time.Time
	)

	err := s.Scan(&id, &sequence, &username, &realName, &url, &country, &playcount, &registeredAt,
		&sessionKey, &theme, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan profile: %w", err)
	}

	p := models.NewProfile(sequence, username)
	p.SetID(id)
	p.SetDetails(realName, url, country, playcount)
	if registeredAt.Valid {
		p.SetRegisteredAt(registeredAt.Time)
	}
	p.SetSessionKey(sessionKey)
	p.SetTheme(theme)
	p.SetCreatedAt(createdAt)
	p.SetUpdatedAt(updatedAt)
	return p, nil
}
