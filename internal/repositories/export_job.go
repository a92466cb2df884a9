package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/scrobblex/internal/models"
	"github.com/desertthunder/scrobblex/internal/shared"
)

const exportJobColumns = `id, sequence, profile_id, format, status, output_path, total_items, written_items,
	error_message, started_at, completed_at, created_at, updated_at`

// ExportJobRepository implements models.Repository[*models.ExportJob] for export tracking.
type ExportJobRepository struct {
	db *sql.DB
}

// NewExportJobRepository creates a new ExportJobRepository with the given database connection
func NewExportJobRepository(db *sql.DB) *ExportJobRepository {
	return &ExportJobRepository{db: db}
}

// Create inserts a new export job into the database with generated ID and sequence
func (r *ExportJobRepository) Create(job *models.ExportJob) error {
	sequence, err := NextSequence(r.db, "export_jobs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	job.SetID(id)
	job.SetSequence(sequence)

	if err := job.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `INSERT INTO export_jobs (` + exportJobColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.Exec(query,
		id,
		sequence,
		job.ProfileID(),
		job.Format(),
		string(job.Status()),
		job.OutputPath(),
		job.TotalItems(),
		job.WrittenItems(),
		job.ErrorMessage(),
		nullTime(job.StartedAt()),
		nullTime(job.CompletedAt()),
		job.CreatedAt(),
		job.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert export job: %w", err)
	}

	return nil
}

// Get retrieves an export job by ID
func (r *ExportJobRepository) Get(id string) (*models.ExportJob, error) {
	query := `SELECT ` + exportJobColumns + ` FROM export_jobs WHERE id = ?`

	job, err := scanExportJob(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: export job %s", shared.ErrNotFound, id)
	}
	return job, err
}

// Update modifies an existing export job in the database
func (r *ExportJobRepository) Update(job *models.ExportJob) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	job.SetUpdatedAt(now)

	query := `
		UPDATE export_jobs
		SET status = ?, output_path = ?, total_items = ?, written_items = ?, error_message = ?,
			started_at = ?, completed_at = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query,
		string(job.Status()),
		job.OutputPath(),
		job.TotalItems(),
		job.WrittenItems(),
		job.ErrorMessage(),
		nullTime(job.StartedAt()),
		nullTime(job.CompletedAt()),
		now,
		job.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update export job: %w", err)
	}

	return checkAffected(result, fmt.Errorf("%w: export job %s", shared.ErrNotFound, job.ID()))
}

// Delete removes an export job by ID
func (r *ExportJobRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM export_jobs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete export job: %w", err)
	}

	return checkAffected(result, fmt.Errorf("%w: export job %s", shared.ErrNotFound, id))
}

// List retrieves export jobs newest first
//
// Supported criteria: "profile_id" (string), "status" ([models.ExportStatus] or string), "format" (string).
func (r *ExportJobRepository) List(criteria map[string]any) ([]*models.ExportJob, error) {
	query := `SELECT ` + exportJobColumns + ` FROM export_jobs WHERE 1 = 1`
	args := []any{}

	if profileID, ok := criteria["profile_id"].(string); ok && profileID != "" {
		query += " AND profile_id = ?"
		args = append(args, profileID)
	}

	switch status := criteria["status"].(type) {
	case models.ExportStatus:
		query += " AND status = ?"
		args = append(args, string(status))
	case string:
		if status != "" {
			query += " AND status = ?"
			args = append(args, status)
		}
	}

	if format, ok := criteria["format"].(string); ok && format != "" {
		query += " AND format = ?"
		args = append(args, format)
	}

	query += " ORDER BY sequence DESC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query export jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.ExportJob
	for rows.Next() {
		job, err := scanExportJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return jobs, nil
}

func scanExportJob(s scanner) (*models.ExportJob, error) {
	var (
		id, profileID, format, status, outputPath, errorMessage string
		sequence, totalItems, writtenItems                      int
		startedAt, completedAt                                  sql.NullTime
		createdAt, updatedAt                                    time.Time
	)

	err := s.Scan(&id, &sequence, &profileID, &format, &status, &outputPath, &totalItems, &writtenItems,
		&errorMessage, &startedAt, &completedAt, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan export job: %w", err)
	}

	job := models.NewExportJob(sequence, profileID, format)
	job.SetID(id)
	job.SetStatus(models.ExportStatus(status))
	job.SetOutputPath(outputPath)
	job.SetProgress(writtenItems, totalItems)
	job.SetErrorMessage(errorMessage)
	job.SetStartedAt(timePtr(startedAt))
	job.SetCompletedAt(timePtr(completedAt))
	job.SetCreatedAt(createdAt)
	job.SetUpdatedAt(updatedAt)
	return job, nil
}
