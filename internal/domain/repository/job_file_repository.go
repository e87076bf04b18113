package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/safeinsights/management-app-sub003/internal/common"
	"github.com/safeinsights/management-app-sub003/internal/domain/model"
)

type JobFileRepository interface {
	CreateJobFile(ctx context.Context, file *model.JobFile) error
	HasFileOfType(ctx context.Context, jobID string, fileType model.FileType) (bool, error)
	ListByJob(ctx context.Context, jobID string) ([]model.JobFile, error)
}

type pgJobFileRepository struct {
	db *sql.DB
}

func NewPgJobFileRepository(db *sql.DB) JobFileRepository {
	return &pgJobFileRepository{db: db}
}

func (r *pgJobFileRepository) CreateJobFile(ctx context.Context, f *model.JobFile) error {
	query := `INSERT INTO study_job_files (id, study_job_id, name, path, file_type)
	          VALUES ($1, $2, $3, $4, $5) RETURNING created_at`
	err := r.db.QueryRowContext(ctx, query, f.ID, f.StudyJobID, f.Name, f.Path, f.FileType).Scan(&f.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			// Partial unique index on encrypted log types: a concurrent
			// archival already stored one for this job.
			return fmt.Errorf("job already has a %s file: %w", f.FileType, common.ErrConflict)
		}
		return fmt.Errorf("pgJobFileRepository.CreateJobFile: %w", err)
	}
	return nil
}

func (r *pgJobFileRepository) HasFileOfType(ctx context.Context, jobID string, fileType model.FileType) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM study_job_files WHERE study_job_id = $1 AND file_type = $2)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, jobID, fileType).Scan(&exists); err != nil {
		return false, fmt.Errorf("pgJobFileRepository.HasFileOfType: %w", err)
	}
	return exists, nil
}

func (r *pgJobFileRepository) ListByJob(ctx context.Context, jobID string) ([]model.JobFile, error) {
	query := `SELECT id, study_job_id, name, path, file_type, created_at
	          FROM study_job_files WHERE study_job_id = $1 ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("pgJobFileRepository.ListByJob: %w", err)
	}
	defer rows.Close()

	var files []model.JobFile
	for rows.Next() {
		var f model.JobFile
		if err := rows.Scan(&f.ID, &f.StudyJobID, &f.Name, &f.Path, &f.FileType, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("pgJobFileRepository.ListByJob: scan: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}
