package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safeinsights/management-app-sub003/internal/common"
	"github.com/safeinsights/management-app-sub003/internal/domain/model"
)

type StudyJobRepository interface {
	CreateJob(ctx context.Context, job *model.StudyJob) error
	GetJobContext(ctx context.Context, jobID string) (*model.JobContext, error)

	// AppendStatusIfChanged appends a status change unless it equals the
	// job's current (last) status. The read and insert happen in one
	// transaction that locks the job row, so concurrent duplicate webhook
	// deliveries serialize and the loser observes "already recorded".
	AppendStatusIfChanged(ctx context.Context, jobID string, status model.JobStatus, userID *string) (bool, error)

	HasStatus(ctx context.Context, jobID string, status model.JobStatus) (bool, error)
	ListStatusChanges(ctx context.Context, jobID string) ([]model.JobStatusChange, error)

	// DeleteJobData is explicit teardown: the only path that removes
	// history. Removes status changes, file rows and the job itself.
	DeleteJobData(ctx context.Context, jobID string) error
}

type pgStudyJobRepository struct {
	db *sql.DB
}

func NewPgStudyJobRepository(db *sql.DB) StudyJobRepository {
	return &pgStudyJobRepository{db: db}
}

func (r *pgStudyJobRepository) CreateJob(ctx context.Context, job *model.StudyJob) error {
	query := `INSERT INTO study_jobs (id, study_id) VALUES ($1, $2) RETURNING created_at`
	err := r.db.QueryRowContext(ctx, query, job.ID, job.StudyID).Scan(&job.CreatedAt)
	if err != nil {
		return fmt.Errorf("pgStudyJobRepository.CreateJob: %w", err)
	}
	return nil
}

func (r *pgStudyJobRepository) GetJobContext(ctx context.Context, jobID string) (*model.JobContext, error) {
	query := `
        SELECT j.id, s.id, s.org_id, o.slug, s.researcher_id
        FROM study_jobs j
        JOIN studies s ON s.id = j.study_id
        JOIN orgs o ON o.id = s.org_id
        WHERE j.id = $1`

	jc := &model.JobContext{}
	err := r.db.QueryRowContext(ctx, query, jobID).Scan(&jc.JobID, &jc.StudyID, &jc.OrgID, &jc.OrgSlug, &jc.ResearcherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgStudyJobRepository.GetJobContext: %w", err)
	}
	return jc, nil
}

func (r *pgStudyJobRepository) AppendStatusIfChanged(ctx context.Context, jobID string, status model.JobStatus, userID *string) (inserted bool, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("pgStudyJobRepository.AppendStatusIfChanged: begin: %w", err)
	}
	defer tx.Rollback()

	// Row lock serializes concurrent check-then-insert for the same job.
	var lockedID string
	err = tx.QueryRowContext(ctx, `SELECT id FROM study_jobs WHERE id = $1 FOR UPDATE`, jobID).Scan(&lockedID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, common.ErrNotFound
		}
		return false, fmt.Errorf("pgStudyJobRepository.AppendStatusIfChanged: lock: %w", err)
	}

	var last model.JobStatus
	err = tx.QueryRowContext(ctx, `
        SELECT status FROM job_status_changes
        WHERE study_job_id = $1
        ORDER BY created_at DESC, id DESC
        LIMIT 1`, jobID).Scan(&last)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("pgStudyJobRepository.AppendStatusIfChanged: read last: %w", err)
	}
	if err == nil && last == status {
		return false, tx.Commit()
	}

	_, err = tx.ExecContext(ctx, `
        INSERT INTO job_status_changes (study_job_id, status, user_id)
        VALUES ($1, $2, $3)`, jobID, status, userID)
	if err != nil {
		return false, fmt.Errorf("pgStudyJobRepository.AppendStatusIfChanged: insert: %w", err)
	}
	return true, tx.Commit()
}

func (r *pgStudyJobRepository) HasStatus(ctx context.Context, jobID string, status model.JobStatus) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM job_status_changes WHERE study_job_id = $1 AND status = $2)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, jobID, status).Scan(&exists); err != nil {
		return false, fmt.Errorf("pgStudyJobRepository.HasStatus: %w", err)
	}
	return exists, nil
}

func (r *pgStudyJobRepository) ListStatusChanges(ctx context.Context, jobID string) ([]model.JobStatusChange, error) {
	query := `
        SELECT id, study_job_id, status, user_id, created_at
        FROM job_status_changes
        WHERE study_job_id = $1
        ORDER BY created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("pgStudyJobRepository.ListStatusChanges: %w", err)
	}
	defer rows.Close()

	var changes []model.JobStatusChange
	for rows.Next() {
		var c model.JobStatusChange
		if err := rows.Scan(&c.ID, &c.StudyJobID, &c.Status, &c.UserID, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("pgStudyJobRepository.ListStatusChanges: scan: %w", err)
		}
		changes = append(changes, c)
	}
	return changes, rows.Err()
}

func (r *pgStudyJobRepository) DeleteJobData(ctx context.Context, jobID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("pgStudyJobRepository.DeleteJobData: begin: %w", err)
	}
	defer tx.Rollback()

	for _, query := range []string{
		`DELETE FROM job_status_changes WHERE study_job_id = $1`,
		`DELETE FROM study_job_files WHERE study_job_id = $1`,
		`DELETE FROM study_jobs WHERE id = $1`,
	} {
		if _, err := tx.ExecContext(ctx, query, jobID); err != nil {
			return fmt.Errorf("pgStudyJobRepository.DeleteJobData: %w", err)
		}
	}
	return tx.Commit()
}
