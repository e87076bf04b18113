package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safeinsights/management-app-sub003/internal/common"
	"github.com/safeinsights/management-app-sub003/internal/domain/model"
)

const jobID = "7b0c9e1a-5b60-4a68-9c16-000000000001"

func newMockRepo(t *testing.T) (StudyJobRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPgStudyJobRepository(db), mock
}

func TestAppendStatusIfChangedInsertsWhenDifferent(t *testing.T) {
	repo, mock := newMockRepo(t)
	userID := "researcher-1"

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM study_jobs WHERE id = $1 FOR UPDATE`)).
		WithArgs(jobID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(jobID))
	mock.ExpectQuery(`SELECT status FROM job_status_changes`).
		WithArgs(jobID).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("JOB-PACKAGING"))
	mock.ExpectExec(`INSERT INTO job_status_changes`).
		WithArgs(jobID, model.JobStatusReady, &userID).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	inserted, err := repo.AppendStatusIfChanged(context.Background(), jobID, model.JobStatusReady, &userID)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendStatusIfChangedSkipsDuplicate(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM study_jobs WHERE id = $1 FOR UPDATE`)).
		WithArgs(jobID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(jobID))
	mock.ExpectQuery(`SELECT status FROM job_status_changes`).
		WithArgs(jobID).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("JOB-PACKAGING"))
	// No insert: the transaction commits without touching the history.
	mock.ExpectCommit()

	inserted, err := repo.AppendStatusIfChanged(context.Background(), jobID, model.JobStatusPackaging, nil)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendStatusIfChangedInsertsFirstStatus(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM study_jobs WHERE id = $1 FOR UPDATE`)).
		WithArgs(jobID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(jobID))
	mock.ExpectQuery(`SELECT status FROM job_status_changes`).
		WithArgs(jobID).
		WillReturnRows(sqlmock.NewRows([]string{"status"}))
	mock.ExpectExec(`INSERT INTO job_status_changes`).
		WithArgs(jobID, model.JobStatusInitiated, nil).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	inserted, err := repo.AppendStatusIfChanged(context.Background(), jobID, model.JobStatusInitiated, nil)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendStatusIfChangedUnknownJob(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM study_jobs WHERE id = $1 FOR UPDATE`)).
		WithArgs(jobID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	inserted, err := repo.AppendStatusIfChanged(context.Background(), jobID, model.JobStatusPackaging, nil)
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.False(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListStatusChanges(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()
	userID := "researcher-1"

	mock.ExpectQuery(`SELECT id, study_job_id, status, user_id, created_at`).
		WithArgs(jobID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "study_job_id", "status", "user_id", "created_at"}).
			AddRow(1, jobID, "INITIATED", &userID, now).
			AddRow(2, jobID, "CODE-SUBMITTED", &userID, now.Add(time.Second)))

	changes, err := repo.ListStatusChanges(context.Background(), jobID)
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.Equal(t, model.JobStatusInitiated, changes[0].Status)
	assert.Equal(t, model.JobStatusCodeSubmitted, changes[1].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteJobDataRemovesEverythingInOneTx(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM job_status_changes`).WithArgs(jobID).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`DELETE FROM study_job_files`).WithArgs(jobID).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM study_jobs`).WithArgs(jobID).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.DeleteJobData(context.Background(), jobID))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetJobContextNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT j.id, s.id, s.org_id, o.slug, s.researcher_id`).
		WithArgs(jobID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "id", "org_id", "slug", "researcher_id"}))

	_, err := repo.GetJobContext(context.Background(), jobID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}
