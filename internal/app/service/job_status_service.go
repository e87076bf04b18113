package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/safeinsights/management-app-sub003/internal/common"
	"github.com/safeinsights/management-app-sub003/internal/cryptox"
	"github.com/safeinsights/management-app-sub003/internal/domain/model"
	"github.com/safeinsights/management-app-sub003/internal/domain/repository"
	"github.com/safeinsights/management-app-sub003/internal/platform/storage"
)

// RecipientResolver is the slice of the key registry the tracker needs.
type RecipientResolver interface {
	LookupKeysForOrg(ctx context.Context, orgID string) ([]cryptox.Recipient, error)
}

// JobStatusService records lifecycle transitions for study jobs,
// idempotently, and archives encrypted logs as a best-effort side effect.
type JobStatusService struct {
	jobRepo  repository.StudyJobRepository
	fileRepo repository.JobFileRepository
	keys     RecipientResolver
	store    storage.ObjectStore
	logger   *slog.Logger
}

func NewJobStatusService(
	jobRepo repository.StudyJobRepository,
	fileRepo repository.JobFileRepository,
	keys RecipientResolver,
	store storage.ObjectStore,
	logger *slog.Logger,
) *JobStatusService {
	return &JobStatusService{
		jobRepo:  jobRepo,
		fileRepo: fileRepo,
		keys:     keys,
		store:    store,
		logger:   logger,
	}
}

const (
	encryptedLogBundleName  = "encrypted-logs.zip"
	encryptedScanBundleName = "encrypted-scan-logs.zip"
	errorLogEntryName       = "error-log.txt"
	scanLogEntryName        = "scan-log.txt"
)

// RecordStatus appends one status change to a job's history. Re-recording
// the job's current status is a no-op success, so webhook retries and
// concurrent duplicate deliveries are safe.
//
// When the pipeline reports JOB-ERRORED with a plaintext log before the job
// ever reached JOB-READY, the log is encrypted for the org's recipients and
// stored so reviewers can use the normal decrypt flow on build failures.
// That archival is strictly best-effort: any failure in it is logged with
// job context and never fails the recorded status.
func (s *JobStatusService) RecordStatus(ctx context.Context, jobID string, status model.JobStatus, actorID *string, plaintextLog string) error {
	if !status.IsValid() {
		return fmt.Errorf("unknown job status %q: %w", status, common.ErrValidation)
	}

	job, err := s.jobRepo.GetJobContext(ctx, jobID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return fmt.Errorf("job %s not found: %w", jobID, common.ErrNotFound)
		}
		return err
	}

	userID := actorID
	if userID == nil {
		// Pipeline webhooks carry no user; attribute to the researcher who
		// submitted the code.
		userID = &job.ResearcherID
	}

	inserted, err := s.jobRepo.AppendStatusIfChanged(ctx, jobID, status, userID)
	if err != nil {
		return fmt.Errorf("recording status %s for job %s: %w", status, jobID, err)
	}
	if !inserted {
		s.logger.Info("status already recorded", "jobId", jobID, "status", status)
	}

	if plaintextLog == "" {
		return nil
	}
	switch status {
	case model.JobStatusErrored:
		s.archiveLog(ctx, job, plaintextLog, model.FileTypeEncryptedLog)
	case model.JobStatusCodeScanned:
		s.archiveLog(ctx, job, plaintextLog, model.FileTypeEncryptedSecurityLog)
	}
	return nil
}

// archiveLog encrypts and stores a plaintext log for the job's org. All
// failures are swallowed after logging; only a fresh qualifying status
// event triggers another attempt.
func (s *JobStatusService) archiveLog(ctx context.Context, job *model.JobContext, plaintextLog string, fileType model.FileType) {
	if err := s.tryArchiveLog(ctx, job, plaintextLog, fileType); err != nil {
		s.logger.Error("failed to encrypt and store log",
			"jobId", job.JobID, "studyId", job.StudyID, "orgId", job.OrgID,
			"fileType", fileType, "error", err)
	}
}

func (s *JobStatusService) tryArchiveLog(ctx context.Context, job *model.JobContext, plaintextLog string, fileType model.FileType) error {
	hasLog, err := s.fileRepo.HasFileOfType(ctx, job.JobID, fileType)
	if err != nil {
		return err
	}
	if hasLog {
		return nil
	}

	if fileType == model.FileTypeEncryptedLog {
		// Once a job has reached JOB-READY the enclave produces its own
		// encrypted run log; the packaging-error log is only for failures
		// before that point. Note: this asks "was JOB-READY ever recorded",
		// not "did it precede this JOB-ERRORED".
		reachedReady, err := s.jobRepo.HasStatus(ctx, job.JobID, model.JobStatusReady)
		if err != nil {
			return err
		}
		if reachedReady {
			return nil
		}
	}

	recipients, err := s.keys.LookupKeysForOrg(ctx, job.OrgID)
	if err != nil {
		return err
	}
	if len(recipients) == 0 {
		s.logger.Warn("no org recipient keys found; cannot store encrypted log",
			"jobId", job.JobID, "orgId", job.OrgID)
		return nil
	}

	writer, err := cryptox.NewWriter(recipients)
	if err != nil {
		return err
	}
	bundleName, entryName := encryptedLogBundleName, errorLogEntryName
	if fileType == model.FileTypeEncryptedSecurityLog {
		bundleName, entryName = encryptedScanBundleName, scanLogEntryName
	}
	writer.AddFile(entryName, []byte(plaintextLog))
	bundle, err := writer.Generate()
	if err != nil {
		return err
	}

	path := storage.PathForJobFile(job.OrgSlug, job.StudyID, job.JobID, "logs", bundleName)
	if err := s.store.Put(ctx, path, bundle); err != nil {
		return err
	}

	file := &model.JobFile{
		ID:         uuid.NewString(),
		StudyJobID: job.JobID,
		Name:       bundleName,
		Path:       path,
		FileType:   fileType,
	}
	if err := s.fileRepo.CreateJobFile(ctx, file); err != nil {
		if errors.Is(err, common.ErrConflict) {
			// A concurrent archival won the unique index. Both bundles sit
			// at the same path with the same plaintext, so nothing to undo.
			s.logger.Info("encrypted log already stored by concurrent request", "jobId", job.JobID)
			return nil
		}
		return err
	}
	return nil
}
