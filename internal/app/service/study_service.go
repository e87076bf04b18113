package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/safeinsights/management-app-sub003/internal/common"
	"github.com/safeinsights/management-app-sub003/internal/domain/model"
	"github.com/safeinsights/management-app-sub003/internal/domain/repository"
	"github.com/safeinsights/management-app-sub003/internal/platform/storage"
)

// StudyService covers the researcher-facing flows around the tracker:
// proposing studies, submitting code as a new job, and reading a job's
// history back for display.
type StudyService struct {
	studyRepo repository.StudyRepository
	orgRepo   repository.OrgRepository
	jobRepo   repository.StudyJobRepository
	fileRepo  repository.JobFileRepository
	store     storage.ObjectStore
	logger    *slog.Logger
}

func NewStudyService(
	studyRepo repository.StudyRepository,
	orgRepo repository.OrgRepository,
	jobRepo repository.StudyJobRepository,
	fileRepo repository.JobFileRepository,
	store storage.ObjectStore,
	logger *slog.Logger,
) *StudyService {
	return &StudyService{
		studyRepo: studyRepo,
		orgRepo:   orgRepo,
		jobRepo:   jobRepo,
		fileRepo:  fileRepo,
		store:     store,
		logger:    logger,
	}
}

type CreateStudyRequest struct {
	OrgID string `json:"org_id"`
	Title string `json:"title"`
}

func (s *StudyService) CreateStudy(ctx context.Context, researcherID string, req CreateStudyRequest) (*model.Study, error) {
	if req.OrgID == "" || req.Title == "" {
		return nil, fmt.Errorf("org_id and title are required: %w", common.ErrValidation)
	}
	member, err := s.orgRepo.GetMember(ctx, req.OrgID, researcherID)
	if err != nil {
		return nil, fmt.Errorf("org membership for %s: %w", researcherID, err)
	}
	if !member.IsResearcher {
		return nil, fmt.Errorf("user is not a researcher in this org: %w", common.ErrForbidden)
	}

	study := &model.Study{
		ID:           uuid.NewString(),
		OrgID:        req.OrgID,
		ResearcherID: researcherID,
		Title:        req.Title,
		Status:       model.StudyStatusPendingReview,
	}
	if err := s.studyRepo.CreateStudy(ctx, study); err != nil {
		return nil, err
	}
	return study, nil
}

type SubmitJobRequest struct {
	CodeFileName string `json:"code_file_name"`
	Code         []byte `json:"code"`
}

// SubmitJob creates a fresh StudyJob for a study (each resubmission is a
// new job), stages the main code file in the object store, and seeds the
// history with INITIATED then CODE-SUBMITTED.
func (s *StudyService) SubmitJob(ctx context.Context, userID, studyID string, req SubmitJobRequest) (*model.StudyJob, error) {
	if req.CodeFileName == "" || len(req.Code) == 0 {
		return nil, fmt.Errorf("code_file_name and code are required: %w", common.ErrValidation)
	}

	study, err := s.studyRepo.GetStudyByID(ctx, studyID)
	if err != nil {
		return nil, fmt.Errorf("study %s: %w", studyID, err)
	}
	org, err := s.orgRepo.GetOrgByID(ctx, study.OrgID)
	if err != nil {
		return nil, err
	}

	job := &model.StudyJob{ID: uuid.NewString(), StudyID: study.ID}
	if err := s.jobRepo.CreateJob(ctx, job); err != nil {
		return nil, err
	}
	if _, err := s.jobRepo.AppendStatusIfChanged(ctx, job.ID, model.JobStatusInitiated, &userID); err != nil {
		return nil, err
	}

	path := storage.PathForJobFile(org.Slug, study.ID, job.ID, "code", req.CodeFileName)
	if err := s.store.Put(ctx, path, req.Code); err != nil {
		return nil, fmt.Errorf("storing code for job %s: %w", job.ID, err)
	}
	file := &model.JobFile{
		ID:         uuid.NewString(),
		StudyJobID: job.ID,
		Name:       storage.SanitizeFileName(req.CodeFileName),
		Path:       path,
		FileType:   model.FileTypeMainCode,
	}
	if err := s.fileRepo.CreateJobFile(ctx, file); err != nil {
		return nil, err
	}

	if _, err := s.jobRepo.AppendStatusIfChanged(ctx, job.ID, model.JobStatusCodeSubmitted, &userID); err != nil {
		return nil, err
	}
	return job, nil
}

type JobStatusView struct {
	JobID   string                  `json:"job_id"`
	History []model.JobStatusChange `json:"history"`
	Label   StatusLabel             `json:"label"`
}

// GetJobStatusView returns the job's full history plus the one display
// label resolved for the requesting audience.
func (s *StudyService) GetJobStatusView(ctx context.Context, jobID string, audience Audience) (*JobStatusView, error) {
	job, err := s.jobRepo.GetJobContext(ctx, jobID)
	if err != nil {
		return nil, err
	}
	history, err := s.jobRepo.ListStatusChanges(ctx, jobID)
	if err != nil {
		return nil, err
	}
	studyStatus, err := s.studyRepo.GetStudyStatus(ctx, job.StudyID)
	if err != nil {
		return nil, err
	}

	return &JobStatusView{
		JobID:   jobID,
		History: history,
		Label:   ResolveStatusLabel(history, audience, studyStatus),
	}, nil
}

func (s *StudyService) ListJobFiles(ctx context.Context, jobID string) ([]model.JobFile, error) {
	if _, err := s.jobRepo.GetJobContext(ctx, jobID); err != nil {
		return nil, err
	}
	return s.fileRepo.ListByJob(ctx, jobID)
}

// GetJobFileContent streams one artifact's bytes out of the object store.
// Encrypted artifacts come back still encrypted; decryption happens only
// where the private key lives.
func (s *StudyService) GetJobFileContent(ctx context.Context, jobID, fileID string) (*model.JobFile, []byte, error) {
	files, err := s.ListJobFiles(ctx, jobID)
	if err != nil {
		return nil, nil, err
	}
	for _, f := range files {
		if f.ID == fileID {
			data, err := s.store.Get(ctx, f.Path)
			if err != nil {
				return nil, nil, err
			}
			return &f, data, nil
		}
	}
	return nil, nil, fmt.Errorf("file %s: %w", fileID, common.ErrNotFound)
}

// TeardownJob is the one explicit path that deletes history: stored
// artifacts first, then all job rows.
func (s *StudyService) TeardownJob(ctx context.Context, jobID string) error {
	files, err := s.ListJobFiles(ctx, jobID)
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := s.store.Delete(ctx, f.Path); err != nil {
			s.logger.Warn("failed to delete stored artifact during teardown",
				"jobId", jobID, "path", f.Path, "error", err)
		}
	}
	return s.jobRepo.DeleteJobData(ctx, jobID)
}
