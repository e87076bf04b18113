package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safeinsights/management-app-sub003/internal/common"
	"github.com/safeinsights/management-app-sub003/internal/domain/model"
)

type memStudyRepo struct {
	mu      sync.Mutex
	studies map[string]model.Study
}

func newMemStudyRepo() *memStudyRepo {
	return &memStudyRepo{studies: map[string]model.Study{}}
}

func (r *memStudyRepo) CreateStudy(_ context.Context, s *model.Study) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.CreatedAt = time.Now()
	r.studies[s.ID] = *s
	return nil
}

func (r *memStudyRepo) GetStudyByID(_ context.Context, id string) (*model.Study, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.studies[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &s, nil
}

func (r *memStudyRepo) GetStudyStatus(_ context.Context, id string) (model.StudyStatus, error) {
	s, err := r.GetStudyByID(context.Background(), id)
	if err != nil {
		return "", err
	}
	return s.Status, nil
}

type orgDirRepo struct {
	orgs    map[string]model.Org
	members map[string]model.OrgUser // key: orgID + "/" + userID
}

func newOrgDirRepo() *orgDirRepo {
	return &orgDirRepo{orgs: map[string]model.Org{}, members: map[string]model.OrgUser{}}
}

func (r *orgDirRepo) CreateOrg(_ context.Context, org *model.Org) error {
	r.orgs[org.ID] = *org
	return nil
}

func (r *orgDirRepo) GetOrgByID(_ context.Context, id string) (*model.Org, error) {
	org, ok := r.orgs[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &org, nil
}

func (r *orgDirRepo) AddMember(_ context.Context, m *model.OrgUser) error {
	r.members[m.OrgID+"/"+m.UserID] = *m
	return nil
}

func (r *orgDirRepo) GetMember(_ context.Context, orgID, userID string) (*model.OrgUser, error) {
	m, ok := r.members[orgID+"/"+userID]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &m, nil
}

func (r *orgDirRepo) ListOrgIDsForUser(_ context.Context, userID string) ([]string, error) {
	var ids []string
	for _, m := range r.members {
		if m.UserID == userID {
			ids = append(ids, m.OrgID)
		}
	}
	return ids, nil
}

type studyFixture struct {
	svc       *StudyService
	studyRepo *memStudyRepo
	orgRepo   *orgDirRepo
	jobRepo   *memJobRepo
	fileRepo  *memFileRepo
	store     *memStore
}

func newStudyFixture(t *testing.T) *studyFixture {
	t.Helper()
	f := &studyFixture{
		studyRepo: newMemStudyRepo(),
		orgRepo:   newOrgDirRepo(),
		jobRepo:   newMemJobRepo(),
		fileRepo:  newMemFileRepo(),
		store:     newMemStore(),
	}
	f.orgRepo.CreateOrg(context.Background(), &model.Org{ID: "org-1", Slug: "openstax", Name: "OpenStax"})
	f.orgRepo.AddMember(context.Background(), &model.OrgUser{OrgID: "org-1", UserID: "researcher-1", IsResearcher: true})
	f.orgRepo.AddMember(context.Background(), &model.OrgUser{OrgID: "org-1", UserID: "reviewer-1", IsReviewer: true})
	f.svc = NewStudyService(f.studyRepo, f.orgRepo, f.jobRepo, f.fileRepo, f.store, testLogger())
	return f
}

func (f *studyFixture) createStudy(t *testing.T) *model.Study {
	t.Helper()
	study, err := f.svc.CreateStudy(context.Background(), "researcher-1", CreateStudyRequest{OrgID: "org-1", Title: "Effects of tutoring"})
	require.NoError(t, err)
	return study
}

func TestCreateStudy(t *testing.T) {
	f := newStudyFixture(t)

	study := f.createStudy(t)
	assert.Equal(t, model.StudyStatusPendingReview, study.Status)
	assert.Equal(t, "researcher-1", study.ResearcherID)
	assert.NotEmpty(t, study.ID)
}

func TestCreateStudyRequiresResearcherRole(t *testing.T) {
	f := newStudyFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateStudy(ctx, "reviewer-1", CreateStudyRequest{OrgID: "org-1", Title: "A study"})
	assert.ErrorIs(t, err, common.ErrForbidden)

	_, err = f.svc.CreateStudy(ctx, "stranger", CreateStudyRequest{OrgID: "org-1", Title: "A study"})
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = f.svc.CreateStudy(ctx, "researcher-1", CreateStudyRequest{OrgID: "org-1"})
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestSubmitJobSeedsHistoryAndStoresCode(t *testing.T) {
	f := newStudyFixture(t)
	ctx := context.Background()
	study := f.createStudy(t)

	job, err := f.svc.SubmitJob(ctx, "researcher-1", study.ID, SubmitJobRequest{
		CodeFileName: "main.r",
		Code:         []byte("print('hello')"),
	})
	require.NoError(t, err)

	history, err := f.jobRepo.ListStatusChanges(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, model.JobStatusInitiated, history[0].Status)
	assert.Equal(t, model.JobStatusCodeSubmitted, history[1].Status)

	files := f.fileRepo.filesOfType(job.ID, model.FileTypeMainCode)
	require.Len(t, files, 1)
	code, err := f.store.Get(ctx, files[0].Path)
	require.NoError(t, err)
	assert.Equal(t, []byte("print('hello')"), code)
}

func TestSubmitJobEachSubmissionIsANewJob(t *testing.T) {
	f := newStudyFixture(t)
	ctx := context.Background()
	study := f.createStudy(t)
	req := SubmitJobRequest{CodeFileName: "main.r", Code: []byte("x <- 1")}

	first, err := f.svc.SubmitJob(ctx, "researcher-1", study.ID, req)
	require.NoError(t, err)
	second, err := f.svc.SubmitJob(ctx, "researcher-1", study.ID, req)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
}

func TestSubmitJobValidation(t *testing.T) {
	f := newStudyFixture(t)
	ctx := context.Background()
	study := f.createStudy(t)

	_, err := f.svc.SubmitJob(ctx, "researcher-1", study.ID, SubmitJobRequest{CodeFileName: "main.r"})
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = f.svc.SubmitJob(ctx, "researcher-1", "no-such-study", SubmitJobRequest{CodeFileName: "main.r", Code: []byte("x")})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestGetJobStatusViewResolvesLabelPerAudience(t *testing.T) {
	f := newStudyFixture(t)
	ctx := context.Background()
	study := f.createStudy(t)

	job, err := f.svc.SubmitJob(ctx, "researcher-1", study.ID, SubmitJobRequest{CodeFileName: "main.r", Code: []byte("x")})
	require.NoError(t, err)
	_, err = f.jobRepo.AppendStatusIfChanged(ctx, job.ID, model.JobStatusRunning, nil)
	require.NoError(t, err)

	reviewer, err := f.svc.GetJobStatusView(ctx, job.ID, AudienceReviewer)
	require.NoError(t, err)
	assert.Equal(t, "Processing", reviewer.Label.Label)
	assert.Len(t, reviewer.History, 3)

	researcher, err := f.svc.GetJobStatusView(ctx, job.ID, AudienceResearcher)
	require.NoError(t, err)
	assert.Equal(t, "Under Review", researcher.Label.Label)
}

func TestGetJobFileContent(t *testing.T) {
	f := newStudyFixture(t)
	ctx := context.Background()
	study := f.createStudy(t)

	job, err := f.svc.SubmitJob(ctx, "researcher-1", study.ID, SubmitJobRequest{CodeFileName: "main.r", Code: []byte("x <- 1")})
	require.NoError(t, err)
	files, err := f.svc.ListJobFiles(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, files, 1)

	file, data, err := f.svc.GetJobFileContent(ctx, job.ID, files[0].ID)
	require.NoError(t, err)
	assert.Equal(t, model.FileTypeMainCode, file.FileType)
	assert.Equal(t, []byte("x <- 1"), data)

	_, _, err = f.svc.GetJobFileContent(ctx, job.ID, "no-such-file")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestTeardownJobDeletesRowsAndArtifacts(t *testing.T) {
	f := newStudyFixture(t)
	ctx := context.Background()
	study := f.createStudy(t)

	job, err := f.svc.SubmitJob(ctx, "researcher-1", study.ID, SubmitJobRequest{CodeFileName: "main.r", Code: []byte("x")})
	require.NoError(t, err)
	files, err := f.svc.ListJobFiles(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, files, 1)
	path := files[0].Path

	require.NoError(t, f.svc.TeardownJob(ctx, job.ID))

	_, err = f.jobRepo.GetJobContext(ctx, job.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = f.store.Get(ctx, path)
	assert.Error(t, err)
}
