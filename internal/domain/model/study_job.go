package model

import "time"

// JobStatus is the closed set of lifecycle states reported for a study job.
// Progression is a DAG, not a strict chain:
//
//	INITIATED -> CODE-SUBMITTED -> CODE-SCANNED -> JOB-PACKAGING ->
//	JOB-READY -> JOB-RUNNING -> RUN-COMPLETE -> FILES-APPROVED | FILES-REJECTED
//
// Any non-terminal state may jump to JOB-ERRORED or CODE-REJECTED. A
// resubmission creates a fresh StudyJob rather than reusing an errored one.
type JobStatus string

const (
	JobStatusInitiated     JobStatus = "INITIATED"
	JobStatusCodeSubmitted JobStatus = "CODE-SUBMITTED"
	JobStatusCodeScanned   JobStatus = "CODE-SCANNED"
	JobStatusCodeRejected  JobStatus = "CODE-REJECTED"
	JobStatusPackaging     JobStatus = "JOB-PACKAGING"
	JobStatusReady         JobStatus = "JOB-READY"
	JobStatusRunning       JobStatus = "JOB-RUNNING"
	JobStatusErrored       JobStatus = "JOB-ERRORED"
	JobStatusRunComplete   JobStatus = "RUN-COMPLETE"
	JobStatusFilesApproved JobStatus = "FILES-APPROVED"
	JobStatusFilesRejected JobStatus = "FILES-REJECTED"
)

var allJobStatuses = map[JobStatus]struct{}{
	JobStatusInitiated:     {},
	JobStatusCodeSubmitted: {},
	JobStatusCodeScanned:   {},
	JobStatusCodeRejected:  {},
	JobStatusPackaging:     {},
	JobStatusReady:         {},
	JobStatusRunning:       {},
	JobStatusErrored:       {},
	JobStatusRunComplete:   {},
	JobStatusFilesApproved: {},
	JobStatusFilesRejected: {},
}

// IsValid reports whether s is a member of the closed status enum.
func (s JobStatus) IsValid() bool {
	_, ok := allJobStatuses[s]
	return ok
}

// IsTerminal reports whether no further transition is expected for this
// job instance.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusFilesApproved, JobStatusFilesRejected, JobStatusCodeRejected, JobStatusErrored:
		return true
	}
	return false
}

type StudyJob struct {
	ID        string    `json:"id"`
	StudyID   string    `json:"study_id"`
	CreatedAt time.Time `json:"created_at"`
}

// JobStatusChange is one immutable audit event in a job's append-only
// history. Total order is (CreatedAt, ID); ID is a monotonic insertion id.
type JobStatusChange struct {
	ID         int64     `json:"id"`
	StudyJobID string    `json:"study_job_id"`
	Status     JobStatus `json:"status"`
	UserID     *string   `json:"user_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// JobContext is the denormalized view the tracker needs for a single
// webhook delivery: the job plus its owning study and org.
type JobContext struct {
	JobID        string
	StudyID      string
	OrgID        string
	OrgSlug      string
	ResearcherID string
}
