package model

import "time"

// StudyStatus tracks the proposal-level lifecycle. Job execution details
// live in JobStatusChange history; these are only the review decisions
// made before any job runs.
type StudyStatus string

const (
	StudyStatusDraft         StudyStatus = "DRAFT"
	StudyStatusPendingReview StudyStatus = "PENDING-REVIEW"
	StudyStatusApproved      StudyStatus = "APPROVED"
	StudyStatusRejected      StudyStatus = "REJECTED"
)

type Study struct {
	ID           string      `json:"id"`
	OrgID        string      `json:"org_id"`
	ResearcherID string      `json:"researcher_id"`
	Title        string      `json:"title"`
	Status       StudyStatus `json:"status"`
	CreatedAt    time.Time   `json:"created_at"`
}
