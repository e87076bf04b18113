package service

import (
	"github.com/safeinsights/management-app-sub003/internal/domain/model"
)

type Audience string

const (
	AudienceResearcher Audience = "researcher"
	AudienceReviewer   Audience = "reviewer"
)

type Stage string

const (
	StageProposal Stage = "Proposal"
	StageCode     Stage = "Code"
	StageResults  Stage = "Results"
)

// StatusLabel is what the UI renders for one study job.
type StatusLabel struct {
	Stage   Stage  `json:"stage"`
	Label   string `json:"label"`
	Tooltip string `json:"tooltip,omitempty"`
}

var erroredLabel = StatusLabel{
	Stage:   StageCode,
	Label:   "Errored",
	Tooltip: "The code ran into an error. Open the study for more details.",
}

// Label visibility is a priority-ordered table per audience, most-terminal
// status first: the first history status present in the list wins.
// Statuses absent from an audience's table fall through to the study-level
// label, which is how mid-run states stay hidden from researchers.
var reviewerPriority = []model.JobStatus{
	model.JobStatusFilesApproved,
	model.JobStatusFilesRejected,
	model.JobStatusRunComplete,
	model.JobStatusRunning,
	model.JobStatusReady,
	model.JobStatusPackaging,
	model.JobStatusCodeRejected,
	model.JobStatusCodeSubmitted,
}

var reviewerLabels = map[model.JobStatus]StatusLabel{
	model.JobStatusFilesApproved: {StageResults, "Approved", "Approved! Study results have now been shared with the researcher."},
	model.JobStatusFilesRejected: {StageResults, "Rejected", "Sharing of results was rejected. The research lab now needs to revise and submit an updated version."},
	model.JobStatusRunComplete:   {StageResults, "Awaiting Review", "Study results are now ready for review. Open the study for more details."},
	model.JobStatusRunning:       {StageCode, "Processing", "The code is now running against the enclave."},
	model.JobStatusReady:         {StageCode, "Ready", "The code is packaged and ready to be picked up by the enclave."},
	model.JobStatusPackaging:     {StageCode, "Packaging", "Preparing code to run in enclave."},
	model.JobStatusCodeRejected:  {StageProposal, "Rejected", "Rejected. The research lab now needs to revise and submit an updated version."},
	model.JobStatusCodeSubmitted: {StageProposal, "Needs Review", "This proposal is now ready for review. Open the study for more details."},
}

var researcherPriority = []model.JobStatus{
	model.JobStatusFilesApproved,
	model.JobStatusFilesRejected,
	model.JobStatusRunComplete,
	model.JobStatusCodeRejected,
	model.JobStatusCodeSubmitted,
}

var researcherLabels = map[model.JobStatus]StatusLabel{
	model.JobStatusFilesApproved: {StageResults, "Approved", "The results of your analysis have been approved! Open your study to access them."},
	model.JobStatusFilesRejected: {StageResults, "Rejected", "The results of your analysis have not been approved. Open your study for more details."},
	model.JobStatusRunComplete:   {StageResults, "Under Review", "Your code ran successfully! The results are now under review."},
	model.JobStatusCodeRejected:  {StageProposal, "Rejected", "Your proposal has not been approved."},
	model.JobStatusCodeSubmitted: {StageProposal, "Under Review", "Your proposal is being reviewed."},
}

var reviewerStudyLabels = map[model.StudyStatus]StatusLabel{
	model.StudyStatusDraft:         {StageProposal, "Draft", ""},
	model.StudyStatusPendingReview: {StageProposal, "Needs Review", "This proposal is now ready for review. Open the study for more details."},
	model.StudyStatusApproved:      {StageProposal, "Approved", "Approved! The code is now being prepared to run in the enclave."},
	model.StudyStatusRejected:      {StageProposal, "Rejected", "Rejected. The research lab now needs to revise and submit an updated version."},
}

var researcherStudyLabels = map[model.StudyStatus]StatusLabel{
	model.StudyStatusDraft:         {StageProposal, "Draft", ""},
	model.StudyStatusPendingReview: {StageProposal, "Under Review", "Your proposal is being reviewed."},
	model.StudyStatusApproved:      {StageProposal, "Approved", "Your proposal has been approved, and its code is now running!"},
	model.StudyStatusRejected:      {StageProposal, "Rejected", "Your proposal has not been approved."},
}

// ResolveStatusLabel maps a job's raw status history and an audience to the
// single display label. Pure function of its inputs.
//
// JOB-ERRORED takes absolute precedence for reviewers. Researchers see it
// only once a files decision (FILES-APPROVED / FILES-REJECTED) exists in
// history, so mid-run failures stay hidden until a reviewer has acted.
func ResolveStatusLabel(history []model.JobStatusChange, audience Audience, studyStatus model.StudyStatus) StatusLabel {
	present := make(map[model.JobStatus]bool, len(history))
	for _, change := range history {
		present[change.Status] = true
	}

	if present[model.JobStatusErrored] {
		if audience == AudienceReviewer {
			return erroredLabel
		}
		if present[model.JobStatusFilesApproved] || present[model.JobStatusFilesRejected] {
			return erroredLabel
		}
	}

	priority, labels := researcherPriority, researcherLabels
	studyLabels := researcherStudyLabels
	if audience == AudienceReviewer {
		priority, labels = reviewerPriority, reviewerLabels
		studyLabels = reviewerStudyLabels
	}

	for _, status := range priority {
		if present[status] {
			return labels[status]
		}
	}

	if label, ok := studyLabels[studyStatus]; ok {
		return label
	}
	return studyLabels[model.StudyStatusDraft]
}
