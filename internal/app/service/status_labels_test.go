package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/safeinsights/management-app-sub003/internal/domain/model"
)

func history(statuses ...model.JobStatus) []model.JobStatusChange {
	changes := make([]model.JobStatusChange, 0, len(statuses))
	for i, s := range statuses {
		changes = append(changes, model.JobStatusChange{ID: int64(i + 1), Status: s})
	}
	return changes
}

func TestResolveStatusLabelErroredPrecedence(t *testing.T) {
	t.Run("reviewer always sees errored", func(t *testing.T) {
		label := ResolveStatusLabel(
			history(model.JobStatusCodeSubmitted, model.JobStatusPackaging, model.JobStatusErrored),
			AudienceReviewer, model.StudyStatusApproved)
		assert.Equal(t, "Errored", label.Label)
		assert.Equal(t, StageCode, label.Stage)
	})

	t.Run("researcher does not see errored without a files decision", func(t *testing.T) {
		label := ResolveStatusLabel(
			history(model.JobStatusCodeSubmitted, model.JobStatusErrored),
			AudienceResearcher, model.StudyStatusApproved)
		assert.NotEqual(t, "Errored", label.Label)
		// Falls back to the researcher's view of CODE-SUBMITTED.
		assert.Equal(t, "Under Review", label.Label)
		assert.Equal(t, StageProposal, label.Stage)
	})

	t.Run("researcher sees errored once files are rejected", func(t *testing.T) {
		label := ResolveStatusLabel(
			history(model.JobStatusErrored, model.JobStatusFilesRejected),
			AudienceResearcher, model.StudyStatusApproved)
		assert.Equal(t, "Errored", label.Label)
	})

	t.Run("researcher sees errored once files are approved", func(t *testing.T) {
		label := ResolveStatusLabel(
			history(model.JobStatusErrored, model.JobStatusFilesApproved),
			AudienceResearcher, model.StudyStatusApproved)
		assert.Equal(t, "Errored", label.Label)
	})
}

func TestResolveStatusLabelMostTerminalWins(t *testing.T) {
	full := history(
		model.JobStatusInitiated,
		model.JobStatusCodeSubmitted,
		model.JobStatusPackaging,
		model.JobStatusReady,
		model.JobStatusRunning,
		model.JobStatusRunComplete,
		model.JobStatusFilesApproved,
	)

	reviewer := ResolveStatusLabel(full, AudienceReviewer, model.StudyStatusApproved)
	assert.Equal(t, StatusLabel{StageResults, "Approved", "Approved! Study results have now been shared with the researcher."}, reviewer)

	researcher := ResolveStatusLabel(full, AudienceResearcher, model.StudyStatusApproved)
	assert.Equal(t, "Approved", researcher.Label)
	assert.Equal(t, StageResults, researcher.Stage)
}

func TestResolveStatusLabelMidRunHiddenFromResearcher(t *testing.T) {
	// JOB-PACKAGING / JOB-READY / JOB-RUNNING are reviewer-only; the
	// researcher keeps seeing the last visible state.
	for _, hidden := range []model.JobStatus{model.JobStatusPackaging, model.JobStatusReady, model.JobStatusRunning} {
		label := ResolveStatusLabel(
			history(model.JobStatusCodeSubmitted, hidden),
			AudienceResearcher, model.StudyStatusApproved)
		assert.Equal(t, "Under Review", label.Label, "status %s should stay hidden", hidden)
		assert.Equal(t, StageProposal, label.Stage)
	}

	reviewer := ResolveStatusLabel(
		history(model.JobStatusCodeSubmitted, model.JobStatusRunning),
		AudienceReviewer, model.StudyStatusApproved)
	assert.Equal(t, "Processing", reviewer.Label)
	assert.Equal(t, StageCode, reviewer.Stage)
}

func TestResolveStatusLabelStudyFallback(t *testing.T) {
	t.Run("empty history uses study status", func(t *testing.T) {
		reviewer := ResolveStatusLabel(nil, AudienceReviewer, model.StudyStatusPendingReview)
		assert.Equal(t, "Needs Review", reviewer.Label)

		researcher := ResolveStatusLabel(nil, AudienceResearcher, model.StudyStatusPendingReview)
		assert.Equal(t, "Under Review", researcher.Label)
	})

	t.Run("unknown study status falls back to draft", func(t *testing.T) {
		label := ResolveStatusLabel(nil, AudienceResearcher, model.StudyStatus("BOGUS"))
		assert.Equal(t, "Draft", label.Label)
		assert.Empty(t, label.Tooltip)
	})

	t.Run("history with only audience-invisible statuses uses study status", func(t *testing.T) {
		label := ResolveStatusLabel(
			history(model.JobStatusInitiated),
			AudienceReviewer, model.StudyStatusDraft)
		assert.Equal(t, "Draft", label.Label)
	})
}

func TestResolveStatusLabelOrderInsensitive(t *testing.T) {
	// Resolution depends on which statuses are present, not their order.
	a := ResolveStatusLabel(
		history(model.JobStatusCodeSubmitted, model.JobStatusRunComplete),
		AudienceReviewer, model.StudyStatusApproved)
	b := ResolveStatusLabel(
		history(model.JobStatusRunComplete, model.JobStatusCodeSubmitted),
		AudienceReviewer, model.StudyStatusApproved)
	assert.Equal(t, a, b)
	assert.Equal(t, "Awaiting Review", a.Label)
}
