package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/safeinsights/management-app-sub003/internal/app/service"
	"github.com/safeinsights/management-app-sub003/internal/common"
	"github.com/safeinsights/management-app-sub003/internal/common/security"
	"github.com/safeinsights/management-app-sub003/internal/domain/model"
)

// WebhookHandler receives job lifecycle reports from the external
// build/execution pipeline. Processing is staged — authenticate, validate,
// record — so each failure mode maps to exactly one response shape.
type WebhookHandler struct {
	jobStatusService *service.JobStatusService
	secret           string
	logger           *slog.Logger
}

// NewWebhookHandler takes the shared secret as a value so tests can vary
// it per case; it is never read from process-wide state.
func NewWebhookHandler(js *service.JobStatusService, secret string, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{jobStatusService: js, secret: secret, logger: logger}
}

func (h *WebhookHandler) RegisterRoutes(r chi.Router) {
	r.Post("/job-status", h.handleJobStatus)
}

type JobStatusPayload struct {
	JobID        string `json:"jobId"`
	Status       string `json:"status"`
	PlaintextLog string `json:"plaintextLog,omitempty"`
}

func (p *JobStatusPayload) validate() []string {
	var issues []string
	if p.JobID == "" {
		issues = append(issues, "jobId is required")
	}
	if p.Status == "" {
		issues = append(issues, "status is required")
	} else if !model.JobStatus(p.Status).IsValid() {
		issues = append(issues, "status must be a known job status")
	}
	return issues
}

func (h *WebhookHandler) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	if !security.VerifyWebhookBearer(r.Header.Get("Authorization"), h.secret) {
		// The presented value is deliberately not logged.
		h.logger.Warn("webhook request failed authentication", "route", r.URL.Path)
		common.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var payload JobStatusPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.RespondWithValidationIssues(w, []string{"malformed JSON body"})
		return
	}
	defer r.Body.Close()

	if issues := payload.validate(); len(issues) > 0 {
		common.RespondWithValidationIssues(w, issues)
		return
	}

	err := h.jobStatusService.RecordStatus(r.Context(), payload.JobID, model.JobStatus(payload.Status), nil, payload.PlaintextLog)
	if err != nil {
		h.logger.Error("webhook processing failed",
			"route", r.URL.Path, "jobId", payload.JobID, "status", payload.Status, "error", err)
		switch {
		case errors.Is(err, common.ErrNotFound):
			common.RespondWithError(w, http.StatusNotFound, "job-not-found")
		case errors.Is(err, common.ErrValidation):
			common.RespondWithValidationIssues(w, []string{err.Error()})
		default:
			common.RespondWithError(w, http.StatusInternalServerError, "internal-error")
		}
		return
	}

	common.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "ok"})
}
