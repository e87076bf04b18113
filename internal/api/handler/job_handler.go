package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/safeinsights/management-app-sub003/internal/api/middleware"
	"github.com/safeinsights/management-app-sub003/internal/app/service"
	"github.com/safeinsights/management-app-sub003/internal/common"
)

type JobHandler struct {
	studyService *service.StudyService
}

func NewJobHandler(ss *service.StudyService) *JobHandler {
	return &JobHandler{studyService: ss}
}

func (h *JobHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator)
	r.Get("/{jobID}/status", h.getJobStatus)
	r.Get("/{jobID}/files", h.listJobFiles)
	r.Get("/{jobID}/files/{fileID}", h.getJobFile)
	r.With(middleware.AdminOnly).Delete("/{jobID}", h.teardownJob)
}

func (h *JobHandler) getJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	audience := service.Audience(r.URL.Query().Get("audience"))
	if audience == "" {
		// Default to the caller's role; reviewers see everything anyway.
		if role, ok := middleware.GetUserRoleFromContext(r.Context()); ok && role == "reviewer" {
			audience = service.AudienceReviewer
		} else {
			audience = service.AudienceResearcher
		}
	}
	if audience != service.AudienceResearcher && audience != service.AudienceReviewer {
		common.RespondWithError(w, http.StatusBadRequest, "audience must be researcher or reviewer")
		return
	}

	view, err := h.studyService.GetJobStatusView(r.Context(), jobID, audience)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, view)
}

func (h *JobHandler) listJobFiles(w http.ResponseWriter, r *http.Request) {
	files, err := h.studyService.ListJobFiles(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, files)
}

func (h *JobHandler) getJobFile(w http.ResponseWriter, r *http.Request) {
	file, data, err := h.studyService.GetJobFileContent(r.Context(), chi.URLParam(r, "jobID"), chi.URLParam(r, "fileID"))
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="`+file.Name+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (h *JobHandler) teardownJob(w http.ResponseWriter, r *http.Request) {
	if err := h.studyService.TeardownJob(r.Context(), chi.URLParam(r, "jobID")); err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "job removed"})
}
