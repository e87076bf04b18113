package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/safeinsights/management-app-sub003/internal/api/middleware"
	"github.com/safeinsights/management-app-sub003/internal/app/service"
	"github.com/safeinsights/management-app-sub003/internal/common"
)

type StudyHandler struct {
	studyService *service.StudyService
}

func NewStudyHandler(ss *service.StudyService) *StudyHandler {
	return &StudyHandler{studyService: ss}
}

func (h *StudyHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator)
	r.Post("/", h.createStudy)
	r.Post("/{studyID}/jobs", h.submitJob)
}

func (h *StudyHandler) createStudy(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req service.CreateStudyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	defer r.Body.Close()

	study, err := h.studyService.CreateStudy(r.Context(), userID, req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, study)
}

func (h *StudyHandler) submitJob(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req service.SubmitJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	defer r.Body.Close()

	job, err := h.studyService.SubmitJob(r.Context(), userID, chi.URLParam(r, "studyID"), req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, job)
}
