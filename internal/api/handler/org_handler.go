package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/safeinsights/management-app-sub003/internal/api/middleware"
	"github.com/safeinsights/management-app-sub003/internal/app/service"
	"github.com/safeinsights/management-app-sub003/internal/common"
)

type OrgHandler struct {
	orgService *service.OrgService
}

func NewOrgHandler(os *service.OrgService) *OrgHandler {
	return &OrgHandler{orgService: os}
}

func (h *OrgHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator)
	r.Use(middleware.AdminOnly)
	r.Post("/", h.createOrg)
	r.Post("/{orgID}/members", h.addMember)
}

func (h *OrgHandler) createOrg(w http.ResponseWriter, r *http.Request) {
	var req service.CreateOrgRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	defer r.Body.Close()

	org, err := h.orgService.CreateOrg(r.Context(), req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, org)
}

func (h *OrgHandler) addMember(w http.ResponseWriter, r *http.Request) {
	var req service.AddMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	defer r.Body.Close()

	member, err := h.orgService.AddMember(r.Context(), chi.URLParam(r, "orgID"), req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, member)
}
