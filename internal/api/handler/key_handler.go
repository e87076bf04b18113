package handler

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/safeinsights/management-app-sub003/internal/api/middleware"
	"github.com/safeinsights/management-app-sub003/internal/app/service"
	"github.com/safeinsights/management-app-sub003/internal/common"
)

type KeyHandler struct {
	keyService *service.KeyService
}

func NewKeyHandler(ks *service.KeyService) *KeyHandler {
	return &KeyHandler{keyService: ks}
}

func (h *KeyHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator)
	r.Get("/", h.getKey)
	r.Post("/", h.registerKey)
	r.Put("/", h.regenerateKey)
}

type registerKeyRequest struct {
	// Raw public key bytes, base64-encoded.
	PublicKey string `json:"public_key"`
}

type keyResponse struct {
	Fingerprint string `json:"fingerprint"`
	PublicKey   string `json:"public_key"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

func (h *KeyHandler) getKey(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	key, err := h.keyService.GetKey(r.Context(), userID)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, keyResponse{
		Fingerprint: key.Fingerprint,
		PublicKey:   base64.StdEncoding.EncodeToString(key.PublicKey),
		CreatedAt:   key.CreatedAt.String(),
		UpdatedAt:   key.UpdatedAt.String(),
	})
}

func (h *KeyHandler) registerKey(w http.ResponseWriter, r *http.Request) {
	h.storeKey(w, r, false)
}

// regenerateKey replaces an existing key. Irreversible: artifacts encrypted
// for the previous key can no longer be decrypted by this user.
func (h *KeyHandler) regenerateKey(w http.ResponseWriter, r *http.Request) {
	h.storeKey(w, r, true)
}

func (h *KeyHandler) storeKey(w http.ResponseWriter, r *http.Request, regenerate bool) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req registerKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	defer r.Body.Close()

	publicKey, err := base64.StdEncoding.DecodeString(req.PublicKey)
	if err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "public_key must be base64")
		return
	}

	key, err := h.keyService.RegisterKey(r.Context(), userID, publicKey, regenerate)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, keyResponse{
		Fingerprint: key.Fingerprint,
		PublicKey:   base64.StdEncoding.EncodeToString(key.PublicKey),
		CreatedAt:   key.CreatedAt.String(),
		UpdatedAt:   key.UpdatedAt.String(),
	})
}
