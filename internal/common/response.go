package common

import (
	"encoding/json"
	"net/http"
)

type ErrorResponse struct {
	Error  string   `json:"error"`
	Issues []string `json:"issues,omitempty"` // validation issue details
}

func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, ErrorResponse{Error: message})
}

func RespondWithValidationIssues(w http.ResponseWriter, issues []string) {
	RespondWithJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid-payload", Issues: issues})
}

func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
