package devserver

import (
	"encoding/json"
	"net/http"

	"cvelib/internal/domain"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Error codes the dev server emits beyond those in domain.
const (
	codeNotOrgAdmin = "NOT_ORG_ADMIN_OR_SECRETARIAT"
	codeUserExists  = "USER_EXISTS"
	codeUserDNE     = "USER_DNE"
	codeOrgMismatch = "NOT_SAME_ORG"
	codeBadState    = "INVALID_STATE_TRANSITION"
	codeIDDNE       = "CVE_ID_NOT_FOUND"
	codeRateLimited = "RATE_LIMIT_EXCEEDED"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: code, Message: message})
}

func writeBadInput(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, domain.ErrorBadInput.String(), message)
}
