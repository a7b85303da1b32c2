package http

import (
	"encoding/json"
	"net/http"
)

// Machine-readable error codes returned to clients. Clients dispatch on the
// code, not the message.
const (
	codeInvalidRequest     = "invalid_request"
	codeLinkExpired        = "link_expired"
	codeReauthRequired     = "reauth_required"
	codeNotLinked          = "not_linked"
	codeSyncFailed         = "sync_failed"
	codeGatewayUnavailable = "gateway_unavailable"
	codeOwnershipConflict  = "ownership_conflict"
	codeInternal           = "internal_error"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: code, Message: message})
}
