package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"finale/internal/domain/banklink"
	"finale/internal/shared/middleware"
)

// LinkHandler drives the interactive bank-linking flow
type LinkHandler struct {
	linkService *banklink.Service
}

func NewLinkHandler(linkService *banklink.Service) *LinkHandler {
	return &LinkHandler{linkService: linkService}
}

type LinkTokenResponse struct {
	LinkToken string `json:"linkToken"`
}

type CompleteLinkRequest struct {
	PublicToken string `json:"publicToken"`
}

// HandleCreateLinkToken mints a link token for one linking session
func (h *LinkHandler) HandleCreateLinkToken(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeInvalidRequest, "authentication required")
		return
	}

	token, err := h.linkService.RequestLinkToken(r.Context(), userID)
	if err != nil {
		log.Printf("Error creating link token for user %d: %v", userID, err)
		writeError(w, http.StatusBadGateway, codeGatewayUnavailable, "banking gateway is unavailable, try again")
		return
	}

	writeJSON(w, http.StatusOK, LinkTokenResponse{LinkToken: token})
}

// HandleCompleteLink exchanges the public token, stores the credential and
// runs the first balance sync.
func (h *LinkHandler) HandleCompleteLink(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeInvalidRequest, "authentication required")
		return
	}

	var req CompleteLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid request body")
		return
	}
	if req.PublicToken == "" {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "publicToken is required")
		return
	}

	result, err := h.linkService.CompleteLink(r.Context(), userID, req.PublicToken)
	if err != nil {
		log.Printf("Error completing link for user %d: %v", userID, err)
		switch {
		case errors.Is(err, banklink.ErrExchange):
			writeError(w, http.StatusBadRequest, codeLinkExpired, "link session expired, restart linking")
		case errors.Is(err, banklink.ErrReauthRequired):
			writeError(w, http.StatusConflict, codeReauthRequired, "bank connection requires re-authentication")
		case errors.Is(err, banklink.ErrSyncFailed):
			// The credential is stored; only the first sync failed
			writeError(w, http.StatusBadGateway, codeSyncFailed, "account linked but balance sync failed, refresh later")
		case errors.Is(err, banklink.ErrPersistence):
			writeError(w, http.StatusInternalServerError, codeInternal, "failed to store bank credential, restart linking")
		default:
			writeError(w, http.StatusBadGateway, codeGatewayUnavailable, "banking gateway is unavailable, try again")
		}
		return
	}

	writeJSON(w, http.StatusOK, toSyncResponse(result))
}
