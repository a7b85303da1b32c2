package http

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"finale/internal/domain/account"
	"finale/internal/domain/banklink"
	"finale/internal/shared/middleware"
)

// AccountHandler serves linked accounts and balance refreshes
type AccountHandler struct {
	accountService *account.Service
	linkService    *banklink.Service
	historyLimit   int
}

func NewAccountHandler(accountService *account.Service, linkService *banklink.Service, historyLimit int) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		linkService:    linkService,
		historyLimit:   historyLimit,
	}
}

// SnapshotResponse is one point of balance history
type SnapshotResponse struct {
	Balance   float64  `json:"balance"`
	Available *float64 `json:"available,omitempty"`
	Timestamp string   `json:"timestamp"`
}

// AccountResponse is the client-facing account shape
type AccountResponse struct {
	AccountID        string             `json:"accountId"`
	Name             string             `json:"name"`
	Mask             string             `json:"mask"`
	AccountType      string             `json:"type"`
	Subtype          string             `json:"subtype"`
	CurrentBalance   float64            `json:"currentBalance"`
	AvailableBalance *float64           `json:"availableBalance,omitempty"`
	LastUpdated      string             `json:"lastUpdated"`
	History          []SnapshotResponse `json:"history,omitempty"`
}

// SyncResponse summarizes one sync pass
type SyncResponse struct {
	AccountsFound int               `json:"accountsFound"`
	Created       int               `json:"created"`
	Updated       int               `json:"updated"`
	Accounts      []AccountResponse `json:"accounts"`
}

// HandleListAccounts returns the user's linked accounts with recent balance
// history. The history query parameter overrides the snapshot count, capped
// at the configured limit.
func (h *AccountHandler) HandleListAccounts(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeInvalidRequest, "authentication required")
		return
	}

	limit := h.historyLimit
	if raw := r.URL.Query().Get("history"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, codeInvalidRequest, "history must be a non-negative integer")
			return
		}
		if parsed < limit {
			limit = parsed
		}
	}

	accounts, err := h.accountService.ListAccountsWithHistory(r.Context(), userID, limit)
	if err != nil {
		log.Printf("Error listing accounts for user %d: %v", userID, err)
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to list accounts")
		return
	}

	response := make([]AccountResponse, 0, len(accounts))
	for _, acc := range accounts {
		response = append(response, toAccountWithHistoryResponse(acc))
	}

	writeJSON(w, http.StatusOK, response)
}

// HandleRefresh re-fetches balances from the gateway and reconciles them
func (h *AccountHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeInvalidRequest, "authentication required")
		return
	}

	result, err := h.linkService.RefreshBalances(r.Context(), userID)
	if err != nil {
		log.Printf("Error refreshing balances for user %d: %v", userID, err)
		switch {
		case errors.Is(err, banklink.ErrNoCredential):
			writeError(w, http.StatusBadRequest, codeNotLinked, "no bank account linked")
		case errors.Is(err, banklink.ErrReauthRequired):
			writeError(w, http.StatusConflict, codeReauthRequired, "bank connection requires re-authentication")
		case errors.Is(err, account.ErrOwnershipConflict):
			writeError(w, http.StatusConflict, codeOwnershipConflict, "account belongs to another user")
		case errors.Is(err, banklink.ErrSyncFailed):
			writeError(w, http.StatusBadGateway, codeSyncFailed, "balance sync failed, try again")
		default:
			writeError(w, http.StatusBadGateway, codeGatewayUnavailable, "banking gateway is unavailable, try again")
		}
		return
	}

	writeJSON(w, http.StatusOK, toSyncResponse(result))
}

func toAccountResponse(acc *account.LinkedAccount) AccountResponse {
	return AccountResponse{
		AccountID:        acc.ID,
		Name:             acc.Name,
		Mask:             acc.Mask,
		AccountType:      acc.AccountType,
		Subtype:          acc.Subtype,
		CurrentBalance:   acc.CurrentBalance,
		AvailableBalance: acc.AvailableBalance,
		LastUpdated:      acc.LastUpdated.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

func toAccountWithHistoryResponse(acc *account.AccountWithHistory) AccountResponse {
	resp := toAccountResponse(&acc.LinkedAccount)
	resp.History = make([]SnapshotResponse, 0, len(acc.History))
	for _, s := range acc.History {
		resp.History = append(resp.History, SnapshotResponse{
			Balance:   s.Balance,
			Available: s.Available,
			Timestamp: s.Timestamp.UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return resp
}

func toSyncResponse(result *banklink.SyncResult) SyncResponse {
	resp := SyncResponse{
		AccountsFound: result.AccountsFound,
		Created:       result.Created,
		Updated:       result.Updated,
		Accounts:      make([]AccountResponse, 0, len(result.Accounts)),
	}
	for _, acc := range result.Accounts {
		resp.Accounts = append(resp.Accounts, toAccountResponse(acc))
	}
	return resp
}
