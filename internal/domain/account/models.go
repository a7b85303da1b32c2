package account

import (
	"errors"
	"strings"
	"time"
)

// Account types and subtypes reported by the banking-data gateway.
var (
	accountTypes = map[string]struct{}{
		"depository": {},
		"credit":     {},
		"loan":       {},
		"investment": {},
		"brokerage":  {},
		"other":      {},
	}
	accountSubtypes = map[string]struct{}{
		"checking":    {},
		"savings":     {},
		"credit card": {},
		"money market": {},
		"cd":          {},
		"mortgage":    {},
		"brokerage":   {},
	}
)

// Domain errors
var (
	ErrInvalidAccountType = errors.New("invalid account type")
	ErrAccountNotFound    = errors.New("account not found")
	ErrOwnershipConflict  = errors.New("account belongs to a different user")
	ErrInvalidInput       = errors.New("invalid input")
)

// LinkedAccount is a bank account synced from the gateway. The ID is the
// gateway's stable external identifier, unique across the whole store.
type LinkedAccount struct {
	ID               string    `json:"id"`
	UserID           int64     `json:"userId"`
	Name             string    `json:"name"`
	Mask             string    `json:"mask"`
	AccountType      string    `json:"type"`
	Subtype          string    `json:"subtype"`
	CurrentBalance   float64   `json:"currentBalance"`
	AvailableBalance *float64  `json:"availableBalance"`
	LastUpdated      time.Time `json:"lastUpdated"`
	CreatedAt        time.Time `json:"createdAt"`
}

// BalanceSnapshot is an immutable historical balance record, appended once
// per reconciliation and never mutated.
type BalanceSnapshot struct {
	ID        string    `json:"id"`
	AccountID string    `json:"-"`
	Balance   float64   `json:"balance"`
	Available *float64  `json:"available"`
	Timestamp time.Time `json:"timestamp"`
}

// AccountWithHistory pairs an account with its most recent snapshots,
// newest first.
type AccountWithHistory struct {
	LinkedAccount
	History []*BalanceSnapshot `json:"balanceHistory"`
}

// UpsertParams contains parameters for reconciling an account
type UpsertParams struct {
	ID               string
	UserID           int64
	Name             string
	Mask             string
	AccountType      string
	Subtype          string
	CurrentBalance   float64
	AvailableBalance *float64
}

// Validate validates the upsert parameters
func (p UpsertParams) Validate() error {
	if p.ID == "" {
		return errors.New("external account ID is required")
	}
	if p.UserID <= 0 {
		return errors.New("valid user ID is required")
	}
	if p.Name == "" {
		return errors.New("account name is required")
	}
	if p.AccountType != "" && !IsValidAccountType(p.AccountType) {
		return ErrInvalidAccountType
	}
	return nil
}

// IsValidAccountType checks if the provided account type is valid.
func IsValidAccountType(t string) bool {
	_, ok := accountTypes[strings.ToLower(t)]
	return ok
}

// IsValidAccountSubtype checks if the provided subtype is valid.
func IsValidAccountSubtype(s string) bool {
	_, ok := accountSubtypes[strings.ToLower(s)]
	return ok
}
