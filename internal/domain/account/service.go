package account

import (
	"context"
	"errors"
)

// Service contains the business logic for linked-account operations
type Service struct {
	repo      Repository
	snapshots SnapshotRepository
}

// NewService creates a new account service
func NewService(repo Repository, snapshots SnapshotRepository) *Service {
	return &Service{repo: repo, snapshots: snapshots}
}

// Reconcile creates or updates the account identified by params.ID and
// appends one balance snapshot. Returns the stored account and whether it
// was newly created.
func (s *Service) Reconcile(ctx context.Context, params UpsertParams) (*LinkedAccount, bool, error) {
	if err := params.Validate(); err != nil {
		return nil, false, err
	}

	exists, err := s.repo.Exists(ctx, params.ID)
	if err != nil {
		return nil, false, err
	}

	acc, err := s.repo.Upsert(ctx, params)
	if err != nil {
		return nil, false, err
	}

	return acc, !exists, nil
}

// GetAccount retrieves an account by its external identifier and verifies
// user ownership
func (s *Service) GetAccount(ctx context.Context, accountID string, userID int64) (*LinkedAccount, error) {
	acc, err := s.repo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if acc.UserID != userID {
		return nil, ErrOwnershipConflict
	}

	return acc, nil
}

// ListAccountsByUserID retrieves all linked accounts for a specific user
func (s *Service) ListAccountsByUserID(ctx context.Context, userID int64) ([]*LinkedAccount, error) {
	if userID <= 0 {
		return nil, errors.New("valid user ID is required")
	}

	return s.repo.ListByUserID(ctx, userID)
}

// ListAccountsWithHistory returns the user's linked accounts, each with its
// most recent historyLimit snapshots ordered newest first.
func (s *Service) ListAccountsWithHistory(ctx context.Context, userID int64, historyLimit int) ([]*AccountWithHistory, error) {
	if historyLimit <= 0 {
		historyLimit = 30
	}

	accounts, err := s.repo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := make([]*AccountWithHistory, 0, len(accounts))
	for _, acc := range accounts {
		history, err := s.snapshots.ListRecentByAccountID(ctx, acc.ID, historyLimit)
		if err != nil {
			return nil, err
		}
		result = append(result, &AccountWithHistory{
			LinkedAccount: *acc,
			History:       history,
		})
	}

	return result, nil
}

// AccountExists checks if an account exists
func (s *Service) AccountExists(ctx context.Context, accountID string) (bool, error) {
	return s.repo.Exists(ctx, accountID)
}
