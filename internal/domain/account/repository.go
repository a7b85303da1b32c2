package account

import "context"

// Repository defines the interface for linked-account data access.
// Defined in the domain layer, implemented in the infrastructure layer.
type Repository interface {
	// GetByID retrieves an account by its external identifier
	GetByID(ctx context.Context, id string) (*LinkedAccount, error)

	// ListByUserID retrieves all linked accounts for a specific user
	ListByUserID(ctx context.Context, userID int64) ([]*LinkedAccount, error)

	// Upsert creates or updates an account keyed on its external identifier
	// and appends exactly one balance snapshot in the same transaction.
	// Returns ErrOwnershipConflict if the identifier already belongs to a
	// different user.
	Upsert(ctx context.Context, params UpsertParams) (*LinkedAccount, error)

	// Exists checks if an account with the given external identifier exists
	Exists(ctx context.Context, id string) (bool, error)
}

// SnapshotRepository provides read access to balance history.
type SnapshotRepository interface {
	// ListRecentByAccountID returns up to limit snapshots for the account,
	// newest first.
	ListRecentByAccountID(ctx context.Context, accountID string, limit int) ([]*BalanceSnapshot, error)
}
