package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"finale/internal/domain/account"
)

// AccountRepository implements the account.Repository interface for PostgreSQL
type AccountRepository struct {
	db *DB
}

// NewAccountRepository creates a new PostgreSQL account repository
func NewAccountRepository(db *DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// GetByID retrieves an account by its external identifier
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*account.LinkedAccount, error) {
	query := `
		SELECT id, user_id, name, mask, account_type, subtype,
		       current_balance, available_balance, last_updated, created_at
		FROM linked_accounts
		WHERE id = $1
	`

	var acc account.LinkedAccount
	var available sql.NullFloat64

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&acc.ID, &acc.UserID, &acc.Name, &acc.Mask, &acc.AccountType, &acc.Subtype,
		&acc.CurrentBalance, &available, &acc.LastUpdated, &acc.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, account.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	if available.Valid {
		acc.AvailableBalance = &available.Float64
	}

	return &acc, nil
}

// ListByUserID retrieves all linked accounts for a specific user
func (r *AccountRepository) ListByUserID(ctx context.Context, userID int64) ([]*account.LinkedAccount, error) {
	query := `
		SELECT id, user_id, name, mask, account_type, subtype,
		       current_balance, available_balance, last_updated, created_at
		FROM linked_accounts
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*account.LinkedAccount
	for rows.Next() {
		var acc account.LinkedAccount
		var available sql.NullFloat64

		err := rows.Scan(
			&acc.ID, &acc.UserID, &acc.Name, &acc.Mask, &acc.AccountType, &acc.Subtype,
			&acc.CurrentBalance, &available, &acc.LastUpdated, &acc.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}

		if available.Valid {
			acc.AvailableBalance = &available.Float64
		}

		accounts = append(accounts, &acc)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}

	return accounts, nil
}

// Upsert creates or updates an account keyed on its external identifier and
// appends one balance snapshot. Both writes happen in one transaction, with
// an ownership check up front: an identifier that already belongs to another
// user fails the whole operation.
func (r *AccountRepository) Upsert(ctx context.Context, params account.UpsertParams) (*account.LinkedAccount, error) {
	tx, err := r.db.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var ownerID int64
	err = tx.QueryRowContext(ctx,
		`SELECT user_id FROM linked_accounts WHERE id = $1 FOR UPDATE`,
		params.ID,
	).Scan(&ownerID)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to check account ownership: %w", err)
	}
	if err == nil && ownerID != params.UserID {
		return nil, account.ErrOwnershipConflict
	}

	query := `
		INSERT INTO linked_accounts (
			id, user_id, name, mask, account_type, subtype,
			current_balance, available_balance, last_updated
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (id)
		DO UPDATE SET
			name = EXCLUDED.name,
			mask = EXCLUDED.mask,
			account_type = EXCLUDED.account_type,
			subtype = EXCLUDED.subtype,
			current_balance = EXCLUDED.current_balance,
			available_balance = EXCLUDED.available_balance,
			last_updated = NOW()
		RETURNING id, user_id, name, mask, account_type, subtype,
		          current_balance, available_balance, last_updated, created_at
	`

	var acc account.LinkedAccount
	var available sql.NullFloat64

	var availableIn sql.NullFloat64
	if params.AvailableBalance != nil {
		availableIn.Float64 = *params.AvailableBalance
		availableIn.Valid = true
	}

	err = tx.QueryRowContext(
		ctx, query,
		params.ID, params.UserID, params.Name, params.Mask, params.AccountType,
		params.Subtype, params.CurrentBalance, availableIn,
	).Scan(
		&acc.ID, &acc.UserID, &acc.Name, &acc.Mask, &acc.AccountType, &acc.Subtype,
		&acc.CurrentBalance, &available, &acc.LastUpdated, &acc.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert account: %w", err)
	}

	if available.Valid {
		acc.AvailableBalance = &available.Float64
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO balance_snapshots (id, account_id, balance, available) VALUES ($1, $2, $3, $4)`,
		uuid.NewString(), acc.ID, params.CurrentBalance, availableIn,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert balance snapshot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit upsert: %w", err)
	}

	return &acc, nil
}

// Exists checks if an account with the given external identifier exists
func (r *AccountRepository) Exists(ctx context.Context, id string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM linked_accounts WHERE id = $1)`

	var exists bool
	err := r.db.QueryRowContext(ctx, query, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check account existence: %w", err)
	}

	return exists, nil
}
