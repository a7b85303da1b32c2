package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"finale/internal/domain/account"
)

// SnapshotRepository implements the account.SnapshotRepository interface for
// PostgreSQL. Snapshots are append-only; writes happen inside the account
// upsert transaction.
type SnapshotRepository struct {
	db *DB
}

// NewSnapshotRepository creates a new PostgreSQL snapshot repository
func NewSnapshotRepository(db *DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// ListRecentByAccountID returns up to limit snapshots for the account, newest first
func (r *SnapshotRepository) ListRecentByAccountID(ctx context.Context, accountID string, limit int) ([]*account.BalanceSnapshot, error) {
	query := `
		SELECT id, account_id, balance, available, recorded_at
		FROM balance_snapshots
		WHERE account_id = $1
		ORDER BY recorded_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*account.BalanceSnapshot
	for rows.Next() {
		var s account.BalanceSnapshot
		var available sql.NullFloat64

		if err := rows.Scan(&s.ID, &s.AccountID, &s.Balance, &available, &s.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}

		if available.Valid {
			s.Available = &available.Float64
		}

		snapshots = append(snapshots, &s)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}

	return snapshots, nil
}
