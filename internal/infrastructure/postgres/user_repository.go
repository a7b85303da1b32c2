package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"finale/internal/domain/user"
	"finale/internal/infrastructure/crypto"
)

// UserRepository implements the user.Repository interface for PostgreSQL.
// Bank credentials are encrypted before they touch the database and
// decrypted on the way out; plaintext credentials never hit disk.
type UserRepository struct {
	db        *DB
	encryptor *crypto.Encryptor
}

// NewUserRepository creates a new PostgreSQL user repository
func NewUserRepository(db *DB, encryptor *crypto.Encryptor) *UserRepository {
	return &UserRepository{db: db, encryptor: encryptor}
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, params user.CreateUserParams) (*user.User, error) {
	query := `
		INSERT INTO users (email, name, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, email, name, password_hash, access_token, created_at, updated_at
	`

	return r.scanUser(r.db.QueryRowContext(ctx, query, params.Email, params.Name, nullStringPtr(params.PasswordHash)))
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	query := `
		SELECT id, email, name, password_hash, access_token, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	query := `
		SELECT id, email, name, password_hash, access_token, created_at, updated_at
		FROM users
		WHERE email = $1
	`

	return r.scanUser(r.db.QueryRowContext(ctx, query, email))
}

// Update modifies mutable user fields
func (r *UserRepository) Update(ctx context.Context, id int64, params user.UpdateUserParams) (*user.User, error) {
	query := `
		UPDATE users
		SET name = COALESCE($2, name), updated_at = NOW()
		WHERE id = $1
		RETURNING id, email, name, password_hash, access_token, created_at, updated_at
	`

	return r.scanUser(r.db.QueryRowContext(ctx, query, id, nullStringPtr(params.Name)))
}

// UpdateAccessToken stores the encrypted bank credential for a user
func (r *UserRepository) UpdateAccessToken(ctx context.Context, userID int64, accessToken string) error {
	encrypted, err := r.encryptor.Encrypt(accessToken)
	if err != nil {
		return fmt.Errorf("failed to encrypt access token: %w", err)
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET access_token = $1, updated_at = NOW() WHERE id = $2`,
		encrypted, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update access token: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return user.ErrUserNotFound
	}

	return nil
}

// ClearAccessToken removes the stored bank credential for a user
func (r *UserRepository) ClearAccessToken(ctx context.Context, userID int64) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET access_token = NULL, updated_at = NOW() WHERE id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to clear access token: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return user.ErrUserNotFound
	}

	return nil
}

func (r *UserRepository) scanUser(row *tracedRow) (*user.User, error) {
	var u user.User
	var passwordHash, accessToken sql.NullString

	err := row.Scan(&u.ID, &u.Email, &u.Name, &passwordHash, &accessToken, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, user.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	if passwordHash.Valid {
		u.PasswordHash = &passwordHash.String
	}
	if accessToken.Valid && accessToken.String != "" {
		decrypted, err := r.encryptor.Decrypt(accessToken.String)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt access token: %w", err)
		}
		u.AccessToken = &decrypted
	}

	return &u, nil
}

func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
