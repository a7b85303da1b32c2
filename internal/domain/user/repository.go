package user

import (
	"context"
	"errors"
)

var ErrUserNotFound = errors.New("user not found")

// Repository defines the interface for user data access
type Repository interface {
	Create(ctx context.Context, params CreateUserParams) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, userID int64, params UpdateUserParams) (*User, error)

	// UpdateAccessToken stores a new bank credential for the user, replacing
	// any previous one. The credential is encrypted at rest.
	UpdateAccessToken(ctx context.Context, userID int64, accessToken string) error

	// ClearAccessToken removes the user's bank credential. Called when the
	// gateway reports the credential is no longer valid.
	ClearAccessToken(ctx context.Context, userID int64) error
}
