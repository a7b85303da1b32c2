package user

import (
	"time"
)

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash *string   `json:"-"`
	AccessToken  *string   `json:"-"` // Bank credential. Nullable, never exposed in API responses.
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// HasCredential reports whether the user currently holds a bank credential.
// Credential presence is the "linked" signal for the dashboard.
func (u *User) HasCredential() bool {
	return u.AccessToken != nil && *u.AccessToken != ""
}

type CreateUserParams struct {
	Email        string
	Name         string
	PasswordHash *string
}

type UpdateUserParams struct {
	Name *string
}
