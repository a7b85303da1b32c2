package gateway

import (
	"context"
)

// ClientInterface defines the methods required from the banking-data gateway client
type ClientInterface interface {
	// CreateLinkToken mints a short-lived token authorizing one interactive
	// linking session for the given user.
	CreateLinkToken(ctx context.Context, userID int64) (string, error)

	// ExchangePublicToken exchanges the one-time public token produced by a
	// completed linking session for a durable access credential. Returns
	// ErrInvalidPublicToken (wrapped) when the token is invalid, expired or
	// already consumed.
	ExchangePublicToken(ctx context.Context, publicToken string) (string, error)

	// GetBalances fetches current balances for all accounts visible under
	// the credential. Returns ErrLoginRequired (wrapped) when the gateway
	// reports the credential itself needs re-authentication.
	GetBalances(ctx context.Context, accessToken string) (*BalanceResponse, error)
}
