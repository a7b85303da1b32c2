package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

const (
	defaultTimeout = 30 * time.Second
	linkTokenPath  = "/link/token/create"
	exchangePath   = "/link/token/exchange"
	balancesPath   = "/accounts/balances"
)

// Gateway error conditions that callers dispatch on with errors.Is.
var (
	// ErrInvalidPublicToken means the one-time public token was rejected
	// (invalid, expired or already consumed). Terminal for that token.
	ErrInvalidPublicToken = errors.New("public token is invalid or expired")

	// ErrLoginRequired means the stored credential is no longer valid and
	// the bank connection must be re-linked.
	ErrLoginRequired = errors.New("credential requires re-authentication")
)

// Error codes returned by the gateway API
const (
	codeInvalidPublicToken = "INVALID_PUBLIC_TOKEN"
	codeTokenExpired       = "TOKEN_EXPIRED"
	codeLoginRequired      = "ITEM_LOGIN_REQUIRED"
)

// Client handles communication with the banking-data gateway API
type Client struct {
	httpClient *http.Client
	baseURL    string
	clientID   string
	secret     string
}

// Ensure Client implements ClientInterface
var _ ClientInterface = (*Client)(nil)

// NewClient creates a new gateway API client. A non-positive timeout falls
// back to the default.
func NewClient(baseURL, clientID, secret string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:  baseURL,
		clientID: clientID,
		secret:   secret,
	}
}

// LinkTokenResponse represents the API response for link token creation
type LinkTokenResponse struct {
	Success    bool   `json:"success"`
	LinkToken  string `json:"linkToken"`
	Expiration string `json:"expiration"`
}

// ExchangeResponse represents the API response for public token exchange
type ExchangeResponse struct {
	Success     bool   `json:"success"`
	AccessToken string `json:"accessToken"`
	ItemID      string `json:"itemId"`
}

// BalanceResponse represents the API response for account balances
type BalanceResponse struct {
	Success   bool             `json:"success"`
	Data      []BalanceAccount `json:"data"`
	Count     int              `json:"count"`
	Timestamp string           `json:"timestamp"`
}

// BalanceAccount represents one account's balances from the gateway
type BalanceAccount struct {
	AccountID       string  `json:"id"`
	Name            string  `json:"name"`
	Mask            string  `json:"mask"`
	AccountType     string  `json:"type"`
	AccountSubtype  string  `json:"subtype"`
	BalanceString   string  `json:"currentBalance"`   // API returns balances as strings
	AvailableString *string `json:"availableBalance"` // may be absent for some account types
}

// GetCurrentBalance returns the current balance as a float64
func (a *BalanceAccount) GetCurrentBalance() (float64, error) {
	if a.BalanceString == "" {
		return 0, nil
	}
	balance, err := strconv.ParseFloat(a.BalanceString, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse currentBalance '%s': %w", a.BalanceString, err)
	}
	return balance, nil
}

// GetAvailableBalance returns the available balance, or nil when the
// gateway did not report one.
func (a *BalanceAccount) GetAvailableBalance() (*float64, error) {
	if a.AvailableString == nil || *a.AvailableString == "" {
		return nil, nil
	}
	available, err := strconv.ParseFloat(*a.AvailableString, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse availableBalance '%s': %w", *a.AvailableString, err)
	}
	return &available, nil
}

// ErrorResponse represents an error response from the API
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

type linkTokenRequest struct {
	ClientUserID string `json:"clientUserId"`
}

type exchangeRequest struct {
	PublicToken string `json:"publicToken"`
}

// CreateLinkToken mints a link token scoped to the given user
func (c *Client) CreateLinkToken(ctx context.Context, userID int64) (string, error) {
	body, status, err := c.post(ctx, linkTokenPath, linkTokenRequest{
		ClientUserID: strconv.FormatInt(userID, 10),
	}, "")
	if err != nil {
		return "", err
	}

	if status != http.StatusOK {
		return "", apiError(status, body)
	}

	var resp LinkTokenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to unmarshal link token response: %w", err)
	}
	if !resp.Success || resp.LinkToken == "" {
		return "", fmt.Errorf("gateway returned no link token")
	}

	return resp.LinkToken, nil
}

// ExchangePublicToken exchanges a one-time public token for a durable credential
func (c *Client) ExchangePublicToken(ctx context.Context, publicToken string) (string, error) {
	body, status, err := c.post(ctx, exchangePath, exchangeRequest{PublicToken: publicToken}, "")
	if err != nil {
		return "", err
	}

	if status != http.StatusOK {
		var errResp ErrorResponse
		if json.Unmarshal(body, &errResp) == nil {
			switch errResp.Error {
			case codeInvalidPublicToken, codeTokenExpired:
				return "", fmt.Errorf("%w: %s", ErrInvalidPublicToken, errResp.Message)
			}
		}
		if status == http.StatusBadRequest {
			return "", fmt.Errorf("%w: status %d", ErrInvalidPublicToken, status)
		}
		return "", apiError(status, body)
	}

	var resp ExchangeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to unmarshal exchange response: %w", err)
	}
	if !resp.Success || resp.AccessToken == "" {
		return "", fmt.Errorf("gateway returned no access token")
	}

	return resp.AccessToken, nil
}

// GetBalances fetches balances for all accounts visible under the credential
func (c *Client) GetBalances(ctx context.Context, accessToken string) (*BalanceResponse, error) {
	url := c.baseURL + balancesPath

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	c.setAuthHeaders(req)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", accessToken))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp ErrorResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Error == codeLoginRequired {
			return nil, fmt.Errorf("%w: %s", ErrLoginRequired, errResp.Message)
		}
		if resp.StatusCode == http.StatusUnauthorized {
			return nil, fmt.Errorf("%w: status 401", ErrLoginRequired)
		}
		return nil, apiError(resp.StatusCode, body)
	}

	var balanceResp BalanceResponse
	if err := json.Unmarshal(body, &balanceResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal balance response: %w", err)
	}

	if !balanceResp.Success {
		return nil, fmt.Errorf("API returned success=false")
	}

	return &balanceResp, nil
}

// post sends a JSON POST request and returns the raw body and status code.
// An empty bearer token means client-credential auth only.
func (c *Client) post(ctx context.Context, path string, payload any, bearer string) ([]byte, int, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}

	c.setAuthHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", bearer))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}

	return body, resp.StatusCode, nil
}

func (c *Client) setAuthHeaders(req *http.Request) {
	req.Header.Set("Gateway-Client-Id", c.clientID)
	req.Header.Set("Gateway-Secret", c.secret)
}

func apiError(status int, body []byte) error {
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil {
		return fmt.Errorf("API request failed with status %d: %s", status, string(body))
	}
	return fmt.Errorf("API error (status %d): %s - %s", status, errResp.Error, errResp.Message)
}
