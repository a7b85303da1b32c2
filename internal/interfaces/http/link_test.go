package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"finale/internal/domain/account"
	"finale/internal/domain/banklink"
	"finale/internal/domain/user"
	"finale/internal/infrastructure/gateway"
	"finale/internal/shared/middleware"
)

// MockGatewayClient implements gateway.ClientInterface for testing
type MockGatewayClient struct {
	CreateLinkTokenFunc     func(ctx context.Context, userID int64) (string, error)
	ExchangePublicTokenFunc func(ctx context.Context, publicToken string) (string, error)
	GetBalancesFunc         func(ctx context.Context, accessToken string) (*gateway.BalanceResponse, error)
}

func (m *MockGatewayClient) CreateLinkToken(ctx context.Context, userID int64) (string, error) {
	if m.CreateLinkTokenFunc != nil {
		return m.CreateLinkTokenFunc(ctx, userID)
	}
	return "link-token", nil
}

func (m *MockGatewayClient) ExchangePublicToken(ctx context.Context, publicToken string) (string, error) {
	if m.ExchangePublicTokenFunc != nil {
		return m.ExchangePublicTokenFunc(ctx, publicToken)
	}
	return "access-token", nil
}

func (m *MockGatewayClient) GetBalances(ctx context.Context, accessToken string) (*gateway.BalanceResponse, error) {
	if m.GetBalancesFunc != nil {
		return m.GetBalancesFunc(ctx, accessToken)
	}
	return &gateway.BalanceResponse{Success: true, Data: []gateway.BalanceAccount{}}, nil
}

// MockUserRepo implements user.Repository for testing
type MockUserRepo struct {
	CreateFunc            func(ctx context.Context, params user.CreateUserParams) (*user.User, error)
	GetByIDFunc           func(ctx context.Context, id int64) (*user.User, error)
	GetByEmailFunc        func(ctx context.Context, email string) (*user.User, error)
	UpdateFunc            func(ctx context.Context, userID int64, params user.UpdateUserParams) (*user.User, error)
	UpdateAccessTokenFunc func(ctx context.Context, userID int64, accessToken string) error
	ClearAccessTokenFunc  func(ctx context.Context, userID int64) error
}

func (m *MockUserRepo) Create(ctx context.Context, params user.CreateUserParams) (*user.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, params)
	}
	return &user.User{ID: 1, Email: params.Email, Name: params.Name}, nil
}

func (m *MockUserRepo) GetByID(ctx context.Context, id int64) (*user.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, user.ErrUserNotFound
}

func (m *MockUserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, user.ErrUserNotFound
}

func (m *MockUserRepo) Update(ctx context.Context, userID int64, params user.UpdateUserParams) (*user.User, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, userID, params)
	}
	return &user.User{ID: userID}, nil
}

func (m *MockUserRepo) UpdateAccessToken(ctx context.Context, userID int64, accessToken string) error {
	if m.UpdateAccessTokenFunc != nil {
		return m.UpdateAccessTokenFunc(ctx, userID, accessToken)
	}
	return nil
}

func (m *MockUserRepo) ClearAccessToken(ctx context.Context, userID int64) error {
	if m.ClearAccessTokenFunc != nil {
		return m.ClearAccessTokenFunc(ctx, userID)
	}
	return nil
}

// MockAccountRepo implements account.Repository for testing
type MockAccountRepo struct {
	GetByIDFunc      func(ctx context.Context, id string) (*account.LinkedAccount, error)
	ListByUserIDFunc func(ctx context.Context, userID int64) ([]*account.LinkedAccount, error)
	UpsertFunc       func(ctx context.Context, params account.UpsertParams) (*account.LinkedAccount, error)
	ExistsFunc       func(ctx context.Context, id string) (bool, error)
}

func (m *MockAccountRepo) GetByID(ctx context.Context, id string) (*account.LinkedAccount, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, account.ErrAccountNotFound
}

func (m *MockAccountRepo) ListByUserID(ctx context.Context, userID int64) ([]*account.LinkedAccount, error) {
	if m.ListByUserIDFunc != nil {
		return m.ListByUserIDFunc(ctx, userID)
	}
	return nil, nil
}

func (m *MockAccountRepo) Upsert(ctx context.Context, params account.UpsertParams) (*account.LinkedAccount, error) {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, params)
	}
	return &account.LinkedAccount{
		ID:               params.ID,
		UserID:           params.UserID,
		Name:             params.Name,
		Mask:             params.Mask,
		AccountType:      params.AccountType,
		Subtype:          params.Subtype,
		CurrentBalance:   params.CurrentBalance,
		AvailableBalance: params.AvailableBalance,
		LastUpdated:      time.Now(),
	}, nil
}

func (m *MockAccountRepo) Exists(ctx context.Context, id string) (bool, error) {
	if m.ExistsFunc != nil {
		return m.ExistsFunc(ctx, id)
	}
	return false, nil
}

// MockSnapshotRepo implements account.SnapshotRepository for testing
type MockSnapshotRepo struct {
	ListRecentFunc func(ctx context.Context, accountID string, limit int) ([]*account.BalanceSnapshot, error)
}

func (m *MockSnapshotRepo) ListRecentByAccountID(ctx context.Context, accountID string, limit int) ([]*account.BalanceSnapshot, error) {
	if m.ListRecentFunc != nil {
		return m.ListRecentFunc(ctx, accountID, limit)
	}
	return nil, nil
}

func newLinkService(client *MockGatewayClient, userRepo *MockUserRepo, accountRepo *MockAccountRepo) *banklink.Service {
	accountService := account.NewService(accountRepo, &MockSnapshotRepo{})
	return banklink.NewService(client, userRepo, accountService, nil, nil)
}

func authedRequest(method, target string, body []byte, userID int64) *http.Request {
	var req *http.Request
	if body != nil {
		req, _ = http.NewRequest(method, target, bytes.NewReader(body))
	} else {
		req, _ = http.NewRequest(method, target, nil)
	}
	ctx := context.WithValue(req.Context(), middleware.UserIDKey, userID)
	return req.WithContext(ctx)
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return resp
}

func singleAccountBalances() *gateway.BalanceResponse {
	available := "950.00"
	return &gateway.BalanceResponse{
		Success: true,
		Data: []gateway.BalanceAccount{
			{
				AccountID:       "acc-1",
				Name:            "Everyday Checking",
				Mask:            "1234",
				AccountType:     "depository",
				AccountSubtype:  "checking",
				BalanceString:   "1000.00",
				AvailableString: &available,
			},
		},
		Count: 1,
	}
}

func TestHandleCreateLinkToken(t *testing.T) {
	tests := []struct {
		name           string
		client         *MockGatewayClient
		expectedStatus int
		expectedCode   string
	}{
		{
			name: "Success",
			client: &MockGatewayClient{
				CreateLinkTokenFunc: func(ctx context.Context, userID int64) (string, error) {
					return "link-abc", nil
				},
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "Gateway Unavailable",
			client: &MockGatewayClient{
				CreateLinkTokenFunc: func(ctx context.Context, userID int64) (string, error) {
					return "", errors.New("connection refused")
				},
			},
			expectedStatus: http.StatusBadGateway,
			expectedCode:   codeGatewayUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := newLinkService(tt.client, &MockUserRepo{}, &MockAccountRepo{})
			handler := NewLinkHandler(service)

			req := authedRequest(http.MethodPost, "/api/link/token", nil, 1)
			rr := httptest.NewRecorder()
			handler.HandleCreateLinkToken(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, tt.expectedStatus)
			}
			if tt.expectedCode != "" {
				if resp := decodeError(t, rr); resp.Error != tt.expectedCode {
					t.Errorf("error code = %q, want %q", resp.Error, tt.expectedCode)
				}
			}
		})
	}
}

func TestHandleCreateLinkToken_Unauthenticated(t *testing.T) {
	service := newLinkService(&MockGatewayClient{}, &MockUserRepo{}, &MockAccountRepo{})
	handler := NewLinkHandler(service)

	req, _ := http.NewRequest(http.MethodPost, "/api/link/token", nil)
	rr := httptest.NewRecorder()
	handler.HandleCreateLinkToken(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusUnauthorized)
	}
}

func TestHandleCompleteLink(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		client         *MockGatewayClient
		userRepo       *MockUserRepo
		expectedStatus int
		expectedCode   string
	}{
		{
			name: "Success",
			body: `{"publicToken":"public-xyz"}`,
			client: &MockGatewayClient{
				GetBalancesFunc: func(ctx context.Context, accessToken string) (*gateway.BalanceResponse, error) {
					return singleAccountBalances(), nil
				},
			},
			userRepo:       &MockUserRepo{},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Missing Public Token",
			body:           `{}`,
			client:         &MockGatewayClient{},
			userRepo:       &MockUserRepo{},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   codeInvalidRequest,
		},
		{
			name:           "Invalid Body",
			body:           `{not json`,
			client:         &MockGatewayClient{},
			userRepo:       &MockUserRepo{},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   codeInvalidRequest,
		},
		{
			name: "Expired Public Token",
			body: `{"publicToken":"stale"}`,
			client: &MockGatewayClient{
				ExchangePublicTokenFunc: func(ctx context.Context, publicToken string) (string, error) {
					return "", gateway.ErrInvalidPublicToken
				},
			},
			userRepo:       &MockUserRepo{},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   codeLinkExpired,
		},
		{
			name: "Credential Rejected On First Sync",
			body: `{"publicToken":"public-xyz"}`,
			client: &MockGatewayClient{
				GetBalancesFunc: func(ctx context.Context, accessToken string) (*gateway.BalanceResponse, error) {
					return nil, gateway.ErrLoginRequired
				},
			},
			userRepo:       &MockUserRepo{},
			expectedStatus: http.StatusConflict,
			expectedCode:   codeReauthRequired,
		},
		{
			name: "First Sync Fails Transiently",
			body: `{"publicToken":"public-xyz"}`,
			client: &MockGatewayClient{
				GetBalancesFunc: func(ctx context.Context, accessToken string) (*gateway.BalanceResponse, error) {
					return nil, errors.New("timeout")
				},
			},
			userRepo:       &MockUserRepo{},
			expectedStatus: http.StatusBadGateway,
			expectedCode:   codeSyncFailed,
		},
		{
			name:   "Credential Store Fails",
			body:   `{"publicToken":"public-xyz"}`,
			client: &MockGatewayClient{},
			userRepo: &MockUserRepo{
				UpdateAccessTokenFunc: func(ctx context.Context, userID int64, accessToken string) error {
					return errors.New("db down")
				},
			},
			expectedStatus: http.StatusInternalServerError,
			expectedCode:   codeInternal,
		},
		{
			name: "Gateway Down During Exchange",
			body: `{"publicToken":"public-xyz"}`,
			client: &MockGatewayClient{
				ExchangePublicTokenFunc: func(ctx context.Context, publicToken string) (string, error) {
					return "", errors.New("connection refused")
				},
			},
			userRepo:       &MockUserRepo{},
			expectedStatus: http.StatusBadGateway,
			expectedCode:   codeGatewayUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := newLinkService(tt.client, tt.userRepo, &MockAccountRepo{})
			handler := NewLinkHandler(service)

			req := authedRequest(http.MethodPost, "/api/link/complete", []byte(tt.body), 1)
			rr := httptest.NewRecorder()
			handler.HandleCompleteLink(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, tt.expectedStatus)
			}
			if tt.expectedCode != "" {
				if resp := decodeError(t, rr); resp.Error != tt.expectedCode {
					t.Errorf("error code = %q, want %q", resp.Error, tt.expectedCode)
				}
			}
		})
	}
}

func TestHandleCompleteLink_ResponseBody(t *testing.T) {
	client := &MockGatewayClient{
		GetBalancesFunc: func(ctx context.Context, accessToken string) (*gateway.BalanceResponse, error) {
			return singleAccountBalances(), nil
		},
	}
	service := newLinkService(client, &MockUserRepo{}, &MockAccountRepo{})
	handler := NewLinkHandler(service)

	req := authedRequest(http.MethodPost, "/api/link/complete", []byte(`{"publicToken":"public-xyz"}`), 1)
	rr := httptest.NewRecorder()
	handler.HandleCompleteLink(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("handler returned status %d: %s", rr.Code, rr.Body.String())
	}

	var resp SyncResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.AccountsFound != 1 || resp.Created != 1 || resp.Updated != 0 {
		t.Errorf("sync summary = %+v, want 1 found, 1 created", resp)
	}
	if len(resp.Accounts) != 1 || resp.Accounts[0].AccountID != "acc-1" {
		t.Errorf("accounts = %+v, want acc-1", resp.Accounts)
	}
}
