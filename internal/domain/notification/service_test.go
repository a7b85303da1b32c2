package notification

import (
	"context"
	"errors"
	"testing"

	"finale/internal/shared/messages"
)

// mockRepo implements Repository
type mockRepo struct {
	UpsertDeviceTokenFunc     func(ctx context.Context, params CreateDeviceTokenParams) (*DeviceToken, error)
	GetActiveTokensByUserFunc func(ctx context.Context, userID int64) ([]*DeviceToken, error)
	DeactivateTokenFunc       func(ctx context.Context, token string) error
	CreateNotificationFunc    func(ctx context.Context, params CreateNotificationParams) (*Notification, error)
	ListByUserIDFunc          func(ctx context.Context, userID int64, page, perPage int) ([]*Notification, int, error)
	MarkOpenedFunc            func(ctx context.Context, notificationID string, userID int64) error
}

func (m *mockRepo) UpsertDeviceToken(ctx context.Context, params CreateDeviceTokenParams) (*DeviceToken, error) {
	if m.UpsertDeviceTokenFunc != nil {
		return m.UpsertDeviceTokenFunc(ctx, params)
	}
	return &DeviceToken{ID: "dt-1", UserID: params.UserID, Token: params.Token, DeviceType: params.DeviceType, IsActive: true}, nil
}

func (m *mockRepo) GetActiveTokensByUserID(ctx context.Context, userID int64) ([]*DeviceToken, error) {
	if m.GetActiveTokensByUserFunc != nil {
		return m.GetActiveTokensByUserFunc(ctx, userID)
	}
	return nil, nil
}

func (m *mockRepo) DeactivateToken(ctx context.Context, token string) error {
	if m.DeactivateTokenFunc != nil {
		return m.DeactivateTokenFunc(ctx, token)
	}
	return nil
}

func (m *mockRepo) CreateNotification(ctx context.Context, params CreateNotificationParams) (*Notification, error) {
	if m.CreateNotificationFunc != nil {
		return m.CreateNotificationFunc(ctx, params)
	}
	return &Notification{ID: "n-1", UserID: params.UserID, Title: params.Title, Message: params.Message, Category: params.Category, Data: params.Data}, nil
}

func (m *mockRepo) ListByUserID(ctx context.Context, userID int64, page, perPage int) ([]*Notification, int, error) {
	if m.ListByUserIDFunc != nil {
		return m.ListByUserIDFunc(ctx, userID, page, perPage)
	}
	return nil, 0, nil
}

func (m *mockRepo) MarkOpened(ctx context.Context, notificationID string, userID int64) error {
	if m.MarkOpenedFunc != nil {
		return m.MarkOpenedFunc(ctx, notificationID, userID)
	}
	return nil
}

// mockMessenger implements Messenger
type mockMessenger struct {
	SendFunc          func(ctx context.Context, token, title, body string, data map[string]string) error
	SendMulticastFunc func(ctx context.Context, tokens []string, title, body string, data map[string]string) error
}

func (m *mockMessenger) Send(ctx context.Context, token, title, body string, data map[string]string) error {
	if m.SendFunc != nil {
		return m.SendFunc(ctx, token, title, body, data)
	}
	return nil
}

func (m *mockMessenger) SendMulticast(ctx context.Context, tokens []string, title, body string, data map[string]string) error {
	if m.SendMulticastFunc != nil {
		return m.SendMulticastFunc(ctx, tokens, title, body, data)
	}
	return nil
}

func TestRegisterDevice(t *testing.T) {
	tests := []struct {
		name    string
		params  CreateDeviceTokenParams
		wantErr error
	}{
		{
			name:   "Valid iOS Device",
			params: CreateDeviceTokenParams{UserID: 1, Token: "fcm-token", DeviceType: "ios"},
		},
		{
			name:   "Valid Android Device",
			params: CreateDeviceTokenParams{UserID: 1, Token: "fcm-token", DeviceType: "android"},
		},
		{
			name:    "Missing Token",
			params:  CreateDeviceTokenParams{UserID: 1, DeviceType: "ios"},
			wantErr: ErrInvalidToken,
		},
		{
			name:    "Invalid Device Type",
			params:  CreateDeviceTokenParams{UserID: 1, Token: "fcm-token", DeviceType: "windows"},
			wantErr: ErrInvalidDeviceType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(&mockRepo{}, nil)

			token, err := svc.RegisterDevice(context.Background(), tt.params)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("RegisterDevice() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("RegisterDevice() failed: %v", err)
			}
			if token.Token != tt.params.Token {
				t.Errorf("RegisterDevice() token = %q, want %q", token.Token, tt.params.Token)
			}
		})
	}
}

func TestListNotifications_NormalizesPagination(t *testing.T) {
	var gotPage, gotPerPage int
	repo := &mockRepo{
		ListByUserIDFunc: func(ctx context.Context, userID int64, page, perPage int) ([]*Notification, int, error) {
			gotPage, gotPerPage = page, perPage
			return nil, 0, nil
		},
	}
	svc := NewService(repo, nil)

	if _, _, err := svc.ListNotifications(context.Background(), 1, 0, 500); err != nil {
		t.Fatalf("ListNotifications() failed: %v", err)
	}
	if gotPage != 1 {
		t.Errorf("page = %d, want 1", gotPage)
	}
	if gotPerPage != 20 {
		t.Errorf("perPage = %d, want 20", gotPerPage)
	}
}

func TestSendToUser_DeliversAndStores(t *testing.T) {
	tokens := []*DeviceToken{
		{ID: "dt-1", UserID: 1, Token: "token-a", IsActive: true},
		{ID: "dt-2", UserID: 1, Token: "token-b", IsActive: true},
	}

	var sentTokens []string
	var stored *CreateNotificationParams

	repo := &mockRepo{
		GetActiveTokensByUserFunc: func(ctx context.Context, userID int64) ([]*DeviceToken, error) {
			return tokens, nil
		},
		CreateNotificationFunc: func(ctx context.Context, params CreateNotificationParams) (*Notification, error) {
			stored = &params
			return &Notification{ID: "n-1"}, nil
		},
	}
	messenger := &mockMessenger{
		SendMulticastFunc: func(ctx context.Context, tokens []string, title, body string, data map[string]string) error {
			sentTokens = tokens
			return nil
		},
	}
	svc := NewService(repo, messenger)

	err := svc.SendToUser(context.Background(), 1, "Balances updated", "Your accounts are in sync", CategoryAccounts, nil)
	if err != nil {
		t.Fatalf("SendToUser() failed: %v", err)
	}

	if len(sentTokens) != 2 {
		t.Errorf("sent to %d tokens, want 2", len(sentTokens))
	}
	if stored == nil {
		t.Fatal("notification was not stored")
	}
	if stored.Data["route"] != CategoryAccounts {
		t.Errorf("route = %q, want %q", stored.Data["route"], CategoryAccounts)
	}
}

func TestSendToUser_DeliveryFailureIsNotFatal(t *testing.T) {
	repo := &mockRepo{
		GetActiveTokensByUserFunc: func(ctx context.Context, userID int64) ([]*DeviceToken, error) {
			return []*DeviceToken{{ID: "dt-1", UserID: 1, Token: "token-a", IsActive: true}}, nil
		},
	}
	messenger := &mockMessenger{
		SendMulticastFunc: func(ctx context.Context, tokens []string, title, body string, data map[string]string) error {
			return errors.New("fcm unavailable")
		},
	}
	svc := NewService(repo, messenger)

	err := svc.SendToUser(context.Background(), 1, "Balances updated", "Your accounts are in sync", CategoryAccounts, nil)
	if err != nil {
		t.Errorf("SendToUser() = %v, want nil when only delivery fails", err)
	}
}

func TestSendToUser_InvalidCategory(t *testing.T) {
	svc := NewService(&mockRepo{}, nil)

	err := svc.SendToUser(context.Background(), 1, "Title", "Body", "marketing", nil)
	if !errors.Is(err, ErrInvalidCategory) {
		t.Errorf("SendToUser() error = %v, want ErrInvalidCategory", err)
	}
}

func TestSendSyncComplete_UsesConfiguredTexts(t *testing.T) {
	var stored *CreateNotificationParams
	repo := &mockRepo{
		CreateNotificationFunc: func(ctx context.Context, params CreateNotificationParams) (*Notification, error) {
			stored = &params
			return &Notification{ID: "n-1"}, nil
		},
	}
	svc := NewService(repo, nil)

	texts := messages.Defaults()
	svc.SendSyncComplete(context.Background(), 1, texts)

	if stored == nil {
		t.Fatal("notification was not stored")
	}
	if stored.Title != texts.SyncComplete.Title {
		t.Errorf("title = %q, want %q", stored.Title, texts.SyncComplete.Title)
	}
	if stored.Category != CategoryAccounts {
		t.Errorf("category = %q, want %q", stored.Category, CategoryAccounts)
	}
}
