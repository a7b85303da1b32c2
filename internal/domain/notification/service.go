package notification

import (
	"context"
	"errors"
	"log"

	"finale/internal/shared/messages"
)

// Service contains the business logic for notification operations
type Service struct {
	repo      Repository
	messenger Messenger
}

// NewService creates a new notification service. The messenger may be nil
// when push delivery is disabled; notifications are still recorded.
func NewService(repo Repository, messenger Messenger) *Service {
	return &Service{repo: repo, messenger: messenger}
}

// RegisterDevice registers a device token for the authenticated user.
// Registering an existing token refreshes it and reassigns it if it last
// belonged to another user.
func (s *Service) RegisterDevice(ctx context.Context, params CreateDeviceTokenParams) (*DeviceToken, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	return s.repo.UpsertDeviceToken(ctx, params)
}

// ListNotifications returns paginated notifications for a user
func (s *Service) ListNotifications(ctx context.Context, userID int64, page, perPage int) ([]*Notification, int, error) {
	if userID <= 0 {
		return nil, 0, errors.New("valid user ID is required")
	}
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	return s.repo.ListByUserID(ctx, userID, page, perPage)
}

// MarkNotificationOpened marks a notification as opened by the authenticated user
func (s *Service) MarkNotificationOpened(ctx context.Context, notificationID string, userID int64) error {
	if notificationID == "" {
		return errors.New("notification ID is required")
	}
	if userID <= 0 {
		return errors.New("valid user ID is required")
	}

	return s.repo.MarkOpened(ctx, notificationID, userID)
}

// SendToUser sends a push notification to every active device of a user and
// stores a notification record. Delivery failures are logged, never fatal.
func (s *Service) SendToUser(ctx context.Context, userID int64, title, body, category string, data map[string]string) error {
	if !IsValidCategory(category) {
		return ErrInvalidCategory
	}

	tokens, err := s.repo.GetActiveTokensByUserID(ctx, userID)
	if err != nil {
		return err
	}

	if data == nil {
		data = make(map[string]string)
	}
	if _, ok := data["route"]; !ok {
		data["route"] = category
	}

	if s.messenger != nil && len(tokens) > 0 {
		tokenStrings := make([]string, len(tokens))
		for i, t := range tokens {
			tokenStrings[i] = t.Token
		}

		if err := s.messenger.SendMulticast(ctx, tokenStrings, title, body, data); err != nil {
			log.Printf("Error sending notification to user %d: %v", userID, err)
		}
	}

	_, err = s.repo.CreateNotification(ctx, CreateNotificationParams{
		UserID:   userID,
		Title:    title,
		Message:  body,
		Category: category,
		Data:     data,
	})
	if err != nil {
		log.Printf("Error storing notification for user %d: %v", userID, err)
	}

	return nil
}

// SendSyncComplete notifies the user that a balance sync finished
func (s *Service) SendSyncComplete(ctx context.Context, userID int64, texts *messages.Messages) {
	if err := s.SendToUser(ctx, userID, texts.SyncComplete.Title, texts.SyncComplete.Body, CategoryAccounts, nil); err != nil {
		log.Printf("Error sending sync-complete notification to user %d: %v", userID, err)
	}
}

// SendReauthRequired notifies the user that their bank connection needs to
// be re-linked.
func (s *Service) SendReauthRequired(ctx context.Context, userID int64, texts *messages.Messages) {
	if err := s.SendToUser(ctx, userID, texts.ReauthRequired.Title, texts.ReauthRequired.Body, CategoryAccounts, nil); err != nil {
		log.Printf("Error sending reauth notification to user %d: %v", userID, err)
	}
}
