// Package banklink drives the bank-link and balance-synchronization workflow:
// link token issuance, public token exchange, credential persistence and
// per-account reconciliation.
package banklink

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"finale/internal/domain/account"
	"finale/internal/domain/notification"
	"finale/internal/domain/user"
	"finale/internal/infrastructure/gateway"
	"finale/internal/shared/messages"
)

// Workflow errors. Callers dispatch on these with errors.Is; each maps to a
// distinct user-facing outcome.
var (
	// ErrGateway is a transient gateway/network failure. Safe to retry the
	// same operation.
	ErrGateway = errors.New("gateway request failed")

	// ErrExchange means the one-time public token was rejected. Terminal:
	// the caller must restart with a fresh link token.
	ErrExchange = errors.New("public token exchange failed")

	// ErrReauthRequired means the stored credential was reported invalid.
	// The credential has been cleared; the caller must re-link.
	ErrReauthRequired = errors.New("bank credential requires re-authentication")

	// ErrNoCredential means the user never linked (or was unlinked).
	ErrNoCredential = errors.New("user has no linked bank credential")

	// ErrSyncFailed means the balance fetch or reconciliation failed after
	// the credential was saved. The link itself succeeded; only a resync is
	// needed.
	ErrSyncFailed = errors.New("balance sync failed")

	// ErrPersistence means the credential could not be stored after a
	// successful exchange. The link attempt must be retried from scratch.
	ErrPersistence = errors.New("failed to persist bank credential")
)

// SyncResult contains the results of one sync pass
type SyncResult struct {
	UserID        int64
	AccountsFound int
	Created       int
	Updated       int
	Accounts      []*account.LinkedAccount
	Errors        []string
}

// Service orchestrates the credential lifecycle end to end. All operations
// for the same user are serialized through an in-process per-user lock so
// concurrent syncs cannot interleave upserts and snapshot appends.
type Service struct {
	client              gateway.ClientInterface
	userRepo            user.Repository
	accountService      *account.Service
	notificationService *notification.Service
	notificationTexts   *messages.Messages

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// NewService creates a new bank-link workflow service. The notification
// service and texts may be nil when push notifications are disabled.
func NewService(
	client gateway.ClientInterface,
	userRepo user.Repository,
	accountService *account.Service,
	notificationService *notification.Service,
	notificationTexts *messages.Messages,
) *Service {
	return &Service{
		client:              client,
		userRepo:            userRepo,
		accountService:      accountService,
		notificationService: notificationService,
		notificationTexts:   notificationTexts,
		locks:               make(map[int64]*sync.Mutex),
	}
}

// RequestLinkToken mints a fresh link token for one interactive linking
// attempt. Tokens are cheap; failures are never retried here.
func (s *Service) RequestLinkToken(ctx context.Context, userID int64) (string, error) {
	token, err := s.client.CreateLinkToken(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGateway, err)
	}
	return token, nil
}

// CompleteLink exchanges the public token produced by a finished linking
// session, persists the credential and runs the first balance sync. The
// credential stays saved even if the post-persist sync fails; the link
// succeeded and RefreshBalances completes it later.
func (s *Service) CompleteLink(ctx context.Context, userID int64, publicToken string) (*SyncResult, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	accessToken, err := s.client.ExchangePublicToken(ctx, publicToken)
	if err != nil {
		if errors.Is(err, gateway.ErrInvalidPublicToken) {
			return nil, fmt.Errorf("%w: %v", ErrExchange, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	if err := s.userRepo.UpdateAccessToken(ctx, userID, accessToken); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	log.Printf("User %d: Bank credential stored", userID)

	resp, err := s.client.GetBalances(ctx, accessToken)
	if err != nil {
		if errors.Is(err, gateway.ErrLoginRequired) {
			// A freshly exchanged credential was rejected. Clear it so the
			// user never retains a known-dead credential.
			s.clearCredential(ctx, userID)
			return nil, fmt.Errorf("%w: %v", ErrReauthRequired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrSyncFailed, err)
	}

	result, err := s.reconcileAll(ctx, userID, resp)
	if err != nil {
		return result, err
	}

	s.notifySyncComplete(ctx, userID)
	return result, nil
}

// RefreshBalances re-fetches balances with the stored credential and
// reconciles every returned account.
func (s *Service) RefreshBalances(ctx context.Context, userID int64) (*SyncResult, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !u.HasCredential() {
		return nil, ErrNoCredential
	}

	resp, err := s.client.GetBalances(ctx, *u.AccessToken)
	if err != nil {
		if errors.Is(err, gateway.ErrLoginRequired) {
			log.Printf("User %d: Gateway requires re-authentication, clearing credential", userID)
			s.clearCredential(ctx, userID)
			s.notifyReauthRequired(ctx, userID)
			return nil, fmt.Errorf("%w: %v", ErrReauthRequired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	result, err := s.reconcileAll(ctx, userID, resp)
	if err != nil {
		return result, err
	}

	s.notifySyncComplete(ctx, userID)
	return result, nil
}

// reconcileAll runs reconciliation for every account in the gateway
// response. Per-account failures are collected; if any account failed the
// whole pass reports ErrSyncFailed with the partial result.
func (s *Service) reconcileAll(ctx context.Context, userID int64, resp *gateway.BalanceResponse) (*SyncResult, error) {
	result := &SyncResult{
		UserID:        userID,
		AccountsFound: len(resp.Data),
		Errors:        []string{},
	}

	log.Printf("User %d: Reconciling %d accounts", userID, result.AccountsFound)

	var conflict bool
	for _, apiAccount := range resp.Data {
		if err := s.reconcileAccount(ctx, userID, apiAccount, result); err != nil {
			if errors.Is(err, account.ErrOwnershipConflict) {
				conflict = true
			}
			errMsg := fmt.Sprintf("failed to reconcile account %s: %v", apiAccount.AccountID, err)
			result.Errors = append(result.Errors, errMsg)
			log.Printf("User %d: %s", userID, errMsg)
		}
	}

	log.Printf("User %d: Sync complete - Created: %d, Updated: %d, Errors: %d",
		userID, result.Created, result.Updated, len(result.Errors))

	if conflict {
		return result, fmt.Errorf("%w: %w", ErrSyncFailed, account.ErrOwnershipConflict)
	}
	if len(result.Errors) > 0 {
		return result, fmt.Errorf("%w: %d of %d accounts failed", ErrSyncFailed, len(result.Errors), result.AccountsFound)
	}

	return result, nil
}

// reconcileAccount upserts a single account and counts the outcome
func (s *Service) reconcileAccount(ctx context.Context, userID int64, apiAccount gateway.BalanceAccount, result *SyncResult) error {
	current, err := apiAccount.GetCurrentBalance()
	if err != nil {
		return fmt.Errorf("failed to parse balance: %w", err)
	}
	available, err := apiAccount.GetAvailableBalance()
	if err != nil {
		return fmt.Errorf("failed to parse available balance: %w", err)
	}

	acc, created, err := s.accountService.Reconcile(ctx, account.UpsertParams{
		ID:               apiAccount.AccountID,
		UserID:           userID,
		Name:             apiAccount.Name,
		Mask:             apiAccount.Mask,
		AccountType:      apiAccount.AccountType,
		Subtype:          apiAccount.AccountSubtype,
		CurrentBalance:   current,
		AvailableBalance: available,
	})
	if err != nil {
		return err
	}

	result.Accounts = append(result.Accounts, acc)
	if created {
		result.Created++
		log.Printf("User %d: Created account %s (%s)", userID, apiAccount.Name, apiAccount.AccountID)
	} else {
		result.Updated++
		log.Printf("User %d: Updated account %s (%s)", userID, apiAccount.Name, apiAccount.AccountID)
	}

	return nil
}

func (s *Service) clearCredential(ctx context.Context, userID int64) {
	if err := s.userRepo.ClearAccessToken(ctx, userID); err != nil {
		log.Printf("User %d: Failed to clear credential: %v", userID, err)
	}
}

func (s *Service) notifySyncComplete(ctx context.Context, userID int64) {
	if s.notificationService == nil || s.notificationTexts == nil {
		return
	}
	s.notificationService.SendSyncComplete(ctx, userID, s.notificationTexts)
}

func (s *Service) notifyReauthRequired(ctx context.Context, userID int64) {
	if s.notificationService == nil || s.notificationTexts == nil {
		return
	}
	s.notificationService.SendReauthRequired(ctx, userID, s.notificationTexts)
}

// userLock returns the mutex serializing workflow operations for one user
func (s *Service) userLock(userID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[userID] = lock
	}
	return lock
}
