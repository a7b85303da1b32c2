package account

import (
	"context"
	"errors"
	"testing"
	"time"
)

// mockRepo implements Repository
type mockRepo struct {
	GetByIDFunc      func(ctx context.Context, id string) (*LinkedAccount, error)
	ListByUserIDFunc func(ctx context.Context, userID int64) ([]*LinkedAccount, error)
	UpsertFunc       func(ctx context.Context, params UpsertParams) (*LinkedAccount, error)
	ExistsFunc       func(ctx context.Context, id string) (bool, error)
}

func (m *mockRepo) GetByID(ctx context.Context, id string) (*LinkedAccount, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, ErrAccountNotFound
}
func (m *mockRepo) ListByUserID(ctx context.Context, userID int64) ([]*LinkedAccount, error) {
	if m.ListByUserIDFunc != nil {
		return m.ListByUserIDFunc(ctx, userID)
	}
	return nil, nil
}
func (m *mockRepo) Upsert(ctx context.Context, params UpsertParams) (*LinkedAccount, error) {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, params)
	}
	return &LinkedAccount{ID: params.ID, UserID: params.UserID, Name: params.Name}, nil
}
func (m *mockRepo) Exists(ctx context.Context, id string) (bool, error) {
	if m.ExistsFunc != nil {
		return m.ExistsFunc(ctx, id)
	}
	return false, nil
}

// mockSnapshotRepo implements SnapshotRepository
type mockSnapshotRepo struct {
	ListRecentFunc func(ctx context.Context, accountID string, limit int) ([]*BalanceSnapshot, error)
}

func (m *mockSnapshotRepo) ListRecentByAccountID(ctx context.Context, accountID string, limit int) ([]*BalanceSnapshot, error) {
	if m.ListRecentFunc != nil {
		return m.ListRecentFunc(ctx, accountID, limit)
	}
	return nil, nil
}

func validParams() UpsertParams {
	return UpsertParams{
		ID:             "ext-acc-1",
		UserID:         1,
		Name:           "Everyday Checking",
		AccountType:    "depository",
		Subtype:        "checking",
		CurrentBalance: 1000,
	}
}

func TestReconcile_CreatesNewAccount(t *testing.T) {
	repo := &mockRepo{
		ExistsFunc: func(ctx context.Context, id string) (bool, error) { return false, nil },
	}
	svc := NewService(repo, &mockSnapshotRepo{})

	acc, created, err := svc.Reconcile(context.Background(), validParams())
	if err != nil {
		t.Fatalf("Reconcile() failed: %v", err)
	}
	if !created {
		t.Error("Reconcile() created = false, want true for unknown account")
	}
	if acc.ID != "ext-acc-1" {
		t.Errorf("Reconcile() returned account %q, want ext-acc-1", acc.ID)
	}
}

func TestReconcile_UpdatesExistingAccount(t *testing.T) {
	repo := &mockRepo{
		ExistsFunc: func(ctx context.Context, id string) (bool, error) { return true, nil },
	}
	svc := NewService(repo, &mockSnapshotRepo{})

	_, created, err := svc.Reconcile(context.Background(), validParams())
	if err != nil {
		t.Fatalf("Reconcile() failed: %v", err)
	}
	if created {
		t.Error("Reconcile() created = true, want false for known account")
	}
}

func TestReconcile_InvalidParams(t *testing.T) {
	svc := NewService(&mockRepo{}, &mockSnapshotRepo{})

	params := validParams()
	params.ID = ""

	_, _, err := svc.Reconcile(context.Background(), params)
	if err == nil {
		t.Error("Reconcile() accepted params without an external ID")
	}
}

func TestReconcile_OwnershipConflict(t *testing.T) {
	repo := &mockRepo{
		ExistsFunc: func(ctx context.Context, id string) (bool, error) { return true, nil },
		UpsertFunc: func(ctx context.Context, params UpsertParams) (*LinkedAccount, error) {
			return nil, ErrOwnershipConflict
		},
	}
	svc := NewService(repo, &mockSnapshotRepo{})

	_, _, err := svc.Reconcile(context.Background(), validParams())
	if !errors.Is(err, ErrOwnershipConflict) {
		t.Errorf("Reconcile() error = %v, want ErrOwnershipConflict", err)
	}
}

func TestGetAccount_VerifiesOwnership(t *testing.T) {
	repo := &mockRepo{
		GetByIDFunc: func(ctx context.Context, id string) (*LinkedAccount, error) {
			return &LinkedAccount{ID: id, UserID: 2}, nil
		},
	}
	svc := NewService(repo, &mockSnapshotRepo{})

	_, err := svc.GetAccount(context.Background(), "ext-acc-1", 1)
	if !errors.Is(err, ErrOwnershipConflict) {
		t.Errorf("GetAccount() error = %v, want ErrOwnershipConflict for foreign account", err)
	}

	acc, err := svc.GetAccount(context.Background(), "ext-acc-1", 2)
	if err != nil {
		t.Fatalf("GetAccount() failed for owner: %v", err)
	}
	if acc.UserID != 2 {
		t.Errorf("GetAccount() returned account owned by %d, want 2", acc.UserID)
	}
}

func TestListAccountsWithHistory(t *testing.T) {
	now := time.Now()
	repo := &mockRepo{
		ListByUserIDFunc: func(ctx context.Context, userID int64) ([]*LinkedAccount, error) {
			return []*LinkedAccount{
				{ID: "acc-1", UserID: userID},
				{ID: "acc-2", UserID: userID},
			}, nil
		},
	}

	var requestedLimits []int
	snapshots := &mockSnapshotRepo{
		ListRecentFunc: func(ctx context.Context, accountID string, limit int) ([]*BalanceSnapshot, error) {
			requestedLimits = append(requestedLimits, limit)
			return []*BalanceSnapshot{
				{ID: "s1", AccountID: accountID, Balance: 100, Timestamp: now},
			}, nil
		},
	}

	svc := NewService(repo, snapshots)

	result, err := svc.ListAccountsWithHistory(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("ListAccountsWithHistory() failed: %v", err)
	}

	if len(result) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(result))
	}
	for _, acc := range result {
		if len(acc.History) != 1 {
			t.Errorf("account %s has %d snapshots, want 1", acc.ID, len(acc.History))
		}
	}
	for _, limit := range requestedLimits {
		if limit != 10 {
			t.Errorf("snapshot limit = %d, want 10", limit)
		}
	}
}

func TestListAccountsWithHistory_DefaultLimit(t *testing.T) {
	repo := &mockRepo{
		ListByUserIDFunc: func(ctx context.Context, userID int64) ([]*LinkedAccount, error) {
			return []*LinkedAccount{{ID: "acc-1", UserID: userID}}, nil
		},
	}

	var gotLimit int
	snapshots := &mockSnapshotRepo{
		ListRecentFunc: func(ctx context.Context, accountID string, limit int) ([]*BalanceSnapshot, error) {
			gotLimit = limit
			return nil, nil
		},
	}

	svc := NewService(repo, snapshots)

	if _, err := svc.ListAccountsWithHistory(context.Background(), 1, 0); err != nil {
		t.Fatalf("ListAccountsWithHistory() failed: %v", err)
	}
	if gotLimit != 30 {
		t.Errorf("default snapshot limit = %d, want 30", gotLimit)
	}
}

func TestListAccountsByUserID_RequiresValidUser(t *testing.T) {
	svc := NewService(&mockRepo{}, &mockSnapshotRepo{})

	if _, err := svc.ListAccountsByUserID(context.Background(), 0); err == nil {
		t.Error("ListAccountsByUserID() accepted user ID 0")
	}
}
