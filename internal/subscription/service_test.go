package subscription

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/kokoro/internal/model"
)

// --- モック ---

type mockSubRepo struct {
	findFn   func(ctx context.Context, userID int64) (*model.Subscription, error)
	upsertFn func(ctx context.Context, userID int64, expiresAt time.Time) error
}

func (m *mockSubRepo) Find(ctx context.Context, userID int64) (*model.Subscription, error) {
	if m.findFn != nil {
		return m.findFn(ctx, userID)
	}
	return nil, nil
}
func (m *mockSubRepo) Upsert(ctx context.Context, userID int64, expiresAt time.Time) error {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, userID, expiresAt)
	}
	return nil
}

// --- テスト ---

func TestActivate_SetsExpiryFromNow(t *testing.T) {
	fixedNow := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

	var gotUserID int64
	var gotExpiresAt time.Time
	subs := &mockSubRepo{
		upsertFn: func(ctx context.Context, userID int64, expiresAt time.Time) error {
			gotUserID = userID
			gotExpiresAt = expiresAt
			return nil
		},
	}

	s := NewService(subs, 30)
	s.now = func() time.Time { return fixedNow }

	expiresAt, err := s.Activate(context.Background(), 42)
	if err != nil {
		t.Fatalf("Activate がエラーを返した: %v", err)
	}

	want := fixedNow.Add(30 * 24 * time.Hour)
	if !expiresAt.Equal(want) {
		t.Errorf("expiresAt = %v, want %v", expiresAt, want)
	}
	if gotUserID != 42 {
		t.Errorf("userID = %d, want 42", gotUserID)
	}
	if !gotExpiresAt.Equal(want) {
		t.Errorf("保存された expiresAt = %v, want %v", gotExpiresAt, want)
	}
}

func TestActivate_SecondPaymentOverwritesInsteadOfStacking(t *testing.T) {
	first := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	second := first.Add(10 * 24 * time.Hour)

	var saved []time.Time
	subs := &mockSubRepo{
		upsertFn: func(ctx context.Context, userID int64, expiresAt time.Time) error {
			saved = append(saved, expiresAt)
			return nil
		},
	}

	s := NewService(subs, 30)

	s.now = func() time.Time { return first }
	if _, err := s.Activate(context.Background(), 42); err != nil {
		t.Fatalf("1回目の Activate がエラーを返した: %v", err)
	}

	s.now = func() time.Time { return second }
	if _, err := s.Activate(context.Background(), 42); err != nil {
		t.Fatalf("2回目の Activate がエラーを返した: %v", err)
	}

	if len(saved) != 2 {
		t.Fatalf("Upsert の回数 = %d, want 2", len(saved))
	}
	// 2回目の期限は2回目の支払い時刻が起点。残り20日分は引き継がれない。
	want := second.Add(30 * 24 * time.Hour)
	if !saved[1].Equal(want) {
		t.Errorf("2回目の expiresAt = %v, want %v", saved[1], want)
	}
}

func TestActivate_RepoError_Propagates(t *testing.T) {
	subs := &mockSubRepo{
		upsertFn: func(ctx context.Context, userID int64, expiresAt time.Time) error {
			return errors.New("db down")
		},
	}

	s := NewService(subs, 30)
	if _, err := s.Activate(context.Background(), 42); err == nil {
		t.Fatal("リポジトリのエラーが伝播していない")
	}
}
