package entitlement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/kokoro/internal/model"
)

// --- モック ---

type mockUsageRepo struct {
	countForFn  func(ctx context.Context, userID int64, day string) (int, error)
	incrementFn func(ctx context.Context, userID int64, day string) error
}

func (m *mockUsageRepo) CountFor(ctx context.Context, userID int64, day string) (int, error) {
	if m.countForFn != nil {
		return m.countForFn(ctx, userID, day)
	}
	return 0, nil
}
func (m *mockUsageRepo) Increment(ctx context.Context, userID int64, day string) error {
	if m.incrementFn != nil {
		return m.incrementFn(ctx, userID, day)
	}
	return nil
}

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

func fixedNow() time.Time {
	return time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
}

func newTestService(usage *mockUsageRepo, sub *mockSubRepo) *Service {
	s := NewService(usage, sub, 20)
	s.now = fixedNow
	return s
}

func TestAdmit_UnderLimit_AllowsFreeTier(t *testing.T) {
	usage := &mockUsageRepo{
		countForFn: func(ctx context.Context, userID int64, day string) (int, error) {
			if day != "2025-01-15" {
				t.Errorf("day = %q, want %q", day, "2025-01-15")
			}
			return 5, nil
		},
	}
	s := newTestService(usage, &mockSubRepo{})

	d, err := s.Admit(context.Background(), 1, "хочу поговорить")
	if err != nil {
		t.Fatalf("Admit がエラーを返した: %v", err)
	}
	if !d.Allowed {
		t.Error("枠内のメッセージが拒否された")
	}
	if !d.FreeTier {
		t.Error("無料枠の受け入れはFreeTier=trueであるべき")
	}
	if d.Crisis {
		t.Error("通常メッセージがCrisis=trueと判定された")
	}
}

func TestAdmit_AtLimit_Denies(t *testing.T) {
	usage := &mockUsageRepo{
		countForFn: func(ctx context.Context, userID int64, day string) (int, error) {
			return 20, nil
		},
	}
	s := newTestService(usage, &mockSubRepo{})

	d, err := s.Admit(context.Background(), 1, "расскажи что-нибудь")
	if err != nil {
		t.Fatalf("Admit がエラーを返した: %v", err)
	}
	if d.Allowed {
		t.Error("枠超過のメッセージが受け入れられた")
	}
}

func TestAdmit_OverLimitWithCrisisKeyword_Allows(t *testing.T) {
	usage := &mockUsageRepo{
		countForFn: func(ctx context.Context, userID int64, day string) (int, error) {
			return 25, nil
		},
	}
	s := newTestService(usage, &mockSubRepo{})

	d, err := s.Admit(context.Background(), 1, "мне очень тревожно сегодня")
	if err != nil {
		t.Fatalf("Admit がエラーを返した: %v", err)
	}
	if !d.Allowed {
		t.Error("危機キーワードを含むメッセージが拒否された")
	}
	if !d.Crisis {
		t.Error("Crisisフラグが立っていない")
	}
	if !d.FreeTier {
		t.Error("危機受け入れも無料枠の消費対象（FreeTier=true）であるべき")
	}
}

func TestAdmit_ActiveSubscription_AlwaysAllows(t *testing.T) {
	usage := &mockUsageRepo{
		countForFn: func(ctx context.Context, userID int64, day string) (int, error) {
			t.Error("サブスクリプション有効時は利用量を参照すべきでない")
			return 0, nil
		},
	}
	sub := &mockSubRepo{
		findFn: func(ctx context.Context, userID int64) (*model.Subscription, error) {
			return &model.Subscription{UserID: userID, ExpiresAt: fixedNow().Add(24 * time.Hour)}, nil
		},
	}
	s := newTestService(usage, sub)

	d, err := s.Admit(context.Background(), 1, "обычное сообщение")
	if err != nil {
		t.Fatalf("Admit がエラーを返した: %v", err)
	}
	if !d.Allowed {
		t.Error("サブスクリプション有効なのに拒否された")
	}
	if d.FreeTier {
		t.Error("サブスクリプションでの受け入れはFreeTier=falseであるべき")
	}
}

func TestAdmit_ExpiredSubscription_FallsBackToQuota(t *testing.T) {
	usage := &mockUsageRepo{
		countForFn: func(ctx context.Context, userID int64, day string) (int, error) {
			return 20, nil
		},
	}
	sub := &mockSubRepo{
		findFn: func(ctx context.Context, userID int64) (*model.Subscription, error) {
			return &model.Subscription{UserID: userID, ExpiresAt: fixedNow().Add(-time.Hour)}, nil
		},
	}
	s := newTestService(usage, sub)

	d, err := s.Admit(context.Background(), 1, "обычное сообщение")
	if err != nil {
		t.Fatalf("Admit がエラーを返した: %v", err)
	}
	if d.Allowed {
		t.Error("期限切れサブスクリプションで枠超過なのに受け入れられた")
	}
}

func TestAdmit_RepoError_Propagates(t *testing.T) {
	sub := &mockSubRepo{
		findFn: func(ctx context.Context, userID int64) (*model.Subscription, error) {
			return nil, errors.New("db down")
		},
	}
	s := newTestService(&mockUsageRepo{}, sub)

	_, err := s.Admit(context.Background(), 1, "привет")
	if err == nil {
		t.Fatal("リポジトリのエラーが伝播していない")
	}
}

func TestRecordUsage_IncrementsToday(t *testing.T) {
	var gotDay string
	var gotUser int64
	usage := &mockUsageRepo{
		incrementFn: func(ctx context.Context, userID int64, day string) error {
			gotUser = userID
			gotDay = day
			return nil
		},
	}
	s := newTestService(usage, &mockSubRepo{})

	if err := s.RecordUsage(context.Background(), 77); err != nil {
		t.Fatalf("RecordUsage がエラーを返した: %v", err)
	}
	if gotUser != 77 {
		t.Errorf("userID = %d, want 77", gotUser)
	}
	if gotDay != "2025-01-15" {
		t.Errorf("day = %q, want %q", gotDay, "2025-01-15")
	}
}

func TestContainsCrisisKeyword(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"キーワードそのもの", "паника", true},
		{"文中に含まれる", "у меня опять паника и страшно", true},
		{"大文字でも検出", "МНЕ ОЧЕНЬ ПЛОХО", true},
		{"複数語キーワード", "я больше не хочу жить", true},
		{"通常の文", "сегодня хороший день", false},
		{"空文字", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ContainsCrisisKeyword(tt.text); got != tt.want {
				t.Errorf("ContainsCrisisKeyword(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}
