package summary

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/kokoro/internal/model"
	"github.com/hitoshi/kokoro/internal/provider"
)

// --- モック ---

type mockMessageRepo struct {
	listRecentFn        func(ctx context.Context, userID int64, limit int) ([]*model.Message, error)
	hasAnyFn            func(ctx context.Context, userID int64) (bool, error)
	countUserMessagesFn func(ctx context.Context, userID int64) (int, error)
}

func (m *mockMessageRepo) Append(ctx context.Context, userID int64, role model.Role, content string) error {
	return nil
}
func (m *mockMessageRepo) ListRecent(ctx context.Context, userID int64, limit int) ([]*model.Message, error) {
	if m.listRecentFn != nil {
		return m.listRecentFn(ctx, userID, limit)
	}
	return nil, nil
}
func (m *mockMessageRepo) HasAny(ctx context.Context, userID int64) (bool, error) {
	if m.hasAnyFn != nil {
		return m.hasAnyFn(ctx, userID)
	}
	return false, nil
}
func (m *mockMessageRepo) CountUserMessages(ctx context.Context, userID int64) (int, error) {
	if m.countUserMessagesFn != nil {
		return m.countUserMessagesFn(ctx, userID)
	}
	return 0, nil
}
func (m *mockMessageRepo) LastUserMessageAt(ctx context.Context, userID int64) (*time.Time, error) {
	return nil, nil
}

type mockSummaryRepo struct {
	findFn   func(ctx context.Context, userID int64) (*model.Summary, error)
	upsertFn func(ctx context.Context, userID int64, content string) error
}

func (m *mockSummaryRepo) Find(ctx context.Context, userID int64) (*model.Summary, error) {
	if m.findFn != nil {
		return m.findFn(ctx, userID)
	}
	return nil, nil
}
func (m *mockSummaryRepo) Upsert(ctx context.Context, userID int64, content string) error {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, userID, content)
	}
	return nil
}

type mockCompleter struct {
	completeFn func(ctx context.Context, turns []provider.Turn, temperature float64) (string, error)
}

func (m *mockCompleter) Complete(ctx context.Context, turns []provider.Turn, temperature float64) (string, error) {
	if m.completeFn != nil {
		return m.completeFn(ctx, turns, temperature)
	}
	return "", errors.New("completeFn not set")
}

func historyOf(contents ...string) []*model.Message {
	messages := make([]*model.Message, len(contents))
	for i, c := range contents {
		role := model.RoleUser
		if i%2 == 1 {
			role = model.RoleAssistant
		}
		messages[i] = &model.Message{Role: role, Content: c}
	}
	return messages
}

// --- テスト ---

func TestMaybeSummarize_TriggerReached_RefreshesSummary(t *testing.T) {
	messages := &mockMessageRepo{
		countUserMessagesFn: func(ctx context.Context, userID int64) (int, error) {
			return 10, nil
		},
		listRecentFn: func(ctx context.Context, userID int64, limit int) ([]*model.Message, error) {
			if limit != 30 {
				t.Errorf("limit = %d, want 30", limit)
			}
			return historyOf("мне тяжело", "Расскажите подробнее."), nil
		},
	}

	var savedContent string
	summaries := &mockSummaryRepo{
		upsertFn: func(ctx context.Context, userID int64, content string) error {
			if userID != 42 {
				t.Errorf("userID = %d, want 42", userID)
			}
			savedContent = content
			return nil
		},
	}

	completer := &mockCompleter{
		completeFn: func(ctx context.Context, turns []provider.Turn, temperature float64) (string, error) {
			if temperature != 0.4 {
				t.Errorf("temperature = %v, want 0.4", temperature)
			}
			if len(turns) != 3 {
				t.Fatalf("ターン数 = %d, want 3", len(turns))
			}
			if turns[0].Role != model.RoleSystem || turns[0].Content != SummaryPrompt {
				t.Error("先頭は要約指示のシステムターンであるべき")
			}
			if turns[1].Content != "мне тяжело" {
				t.Errorf("turns[1].Content = %q", turns[1].Content)
			}
			return "Человек делится усталостью и ищет поддержку.", nil
		},
	}

	s := NewService(messages, summaries, completer, 30, 10, 0.4)
	refreshed, err := s.MaybeSummarize(context.Background(), 42)
	if err != nil {
		t.Fatalf("MaybeSummarize がエラーを返した: %v", err)
	}
	if !refreshed {
		t.Error("refreshed = false, want true")
	}
	if savedContent != "Человек делится усталостью и ищет поддержку." {
		t.Errorf("保存された要約 = %q", savedContent)
	}
}

func TestMaybeSummarize_BelowTrigger_DoesNothing(t *testing.T) {
	for _, count := range []int{0, 1, 9, 11, 19} {
		messages := &mockMessageRepo{
			countUserMessagesFn: func(ctx context.Context, userID int64) (int, error) {
				return count, nil
			},
			listRecentFn: func(ctx context.Context, userID int64, limit int) ([]*model.Message, error) {
				t.Errorf("count=%d で履歴が読まれた", count)
				return nil, nil
			},
		}
		s := NewService(messages, &mockSummaryRepo{}, &mockCompleter{}, 30, 10, 0.4)
		refreshed, err := s.MaybeSummarize(context.Background(), 1)
		if err != nil {
			t.Errorf("count=%d: MaybeSummarize がエラーを返した: %v", count, err)
		}
		if refreshed {
			t.Errorf("count=%d で要約が更新された", count)
		}
	}
}

func TestMaybeSummarize_EveryMultipleTriggers(t *testing.T) {
	for _, count := range []int{10, 20, 30} {
		called := false
		messages := &mockMessageRepo{
			countUserMessagesFn: func(ctx context.Context, userID int64) (int, error) {
				return count, nil
			},
			listRecentFn: func(ctx context.Context, userID int64, limit int) ([]*model.Message, error) {
				return historyOf("сообщение"), nil
			},
		}
		completer := &mockCompleter{
			completeFn: func(ctx context.Context, turns []provider.Turn, temperature float64) (string, error) {
				called = true
				return "резюме", nil
			},
		}
		s := NewService(messages, &mockSummaryRepo{}, completer, 30, 10, 0.4)
		refreshed, err := s.MaybeSummarize(context.Background(), 1)
		if err != nil {
			t.Errorf("count=%d: MaybeSummarize がエラーを返した: %v", count, err)
		}
		if !called || !refreshed {
			t.Errorf("count=%d で要約が生成されなかった", count)
		}
	}
}

func TestMaybeSummarize_ProviderFailure_ReturnsError(t *testing.T) {
	messages := &mockMessageRepo{
		countUserMessagesFn: func(ctx context.Context, userID int64) (int, error) {
			return 10, nil
		},
		listRecentFn: func(ctx context.Context, userID int64, limit int) ([]*model.Message, error) {
			return historyOf("сообщение"), nil
		},
	}
	completer := &mockCompleter{
		completeFn: func(ctx context.Context, turns []provider.Turn, temperature float64) (string, error) {
			return "", errors.New("rate limited")
		},
	}
	summaries := &mockSummaryRepo{
		upsertFn: func(ctx context.Context, userID int64, content string) error {
			t.Error("生成失敗時に Upsert が呼ばれた")
			return nil
		},
	}

	s := NewService(messages, summaries, completer, 30, 10, 0.4)
	refreshed, err := s.MaybeSummarize(context.Background(), 1)
	if err == nil {
		t.Fatal("生成失敗がエラーとして返っていない")
	}
	if refreshed {
		t.Error("生成失敗なのに refreshed = true")
	}
}

func TestEnsure_NoConversation(t *testing.T) {
	messages := &mockMessageRepo{
		hasAnyFn: func(ctx context.Context, userID int64) (bool, error) {
			return false, nil
		},
	}
	s := NewService(messages, &mockSummaryRepo{}, &mockCompleter{}, 30, 10, 0.4)

	_, err := s.Ensure(context.Background(), 1)
	if !errors.Is(err, model.ErrNoConversation) {
		t.Fatalf("err = %v, want model.ErrNoConversation", err)
	}
}

func TestEnsure_ExistingSummary_ReturnedWithoutGeneration(t *testing.T) {
	messages := &mockMessageRepo{
		hasAnyFn: func(ctx context.Context, userID int64) (bool, error) {
			return true, nil
		},
	}
	summaries := &mockSummaryRepo{
		findFn: func(ctx context.Context, userID int64) (*model.Summary, error) {
			return &model.Summary{UserID: userID, Content: "уже есть резюме"}, nil
		},
	}
	completer := &mockCompleter{
		completeFn: func(ctx context.Context, turns []provider.Turn, temperature float64) (string, error) {
			t.Error("既存の要約があるのに生成が呼ばれた")
			return "", nil
		},
	}

	s := NewService(messages, summaries, completer, 30, 10, 0.4)
	got, err := s.Ensure(context.Background(), 1)
	if err != nil {
		t.Fatalf("Ensure がエラーを返した: %v", err)
	}
	if got != "уже есть резюме" {
		t.Errorf("Ensure = %q", got)
	}
}

func TestEnsure_MissingSummary_GeneratesAndStores(t *testing.T) {
	messages := &mockMessageRepo{
		hasAnyFn: func(ctx context.Context, userID int64) (bool, error) {
			return true, nil
		},
		listRecentFn: func(ctx context.Context, userID int64, limit int) ([]*model.Message, error) {
			return historyOf("я устал"), nil
		},
	}

	var saved string
	summaries := &mockSummaryRepo{
		upsertFn: func(ctx context.Context, userID int64, content string) error {
			saved = content
			return nil
		},
	}
	completer := &mockCompleter{
		completeFn: func(ctx context.Context, turns []provider.Turn, temperature float64) (string, error) {
			return "Человек говорит об усталости.", nil
		},
	}

	s := NewService(messages, summaries, completer, 30, 10, 0.4)
	got, err := s.Ensure(context.Background(), 1)
	if err != nil {
		t.Fatalf("Ensure がエラーを返した: %v", err)
	}
	if got != "Человек говорит об усталости." {
		t.Errorf("Ensure = %q", got)
	}
	if saved != got {
		t.Errorf("保存された要約 = %q, want %q", saved, got)
	}
}

func TestEnsure_GenerationFailure_Surfaced(t *testing.T) {
	messages := &mockMessageRepo{
		hasAnyFn: func(ctx context.Context, userID int64) (bool, error) {
			return true, nil
		},
		listRecentFn: func(ctx context.Context, userID int64, limit int) ([]*model.Message, error) {
			return historyOf("я устал"), nil
		},
	}
	completer := &mockCompleter{
		completeFn: func(ctx context.Context, turns []provider.Turn, temperature float64) (string, error) {
			return "", errors.New("provider down")
		},
	}

	s := NewService(messages, &mockSummaryRepo{}, completer, 30, 10, 0.4)
	if _, err := s.Ensure(context.Background(), 1); err == nil {
		t.Fatal("生成失敗が呼び出し側へ返っていない")
	}
}
