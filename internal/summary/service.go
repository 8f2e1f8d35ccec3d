// Package summary は会話履歴の要約生成と更新を担う。
package summary

import (
	"context"
	"fmt"

	"github.com/hitoshi/kokoro/internal/model"
	"github.com/hitoshi/kokoro/internal/provider"
	"github.com/hitoshi/kokoro/internal/repository"
)

// SummaryPrompt は要約生成時にモデルへ渡す指示文。
const SummaryPrompt = "Сделай краткое, бережное резюме диалога с точки зрения психолога.\n" +
	"Опиши, что происходит с человеком, какие чувства и темы проявляются.\n" +
	"Без диагнозов, интерпретаций и советов.\n" +
	"Нейтрально, спокойно, в 3–5 предложениях."

// Service は要約の生成と保存を担うサービス。
// 要約は既存の行を上書きして保存され、バージョン履歴は持たない。
type Service struct {
	messages    repository.MessageRepository
	summaries   repository.SummaryRepository
	completer   provider.Completer
	maxHistory  int
	trigger     int
	temperature float64
}

// NewService は Service を生成する。
func NewService(messages repository.MessageRepository, summaries repository.SummaryRepository, completer provider.Completer, maxHistory, trigger int, temperature float64) *Service {
	return &Service{
		messages:    messages,
		summaries:   summaries,
		completer:   completer,
		maxHistory:  maxHistory,
		trigger:     trigger,
		temperature: temperature,
	}
}

// MaybeSummarize はユーザー発言数が trigger の倍数に達していれば要約を更新し、
// 更新したかどうかを返す。未達の場合は何もしない。バックグラウンド処理のため、
// 呼び出し側は返されたエラーを記録するだけにとどめ、返信処理を中断してはならない。
func (s *Service) MaybeSummarize(ctx context.Context, userID int64) (bool, error) {
	if s.trigger <= 0 {
		return false, nil
	}

	count, err := s.messages.CountUserMessages(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("ユーザー発言数の取得に失敗しました: %w", err)
	}
	if count == 0 || count%s.trigger != 0 {
		return false, nil
	}

	if _, err := s.Refresh(ctx, userID); err != nil {
		return false, err
	}
	return true, nil
}

// Ensure は保存済みの要約を返す。未生成の場合はその場で生成する。
// 会話履歴が無い場合は model.ErrNoConversation を返す。
// ユーザーの明示的な要求に応える経路なので、生成失敗はそのまま呼び出し側へ返す。
func (s *Service) Ensure(ctx context.Context, userID int64) (string, error) {
	ok, err := s.messages.HasAny(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("会話履歴の確認に失敗しました: %w", err)
	}
	if !ok {
		return "", model.ErrNoConversation
	}

	sum, err := s.summaries.Find(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("要約の取得に失敗しました: %w", err)
	}
	if sum != nil && sum.Content != "" {
		return sum.Content, nil
	}

	return s.Refresh(ctx, userID)
}

// Refresh は直近の履歴から要約を生成し直して保存し、生成した本文を返す。
func (s *Service) Refresh(ctx context.Context, userID int64) (string, error) {
	history, err := s.messages.ListRecent(ctx, userID, s.maxHistory)
	if err != nil {
		return "", fmt.Errorf("会話履歴の取得に失敗しました: %w", err)
	}

	turns := make([]provider.Turn, 0, len(history)+1)
	turns = append(turns, provider.Turn{Role: model.RoleSystem, Content: SummaryPrompt})
	for _, msg := range history {
		turns = append(turns, provider.Turn{Role: msg.Role, Content: msg.Content})
	}

	content, err := s.completer.Complete(ctx, turns, s.temperature)
	if err != nil {
		return "", fmt.Errorf("要約の生成に失敗しました: %w", err)
	}

	if err := s.summaries.Upsert(ctx, userID, content); err != nil {
		return "", fmt.Errorf("要約の保存に失敗しました: %w", err)
	}
	return content, nil
}
