// Package chat は受信メッセージ1件を応答1件へ変換する中核フローを実装する。
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/kokoro/internal/conversation"
	"github.com/hitoshi/kokoro/internal/entitlement"
	"github.com/hitoshi/kokoro/internal/metrics"
	"github.com/hitoshi/kokoro/internal/model"
	"github.com/hitoshi/kokoro/internal/provider"
	"github.com/hitoshi/kokoro/internal/repository"
	"github.com/hitoshi/kokoro/internal/summary"
)

// LimitReachedText は無料枠を使い切ったユーザーへの定型応答。
// 拒否された発言は保存されず、補完APIも呼ばれない。
const LimitReachedText = "Я здесь и готов продолжать разговор.\n\n" +
	"На сегодня вы использовали бесплатный лимит сообщений.\n" +
	"Если хотите общаться без ограничений — можно оформить подписку.\n\n" +
	"Если же сейчас тяжело или тревожно — напишите об этом, я отвечу."

// ProviderFailureText は補完API障害時の定型応答。
// ユーザー発言は保存済みのまま残るので、次の送信では全文脈が揃う。
const ProviderFailureText = "Мне не удалось сейчас ответить из-за технической ошибки.\n\n" +
	"Ваше сообщение сохранено — попробуйте, пожалуйста, написать ещё раз чуть позже."

// Reply は受信メッセージ1件に対する応答。
type Reply struct {
	// Text は送信すべき本文。
	Text string
	// Denied は無料枠超過の定型文による拒否応答であることを示す。
	Denied bool
	// Crisis は危機キーワードにより上限を越えて受理されたことを示す。
	Crisis bool
}

// Service は受理判定から応答保存までの会話フローを束ねるサービス層。
type Service struct {
	entitlements *entitlement.Service
	messages     repository.MessageRepository
	summaries    *summary.Service
	assembler    *conversation.Assembler
	completer    provider.Completer
	collector    metrics.MetricsCollector
	temperature  float64
	logger       *slog.Logger
}

// NewService は Service を生成する。
func NewService(
	entitlements *entitlement.Service,
	messages repository.MessageRepository,
	summaries *summary.Service,
	assembler *conversation.Assembler,
	completer provider.Completer,
	collector metrics.MetricsCollector,
	temperature float64,
	logger *slog.Logger,
) *Service {
	return &Service{
		entitlements: entitlements,
		messages:     messages,
		summaries:    summaries,
		assembler:    assembler,
		completer:    completer,
		collector:    collector,
		temperature:  temperature,
		logger:       logger,
	}
}

// Respond はユーザーの発言1件を処理して応答を返す。
//
// 流れ: 受理判定 → 発言の保存と利用量の計上 → 必要なら要約の更新 →
// プロンプト組み立て → 補完API呼び出し → 応答の保存。
// 補完APIの失敗は定型の詫び文で返し、エラーにはしない。
// 永続化の失敗はエラーとして返し、呼び出し側が記録する。
func (s *Service) Respond(ctx context.Context, userID int64, text string) (*Reply, error) {
	decision, err := s.entitlements.Admit(ctx, userID, text)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		s.collector.RecordMessageDenied()
		return &Reply{Text: LimitReachedText, Denied: true}, nil
	}

	if err := s.messages.Append(ctx, userID, model.RoleUser, text); err != nil {
		return nil, fmt.Errorf("ユーザー発言の保存に失敗しました: %w", err)
	}
	if decision.FreeTier {
		if err := s.entitlements.RecordUsage(ctx, userID); err != nil {
			return nil, err
		}
	}

	s.collector.RecordMessageAdmitted()
	if decision.Crisis {
		s.collector.RecordCrisisOverride()
	}

	// 要約の更新は従属処理。失敗しても応答は続行する。
	refreshed, err := s.summaries.MaybeSummarize(ctx, userID)
	if err != nil {
		s.logger.Warn("summary refresh failed",
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()),
		)
	} else if refreshed {
		s.collector.RecordSummaryRefreshed()
	}

	turns, err := s.assembler.BuildPrompt(ctx, userID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	answer, err := s.completer.Complete(ctx, turns, s.temperature)
	s.collector.RecordProviderLatency(time.Since(start))
	if err != nil {
		s.collector.RecordProviderError(provider.IsTemporary(err))
		s.logger.Error("completion failed",
			slog.Int64("user_id", userID),
			slog.Int("prompt_turns", len(turns)),
			slog.String("error", err.Error()),
		)
		return &Reply{Text: ProviderFailureText, Crisis: decision.Crisis}, nil
	}

	if err := s.messages.Append(ctx, userID, model.RoleAssistant, answer); err != nil {
		return nil, fmt.Errorf("応答の保存に失敗しました: %w", err)
	}
	return &Reply{Text: answer, Crisis: decision.Crisis}, nil
}
