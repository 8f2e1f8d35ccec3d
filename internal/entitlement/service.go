// Package entitlement はメッセージ受け入れ判定のドメインロジックを提供する。
// サブスクリプション・日次無料枠・危機キーワードの3要素で判定する。
package entitlement

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hitoshi/kokoro/internal/repository"
)

// crisisKeywords は無料枠を超えていても受け入れる危機シグナルの語彙。
// 小文字化したメッセージ本文に対する部分一致で判定する。
var crisisKeywords = []string{
	"суицид", "умереть", "не хочу жить", "покончить",
	"паника", "очень плохо", "страшно", "тревожно", "бессмысленно",
}

// ContainsCrisisKeyword はメッセージ本文に危機キーワードが含まれるかを返す。
func ContainsCrisisKeyword(text string) bool {
	t := strings.ToLower(text)
	for _, k := range crisisKeywords {
		if strings.Contains(t, k) {
			return true
		}
	}
	return false
}

// Decision は受け入れ判定の結果を表す。
// 拒否は異常ではなく通常の判定結果であり、エラーとしては扱わない。
type Decision struct {
	// Allowed はメッセージを受け入れるかどうか。
	Allowed bool
	// FreeTier は無料枠での受け入れかどうか。trueの場合、受け入れ後に
	// RecordUsageで消費を記録する。危機キーワードによる受け入れも対象。
	FreeTier bool
	// Crisis は本文に危機キーワードが含まれていたかどうか。
	Crisis bool
}

// Service はメッセージ受け入れ判定を行う。
type Service struct {
	usageRepo repository.UsageRepository
	subRepo   repository.SubscriptionRepository

	freeDailyLimit int
	now            func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	usageRepo repository.UsageRepository,
	subRepo repository.SubscriptionRepository,
	freeDailyLimit int,
) *Service {
	return &Service{
		usageRepo:      usageRepo,
		subRepo:        subRepo,
		freeDailyLimit: freeDailyLimit,
		now:            time.Now,
	}
}

// Admit は1件のユーザーメッセージを受け入れるか判定する。
// 有効なサブスクリプションがあれば無条件で受け入れる。なければ当日の消費数が
// 無料枠未満か、本文に危機キーワードが含まれる場合のみ受け入れる。
func (s *Service) Admit(ctx context.Context, userID int64, text string) (Decision, error) {
	sub, err := s.subRepo.Find(ctx, userID)
	if err != nil {
		return Decision{}, fmt.Errorf("サブスクリプションの確認に失敗しました: %w", err)
	}
	if sub.ActiveAt(s.now()) {
		return Decision{Allowed: true}, nil
	}

	count, err := s.usageRepo.CountFor(ctx, userID, s.today())
	if err != nil {
		return Decision{}, fmt.Errorf("利用量の確認に失敗しました: %w", err)
	}

	crisis := ContainsCrisisKeyword(text)
	if count >= s.freeDailyLimit && !crisis {
		return Decision{}, nil
	}

	return Decision{Allowed: true, FreeTier: true, Crisis: crisis}, nil
}

// RecordUsage は無料枠で受け入れたメッセージの消費を記録する。
// 受け入れ時点で計上し、補完の成否には連動させない。危機キーワードによる
// 受け入れも同様に計上する（枠超過後はAdmitの判定に影響しない）。
func (s *Service) RecordUsage(ctx context.Context, userID int64) error {
	if err := s.usageRepo.Increment(ctx, userID, s.today()); err != nil {
		return fmt.Errorf("利用量の記録に失敗しました: %w", err)
	}
	return nil
}

// today はサーバーローカル時刻の当日を "YYYY-MM-DD" 形式で返す。
func (s *Service) today() string {
	return s.now().Format("2006-01-02")
}
