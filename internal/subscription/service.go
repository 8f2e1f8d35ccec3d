// Package subscription は有料購読の反映を担う。
package subscription

import (
	"context"
	"fmt"
	"time"

	"github.com/hitoshi/kokoro/internal/repository"
)

// Service は支払い確認イベントを購読状態へ反映するサービス層。
type Service struct {
	subs repository.SubscriptionRepository
	days int

	// now はテストで差し替えるための時刻取得関数。
	now func() time.Time
}

// NewService は Service を生成する。days は1回の支払いで延長する日数。
func NewService(subs repository.SubscriptionRepository, days int) *Service {
	return &Service{
		subs: subs,
		days: days,
		now:  time.Now,
	}
}

// Activate は支払い確認を受けて有効期限を「現在時刻 + days 日」で保存する。
// 既存の残り期間には加算せず上書きする。確定した有効期限を返す。
func (s *Service) Activate(ctx context.Context, userID int64) (time.Time, error) {
	expiresAt := s.now().UTC().Add(time.Duration(s.days) * 24 * time.Hour)
	if err := s.subs.Upsert(ctx, userID, expiresAt); err != nil {
		return time.Time{}, fmt.Errorf("購読の有効化に失敗しました: %w", err)
	}
	return expiresAt, nil
}
