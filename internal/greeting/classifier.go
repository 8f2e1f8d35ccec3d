// Package greeting は会話再開時の挨拶の場合分けを担う。
package greeting

import (
	"context"
	"fmt"
	"time"

	"github.com/hitoshi/kokoro/internal/repository"
)

// Kind は挨拶の種別を表す。
type Kind string

const (
	// KindFirstContact は会話履歴がまったく無い初回接触。
	KindFirstContact Kind = "first_contact"
	// KindReturningShort は最終発言からの間隔が閾値以内の再訪。
	KindReturningShort Kind = "returning_short"
	// KindReturningLong は最終発言から長い空白を挟んだ再訪。
	KindReturningLong Kind = "returning_long"
)

// Classifier は履歴の有無と最終発言からの経過時間で挨拶種別を決める。
type Classifier struct {
	messages repository.MessageRepository
	longGap  time.Duration

	// now はテストで差し替えるための時刻取得関数。
	now func() time.Time
}

// NewClassifier は Classifier を生成する。
func NewClassifier(messages repository.MessageRepository, longGap time.Duration) *Classifier {
	return &Classifier{
		messages: messages,
		longGap:  longGap,
		now:      time.Now,
	}
}

// Classify は対象ユーザーの挨拶種別を返す。
// 履歴はあるがユーザー発言が無い場合は経過時間ゼロとみなし KindReturningShort を返す。
func (c *Classifier) Classify(ctx context.Context, userID int64) (Kind, error) {
	ok, err := c.messages.HasAny(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("会話履歴の確認に失敗しました: %w", err)
	}
	if !ok {
		return KindFirstContact, nil
	}

	last, err := c.messages.LastUserMessageAt(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("最終発言時刻の取得に失敗しました: %w", err)
	}

	var gap time.Duration
	if last != nil {
		gap = c.now().Sub(*last)
	}
	if gap > c.longGap {
		return KindReturningLong, nil
	}
	return KindReturningShort, nil
}
