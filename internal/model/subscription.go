// Package model はドメインモデルを定義する。
package model

import "time"

// Subscription はユーザーの有料サブスクリプションを表す。
// ユーザーにつき1行のみ保持し、支払いのたびに期限を上書きする。
type Subscription struct {
	UserID    int64
	ExpiresAt time.Time
	UpdatedAt time.Time
}

// ActiveAt は指定時刻においてサブスクリプションが有効かどうかを返す。
func (s *Subscription) ActiveAt(now time.Time) bool {
	if s == nil {
		return false
	}
	return s.ExpiresAt.After(now)
}
