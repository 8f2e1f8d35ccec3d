// Package model はドメインモデルを定義する。
package model

import "time"

// Summary はユーザーごとの会話要約を表す。ユーザーにつき1行のみ保持し、
// 再生成のたびに全体を上書きする。
type Summary struct {
	UserID    int64
	Content   string
	UpdatedAt time.Time
}
