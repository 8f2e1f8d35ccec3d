// Package model はドメインモデルを定義する。
package model

import "time"

// Role は会話メッセージの発話者種別を表す。
type Role string

const (
	// RoleUser はユーザーの発話。
	RoleUser Role = "user"
	// RoleAssistant はアシスタントの応答。
	RoleAssistant Role = "assistant"
	// RoleSystem はシステム指示。プロンプト組み立て時のみ使用され、
	// messagesテーブルには保存されない。
	RoleSystem Role = "system"
)

// Message は会話履歴の1件を表す。追記専用で、更新・削除は行わない。
type Message struct {
	ID        int64
	UserID    int64
	Role      Role
	Content   string
	CreatedAt time.Time
}
