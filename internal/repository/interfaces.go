// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/kokoro/internal/model"
)

// MessageRepository は会話履歴の永続化インターフェース。履歴は追記専用で、
// 更新・削除のメソッドは提供しない。
type MessageRepository interface {
	// Append はメッセージを1件追記する。
	Append(ctx context.Context, userID int64, role model.Role, content string) error

	// ListRecent は直近limit件のメッセージを時系列順（古い順）で返す。
	ListRecent(ctx context.Context, userID int64, limit int) ([]*model.Message, error)

	// HasAny はユーザーのメッセージが1件以上存在するかを返す。
	HasAny(ctx context.Context, userID int64) (bool, error)

	// CountUserMessages はユーザー発話（role='user'）の総数を返す。
	CountUserMessages(ctx context.Context, userID int64) (int, error)

	// LastUserMessageAt はユーザー発話の最終時刻を返す。発話がない場合はnilを返す。
	LastUserMessageAt(ctx context.Context, userID int64) (*time.Time, error)
}

// SummaryRepository は会話要約の永続化インターフェース。
type SummaryRepository interface {
	// Find は指定ユーザーの要約を取得する。見つからない場合はnilを返す。
	Find(ctx context.Context, userID int64) (*model.Summary, error)

	// Upsert は要約を上書き保存する。既存の要約は全体が置き換わる。
	Upsert(ctx context.Context, userID int64, content string) error
}

// UsageRepository は日次利用量の永続化インターフェース。
// dayはサーバーローカル時刻の "YYYY-MM-DD" 形式。
type UsageRepository interface {
	// CountFor は指定ユーザー・日付の消費数を返す。記録がない場合は0を返す。
	CountFor(ctx context.Context, userID int64, day string) (int, error)

	// Increment は指定ユーザー・日付の消費数を原子的に1増やす。
	// 重複配信と並行実行に耐えるよう、単一のUPSERT文で実装すること。
	Increment(ctx context.Context, userID int64, day string) error
}

// SubscriptionRepository はサブスクリプションの永続化インターフェース。
type SubscriptionRepository interface {
	// Find は指定ユーザーのサブスクリプションを取得する。見つからない場合はnilを返す。
	Find(ctx context.Context, userID int64) (*model.Subscription, error)

	// Upsert は有効期限を上書き保存する。残存期間への加算は行わない。
	Upsert(ctx context.Context, userID int64, expiresAt time.Time) error
}

// ReportRepository は運用レポート用の集計インターフェース。
type ReportRepository interface {
	// Collect は総メッセージ数・当日の利用ユーザー数・有効サブスクリプション数を集計する。
	Collect(ctx context.Context, now time.Time, day string) (*model.UsageReport, error)
}
