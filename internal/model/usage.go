// Package model はドメインモデルを定義する。
package model

// UsageCount はユーザー・日付ごとの無料メッセージ消費数を表す。
// Day はサーバーローカル時刻の "YYYY-MM-DD" 形式。
type UsageCount struct {
	UserID int64
	Day    string
	Count  int
}

// UsageReport は運用レポート用の集計結果を表す。
type UsageReport struct {
	TotalMessages       int64
	ActiveUsersToday    int64
	ActiveSubscriptions int64
}
