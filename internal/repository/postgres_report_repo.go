package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/kokoro/internal/model"
)

// PostgresReportRepo はPostgreSQLを使用した運用レポートリポジトリ。
type PostgresReportRepo struct {
	db *sql.DB
}

// NewPostgresReportRepo はPostgresReportRepoを生成する。
func NewPostgresReportRepo(db *sql.DB) *PostgresReportRepo {
	return &PostgresReportRepo{db: db}
}

// Collect は総メッセージ数・当日の利用ユーザー数・有効サブスクリプション数を集計する。
func (r *PostgresReportRepo) Collect(ctx context.Context, now time.Time, day string) (*model.UsageReport, error) {
	report := &model.UsageReport{}

	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM messages`,
	).Scan(&report.TotalMessages)
	if err != nil {
		return nil, fmt.Errorf("総メッセージ数の集計に失敗しました: %w", err)
	}

	err = r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM usage_counters WHERE day = $1`,
		day,
	).Scan(&report.ActiveUsersToday)
	if err != nil {
		return nil, fmt.Errorf("当日利用ユーザー数の集計に失敗しました: %w", err)
	}

	err = r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM subscriptions WHERE expires_at > $1`,
		now,
	).Scan(&report.ActiveSubscriptions)
	if err != nil {
		return nil, fmt.Errorf("有効サブスクリプション数の集計に失敗しました: %w", err)
	}

	return report, nil
}

// compile-time interface check
var _ ReportRepository = (*PostgresReportRepo)(nil)
