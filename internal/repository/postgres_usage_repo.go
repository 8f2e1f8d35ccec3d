package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresUsageRepo はPostgreSQLを使用した日次利用量リポジトリ。
type PostgresUsageRepo struct {
	db *sql.DB
}

// NewPostgresUsageRepo はPostgresUsageRepoを生成する。
func NewPostgresUsageRepo(db *sql.DB) *PostgresUsageRepo {
	return &PostgresUsageRepo{db: db}
}

// CountFor は指定ユーザー・日付の消費数を返す。記録がない場合は0を返す。
func (r *PostgresUsageRepo) CountFor(ctx context.Context, userID int64, day string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT count FROM usage_counters WHERE user_id = $1 AND day = $2`,
		userID, day,
	).Scan(&count)

	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("利用量の取得に失敗しました: %w", err)
	}
	return count, nil
}

// Increment は指定ユーザー・日付の消費数を原子的に1増やす。
// 読み取り後に書き込む方式では並行実行時に更新が失われるため、
// 単一のUPSERT文でDB側に加算させる。
func (r *PostgresUsageRepo) Increment(ctx context.Context, userID int64, day string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO usage_counters (user_id, day, count)
		 VALUES ($1, $2, 1)
		 ON CONFLICT (user_id, day) DO UPDATE SET
		     count = usage_counters.count + 1`,
		userID, day,
	)
	if err != nil {
		return fmt.Errorf("利用量の加算に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ UsageRepository = (*PostgresUsageRepo)(nil)
