package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/kokoro/internal/model"
)

// PostgresSubscriptionRepo はPostgreSQLを使用したサブスクリプションリポジトリ。
type PostgresSubscriptionRepo struct {
	db *sql.DB
}

// NewPostgresSubscriptionRepo はPostgresSubscriptionRepoを生成する。
func NewPostgresSubscriptionRepo(db *sql.DB) *PostgresSubscriptionRepo {
	return &PostgresSubscriptionRepo{db: db}
}

// Find は指定ユーザーのサブスクリプションを取得する。見つからない場合はnilを返す。
// 期限切れの行もそのまま返し、有効性の判定は呼び出し側が行う。
func (r *PostgresSubscriptionRepo) Find(ctx context.Context, userID int64) (*model.Subscription, error) {
	sub := &model.Subscription{}

	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, expires_at, updated_at FROM subscriptions WHERE user_id = $1`,
		userID,
	).Scan(&sub.UserID, &sub.ExpiresAt, &sub.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("サブスクリプションの取得に失敗しました: %w", err)
	}

	return sub, nil
}

// Upsert は有効期限を上書き保存する。
// 既存行が残っていても期限は加算せず、常に渡された値で置き換える。
func (r *PostgresSubscriptionRepo) Upsert(ctx context.Context, userID int64, expiresAt time.Time) error {
	now := time.Now().UTC()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO subscriptions (user_id, expires_at, updated_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id) DO UPDATE SET
		     expires_at = EXCLUDED.expires_at,
		     updated_at = EXCLUDED.updated_at`,
		userID, expiresAt, now,
	)
	if err != nil {
		return fmt.Errorf("サブスクリプションの保存に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ SubscriptionRepository = (*PostgresSubscriptionRepo)(nil)
