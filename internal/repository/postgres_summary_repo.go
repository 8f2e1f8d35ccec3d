package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/kokoro/internal/model"
)

// PostgresSummaryRepo はPostgreSQLを使用した会話要約リポジトリ。
type PostgresSummaryRepo struct {
	db *sql.DB
}

// NewPostgresSummaryRepo はPostgresSummaryRepoを生成する。
func NewPostgresSummaryRepo(db *sql.DB) *PostgresSummaryRepo {
	return &PostgresSummaryRepo{db: db}
}

// Find は指定ユーザーの要約を取得する。見つからない場合はnilを返す。
func (r *PostgresSummaryRepo) Find(ctx context.Context, userID int64) (*model.Summary, error) {
	summary := &model.Summary{}

	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, content, updated_at FROM summaries WHERE user_id = $1`,
		userID,
	).Scan(&summary.UserID, &summary.Content, &summary.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("要約の取得に失敗しました: %w", err)
	}

	return summary, nil
}

// Upsert は要約を上書き保存する。
// PRIMARY KEY(user_id)を利用したINSERT ON CONFLICTで、ユーザーにつき1行を維持する。
func (r *PostgresSummaryRepo) Upsert(ctx context.Context, userID int64, content string) error {
	now := time.Now().UTC()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO summaries (user_id, content, updated_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id) DO UPDATE SET
		     content = EXCLUDED.content,
		     updated_at = EXCLUDED.updated_at`,
		userID, content, now,
	)
	if err != nil {
		return fmt.Errorf("要約の保存に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ SummaryRepository = (*PostgresSummaryRepo)(nil)
