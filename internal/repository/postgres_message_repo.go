package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/kokoro/internal/model"
)

// PostgresMessageRepo はPostgreSQLを使用した会話履歴リポジトリ。
type PostgresMessageRepo struct {
	db *sql.DB
}

// NewPostgresMessageRepo はPostgresMessageRepoを生成する。
func NewPostgresMessageRepo(db *sql.DB) *PostgresMessageRepo {
	return &PostgresMessageRepo{db: db}
}

// Append はメッセージを1件追記する。
func (r *PostgresMessageRepo) Append(ctx context.Context, userID int64, role model.Role, content string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO messages (user_id, role, content) VALUES ($1, $2, $3)`,
		userID, string(role), content,
	)
	if err != nil {
		return fmt.Errorf("メッセージの保存に失敗しました: %w", err)
	}
	return nil
}

// ListRecent は直近limit件のメッセージを時系列順（古い順）で返す。
// 新しい順にlimit件取り出してから反転する。同時刻のメッセージはid順で安定させる。
func (r *PostgresMessageRepo) ListRecent(ctx context.Context, userID int64, limit int) ([]*model.Message, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, role, content, created_at
		 FROM messages
		 WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("会話履歴の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var messages []*model.Message
	for rows.Next() {
		m := &model.Message{}
		if err := rows.Scan(&m.ID, &m.UserID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("会話履歴のスキャンに失敗しました: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("会話履歴の読み取りに失敗しました: %w", err)
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

// HasAny はユーザーのメッセージが1件以上存在するかを返す。
func (r *PostgresMessageRepo) HasAny(ctx context.Context, userID int64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM messages WHERE user_id = $1 LIMIT 1`,
		userID,
	).Scan(&one)

	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("会話履歴の存在確認に失敗しました: %w", err)
	}
	return true, nil
}

// CountUserMessages はユーザー発話（role='user'）の総数を返す。
func (r *PostgresMessageRepo) CountUserMessages(ctx context.Context, userID int64) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM messages WHERE user_id = $1 AND role = 'user'`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ユーザー発話数の取得に失敗しました: %w", err)
	}
	return count, nil
}

// LastUserMessageAt はユーザー発話の最終時刻を返す。発話がない場合はnilを返す。
func (r *PostgresMessageRepo) LastUserMessageAt(ctx context.Context, userID int64) (*time.Time, error) {
	var ts time.Time
	err := r.db.QueryRowContext(ctx,
		`SELECT created_at FROM messages
		 WHERE user_id = $1 AND role = 'user'
		 ORDER BY created_at DESC, id DESC
		 LIMIT 1`,
		userID,
	).Scan(&ts)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("最終発話時刻の取得に失敗しました: %w", err)
	}
	return &ts, nil
}

// compile-time interface check
var _ MessageRepository = (*PostgresMessageRepo)(nil)
