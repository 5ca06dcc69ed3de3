package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/doodleprompt/internal/model"
)

// PostgresNotificationRepo はPostgreSQLを使用した通知リポジトリ。
type PostgresNotificationRepo struct {
	db *sql.DB
}

// NewPostgresNotificationRepo はPostgresNotificationRepoを生成する。
func NewPostgresNotificationRepo(db *sql.DB) *PostgresNotificationRepo {
	return &PostgresNotificationRepo{db: db}
}

// Create は通知を作成する。
func (r *PostgresNotificationRepo) Create(ctx context.Context, n *model.Notification) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO notifications (id, user_id, type, title, body, link, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		n.ID, n.UserID, n.Type, n.Title, n.Body, n.Link, n.Metadata, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// FindByID は指定IDの通知を取得する。見つからない場合はnilを返す。
func (r *PostgresNotificationRepo) FindByID(ctx context.Context, id string) (*model.Notification, error) {
	n := &model.Notification{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, type, title, body, link, metadata, created_at, read_at
		 FROM notifications WHERE id = $1`,
		id,
	).Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Body, &n.Link, &n.Metadata, &n.CreatedAt, &n.ReadAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find notification: %w", err)
	}

	return n, nil
}

// ListByUserID はユーザーの通知一覧をcreated_at降順で返す。
// cursorがゼロ値でない場合はcreated_at < cursorの行のみ返す（カーソルページネーション）。
func (r *PostgresNotificationRepo) ListByUserID(ctx context.Context, userID string, unreadOnly bool, cursor time.Time, limit int) ([]*model.Notification, error) {
	query := `SELECT id, user_id, type, title, body, link, metadata, created_at, read_at
	          FROM notifications
	          WHERE user_id = $1`
	args := []any{userID}

	if unreadOnly {
		query += ` AND read_at IS NULL`
	}
	if !cursor.IsZero() {
		args = append(args, cursor)
		query += fmt.Sprintf(` AND created_at < $%d`, len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	notifications := []*model.Notification{}
	for rows.Next() {
		n := &model.Notification{}
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Body, &n.Link, &n.Metadata, &n.CreatedAt, &n.ReadAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notifications: %w", err)
	}

	return notifications, nil
}

// CountUnread はユーザーの未読通知数を返す。
func (r *PostgresNotificationRepo) CountUnread(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read_at IS NULL`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead は指定通知を既読にする。既に既読の行は変更しない（単調）。
// 行が存在し自ユーザーの所有である場合にtrueを返す。
func (r *PostgresNotificationRepo) MarkRead(ctx context.Context, userID, notificationID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`WITH updated AS (
		     UPDATE notifications SET read_at = now()
		     WHERE id = $1 AND user_id = $2 AND read_at IS NULL
		     RETURNING id
		 )
		 SELECT EXISTS (SELECT 1 FROM notifications WHERE id = $1 AND user_id = $2)`,
		notificationID, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to mark notification read: %w", err)
	}
	return exists, nil
}

// MarkAllRead はユーザーの全未読通知を既読にする。既読にした件数を返す。
func (r *PostgresNotificationRepo) MarkAllRead(ctx context.Context, userID string) (int, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET read_at = now()
		 WHERE user_id = $1 AND read_at IS NULL`,
		userID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark all notifications read: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(rowsAffected), nil
}

// Delete は指定通知を削除する。存在しない場合もエラーにしない（冪等）。
func (r *PostgresNotificationRepo) Delete(ctx context.Context, userID, notificationID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM notifications WHERE id = $1 AND user_id = $2`,
		notificationID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	return nil
}

// DeleteAllRead はユーザーの既読通知を全て削除する。
func (r *PostgresNotificationRepo) DeleteAllRead(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM notifications WHERE user_id = $1 AND read_at IS NOT NULL`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete read notifications: %w", err)
	}
	return nil
}

// DeleteReadOlderThan は指定時刻より前に作成された既読通知を削除し、削除件数を返す。
// クリーンアップワーカーから呼び出される。
func (r *PostgresNotificationRepo) DeleteReadOlderThan(ctx context.Context, before time.Time) (int, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM notifications WHERE read_at IS NOT NULL AND created_at < $1`,
		before,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old notifications: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(rowsAffected), nil
}

// compile-time interface check
var _ NotificationRepository = (*PostgresNotificationRepo)(nil)
