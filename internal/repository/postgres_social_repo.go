package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresSocialRepo はPostgreSQLを使用したいいね・フォローリポジトリ。
type PostgresSocialRepo struct {
	db *sql.DB
}

// NewPostgresSocialRepo はPostgresSocialRepoを生成する。
func NewPostgresSocialRepo(db *sql.DB) *PostgresSocialRepo {
	return &PostgresSocialRepo{db: db}
}

// InsertLike はいいねを追記する。既に存在する場合は何もせずfalseを返す。
func (r *PostgresSocialRepo) InsertLike(ctx context.Context, userID, doodleID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO likes (user_id, doodle_id)
		 VALUES ($1, $2)
		 ON CONFLICT (user_id, doodle_id) DO NOTHING`,
		userID, doodleID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert like: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// DeleteLike はいいねを削除する。存在しない場合もエラーにしない（冪等）。
func (r *PostgresSocialRepo) DeleteLike(ctx context.Context, userID, doodleID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM likes WHERE user_id = $1 AND doodle_id = $2`,
		userID, doodleID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete like: %w", err)
	}
	return nil
}

// CountLikesReceived はユーザーの全作品が獲得した累計いいね数を返す。
func (r *PostgresSocialRepo) CountLikesReceived(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*)
		 FROM likes l
		 JOIN doodles d ON d.id = l.doodle_id
		 WHERE d.user_id = $1`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count likes received: %w", err)
	}
	return count, nil
}

// InsertFollow はフォロー関係を追記する。既に存在する場合は何もせずfalseを返す。
func (r *PostgresSocialRepo) InsertFollow(ctx context.Context, followerID, followeeID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO follows (follower_id, followee_id)
		 VALUES ($1, $2)
		 ON CONFLICT (follower_id, followee_id) DO NOTHING`,
		followerID, followeeID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert follow: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// DeleteFollow はフォロー関係を削除する。存在しない場合もエラーにしない（冪等）。
func (r *PostgresSocialRepo) DeleteFollow(ctx context.Context, followerID, followeeID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM follows WHERE follower_id = $1 AND followee_id = $2`,
		followerID, followeeID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete follow: %w", err)
	}
	return nil
}

// CountFollowers はユーザーのフォロワー数を返す。
func (r *PostgresSocialRepo) CountFollowers(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM follows WHERE followee_id = $1`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count followers: %w", err)
	}
	return count, nil
}

// ListFollowerIDs はユーザーをフォローしているユーザーIDの一覧を返す。
func (r *PostgresSocialRepo) ListFollowerIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT follower_id FROM follows WHERE followee_id = $1`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list follower IDs: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan follower ID: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate follower IDs: %w", err)
	}

	return ids, nil
}

// compile-time interface check
var _ SocialRepository = (*PostgresSocialRepo)(nil)
