package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/doodleprompt/internal/model"
)

// PostgresBadgeRepo はPostgreSQLを使用したバッジリポジトリ。
type PostgresBadgeRepo struct {
	db *sql.DB
}

// NewPostgresBadgeRepo はPostgresBadgeRepoを生成する。
func NewPostgresBadgeRepo(db *sql.DB) *PostgresBadgeRepo {
	return &PostgresBadgeRepo{db: db}
}

// ListByUserID はユーザーの獲得バッジ一覧をearned_at昇順で返す。
func (r *PostgresBadgeRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Badge, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, badge_type, earned_at
		 FROM badges WHERE user_id = $1
		 ORDER BY earned_at ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list badges: %w", err)
	}
	defer rows.Close()

	badges := []*model.Badge{}
	for rows.Next() {
		b := &model.Badge{}
		if err := rows.Scan(&b.ID, &b.UserID, &b.BadgeType, &b.EarnedAt); err != nil {
			return nil, fmt.Errorf("failed to scan badge: %w", err)
		}
		badges = append(badges, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate badges: %w", err)
	}

	return badges, nil
}

// Insert はバッジを追記する。(user_id, badge_type)が既に存在する場合は
// 何もせずfalseを返す。
func (r *PostgresBadgeRepo) Insert(ctx context.Context, badge *model.Badge) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO badges (id, user_id, badge_type, earned_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id, badge_type) DO NOTHING`,
		badge.ID, badge.UserID, badge.BadgeType, badge.EarnedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert badge: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// compile-time interface check
var _ BadgeRepository = (*PostgresBadgeRepo)(nil)
