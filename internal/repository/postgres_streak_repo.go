package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/doodleprompt/internal/model"
)

// PostgresStreakRepo はPostgreSQLを使用したストリークリポジトリ。
type PostgresStreakRepo struct {
	db *sql.DB
}

// NewPostgresStreakRepo はPostgresStreakRepoを生成する。
func NewPostgresStreakRepo(db *sql.DB) *PostgresStreakRepo {
	return &PostgresStreakRepo{db: db}
}

// FindByUserID は指定ユーザーのストリーク状態を取得する。見つからない場合はnilを返す。
func (r *PostgresStreakRepo) FindByUserID(ctx context.Context, userID string) (*model.StreakState, error) {
	state := &model.StreakState{}
	var lastViewed sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, current_streak, longest_streak,
		        to_char(last_viewed_date, 'YYYY-MM-DD'),
		        freeze_available, freeze_used_at, created_at, updated_at
		 FROM streaks WHERE user_id = $1`,
		userID,
	).Scan(&state.UserID, &state.CurrentStreak, &state.LongestStreak,
		&lastViewed, &state.FreezeAvailable, &state.FreezeUsedAt,
		&state.CreatedAt, &state.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find streak state: %w", err)
	}

	state.LastViewedDate = lastViewed.String
	return state, nil
}

// Save はストリーク状態を冪等にUPSERTする。
// last_viewed_dateが後退する更新は適用しないため、同一暦日の並行記録は
// 先勝ちの1回の書き込みに収束する。
func (r *PostgresStreakRepo) Save(ctx context.Context, state *model.StreakState) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO streaks (user_id, current_streak, longest_streak, last_viewed_date, freeze_available, freeze_used_at)
		 VALUES ($1, $2, $3, $4::date, $5, $6)
		 ON CONFLICT (user_id) DO UPDATE SET
		     current_streak = $2,
		     longest_streak = GREATEST(streaks.longest_streak, $3),
		     last_viewed_date = $4::date,
		     freeze_available = $5,
		     freeze_used_at = $6,
		     updated_at = now()
		 WHERE streaks.last_viewed_date IS NULL OR streaks.last_viewed_date < $4::date`,
		state.UserID, state.CurrentStreak, state.LongestStreak,
		state.LastViewedDate, state.FreezeAvailable, state.FreezeUsedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save streak state: %w", err)
	}
	return nil
}

// compile-time interface check
var _ StreakRepository = (*PostgresStreakRepo)(nil)
