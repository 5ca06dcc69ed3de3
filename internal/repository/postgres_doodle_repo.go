package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/doodleprompt/internal/model"
)

// PostgresDoodleRepo はPostgreSQLを使用した作品リポジトリ。
type PostgresDoodleRepo struct {
	db *sql.DB
}

// NewPostgresDoodleRepo はPostgresDoodleRepoを生成する。
func NewPostgresDoodleRepo(db *sql.DB) *PostgresDoodleRepo {
	return &PostgresDoodleRepo{db: db}
}

// Create は作品を作成する。
func (r *PostgresDoodleRepo) Create(ctx context.Context, doodle *model.Doodle) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO doodles (id, user_id, prompt_date, title, image_data, image_mime, created_at, updated_at)
		 VALUES ($1, $2, $3::date, $4, $5, $6, $7, $8)`,
		doodle.ID, doodle.UserID, doodle.PromptDate, doodle.Title,
		doodle.ImageData, doodle.ImageMime, doodle.CreatedAt, doodle.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create doodle: %w", err)
	}
	return nil
}

// FindByID は指定IDの作品を取得する。見つからない場合はnilを返す。
func (r *PostgresDoodleRepo) FindByID(ctx context.Context, id string) (*model.Doodle, error) {
	d := &model.Doodle{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, to_char(prompt_date, 'YYYY-MM-DD'), title, image_data, image_mime, share_count, created_at, updated_at
		 FROM doodles WHERE id = $1`,
		id,
	).Scan(&d.ID, &d.UserID, &d.PromptDate, &d.Title, &d.ImageData, &d.ImageMime, &d.ShareCount, &d.CreatedAt, &d.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find doodle: %w", err)
	}

	return d, nil
}

// 一覧クエリは画像本体を除外し、統計とともに返す。
const doodleStatsSelect = `
	SELECT d.id, d.user_id, to_char(d.prompt_date, 'YYYY-MM-DD'), d.title, d.image_mime, d.share_count,
	       d.created_at, d.updated_at,
	       COUNT(l.doodle_id) AS like_count,
	       BOOL_OR(l.user_id = $2) AS is_liked
	FROM doodles d
	LEFT JOIN likes l ON l.doodle_id = d.id`

func scanDoodleStats(rows *sql.Rows) ([]model.DoodleWithStats, error) {
	doodles := []model.DoodleWithStats{}
	for rows.Next() {
		var d model.DoodleWithStats
		var isLiked sql.NullBool
		if err := rows.Scan(&d.ID, &d.UserID, &d.PromptDate, &d.Title, &d.ImageMime, &d.ShareCount,
			&d.CreatedAt, &d.UpdatedAt, &d.LikeCount, &isLiked); err != nil {
			return nil, fmt.Errorf("failed to scan doodle: %w", err)
		}
		d.IsLiked = isLiked.Valid && isLiked.Bool
		doodles = append(doodles, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate doodles: %w", err)
	}
	return doodles, nil
}

// ListByUserID はユーザーの作品一覧をいいね数付き・created_at降順で返す。
func (r *PostgresDoodleRepo) ListByUserID(ctx context.Context, userID, viewerID string, cursor time.Time, limit int) ([]model.DoodleWithStats, error) {
	query := doodleStatsSelect + `
	WHERE d.user_id = $1`
	args := []any{userID, viewerID}

	if !cursor.IsZero() {
		args = append(args, cursor)
		query += fmt.Sprintf(` AND d.created_at < $%d`, len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf(`
	GROUP BY d.id
	ORDER BY d.created_at DESC LIMIT $%d`, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list doodles by user: %w", err)
	}
	defer rows.Close()

	return scanDoodleStats(rows)
}

// ListByPromptDate は指定お題日の作品一覧をいいね数付き・created_at降順で返す。
func (r *PostgresDoodleRepo) ListByPromptDate(ctx context.Context, promptDate, viewerID string, cursor time.Time, limit int) ([]model.DoodleWithStats, error) {
	query := doodleStatsSelect + `
	WHERE d.prompt_date = $1::date`
	args := []any{promptDate, viewerID}

	if !cursor.IsZero() {
		args = append(args, cursor)
		query += fmt.Sprintf(` AND d.created_at < $%d`, len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf(`
	GROUP BY d.id
	ORDER BY d.created_at DESC LIMIT $%d`, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list doodles by prompt date: %w", err)
	}
	defer rows.Close()

	return scanDoodleStats(rows)
}

// CountByUserID はユーザーの投稿作品数を返す。
func (r *PostgresDoodleRepo) CountByUserID(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM doodles WHERE user_id = $1`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count doodles: %w", err)
	}
	return count, nil
}

// IncrementShareCount はシェア回数をインクリメントし、更新後の値を返す。
func (r *PostgresDoodleRepo) IncrementShareCount(ctx context.Context, doodleID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`UPDATE doodles SET share_count = share_count + 1, updated_at = now()
		 WHERE id = $1
		 RETURNING share_count`,
		doodleID,
	).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("doodle not found: %s", doodleID)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to increment share count: %w", err)
	}
	return count, nil
}

// DeleteByID は作品を削除する。所有ユーザーの作品のみ削除できる。
func (r *PostgresDoodleRepo) DeleteByID(ctx context.Context, userID, doodleID string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM doodles WHERE id = $1 AND user_id = $2`,
		doodleID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete doodle: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("doodle not found: %s", doodleID)
	}
	return nil
}

// compile-time interface check
var _ DoodleRepository = (*PostgresDoodleRepo)(nil)
