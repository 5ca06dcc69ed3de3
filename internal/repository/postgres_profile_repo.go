package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/doodleprompt/internal/model"
)

// PostgresProfileRepo はPostgreSQLを使用したプロフィールリポジトリ。
type PostgresProfileRepo struct {
	db *sql.DB
}

// NewPostgresProfileRepo はPostgresProfileRepoを生成する。
func NewPostgresProfileRepo(db *sql.DB) *PostgresProfileRepo {
	return &PostgresProfileRepo{db: db}
}

func scanProfile(row *sql.Row) (*model.Profile, error) {
	p := &model.Profile{}
	err := row.Scan(&p.UserID, &p.Username, &p.AvatarID, &p.Title, &p.IsPremium, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// FindByUserID は指定ユーザーのプロフィールを取得する。見つからない場合はnilを返す。
func (r *PostgresProfileRepo) FindByUserID(ctx context.Context, userID string) (*model.Profile, error) {
	p, err := scanProfile(r.db.QueryRowContext(ctx,
		`SELECT user_id, username, avatar_id, title, is_premium, created_at, updated_at
		 FROM profiles WHERE user_id = $1`,
		userID,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}
	return p, nil
}

// FindByUsername はユーザー名でプロフィールを検索する。照合は大文字小文字を区別しない。
// 見つからない場合はnilを返す。
func (r *PostgresProfileRepo) FindByUsername(ctx context.Context, username string) (*model.Profile, error) {
	p, err := scanProfile(r.db.QueryRowContext(ctx,
		`SELECT user_id, username, avatar_id, title, is_premium, created_at, updated_at
		 FROM profiles WHERE lower(username) = lower($1) AND username <> ''`,
		username,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to find profile by username: %w", err)
	}
	return p, nil
}

// Upsert はプロフィールのホワイトリストフィールドを部分更新でUPSERTする。
// nilフィールドはCOALESCEにより既存値を維持する。
func (r *PostgresProfileRepo) Upsert(ctx context.Context, userID string, update model.ProfileUpdate) (*model.Profile, error) {
	p, err := scanProfile(r.db.QueryRowContext(ctx,
		`INSERT INTO profiles (user_id, username, avatar_id, title)
		 VALUES ($1, COALESCE($2, ''), COALESCE($3, 'pencil'), COALESCE($4, ''))
		 ON CONFLICT (user_id) DO UPDATE SET
		     username = COALESCE($2, profiles.username),
		     avatar_id = COALESCE($3, profiles.avatar_id),
		     title = COALESCE($4, profiles.title),
		     updated_at = now()
		 RETURNING user_id, username, avatar_id, title, is_premium, created_at, updated_at`,
		userID, update.Username, update.AvatarID, update.Title,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert profile: %w", err)
	}
	return p, nil
}

// SetPremium はis_premiumフラグを設定する。プロフィール行がなければ作成する。
func (r *PostgresProfileRepo) SetPremium(ctx context.Context, userID string, premium bool) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO profiles (user_id, is_premium)
		 VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE SET
		     is_premium = $2,
		     updated_at = now()`,
		userID, premium,
	)
	if err != nil {
		return fmt.Errorf("failed to set premium flag: %w", err)
	}
	return nil
}

// compile-time interface check
var _ ProfileRepository = (*PostgresProfileRepo)(nil)
