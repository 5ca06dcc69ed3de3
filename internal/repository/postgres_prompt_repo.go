package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/doodleprompt/internal/model"
)

// PostgresPromptRepo はPostgreSQLを使用したお題リポジトリ。
type PostgresPromptRepo struct {
	db *sql.DB
}

// NewPostgresPromptRepo はPostgresPromptRepoを生成する。
func NewPostgresPromptRepo(db *sql.DB) *PostgresPromptRepo {
	return &PostgresPromptRepo{db: db}
}

// FindByDate は指定暦日のお題を取得する。見つからない場合はnilを返す。
func (r *PostgresPromptRepo) FindByDate(ctx context.Context, date string) (*model.Prompt, error) {
	p := &model.Prompt{}
	err := r.db.QueryRowContext(ctx,
		`SELECT to_char(date, 'YYYY-MM-DD'), text, premium_text, source, created_at, updated_at
		 FROM prompts WHERE date = $1::date`,
		date,
	).Scan(&p.Date, &p.Text, &p.PremiumText, &p.Source, &p.CreatedAt, &p.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find prompt: %w", err)
	}

	return p, nil
}

// Upsert はお題を冪等にUPSERTする。同一日付の再取得は上書き更新となる。
func (r *PostgresPromptRepo) Upsert(ctx context.Context, prompt *model.Prompt) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO prompts (date, text, premium_text, source)
		 VALUES ($1::date, $2, $3, $4)
		 ON CONFLICT (date) DO UPDATE SET
		     text = $2,
		     premium_text = $3,
		     source = $4,
		     updated_at = now()`,
		prompt.Date, prompt.Text, prompt.PremiumText, prompt.Source,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert prompt: %w", err)
	}
	return nil
}

// ListSourcesDueForFetch はフェッチ対象のお題ソースを取得する。
// FOR UPDATE SKIP LOCKEDにより複数ワーカーの同時実行でも同一ソースを重複取得しない。
func (r *PostgresPromptRepo) ListSourcesDueForFetch(ctx context.Context) ([]*model.PromptSourceState, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, url, kind, status, consecutive_errors, error_message, etag, last_modified,
		        next_fetch_at, created_at, updated_at
		 FROM prompt_sources
		 WHERE status = 'active' AND next_fetch_at <= now()
		 ORDER BY next_fetch_at ASC
		 FOR UPDATE SKIP LOCKED`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources due for fetch: %w", err)
	}
	defer rows.Close()

	sources := []*model.PromptSourceState{}
	for rows.Next() {
		s := &model.PromptSourceState{}
		if err := rows.Scan(&s.ID, &s.URL, &s.Kind, &s.Status, &s.ConsecutiveErrors, &s.ErrorMessage,
			&s.ETag, &s.LastModified, &s.NextFetchAt, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan prompt source: %w", err)
		}
		sources = append(sources, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate prompt sources: %w", err)
	}

	return sources, nil
}

// UpsertSource はお題ソースをURLをキーに冪等に登録する。
func (r *PostgresPromptRepo) UpsertSource(ctx context.Context, source *model.PromptSourceState) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO prompt_sources (id, url, kind, status)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (url) DO UPDATE SET
		     kind = $3,
		     status = $4,
		     updated_at = now()`,
		source.ID, source.URL, source.Kind, source.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert prompt source: %w", err)
	}
	return nil
}

// UpdateSourceState はお題ソースのフェッチ制御状態を更新する。
func (r *PostgresPromptRepo) UpdateSourceState(ctx context.Context, source *model.PromptSourceState) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE prompt_sources SET
		     status = $2,
		     consecutive_errors = $3,
		     error_message = $4,
		     etag = $5,
		     last_modified = $6,
		     next_fetch_at = $7,
		     updated_at = now()
		 WHERE id = $1`,
		source.ID, source.Status, source.ConsecutiveErrors, source.ErrorMessage,
		source.ETag, source.LastModified, source.NextFetchAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update prompt source state: %w", err)
	}
	return nil
}

// compile-time interface check
var _ PromptRepository = (*PostgresPromptRepo)(nil)
