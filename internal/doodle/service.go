// Package doodle は作品の投稿・閲覧・削除を提供する。
package doodle

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/doodleprompt/internal/clock"
	"github.com/hitoshi/doodleprompt/internal/metrics"
	"github.com/hitoshi/doodleprompt/internal/model"
	"github.com/hitoshi/doodleprompt/internal/repository"
	"github.com/hitoshi/doodleprompt/internal/security"
)

const (
	// maxImageBytes はアップロード可能なPNGの最大バイト数。
	maxImageBytes = 2 << 20 // 2MiB

	// maxImageDimension は画像の縦横の最大ピクセル数。
	// デコード前のDecodeConfigで検査するため巨大画像の展開は起きない。
	maxImageDimension = 4096

	maxTitleLength = 120

	defaultListLimit = 20
	maxListLimit     = 100
)

// pngMagic はPNGファイルの先頭8バイト。
var pngMagic = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

// BadgeEvaluator はカウンタスナップショットに対するバッジ判定インターフェース。
type BadgeEvaluator interface {
	Evaluate(ctx context.Context, userID string, counters model.BadgeCounters) ([]*model.Badge, error)
}

// CreateInput は作品投稿の入力。
type CreateInput struct {
	UserID     string
	PromptDate string
	Title      string
	ImageData  []byte
}

// Service は作品に関するビジネスロジックを提供する。
type Service struct {
	doodleRepo repository.DoodleRepository
	sanitizer  security.ContentSanitizerService
	badges     BadgeEvaluator
	collector  metrics.MetricsCollector
}

// NewService はServiceを生成する。badgesとcollectorはnil可。
func NewService(
	doodleRepo repository.DoodleRepository,
	sanitizer security.ContentSanitizerService,
	badges BadgeEvaluator,
	collector metrics.MetricsCollector,
) *Service {
	return &Service{
		doodleRepo: doodleRepo,
		sanitizer:  sanitizer,
		badges:     badges,
		collector:  collector,
	}
}

// Create は作品を投稿する。
// 画像はPNGのみ受け付け、サイズと寸法を検証してから保存する。
// 投稿後、累計投稿数に対してバッジ判定を行う。
func (s *Service) Create(ctx context.Context, input CreateInput) (*model.Doodle, error) {
	if input.UserID == "" {
		return nil, model.NewMissingFieldError("userId")
	}
	if input.PromptDate == "" {
		return nil, model.NewMissingFieldError("promptDate")
	}
	if _, err := clock.ParseDay(input.PromptDate); err != nil {
		return nil, model.NewPromptNotFoundError(input.PromptDate)
	}
	if len(input.ImageData) == 0 {
		return nil, model.NewMissingFieldError("image")
	}

	if err := validateImage(input.ImageData); err != nil {
		return nil, err
	}

	title := s.sanitizer.SanitizeText(input.Title)
	if len([]rune(title)) > maxTitleLength {
		title = string([]rune(title)[:maxTitleLength])
	}

	doodle := &model.Doodle{
		ID:         uuid.New().String(),
		UserID:     input.UserID,
		PromptDate: input.PromptDate,
		Title:      title,
		ImageData:  input.ImageData,
		ImageMime:  "image/png",
	}

	if err := s.doodleRepo.Create(ctx, doodle); err != nil {
		return nil, fmt.Errorf("failed to create doodle: %w", err)
	}

	slog.Info("doodle created",
		slog.String("doodle_id", doodle.ID),
		slog.String("user_id", input.UserID),
		slog.String("prompt_date", input.PromptDate),
	)
	if s.collector != nil {
		s.collector.RecordDoodleCreated()
	}

	s.evaluateDoodleBadges(ctx, input.UserID)
	return doodle, nil
}

// validateImage はPNGバイト列を検証する。
// マジックナンバーとDecodeConfigによるヘッダ検査のみ行い、全体のデコードはしない。
func validateImage(data []byte) error {
	if int64(len(data)) > maxImageBytes {
		return model.NewImageTooLargeError(maxImageBytes)
	}
	if len(data) < len(pngMagic) || !bytes.Equal(data[:len(pngMagic)], pngMagic) {
		return model.NewInvalidImageError()
	}

	config, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return model.NewInvalidImageError()
	}
	if config.Width <= 0 || config.Height <= 0 ||
		config.Width > maxImageDimension || config.Height > maxImageDimension {
		return model.NewInvalidImageError()
	}
	return nil
}

// evaluateDoodleBadges は累計投稿数に対するバッジ判定を行う（ベストエフォート）。
func (s *Service) evaluateDoodleBadges(ctx context.Context, userID string) {
	if s.badges == nil {
		return
	}
	count, err := s.doodleRepo.CountByUserID(ctx, userID)
	if err != nil {
		slog.Error("failed to count doodles for badge evaluation",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return
	}
	if _, err := s.badges.Evaluate(ctx, userID, model.BadgeCounters{DoodleCount: count}); err != nil {
		slog.Error("failed to evaluate doodle badges",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
}

// Get は指定IDの作品を画像データ込みで取得する。
func (s *Service) Get(ctx context.Context, doodleID string) (*model.Doodle, error) {
	doodle, err := s.doodleRepo.FindByID(ctx, doodleID)
	if err != nil {
		return nil, fmt.Errorf("failed to find doodle: %w", err)
	}
	if doodle == nil {
		return nil, model.NewDoodleNotFoundError(doodleID)
	}
	return doodle, nil
}

// ListByUser はユーザーの作品一覧をいいね数付きで返す。
func (s *Service) ListByUser(ctx context.Context, userID, viewerID string, cursor time.Time, limit int) ([]model.DoodleWithStats, error) {
	doodles, err := s.doodleRepo.ListByUserID(ctx, userID, viewerID, cursor, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list doodles by user: %w", err)
	}
	return doodles, nil
}

// ListByPrompt は指定お題日の作品一覧をいいね数付きで返す。
func (s *Service) ListByPrompt(ctx context.Context, promptDate, viewerID string, cursor time.Time, limit int) ([]model.DoodleWithStats, error) {
	if _, err := clock.ParseDay(promptDate); err != nil {
		return nil, model.NewPromptNotFoundError(promptDate)
	}
	doodles, err := s.doodleRepo.ListByPromptDate(ctx, promptDate, viewerID, cursor, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list doodles by prompt: %w", err)
	}
	return doodles, nil
}

// IncrementShare はシェア回数をインクリメントし、更新後の値を返す。
// 所有者の累計シェア数に対してバッジ判定を行う。
func (s *Service) IncrementShare(ctx context.Context, doodleID string) (int, error) {
	doodle, err := s.doodleRepo.FindByID(ctx, doodleID)
	if err != nil {
		return 0, fmt.Errorf("failed to find doodle: %w", err)
	}
	if doodle == nil {
		return 0, model.NewDoodleNotFoundError(doodleID)
	}

	count, err := s.doodleRepo.IncrementShareCount(ctx, doodleID)
	if err != nil {
		return 0, fmt.Errorf("failed to increment share count: %w", err)
	}

	if s.badges != nil {
		if _, err := s.badges.Evaluate(ctx, doodle.UserID, model.BadgeCounters{ShareCount: count}); err != nil {
			slog.Error("failed to evaluate share badges",
				slog.String("user_id", doodle.UserID),
				slog.String("error", err.Error()),
			)
		}
	}
	return count, nil
}

// Delete は作品を削除する。所有ユーザーのみ削除できる。
// 他ユーザーの作品は存在の有無を区別せずNotFoundを返す。
func (s *Service) Delete(ctx context.Context, userID, doodleID string) error {
	doodle, err := s.doodleRepo.FindByID(ctx, doodleID)
	if err != nil {
		return fmt.Errorf("failed to find doodle: %w", err)
	}
	if doodle == nil || doodle.UserID != userID {
		return model.NewDoodleNotFoundError(doodleID)
	}

	if err := s.doodleRepo.DeleteByID(ctx, userID, doodleID); err != nil {
		return fmt.Errorf("failed to delete doodle: %w", err)
	}
	slog.Info("doodle deleted",
		slog.String("doodle_id", doodleID),
		slog.String("user_id", userID),
	)
	return nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
