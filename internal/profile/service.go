// Package profile は公開プロフィールの取得と更新を提供する。
package profile

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"unicode/utf8"

	"github.com/hitoshi/doodleprompt/internal/model"
	"github.com/hitoshi/doodleprompt/internal/profanity"
	"github.com/hitoshi/doodleprompt/internal/repository"
	"github.com/hitoshi/doodleprompt/internal/security"
)

const (
	minUsernameLength = 3
	maxUsernameLength = 20
	maxTitleLength    = 50
)

// usernamePattern はユーザー名に許可する文字。英数字とアンダースコアのみ。
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// validAvatarIDs は選択可能なアバターのカタログ。
var validAvatarIDs = map[string]bool{
	"pencil":  true,
	"brush":   true,
	"crayon":  true,
	"eraser":  true,
	"palette": true,
	"ink":     true,
}

// UpdateInput はPATCH /api/profileの入力。nilフィールドは変更しない。
type UpdateInput struct {
	Username *string
	AvatarID *string
	Title    *string
}

// Service はプロフィールに関するビジネスロジックを提供する。
// is_premiumフラグはこのサービスからは変更できない。
// フラグの更新はentitlementの整合処理のみが行う。
type Service struct {
	profileRepo repository.ProfileRepository
	filter      profanity.FilterService
	sanitizer   security.ContentSanitizerService
}

// NewService はServiceを生成する。
func NewService(
	profileRepo repository.ProfileRepository,
	filter profanity.FilterService,
	sanitizer security.ContentSanitizerService,
) *Service {
	return &Service{
		profileRepo: profileRepo,
		filter:      filter,
		sanitizer:   sanitizer,
	}
}

// GetProfile はユーザーのプロフィールを返す。
// 行が存在しない場合はデフォルト値を返す（初回アクセスのユーザー）。
func (s *Service) GetProfile(ctx context.Context, userID string) (*model.Profile, error) {
	profile, err := s.profileRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}
	if profile == nil {
		return model.DefaultProfile(userID), nil
	}
	return profile, nil
}

// GetProfileByUsername はユーザー名でプロフィールを検索する。
// 照合は大文字小文字を区別しない。
func (s *Service) GetProfileByUsername(ctx context.Context, username string) (*model.Profile, error) {
	if username == "" {
		return nil, model.NewMissingFieldError("username")
	}
	profile, err := s.profileRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to find profile by username: %w", err)
	}
	if profile == nil {
		return nil, &model.APIError{
			Code:     model.ErrCodeProfileNotFound,
			Message:  fmt.Sprintf("指定されたユーザーが見つかりません: %s", username),
			Category: "content",
			Action:   "ユーザー名を確認してください。",
		}
	}
	return profile, nil
}

// UpdateProfile はホワイトリストされたフィールドのみを部分更新する。
// ユーザー名は形式・不適切語・重複を検証する。
func (s *Service) UpdateProfile(ctx context.Context, userID string, input UpdateInput) (*model.Profile, error) {
	update := model.ProfileUpdate{}

	if input.Username != nil {
		username := s.sanitizer.SanitizeText(*input.Username)
		if err := s.validateUsername(ctx, userID, username); err != nil {
			return nil, err
		}
		update.Username = &username
	}

	if input.AvatarID != nil {
		if !validAvatarIDs[*input.AvatarID] {
			return nil, model.NewMissingFieldError("avatarId")
		}
		update.AvatarID = input.AvatarID
	}

	if input.Title != nil {
		title := s.sanitizer.SanitizeText(*input.Title)
		if utf8.RuneCountInString(title) > maxTitleLength {
			title = string([]rune(title)[:maxTitleLength])
		}
		update.Title = &title
	}

	profile, err := s.profileRepo.Upsert(ctx, userID, update)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert profile: %w", err)
	}

	slog.Info("profile updated",
		slog.String("user_id", userID),
	)
	return profile, nil
}

// validateUsername はユーザー名の形式・不適切語・重複を検証する。
func (s *Service) validateUsername(ctx context.Context, userID, username string) error {
	length := utf8.RuneCountInString(username)
	if length < minUsernameLength || length > maxUsernameLength {
		return model.NewInvalidUsernameError(
			fmt.Sprintf("%d〜%d文字で入力してください", minUsernameLength, maxUsernameLength))
	}
	if !usernamePattern.MatchString(username) {
		return model.NewInvalidUsernameError("英数字とアンダースコアのみ使用できます")
	}
	if !s.filter.IsClean(username) {
		return model.NewInvalidUsernameError("不適切な語が含まれています")
	}

	existing, err := s.profileRepo.FindByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("failed to check username availability: %w", err)
	}
	if existing != nil && existing.UserID != userID {
		return model.NewUsernameTakenError()
	}
	return nil
}
