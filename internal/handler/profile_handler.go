package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/doodleprompt/internal/middleware"
	"github.com/hitoshi/doodleprompt/internal/model"
	"github.com/hitoshi/doodleprompt/internal/profile"
)

// ProfileServiceInterface はプロフィールハンドラーが必要とするサービスインターフェース。
type ProfileServiceInterface interface {
	// GetProfile はユーザーのプロフィールを返す。行がなければデフォルト値を返す。
	GetProfile(ctx context.Context, userID string) (*model.Profile, error)
	// GetProfileByUsername はユーザー名でプロフィールを検索する。
	GetProfileByUsername(ctx context.Context, username string) (*model.Profile, error)
	// UpdateProfile はホワイトリストされたフィールドのみを部分更新する。
	UpdateProfile(ctx context.Context, userID string, input profile.UpdateInput) (*model.Profile, error)
}

// EntitlementReconciler はプレミアムフラグとエンタイトルメントレコードの整合インターフェース。
type EntitlementReconciler interface {
	// Reconcile はレコードを正としてis_premiumフラグを修復する。
	Reconcile(ctx context.Context, userID string) (bool, error)
}

// SocialStatsInterface は公開プロフィールに表示するソーシャル統計のインターフェース。
type SocialStatsInterface interface {
	CountFollowers(ctx context.Context, userID string) (int, error)
	CountLikesReceived(ctx context.Context, userID string) (int, error)
}

// ProfileHandler はプロフィールのHTTPハンドラー。
type ProfileHandler struct {
	service    ProfileServiceInterface
	reconciler EntitlementReconciler
	social     SocialStatsInterface
}

// NewProfileHandler はProfileHandlerを生成する。reconcilerとsocialはnil可。
func NewProfileHandler(service ProfileServiceInterface, reconciler EntitlementReconciler, social SocialStatsInterface) *ProfileHandler {
	return &ProfileHandler{
		service:    service,
		reconciler: reconciler,
		social:     social,
	}
}

// updateProfileRequest はプロフィール更新リクエストのボディ。
// nilフィールドは変更しない部分更新を表す。
type updateProfileRequest struct {
	Username *string `json:"username"`
	AvatarID *string `json:"avatar_id"`
	Title    *string `json:"title"`
}

// profileResponse はプロフィール情報のAPIレスポンス。
type profileResponse struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	AvatarID  string `json:"avatar_id"`
	Title     string `json:"title"`
	IsPremium bool   `json:"is_premium"`
}

// publicProfileResponse は公開プロフィールのAPIレスポンス。
type publicProfileResponse struct {
	profileResponse
	FollowerCount int `json:"follower_count"`
	LikesReceived int `json:"likes_received"`
}

// GetMyProfile は自分のプロフィールを取得する。
// エンタイトルメントレコードとis_premiumフラグの整合をベストエフォートで行う。
// GET /api/profile
func (h *ProfileHandler) GetMyProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	if h.reconciler != nil {
		if repaired, err := h.reconciler.Reconcile(r.Context(), userID); err != nil {
			slog.Error("failed to reconcile entitlement",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
		} else if repaired {
			slog.Info("premium flag repaired",
				slog.String("user_id", userID),
			)
		}
	}

	p, err := h.service.GetProfile(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toProfileResponse(p))
}

// UpdateProfile はプロフィールを部分更新する。
// PATCH /api/profile
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestResponse(w)
		return
	}

	p, err := h.service.UpdateProfile(r.Context(), userID, profile.UpdateInput{
		Username: req.Username,
		AvatarID: req.AvatarID,
		Title:    req.Title,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toProfileResponse(p))
}

// GetUserProfile はユーザー名で公開プロフィールを取得する。
// GET /api/users/by-username/:username
func (h *ProfileHandler) GetUserProfile(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	p, err := h.service.GetProfileByUsername(r.Context(), username)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := publicProfileResponse{profileResponse: toProfileResponse(p)}

	// ソーシャル統計の取得失敗はプロフィール表示を妨げない
	if h.social != nil {
		if count, err := h.social.CountFollowers(r.Context(), p.UserID); err == nil {
			resp.FollowerCount = count
		} else {
			slog.Error("failed to count followers",
				slog.String("user_id", p.UserID),
				slog.String("error", err.Error()),
			)
		}
		if count, err := h.social.CountLikesReceived(r.Context(), p.UserID); err == nil {
			resp.LikesReceived = count
		} else {
			slog.Error("failed to count likes received",
				slog.String("user_id", p.UserID),
				slog.String("error", err.Error()),
			)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// toProfileResponse はmodel.ProfileからAPIレスポンスに変換する。
func toProfileResponse(p *model.Profile) profileResponse {
	return profileResponse{
		UserID:    p.UserID,
		Username:  p.Username,
		AvatarID:  p.AvatarID,
		Title:     p.Title,
		IsPremium: p.IsPremium,
	}
}
