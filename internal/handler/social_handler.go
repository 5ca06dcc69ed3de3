package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/doodleprompt/internal/middleware"
)

// SocialServiceInterface はソーシャルハンドラーが必要とするサービスインターフェース。
type SocialServiceInterface interface {
	// Like は作品にいいねを付ける。重複は冪等に無視される。
	Like(ctx context.Context, userID, doodleID string) error
	// Unlike はいいねを解除する。存在しない場合も冪等に成功する。
	Unlike(ctx context.Context, userID, doodleID string) error
	// Follow はユーザーをフォローする。重複は冪等に無視される。
	Follow(ctx context.Context, followerID, followeeID string) error
	// Unfollow はフォローを解除する。存在しない場合も冪等に成功する。
	Unfollow(ctx context.Context, followerID, followeeID string) error
}

// SocialHandler はいいね・フォローのHTTPハンドラー。
type SocialHandler struct {
	service SocialServiceInterface
}

// NewSocialHandler はSocialHandlerを生成する。
func NewSocialHandler(service SocialServiceInterface) *SocialHandler {
	return &SocialHandler{
		service: service,
	}
}

// LikeDoodle は作品へのいいねを処理する。
// POST /api/doodles/:id/like
func (h *SocialHandler) LikeDoodle(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	doodleID := chi.URLParam(r, "id")

	if err := h.service.Like(r.Context(), userID, doodleID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UnlikeDoodle はいいね解除を処理する。
// DELETE /api/doodles/:id/like
func (h *SocialHandler) UnlikeDoodle(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	doodleID := chi.URLParam(r, "id")

	if err := h.service.Unlike(r.Context(), userID, doodleID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// FollowUser はユーザーのフォローを処理する。
// POST /api/users/:id/follow
func (h *SocialHandler) FollowUser(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	followeeID := chi.URLParam(r, "id")

	if err := h.service.Follow(r.Context(), userID, followeeID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UnfollowUser はフォロー解除を処理する。
// DELETE /api/users/:id/follow
func (h *SocialHandler) UnfollowUser(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	followeeID := chi.URLParam(r, "id")

	if err := h.service.Unfollow(r.Context(), userID, followeeID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
