package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/hitoshi/doodleprompt/internal/middleware"
	"github.com/hitoshi/doodleprompt/internal/model"
)

// BadgeServiceInterface はバッジハンドラーが必要とするサービスインターフェース。
type BadgeServiceInterface interface {
	// ListBadges はユーザーが獲得したバッジ一覧を返す。
	ListBadges(ctx context.Context, userID string) ([]*model.Badge, error)
}

// BadgeHandler はバッジのHTTPハンドラー。
type BadgeHandler struct {
	service BadgeServiceInterface
}

// NewBadgeHandler はBadgeHandlerを生成する。
func NewBadgeHandler(service BadgeServiceInterface) *BadgeHandler {
	return &BadgeHandler{
		service: service,
	}
}

// badgeResponse はバッジ情報のAPIレスポンス。
type badgeResponse struct {
	BadgeType string    `json:"badge_type"`
	EarnedAt  time.Time `json:"earned_at"`
}

// ListBadges は獲得済みバッジ一覧を取得する。
// GET /api/badges
func (h *BadgeHandler) ListBadges(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	badges, err := h.service.ListBadges(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]badgeResponse, len(badges))
	for i, b := range badges {
		results[i] = badgeResponse{
			BadgeType: string(b.BadgeType),
			EarnedAt:  b.EarnedAt,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"badges": results,
	})
}
