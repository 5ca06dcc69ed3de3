package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/doodleprompt/internal/middleware"
	"github.com/hitoshi/doodleprompt/internal/model"
)

// StreakServiceInterface はストリークハンドラーが必要とするサービスインターフェース。
type StreakServiceInterface interface {
	// GetState はユーザーの現在のストリーク状態を返す。
	GetState(ctx context.Context, userID string) (*model.StreakState, error)
	// RecordView は「今日お題を見た」ことを記録する。同一暦日の再記録は冪等。
	RecordView(ctx context.Context, userID string) (*model.StreakResult, error)
}

// StreakHandler はストリークのHTTPハンドラー。
type StreakHandler struct {
	service StreakServiceInterface
}

// NewStreakHandler はStreakHandlerを生成する。
func NewStreakHandler(service StreakServiceInterface) *StreakHandler {
	return &StreakHandler{
		service: service,
	}
}

// streakStateResponse はストリーク状態のAPIレスポンス。
type streakStateResponse struct {
	CurrentStreak   int    `json:"current_streak"`
	LongestStreak   int    `json:"longest_streak"`
	LastViewedDate  string `json:"last_viewed_date"`
	FreezeAvailable bool   `json:"freeze_available"`
}

// streakRecordResponse はビュー記録のAPIレスポンス。
type streakRecordResponse struct {
	streakStateResponse
	Extended  bool `json:"extended"`
	FrozenGap bool `json:"frozen_gap"`
	WasReset  bool `json:"was_reset"`
}

// GetStreak は現在のストリーク状態を取得する。
// GET /api/streak
func (h *StreakHandler) GetStreak(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	state, err := h.service.GetState(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toStreakStateResponse(state))
}

// RecordView はビュー記録を処理する。
// POST /api/streak/view
func (h *StreakHandler) RecordView(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	result, err := h.service.RecordView(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(streakRecordResponse{
		streakStateResponse: toStreakStateResponse(result.State),
		Extended:            result.Extended,
		FrozenGap:           result.FrozenGap,
		WasReset:            result.WasReset,
	})
}

// toStreakStateResponse はmodel.StreakStateからAPIレスポンスに変換する。
func toStreakStateResponse(state *model.StreakState) streakStateResponse {
	return streakStateResponse{
		CurrentStreak:   state.CurrentStreak,
		LongestStreak:   state.LongestStreak,
		LastViewedDate:  state.LastViewedDate,
		FreezeAvailable: state.FreezeAvailable,
	}
}
