package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/doodleprompt/internal/middleware"
	"github.com/hitoshi/doodleprompt/internal/model"
)

// PromptServiceInterface はお題ハンドラーが必要とするサービスインターフェース。
type PromptServiceInterface interface {
	// TodayPrompt は正規タイムゾーンの今日のお題を返す。
	TodayPrompt(ctx context.Context, isPremium bool) (*model.Prompt, error)
	// PromptForDate は指定暦日のお題を返す。
	PromptForDate(ctx context.Context, date string, isPremium bool) (*model.Prompt, error)
	// RegisterSource はお題ソースを登録する。
	RegisterSource(ctx context.Context, rawURL, kind string) (*model.PromptSourceState, error)
}

// PremiumChecker はプレミアム会員判定のインターフェース。
type PremiumChecker interface {
	IsPremium(ctx context.Context, userID string) (bool, error)
}

// PromptHandler はお題のHTTPハンドラー。
type PromptHandler struct {
	service PromptServiceInterface
	premium PremiumChecker
}

// NewPromptHandler はPromptHandlerを生成する。
func NewPromptHandler(service PromptServiceInterface, premium PremiumChecker) *PromptHandler {
	return &PromptHandler{
		service: service,
		premium: premium,
	}
}

// registerSourceRequest はお題ソース登録リクエストのボディ。
type registerSourceRequest struct {
	URL  string `json:"url"`
	Kind string `json:"kind"`
}

// promptResponse はお題情報のAPIレスポンス。
// PremiumTextはプレミアム会員以外には常に空で返る。
type promptResponse struct {
	Date        string `json:"date"`
	Text        string `json:"text"`
	PremiumText string `json:"premium_text,omitempty"`
	Source      string `json:"source"`
}

// promptSourceResponse はお題ソースのAPIレスポンス。
type promptSourceResponse struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Kind   string `json:"kind"`
	Status string `json:"status"`
}

// GetTodayPrompt は今日のお題を取得する。
// GET /api/prompts/today
func (h *PromptHandler) GetTodayPrompt(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	prompt, err := h.service.TodayPrompt(r.Context(), h.isPremium(r.Context(), userID))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toPromptResponse(prompt))
}

// GetPrompt は指定暦日のお題を取得する。
// GET /api/prompts/:date
func (h *PromptHandler) GetPrompt(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	date := chi.URLParam(r, "date")

	prompt, err := h.service.PromptForDate(r.Context(), date, h.isPremium(r.Context(), userID))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toPromptResponse(prompt))
}

// RegisterSource はお題ソースを登録する。
// POST /api/prompts/sources
func (h *PromptHandler) RegisterSource(w http.ResponseWriter, r *http.Request) {
	var req registerSourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestResponse(w)
		return
	}

	if req.URL == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidURLError("URLが空です"))
		return
	}

	source, err := h.service.RegisterSource(r.Context(), req.URL, req.Kind)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(promptSourceResponse{
		ID:     source.ID,
		URL:    source.URL,
		Kind:   source.Kind,
		Status: string(source.Status),
	})
}

// isPremium はプレミアム判定を行う。判定失敗は非プレミアムとして扱う。
func (h *PromptHandler) isPremium(ctx context.Context, userID string) bool {
	if h.premium == nil {
		return false
	}
	premium, err := h.premium.IsPremium(ctx, userID)
	if err != nil {
		slog.Error("failed to check premium status",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return false
	}
	return premium
}

// toPromptResponse はmodel.PromptからAPIレスポンスに変換する。
func toPromptResponse(p *model.Prompt) promptResponse {
	return promptResponse{
		Date:        p.Date,
		Text:        p.Text,
		PremiumText: p.PremiumText,
		Source:      p.Source,
	}
}
