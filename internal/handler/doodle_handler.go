package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/doodleprompt/internal/doodle"
	"github.com/hitoshi/doodleprompt/internal/middleware"
	"github.com/hitoshi/doodleprompt/internal/model"
)

// DoodleServiceInterface は作品ハンドラーが必要とするサービスインターフェース。
type DoodleServiceInterface interface {
	// Create は作品を投稿する。
	Create(ctx context.Context, input doodle.CreateInput) (*model.Doodle, error)
	// Get は作品を取得する。
	Get(ctx context.Context, doodleID string) (*model.Doodle, error)
	// ListByUser はユーザーの作品一覧をcreated_at降順で返す。
	ListByUser(ctx context.Context, userID, viewerID string, cursor time.Time, limit int) ([]model.DoodleWithStats, error)
	// ListByPrompt はお題暦日の作品一覧をcreated_at降順で返す。
	ListByPrompt(ctx context.Context, promptDate, viewerID string, cursor time.Time, limit int) ([]model.DoodleWithStats, error)
	// IncrementShare はシェアカウンタを加算し、加算後の値を返す。
	IncrementShare(ctx context.Context, doodleID string) (int, error)
	// Delete は作品を削除する。所有者のみ削除できる。
	Delete(ctx context.Context, userID, doodleID string) error
}

// DoodleHandler は作品管理のHTTPハンドラー。
type DoodleHandler struct {
	service DoodleServiceInterface
}

// NewDoodleHandler はDoodleHandlerを生成する。
func NewDoodleHandler(service DoodleServiceInterface) *DoodleHandler {
	return &DoodleHandler{
		service: service,
	}
}

// createDoodleRequest は作品投稿リクエストのボディ。
// ImageはPNGバイト列のbase64エンコード。
type createDoodleRequest struct {
	PromptDate string `json:"prompt_date"`
	Title      string `json:"title"`
	Image      string `json:"image"`
}

// shareResponse はシェアカウンタ加算のAPIレスポンス。
type shareResponse struct {
	ShareCount int `json:"share_count"`
}

// doodleResponse は作品情報のAPIレスポンス。
// 画像はバイト列を埋め込まず、画像配信エンドポイントのURLで返す。
type doodleResponse struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	PromptDate string    `json:"prompt_date"`
	Title      string    `json:"title"`
	ImageURL   string    `json:"image_url"`
	ShareCount int       `json:"share_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// doodleWithStatsResponse は作品といいね情報を結合したAPIレスポンス。
type doodleWithStatsResponse struct {
	doodleResponse
	LikeCount int  `json:"like_count"`
	IsLiked   bool `json:"is_liked"`
}

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// CreateDoodle は作品投稿を処理する。
// POST /api/doodles
func (h *DoodleHandler) CreateDoodle(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	var req createDoodleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestResponse(w)
		return
	}

	imageData, err := base64.StdEncoding.DecodeString(req.Image)
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidImageError())
		return
	}

	created, err := h.service.Create(r.Context(), doodle.CreateInput{
		UserID:     userID,
		PromptDate: req.PromptDate,
		Title:      req.Title,
		ImageData:  imageData,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toDoodleResponse(created))
}

// GetDoodle は作品詳細を取得する。
// GET /api/doodles/:id
func (h *DoodleHandler) GetDoodle(w http.ResponseWriter, r *http.Request) {
	doodleID := chi.URLParam(r, "id")

	d, err := h.service.Get(r.Context(), doodleID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toDoodleResponse(d))
}

// GetDoodleImage は作品のPNG画像を配信する。
// GET /api/doodles/:id/image
func (h *DoodleHandler) GetDoodleImage(w http.ResponseWriter, r *http.Request) {
	doodleID := chi.URLParam(r, "id")

	d, err := h.service.Get(r.Context(), doodleID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", d.ImageMime)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Write(d.ImageData)
}

// ListUserDoodles はユーザーの作品一覧を取得する。
// GET /api/users/:id/doodles
func (h *DoodleHandler) ListUserDoodles(w http.ResponseWriter, r *http.Request) {
	viewerID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	targetID := chi.URLParam(r, "id")
	cursor, limit := parseListParams(r)

	doodles, err := h.service.ListByUser(r.Context(), targetID, viewerID, cursor, limit)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeDoodleList(w, doodles)
}

// ListPromptDoodles はお題暦日の作品一覧を取得する。
// GET /api/prompts/:date/doodles
func (h *DoodleHandler) ListPromptDoodles(w http.ResponseWriter, r *http.Request) {
	viewerID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	promptDate := chi.URLParam(r, "date")
	cursor, limit := parseListParams(r)

	doodles, err := h.service.ListByPrompt(r.Context(), promptDate, viewerID, cursor, limit)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeDoodleList(w, doodles)
}

// ShareDoodle はシェアカウンタを加算する。
// POST /api/doodles/:id/share
func (h *DoodleHandler) ShareDoodle(w http.ResponseWriter, r *http.Request) {
	doodleID := chi.URLParam(r, "id")

	count, err := h.service.IncrementShare(r.Context(), doodleID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(shareResponse{ShareCount: count})
}

// DeleteDoodle は作品を削除する。
// DELETE /api/doodles/:id
func (h *DoodleHandler) DeleteDoodle(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	doodleID := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), userID, doodleID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- ヘルパー関数 ---

// toDoodleResponse はmodel.DoodleからAPIレスポンスに変換する。
func toDoodleResponse(d *model.Doodle) doodleResponse {
	return doodleResponse{
		ID:         d.ID,
		UserID:     d.UserID,
		PromptDate: d.PromptDate,
		Title:      d.Title,
		ImageURL:   "/api/doodles/" + d.ID + "/image",
		ShareCount: d.ShareCount,
		CreatedAt:  d.CreatedAt,
	}
}

// writeDoodleList は作品一覧レスポンスを書き込む。
func writeDoodleList(w http.ResponseWriter, doodles []model.DoodleWithStats) {
	results := make([]doodleWithStatsResponse, len(doodles))
	for i, d := range doodles {
		results[i] = doodleWithStatsResponse{
			doodleResponse: toDoodleResponse(&d.Doodle),
			LikeCount:      d.LikeCount,
			IsLiked:        d.IsLiked,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"doodles": results,
	})
}

// parseListParams はページネーション用のcursor/limitクエリパラメータを解析する。
// cursorはRFC3339形式。不正な値は無視してゼロ値として扱う。
func parseListParams(r *http.Request) (time.Time, int) {
	var cursor time.Time
	if raw := r.URL.Query().Get("cursor"); raw != "" {
		if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
			cursor = parsed
		}
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}
	return cursor, limit
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// writeUnauthorizedResponse は401 Unauthorizedレスポンスを書き込む。
func writeUnauthorizedResponse(w http.ResponseWriter) {
	writeAPIErrorResponse(w, http.StatusUnauthorized, &model.APIError{
		Code:     "UNAUTHORIZED",
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	})
}

// writeInvalidRequestResponse はリクエストボディ解析失敗のレスポンスを書き込む。
func writeInvalidRequestResponse(w http.ResponseWriter) {
	writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
		Code:     "INVALID_REQUEST",
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeDoodleNotFound, model.ErrCodePromptNotFound,
		model.ErrCodeUserNotFound, model.ErrCodeProfileNotFound,
		model.ErrCodeNotificationNotFound:
		return http.StatusNotFound
	case model.ErrCodeMissingField, model.ErrCodeInvalidUsername,
		model.ErrCodeInvalidURL, model.ErrCodeInvalidImage,
		model.ErrCodeSelfFollow, model.ErrCodeInvalidSignature:
		return http.StatusBadRequest
	case model.ErrCodeUsernameTaken:
		return http.StatusConflict
	case model.ErrCodeImageTooLarge:
		return http.StatusRequestEntityTooLarge
	case model.ErrCodePremiumRequired:
		return http.StatusPaymentRequired
	case model.ErrCodeSSRFBlocked:
		return http.StatusForbidden
	case model.ErrCodeFetchFailed:
		return http.StatusBadGateway
	case model.ErrCodeParseFailed:
		return http.StatusUnprocessableEntity
	case model.ErrCodeCheckoutNotReady:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
