package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/doodleprompt/internal/middleware"
	"github.com/hitoshi/doodleprompt/internal/model"
	"github.com/hitoshi/doodleprompt/internal/notification"
)

// NotificationServiceInterface は通知ハンドラーが必要とするサービスインターフェース。
type NotificationServiceInterface interface {
	// Create は通知を作成する。
	Create(ctx context.Context, input notification.CreateInput) (*model.Notification, error)
	// List はユーザーの通知一覧をcreated_at降順で返す。
	List(ctx context.Context, userID string, unreadOnly bool, cursor time.Time, limit int) ([]*model.Notification, error)
	// UnreadCount はユーザーの未読通知数を返す。
	UnreadCount(ctx context.Context, userID string) (int, error)
	// MarkRead は指定通知を既読にする。
	MarkRead(ctx context.Context, userID, notificationID string) error
	// MarkAllRead は全未読通知を既読にし、既読にした件数を返す。
	MarkAllRead(ctx context.Context, userID string) (int, error)
	// Delete は指定通知を削除する。存在しない場合も冪等に成功する。
	Delete(ctx context.Context, userID, notificationID string) error
	// DeleteAllRead は既読通知を全て削除する。
	DeleteAllRead(ctx context.Context, userID string) error
}

// AdminChecker は管理者権限の判定インターフェース。
// user.Serviceの部分集合として定義する。
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

// NotificationHandler は通知のHTTPハンドラー。
type NotificationHandler struct {
	service NotificationServiceInterface
	admin   AdminChecker
}

// NewNotificationHandler はNotificationHandlerを生成する。
func NewNotificationHandler(service NotificationServiceInterface, admin AdminChecker) *NotificationHandler {
	return &NotificationHandler{
		service: service,
		admin:   admin,
	}
}

// notificationResponse は通知情報のAPIレスポンス。
type notificationResponse struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Title     string          `json:"title"`
	Body      string          `json:"body,omitempty"`
	Link      string          `json:"link,omitempty"`
	Metadata  json.RawMessage `json:"metadata"`
	IsRead    bool            `json:"is_read"`
	CreatedAt time.Time       `json:"created_at"`
}

// unreadCountResponse は未読件数のAPIレスポンス。
type unreadCountResponse struct {
	Count int `json:"count"`
}

// markAllReadResponse は一括既読のAPIレスポンス。
type markAllReadResponse struct {
	MarkedCount int `json:"marked_count"`
}

// createNotificationRequest は通知作成のリクエストボディ。
type createNotificationRequest struct {
	UserID   string            `json:"user_id"`
	Type     string            `json:"type"`
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Link     string            `json:"link"`
	Metadata map[string]string `json:"metadata"`
}

// CreateNotification は通知を作成する。
// 宛先は原則として本人のみ。管理者のみuser_idで他ユーザー宛てを指定でき、
// 非管理者が他ユーザーを指定した場合はエラーにせず本人宛てに絞る。
// POST /api/notifications
func (h *NotificationHandler) CreateNotification(w http.ResponseWriter, r *http.Request) {
	requesterID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	var req createNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestResponse(w)
		return
	}

	targetID := requesterID
	if req.UserID != "" && req.UserID != requesterID {
		isAdmin, err := h.admin.IsAdmin(r.Context(), requesterID)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		if isAdmin {
			targetID = req.UserID
		}
	}

	n, err := h.service.Create(r.Context(), notification.CreateInput{
		UserID:   targetID,
		Type:     model.NotificationType(req.Type),
		Title:    req.Title,
		Body:     req.Body,
		Link:     req.Link,
		Metadata: req.Metadata,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toNotificationResponse(n))
}

// ListNotifications は通知一覧を取得する。
// GET /api/notifications?unread_only=true&cursor=...&limit=...
func (h *NotificationHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	unreadOnly := r.URL.Query().Get("unread_only") == "true"
	cursor, limit := parseListParams(r)

	notifications, err := h.service.List(r.Context(), userID, unreadOnly, cursor, limit)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]notificationResponse, len(notifications))
	for i, n := range notifications {
		results[i] = toNotificationResponse(n)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"notifications": results,
	})
}

// GetUnreadCount は未読通知数を取得する。
// GET /api/notifications/unread-count
func (h *NotificationHandler) GetUnreadCount(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	count, err := h.service.UnreadCount(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(unreadCountResponse{Count: count})
}

// MarkRead は指定通知を既読にする。
// PATCH /api/notifications/:id/read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	notificationID := chi.URLParam(r, "id")

	if err := h.service.MarkRead(r.Context(), userID, notificationID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// MarkAllRead は全未読通知を既読にする。
// PATCH /api/notifications/read-all
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	count, err := h.service.MarkAllRead(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(markAllReadResponse{MarkedCount: count})
}

// DeleteNotification は指定通知を削除する。
// DELETE /api/notifications/:id
func (h *NotificationHandler) DeleteNotification(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	notificationID := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), userID, notificationID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteReadNotifications は既読通知を全て削除する。
// DELETE /api/notifications/read
func (h *NotificationHandler) DeleteReadNotifications(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	if err := h.service.DeleteAllRead(r.Context(), userID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// toNotificationResponse はmodel.NotificationからAPIレスポンスに変換する。
func toNotificationResponse(n *model.Notification) notificationResponse {
	metadata := n.Metadata
	if metadata == "" {
		metadata = "{}"
	}
	return notificationResponse{
		ID:        n.ID,
		Type:      string(n.Type),
		Title:     n.Title,
		Body:      n.Body,
		Link:      n.Link,
		Metadata:  json.RawMessage(metadata),
		IsRead:    n.IsRead(),
		CreatedAt: n.CreatedAt,
	}
}
