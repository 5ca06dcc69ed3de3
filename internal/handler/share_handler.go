package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	g "maragu.dev/gomponents"

	"github.com/hitoshi/doodleprompt/internal/model"
	"github.com/hitoshi/doodleprompt/internal/share"
)

// ShareDataProvider は共有ページの構成に必要なデータ取得インターフェース。
type ShareDataProvider interface {
	// DoodleForShare は作品と作者の表示名を返す。
	DoodleForShare(ctx context.Context, doodleID string) (*model.Doodle, string, error)
	// PromptForShare は指定暦日の公開お題を返す。プレミアムお題は含めない。
	PromptForShare(ctx context.Context, date string) (*model.Prompt, error)
	// ProfileForShare はユーザー名で公開プロフィールと作品数を返す。
	ProfileForShare(ctx context.Context, username string) (*model.Profile, int, error)
}

// ShareHandler はSNS共有ページとプレビュー画像のHTTPハンドラー。
// いずれも認証不要の公開エンドポイントで、クローラーからのアクセスを想定する。
type ShareHandler struct {
	provider ShareDataProvider
	renderer *share.Renderer
}

// NewShareHandler はShareHandlerを生成する。
func NewShareHandler(provider ShareDataProvider, renderer *share.Renderer) *ShareHandler {
	return &ShareHandler{
		provider: provider,
		renderer: renderer,
	}
}

// DoodlePage は作品の共有ページを返す。
// GET /share/doodle?id=xxx
func (h *ShareHandler) DoodlePage(w http.ResponseWriter, r *http.Request) {
	doodleID := r.URL.Query().Get("id")
	if doodleID == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}

	doodle, authorName, err := h.provider.DoodleForShare(r.Context(), doodleID)
	if err != nil {
		h.writeShareError(w, r, err)
		return
	}

	h.renderPage(w, h.renderer.DoodlePage(doodle, authorName))
}

// PromptPage はお題の共有ページを返す。
// GET /share/prompt?date=2006-01-02
func (h *ShareHandler) PromptPage(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		http.Error(w, "date is required", http.StatusBadRequest)
		return
	}

	prompt, err := h.provider.PromptForShare(r.Context(), date)
	if err != nil {
		h.writeShareError(w, r, err)
		return
	}

	h.renderPage(w, h.renderer.PromptPage(prompt))
}

// UserPage はユーザープロフィールの共有ページを返す。
// GET /share/user?username=xxx
func (h *ShareHandler) UserPage(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	if username == "" {
		http.Error(w, "username is required", http.StatusBadRequest)
		return
	}

	profile, doodleCount, err := h.provider.ProfileForShare(r.Context(), username)
	if err != nil {
		h.writeShareError(w, r, err)
		return
	}

	h.renderPage(w, h.renderer.UserPage(profile, doodleCount))
}

// PreviewImage は共有カード用のプレビューPNGを返す。
// シードはクエリパラメータから決定的に組み立てるため、
// 同一URLは常に同一画像になりCDNキャッシュと相性がよい。
// GET /share/image?type=doodle&id=xxx
func (h *ShareHandler) PreviewImage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	seed := q.Get("type") + "/" + q.Get("id") + "/" + q.Get("date") + "/" + q.Get("username")

	data, err := share.GeneratePreview(seed)
	if err != nil {
		slog.Error("failed to generate preview image",
			slog.String("seed", seed),
			slog.String("error", err.Error()),
		)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Write(data)
}

// writeShareError はデータ取得エラーをHTTPステータスに変換する。
// ドメインエラー（存在しない作品・お題・ユーザー）は404、
// DB障害など想定外のエラーは404に偽装せず500を返す。
func (h *ShareHandler) writeShareError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		http.NotFound(w, r)
		return
	}

	slog.Error("failed to load share page data", slog.String("error", err.Error()))
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// renderPage はHTMLドキュメントをレスポンスに書き込む。
func (h *ShareHandler) renderPage(w http.ResponseWriter, page g.Node) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := page.Render(w); err != nil {
		slog.Error("failed to render share page", slog.String("error", err.Error()))
	}
}
