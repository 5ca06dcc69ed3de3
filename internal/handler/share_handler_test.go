package handler

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/doodleprompt/internal/model"
	"github.com/hitoshi/doodleprompt/internal/share"
)

// mockShareDataProvider はShareDataProviderのモック実装。
type mockShareDataProvider struct {
	doodleForShareFn  func(ctx context.Context, doodleID string) (*model.Doodle, string, error)
	promptForShareFn  func(ctx context.Context, date string) (*model.Prompt, error)
	profileForShareFn func(ctx context.Context, username string) (*model.Profile, int, error)
}

func (m *mockShareDataProvider) DoodleForShare(ctx context.Context, doodleID string) (*model.Doodle, string, error) {
	if m.doodleForShareFn != nil {
		return m.doodleForShareFn(ctx, doodleID)
	}
	return nil, "", nil
}

func (m *mockShareDataProvider) PromptForShare(ctx context.Context, date string) (*model.Prompt, error) {
	if m.promptForShareFn != nil {
		return m.promptForShareFn(ctx, date)
	}
	return nil, nil
}

func (m *mockShareDataProvider) ProfileForShare(ctx context.Context, username string) (*model.Profile, int, error) {
	if m.profileForShareFn != nil {
		return m.profileForShareFn(ctx, username)
	}
	return nil, 0, nil
}

func newTestShareHandler(provider *mockShareDataProvider) *ShareHandler {
	return NewShareHandler(provider, share.NewRenderer("https://doodle.example.com"))
}

// --- GET /share/doodle テスト ---

func TestShareHandler_DoodlePage_RendersOGMeta(t *testing.T) {
	provider := &mockShareDataProvider{
		doodleForShareFn: func(ctx context.Context, doodleID string) (*model.Doodle, string, error) {
			if doodleID != "doodle-1" {
				t.Errorf("doodleID = %q, want %q", doodleID, "doodle-1")
			}
			return &model.Doodle{
				ID:         "doodle-1",
				PromptDate: "2026-08-29",
				Title:      "空飛ぶくじら",
			}, "neko_painter", nil
		},
	}
	h := newTestShareHandler(provider)

	req := httptest.NewRequest(http.MethodGet, "/share/doodle?id=doodle-1", nil)
	w := httptest.NewRecorder()

	h.DoodlePage(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q, want text/html", ct)
	}

	body := w.Body.String()
	if !strings.Contains(body, "og:title") {
		t.Error("body does not contain og:title meta tag")
	}
	if !strings.Contains(body, "空飛ぶくじら") {
		t.Error("body does not contain doodle title")
	}
}

func TestShareHandler_DoodlePage_MissingID_Returns400(t *testing.T) {
	h := newTestShareHandler(&mockShareDataProvider{})

	req := httptest.NewRequest(http.MethodGet, "/share/doodle", nil)
	w := httptest.NewRecorder()

	h.DoodlePage(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
}

func TestShareHandler_DoodlePage_NotFound_Returns404(t *testing.T) {
	provider := &mockShareDataProvider{
		doodleForShareFn: func(ctx context.Context, doodleID string) (*model.Doodle, string, error) {
			return nil, "", model.NewDoodleNotFoundError(doodleID)
		},
	}
	h := newTestShareHandler(provider)

	req := httptest.NewRequest(http.MethodGet, "/share/doodle?id=missing", nil)
	w := httptest.NewRecorder()

	h.DoodlePage(w, req)

	if w.Result().StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNotFound)
	}
}

func TestShareHandler_DoodlePage_StoreError_Returns500(t *testing.T) {
	provider := &mockShareDataProvider{
		doodleForShareFn: func(ctx context.Context, doodleID string) (*model.Doodle, string, error) {
			return nil, "", errors.New("connection refused")
		},
	}
	h := newTestShareHandler(provider)

	req := httptest.NewRequest(http.MethodGet, "/share/doodle?id=doodle-1", nil)
	w := httptest.NewRecorder()

	h.DoodlePage(w, req)

	if w.Result().StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusInternalServerError)
	}
}

// --- GET /share/prompt テスト ---

func TestShareHandler_PromptPage_RendersPromptText(t *testing.T) {
	provider := &mockShareDataProvider{
		promptForShareFn: func(ctx context.Context, date string) (*model.Prompt, error) {
			if date != "2026-08-29" {
				t.Errorf("date = %q, want %q", date, "2026-08-29")
			}
			return &model.Prompt{Date: date, Text: "夏祭り", Source: "sheet"}, nil
		},
	}
	h := newTestShareHandler(provider)

	req := httptest.NewRequest(http.MethodGet, "/share/prompt?date=2026-08-29", nil)
	w := httptest.NewRecorder()

	h.PromptPage(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), "夏祭り") {
		t.Error("body does not contain prompt text")
	}
}

func TestShareHandler_PromptPage_MissingDate_Returns400(t *testing.T) {
	h := newTestShareHandler(&mockShareDataProvider{})

	req := httptest.NewRequest(http.MethodGet, "/share/prompt", nil)
	w := httptest.NewRecorder()

	h.PromptPage(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
}

// --- GET /share/user テスト ---

func TestShareHandler_UserPage_RendersUsername(t *testing.T) {
	provider := &mockShareDataProvider{
		profileForShareFn: func(ctx context.Context, username string) (*model.Profile, int, error) {
			return &model.Profile{UserID: "user-456", Username: username}, 12, nil
		},
	}
	h := newTestShareHandler(provider)

	req := httptest.NewRequest(http.MethodGet, "/share/user?username=neko_painter", nil)
	w := httptest.NewRecorder()

	h.UserPage(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), "neko_painter") {
		t.Error("body does not contain username")
	}
}

// --- GET /share/image テスト ---

func TestShareHandler_PreviewImage_ReturnsPNG(t *testing.T) {
	h := newTestShareHandler(&mockShareDataProvider{})

	req := httptest.NewRequest(http.MethodGet, "/share/image?type=doodle&id=doodle-1", nil)
	w := httptest.NewRecorder()

	h.PreviewImage(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q, want %q", ct, "image/png")
	}

	// PNGマジックバイトで始まること
	pngMagic := []byte{0x89, 0x50, 0x4E, 0x47}
	if !bytes.HasPrefix(w.Body.Bytes(), pngMagic) {
		t.Error("response body is not a PNG")
	}
}

func TestShareHandler_PreviewImage_SameSeed_SameImage(t *testing.T) {
	h := newTestShareHandler(&mockShareDataProvider{})

	render := func() []byte {
		req := httptest.NewRequest(http.MethodGet, "/share/image?type=doodle&id=doodle-1", nil)
		w := httptest.NewRecorder()
		h.PreviewImage(w, req)
		return w.Body.Bytes()
	}

	first := render()
	second := render()
	if !bytes.Equal(first, second) {
		t.Error("same seed produced different images")
	}
}
