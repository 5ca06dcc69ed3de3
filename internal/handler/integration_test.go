package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/doodleprompt/internal/doodle"
	"github.com/hitoshi/doodleprompt/internal/middleware"
	"github.com/hitoshi/doodleprompt/internal/model"
	"github.com/hitoshi/doodleprompt/internal/profile"
	"github.com/hitoshi/doodleprompt/internal/share"
)

// --- 統合テスト用のステートフルモック ---

// integrationState は統合テスト用の共有状態を保持する。
type integrationState struct {
	sessions      map[string]*model.Session
	users         map[string]*model.User
	doodles       map[string]*model.Doodle
	likes         map[string]bool // "userID:doodleID"
	notifications map[string]*model.Notification
	streaks       map[string]*model.StreakState
}

func newIntegrationState() *integrationState {
	return &integrationState{
		sessions:      make(map[string]*model.Session),
		users:         make(map[string]*model.User),
		doodles:       make(map[string]*model.Doodle),
		likes:         make(map[string]bool),
		notifications: make(map[string]*model.Notification),
		streaks:       make(map[string]*model.StreakState),
	}
}

// --- 統合テスト用ルーター構築ヘルパー ---

func createIntegrationRouter(state *integrationState) http.Handler {
	sessionFinder := &mockSessionFinderForRouter{
		sessions: state.sessions,
	}

	doodleSeq := 0

	deps := &RouterDeps{
		SessionFinder:     sessionFinder,
		CSRFConfig:        middleware.CSRFConfig{CookieSecure: false},
		CORSAllowedOrigin: "http://localhost:3000",
		RateLimiter:       middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig()),
		AuthService: &mockAuthService{
			getLoginURLFn: func(s string) string {
				return "https://accounts.google.com/o/oauth2/auth?state=" + s
			},
			handleCallbackFn: func(ctx context.Context, code string) (*model.Session, error) {
				session := &model.Session{
					ID:        "session-integration-1",
					UserID:    "user-integration-1",
					ExpiresAt: time.Now().Add(24 * time.Hour),
				}
				state.sessions[session.ID] = session
				state.users["user-integration-1"] = &model.User{
					ID:    "user-integration-1",
					Email: "integration@example.com",
					Name:  "Integration User",
				}
				return session, nil
			},
			logoutFn: func(ctx context.Context, sessionID string) error {
				delete(state.sessions, sessionID)
				return nil
			},
			getCurrentUserFn: func(ctx context.Context, sessionID string) (*model.User, error) {
				sess, ok := state.sessions[sessionID]
				if !ok {
					return nil, fmt.Errorf("session not found")
				}
				user, ok := state.users[sess.UserID]
				if !ok {
					return nil, fmt.Errorf("user not found")
				}
				return user, nil
			},
		},
		AuthConfig: AuthHandlerConfig{BaseURL: "http://localhost:3000", SessionMaxAge: 86400},
		PromptService: &mockPromptService{
			todayPromptFn: func(ctx context.Context, isPremium bool) (*model.Prompt, error) {
				p := &model.Prompt{Date: "2026-08-29", Text: "空飛ぶくじら", Source: "sheet"}
				if isPremium {
					p.PremiumText = "深海のくじら"
				}
				return p, nil
			},
		},
		PremiumChecker: &mockPremiumChecker{},
		DoodleService: &mockDoodleService{
			createFn: func(ctx context.Context, input doodle.CreateInput) (*model.Doodle, error) {
				doodleSeq++
				d := &model.Doodle{
					ID:         fmt.Sprintf("doodle-integration-%d", doodleSeq),
					UserID:     input.UserID,
					PromptDate: input.PromptDate,
					Title:      input.Title,
					ImageData:  input.ImageData,
					ImageMime:  "image/png",
					CreatedAt:  time.Now(),
				}
				state.doodles[d.ID] = d
				return d, nil
			},
			getFn: func(ctx context.Context, doodleID string) (*model.Doodle, error) {
				d, ok := state.doodles[doodleID]
				if !ok {
					return nil, model.NewDoodleNotFoundError(doodleID)
				}
				return d, nil
			},
			listByPromptFn: func(ctx context.Context, promptDate, viewerID string, cursor time.Time, limit int) ([]model.DoodleWithStats, error) {
				var results []model.DoodleWithStats
				for _, d := range state.doodles {
					if d.PromptDate != promptDate {
						continue
					}
					likeCount := 0
					for key := range state.likes {
						if strings.HasSuffix(key, ":"+d.ID) {
							likeCount++
						}
					}
					results = append(results, model.DoodleWithStats{
						Doodle:    *d,
						LikeCount: likeCount,
						IsLiked:   state.likes[viewerID+":"+d.ID],
					})
				}
				return results, nil
			},
			deleteFn: func(ctx context.Context, userID, doodleID string) error {
				d, ok := state.doodles[doodleID]
				if !ok || d.UserID != userID {
					return model.NewDoodleNotFoundError(doodleID)
				}
				delete(state.doodles, doodleID)
				return nil
			},
		},
		SocialService: &mockSocialService{
			likeFn: func(ctx context.Context, userID, doodleID string) error {
				if _, ok := state.doodles[doodleID]; !ok {
					return model.NewDoodleNotFoundError(doodleID)
				}
				state.likes[userID+":"+doodleID] = true
				return nil
			},
			unlikeFn: func(ctx context.Context, userID, doodleID string) error {
				delete(state.likes, userID+":"+doodleID)
				return nil
			},
		},
		StreakService: &mockStreakService{
			getStateFn: func(ctx context.Context, userID string) (*model.StreakState, error) {
				if s, ok := state.streaks[userID]; ok {
					return s, nil
				}
				return &model.StreakState{UserID: userID}, nil
			},
			recordViewFn: func(ctx context.Context, userID string) (*model.StreakResult, error) {
				s, ok := state.streaks[userID]
				if !ok {
					s = &model.StreakState{UserID: userID}
					state.streaks[userID] = s
				}
				if s.LastViewedDate == "2026-08-29" {
					return &model.StreakResult{State: s, AlreadySeen: true}, nil
				}
				s.CurrentStreak++
				if s.CurrentStreak > s.LongestStreak {
					s.LongestStreak = s.CurrentStreak
				}
				s.LastViewedDate = "2026-08-29"
				return &model.StreakResult{State: s, Extended: true}, nil
			},
		},
		BadgeService:        &mockBadgeService{},
		NotificationService: &mockNotificationService{},
		AdminChecker:        &mockAdminChecker{},
		PaymentService:      &mockPaymentService{},
		ProfileService: &mockProfileService{
			getProfileFn: func(ctx context.Context, userID string) (*model.Profile, error) {
				return model.DefaultProfile(userID), nil
			},
			updateProfileFn: func(ctx context.Context, userID string, input profile.UpdateInput) (*model.Profile, error) {
				p := model.DefaultProfile(userID)
				if input.Username != nil {
					p.Username = *input.Username
				}
				return p, nil
			},
		},
		Reconciler:    &mockEntitlementReconciler{},
		SocialStats:   &mockSocialStats{},
		ShareProvider: &mockShareDataProvider{},
		ShareRenderer: share.NewRenderer("http://localhost:3000"),
		UserService: &mockUserService{
			withdrawFn: func(ctx context.Context, userID string) error {
				delete(state.users, userID)
				for id, sess := range state.sessions {
					if sess.UserID == userID {
						delete(state.sessions, id)
					}
				}
				for id, d := range state.doodles {
					if d.UserID == userID {
						delete(state.doodles, id)
					}
				}
				delete(state.streaks, userID)
				return nil
			},
		},
	}

	return NewRouter(deps)
}

// seedIntegrationSession はセッションとユーザーを事前登録するヘルパー。
func seedIntegrationSession(state *integrationState, sessionID, userID string) {
	state.sessions[sessionID] = &model.Session{
		ID:        sessionID,
		UserID:    userID,
		ExpiresAt: time.Now().Add(1 * time.Hour),
	}
	state.users[userID] = &model.User{
		ID:    userID,
		Email: userID + "@example.com",
		Name:  "Test User",
	}
}

// --- エンドツーエンド統合テスト ---

// TestIntegration_AuthFlow_LoginCallbackMeLogout はOAuth認証フロー全体を検証する。
// ログイン → コールバック → セッション発行 → /auth/me で認証確認 → ログアウト → セッション破棄
func TestIntegration_AuthFlow_LoginCallbackMeLogout(t *testing.T) {
	state := newIntegrationState()
	router := createIntegrationRouter(state)

	// 1. ログイン: OAuthリダイレクトURLが返ること
	req := httptest.NewRequest(http.MethodGet, "/auth/google/login", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Fatalf("step1: GET /auth/google/login status = %d, want %d", resp.StatusCode, http.StatusTemporaryRedirect)
	}

	location := resp.Header.Get("Location")
	if !strings.Contains(location, "accounts.google.com") {
		t.Fatalf("step1: redirect location = %q, should contain accounts.google.com", location)
	}

	// OAuthステートクッキーを取得
	var oauthStateCookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "oauth_state" {
			oauthStateCookie = c
			break
		}
	}
	if oauthStateCookie == nil {
		t.Fatal("step1: expected oauth_state cookie")
	}

	// 2. コールバック: セッションが発行されること
	callbackURL := "/auth/google/callback?code=test-auth-code&state=" + oauthStateCookie.Value
	req = httptest.NewRequest(http.MethodGet, callbackURL, nil)
	req.AddCookie(oauthStateCookie)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	resp = w.Result()
	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Fatalf("step2: callback status = %d, want %d", resp.StatusCode, http.StatusTemporaryRedirect)
	}

	// セッションクッキーを取得
	var sessionCookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "session_id" {
			sessionCookie = c
			break
		}
	}
	if sessionCookie == nil {
		t.Fatal("step2: expected session_id cookie")
	}
	if sessionCookie.Value == "" {
		t.Fatal("step2: expected non-empty session_id")
	}

	// 3. /auth/me: セッション付きでユーザー情報が取得できること
	req = httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(sessionCookie)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	resp = w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("step3: GET /auth/me status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var meBody map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&meBody)
	if meBody["email"] != "integration@example.com" {
		t.Errorf("step3: email = %q, want %q", meBody["email"], "integration@example.com")
	}

	// 4. ログアウト: セッションが破棄されること
	req = httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(sessionCookie)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	resp = w.Result()
	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Fatalf("step4: POST /auth/logout status = %d, want %d", resp.StatusCode, http.StatusTemporaryRedirect)
	}

	// 5. ログアウト後に /auth/me にアクセスすると401が返ること
	req = httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(sessionCookie) // 古いセッションを使用
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	resp = w.Result()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("step5: GET /auth/me after logout status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
}

// TestIntegration_DoodlePostAndLikeFlow は作品投稿といいねのフロー全体を検証する。
// お題取得 → 作品投稿 → お題別一覧に表示 → 別ユーザーがいいね → いいね数反映 → いいね解除
func TestIntegration_DoodlePostAndLikeFlow(t *testing.T) {
	state := newIntegrationState()
	seedIntegrationSession(state, "session-author", "user-author")
	seedIntegrationSession(state, "session-viewer", "user-viewer")

	router := createIntegrationRouter(state)

	doRequest := func(method, path, body, sessionID string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.AddCookie(&http.Cookie{Name: "session_id", Value: sessionID})
		req.AddCookie(&http.Cookie{Name: "csrf_token", Value: "test-token"})
		req.Header.Set("X-CSRF-Token", "test-token")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	// 1. 今日のお題を取得
	w := doRequest(http.MethodGet, "/api/prompts/today", "", "session-author")
	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("step1: GET /api/prompts/today status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}

	var promptBody map[string]interface{}
	json.NewDecoder(w.Result().Body).Decode(&promptBody)
	promptDate := promptBody["date"].(string)

	// 2. 作品を投稿
	createBody := fmt.Sprintf(`{"prompt_date": %q, "title": "くじら", "image": "iVBORw0KGgo="}`, promptDate)
	w = doRequest(http.MethodPost, "/api/doodles", createBody, "session-author")
	if w.Result().StatusCode != http.StatusCreated {
		t.Fatalf("step2: POST /api/doodles status = %d, want %d", w.Result().StatusCode, http.StatusCreated)
	}

	var createResp map[string]interface{}
	json.NewDecoder(w.Result().Body).Decode(&createResp)
	doodleID := createResp["id"].(string)
	if doodleID == "" {
		t.Fatal("step2: expected non-empty doodle id")
	}

	// 3. お題別一覧に作品が表示されること
	w = doRequest(http.MethodGet, "/api/prompts/"+promptDate+"/doodles", "", "session-viewer")
	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("step3: GET /api/prompts/%s/doodles status = %d, want %d", promptDate, w.Result().StatusCode, http.StatusOK)
	}

	var listResp struct {
		Doodles []doodleWithStatsResponse `json:"doodles"`
	}
	json.NewDecoder(w.Result().Body).Decode(&listResp)
	if len(listResp.Doodles) != 1 {
		t.Fatalf("step3: expected 1 doodle, got %d", len(listResp.Doodles))
	}
	if listResp.Doodles[0].LikeCount != 0 {
		t.Errorf("step3: LikeCount = %d, want 0", listResp.Doodles[0].LikeCount)
	}

	// 4. 別ユーザーがいいね
	w = doRequest(http.MethodPost, "/api/doodles/"+doodleID+"/like", "", "session-viewer")
	if w.Result().StatusCode != http.StatusNoContent {
		t.Fatalf("step4: POST like status = %d, want %d", w.Result().StatusCode, http.StatusNoContent)
	}

	// 5. 一覧にいいね数と閲覧ユーザーのいいね状態が反映されること
	w = doRequest(http.MethodGet, "/api/prompts/"+promptDate+"/doodles", "", "session-viewer")
	listResp.Doodles = nil
	json.NewDecoder(w.Result().Body).Decode(&listResp)
	if len(listResp.Doodles) != 1 {
		t.Fatalf("step5: expected 1 doodle, got %d", len(listResp.Doodles))
	}
	if listResp.Doodles[0].LikeCount != 1 {
		t.Errorf("step5: LikeCount = %d, want 1", listResp.Doodles[0].LikeCount)
	}
	if !listResp.Doodles[0].IsLiked {
		t.Error("step5: IsLiked = false, want true")
	}

	// 6. いいね解除は冪等に成功すること
	w = doRequest(http.MethodDelete, "/api/doodles/"+doodleID+"/like", "", "session-viewer")
	if w.Result().StatusCode != http.StatusNoContent {
		t.Fatalf("step6: DELETE like status = %d, want %d", w.Result().StatusCode, http.StatusNoContent)
	}

	w = doRequest(http.MethodDelete, "/api/doodles/"+doodleID+"/like", "", "session-viewer")
	if w.Result().StatusCode != http.StatusNoContent {
		t.Errorf("step6: second DELETE like status = %d, want %d (idempotent)", w.Result().StatusCode, http.StatusNoContent)
	}
}

// TestIntegration_StreakFlow はストリーク記録フローを検証する。
// ビュー記録 → ストリーク+1 → 同日再記録は冪等 → 状態取得
func TestIntegration_StreakFlow(t *testing.T) {
	state := newIntegrationState()
	seedIntegrationSession(state, "session-test", "user-test")

	router := createIntegrationRouter(state)

	doRequest := func(method, path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, nil)
		req.AddCookie(&http.Cookie{Name: "session_id", Value: "session-test"})
		req.AddCookie(&http.Cookie{Name: "csrf_token", Value: "test-token"})
		req.Header.Set("X-CSRF-Token", "test-token")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	// 1. 初回ビュー記録: ストリークが1になること
	w := doRequest(http.MethodPost, "/api/streak/view")
	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("step1: POST /api/streak/view status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}

	var recordResp streakRecordResponse
	json.NewDecoder(w.Result().Body).Decode(&recordResp)
	if recordResp.CurrentStreak != 1 {
		t.Errorf("step1: CurrentStreak = %d, want 1", recordResp.CurrentStreak)
	}
	if !recordResp.Extended {
		t.Error("step1: Extended = false, want true")
	}

	// 2. 同日の再記録: 冪等でストリークが変わらないこと
	w = doRequest(http.MethodPost, "/api/streak/view")
	recordResp = streakRecordResponse{}
	json.NewDecoder(w.Result().Body).Decode(&recordResp)
	if recordResp.CurrentStreak != 1 {
		t.Errorf("step2: CurrentStreak = %d, want 1 (idempotent)", recordResp.CurrentStreak)
	}
	if recordResp.Extended {
		t.Error("step2: Extended = true, want false on same-day re-record")
	}

	// 3. 状態取得
	w = doRequest(http.MethodGet, "/api/streak")
	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("step3: GET /api/streak status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}

	var stateResp streakStateResponse
	json.NewDecoder(w.Result().Body).Decode(&stateResp)
	if stateResp.CurrentStreak != 1 {
		t.Errorf("step3: CurrentStreak = %d, want 1", stateResp.CurrentStreak)
	}
}

// TestIntegration_WithdrawFlow は退会フローを検証する。
// 作品投稿 → 退会 → ユーザー関連データが削除されること
func TestIntegration_WithdrawFlow(t *testing.T) {
	state := newIntegrationState()
	seedIntegrationSession(state, "session-test", "user-test")

	router := createIntegrationRouter(state)

	// 1. 作品を投稿
	createBody := `{"prompt_date": "2026-08-29", "title": "くじら", "image": "iVBORw0KGgo="}`
	req := httptest.NewRequest(http.MethodPost, "/api/doodles", strings.NewReader(createBody))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "session-test"})
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: "test-token"})
	req.Header.Set("X-CSRF-Token", "test-token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusCreated {
		t.Fatalf("step1: POST /api/doodles status = %d, want %d", w.Result().StatusCode, http.StatusCreated)
	}
	if len(state.doodles) != 1 {
		t.Fatalf("step1: expected 1 doodle, got %d", len(state.doodles))
	}

	// 2. 退会
	req = httptest.NewRequest(http.MethodDelete, "/api/users/me", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "session-test"})
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: "test-token"})
	req.Header.Set("X-CSRF-Token", "test-token")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusNoContent {
		t.Fatalf("step2: DELETE /api/users/me status = %d, want %d", w.Result().StatusCode, http.StatusNoContent)
	}

	// ユーザー関連データが削除されたことを確認
	if len(state.users) != 0 {
		t.Errorf("step2: expected 0 users after withdraw, got %d", len(state.users))
	}
	if len(state.sessions) != 0 {
		t.Errorf("step2: expected 0 sessions after withdraw, got %d", len(state.sessions))
	}
	if len(state.doodles) != 0 {
		t.Errorf("step2: expected 0 doodles after withdraw, got %d", len(state.doodles))
	}
}

// TestIntegration_ProtectedEndpoints_RequireAuth は全保護エンドポイントが認証を要求することを検証する。
func TestIntegration_ProtectedEndpoints_RequireAuth(t *testing.T) {
	state := newIntegrationState()
	router := createIntegrationRouter(state)

	endpoints := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodGet, "/api/prompts/today", ""},
		{http.MethodPost, "/api/doodles", `{"prompt_date": "2026-08-29", "title": "x", "image": ""}`},
		{http.MethodGet, "/api/users/user-1/doodles", ""},
		{http.MethodPost, "/api/doodles/doodle-1/like", ""},
		{http.MethodPost, "/api/users/user-2/follow", ""},
		{http.MethodGet, "/api/streak", ""},
		{http.MethodPost, "/api/streak/view", ""},
		{http.MethodGet, "/api/badges", ""},
		{http.MethodGet, "/api/notifications", ""},
		{http.MethodPost, "/api/payments/checkout", ""},
		{http.MethodGet, "/api/profile", ""},
		{http.MethodPatch, "/api/profile", `{"username": "x"}`},
		{http.MethodDelete, "/api/users/me", ""},
	}

	for _, ep := range endpoints {
		t.Run(ep.method+" "+ep.path, func(t *testing.T) {
			req := httptest.NewRequest(ep.method, ep.path, strings.NewReader(ep.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Result().StatusCode != http.StatusUnauthorized {
				t.Errorf("%s %s (no auth) status = %d, want %d",
					ep.method, ep.path, w.Result().StatusCode, http.StatusUnauthorized)
			}
		})
	}
}
