package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Google OAuth 2.0の各エンドポイント。テストではGoogleOAuthConfigで差し替える。
const (
	googleAuthEndpoint     = "https://accounts.google.com/o/oauth2/auth"
	googleTokenEndpoint    = "https://oauth2.googleapis.com/token"
	googleUserInfoEndpoint = "https://www.googleapis.com/oauth2/v3/userinfo"
)

// oauthHTTPTimeout はGoogleへの各HTTPリクエストのタイムアウト。
const oauthHTTPTimeout = 10 * time.Second

// maxOAuthResponseSize はGoogleからのレスポンスボディの読み取り上限。
const maxOAuthResponseSize = 1 << 20 // 1MiB

// GoogleOAuthConfig はGoogle OAuthプロバイダーの設定。
// AuthURL以下は未指定の場合に本番エンドポイントが使われる。
type GoogleOAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	AuthURL     string
	TokenURL    string
	UserInfoURL string
}

// GoogleOAuthProvider はGoogle OAuth 2.0による認証を提供する。
type GoogleOAuthProvider struct {
	config GoogleOAuthConfig
	client *http.Client
}

// NewGoogleOAuthProvider はGoogleOAuthProviderを生成する。
func NewGoogleOAuthProvider(config GoogleOAuthConfig) *GoogleOAuthProvider {
	if config.AuthURL == "" {
		config.AuthURL = googleAuthEndpoint
	}
	if config.TokenURL == "" {
		config.TokenURL = googleTokenEndpoint
	}
	if config.UserInfoURL == "" {
		config.UserInfoURL = googleUserInfoEndpoint
	}
	return &GoogleOAuthProvider{
		config: config,
		client: &http.Client{Timeout: oauthHTTPTimeout},
	}
}

// GetLoginURL はGoogle OAuthの認証URLを生成する。
// スコープにはopenid, email, profileを含む。
func (p *GoogleOAuthProvider) GetLoginURL(state string) string {
	q := url.Values{}
	q.Set("client_id", p.config.ClientID)
	q.Set("redirect_uri", p.config.RedirectURL)
	q.Set("response_type", "code")
	q.Set("scope", "openid email profile")
	q.Set("state", state)
	q.Set("access_type", "offline")
	return p.config.AuthURL + "?" + q.Encode()
}

// tokenPayload はトークンエンドポイントのレスポンスのうち利用するフィールド。
type tokenPayload struct {
	AccessToken string `json:"access_token"`
}

// profilePayload はuserinfoエンドポイントのレスポンス（OpenID Connect形式）。
type profilePayload struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// ExchangeCode は認可コードをアクセストークンに交換し、ユーザー情報を取得する。
func (p *GoogleOAuthProvider) ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error) {
	form := url.Values{}
	form.Set("code", code)
	form.Set("client_id", p.config.ClientID)
	form.Set("client_secret", p.config.ClientSecret)
	form.Set("redirect_uri", p.config.RedirectURL)
	form.Set("grant_type", "authorization_code")

	tokenReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build token request: %w", err)
	}
	tokenReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var token tokenPayload
	if err := p.doJSON(tokenReq, &token); err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("token response has no access token")
	}

	infoReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.UserInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build userinfo request: %w", err)
	}
	infoReq.Header.Set("Authorization", "Bearer "+token.AccessToken)

	var profile profilePayload
	if err := p.doJSON(infoReq, &profile); err != nil {
		return nil, fmt.Errorf("userinfo fetch failed: %w", err)
	}
	if profile.Sub == "" {
		return nil, fmt.Errorf("userinfo response has no subject")
	}

	return &OAuthUserInfo{
		ProviderUserID: profile.Sub,
		Email:          profile.Email,
		Name:           profile.Name,
		Provider:       "google",
	}, nil
}

// doJSON はリクエストを実行し、2xxのJSONレスポンスをoutにデコードする。
func (p *GoogleOAuthProvider) doJSON(req *http.Request, out interface{}) error {
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxOAuthResponseSize))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// --- compile-time interface checks ---

var _ OAuthProvider = (*GoogleOAuthProvider)(nil)
