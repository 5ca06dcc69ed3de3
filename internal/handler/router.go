package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/doodleprompt/internal/middleware"
	"github.com/hitoshi/doodleprompt/internal/share"
)

// HealthChecker はヘルスチェックエンドポイントが疎通確認に使う依存。
// *sql.DBがそのまま満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// SetupAuthRoutes は認証関連のルーティングを設定したchi.Routerを返す。
func SetupAuthRoutes(service AuthServiceInterface, config AuthHandlerConfig) http.Handler {
	r := chi.NewRouter()
	h := NewAuthHandler(service, config)

	r.Route("/auth", func(r chi.Router) {
		// OAuthフロー
		r.Get("/google/login", h.Login)
		r.Get("/google/callback", h.Callback)

		// セッション管理
		r.Post("/logout", h.Logout)
		r.Get("/me", h.Me)
	})

	return r
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ヘルスチェック
	HealthChecker HealthChecker

	// メトリクス公開（nilの場合は/metricsを公開しない）
	MetricsHandler http.Handler

	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	CSRFConfig        middleware.CSRFConfig
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// お題
	PromptService  PromptServiceInterface
	PremiumChecker PremiumChecker

	// 作品・ソーシャル
	DoodleService DoodleServiceInterface
	SocialService SocialServiceInterface

	// ストリーク・バッジ
	StreakService StreakServiceInterface
	BadgeService  BadgeServiceInterface

	// 通知
	NotificationService NotificationServiceInterface
	AdminChecker        AdminChecker

	// 決済
	PaymentService PaymentServiceInterface

	// プロフィール
	ProfileService ProfileServiceInterface
	Reconciler     EntitlementReconciler
	SocialStats    SocialStatsInterface

	// 共有ページ
	ShareProvider ShareDataProvider
	ShareRenderer *share.Renderer

	// ユーザー
	UserService UserServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders → CORS →
//	SessionMiddleware → CSRFMiddleware → RateLimitMiddleware(GeneralMiddleware)
//
// 認証ルート（/auth/*）、Webhook（/webhooks/*）、共有ページ（/share/*）は
// セッション以降のミドルウェアチェーンの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// 全ルート共通の外側ミドルウェア
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(slog.Default()))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	promptHandler := NewPromptHandler(deps.PromptService, deps.PremiumChecker)
	doodleHandler := NewDoodleHandler(deps.DoodleService)
	socialHandler := NewSocialHandler(deps.SocialService)
	streakHandler := NewStreakHandler(deps.StreakService)
	badgeHandler := NewBadgeHandler(deps.BadgeService)
	notificationHandler := NewNotificationHandler(deps.NotificationService, deps.AdminChecker)
	paymentHandler := NewPaymentHandler(deps.PaymentService)
	profileHandler := NewProfileHandler(deps.ProfileService, deps.Reconciler, deps.SocialStats)
	shareHandler := NewShareHandler(deps.ShareProvider, deps.ShareRenderer)
	userHandler := NewUserHandler(deps.UserService)

	// --- 認証不要のルート ---

	// ヘルスチェック（Dockerヘルスチェック・監視向け）
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if deps.HealthChecker != nil {
			if err := deps.HealthChecker.PingContext(req.Context()); err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy"})
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	// Prometheusスクレイプ用
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// 認証ルート（OAuthフロー）
	r.Route("/auth", func(r chi.Router) {
		r.Get("/google/login", authHandler.Login)
		r.Get("/google/callback", authHandler.Callback)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// 決済プロバイダからのWebhook（署名で検証するためセッション認証は通さない）
	r.Post("/webhooks/stripe", paymentHandler.HandleWebhook)

	// SNS共有ページ（クローラー向け公開エンドポイント）
	r.Route("/share", func(r chi.Router) {
		r.Get("/doodle", shareHandler.DoodlePage)
		r.Get("/prompt", shareHandler.PromptPage)
		r.Get("/user", shareHandler.UserPage)
		r.Get("/image", shareHandler.PreviewImage)
	})

	// CSRFトークン取得（認証前にフロントエンドが取得するため認証不要）
	r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → CSRF → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// お題
		r.Route("/api/prompts", func(r chi.Router) {
			r.Get("/today", promptHandler.GetTodayPrompt)
			r.Post("/sources", promptHandler.RegisterSource)

			r.Route("/{date}", func(r chi.Router) {
				r.Get("/", promptHandler.GetPrompt)
				r.Get("/doodles", doodleHandler.ListPromptDoodles)
			})
		})

		// 作品
		r.Route("/api/doodles", func(r chi.Router) {
			r.Post("/", doodleHandler.CreateDoodle)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", doodleHandler.GetDoodle)
				r.Delete("/", doodleHandler.DeleteDoodle)
				r.Get("/image", doodleHandler.GetDoodleImage)
				r.Post("/share", doodleHandler.ShareDoodle)

				// いいね
				r.Post("/like", socialHandler.LikeDoodle)
				r.Delete("/like", socialHandler.UnlikeDoodle)
			})
		})

		// ストリーク
		r.Route("/api/streak", func(r chi.Router) {
			r.Get("/", streakHandler.GetStreak)
			r.Post("/view", streakHandler.RecordView)
		})

		// バッジ
		r.Get("/api/badges", badgeHandler.ListBadges)

		// 通知
		r.Route("/api/notifications", func(r chi.Router) {
			r.Get("/", notificationHandler.ListNotifications)
			r.Post("/", notificationHandler.CreateNotification)
			r.Get("/unread-count", notificationHandler.GetUnreadCount)
			r.Patch("/read-all", notificationHandler.MarkAllRead)
			r.Delete("/read", notificationHandler.DeleteReadNotifications)

			r.Route("/{id}", func(r chi.Router) {
				r.Patch("/read", notificationHandler.MarkRead)
				r.Delete("/", notificationHandler.DeleteNotification)
			})
		})

		// 決済
		r.Route("/api/payments", func(r chi.Router) {
			// POST /api/payments/checkout - チェックアウト作成（専用レート制限を追加）
			r.With(deps.RateLimiter.CheckoutMiddleware()).Post("/checkout", paymentHandler.CreateCheckout)
			r.Get("/verify", paymentHandler.VerifySession)
		})

		// プロフィール
		r.Route("/api/profile", func(r chi.Router) {
			r.Get("/", profileHandler.GetMyProfile)
			r.Patch("/", profileHandler.UpdateProfile)
		})

		// ユーザー
		r.Route("/api/users", func(r chi.Router) {
			r.Delete("/me", userHandler.Withdraw)
			r.Get("/by-username/{username}", profileHandler.GetUserProfile)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/doodles", doodleHandler.ListUserDoodles)
				r.Post("/follow", socialHandler.FollowUser)
				r.Delete("/follow", socialHandler.UnfollowUser)
			})
		})
	})

	return r
}
