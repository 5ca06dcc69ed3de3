package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/doodleprompt/internal/auth"
	"github.com/hitoshi/doodleprompt/internal/badge"
	"github.com/hitoshi/doodleprompt/internal/config"
	"github.com/hitoshi/doodleprompt/internal/database"
	"github.com/hitoshi/doodleprompt/internal/doodle"
	"github.com/hitoshi/doodleprompt/internal/email"
	"github.com/hitoshi/doodleprompt/internal/entitlement"
	"github.com/hitoshi/doodleprompt/internal/handler"
	"github.com/hitoshi/doodleprompt/internal/logger"
	"github.com/hitoshi/doodleprompt/internal/metrics"
	"github.com/hitoshi/doodleprompt/internal/middleware"
	"github.com/hitoshi/doodleprompt/internal/notification"
	"github.com/hitoshi/doodleprompt/internal/payment"
	"github.com/hitoshi/doodleprompt/internal/profanity"
	"github.com/hitoshi/doodleprompt/internal/profile"
	"github.com/hitoshi/doodleprompt/internal/prompt"
	"github.com/hitoshi/doodleprompt/internal/repository"
	"github.com/hitoshi/doodleprompt/internal/security"
	"github.com/hitoshi/doodleprompt/internal/share"
	"github.com/hitoshi/doodleprompt/internal/social"
	"github.com/hitoshi/doodleprompt/internal/streak"
	"github.com/hitoshi/doodleprompt/internal/user"
	"github.com/hitoshi/doodleprompt/internal/worker/cleanup"
	"github.com/hitoshi/doodleprompt/internal/worker/promptfetch"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DBとRedisへの接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. Redis接続（プレミアム購入記録ストア）
	redisClient, err := database.OpenRedis(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to open redis: %w", err)
	}
	defer redisClient.Close()

	// 3. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	identRepo := repository.NewPostgresIdentityRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	promptRepo := repository.NewPostgresPromptRepo(db)
	doodleRepo := repository.NewPostgresDoodleRepo(db)
	socialRepo := repository.NewPostgresSocialRepo(db)
	streakRepo := repository.NewPostgresStreakRepo(db)
	badgeRepo := repository.NewPostgresBadgeRepo(db)
	notificationRepo := repository.NewPostgresNotificationRepo(db)
	profileRepo := repository.NewPostgresProfileRepo(db)
	entitlementRepo := repository.NewRedisEntitlementRepo(redisClient)

	// 4. セキュリティ・メトリクスの初期化
	ssrfGuard := security.NewSSRFGuard()
	sanitizer := security.NewContentSanitizer()

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 5. ドメインサービスの初期化
	oauthProvider := auth.NewGoogleOAuthProvider(auth.GoogleOAuthConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
	})
	authService := auth.NewService(
		oauthProvider, userRepo, identRepo, sessionRepo, profileRepo,
		auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge},
	)

	notificationService := notification.NewService(notificationRepo)
	badgeService := badge.NewService(badgeRepo, notificationService)
	entitlementService := entitlement.NewService(entitlementRepo, profileRepo)

	promptService := prompt.NewService(promptRepo, ssrfGuard)
	doodleService := doodle.NewService(doodleRepo, sanitizer, badgeService, collector)
	socialService := social.NewService(socialRepo, doodleRepo, userRepo, badgeService, notificationService)
	streakService := streak.NewService(streakRepo, profileRepo, badgeService)
	profileService := profile.NewService(profileRepo, profanity.NewFilter(), sanitizer)
	userService := user.NewService(userRepo, sessionRepo)

	// メール送信はAPIキーが設定されている場合のみ有効化する
	var emailSender email.Sender
	if cfg.SendGridAPIKey != "" {
		emailSender = email.NewSendGridSender(cfg.SendGridAPIKey, cfg.SenderEmail)
	}

	stripeClient := payment.NewStripeClient(cfg.StripeSecretKey)
	paymentService := payment.NewService(
		stripeClient, entitlementRepo, profileRepo, userRepo,
		notificationService, emailSender, collector,
		payment.ServiceConfig{
			WebhookSecret: cfg.StripeWebhookSecret,
			PriceID:       cfg.StripePriceID,
			BaseURL:       cfg.BaseURL,
		},
	)

	// 6. ハンドラーアダプタの構築
	paymentAdapter := handler.NewPaymentServiceAdapter(paymentService, userRepo)
	shareAdapter := handler.NewShareDataAdapter(doodleService, promptService, profileService, doodleRepo)

	// 7. ルーターの構築
	// configのレート制限はreq/min単位なのでreq/secに変換する
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	rateLimiterCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
	rateLimiterCfg.GeneralBurst = cfg.RateLimitGeneral
	rateLimiterCfg.CheckoutRate = rate.Limit(float64(cfg.RateLimitCheckout) / 60.0)
	rateLimiterCfg.CheckoutBurst = cfg.RateLimitCheckout

	deps := &handler.RouterDeps{
		HealthChecker:  db,
		MetricsHandler: metrics.Handler(registry),

		SessionFinder: sessionRepo,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       middleware.NewRateLimiter(rateLimiterCfg),

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			BaseURL:       cfg.BaseURL,
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		PromptService:  promptService,
		PremiumChecker: entitlementService,

		DoodleService: doodleService,
		SocialService: socialService,

		StreakService: streakService,
		BadgeService:  badgeService,

		NotificationService: notificationService,
		AdminChecker:        userService,

		PaymentService: paymentAdapter,

		ProfileService: profileService,
		Reconciler:     entitlementService,
		SocialStats:    socialService,

		ShareProvider: shareAdapter,
		ShareRenderer: share.NewRenderer(cfg.BaseURL),

		UserService: userService,
	}

	router := handler.NewRouter(deps)

	// 8. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// workerMaxConcurrency はお題ソースフェッチの最大並列数。
const workerMaxConcurrency = 10

// runWorker はワーカーモードで起動する。
// DB接続を開き、お題フェッチスケジューラとクリーンアップジョブを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	// 2. リポジトリ・セキュリティ・メトリクスの初期化
	promptRepo := repository.NewPostgresPromptRepo(db)
	ssrfGuard := security.NewSSRFGuard()
	sanitizer := security.NewContentSanitizer()

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 3. フェッチャーとスケジューラの初期化
	fetcher := promptfetch.NewFetcher(
		promptRepo, sanitizer, ssrfGuard, collector,
		slog.Default(), cfg.PromptFetchTimeout, cfg.PromptFetchMaxSize, cfg.PromptInterval,
	)
	scheduler := promptfetch.NewScheduler(
		promptRepo, fetcher, slog.Default(), workerMaxConcurrency,
	)

	// 4. クリーンアップジョブの初期化
	cleanupJob := cleanup.NewCleanupJob(db, slog.Default())
	cleanupJob.RetentionDays = cfg.NotificationRetentionDays

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("fetch_interval", cfg.PromptInterval),
		slog.Int("max_concurrency", workerMaxConcurrency),
	)

	// メトリクスをスクレイプ用に公開
	metricsServer := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: metrics.SetupMetricsRoute(registry),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server listen error", slog.String("error", err.Error()))
		}
	}()
	defer metricsServer.Close()

	// クリーンアップジョブを日次でバックグラウンド実行
	go func() {
		// 起動直後に1回実行
		if err := cleanupJob.Run(ctx); err != nil {
			slog.Error("cleanup job failed", slog.String("error", err.Error()))
		}

		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := cleanupJob.Run(ctx); err != nil {
					slog.Error("cleanup job failed", slog.String("error", err.Error()))
				}
			}
		}
	}()

	// フェッチスケジューラをメインgoroutineで実行（ブロッキング）
	scheduler.Start(ctx, cfg.PromptInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
