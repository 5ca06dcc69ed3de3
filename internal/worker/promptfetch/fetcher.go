package promptfetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/doodleprompt/internal/metrics"
	"github.com/hitoshi/doodleprompt/internal/model"
	"github.com/hitoshi/doodleprompt/internal/prompt"
	"github.com/hitoshi/doodleprompt/internal/repository"
	"github.com/hitoshi/doodleprompt/internal/security"
)

// Fetcher は個別お題ソースのHTTPフェッチとパースを行う。
// ETag/Last-Modifiedを使用した条件付きGET、SSRF検証、
// ソース種別に応じたパース（CSVシート/RSSフィード）、お題のUPSERTを実行する。
type Fetcher struct {
	promptRepo    repository.PromptRepository
	sanitizer     security.ContentSanitizerService
	ssrfGuard     security.SSRFGuardService
	collector     metrics.MetricsCollector
	logger        *slog.Logger
	timeout       time.Duration
	maxBodySize   int64
	fetchInterval time.Duration
}

// NewFetcher はFetcherの新しいインスタンスを生成する。collectorはnil可。
func NewFetcher(
	promptRepo repository.PromptRepository,
	sanitizer security.ContentSanitizerService,
	ssrfGuard security.SSRFGuardService,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
	timeout time.Duration,
	maxBodySize int64,
	fetchInterval time.Duration,
) *Fetcher {
	return &Fetcher{
		promptRepo:    promptRepo,
		sanitizer:     sanitizer,
		ssrfGuard:     ssrfGuard,
		collector:     collector,
		logger:        logger,
		timeout:       timeout,
		maxBodySize:   maxBodySize,
		fetchInterval: fetchInterval,
	}
}

// sourceParser はソース種別に対応するパーサーを返す。
func sourceParser(kind string) (prompt.Source, error) {
	switch kind {
	case prompt.KindSheet:
		return prompt.NewSheetSource(), nil
	case prompt.KindFeed:
		return prompt.NewFeedSource(), nil
	default:
		return nil, fmt.Errorf("unknown source kind: %s", kind)
	}
}

// Fetch はお題ソースをフェッチし、結果に応じてソース状態を更新する。
func (f *Fetcher) Fetch(ctx context.Context, source *model.PromptSourceState) error {
	start := time.Now()

	// SSRF検証。登録時にも検証しているが、DNS再バインディング等に備えて
	// フェッチ時にも再検証する
	if err := f.ssrfGuard.ValidateURL(source.URL); err != nil {
		f.logger.Error("SSRF検証に失敗しました",
			slog.String("source_id", source.ID),
			slog.String("source_url", source.URL),
			slog.String("error", err.Error()),
		)
		f.recordFailure(source.ID, "ssrf")
		ApplyStopSource(source, fmt.Sprintf("SSRF検証失敗: %s", err.Error()))
		f.updateState(ctx, source)
		return fmt.Errorf("SSRF検証に失敗: %w", err)
	}

	parser, err := sourceParser(source.Kind)
	if err != nil {
		f.recordFailure(source.ID, "unknown_kind")
		ApplyStopSource(source, err.Error())
		f.updateState(ctx, source)
		return err
	}

	// HTTPリクエスト構築
	client := f.ssrfGuard.NewSafeClient(f.timeout, f.maxBodySize)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.URL, nil)
	if err != nil {
		return fmt.Errorf("リクエスト作成に失敗: %w", err)
	}

	req.Header.Set("User-Agent", "DoodlePrompt/1.0 Prompt Fetcher")
	req.Header.Set("Accept", "text/csv, application/rss+xml, application/atom+xml, application/xml, text/xml, */*")

	// 条件付きGET: ETag
	if source.ETag != "" {
		req.Header.Set("If-None-Match", source.ETag)
	}
	// 条件付きGET: Last-Modified
	if source.LastModified != "" {
		req.Header.Set("If-Modified-Since", source.LastModified)
	}

	// HTTPリクエスト実行
	resp, err := client.Do(req)
	if err != nil {
		f.logger.Error("HTTPリクエストに失敗しました",
			slog.String("source_id", source.ID),
			slog.String("source_url", source.URL),
			slog.String("error", err.Error()),
		)
		f.recordFailure(source.ID, "http_error")
		ApplyBackoff(source, fmt.Sprintf("HTTPリクエスト失敗: %s", err.Error()))
		f.updateState(ctx, source)
		return fmt.Errorf("HTTPリクエスト失敗: %w", err)
	}
	defer resp.Body.Close()

	duration := time.Since(start)
	if f.collector != nil {
		f.collector.RecordHTTPStatus(resp.StatusCode)
		f.collector.RecordFetchLatency(duration)
	}

	// HTTPステータスに基づく処理分岐
	result := ClassifyHTTPStatus(resp.StatusCode)

	switch result {
	case FetchResultNotModified:
		// 304: コンテンツ未変更 - next_fetch_atのみ更新
		f.logger.Info("お題ソースは未変更です（304）",
			slog.String("source_id", source.ID),
			slog.String("source_url", source.URL),
			slog.Int("http_status", resp.StatusCode),
			slog.Float64("duration_ms", float64(duration.Milliseconds())),
		)
		f.recordSuccess(source.ID)
		ApplySuccess(source, f.fetchInterval)
		return f.promptRepo.UpdateSourceState(ctx, source)

	case FetchResultStop:
		// 404/410/401/403: フェッチ停止
		reason := fmt.Sprintf("HTTPステータス %d によりフェッチを停止しました", resp.StatusCode)
		f.logger.Warn("お題ソースのフェッチを停止します",
			slog.String("source_id", source.ID),
			slog.String("source_url", source.URL),
			slog.Int("http_status", resp.StatusCode),
			slog.String("reason", reason),
		)
		f.recordFailure(source.ID, fmt.Sprintf("http_%d", resp.StatusCode))
		ApplyStopSource(source, reason)
		return f.promptRepo.UpdateSourceState(ctx, source)

	case FetchResultBackoff:
		// 429/5xx: バックオフ
		reason := fmt.Sprintf("HTTPステータス %d によりバックオフを適用しました", resp.StatusCode)
		f.logger.Warn("お題ソースのフェッチにバックオフを適用します",
			slog.String("source_id", source.ID),
			slog.String("source_url", source.URL),
			slog.Int("http_status", resp.StatusCode),
			slog.Int("consecutive_errors", source.ConsecutiveErrors+1),
		)
		f.recordFailure(source.ID, fmt.Sprintf("http_%d", resp.StatusCode))
		ApplyBackoff(source, reason)
		return f.promptRepo.UpdateSourceState(ctx, source)

	case FetchResultOK:
		// 200: 正常フェッチ - 以下で処理を続行
	default:
		// その他のステータスコード
		f.logger.Warn("予期しないHTTPステータスコード",
			slog.String("source_id", source.ID),
			slog.Int("http_status", resp.StatusCode),
		)
		f.recordFailure(source.ID, fmt.Sprintf("http_%d", resp.StatusCode))
		ApplyBackoff(source, fmt.Sprintf("予期しないHTTPステータス: %d", resp.StatusCode))
		return f.promptRepo.UpdateSourceState(ctx, source)
	}

	// レスポンスボディを読み込み（最大サイズ制限付き）
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		f.logger.Error("レスポンスボディの読み取りに失敗しました",
			slog.String("source_id", source.ID),
			slog.String("error", err.Error()),
		)
		f.recordFailure(source.ID, "read_error")
		ApplyBackoff(source, fmt.Sprintf("レスポンス読み取り失敗: %s", err.Error()))
		return f.promptRepo.UpdateSourceState(ctx, source)
	}

	// ETag/Last-Modifiedを保存
	if etag := resp.Header.Get("ETag"); etag != "" {
		source.ETag = etag
	}
	if lastMod := resp.Header.Get("Last-Modified"); lastMod != "" {
		source.LastModified = lastMod
	}

	// ソース種別に応じてパース
	prompts, err := parser.Parse(body)
	if err != nil {
		f.logger.Error("お題ソースのパースに失敗しました",
			slog.String("source_id", source.ID),
			slog.String("source_url", source.URL),
			slog.String("kind", source.Kind),
			slog.String("error", err.Error()),
		)
		if f.collector != nil {
			f.collector.RecordParseFailure(source.ID)
		}
		ApplyParseFailure(source, err.Error())
		f.updateState(ctx, source)
		return nil // パース失敗はフェッチエラーとしない（カウントして継続）
	}

	// お題テキストをサニタイズして暦日ごとにUPSERT
	upserted := 0
	for _, p := range prompts {
		p.Text = f.sanitizer.SanitizeText(p.Text)
		p.PremiumText = f.sanitizer.SanitizeText(p.PremiumText)
		if p.Text == "" {
			continue
		}
		p.Source = source.Kind

		if err := f.promptRepo.Upsert(ctx, p); err != nil {
			f.logger.Error("お題のUPSERTに失敗しました",
				slog.String("source_id", source.ID),
				slog.String("prompt_date", p.Date),
				slog.String("error", err.Error()),
			)
			continue
		}
		upserted++
	}
	if f.collector != nil {
		f.collector.RecordPromptsUpserted(upserted)
	}

	f.recordSuccess(source.ID)
	ApplySuccess(source, f.fetchInterval)

	// ソース状態を更新
	if updateErr := f.promptRepo.UpdateSourceState(ctx, source); updateErr != nil {
		f.logger.Error("お題ソース状態の更新に失敗しました",
			slog.String("source_id", source.ID),
			slog.String("error", updateErr.Error()),
		)
		return updateErr
	}

	f.logger.Info("お題ソースのフェッチが完了しました",
		slog.String("source_id", source.ID),
		slog.String("source_url", source.URL),
		slog.Int("http_status", resp.StatusCode),
		slog.Int("prompts_upserted", upserted),
		slog.Int("prompts_total", len(prompts)),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// updateState はソース状態を更新し、失敗はログのみ残す。
func (f *Fetcher) updateState(ctx context.Context, source *model.PromptSourceState) {
	if err := f.promptRepo.UpdateSourceState(ctx, source); err != nil {
		f.logger.Error("お題ソース状態の更新に失敗しました",
			slog.String("source_id", source.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (f *Fetcher) recordSuccess(sourceID string) {
	if f.collector != nil {
		f.collector.RecordFetchSuccess(sourceID)
	}
}

func (f *Fetcher) recordFailure(sourceID, reason string) {
	if f.collector != nil {
		f.collector.RecordFetchFailure(sourceID, reason)
	}
}
