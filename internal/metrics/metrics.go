// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ワーカーやサービス層から利用する。
type MetricsCollector interface {
	RecordFetchSuccess(sourceID string)
	RecordFetchFailure(sourceID string, reason string)
	RecordParseFailure(sourceID string)
	RecordHTTPStatus(statusCode int)
	RecordFetchLatency(duration time.Duration)
	RecordPromptsUpserted(count int)
	RecordWebhookEvent(eventType string, outcome string)
	RecordDoodleCreated()
	RecordEmailSent(success bool)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	fetchSuccess    prometheus.Counter
	fetchFail       prometheus.Counter
	parseFail       prometheus.Counter
	httpStatus      *prometheus.CounterVec
	fetchLatency    prometheus.Histogram
	promptsUpserted prometheus.Counter
	webhookEvents   *prometheus.CounterVec
	doodlesCreated  prometheus.Counter
	emailsSent      *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		fetchSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "doodleprompt_fetch_success_total",
			Help: "お題ソースフェッチ成功の合計数",
		}),
		fetchFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "doodleprompt_fetch_fail_total",
			Help: "お題ソースフェッチ失敗の合計数",
		}),
		parseFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "doodleprompt_parse_fail_total",
			Help: "お題ソースパース失敗の合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "doodleprompt_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		fetchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "doodleprompt_fetch_latency_seconds",
			Help:    "お題ソースフェッチのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		promptsUpserted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "doodleprompt_prompts_upserted_total",
			Help: "アップサートされたお題の合計数",
		}),
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "doodleprompt_webhook_events_total",
			Help: "決済Webhookイベントの種別・結果別の合計数",
		}, []string{"event_type", "outcome"}),
		doodlesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "doodleprompt_doodles_created_total",
			Help: "投稿された作品の合計数",
		}),
		emailsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "doodleprompt_emails_sent_total",
			Help: "送信メールの結果別の合計数",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		c.fetchSuccess,
		c.fetchFail,
		c.parseFail,
		c.httpStatus,
		c.fetchLatency,
		c.promptsUpserted,
		c.webhookEvents,
		c.doodlesCreated,
		c.emailsSent,
	)

	return c
}

// RecordFetchSuccess はお題ソースフェッチ成功を記録する。
func (c *Collector) RecordFetchSuccess(sourceID string) {
	c.fetchSuccess.Inc()
}

// RecordFetchFailure はお題ソースフェッチ失敗を記録する。
func (c *Collector) RecordFetchFailure(sourceID string, reason string) {
	c.fetchFail.Inc()
}

// RecordParseFailure はパース失敗を記録する。
func (c *Collector) RecordParseFailure(sourceID string) {
	c.parseFail.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordFetchLatency はフェッチのレイテンシを記録する。
func (c *Collector) RecordFetchLatency(duration time.Duration) {
	c.fetchLatency.Observe(duration.Seconds())
}

// RecordPromptsUpserted はアップサートされたお題数を記録する。
func (c *Collector) RecordPromptsUpserted(count int) {
	c.promptsUpserted.Add(float64(count))
}

// RecordWebhookEvent は決済Webhookイベントの処理結果を記録する。
// outcome: "persisted", "duplicate", "ignored", "rejected", "error"
func (c *Collector) RecordWebhookEvent(eventType string, outcome string) {
	c.webhookEvents.WithLabelValues(eventType, outcome).Inc()
}

// RecordDoodleCreated は作品投稿を記録する。
func (c *Collector) RecordDoodleCreated() {
	c.doodlesCreated.Inc()
}

// RecordEmailSent はメール送信の結果を記録する。
func (c *Collector) RecordEmailSent(success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	c.emailsSent.WithLabelValues(outcome).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
