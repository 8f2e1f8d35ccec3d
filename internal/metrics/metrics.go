// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// 会話処理や支払い処理のサービス層から利用する。
type MetricsCollector interface {
	RecordMessageAdmitted()
	RecordMessageDenied()
	RecordCrisisOverride()
	RecordProviderError(temporary bool)
	RecordProviderLatency(duration time.Duration)
	RecordSummaryRefreshed()
	RecordPayment()
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	messagesAdmitted   prometheus.Counter
	messagesDenied     prometheus.Counter
	crisisOverrides    prometheus.Counter
	providerErrors     *prometheus.CounterVec
	providerLatency    prometheus.Histogram
	summariesRefreshed prometheus.Counter
	payments           prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		messagesAdmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kokoro_messages_admitted_total",
			Help: "受理されたユーザーメッセージの合計数",
		}),
		messagesDenied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kokoro_messages_denied_total",
			Help: "無料枠超過で拒否されたメッセージの合計数",
		}),
		crisisOverrides: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kokoro_crisis_override_total",
			Help: "危機キーワードにより上限を越えて受理されたメッセージの合計数",
		}),
		providerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kokoro_provider_errors_total",
			Help: "補完API呼び出し失敗の種別ごとの合計数",
		}, []string{"kind"}),
		providerLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "kokoro_provider_latency_seconds",
			Help:    "補完API呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		summariesRefreshed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kokoro_summaries_refreshed_total",
			Help: "生成・更新された要約の合計数",
		}),
		payments: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kokoro_payments_total",
			Help: "購読へ反映された支払いの合計数",
		}),
	}

	reg.MustRegister(
		c.messagesAdmitted,
		c.messagesDenied,
		c.crisisOverrides,
		c.providerErrors,
		c.providerLatency,
		c.summariesRefreshed,
		c.payments,
	)

	return c
}

// RecordMessageAdmitted は受理されたユーザーメッセージを記録する。
func (c *Collector) RecordMessageAdmitted() {
	c.messagesAdmitted.Inc()
}

// RecordMessageDenied は無料枠超過による拒否を記録する。
func (c *Collector) RecordMessageDenied() {
	c.messagesDenied.Inc()
}

// RecordCrisisOverride は危機キーワードによる上限回避を記録する。
func (c *Collector) RecordCrisisOverride() {
	c.crisisOverrides.Inc()
}

// RecordProviderError は補完API呼び出しの失敗を種別付きで記録する。
func (c *Collector) RecordProviderError(temporary bool) {
	kind := "permanent"
	if temporary {
		kind = "temporary"
	}
	c.providerErrors.WithLabelValues(kind).Inc()
}

// RecordProviderLatency は補完API呼び出しのレイテンシを記録する。
func (c *Collector) RecordProviderLatency(duration time.Duration) {
	c.providerLatency.Observe(duration.Seconds())
}

// RecordSummaryRefreshed は要約の生成・更新を記録する。
func (c *Collector) RecordSummaryRefreshed() {
	c.summariesRefreshed.Inc()
}

// RecordPayment は購読へ反映された支払いを記録する。
func (c *Collector) RecordPayment() {
	c.payments.Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
