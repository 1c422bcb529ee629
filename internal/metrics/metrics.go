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
// バックエンドクライアント、ログイン状態、HTTPミドルウェアから利用する。
type MetricsCollector interface {
	ObserveBackendRequest(method string, statusCode int, duration time.Duration)
	ObserveAuthProbe(authenticated bool)
	ObserveForcedLogout()
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	backendRequests *prometheus.CounterVec
	backendLatency  *prometheus.HistogramVec
	authProbes      *prometheus.CounterVec
	forcedLogouts   prometheus.Counter
	httpStatus      *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		backendRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "knowledgeout_backend_requests_total",
			Help: "バックエンドAPI呼び出しの合計数（メソッド・ステータス分類別）",
		}, []string{"method", "status_class"}),
		backendLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "knowledgeout_backend_latency_seconds",
			Help:    "バックエンドAPI呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		authProbes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "knowledgeout_auth_probes_total",
			Help: "ログイン状態の問い合わせ結果の合計数",
		}, []string{"result"}),
		forcedLogouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "knowledgeout_forced_logouts_total",
			Help: "セッション切れによるローカルログアウトの合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "knowledgeout_http_status_total",
			Help: "ブラウザへのHTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.backendRequests,
		c.backendLatency,
		c.authProbes,
		c.forcedLogouts,
		c.httpStatus,
	)

	return c
}

// ObserveBackendRequest はバックエンドAPI呼び出しを記録する。
// statusCodeが0の場合は通信エラーとして"error"に分類する。
func (c *Collector) ObserveBackendRequest(method string, statusCode int, duration time.Duration) {
	c.backendRequests.WithLabelValues(method, statusClass(statusCode)).Inc()
	c.backendLatency.WithLabelValues(method).Observe(duration.Seconds())
}

// ObserveAuthProbe はログイン状態の問い合わせ結果を記録する。
func (c *Collector) ObserveAuthProbe(authenticated bool) {
	result := "anonymous"
	if authenticated {
		result = "authenticated"
	}
	c.authProbes.WithLabelValues(result).Inc()
}

// ObserveForcedLogout はローカルログアウトを記録する。
func (c *Collector) ObserveForcedLogout() {
	c.forcedLogouts.Inc()
}

// RecordHTTPStatus はブラウザへのHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

func statusClass(statusCode int) string {
	if statusCode <= 0 {
		return "error"
	}
	return strconv.Itoa(statusCode/100) + "xx"
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
