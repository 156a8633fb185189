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
// 取得元クライアントやサービス層から利用する。
type MetricsCollector interface {
	// RecordUpstreamResponse は取得元からHTTPレスポンスを受信したことを記録する。
	RecordUpstreamResponse(source string, statusCode int, latency time.Duration)
	// RecordUpstreamFailure は取得元との通信またはパースに失敗したことを記録する。
	RecordUpstreamFailure(source string, reason string)
	// RecordFallback はサンプルデータで代替したことを記録する。
	RecordFallback(source string, kind string)
	// RecordLogin はログイン試行の結果（success, rejected, error）を記録する。
	RecordLogin(result string)
	// RecordMutation はコンテンツ変更操作の結果を記録する。
	RecordMutation(operation string, outcome string)
	// RecordOrderCreated は模擬注文の作成を記録する。
	RecordOrderCreated(lineCount int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	upstreamStatus  *prometheus.CounterVec
	upstreamFail    *prometheus.CounterVec
	upstreamLatency *prometheus.HistogramVec
	fallbacks       *prometheus.CounterVec
	logins          *prometheus.CounterVec
	mutations       *prometheus.CounterVec
	orders          prometheus.Counter
	orderLines      prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		upstreamStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cmsshowcase_upstream_responses_total",
			Help: "取得元別・HTTPステータスコード別のレスポンス数",
		}, []string{"source", "status_code"}),
		upstreamFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cmsshowcase_upstream_failures_total",
			Help: "取得元との通信・パース失敗の合計数",
		}, []string{"source", "reason"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cmsshowcase_upstream_latency_seconds",
			Help:    "取得元リクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"source"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cmsshowcase_sample_fallbacks_total",
			Help: "サンプルデータで代替した回数",
		}, []string{"source", "kind"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cmsshowcase_logins_total",
			Help: "ログイン試行の結果別の合計数",
		}, []string{"result"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cmsshowcase_mutations_total",
			Help: "コンテンツ作成・更新の結果別の合計数",
		}, []string{"operation", "outcome"}),
		orders: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cmsshowcase_orders_created_total",
			Help: "作成された模擬注文の合計数",
		}),
		orderLines: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cmsshowcase_order_lines_total",
			Help: "模擬注文に含まれた明細行の合計数",
		}),
	}

	reg.MustRegister(
		c.upstreamStatus,
		c.upstreamFail,
		c.upstreamLatency,
		c.fallbacks,
		c.logins,
		c.mutations,
		c.orders,
		c.orderLines,
	)

	return c
}

// RecordUpstreamResponse は取得元のHTTPステータスとレイテンシを記録する。
func (c *Collector) RecordUpstreamResponse(source string, statusCode int, latency time.Duration) {
	c.upstreamStatus.WithLabelValues(source, strconv.Itoa(statusCode)).Inc()
	c.upstreamLatency.WithLabelValues(source).Observe(latency.Seconds())
}

// RecordUpstreamFailure は取得元との通信失敗を記録する。
func (c *Collector) RecordUpstreamFailure(source string, reason string) {
	c.upstreamFail.WithLabelValues(source, reason).Inc()
}

// RecordFallback はサンプルデータでの代替を記録する。
func (c *Collector) RecordFallback(source string, kind string) {
	c.fallbacks.WithLabelValues(source, kind).Inc()
}

// RecordLogin はログイン試行の結果を記録する。
func (c *Collector) RecordLogin(result string) {
	c.logins.WithLabelValues(result).Inc()
}

// RecordMutation はコンテンツ変更操作の結果を記録する。
func (c *Collector) RecordMutation(operation string, outcome string) {
	c.mutations.WithLabelValues(operation, outcome).Inc()
}

// RecordOrderCreated は模擬注文の作成を記録する。
func (c *Collector) RecordOrderCreated(lineCount int) {
	c.orders.Inc()
	c.orderLines.Add(float64(lineCount))
}

// Nop は何も記録しないMetricsCollector。テストやメトリクス無効時に使う。
type Nop struct{}

func (Nop) RecordUpstreamResponse(string, int, time.Duration) {}
func (Nop) RecordUpstreamFailure(string, string)              {}
func (Nop) RecordFallback(string, string)                     {}
func (Nop) RecordLogin(string)                                {}
func (Nop) RecordMutation(string, string)                     {}
func (Nop) RecordOrderCreated(int)                            {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)
