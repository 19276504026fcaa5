// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ミドルウェア、サービス層、ワーカーから利用する。
type MetricsCollector interface {
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
	RecordLogAppend(recipes int)
	RecordLogAppendFailure()
	RecordLogDecode(records int)
	RecordLogDecodeFailure()
	RecordStepsRendered(variant string, count int)
	RecordImageImport(success bool)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpStatus     *prometheus.CounterVec
	requestLatency prometheus.Histogram
	logAppended    prometheus.Counter
	logAppendFail  prometheus.Counter
	logDecoded     prometheus.Counter
	logDecodeFail  prometheus.Counter
	stepsRendered  *prometheus.CounterVec
	imageImports   *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recipebook_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "recipebook_request_latency_seconds",
			Help:    "HTTPリクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		logAppended: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recipebook_recipe_log_appended_total",
			Help: "レシピログに追記されたレシピの合計数",
		}),
		logAppendFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recipebook_recipe_log_append_fail_total",
			Help: "レシピログ追記失敗の合計数",
		}),
		logDecoded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recipebook_recipe_log_decoded_total",
			Help: "レシピログから復元されたレコードの合計数",
		}),
		logDecodeFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recipebook_recipe_log_decode_fail_total",
			Help: "レシピログ解析失敗の合計数",
		}),
		stepsRendered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recipebook_steps_rendered_total",
			Help: "表示形式別の描画済み手順数",
		}, []string{"variant"}),
		imageImports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recipebook_image_imports_total",
			Help: "結果別の画像取り込み数",
		}, []string{"result"}),
	}

	reg.MustRegister(
		c.httpStatus,
		c.requestLatency,
		c.logAppended,
		c.logAppendFail,
		c.logDecoded,
		c.logDecodeFail,
		c.stepsRendered,
		c.imageImports,
	)

	return c
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエスト処理時間を記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// RecordLogAppend はレシピログに追記したレシピ数を記録する。
func (c *Collector) RecordLogAppend(recipes int) {
	c.logAppended.Add(float64(recipes))
}

// RecordLogAppendFailure はレシピログ追記失敗を記録する。
func (c *Collector) RecordLogAppendFailure() {
	c.logAppendFail.Inc()
}

// RecordLogDecode はレシピログから復元したレコード数を記録する。
func (c *Collector) RecordLogDecode(records int) {
	c.logDecoded.Add(float64(records))
}

// RecordLogDecodeFailure はレシピログ解析失敗を記録する。
func (c *Collector) RecordLogDecodeFailure() {
	c.logDecodeFail.Inc()
}

// RecordStepsRendered は表示形式ごとの描画手順数を記録する。
func (c *Collector) RecordStepsRendered(variant string, count int) {
	c.stepsRendered.WithLabelValues(variant).Add(float64(count))
}

// RecordImageImport は画像取り込みの結果を記録する。
func (c *Collector) RecordImageImport(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	c.imageImports.WithLabelValues(result).Inc()
}

// Handler はスクレイプ用のハンドラーを返す。
// Acceptヘッダーで要求された場合はOpenMetrics形式で応答する。
// 一部のコレクターの収集に失敗しても残りのメトリクスは返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
		ErrorLog:          slog.NewLogLogger(slog.Default().Handler(), slog.LevelError),
	})
}

// Nop は何も記録しないMetricsCollector。メトリクスを使わない構成やテストで使用する。
type Nop struct{}

func (Nop) RecordHTTPStatus(int)               {}
func (Nop) RecordRequestLatency(time.Duration) {}
func (Nop) RecordLogAppend(int)                {}
func (Nop) RecordLogAppendFailure()            {}
func (Nop) RecordLogDecode(int)                {}
func (Nop) RecordLogDecodeFailure()            {}
func (Nop) RecordStepsRendered(string, int)    {}
func (Nop) RecordImageImport(bool)             {}

// compile-time interface checks
var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)
