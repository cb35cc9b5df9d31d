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
// ハンドラー層から利用する。
type MetricsCollector interface {
	RecordLoginSuccess()
	RecordLoginFailure()
	RecordUploadSuccess(fileCount int)
	RecordUploadFailure()
	RecordUploadBytes(n int64)
	RecordUploadLatency(duration time.Duration)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	loginSuccess  prometheus.Counter
	loginFail     prometheus.Counter
	uploadSuccess prometheus.Counter
	uploadFail    prometheus.Counter
	uploadedFiles prometheus.Counter
	uploadedBytes prometheus.Counter
	uploadLatency prometheus.Histogram
	httpStatus    *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		loginSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fileshare_login_success_total",
			Help: "ログイン成功の合計数",
		}),
		loginFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fileshare_login_fail_total",
			Help: "ログイン失敗の合計数",
		}),
		uploadSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fileshare_upload_success_total",
			Help: "アップロードリクエスト成功の合計数",
		}),
		uploadFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fileshare_upload_fail_total",
			Help: "アップロードリクエスト失敗の合計数",
		}),
		uploadedFiles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fileshare_uploaded_files_total",
			Help: "保存されたファイルの合計数",
		}),
		uploadedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fileshare_uploaded_bytes_total",
			Help: "保存されたバイト数の合計",
		}),
		uploadLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fileshare_upload_latency_seconds",
			Help:    "アップロード処理のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fileshare_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.loginSuccess,
		c.loginFail,
		c.uploadSuccess,
		c.uploadFail,
		c.uploadedFiles,
		c.uploadedBytes,
		c.uploadLatency,
		c.httpStatus,
	)

	return c
}

// RecordLoginSuccess はログイン成功を記録する。
func (c *Collector) RecordLoginSuccess() {
	c.loginSuccess.Inc()
}

// RecordLoginFailure はログイン失敗を記録する。
func (c *Collector) RecordLoginFailure() {
	c.loginFail.Inc()
}

// RecordUploadSuccess はアップロード成功と保存ファイル数を記録する。
func (c *Collector) RecordUploadSuccess(fileCount int) {
	c.uploadSuccess.Inc()
	c.uploadedFiles.Add(float64(fileCount))
}

// RecordUploadFailure はアップロード失敗を記録する。
func (c *Collector) RecordUploadFailure() {
	c.uploadFail.Inc()
}

// RecordUploadBytes は保存されたバイト数を記録する。
func (c *Collector) RecordUploadBytes(n int64) {
	c.uploadedBytes.Add(float64(n))
}

// RecordUploadLatency はアップロード処理のレイテンシを記録する。
func (c *Collector) RecordUploadLatency(duration time.Duration) {
	c.uploadLatency.Observe(duration.Seconds())
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
