package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollector_RecordLogin(t *testing.T) {
	registry := prometheus.NewRegistry()
	c := NewCollector(registry)

	c.RecordLoginSuccess()
	c.RecordLoginSuccess()
	c.RecordLoginFailure()

	if got := testutil.ToFloat64(c.loginSuccess); got != 2 {
		t.Errorf("login success = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.loginFail); got != 1 {
		t.Errorf("login fail = %v, want 1", got)
	}
}

func TestCollector_RecordUpload(t *testing.T) {
	registry := prometheus.NewRegistry()
	c := NewCollector(registry)

	c.RecordUploadSuccess(3)
	c.RecordUploadFailure()
	c.RecordUploadBytes(1024)
	c.RecordUploadLatency(150 * time.Millisecond)

	if got := testutil.ToFloat64(c.uploadSuccess); got != 1 {
		t.Errorf("upload success = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.uploadedFiles); got != 3 {
		t.Errorf("uploaded files = %v, want 3", got)
	}
	if got := testutil.ToFloat64(c.uploadFail); got != 1 {
		t.Errorf("upload fail = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.uploadedBytes); got != 1024 {
		t.Errorf("uploaded bytes = %v, want 1024", got)
	}
}

func TestCollector_RecordHTTPStatus(t *testing.T) {
	registry := prometheus.NewRegistry()
	c := NewCollector(registry)

	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(500)

	if got := testutil.ToFloat64(c.httpStatus.WithLabelValues("200")); got != 2 {
		t.Errorf("status 200 = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.httpStatus.WithLabelValues("500")); got != 1 {
		t.Errorf("status 500 = %v, want 1", got)
	}
}

func TestHandler_ExposesRegisteredMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	c := NewCollector(registry)
	c.RecordLoginSuccess()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	Handler(registry).ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	body := w.Body.String()
	if !strings.Contains(body, "fileshare_login_success_total 1") {
		t.Errorf("scrape output should contain fileshare_login_success_total 1, got:\n%s", body)
	}
}
