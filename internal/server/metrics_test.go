package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()

	m.RecordUpload(100, 20*time.Millisecond)
	m.RecordUpload(50, 40*time.Millisecond)
	m.RecordUploadError()
	m.RecordDownload(7)
	m.RecordDelete(true)
	m.RecordDelete(false)
	m.RecordListing()
	m.RecordAuthFailure()
	m.RecordRequest(200)
	m.RecordRequest(404)
	m.RecordRequest(403)
	m.RecordRequest(500)

	snap := m.Snapshot()
	want := MetricsSnapshot{
		UploadsTotal:        2,
		UploadBytesTotal:    150,
		UploadErrorsTotal:   1,
		UploadAvgDurationMs: 30,
		DownloadsTotal:      1,
		DownloadBytesTotal:  7,
		DeletesTotal:        2,
		DeleteMissesTotal:   1,
		ListingsTotal:       1,
		AuthFailuresTotal:   1,
		RequestsTotal:       4,
		RequestErrors5xx:    1,
		RequestErrors4xx:    2,
	}
	if snap != want {
		t.Fatalf("Snapshot() = %+v\nwant %+v", snap, want)
	}
}

func TestMetrics_AvgDurationEmpty(t *testing.T) {
	if got := NewMetrics().Snapshot().UploadAvgDurationMs; got != 0 {
		t.Fatalf("UploadAvgDurationMs = %v, want 0", got)
	}
}

func TestMetricsHandler(t *testing.T) {
	s := newTestServer(t, func(c *Config) { c.Build = BuildInfo{Version: `v"1`, Commit: "abc"} })

	if rec := serve(s, uploadRequest(t, []byte("hello"), strPtr("a.txt"))); rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d", rec.Code)
	}
	serve(s, httptest.NewRequest(http.MethodGet, "/missing", nil))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("x-api-key", testKey)
	rec := serve(s, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("Content-Type = %q", ct)
	}

	body := rec.Body.String()
	for _, want := range []string{
		`sd_info{version="v\"1",commit="abc"} 1`,
		"sd_uploads_total 1\n",
		"sd_upload_bytes_total 5\n",
		"sd_storage_files 1\n",
		"sd_storage_bytes 5\n",
		`sd_request_errors_total{class="4xx"} 1`,
		"# TYPE sd_uptime_seconds counter",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestPrometheusLabel(t *testing.T) {
	cases := map[string]string{
		"plain":     "plain",
		`a"b`:       `a\"b`,
		`back\hash`: `back\\hash`,
	}
	for in, want := range cases {
		if got := prometheusLabel(in); got != want {
			t.Errorf("prometheusLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMetricsHandler_Access(t *testing.T) {
	guarded := newTestServer(t)
	rec := serve(guarded, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusForbidden || rec.Body.String() != msgInvalidAPIKey {
		t.Fatalf("anonymous /metrics = %d %q, want 403", rec.Code, rec.Body.String())
	}

	public := newTestServer(t, func(c *Config) { c.MetricsPublic = true })
	rec = serve(public, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("public /metrics = %d, want 200", rec.Code)
	}
}
