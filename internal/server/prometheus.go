// prometheus.go - Prometheus text exporter for the in-process counters
package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

func writeMetric(b *strings.Builder, name, kind, help string, value any) {
	fmt.Fprintf(b, "# HELP %s %s\n", name, help)
	fmt.Fprintf(b, "# TYPE %s %s\n", name, kind)
	fmt.Fprintf(b, "%s %v\n\n", name, value)
}

// prometheusLabel escapes quotes and backslashes in a label value.
func prometheusLabel(value string) string {
	value = strings.ReplaceAll(value, "\\", "\\\\")
	value = strings.ReplaceAll(value, "\"", "\\\"")
	return value
}

// metricsHandler serves GET /metrics. Storage gauges are computed from a
// fresh directory listing on each scrape.
func (s *Server) metricsHandler(w http.ResponseWriter, r *http.Request) {
	snap := s.metrics.Snapshot()

	var out strings.Builder

	out.WriteString("# HELP sd_info Application version info\n")
	out.WriteString("# TYPE sd_info gauge\n")
	fmt.Fprintf(&out, "sd_info{version=\"%s\",commit=\"%s\"} 1\n\n",
		prometheusLabel(s.cfg.Build.Version), prometheusLabel(s.cfg.Build.Commit))

	writeMetric(&out, "sd_requests_total", "counter", "Total number of HTTP requests", snap.RequestsTotal)
	out.WriteString("# HELP sd_request_errors_total HTTP requests answered with an error status\n")
	out.WriteString("# TYPE sd_request_errors_total counter\n")
	fmt.Fprintf(&out, "sd_request_errors_total{class=\"4xx\"} %d\n", snap.RequestErrors4xx)
	fmt.Fprintf(&out, "sd_request_errors_total{class=\"5xx\"} %d\n\n", snap.RequestErrors5xx)

	writeMetric(&out, "sd_uploads_total", "counter", "Total number of stored uploads", snap.UploadsTotal)
	writeMetric(&out, "sd_upload_bytes_total", "counter", "Total bytes written by uploads", snap.UploadBytesTotal)
	writeMetric(&out, "sd_upload_errors_total", "counter", "Uploads rejected or failed", snap.UploadErrorsTotal)
	writeMetric(&out, "sd_upload_avg_duration_ms", "gauge", "Mean duration of successful uploads", snap.UploadAvgDurationMs)
	writeMetric(&out, "sd_downloads_total", "counter", "Total number of files served", snap.DownloadsTotal)
	writeMetric(&out, "sd_download_bytes_total", "counter", "Size of files served", snap.DownloadBytesTotal)
	writeMetric(&out, "sd_deletes_total", "counter", "Delete requests accepted", snap.DeletesTotal)
	writeMetric(&out, "sd_delete_misses_total", "counter", "Delete requests that removed nothing", snap.DeleteMissesTotal)
	writeMetric(&out, "sd_listings_total", "counter", "Management views rendered", snap.ListingsTotal)
	writeMetric(&out, "sd_auth_failures_total", "counter", "Requests rejected for an invalid api key", snap.AuthFailuresTotal)

	if entries, err := s.store.List(); err == nil {
		var total int64
		for _, e := range entries {
			total += e.Size
		}
		writeMetric(&out, "sd_storage_files", "gauge", "Number of stored files", len(entries))
		writeMetric(&out, "sd_storage_bytes", "gauge", "Total size of stored files", total)
	}

	writeMetric(&out, "sd_uptime_seconds", "counter", "Application uptime in seconds",
		fmt.Sprintf("%.0f", time.Since(s.started).Seconds()))

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(out.String()))
}
