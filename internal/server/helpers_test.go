package server

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

const (
	testKey     = "s3cr3t-Key"
	testSiteURL = "http://files.test"
)

// newTestServer builds a Server over a fresh data directory holding testKey.
func newTestServer(t *testing.T, mutate ...func(*Config)) *Server {
	t.Helper()

	dataDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dataDir, APIKeyFile), []byte(testKey+"\n"), 0o600); err != nil {
		t.Fatalf("write api key: %v", err)
	}

	t.Setenv("SD_URL", testSiteURL+"/")
	t.Setenv("SD_MAX_UPLOAD_BYTES", "")
	t.Setenv("SD_UPLOAD_REQUIRE_KEY", "")
	t.Setenv("SD_MTIME_FALLBACK", "")
	t.Setenv("SD_METRICS_PUBLIC", "")

	cfg, err := LoadConfig(dataDir)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	cfg.Logger = NewLogger(io.Discard, LogLevelDebug, false)
	// Listings must not depend on whether the test filesystem keeps birth times.
	cfg.ModTimeFallback = true
	for _, m := range mutate {
		m(&cfg)
	}

	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func strPtr(s string) *string { return &s }

// uploadRequest builds POST /upload. A nil data omits the file field and a
// nil filename omits the filename field.
func uploadRequest(t *testing.T, data []byte, filename *string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if data != nil {
		fw, err := mw.CreateFormFile("file", "blob")
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		if _, err := fw.Write(data); err != nil {
			t.Fatalf("write file part: %v", err)
		}
	}
	if filename != nil {
		if err := mw.WriteField("filename", *filename); err != nil {
			t.Fatalf("WriteField: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// plainUploadRequest sends "file" as an ordinary form field rather than a
// file part.
func plainUploadRequest(t *testing.T, data, filename string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("file", data); err != nil {
		t.Fatalf("WriteField file: %v", err)
	}
	if err := mw.WriteField("filename", filename); err != nil {
		t.Fatalf("WriteField filename: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func writeStored(t *testing.T, s *Server, name string, size int) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(s.cfg.UploadDir, name), bytes.Repeat([]byte("z"), size), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}
