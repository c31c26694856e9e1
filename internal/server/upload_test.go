package server

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestExtensionOf(t *testing.T) {
	cases := []struct{ in, out string }{
		{"photo.JPG", "JPG"},
		{"archive.tar.gz", "gz"},
		{"README", ""},
		{"trailing.", ""},
		{".hidden", "hidden"},
		{"", ""},
	}
	for _, c := range cases {
		if got := extensionOf(c.in); got != c.out {
			t.Fatalf("extensionOf(%q) = %q, want %q", c.in, got, c.out)
		}
	}
}

func TestUpload_PhotoRoundTrip(t *testing.T) {
	s := newTestServer(t)

	req := uploadRequest(t, []byte("abc"), strPtr("photo.JPG"))
	req.Header.Set("x-api-key", testKey)
	rec := serve(s, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d, body %q", rec.Code, rec.Body.String())
	}
	link := rec.Body.String()
	if !strings.HasPrefix(link, testSiteURL+"/") || !strings.HasSuffix(link, ".JPG") {
		t.Fatalf("unexpected link %q", link)
	}

	path := strings.TrimPrefix(link, testSiteURL)
	get := serve(s, httptest.NewRequest(http.MethodGet, path, nil))
	if get.Code != http.StatusOK {
		t.Fatalf("GET %s status = %d", path, get.Code)
	}
	if get.Body.String() != "abc" {
		t.Fatalf("GET %s body = %q, want %q", path, get.Body.String(), "abc")
	}
}

func TestUpload_StoredNames(t *testing.T) {
	tests := []struct {
		filename string
		suffix   string
	}{
		{"archive.tar.gz", ".gz"},
		{"README", "."},
		{"trailing.", "."},
		{".hidden", ".hidden"},
		{"", "."},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			s := newTestServer(t)
			payload := []byte("payload for " + tt.filename)

			rec := serve(s, uploadRequest(t, payload, strPtr(tt.filename)))
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, body %q", rec.Code, rec.Body.String())
			}

			name := strings.TrimPrefix(rec.Body.String(), testSiteURL+"/")
			if !strings.HasSuffix(name, tt.suffix) || len(name) != 6+len(tt.suffix) {
				t.Fatalf("stored name %q, want six characters + %q", name, tt.suffix)
			}

			got, err := os.ReadFile(filepath.Join(s.cfg.UploadDir, name))
			if err != nil {
				t.Fatalf("stored file missing: %v", err)
			}
			if string(got) != string(payload) {
				t.Fatalf("stored content = %q, want %q", got, payload)
			}
		})
	}
}

func TestUpload_MissingFields(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		filename *string
		want     string
	}{
		{"no filename", []byte("abc"), nil, "No filename field"},
		{"no file", nil, strPtr("a.txt"), "No file field!"},
		{"neither", nil, nil, "No file field!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)

			rec := serve(s, uploadRequest(t, tt.data, tt.filename))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if rec.Body.String() != tt.want {
				t.Fatalf("body = %q, want %q", rec.Body.String(), tt.want)
			}

			des, _ := os.ReadDir(s.cfg.UploadDir)
			if len(des) != 0 {
				t.Fatalf("rejected upload left %d files behind", len(des))
			}
		})
	}
}

func TestUpload_NotMultipart(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("abc"))
	req.Header.Set("Content-Type", "text/plain")
	rec := serve(s, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestUpload_TooLarge(t *testing.T) {
	s := newTestServer(t, func(c *Config) { c.MaxUploadBytes = 4 })

	rec := serve(s, uploadRequest(t, []byte("0123456789"), strPtr("big.bin")))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", rec.Code)
	}
	if rec.Body.String() != msgFileTooLarge {
		t.Fatalf("body = %q", rec.Body.String())
	}
	if snap := s.metrics.Snapshot(); snap.UploadErrorsTotal != 1 || snap.UploadsTotal != 0 {
		t.Fatalf("unexpected metrics %+v", snap)
	}
}

func TestUpload_ExtensionWithSeparator(t *testing.T) {
	s := newTestServer(t)

	rec := serve(s, uploadRequest(t, []byte("abc"), strPtr("evil.x/../../y")))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestUpload_PublicByDefault(t *testing.T) {
	s := newTestServer(t)

	rec := serve(s, uploadRequest(t, []byte("abc"), strPtr("a.txt")))
	if rec.Code != http.StatusOK {
		t.Fatalf("anonymous upload status = %d, want 200", rec.Code)
	}
}

func TestUpload_RequireKey(t *testing.T) {
	s := newTestServer(t, func(c *Config) { c.UploadRequiresKey = true })

	rec := serve(s, uploadRequest(t, []byte("abc"), strPtr("a.txt")))
	if rec.Code != http.StatusForbidden || rec.Body.String() != msgInvalidAPIKey {
		t.Fatalf("anonymous upload = %d %q, want 403 %q", rec.Code, rec.Body.String(), msgInvalidAPIKey)
	}

	req := uploadRequest(t, []byte("abc"), strPtr("a.txt"))
	req.Header.Set("x-api-key", testKey)
	if rec := serve(s, req); rec.Code != http.StatusOK {
		t.Fatalf("keyed upload status = %d, want 200", rec.Code)
	}
}

func TestUpload_RecordsMetrics(t *testing.T) {
	s := newTestServer(t)

	if rec := serve(s, uploadRequest(t, []byte("hello"), strPtr("a.txt"))); rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	snap := s.metrics.Snapshot()
	if snap.UploadsTotal != 1 || snap.UploadBytesTotal != 5 {
		t.Fatalf("unexpected metrics %+v", snap)
	}
}

func TestUpload_PlainFileField(t *testing.T) {
	s := newTestServer(t)

	rec := serve(s, plainUploadRequest(t, "abc", "photo.JPG"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %q", rec.Code, rec.Body.String())
	}
	link := rec.Body.String()
	if !strings.HasSuffix(link, ".JPG") {
		t.Fatalf("unexpected link %q", link)
	}

	get := serve(s, httptest.NewRequest(http.MethodGet, strings.TrimPrefix(link, testSiteURL), nil))
	if get.Code != http.StatusOK || get.Body.String() != "abc" {
		t.Fatalf("GET = %d %q, want 200 %q", get.Code, get.Body.String(), "abc")
	}
}

func TestUpload_PlainFileFieldTooLarge(t *testing.T) {
	s := newTestServer(t, func(c *Config) { c.MaxUploadBytes = 4 })

	rec := serve(s, plainUploadRequest(t, "0123456789", "big.txt"))
	if rec.Code != http.StatusRequestEntityTooLarge || rec.Body.String() != msgFileTooLarge {
		t.Fatalf("got %d %q, want 413 %q", rec.Code, rec.Body.String(), msgFileTooLarge)
	}
	des, _ := os.ReadDir(s.cfg.UploadDir)
	if len(des) != 0 {
		t.Fatalf("oversized upload left %d files behind", len(des))
	}
}

func TestUpload_LinkEscapesName(t *testing.T) {
	s := newTestServer(t)

	rec := serve(s, uploadRequest(t, []byte("hash"), strPtr("x.a#b")))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %q", rec.Code, rec.Body.String())
	}
	link := rec.Body.String()
	if !strings.HasSuffix(link, ".a%23b") || strings.Contains(link, "#") {
		t.Fatalf("link %q should carry the name path-escaped", link)
	}

	get := serve(s, httptest.NewRequest(http.MethodGet, strings.TrimPrefix(link, testSiteURL), nil))
	if get.Code != http.StatusOK || get.Body.String() != "hash" {
		t.Fatalf("GET %s = %d %q", link, get.Code, get.Body.String())
	}
}
