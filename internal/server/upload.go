package server

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"share-drop/internal/storage"
)

const (
	// Headroom for multipart boundaries and the filename field on top of
	// the file size limit.
	multipartEnvelope = 1 << 20
	// Parts beyond this are spooled to temporary files by mime/multipart.
	multipartMemory = 32 << 20

	msgNoFileField     = "No file field!"
	msgNoFilenameField = "No filename field"
	msgFileTooLarge    = "file too large"
)

// extensionOf returns everything after the last '.' in filename, or "" if
// it has none.
func extensionOf(filename string) string {
	i := strings.LastIndexByte(filename, '.')
	if i < 0 {
		return ""
	}
	return filename[i+1:]
}

// uploadHandler handles POST /upload. The multipart body carries the data in
// the "file" field and the original name in "filename"; only the extension
// of the latter is kept. On success the body is the public URL.
func (s *Server) uploadHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rid := RequestIDFromContext(r.Context())

	fail := func(status int, msg string, err error) {
		s.metrics.RecordUploadError()
		s.logAudit(r, AuditEvent{
			Action:   AuditActionFileUpload,
			Success:  false,
			ErrorMsg: msg,
		})
		if status >= http.StatusInternalServerError {
			s.log.Error("upload failed", map[string]any{"rid": rid, "status": status}, err)
		}
		writeText(w, status, msg)
	}

	limit := s.cfg.MaxUploadBytes
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartEnvelope)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			fail(http.StatusRequestEntityTooLarge, msgFileTooLarge, err)
			return
		}
		fail(http.StatusBadRequest, err.Error(), err)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	// "file" is normally a file part, but a plain form field holding the
	// bytes is accepted too.
	var (
		src  io.Reader
		size int64
		fh   *multipart.FileHeader
	)
	if files := r.MultipartForm.File["file"]; len(files) > 0 {
		fh = files[0]
		size = fh.Size
	} else if vals := r.MultipartForm.Value["file"]; len(vals) > 0 {
		src = strings.NewReader(vals[0])
		size = int64(len(vals[0]))
	} else {
		fail(http.StatusBadRequest, msgNoFileField, nil)
		return
	}

	names, ok := r.MultipartForm.Value["filename"]
	if !ok || len(names) == 0 {
		fail(http.StatusBadRequest, msgNoFilenameField, nil)
		return
	}

	if size > limit {
		fail(http.StatusRequestEntityTooLarge, msgFileTooLarge, nil)
		return
	}

	if fh != nil {
		f, err := fh.Open()
		if err != nil {
			fail(http.StatusBadRequest, err.Error(), err)
			return
		}
		defer func() { _ = f.Close() }()
		src = f
	}

	name, n, err := s.store.Create(extensionOf(names[0]), src)
	switch {
	case errors.Is(err, storage.ErrInvalidName):
		fail(http.StatusBadRequest, err.Error(), err)
		return
	case errors.Is(err, storage.ErrNamesExhausted):
		fail(http.StatusInsufficientStorage, err.Error(), err)
		return
	case err != nil:
		fail(http.StatusInternalServerError, err.Error(), err)
		return
	}

	s.metrics.RecordUpload(n, time.Since(start))
	s.logAudit(r, AuditEvent{
		Action:   AuditActionFileUpload,
		Resource: name,
		Success:  true,
		Details:  map[string]any{"bytes": n},
	})

	writeText(w, http.StatusOK, s.publicURL(name))
}
