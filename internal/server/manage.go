package server

import (
	"bytes"
	"html/template"
	"net/http"
	"sort"

	"github.com/dustin/go-humanize"
)

// manageRow is one stored file as shown on the management page.
type manageRow struct {
	Name      string
	URL       template.URL
	Date      string
	Size      string
	DeleteURL template.URL
	Bytes     int64
}

type manageView struct {
	Files      []manageRow
	Total      int
	TotalSize  string
	TotalBytes int64
}

// buildManageView lists the upload directory largest file first. Rows with
// equal sizes keep directory order.
func (s *Server) buildManageView() (manageView, error) {
	entries, err := s.store.List()
	if err != nil {
		return manageView{}, err
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Size > entries[j].Size
	})

	// Links are built from the configured site URL and names read back from
	// our own directory, so they are marked as trusted; html/template would
	// otherwise reject a scheme-less base such as "localhost:8000".
	view := manageView{Files: make([]manageRow, 0, len(entries))}
	for _, e := range entries {
		view.Files = append(view.Files, manageRow{
			Name:      e.Name,
			URL:       template.URL(s.publicURL(e.Name)),
			Date:      e.Created.UTC().Format("2006-01-02"),
			Size:      humanize.IBytes(uint64(e.Size)),
			DeleteURL: template.URL(s.deleteURL(e.Name)),
			Bytes:     e.Size,
		})
		view.TotalBytes += e.Size
	}
	view.Total = len(view.Files)
	view.TotalSize = humanize.IBytes(uint64(view.TotalBytes))

	return view, nil
}

// manageHandler serves GET /manage.
func (s *Server) manageHandler(w http.ResponseWriter, r *http.Request) {
	rid := RequestIDFromContext(r.Context())

	view, err := s.buildManageView()
	if err != nil {
		s.log.Error("list upload dir", map[string]any{"rid": rid, "dir": s.store.Dir()}, err)
		writeText(w, http.StatusInternalServerError, "could not read upload dir")
		return
	}

	var buf bytes.Buffer
	if err := s.manageTmpl.ExecuteTemplate(&buf, "manage.html", view); err != nil {
		s.log.Error("render manage view", map[string]any{"rid": rid}, err)
		writeText(w, http.StatusInternalServerError, "could not render page")
		return
	}

	s.metrics.RecordListing()
	s.logAudit(r, AuditEvent{
		Action:  AuditActionManageView,
		Success: true,
		Details: map[string]any{"files": view.Total, "bytes": view.TotalBytes},
	})

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
