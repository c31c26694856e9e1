package server

import (
	"net/http"
	"strings"
)

// staticHandler serves a stored file by name from the site root. There are
// no directory listings: "/", nested paths, excluded and unknown names are
// all 404.
func (s *Server) staticHandler(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/")

	f, fi, err := s.store.Open(name)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer func() { _ = f.Close() }()

	w.Header().Set("X-Content-Type-Options", "nosniff")
	http.ServeContent(w, r, fi.Name(), fi.ModTime(), f)

	if r.Method == http.MethodGet {
		s.metrics.RecordDownload(fi.Size())
	}
}
