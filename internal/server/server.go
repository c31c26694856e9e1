package server

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/mux"

	"share-drop/internal/storage"
)

//go:embed templates/*.html
var templateFS embed.FS

type Server struct {
	cfg        Config
	store      *storage.Store
	log        *Logger
	metrics    *Metrics
	manageTmpl *template.Template
	started    time.Time

	handler    http.Handler
	httpServer *http.Server
}

// New wires the upload directory, templates and routes described by cfg.
func New(cfg Config) (*Server, error) {
	if cfg.UploadDir == "" {
		return nil, errors.New("upload dir is not configured")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("api key is not configured")
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if cfg.SiteURL == "" {
		cfg.SiteURL = DefaultSiteURL
	}
	if cfg.Logger == nil {
		cfg.Logger = DefaultLogger
	}

	storeOpts := []storage.Option{storage.WithExcluded(APIKeyFile)}
	if cfg.ModTimeFallback {
		storeOpts = append(storeOpts, storage.WithModTimeFallback())
	}
	store, err := storage.New(cfg.UploadDir, storeOpts...)
	if err != nil {
		return nil, err
	}

	tmpl, err := template.ParseFS(templateFS, "templates/manage.html")
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:        cfg,
		store:      store,
		log:        cfg.Logger,
		metrics:    NewMetrics(),
		manageTmpl: tmpl,
		started:    time.Now(),
	}

	r := mux.NewRouter()

	var upload http.Handler = http.HandlerFunc(s.uploadHandler)
	if cfg.UploadRequiresKey {
		upload = s.requireAPIKey(upload)
	}
	r.Handle("/upload", upload).Methods(http.MethodPost)
	r.Handle("/manage", s.requireAPIKey(CompressionMiddleware(http.HandlerFunc(s.manageHandler)))).
		Methods(http.MethodGet)
	r.Handle("/delete/{file}", s.requireAPIKey(http.HandlerFunc(s.deleteHandler))).
		Methods(http.MethodGet)

	r.HandleFunc("/health", s.HandleHealth).Methods(http.MethodGet)
	r.HandleFunc("/ready", s.HandleReady).Methods(http.MethodGet)
	r.HandleFunc("/live", s.HandleLive).Methods(http.MethodGet)
	var metrics http.Handler = http.HandlerFunc(s.metricsHandler)
	if !cfg.MetricsPublic {
		metrics = s.requireAPIKey(metrics)
	}
	r.Handle("/metrics", metrics).Methods(http.MethodGet)

	// Everything else is looked up in the upload directory. Paths that decode
	// to more than one segment, such as /delete/a%2Fb, land here and get 404.
	r.PathPrefix("/").Methods(http.MethodGet, http.MethodHead).HandlerFunc(s.staticHandler)

	// requestID -> logging -> security headers -> router
	var handler http.Handler = r
	handler = securityHeadersMiddleware(handler)
	handler = s.loggingMiddleware(handler)
	handler = requestIDMiddleware(handler)
	s.handler = handler

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s, nil
}

// Handler returns the fully wrapped router.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.httpServer.Serve(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// publicURL is the link handed out for a stored name. The name is
// path-escaped so characters such as '#' or '?' in an extension stay part
// of the path.
func (s *Server) publicURL(name string) string {
	return s.cfg.SiteURL + "/" + url.PathEscape(name)
}

// deleteURL is the keyed delete link for a stored name.
func (s *Server) deleteURL(name string) string {
	return s.cfg.SiteURL + "/delete/" + url.PathEscape(name) + "?" + apiKeyQuery + "=" + url.QueryEscape(s.cfg.APIKey)
}

// writeText sends msg verbatim as a plain-text body.
func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, msg)
}
