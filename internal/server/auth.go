// auth.go - Shared API key guard for privileged routes.
package server

import (
	"crypto/subtle"
	"net/http"
)

const (
	apiKeyHeader = "x-api-key"
	apiKeyQuery  = "key"

	msgInvalidAPIKey = "invalid api key"
)

func keyEqual(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

// validAPIKey reports whether r carries key in the x-api-key header or,
// failing that, in the key query parameter. Comparison is exact.
func validAPIKey(r *http.Request, key string) bool {
	if key == "" {
		return false
	}
	if h := r.Header.Values(apiKeyHeader); len(h) > 0 && keyEqual(h[0], key) {
		return true
	}
	q := r.URL.Query()
	if v, ok := q[apiKeyQuery]; ok && len(v) > 0 && keyEqual(v[0], key) {
		return true
	}
	return false
}

// requireAPIKey rejects requests without the configured key with 403 and a
// fixed message that does not say whether the key was missing or wrong.
func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !validAPIKey(r, s.cfg.APIKey) {
			s.metrics.RecordAuthFailure()
			s.logAudit(r, AuditEvent{
				Action:   AuditActionAuthFailure,
				Resource: r.URL.Path,
				Success:  false,
			})
			writeText(w, http.StatusForbidden, msgInvalidAPIKey)
			return
		}
		next.ServeHTTP(w, r)
	})
}
