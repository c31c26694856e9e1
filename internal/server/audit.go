package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of action being audited
type AuditAction string

const (
	AuditActionFileUpload  AuditAction = "file_upload"
	AuditActionFileDelete  AuditAction = "file_delete"
	AuditActionManageView  AuditAction = "manage_view"
	AuditActionAuthFailure AuditAction = "auth_failure"
)

// AuditEvent is one privileged or state-changing action. Events go to the
// server's Logger; there is no separate audit store.
type AuditEvent struct {
	ID        string
	Timestamp time.Time
	Action    AuditAction
	IPAddress string
	UserAgent string
	Resource  string
	Details   map[string]any
	Success   bool
	ErrorMsg  string
}

// logAudit fills request-derived fields and emits the event at info level,
// or warn level when it did not succeed.
func (s *Server) logAudit(r *http.Request, ev AuditEvent) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	ev.IPAddress = getClientIPForLogging(r)
	ev.UserAgent = r.UserAgent()

	fields := map[string]any{
		"rid":        RequestIDFromContext(r.Context()),
		"audit_id":   ev.ID,
		"at":         ev.Timestamp.Format(time.RFC3339Nano),
		"action":     string(ev.Action),
		"ip":         ev.IPAddress,
		"user_agent": ev.UserAgent,
		"success":    ev.Success,
	}
	if ev.Resource != "" {
		fields["resource"] = ev.Resource
	}
	for k, v := range ev.Details {
		fields[k] = v
	}
	if ev.ErrorMsg != "" {
		fields["error_message"] = ev.ErrorMsg
	}

	if ev.Success {
		s.log.Info("audit", fields)
		return
	}
	s.log.Warn("audit", fields, nil)
}
