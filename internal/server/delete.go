package server

import (
	"net/http"

	"github.com/gorilla/mux"
)

const msgDeleted = "Deleted!"

// deleteHandler serves GET /delete/{file}. The reply is always "Deleted!";
// whether anything was actually removed is only visible in the logs.
func (s *Server) deleteHandler(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["file"]

	err := s.store.Remove(name)
	s.metrics.RecordDelete(err == nil)

	ev := AuditEvent{
		Action:   AuditActionFileDelete,
		Resource: name,
		Success:  err == nil,
	}
	if err != nil {
		ev.ErrorMsg = err.Error()
	}
	s.logAudit(r, ev)

	writeText(w, http.StatusOK, msgDeleted)
}
