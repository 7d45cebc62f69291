package http

import (
	"net/http"

	"github.com/studyforge/studyforge-backend/internal/assignment"
)

// writeDomainError maps a service error kind onto its HTTP status. Anything
// unclassified is an infrastructure fault and surfaces as a 500 without
// leaking the storage error text.
func writeDomainError(w http.ResponseWriter, err error) {
	switch assignment.KindOf(err) {
	case assignment.KindNotFound:
		http.Error(w, err.Error(), http.StatusNotFound)
	case assignment.KindForbidden:
		http.Error(w, err.Error(), http.StatusForbidden)
	case assignment.KindBadRequest:
		http.Error(w, err.Error(), http.StatusBadRequest)
	case assignment.KindConflict:
		http.Error(w, err.Error(), http.StatusConflict)
	case assignment.KindNotAcceptable:
		http.Error(w, err.Error(), http.StatusNotAcceptable)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
