package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/studyforge/studyforge-backend/internal/assignment"
	authmw "github.com/studyforge/studyforge-backend/internal/auth/middleware"
)

// POST /assignments/{assignmentID}/start
func StartAssignmentHandler(svc *assignment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "assignmentID"))
		if id == "" {
			http.Error(w, "assignmentID required", http.StatusBadRequest)
			return
		}
		studentID := authmw.SubjectFromContext(r.Context())
		res, err := svc.Start(r.Context(), id, studentID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(res)
	}
}

// POST /assignments/{assignmentID}/submit  { "q1": ..., "q2": [...] }
func SubmitAnswersHandler(svc *assignment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "assignmentID"))
		var replies map[string]any
		if err := json.NewDecoder(r.Body).Decode(&replies); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		studentID := authmw.SubjectFromContext(r.Context())
		if err := svc.Submit(r.Context(), id, studentID, replies); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// POST /responses/{responseID}/grade
func GradeResponseHandler(svc *assignment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "responseID"))
		if id == "" {
			http.Error(w, "responseID required", http.StatusBadRequest)
			return
		}
		var in assignment.GradeInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		if err := validate.Struct(in); err != nil {
			http.Error(w, "validation: "+err.Error(), http.StatusBadRequest)
			return
		}
		managerID := authmw.SubjectFromContext(r.Context())
		if err := svc.Grade(r.Context(), id, managerID, in); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// POST /responses/{responseID}/withdraw
func WithdrawResponseHandler(svc *assignment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "responseID"))
		managerID := authmw.SubjectFromContext(r.Context())
		if err := svc.Withdraw(r.Context(), id, managerID); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// GET /assignments/{assignmentID}/responses — the owner's grading dashboard.
func ListResponsesHandler(svc *assignment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "assignmentID"))
		managerID := authmw.SubjectFromContext(r.Context())
		list, err := svc.ListResponses(r.Context(), id, managerID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(list)
	}
}
