package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/studyforge/studyforge-backend/internal/assignment"
	authmw "github.com/studyforge/studyforge-backend/internal/auth/middleware"
	"github.com/studyforge/studyforge-backend/internal/rbac"
)

var validate = validator.New()

// POST /assignments
func CreateAssignmentHandler(svc *assignment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in assignment.CreateInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		if err := validate.Struct(in); err != nil {
			http.Error(w, "validation: "+err.Error(), http.StatusBadRequest)
			return
		}
		managerID := authmw.SubjectFromContext(r.Context())
		id, err := svc.Create(r.Context(), in, managerID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": id})
	}
}

// GET /assignments/{assignmentID}
// Managers get the full document, students a redacted view scoped to their
// subscriptions.
func GetAssignmentHandler(svc *assignment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "assignmentID"))
		if id == "" {
			http.Error(w, "assignmentID required", http.StatusBadRequest)
			return
		}
		sub := authmw.SubjectFromContext(r.Context())
		role := rbac.RoleFromContext(r.Context())

		var (
			a   assignment.Assignment
			err error
		)
		if role == "student" {
			a, err = svc.FindForStudent(r.Context(), id, sub)
		} else {
			a, err = svc.FindForManager(r.Context(), id, sub)
		}
		if err != nil {
			writeDomainError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(a)
	}
}

// PATCH /assignments/{assignmentID}
func UpdateAssignmentHandler(svc *assignment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "assignmentID"))
		var in assignment.UpdateInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		if err := validate.Struct(in); err != nil {
			http.Error(w, "validation: "+err.Error(), http.StatusBadRequest)
			return
		}
		managerID := authmw.SubjectFromContext(r.Context())
		if err := svc.Update(r.Context(), id, in, managerID); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// DELETE /assignments/{assignmentID}
func RemoveAssignmentHandler(svc *assignment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "assignmentID"))
		managerID := authmw.SubjectFromContext(r.Context())
		if err := svc.Remove(r.Context(), id, managerID); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// GET /assignments — a student's available published exams.
func ListAvailableAssignmentsHandler(svc *assignment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		studentID := authmw.SubjectFromContext(r.Context())
		list, err := svc.FindAvailableForStudent(r.Context(), studentID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(list)
	}
}

// POST /assignments/{assignmentID}/publish-grades
func PublishGradesHandler(svc *assignment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "assignmentID"))
		managerID := authmw.SubjectFromContext(r.Context())
		if err := svc.PublishGrades(r.Context(), id, managerID); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
