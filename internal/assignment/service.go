package assignment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/studyforge/studyforge-backend/internal/grading"
)

// Service owns the assignment and response state machines. All mutation
// rules (ownership, time windows, single-attempt, publication gating) live
// here; the store is dumb persistence.
type Service struct {
	store   Store
	catalog Catalog
	grader  *grading.Engine
	log     *slog.Logger
	now     func() time.Time
}

func NewService(store Store, catalog Catalog, grader *grading.Engine, log *slog.Logger) *Service {
	return &Service{
		store:   store,
		catalog: catalog,
		grader:  grader,
		log:     log,
		now:     time.Now,
	}
}

type CreateInput struct {
	Title             string       `json:"title" validate:"required"`
	Type              Type         `json:"type" validate:"required,oneof=exam homework"`
	TaskID            string       `json:"task_id"`
	DurationInMinutes int          `json:"duration_in_minutes" validate:"gte=0"`
	PassingScore      float64      `json:"passing_score" validate:"gte=0"`
	AvailableFrom     time.Time    `json:"available_from" validate:"required"`
	AvailableUntil    time.Time    `json:"available_until" validate:"required,gtfield=AvailableFrom"`
	Form              grading.Form `json:"form"`
}

// Create persists a new assignment in draft with grading pending, owned by
// the calling manager, and returns its id.
func (s *Service) Create(ctx context.Context, in CreateInput, managerID string) (string, error) {
	now := s.now()
	a := Assignment{
		ID:                uuid.NewString(),
		Title:             in.Title,
		CreatedBy:         managerID,
		State:             StateDraft,
		GradingState:      GradingPending,
		Type:              in.Type,
		TaskID:            in.TaskID,
		DurationInMinutes: in.DurationInMinutes,
		PassingScore:      in.PassingScore,
		AvailableFrom:     in.AvailableFrom,
		AvailableUntil:    in.AvailableUntil,
		Form:              in.Form,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.store.PutAssignment(ctx, a); err != nil {
		return "", fmt.Errorf("create assignment: %w", err)
	}
	s.log.InfoContext(ctx, "assignment created", "assignment_id", a.ID, "manager_id", managerID)
	return a.ID, nil
}

// FindForManager loads the full assignment, including the form with answer
// keys, for its owning manager.
func (s *Service) FindForManager(ctx context.Context, id, managerID string) (Assignment, error) {
	a, err := s.loadAssignment(ctx, id)
	if err != nil {
		return Assignment{}, err
	}
	if a.CreatedBy != managerID {
		return Assignment{}, forbidden("assignment belongs to another manager")
	}
	return a, nil
}

// FindForStudent loads an assignment for browsing. Task-linked assignments
// must be reachable through one of the student's active subscriptions. The
// form is stripped entirely: answer keys never leave the grading flow.
func (s *Service) FindForStudent(ctx context.Context, id, studentID string) (Assignment, error) {
	a, err := s.loadAssignment(ctx, id)
	if err != nil {
		return Assignment{}, err
	}
	if a.TaskID != "" {
		reachable, err := s.taskReachable(ctx, studentID, a.TaskID)
		if err != nil {
			return Assignment{}, err
		}
		if !reachable {
			return Assignment{}, forbidden("assignment is not part of your subscriptions")
		}
	}
	a.Form = grading.Form{}
	return a, nil
}

type UpdateInput struct {
	Title             *string       `json:"title"`
	State             *State        `json:"state" validate:"omitempty,oneof=draft published canceled closed"`
	Type              *Type         `json:"type" validate:"omitempty,oneof=exam homework"`
	DurationInMinutes *int          `json:"duration_in_minutes" validate:"omitempty,gte=0"`
	PassingScore      *float64      `json:"passing_score" validate:"omitempty,gte=0"`
	AvailableFrom     *time.Time    `json:"available_from"`
	AvailableUntil    *time.Time    `json:"available_until"`
	Form              *grading.Form `json:"form"`
}

// Update applies a partial update. Content is frozen once the assignment is
// published or closed: a form change in that state is forbidden.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput, managerID string) error {
	a, err := s.loadAssignment(ctx, id)
	if err != nil {
		return err
	}
	if a.CreatedBy != managerID {
		return forbidden("assignment belongs to another manager")
	}
	if in.Form != nil && (a.State == StatePublished || a.State == StateClosed) {
		return forbidden("form is immutable once the assignment is published or closed")
	}
	if in.Title != nil {
		a.Title = *in.Title
	}
	if in.State != nil {
		a.State = *in.State
	}
	if in.Type != nil {
		a.Type = *in.Type
	}
	if in.DurationInMinutes != nil {
		a.DurationInMinutes = *in.DurationInMinutes
	}
	if in.PassingScore != nil {
		a.PassingScore = *in.PassingScore
	}
	if in.AvailableFrom != nil {
		a.AvailableFrom = *in.AvailableFrom
	}
	if in.AvailableUntil != nil {
		a.AvailableUntil = *in.AvailableUntil
	}
	if in.Form != nil {
		a.Form = *in.Form
	}
	// the merged window must stay ordered even when only one edge moved
	if !a.AvailableFrom.Before(a.AvailableUntil) {
		return badRequest("availableFrom must be before availableUntil")
	}
	a.UpdatedAt = s.now()
	if err := s.store.UpdateAssignment(ctx, a); err != nil {
		return fmt.Errorf("update assignment: %w", err)
	}
	return nil
}

// Remove soft-deletes the assignment and cascades removal of its task.
// Only ownership gates removal; the content-freeze rule never applies to a
// form-less update.
func (s *Service) Remove(ctx context.Context, id, managerID string) error {
	a, err := s.loadAssignment(ctx, id)
	if err != nil {
		return err
	}
	if a.CreatedBy != managerID {
		return forbidden("assignment belongs to another manager")
	}
	a.State = StateDeleted
	a.UpdatedAt = s.now()
	if err := s.store.UpdateAssignment(ctx, a); err != nil {
		return fmt.Errorf("remove assignment: %w", err)
	}
	if a.TaskID != "" {
		if err := s.catalog.RemoveTask(ctx, a.TaskID); err != nil {
			return fmt.Errorf("cascade task removal: %w", err)
		}
	}
	s.log.InfoContext(ctx, "assignment removed", "assignment_id", id, "manager_id", managerID)
	return nil
}

// FindAvailableForStudent returns the published exam assignments attached
// to tasks the student can reach. No subscriptions means no query at all.
func (s *Service) FindAvailableForStudent(ctx context.Context, studentID string) ([]Assignment, error) {
	taskIDs, err := s.catalog.ActiveTaskIDs(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("resolve subscriptions: %w", err)
	}
	if len(taskIDs) == 0 {
		return []Assignment{}, nil
	}
	list, err := s.store.ListAssignmentsForTasks(ctx, taskIDs, TypeExam, StatePublished)
	if err != nil {
		return nil, fmt.Errorf("list available assignments: %w", err)
	}
	for i := range list {
		list[i].Form = grading.Form{}
	}
	return list, nil
}

// Start opens (or re-opens) a student's attempt. The assignment must be
// published and inside its availability window. A repeated start returns
// the original clock: it never resets startedAt or creates a second row.
func (s *Service) Start(ctx context.Context, assignmentID, studentID string) (StartResult, error) {
	a, err := s.store.GetAssignment(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, ErrAssignmentNotFound) {
			return StartResult{}, notFound("assignment not found")
		}
		return StartResult{}, fmt.Errorf("load assignment: %w", err)
	}
	if a.State != StatePublished {
		return StartResult{}, notFound("assignment not found")
	}
	now := s.now()
	if now.Before(a.AvailableFrom) || now.After(a.AvailableUntil) {
		return StartResult{}, forbidden("assignment is not available")
	}

	existing, err := s.store.FindResponse(ctx, assignmentID, studentID)
	switch {
	case err == nil:
		return startResult(existing.StartedAt, a.Form), nil
	case errors.Is(err, ErrResponseNotFound):
		// first start, fall through
	default:
		return StartResult{}, fmt.Errorf("lookup response: %w", err)
	}

	r := Response{
		ID:           uuid.NewString(),
		AssignmentID: assignmentID,
		StudentID:    studentID,
		Status:       StatusInProgress,
		StartedAt:    now,
	}
	if err := s.store.CreateResponse(ctx, r); err != nil {
		return StartResult{}, fmt.Errorf("create response: %w", err)
	}
	s.log.InfoContext(ctx, "assignment started", "assignment_id", assignmentID, "student_id", studentID)
	return startResult(now, a.Form), nil
}

func startResult(startedAt time.Time, form grading.Form) StartResult {
	clean := form.Sanitized()
	return StartResult{
		StartedAt:  startedAt,
		Settings:   clean.Settings,
		StartSlide: clean.StartSlide,
		Slides:     clean.Slides,
		EndSlide:   clean.EndSlide,
	}
}

// Submit scores the raw replies and finalizes the attempt. A response that
// a manager has already graded can never be resubmitted; the guard runs as
// a conditional update in the store so two racing submissions cannot both
// pass it.
func (s *Service) Submit(ctx context.Context, assignmentID, studentID string, replies map[string]any) error {
	r, err := s.store.FindResponse(ctx, assignmentID, studentID)
	if err != nil {
		if errors.Is(err, ErrResponseNotFound) {
			return notFound("assignment was not started")
		}
		return fmt.Errorf("lookup response: %w", err)
	}
	if r.Status == StatusGraded {
		return badRequest("response has already been graded")
	}
	a, err := s.store.GetAssignment(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, ErrAssignmentNotFound) {
			return notFound("assignment not found")
		}
		return fmt.Errorf("load assignment: %w", err)
	}

	now := s.now()
	elapsed := now.Sub(r.StartedAt).Minutes()
	if elapsed > float64(a.DurationInMinutes) {
		return forbidden("time limit exceeded")
	}

	scored := s.grader.Score(a.Form, replies)

	submittedAt := now
	r.Status = StatusSubmitted
	r.SubmittedAt = &submittedAt
	r.Replies = replies
	r.IndividualScores = scored.IndividualScores
	r.Score = scored.TotalScore

	applied, err := s.store.SubmitResponse(ctx, r)
	if err != nil {
		return fmt.Errorf("persist submission: %w", err)
	}
	if !applied {
		// lost the race against a concurrent grading write
		return badRequest("response has already been graded")
	}
	s.log.InfoContext(ctx, "response submitted",
		"assignment_id", assignmentID, "student_id", studentID, "score", scored.TotalScore)
	return nil
}

type GradeInput struct {
	Scores map[string]float64 `json:"scores" validate:"required"`
	Notes  string             `json:"notes"`
}

// Grade merges a manager's overrides into the auto-graded score map. Keys
// not supplied keep their automatic score; the total is recomputed over the
// merged map.
func (s *Service) Grade(ctx context.Context, responseID, managerID string, in GradeInput) error {
	r, err := s.store.GetResponse(ctx, responseID)
	if err != nil {
		if errors.Is(err, ErrResponseNotFound) {
			return notFound("response not found")
		}
		return fmt.Errorf("load response: %w", err)
	}
	a, err := s.store.GetAssignment(ctx, r.AssignmentID)
	if err != nil {
		if errors.Is(err, ErrAssignmentNotFound) {
			return notFound("assignment not found")
		}
		return fmt.Errorf("load assignment: %w", err)
	}
	if a.CreatedBy != managerID {
		return forbidden("assignment belongs to another manager")
	}

	merged := make(map[string]float64, len(r.IndividualScores)+len(in.Scores))
	for k, v := range r.IndividualScores {
		merged[k] = v
	}
	for k, v := range in.Scores {
		merged[k] = v
	}
	total := 0.0
	for _, v := range merged {
		total += v
	}

	if err := s.store.SaveGrades(ctx, responseID, merged, total, in.Notes); err != nil {
		return fmt.Errorf("persist grades: %w", err)
	}
	s.log.InfoContext(ctx, "response graded",
		"response_id", responseID, "manager_id", managerID, "score", total)
	return nil
}

// Withdraw pulls a response out of the grading flow. Published responses
// are final.
func (s *Service) Withdraw(ctx context.Context, responseID, managerID string) error {
	r, err := s.store.GetResponse(ctx, responseID)
	if err != nil {
		if errors.Is(err, ErrResponseNotFound) {
			return notFound("response not found")
		}
		return fmt.Errorf("load response: %w", err)
	}
	a, err := s.store.GetAssignment(ctx, r.AssignmentID)
	if err != nil {
		if errors.Is(err, ErrAssignmentNotFound) {
			return notFound("assignment not found")
		}
		return fmt.Errorf("load assignment: %w", err)
	}
	if a.CreatedBy != managerID {
		return forbidden("assignment belongs to another manager")
	}
	if r.Status == StatusPublished {
		return conflict("published responses cannot be withdrawn")
	}
	if err := s.store.SetResponseStatus(ctx, responseID, StatusWithdrawn); err != nil {
		return fmt.Errorf("withdraw response: %w", err)
	}
	return nil
}

// ListResponses returns every response to an assignment for its owning
// manager's grading dashboard.
func (s *Service) ListResponses(ctx context.Context, assignmentID, managerID string) ([]Response, error) {
	if _, err := s.FindForManager(ctx, assignmentID, managerID); err != nil {
		return nil, err
	}
	list, err := s.store.ListResponses(ctx, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	return list, nil
}

// PublishGrades releases every score for the assignment at once. All
// responses must be graded; publication is all-or-nothing. The bulk
// response update runs strictly before the grading-state flip so that a
// crashed run can be retried safely: re-publishing already-published rows
// is a no-op and the idempotency guard only engages once the flag flipped.
func (s *Service) PublishGrades(ctx context.Context, assignmentID, managerID string) error {
	a, err := s.loadAssignment(ctx, assignmentID)
	if err != nil {
		return err
	}
	if a.CreatedBy != managerID {
		return forbidden("assignment belongs to another manager")
	}
	if a.GradingState == GradingPublished {
		return notAcceptable("grades are already published")
	}
	responses, err := s.store.ListResponses(ctx, assignmentID)
	if err != nil {
		return fmt.Errorf("list responses: %w", err)
	}
	if len(responses) == 0 {
		return notAcceptable("no responses to publish")
	}
	for _, r := range responses {
		// already-published rows pass the gate: they are leftovers of a run
		// that crashed before the grading-state flip, and retrying must work
		if r.Status != StatusGraded && r.Status != StatusPublished {
			return conflict("not every response has been graded")
		}
	}
	moved, err := s.store.PublishGradedResponses(ctx, assignmentID)
	if err != nil {
		return fmt.Errorf("publish responses: %w", err)
	}
	if err := s.store.SetGradingState(ctx, assignmentID, GradingPublished); err != nil {
		return fmt.Errorf("flip grading state: %w", err)
	}
	s.log.InfoContext(ctx, "grades published",
		"assignment_id", assignmentID, "manager_id", managerID, "responses", moved)
	return nil
}

func (s *Service) loadAssignment(ctx context.Context, id string) (Assignment, error) {
	a, err := s.store.GetAssignment(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAssignmentNotFound) {
			return Assignment{}, notFound("assignment not found")
		}
		return Assignment{}, fmt.Errorf("load assignment: %w", err)
	}
	if a.State == StateDeleted {
		return Assignment{}, notFound("assignment not found")
	}
	return a, nil
}

func (s *Service) taskReachable(ctx context.Context, studentID, taskID string) (bool, error) {
	ids, err := s.catalog.ActiveTaskIDs(ctx, studentID)
	if err != nil {
		return false, fmt.Errorf("resolve subscriptions: %w", err)
	}
	for _, id := range ids {
		if id == taskID {
			return true, nil
		}
	}
	return false, nil
}
