package assignment

import (
	"time"

	"github.com/studyforge/studyforge-backend/internal/grading"
)

// Assignment lifecycle. Deleted is terminal; a removed assignment is kept
// on record because responses may still reference it.
type State string

const (
	StateDraft     State = "draft"
	StatePublished State = "published"
	StateCanceled  State = "canceled"
	StateClosed    State = "closed"
	StateDeleted   State = "deleted"
)

// GradingState tracks whether finalized scores have been released, one-way
// pending -> published, independent of the assignment's own lifecycle.
type GradingState string

const (
	GradingPending   GradingState = "pending"
	GradingPublished GradingState = "published"
)

type Type string

const (
	TypeExam     Type = "exam"
	TypeHomework Type = "homework"
)

type Assignment struct {
	ID                string       `json:"id"`
	Title             string       `json:"title"`
	CreatedBy         string       `json:"created_by"`
	State             State        `json:"state"`
	GradingState      GradingState `json:"grading_state"`
	Type              Type         `json:"type"`
	TaskID            string       `json:"task_id,omitempty"`
	DurationInMinutes int          `json:"duration_in_minutes"`
	PassingScore      float64      `json:"passing_score"`
	AvailableFrom     time.Time    `json:"available_from"`
	AvailableUntil    time.Time    `json:"available_until"`
	Form              grading.Form `json:"form"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

// Response status. At most one non-withdrawn response exists per
// (assignment, student) pair.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusSubmitted  Status = "submitted"
	StatusGraded     Status = "graded"
	StatusPublished  Status = "published"
	StatusWithdrawn  Status = "withdrawn"
)

type Response struct {
	ID           string     `json:"id"`
	AssignmentID string     `json:"assignment_id"`
	StudentID    string     `json:"student_id"`
	Status       Status     `json:"status"`
	StartedAt    time.Time  `json:"started_at"`
	SubmittedAt  *time.Time `json:"submitted_at,omitempty"`
	// Replies holds the raw answers keyed by question id, exactly as
	// submitted. IndividualScores is keyed the same way.
	Replies          map[string]any     `json:"replies,omitempty"`
	IndividualScores map[string]float64 `json:"individual_scores,omitempty"`
	Score            float64            `json:"score"`
	Notes            string             `json:"notes,omitempty"`
}

// StartResult is what a student receives when opening an assignment:
// the attempt clock plus the form with answer keys stripped.
type StartResult struct {
	StartedAt  time.Time       `json:"started_at"`
	Settings   map[string]any  `json:"settings,omitempty"`
	StartSlide *grading.Slide  `json:"start_slide,omitempty"`
	Slides     []grading.Slide `json:"slides"`
	EndSlide   *grading.Slide  `json:"end_slide,omitempty"`
}
