package assignment

import "context"

// Store is the persistence boundary for assignments and responses.
// Implementations return ErrAssignmentNotFound / ErrResponseNotFound for
// missing rows; everything else is an infrastructure fault.
type Store interface {
	PutAssignment(ctx context.Context, a Assignment) error
	GetAssignment(ctx context.Context, id string) (Assignment, error)
	UpdateAssignment(ctx context.Context, a Assignment) error
	ListAssignmentsForTasks(ctx context.Context, taskIDs []string, typ Type, state State) ([]Assignment, error)
	SetGradingState(ctx context.Context, assignmentID string, gs GradingState) error

	CreateResponse(ctx context.Context, r Response) error
	GetResponse(ctx context.Context, id string) (Response, error)
	// FindResponse returns the student's non-withdrawn response to the
	// assignment, ErrResponseNotFound if none. The at-most-one invariant is
	// enforced by this lookup-before-create, not by a unique index.
	FindResponse(ctx context.Context, assignmentID, studentID string) (Response, error)
	ListResponses(ctx context.Context, assignmentID string) ([]Response, error)

	// SubmitResponse persists the scored submission as a single conditional
	// update that only applies while the response's status is not yet
	// graded. It reports whether the update applied.
	SubmitResponse(ctx context.Context, r Response) (bool, error)

	// SaveGrades stores the merged score map, total and notes and moves the
	// response to graded.
	SaveGrades(ctx context.Context, responseID string, scores map[string]float64, total float64, notes string) error

	SetResponseStatus(ctx context.Context, responseID string, status Status) error

	// PublishGradedResponses flips every graded response of the assignment
	// to published in one filtered update and reports how many rows moved.
	PublishGradedResponses(ctx context.Context, assignmentID string) (int64, error)
}

// Catalog is the collaborator boundary toward programs, levels, tasks and
// subscriptions. The grading core only ever reads reachability and cascades
// task removal.
type Catalog interface {
	// ActiveTaskIDs returns every task id reachable through the student's
	// active subscriptions (program -> levels -> tasks).
	ActiveTaskIDs(ctx context.Context, studentID string) ([]string, error)
	RemoveTask(ctx context.Context, taskID string) error
}
