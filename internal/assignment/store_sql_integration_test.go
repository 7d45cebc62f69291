package assignment_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/studyforge/studyforge-backend/internal/assignment"
	"github.com/studyforge/studyforge-backend/internal/db"
	"github.com/studyforge/studyforge-backend/internal/grading"

	_ "modernc.org/sqlite" // driver for "sqlite"
)

func openTestStore(t *testing.T) *assignment.SQLStore {
	t.Helper()
	ctx := context.Background()
	// unique shared-cache name per test so schemas do not collide
	dbh, err := db.Open(ctx, db.DriverSQLite,
		"file:"+t.Name()+".db?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = dbh.Close() })
	return assignment.NewSQLStore(dbh)
}

func sqlTestAssignment(id, taskID string) assignment.Assignment {
	from := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	return assignment.Assignment{
		ID:                id,
		Title:             "Integration Exam",
		CreatedBy:         "mgr-1",
		State:             assignment.StatePublished,
		GradingState:      assignment.GradingPending,
		Type:              assignment.TypeExam,
		TaskID:            taskID,
		DurationInMinutes: 60,
		AvailableFrom:     from,
		AvailableUntil:    from.Add(24 * time.Hour),
		Form: grading.Form{Slides: []grading.Slide{{ID: "s1", Elements: []grading.Element{
			{ID: "q1", Type: grading.TypeNumber, Question: true, Answer: "5", Score: 10},
		}}}},
		CreatedAt: from,
		UpdatedAt: from,
	}
}

func Test_SQLite_AssignmentRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	in := sqlTestAssignment("a-1", "task-1")
	if err := st.PutAssignment(ctx, in); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := st.GetAssignment(ctx, "a-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != in.Title || got.State != in.State || got.Type != in.Type {
		t.Fatalf("round trip mangled the row: %+v", got)
	}
	if !got.AvailableFrom.Equal(in.AvailableFrom) || !got.AvailableUntil.Equal(in.AvailableUntil) {
		t.Fatalf("window changed: %v .. %v", got.AvailableFrom, got.AvailableUntil)
	}
	if len(got.Form.Slides) != 1 || got.Form.Slides[0].Elements[0].Score != 10 {
		t.Fatalf("form JSON column mangled: %+v", got.Form)
	}

	if _, err := st.GetAssignment(ctx, "nope"); !errors.Is(err, assignment.ErrAssignmentNotFound) {
		t.Fatalf("missing row got %v", err)
	}

	got.Title = "Renamed"
	got.State = assignment.StateClosed
	if err := st.UpdateAssignment(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}
	again, _ := st.GetAssignment(ctx, "a-1")
	if again.Title != "Renamed" || again.State != assignment.StateClosed {
		t.Fatalf("update not persisted: %+v", again)
	}

	if err := st.SetGradingState(ctx, "a-1", assignment.GradingPublished); err != nil {
		t.Fatalf("set grading state: %v", err)
	}
	again, _ = st.GetAssignment(ctx, "a-1")
	if again.GradingState != assignment.GradingPublished {
		t.Fatalf("grading state not persisted: %s", again.GradingState)
	}
}

func Test_SQLite_ListAssignmentsForTasks(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	for _, a := range []assignment.Assignment{
		sqlTestAssignment("a-1", "task-1"),
		sqlTestAssignment("a-2", "task-2"),
		sqlTestAssignment("a-3", "task-3"),
	} {
		if err := st.PutAssignment(ctx, a); err != nil {
			t.Fatalf("put %s: %v", a.ID, err)
		}
	}
	// a draft in a matching task must not surface
	draft := sqlTestAssignment("a-4", "task-1")
	draft.State = assignment.StateDraft
	if err := st.PutAssignment(ctx, draft); err != nil {
		t.Fatalf("put draft: %v", err)
	}

	list, err := st.ListAssignmentsForTasks(ctx, []string{"task-1", "task-3"},
		assignment.TypeExam, assignment.StatePublished)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("got %d assignments, want 2", len(list))
	}
	for _, a := range list {
		if a.TaskID == "task-2" || a.State != assignment.StatePublished {
			t.Fatalf("filter leaked %s (%s)", a.ID, a.State)
		}
	}
}

func Test_SQLite_ConditionalSubmit(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	if err := st.PutAssignment(ctx, sqlTestAssignment("a-1", "task-1")); err != nil {
		t.Fatalf("put: %v", err)
	}
	started := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	r := assignment.Response{
		ID:           "r-1",
		AssignmentID: "a-1",
		StudentID:    "stu-1",
		Status:       assignment.StatusInProgress,
		StartedAt:    started,
	}
	if err := st.CreateResponse(ctx, r); err != nil {
		t.Fatalf("create: %v", err)
	}

	submitted := started.Add(10 * time.Minute)
	r.Status = assignment.StatusSubmitted
	r.SubmittedAt = &submitted
	r.Replies = map[string]any{"q1": "5"}
	r.IndividualScores = map[string]float64{"q1": 10}
	r.Score = 10

	applied, err := st.SubmitResponse(ctx, r)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !applied {
		t.Fatal("first submit did not apply")
	}
	got, err := st.GetResponse(ctx, "r-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != assignment.StatusSubmitted || got.Score != 10 {
		t.Fatalf("submission not persisted: %+v", got)
	}
	if got.Replies["q1"] != "5" || got.IndividualScores["q1"] != 10 {
		t.Fatalf("JSON columns mangled: %v / %v", got.Replies, got.IndividualScores)
	}
	if got.SubmittedAt == nil || !got.SubmittedAt.Equal(submitted) {
		t.Fatalf("submittedAt = %v", got.SubmittedAt)
	}

	// once graded, the conditional update must match zero rows
	if err := st.SaveGrades(ctx, "r-1", map[string]float64{"q1": 4}, 4, "partial credit"); err != nil {
		t.Fatalf("grade: %v", err)
	}
	applied, err = st.SubmitResponse(ctx, r)
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if applied {
		t.Fatal("submit overwrote a graded row")
	}
	got, _ = st.GetResponse(ctx, "r-1")
	if got.Status != assignment.StatusGraded || got.Score != 4 || got.Notes != "partial credit" {
		t.Fatalf("graded row mutated: %+v", got)
	}
}

func Test_SQLite_FindResponseSkipsWithdrawn(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	if err := st.PutAssignment(ctx, sqlTestAssignment("a-1", "task-1")); err != nil {
		t.Fatalf("put: %v", err)
	}
	started := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	first := assignment.Response{
		ID: "r-1", AssignmentID: "a-1", StudentID: "stu-1",
		Status: assignment.StatusInProgress, StartedAt: started,
	}
	if err := st.CreateResponse(ctx, first); err != nil {
		t.Fatalf("create: %v", err)
	}

	found, err := st.FindResponse(ctx, "a-1", "stu-1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found.ID != "r-1" {
		t.Fatalf("found %s", found.ID)
	}

	if err := st.SetResponseStatus(ctx, "r-1", assignment.StatusWithdrawn); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if _, err := st.FindResponse(ctx, "a-1", "stu-1"); !errors.Is(err, assignment.ErrResponseNotFound) {
		t.Fatalf("withdrawn row still found: %v", err)
	}

	// a fresh attempt after withdrawal is the one the lookup returns
	second := assignment.Response{
		ID: "r-2", AssignmentID: "a-1", StudentID: "stu-1",
		Status: assignment.StatusInProgress, StartedAt: started.Add(time.Hour),
	}
	if err := st.CreateResponse(ctx, second); err != nil {
		t.Fatalf("create second: %v", err)
	}
	found, err = st.FindResponse(ctx, "a-1", "stu-1")
	if err != nil {
		t.Fatalf("find second: %v", err)
	}
	if found.ID != "r-2" {
		t.Fatalf("found %s, want r-2", found.ID)
	}
}

func Test_SQLite_FilteredBulkPublish(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	if err := st.PutAssignment(ctx, sqlTestAssignment("a-1", "task-1")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := st.PutAssignment(ctx, sqlTestAssignment("a-2", "task-2")); err != nil {
		t.Fatalf("put: %v", err)
	}
	started := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	seed := []assignment.Response{
		{ID: "r-1", AssignmentID: "a-1", StudentID: "stu-1", Status: assignment.StatusInProgress, StartedAt: started},
		{ID: "r-2", AssignmentID: "a-1", StudentID: "stu-2", Status: assignment.StatusInProgress, StartedAt: started},
		{ID: "r-3", AssignmentID: "a-1", StudentID: "stu-3", Status: assignment.StatusInProgress, StartedAt: started},
		{ID: "r-4", AssignmentID: "a-2", StudentID: "stu-1", Status: assignment.StatusInProgress, StartedAt: started},
	}
	for _, r := range seed {
		if err := st.CreateResponse(ctx, r); err != nil {
			t.Fatalf("create %s: %v", r.ID, err)
		}
	}
	// r-1, r-2 and the other assignment's r-4 graded; r-3 stays in progress
	for _, id := range []string{"r-1", "r-2", "r-4"} {
		if err := st.SaveGrades(ctx, id, map[string]float64{"q1": 10}, 10, ""); err != nil {
			t.Fatalf("grade %s: %v", id, err)
		}
	}

	moved, err := st.PublishGradedResponses(ctx, "a-1")
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if moved != 2 {
		t.Fatalf("moved %d rows, want 2", moved)
	}
	want := map[string]assignment.Status{
		"r-1": assignment.StatusPublished,
		"r-2": assignment.StatusPublished,
		"r-3": assignment.StatusInProgress, // filter must not touch ungraded rows
		"r-4": assignment.StatusGraded,     // nor another assignment's
	}
	for id, status := range want {
		r, err := st.GetResponse(ctx, id)
		if err != nil {
			t.Fatalf("get %s: %v", id, err)
		}
		if r.Status != status {
			t.Fatalf("%s in %s, want %s", id, r.Status, status)
		}
	}

	// a re-run matches nothing
	moved, err = st.PublishGradedResponses(ctx, "a-1")
	if err != nil {
		t.Fatalf("re-publish: %v", err)
	}
	if moved != 0 {
		t.Fatalf("re-run moved %d rows", moved)
	}
}
