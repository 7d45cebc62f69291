package assignment

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// SQLStore persists assignments and responses over database/sql. Document
// shaped fields (the form, raw replies, score maps) live in JSON text
// columns; the SQL text works for both the pgx and the modernc sqlite
// driver.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) PutAssignment(ctx context.Context, a Assignment) error {
	fj, err := json.Marshal(a.Form)
	if err != nil {
		return fmt.Errorf("encode form: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO assignments
		(id,title,created_by,state,grading_state,type,task_id,duration_minutes,passing_score,available_from,available_until,form_json,created_at,updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		a.ID, a.Title, a.CreatedBy, string(a.State), string(a.GradingState), string(a.Type),
		a.TaskID, a.DurationInMinutes, a.PassingScore,
		a.AvailableFrom.Unix(), a.AvailableUntil.Unix(), string(fj),
		a.CreatedAt.Unix(), a.UpdatedAt.Unix())
	return err
}

const assignmentCols = `id,title,created_by,state,grading_state,type,task_id,duration_minutes,passing_score,available_from,available_until,form_json,created_at,updated_at`

func (s *SQLStore) GetAssignment(ctx context.Context, id string) (Assignment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+assignmentCols+` FROM assignments WHERE id=$1`, id)
	a, err := scanAssignment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Assignment{}, ErrAssignmentNotFound
	}
	return a, err
}

func (s *SQLStore) UpdateAssignment(ctx context.Context, a Assignment) error {
	fj, err := json.Marshal(a.Form)
	if err != nil {
		return fmt.Errorf("encode form: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE assignments SET
		title=$1, state=$2, grading_state=$3, type=$4, task_id=$5,
		duration_minutes=$6, passing_score=$7, available_from=$8,
		available_until=$9, form_json=$10, updated_at=$11
		WHERE id=$12`,
		a.Title, string(a.State), string(a.GradingState), string(a.Type), a.TaskID,
		a.DurationInMinutes, a.PassingScore, a.AvailableFrom.Unix(),
		a.AvailableUntil.Unix(), string(fj), a.UpdatedAt.Unix(), a.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAssignmentNotFound
	}
	return nil
}

func (s *SQLStore) ListAssignmentsForTasks(ctx context.Context, taskIDs []string, typ Type, state State) ([]Assignment, error) {
	if len(taskIDs) == 0 {
		return []Assignment{}, nil
	}
	ph := make([]string, len(taskIDs))
	args := make([]any, 0, len(taskIDs)+2)
	args = append(args, string(typ), string(state))
	for i, id := range taskIDs {
		ph[i] = fmt.Sprintf("$%d", i+3)
		args = append(args, id)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+assignmentCols+` FROM assignments
		 WHERE type=$1 AND state=$2 AND task_id IN (`+strings.Join(ph, ",")+`)
		 ORDER BY available_from`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Assignment{}
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLStore) SetGradingState(ctx context.Context, assignmentID string, gs GradingState) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE assignments SET grading_state=$1, updated_at=$2 WHERE id=$3`,
		string(gs), time.Now().Unix(), assignmentID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAssignmentNotFound
	}
	return nil
}

func (s *SQLStore) CreateResponse(ctx context.Context, r Response) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO assignment_responses
		(id,assignment_id,student_id,status,started_at,replies_json,scores_json,score,notes)
		VALUES ($1,$2,$3,$4,$5,'null','null',0,'')`,
		r.ID, r.AssignmentID, r.StudentID, string(r.Status), r.StartedAt.Unix())
	return err
}

const responseCols = `id,assignment_id,student_id,status,started_at,submitted_at,replies_json,scores_json,score,notes`

func (s *SQLStore) GetResponse(ctx context.Context, id string) (Response, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+responseCols+` FROM assignment_responses WHERE id=$1`, id)
	r, err := scanResponse(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Response{}, ErrResponseNotFound
	}
	return r, err
}

func (s *SQLStore) FindResponse(ctx context.Context, assignmentID, studentID string) (Response, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+responseCols+` FROM assignment_responses
		 WHERE assignment_id=$1 AND student_id=$2 AND status<>$3
		 ORDER BY started_at DESC LIMIT 1`,
		assignmentID, studentID, string(StatusWithdrawn))
	r, err := scanResponse(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Response{}, ErrResponseNotFound
	}
	return r, err
}

func (s *SQLStore) ListResponses(ctx context.Context, assignmentID string) ([]Response, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+responseCols+` FROM assignment_responses
		 WHERE assignment_id=$1 AND status<>$2 ORDER BY started_at`,
		assignmentID, string(StatusWithdrawn))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Response{}
	for rows.Next() {
		r, err := scanResponse(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SubmitResponse writes the scored submission in a single conditional
// update: it only applies while the row has not been graded yet, closing
// the read-then-write gap between the status check and the write.
func (s *SQLStore) SubmitResponse(ctx context.Context, r Response) (bool, error) {
	rj, err := json.Marshal(r.Replies)
	if err != nil {
		return false, fmt.Errorf("encode replies: %w", err)
	}
	sj, err := json.Marshal(r.IndividualScores)
	if err != nil {
		return false, fmt.Errorf("encode scores: %w", err)
	}
	var submittedAt int64
	if r.SubmittedAt != nil {
		submittedAt = r.SubmittedAt.Unix()
	}
	res, err := s.db.ExecContext(ctx, `UPDATE assignment_responses SET
		status=$1, submitted_at=$2, replies_json=$3, scores_json=$4, score=$5
		WHERE id=$6 AND status<>$7`,
		string(StatusSubmitted), submittedAt, string(rj), string(sj), r.Score,
		r.ID, string(StatusGraded))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLStore) SaveGrades(ctx context.Context, responseID string, scores map[string]float64, total float64, notes string) error {
	sj, err := json.Marshal(scores)
	if err != nil {
		return fmt.Errorf("encode scores: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE assignment_responses SET
		status=$1, scores_json=$2, score=$3, notes=$4 WHERE id=$5`,
		string(StatusGraded), string(sj), total, notes, responseID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrResponseNotFound
	}
	return nil
}

func (s *SQLStore) SetResponseStatus(ctx context.Context, responseID string, status Status) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE assignment_responses SET status=$1 WHERE id=$2`,
		string(status), responseID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrResponseNotFound
	}
	return nil
}

// PublishGradedResponses is the coordinator's bulk step. The status filter
// doubles as the concurrency control: rows in any other state are never
// touched, and a re-run over already-published rows matches nothing.
func (s *SQLStore) PublishGradedResponses(ctx context.Context, assignmentID string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE assignment_responses SET status=$1 WHERE assignment_id=$2 AND status=$3`,
		string(StatusPublished), assignmentID, string(StatusGraded))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAssignment(row rowScanner) (Assignment, error) {
	var (
		a              Assignment
		state, gs, typ string
		from, until    int64
		created, upd   int64
		fj             string
	)
	if err := row.Scan(&a.ID, &a.Title, &a.CreatedBy, &state, &gs, &typ, &a.TaskID,
		&a.DurationInMinutes, &a.PassingScore, &from, &until, &fj, &created, &upd); err != nil {
		return Assignment{}, err
	}
	a.State = State(state)
	a.GradingState = GradingState(gs)
	a.Type = Type(typ)
	a.AvailableFrom = time.Unix(from, 0).UTC()
	a.AvailableUntil = time.Unix(until, 0).UTC()
	a.CreatedAt = time.Unix(created, 0).UTC()
	a.UpdatedAt = time.Unix(upd, 0).UTC()
	if err := json.Unmarshal([]byte(fj), &a.Form); err != nil {
		return Assignment{}, fmt.Errorf("decode form: %w", err)
	}
	return a, nil
}

func scanResponse(row rowScanner) (Response, error) {
	var (
		r         Response
		status    string
		started   int64
		submitted sql.NullInt64
		rj, sj    string
	)
	if err := row.Scan(&r.ID, &r.AssignmentID, &r.StudentID, &status, &started,
		&submitted, &rj, &sj, &r.Score, &r.Notes); err != nil {
		return Response{}, err
	}
	r.Status = Status(status)
	r.StartedAt = time.Unix(started, 0).UTC()
	if submitted.Valid && submitted.Int64 > 0 {
		t := time.Unix(submitted.Int64, 0).UTC()
		r.SubmittedAt = &t
	}
	if err := json.Unmarshal([]byte(rj), &r.Replies); err != nil {
		r.Replies = nil
	}
	if err := json.Unmarshal([]byte(sj), &r.IndividualScores); err != nil {
		r.IndividualScores = nil
	}
	return r, nil
}

var _ Store = (*SQLStore)(nil)
