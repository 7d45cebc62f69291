// Package catalog is the thin read model over programs, levels, tasks and
// subscriptions that the grading core consumes. It stays deliberately
// minimal: reachability lookups and the task-removal cascade, nothing more.
package catalog

import (
	"context"
	"database/sql"
)

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// ActiveTaskIDs walks the student's active subscriptions down the
// program -> levels -> tasks chain and returns every reachable task id.
func (s *SQLStore) ActiveTaskIDs(ctx context.Context, studentID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id
		FROM tasks t
		JOIN levels l ON l.id = t.level_id
		JOIN subscriptions sub ON sub.program_id = l.program_id
		WHERE sub.student_id = $1 AND sub.status = 'active' AND t.state = 'active'`,
		studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// RemoveTask soft-deletes a task. Missing tasks are not an error: the
// cascade from assignment removal must be idempotent.
func (s *SQLStore) RemoveTask(ctx context.Context, taskID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET state='deleted' WHERE id=$1`, taskID)
	return err
}
