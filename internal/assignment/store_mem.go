package assignment

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is a mutex-guarded map-backed Store for tests and offline
// experiments. It mirrors the SQL store's semantics, including the
// conditional submit and the filtered bulk publish.
type MemoryStore struct {
	mu          sync.RWMutex
	assignments map[string]Assignment
	responses   map[string]Response
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		assignments: map[string]Assignment{},
		responses:   map[string]Response{},
	}
}

func (m *MemoryStore) PutAssignment(_ context.Context, a Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assignments[a.ID] = a
	return nil
}

func (m *MemoryStore) GetAssignment(_ context.Context, id string) (Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.assignments[id]
	if !ok {
		return Assignment{}, ErrAssignmentNotFound
	}
	return a, nil
}

func (m *MemoryStore) UpdateAssignment(_ context.Context, a Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.assignments[a.ID]; !ok {
		return ErrAssignmentNotFound
	}
	m.assignments[a.ID] = a
	return nil
}

func (m *MemoryStore) ListAssignmentsForTasks(_ context.Context, taskIDs []string, typ Type, state State) ([]Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	wanted := map[string]bool{}
	for _, id := range taskIDs {
		wanted[id] = true
	}
	out := []Assignment{}
	for _, a := range m.assignments {
		if a.Type == typ && a.State == state && wanted[a.TaskID] {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AvailableFrom.Before(out[j].AvailableFrom) })
	return out, nil
}

func (m *MemoryStore) SetGradingState(_ context.Context, assignmentID string, gs GradingState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assignments[assignmentID]
	if !ok {
		return ErrAssignmentNotFound
	}
	a.GradingState = gs
	m.assignments[assignmentID] = a
	return nil
}

func (m *MemoryStore) CreateResponse(_ context.Context, r Response) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[r.ID] = r
	return nil
}

func (m *MemoryStore) GetResponse(_ context.Context, id string) (Response, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.responses[id]
	if !ok {
		return Response{}, ErrResponseNotFound
	}
	return r, nil
}

func (m *MemoryStore) FindResponse(_ context.Context, assignmentID, studentID string) (Response, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.responses {
		if r.AssignmentID == assignmentID && r.StudentID == studentID && r.Status != StatusWithdrawn {
			return r, nil
		}
	}
	return Response{}, ErrResponseNotFound
}

func (m *MemoryStore) ListResponses(_ context.Context, assignmentID string) ([]Response, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Response{}
	for _, r := range m.responses {
		if r.AssignmentID == assignmentID && r.Status != StatusWithdrawn {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}

func (m *MemoryStore) SubmitResponse(_ context.Context, r Response) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.responses[r.ID]
	if !ok || cur.Status == StatusGraded {
		return false, nil
	}
	m.responses[r.ID] = r
	return true, nil
}

func (m *MemoryStore) SaveGrades(_ context.Context, responseID string, scores map[string]float64, total float64, notes string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.responses[responseID]
	if !ok {
		return ErrResponseNotFound
	}
	r.Status = StatusGraded
	r.IndividualScores = scores
	r.Score = total
	r.Notes = notes
	m.responses[responseID] = r
	return nil
}

func (m *MemoryStore) SetResponseStatus(_ context.Context, responseID string, status Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.responses[responseID]
	if !ok {
		return ErrResponseNotFound
	}
	r.Status = status
	m.responses[responseID] = r
	return nil
}

func (m *MemoryStore) PublishGradedResponses(_ context.Context, assignmentID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, r := range m.responses {
		if r.AssignmentID == assignmentID && r.Status == StatusGraded {
			r.Status = StatusPublished
			m.responses[id] = r
			n++
		}
	}
	return n, nil
}

var _ Store = (*MemoryStore)(nil)
