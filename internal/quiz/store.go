package quiz

import (
	"context"
	"sort"
	"sync"
)

type memoryStore struct {
	mu        sync.RWMutex
	tests     map[string]Test
	questions map[string]Question
}

// newInMemoryStore returns a Store kept in process memory. Tests use it to
// exercise the service without a database.
func newInMemoryStore() Store {
	return &memoryStore{
		tests:     map[string]Test{},
		questions: map[string]Question{},
	}
}

func (m *memoryStore) CreateTest(_ context.Context, t Test) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tests[t.ID] = t
	return nil
}

func (m *memoryStore) GetTest(_ context.Context, owner, id string) (Test, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tests[id]
	if !ok || t.Owner != owner {
		return Test{}, ErrNotFound
	}
	return t, nil
}

func (m *memoryStore) ListTests(_ context.Context, owner string) ([]Test, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Test{}
	for _, t := range m.tests {
		if t.Owner == owner {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *memoryStore) UpdateTest(_ context.Context, t Test) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.tests[t.ID]
	if !ok || cur.Owner != t.Owner {
		return ErrNotFound
	}
	cur.Name, cur.Description, cur.UpdatedAt = t.Name, t.Description, t.UpdatedAt
	m.tests[t.ID] = cur
	return nil
}

func (m *memoryStore) DeleteTest(_ context.Context, owner, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tests[id]
	if !ok || t.Owner != owner {
		return ErrNotFound
	}
	delete(m.tests, id)
	for qid, q := range m.questions {
		if q.TestID == id {
			delete(m.questions, qid)
		}
	}
	return nil
}

func (m *memoryStore) CreateQuestion(_ context.Context, q Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.questions[q.ID] = cloneQuestion(q)
	return nil
}

func (m *memoryStore) GetQuestion(_ context.Context, owner, id string) (Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.questions[id]
	if !ok || q.Owner != owner {
		return Question{}, ErrNotFound
	}
	return cloneQuestion(q), nil
}

func (m *memoryStore) ListQuestions(_ context.Context, owner, testID string) ([]Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Question{}
	for _, q := range m.questions {
		if q.TestID == testID && q.Owner == owner {
			out = append(out, cloneQuestion(q))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *memoryStore) UpdateAnswer(_ context.Context, q Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.questions[q.ID]
	if !ok || cur.Owner != q.Owner {
		return ErrNotFound
	}
	cur.UserAnswer, cur.Feedback, cur.UpdatedAt = q.UserAnswer, q.Feedback, q.UpdatedAt
	cur.Score = copyScore(q.Score)
	m.questions[q.ID] = cur
	return nil
}

func (m *memoryStore) DeleteQuestion(_ context.Context, owner, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.questions[id]
	if !ok || q.Owner != owner {
		return ErrNotFound
	}
	delete(m.questions, id)
	return nil
}

// cloneQuestion detaches the score pointer from the caller's copy.
func cloneQuestion(q Question) Question {
	q.Score = copyScore(q.Score)
	return q
}

func copyScore(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
