package store

import (
	"database/sql"
	"sort"
	"strings"
	"sync"

	"github.com/prepdesk/prepdesk/internal/model"
)

// Memory is an in-memory Store. It is the trivial implementation of the
// repository interface (the original data source was a set of mock
// arrays) and the store double used by handler tests.
type Memory struct {
	mu      sync.RWMutex
	tests   map[string]model.Test
	users   map[string]model.User
	results map[string]model.TestResult
	imports map[string]string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		tests:   make(map[string]model.Test),
		users:   make(map[string]model.User),
		results: make(map[string]model.TestResult),
		imports: make(map[string]string),
	}
}

func (m *Memory) Close() error { return nil }

func (m *Memory) SaveTest(t model.Test) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tests[t.ID] = t
	return nil
}

func (m *Memory) GetTest(id string) (model.Test, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tests[id]
	if !ok {
		return model.Test{}, sql.ErrNoRows
	}
	return t, nil
}

func (m *Memory) ListTests(filter model.TestFilter) ([]model.Test, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var tests []model.Test
	for _, t := range m.tests {
		if matchTest(t, filter) {
			tests = append(tests, t)
		}
	}
	sort.Slice(tests, func(i, j int) bool {
		return tests[i].CreatedAt.After(tests[j].CreatedAt)
	})
	return tests, nil
}

func matchTest(t model.Test, filter model.TestFilter) bool {
	if filter.Subject != "" && t.Subject != filter.Subject {
		return false
	}
	if filter.Topic != "" && t.Topic != filter.Topic {
		return false
	}
	if filter.ActiveOnly && !t.IsActive {
		return false
	}
	if filter.Query != "" {
		q := strings.ToLower(filter.Query)
		if !strings.Contains(strings.ToLower(t.Title), q) &&
			!strings.Contains(strings.ToLower(t.Topic), q) {
			return false
		}
	}
	if filter.Difficulty != "" {
		found := false
		for _, question := range t.Questions {
			if question.Difficulty == filter.Difficulty {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (m *Memory) TestCount() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tests), nil
}

func (m *Memory) SaveUser(u model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	return nil
}

func (m *Memory) GetUser(id string) (model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return model.User{}, sql.ErrNoRows
	}
	return u, nil
}

func (m *Memory) UserCount() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users), nil
}

func (m *Memory) SaveResult(r model.TestResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[r.ID] = r
	return nil
}

func (m *Memory) GetResult(id string) (model.TestResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.results[id]
	if !ok {
		return model.TestResult{}, sql.ErrNoRows
	}
	return r, nil
}

func (m *Memory) ListResults(userID string) ([]model.TestResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var results []model.TestResult
	for _, r := range m.results {
		if userID == "" || r.UserID == userID {
			results = append(results, r)
		}
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].CompletedAt.After(results[j].CompletedAt)
	})
	return results, nil
}

func (m *Memory) GetImportedFileHash(path string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.imports[path], nil
}

func (m *Memory) SetImportedFileHash(path, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.imports[path] = hash
	return nil
}

var _ Store = (*Memory)(nil)
