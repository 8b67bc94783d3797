package session

import (
	"crypto/rand"
	"encoding/hex"
	"sync"

	"github.com/prepdesk/prepdesk/internal/model"
)

// Manager owns the live sessions on this server and the transient slot
// that hands a generated quiz from the generation step to the test-taking
// step. Sessions are ephemeral: they exist only here until completion,
// at which point the result is persisted through the completion hook.
type Manager struct {
	mu         sync.Mutex
	sessions   map[string]*Session
	quizzes    map[string]model.GeneratedQuiz
	onComplete func(model.TestResult)
}

// NewManager creates a session manager. onComplete is invoked once per
// completed session with the finalized result.
func NewManager(onComplete func(model.TestResult)) *Manager {
	return &Manager{
		sessions:   make(map[string]*Session),
		quizzes:    make(map[string]model.GeneratedQuiz),
		onComplete: onComplete,
	}
}

// Start creates and starts a session for the given test and user.
func (m *Manager) Start(test model.Test, userID string) (*Session, error) {
	id, err := newSessionID()
	if err != nil {
		return nil, err
	}
	s := New(id, test, userID, m.onComplete)

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	s.Start()
	return s, nil
}

// Get returns the session with the given ID.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Remove forgets a session. Safe to call for unknown IDs.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// PutQuiz stores a generated quiz in the handoff slot keyed by its ID.
func (m *Manager) PutQuiz(q model.GeneratedQuiz) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quizzes[q.ID] = q
}

// TakeQuiz consumes the handoff slot for a quiz ID. The second return is
// false when no quiz is waiting, which callers must treat as "no test
// available".
func (m *Manager) TakeQuiz(id string) (model.GeneratedQuiz, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quizzes[id]
	if ok {
		delete(m.quizzes, id)
	}
	return q, ok
}

func newSessionID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
