// Package session drives a single timed test-taking attempt: navigation,
// answer capture, the countdown, and the one-way transition into a scored
// result.
package session

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/prepdesk/prepdesk/internal/model"
	"github.com/prepdesk/prepdesk/internal/scoring"
)

var (
	// ErrNotStarted is returned for operations that require a running session.
	ErrNotStarted = errors.New("session not started")
	// ErrNotActive is returned when the session has already completed.
	ErrNotActive = errors.New("session already completed")
	// ErrIndexOutOfRange is returned by GoTo for an invalid question index.
	ErrIndexOutOfRange = errors.New("question index out of range")
)

// Session is one user's in-progress attempt at a test. All mutable state
// is guarded by the mutex because the countdown goroutine and HTTP
// handlers race on the terminal transition; finalize is idempotent, so
// whichever trigger arrives second is a no-op.
type Session struct {
	ID     string
	UserID string

	mu            sync.Mutex
	test          model.Test
	currentIndex  int
	answers       map[string]model.StringList
	timeRemaining int // seconds
	status        model.SessionStatus
	result        *model.TestResult
	done          chan struct{}
	onComplete    func(model.TestResult)
}

// New creates a session in the not_started state with the full duration
// on the clock. onComplete fires exactly once, when the session reaches
// completed; it receives the finalized result (persistence hook).
func New(id string, test model.Test, userID string, onComplete func(model.TestResult)) *Session {
	return &Session{
		ID:            id,
		UserID:        userID,
		test:          test,
		answers:       make(map[string]model.StringList),
		timeRemaining: test.Duration * 60,
		status:        model.StatusNotStarted,
		done:          make(chan struct{}),
		onComplete:    onComplete,
	}
}

// Test returns the test being taken. Read-only once the session exists.
func (s *Session) Test() model.Test {
	return s.test
}

// Start moves the session into in_progress and begins the countdown.
// Starting twice is a no-op.
func (s *Session) Start() {
	s.mu.Lock()
	if s.status != model.StatusNotStarted {
		s.mu.Unlock()
		return
	}
	s.status = model.StatusInProgress
	s.mu.Unlock()

	go s.countdown()
}

// countdown decrements the clock once per second until the session
// completes. Ticks stop the instant the session leaves in_progress.
func (s *Session) countdown() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if s.tick() {
				return
			}
		}
	}
}

// tick consumes one second. It reports true when the session is no
// longer in progress, either because time ran out (which triggers the
// same finalize path as a manual submit) or because a submit won the
// race.
func (s *Session) tick() bool {
	s.mu.Lock()
	if s.status != model.StatusInProgress {
		s.mu.Unlock()
		return true
	}
	if s.timeRemaining > 0 {
		s.timeRemaining--
	}
	expired := s.timeRemaining == 0
	s.mu.Unlock()

	if expired {
		s.finalize()
		return true
	}
	return false
}

// RecordAnswer upserts the answer for a question. Overwriting a prior
// answer is expected (back-and-forth navigation); no validation against
// the question type happens here.
func (s *Session) RecordAnswer(questionID string, answer model.StringList) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.status {
	case model.StatusNotStarted:
		return ErrNotStarted
	case model.StatusCompleted:
		return ErrNotActive
	}
	s.answers[questionID] = answer
	return nil
}

// GoTo jumps to the given question index.
func (s *Session) GoTo(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.test.Questions) {
		return ErrIndexOutOfRange
	}
	s.currentIndex = index
	return nil
}

// Next advances to the following question. At the last question it is a
// no-op, not an error.
func (s *Session) Next() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentIndex < len(s.test.Questions)-1 {
		s.currentIndex++
	}
}

// Previous moves to the preceding question, clamped at index 0.
func (s *Session) Previous() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentIndex > 0 {
		s.currentIndex--
	}
}

// Submit finalizes the session and returns the scored result. Submitting
// an already-completed session returns the stored result unchanged, so
// the manual path and the timer path can race safely. A submission with
// zero recorded answers is permitted: the timer path completes regardless
// of answer count, and manual submission behaves the same way.
func (s *Session) Submit() model.TestResult {
	return s.finalize()
}

// finalize performs the in_progress -> completed transition exactly once.
// The scoring engine runs a single time over the full answer mapping; the
// resulting TestResult is immutable from then on.
func (s *Session) finalize() model.TestResult {
	s.mu.Lock()
	if s.status == model.StatusCompleted {
		r := *s.result
		s.mu.Unlock()
		return r
	}
	s.status = model.StatusCompleted
	close(s.done)

	summary, answers := scoring.Score(s.test, s.answers)
	result := model.TestResult{
		ID:          newResultID(),
		UserID:      s.UserID,
		TestID:      s.test.ID,
		Score:       summary.Score,
		TotalPoints: summary.TotalPoints,
		Percentage:  summary.Percentage,
		Passed:      summary.Passed,
		CompletedAt: time.Now(),
		Answers:     answers,
	}
	s.result = &result
	onComplete := s.onComplete
	s.mu.Unlock()

	if onComplete != nil {
		onComplete(result)
	}
	return result
}

// Remaining returns the seconds left on the clock.
func (s *Session) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeRemaining
}

// Result returns the finalized result, or nil while the session is still
// running.
func (s *Session) Result() *model.TestResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return nil
	}
	r := *s.result
	return &r
}

// Snapshot is the caller-facing view of session state.
type Snapshot struct {
	ID            string              `json:"id"`
	TestID        string              `json:"testId"`
	Status        model.SessionStatus `json:"status"`
	CurrentIndex  int                 `json:"currentIndex"`
	TimeRemaining int                 `json:"timeRemaining"`
	Answered      []string            `json:"answered"`
	QuestionCount int                 `json:"questionCount"`
}

// Snapshot returns a consistent view of the session's current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	answered := make([]string, 0, len(s.answers))
	for _, q := range s.test.Questions {
		if _, ok := s.answers[q.ID]; ok {
			answered = append(answered, q.ID)
		}
	}
	return Snapshot{
		ID:            s.ID,
		TestID:        s.test.ID,
		Status:        s.status,
		CurrentIndex:  s.currentIndex,
		TimeRemaining: s.timeRemaining,
		Answered:      answered,
		QuestionCount: len(s.test.Questions),
	}
}

func newResultID() string {
	return fmt.Sprintf("result-%d-%04d", time.Now().UnixMilli(), rand.IntN(10000))
}
