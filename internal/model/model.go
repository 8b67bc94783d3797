package model

import (
	"context"
	"encoding/json"
	"time"
)

// UserRole represents a user's access level.
type UserRole string

const (
	// UserRoleStudent is a student user role.
	UserRoleStudent UserRole = "student"
	// UserRoleTeacher is a teacher user role.
	UserRoleTeacher UserRole = "teacher"
	// UserRoleAdmin is an admin user role.
	UserRoleAdmin UserRole = "admin"
)

// User represents a system user. Identity is injected by the caller
// (there is no authentication layer); the default seeded student stands
// in for a signed-in user.
type User struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Role        UserRole  `json:"role"`
	Grade       string    `json:"grade,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type userCtxKey struct{}

// ContextWithUser stores the acting user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the acting user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

// QuestionType determines both the input widget and the grading strategy.
type QuestionType string

const (
	TypeMultipleChoice QuestionType = "multiple_choice"
	TypeTrueFalse      QuestionType = "true_false"
	TypeShortAnswer    QuestionType = "short_answer"
	TypeEssay          QuestionType = "essay"
)

// Difficulty represents question difficulty level. Informational only;
// it does not affect scoring weight.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// StringList is a JSON value that may be encoded either as a bare string
// or as an array of strings. Question answers use it so select-one and
// select-many responses share one representation.
type StringList []string

// UnmarshalJSON accepts "value" and ["a", "b"] alike.
func (l *StringList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*l = StringList{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*l = StringList(many)
	return nil
}

// MarshalJSON emits a bare string for single values, preserving the wire
// shape the original data used.
func (l StringList) MarshalJSON() ([]byte, error) {
	if len(l) == 1 {
		return json.Marshal(l[0])
	}
	return json.Marshal([]string(l))
}

// Empty reports whether the list holds no non-empty value.
func (l StringList) Empty() bool {
	for _, s := range l {
		if s != "" {
			return false
		}
	}
	return true
}

// Question is a unit of assessment content, immutable during a session.
type Question struct {
	ID            string       `json:"id"`
	Text          string       `json:"text"`
	Type          QuestionType `json:"type"`
	Options       []string     `json:"options,omitempty"`
	CorrectAnswer StringList   `json:"correctAnswer"`
	Explanation   string       `json:"explanation,omitempty"`
	Difficulty    Difficulty   `json:"difficulty"`
	Points        int          `json:"points"`
}

// Answer is a user's response to one question, captured during a session.
// IsCorrect and PointsEarned are derived exactly once, at scoring time.
type Answer struct {
	QuestionID   string     `json:"questionId"`
	UserAnswer   StringList `json:"userAnswer"`
	IsCorrect    bool       `json:"isCorrect"`
	PointsEarned int        `json:"pointsEarned"`
}

// Test is an ordered assessment unit, read-only once a session starts.
type Test struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Subject      string     `json:"subject"`
	Topic        string     `json:"topic"`
	Questions    []Question `json:"questions"`
	Duration     int        `json:"duration"` // minutes
	TotalPoints  int        `json:"totalPoints"`
	PassingScore int        `json:"passingScore"`
	CreatedAt    time.Time  `json:"createdAt"`
	IsActive     bool       `json:"isActive"`
}

// SumPoints returns the sum of the constituent question points.
// Authoring and generation must keep TotalPoints equal to this.
func (t Test) SumPoints() int {
	total := 0
	for _, q := range t.Questions {
		total += q.Points
	}
	return total
}

// TestResult is the immutable, scored record of a completed session.
type TestResult struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	TestID      string    `json:"testId"`
	Score       int       `json:"score"`
	TotalPoints int       `json:"totalPoints"`
	Percentage  int       `json:"percentage"`
	Passed      bool      `json:"passed"`
	CompletedAt time.Time `json:"completedAt"`
	Answers     []Answer  `json:"answers"`
}

// SessionStatus represents the status of a test-taking session.
type SessionStatus string

const (
	StatusNotStarted SessionStatus = "not_started"
	StatusInProgress SessionStatus = "in_progress"
	StatusCompleted  SessionStatus = "completed"
)

// QuizPreferences is the user-supplied input to the quiz generation
// pipeline.
type QuizPreferences struct {
	Subject       string   `json:"subject"`
	Topic         string   `json:"topic"`
	Difficulty    string   `json:"difficulty"`
	QuestionCount int      `json:"questionCount"`
	QuestionTypes []string `json:"questionTypes"`
	FocusAreas    []string `json:"focusAreas"`
}

// QuizQuestion is a single generated question. CorrectAnswer is a
// zero-based index into Options.
type QuizQuestion struct {
	ID            int      `json:"id"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
	Explanation   string   `json:"explanation,omitempty"`
}

// GeneratedQuiz is the structured quiz document produced by the AI
// pipeline.
type GeneratedQuiz struct {
	ID            string         `json:"id"`
	Title         string         `json:"title"`
	Subject       string         `json:"subject"`
	Topic         string         `json:"topic"`
	Difficulty    string         `json:"difficulty"`
	QuestionCount int            `json:"questionCount"`
	Questions     []QuizQuestion `json:"questions"`
	Instructions  string         `json:"instructions"`
	CreatedAt     time.Time      `json:"createdAt"`
}

// TestFilter narrows ListTests results. Zero values mean no filtering on
// that field.
type TestFilter struct {
	Subject    string
	Topic      string
	Difficulty Difficulty
	Query      string
	ActiveOnly bool
}
