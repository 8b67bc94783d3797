package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/prepdesk/prepdesk/internal/i18n"
	"github.com/prepdesk/prepdesk/internal/model"
	"github.com/prepdesk/prepdesk/internal/session"
	"github.com/prepdesk/prepdesk/internal/store"
)

type stubGenerator struct {
	quiz model.GeneratedQuiz
	err  error
}

func (g stubGenerator) Generate(context.Context, model.QuizPreferences) (model.GeneratedQuiz, error) {
	return g.quiz, g.err
}

type fixture struct {
	store  *store.Memory
	router chi.Router
}

func newFixture(t *testing.T, g Generator) *fixture {
	t.Helper()
	if err := i18n.Init("en"); err != nil {
		t.Fatalf("i18n.Init: %v", err)
	}

	mem := store.NewMemory()
	if err := store.SeedDefaultUser(mem); err != nil {
		t.Fatalf("SeedDefaultUser: %v", err)
	}
	if err := mem.SaveTest(fixtureTest()); err != nil {
		t.Fatalf("SaveTest: %v", err)
	}

	manager := session.NewManager(func(r model.TestResult) {
		if err := mem.SaveResult(r); err != nil {
			t.Errorf("SaveResult: %v", err)
		}
	})

	h := New(mem, manager, g)
	r := chi.NewRouter()
	r.Use(i18n.Middleware("en"))
	h.Routes(r)
	return &fixture{store: mem, router: r}
}

func fixtureTest() model.Test {
	return model.Test{
		ID:      "test-1",
		Title:   "Algebra Fundamentals Quiz",
		Subject: "Mathematics",
		Topic:   "Algebra",
		Questions: []model.Question{
			{
				ID:            "q1",
				Text:          "What is 2x when x = 3?",
				Type:          model.TypeMultipleChoice,
				Options:       []string{"4", "5", "6", "8"},
				CorrectAnswer: model.StringList{"6"},
				Difficulty:    model.DifficultyEasy,
				Points:        5,
			},
			{
				ID:            "q2",
				Text:          "Solve x + 1 = 3",
				Type:          model.TypeShortAnswer,
				CorrectAnswer: model.StringList{"x=2"},
				Difficulty:    model.DifficultyMedium,
				Points:        10,
			},
		},
		Duration:     30,
		TotalPoints:  15,
		PassingScore: 10,
		CreatedAt:    time.Now(),
		IsActive:     true,
	}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return v
}

func TestListTests(t *testing.T) {
	f := newFixture(t, stubGenerator{})

	w := f.do(t, http.MethodGet, "/api/tests", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	resp := decode[map[string][]testView](t, w)
	if len(resp["tests"]) != 1 {
		t.Fatalf("expected 1 test, got %d", len(resp["tests"]))
	}

	w = f.do(t, http.MethodGet, "/api/tests?subject=History", nil)
	resp = decode[map[string][]testView](t, w)
	if len(resp["tests"]) != 0 {
		t.Errorf("expected no tests for History, got %d", len(resp["tests"]))
	}
}

func TestGetTestHidesAnswers(t *testing.T) {
	f := newFixture(t, stubGenerator{})

	w := f.do(t, http.MethodGet, "/api/tests/test-1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "correctAnswer") {
		t.Error("test view must not expose correct answers")
	}

	w = f.do(t, http.MethodGet, "/api/tests/missing", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestSessionFlow(t *testing.T) {
	f := newFixture(t, stubGenerator{})

	w := f.do(t, http.MethodPost, "/api/tests/test-1/start", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("start status = %d, body %s", w.Code, w.Body.String())
	}
	start := decode[struct {
		Session session.Snapshot `json:"session"`
		Test    testView         `json:"test"`
	}](t, w)
	sessionID := start.Session.ID
	if start.Session.Status != model.StatusInProgress {
		t.Fatalf("session status = %s", start.Session.Status)
	}
	if start.Session.TimeRemaining != 30*60 {
		t.Errorf("timeRemaining = %d, want 1800", start.Session.TimeRemaining)
	}

	w = f.do(t, http.MethodPost, "/api/sessions/"+sessionID+"/answer",
		map[string]any{"question_id": "q1", "answer": "6"})
	if w.Code != http.StatusOK {
		t.Fatalf("answer status = %d, body %s", w.Code, w.Body.String())
	}

	w = f.do(t, http.MethodPost, "/api/sessions/"+sessionID+"/next", nil)
	snap := decode[session.Snapshot](t, w)
	if snap.CurrentIndex != 1 {
		t.Errorf("currentIndex = %d, want 1", snap.CurrentIndex)
	}

	w = f.do(t, http.MethodPost, "/api/sessions/"+sessionID+"/goto",
		map[string]any{"index": 5})
	if w.Code != http.StatusBadRequest {
		t.Errorf("goto out of range status = %d, want 400", w.Code)
	}

	w = f.do(t, http.MethodPost, "/api/sessions/"+sessionID+"/submit", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("submit status = %d, body %s", w.Code, w.Body.String())
	}
	result := decode[model.TestResult](t, w)
	if result.Score != 5 || result.Passed {
		t.Errorf("result = %+v", result)
	}

	// The result is persisted and attributed to the acting user.
	w = f.do(t, http.MethodGet, "/api/results/"+result.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get result status = %d", w.Code)
	}

	// The session is gone once submitted.
	w = f.do(t, http.MethodGet, "/api/sessions/"+sessionID, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("session lookup after submit = %d, want 404", w.Code)
	}
}

func TestListResults(t *testing.T) {
	f := newFixture(t, stubGenerator{})

	w := f.do(t, http.MethodGet, "/api/results", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	resp := decode[map[string][]model.TestResult](t, w)
	if len(resp["results"]) != 0 {
		t.Errorf("expected empty results, got %d", len(resp["results"]))
	}
}

func TestGenerate(t *testing.T) {
	quiz := model.GeneratedQuiz{
		ID:    "quiz-123",
		Title: "Algebra Quiz",
		Questions: []model.QuizQuestion{
			{ID: 1, Question: "2+2?", Options: []string{"3", "4", "5", "6"}, CorrectAnswer: 1},
		},
		Instructions: "Pick the best answer.",
		CreatedAt:    time.Now(),
	}
	f := newFixture(t, stubGenerator{quiz: quiz})

	w := f.do(t, http.MethodPost, "/api/practice/generate",
		model.QuizPreferences{Subject: "Mathematics", Topic: "Algebra", Difficulty: "easy"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	resp := decode[struct {
		ID   string              `json:"id"`
		Quiz model.GeneratedQuiz `json:"quiz"`
	}](t, w)
	if resp.ID != "quiz-123" || len(resp.Quiz.Questions) != 1 {
		t.Errorf("response = %+v", resp)
	}

	// The generated quiz is waiting in the handoff slot.
	w = f.do(t, http.MethodPost, "/api/practice/quiz-123/start", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("practice start status = %d, body %s", w.Code, w.Body.String())
	}

	// The slot is consumed: a second start finds no test available.
	w = f.do(t, http.MethodPost, "/api/practice/quiz-123/start", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("second practice start = %d, want 404", w.Code)
	}
}

func TestGenerateFailure(t *testing.T) {
	f := newFixture(t, stubGenerator{err: errors.New("no response received from model")})

	w := f.do(t, http.MethodPost, "/api/practice/generate",
		model.QuizPreferences{Subject: "Mathematics", Topic: "Algebra"})
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	resp := decode[map[string]string](t, w)
	if resp["error"] == "" || resp["details"] == "" {
		t.Errorf("error body = %v, want error and details", resp)
	}
}

func TestPracticeStartWithoutQuiz(t *testing.T) {
	f := newFixture(t, stubGenerator{})

	w := f.do(t, http.MethodPost, "/api/practice/nothing-here/start", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	resp := decode[map[string]string](t, w)
	if !strings.Contains(resp["error"], "No test available") {
		t.Errorf("error = %q", resp["error"])
	}
}

func TestUnknownUserRejected(t *testing.T) {
	f := newFixture(t, stubGenerator{})

	req := httptest.NewRequest(http.MethodGet, "/api/tests", nil)
	req.Header.Set("X-User", "ghost")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}
