// Package handler exposes the JSON API: browsing tests, driving timed
// test-taking sessions, reading results, and generating practice
// quizzes.
package handler

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/prepdesk/prepdesk/internal/i18n"
	"github.com/prepdesk/prepdesk/internal/model"
	"github.com/prepdesk/prepdesk/internal/session"
	"github.com/prepdesk/prepdesk/internal/store"
)

// userHeader names the header carrying the injected identity. There is
// no authentication; absent the header the default seeded student acts.
const userHeader = "X-User"

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store     store.Store
	sessions  *session.Manager
	generator Generator
}

// New creates a new Handler.
func New(s store.Store, m *session.Manager, g Generator) *Handler {
	return &Handler{store: s, sessions: m, generator: g}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Use(h.identity)

		r.Get("/tests", h.handleListTests)
		r.Get("/tests/{testID}", h.handleGetTest)
		r.Post("/tests/{testID}/start", h.handleStartTest)

		r.Get("/sessions/{sessionID}", h.handleGetSession)
		r.Post("/sessions/{sessionID}/answer", h.handleAnswer)
		r.Post("/sessions/{sessionID}/goto", h.handleGoTo)
		r.Post("/sessions/{sessionID}/next", h.handleNext)
		r.Post("/sessions/{sessionID}/previous", h.handlePrevious)
		r.Post("/sessions/{sessionID}/submit", h.handleSubmit)

		r.Get("/results", h.handleListResults)
		r.Get("/results/{resultID}", h.handleGetResult)

		r.Post("/practice/generate", h.handleGenerate)
		r.Post("/practice/{quizID}/start", h.handlePracticeStart)
	})
}

// identity resolves the acting user into the request context. The
// identity is injected, never verified; unknown IDs are rejected so
// results are always attributed to a stored user.
func (h *Handler) identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(userHeader)
		if id == "" {
			id = store.DefaultUserID
		}
		u, err := h.store.GetUser(id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				respondError(w, r, http.StatusUnauthorized, "unknown user", "")
				return
			}
			respondError(w, r, http.StatusInternalServerError, err.Error(), "")
			return
		}
		ctx := model.ContextWithUser(r.Context(), &u)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// questionView is a question as shown to a test taker: no correct
// answer, no explanation.
type questionView struct {
	ID         string             `json:"id"`
	Text       string             `json:"text"`
	Type       model.QuestionType `json:"type"`
	Options    []string           `json:"options,omitempty"`
	Difficulty model.Difficulty   `json:"difficulty"`
	Points     int                `json:"points"`
}

// testView is a test stripped of grading data.
type testView struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Subject      string         `json:"subject"`
	Topic        string         `json:"topic"`
	Questions    []questionView `json:"questions"`
	Duration     int            `json:"duration"`
	TotalPoints  int            `json:"totalPoints"`
	PassingScore int            `json:"passingScore"`
	CreatedAt    string         `json:"createdAt"`
	IsActive     bool           `json:"isActive"`
}

func newTestView(t model.Test) testView {
	questions := make([]questionView, 0, len(t.Questions))
	for _, q := range t.Questions {
		questions = append(questions, questionView{
			ID:         q.ID,
			Text:       q.Text,
			Type:       q.Type,
			Options:    q.Options,
			Difficulty: q.Difficulty,
			Points:     q.Points,
		})
	}
	return testView{
		ID:           t.ID,
		Title:        t.Title,
		Subject:      t.Subject,
		Topic:        t.Topic,
		Questions:    questions,
		Duration:     t.Duration,
		TotalPoints:  t.TotalPoints,
		PassingScore: t.PassingScore,
		CreatedAt:    t.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		IsActive:     t.IsActive,
	}
}

func (h *Handler) handleListTests(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.TestFilter{
		Subject:    q.Get("subject"),
		Topic:      q.Get("topic"),
		Difficulty: model.Difficulty(q.Get("difficulty")),
		Query:      q.Get("q"),
		ActiveOnly: q.Get("all") == "",
	}

	tests, err := h.store.ListTests(filter)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, err.Error(), "")
		return
	}
	views := make([]testView, 0, len(tests))
	for _, t := range tests {
		views = append(views, newTestView(t))
	}
	respondJSON(w, http.StatusOK, map[string]any{"tests": views})
}

func (h *Handler) handleGetTest(w http.ResponseWriter, r *http.Request) {
	t, err := h.store.GetTest(chi.URLParam(r, "testID"))
	if err != nil {
		h.respondStoreError(w, r, err, "TestNotFound")
		return
	}
	respondJSON(w, http.StatusOK, newTestView(t))
}

func (h *Handler) handleStartTest(w http.ResponseWriter, r *http.Request) {
	t, err := h.store.GetTest(chi.URLParam(r, "testID"))
	if err != nil {
		h.respondStoreError(w, r, err, "TestNotFound")
		return
	}
	h.startSession(w, r, t)
}

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request, t model.Test) {
	user := model.UserFromContext(r.Context())
	s, err := h.sessions.Start(t, user.ID)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, err.Error(), "")
		return
	}
	slog.Info("session started", "session_id", s.ID, "test_id", t.ID, "user_id", user.ID)
	respondJSON(w, http.StatusCreated, map[string]any{
		"session": s.Snapshot(),
		"test":    newTestView(t),
	})
}

// lookupSession finds the caller's session or writes a 404.
func (h *Handler) lookupSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, ok := h.sessions.Get(chi.URLParam(r, "sessionID"))
	if !ok || s.UserID != model.UserFromContext(r.Context()).ID {
		respondError(w, r, http.StatusNotFound, i18n.T(r.Context(), "SessionNotFound"), "")
		return nil, false
	}
	return s, true
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookupSession(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, s.Snapshot())
}

func (h *Handler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookupSession(w, r)
	if !ok {
		return
	}

	var req struct {
		QuestionID string           `json:"question_id"`
		Answer     model.StringList `json:"answer"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.QuestionID == "" {
		respondError(w, r, http.StatusBadRequest, i18n.T(r.Context(), "InvalidRequest"), "")
		return
	}

	if err := s.RecordAnswer(req.QuestionID, req.Answer); err != nil {
		h.respondSessionError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, s.Snapshot())
}

func (h *Handler) handleGoTo(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookupSession(w, r)
	if !ok {
		return
	}

	var req struct {
		Index int `json:"index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, i18n.T(r.Context(), "InvalidRequest"), "")
		return
	}

	if err := s.GoTo(req.Index); err != nil {
		respondError(w, r, http.StatusBadRequest, i18n.T(r.Context(), "InvalidQuestionIndex"), "")
		return
	}
	respondJSON(w, http.StatusOK, s.Snapshot())
}

func (h *Handler) handleNext(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookupSession(w, r)
	if !ok {
		return
	}
	s.Next()
	respondJSON(w, http.StatusOK, s.Snapshot())
}

func (h *Handler) handlePrevious(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookupSession(w, r)
	if !ok {
		return
	}
	s.Previous()
	respondJSON(w, http.StatusOK, s.Snapshot())
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookupSession(w, r)
	if !ok {
		return
	}

	result := s.Submit()
	h.sessions.Remove(s.ID)
	respondJSON(w, http.StatusOK, result)
}

func (h *Handler) handleListResults(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	results, err := h.store.ListResults(user.ID)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, err.Error(), "")
		return
	}
	if results == nil {
		results = []model.TestResult{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (h *Handler) handleGetResult(w http.ResponseWriter, r *http.Request) {
	result, err := h.store.GetResult(chi.URLParam(r, "resultID"))
	if err != nil {
		h.respondStoreError(w, r, err, "ResultNotFound")
		return
	}
	if result.UserID != model.UserFromContext(r.Context()).ID {
		respondError(w, r, http.StatusNotFound, i18n.T(r.Context(), "ResultNotFound"), "")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *Handler) respondStoreError(w http.ResponseWriter, r *http.Request, err error, notFoundMsg string) {
	if errors.Is(err, sql.ErrNoRows) {
		respondError(w, r, http.StatusNotFound, i18n.T(r.Context(), notFoundMsg), "")
		return
	}
	respondError(w, r, http.StatusInternalServerError, err.Error(), "")
}

func (h *Handler) respondSessionError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, session.ErrNotActive):
		respondError(w, r, http.StatusConflict, i18n.T(r.Context(), "SessionCompleted"), "")
	case errors.Is(err, session.ErrNotStarted):
		respondError(w, r, http.StatusConflict, i18n.T(r.Context(), "SessionNotStarted"), "")
	default:
		respondError(w, r, http.StatusInternalServerError, err.Error(), "")
	}
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, _ *http.Request, status int, message, details string) {
	body := map[string]string{"error": message}
	if details != "" {
		body["details"] = details
	}
	respondJSON(w, status, body)
}
