package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/prepdesk/prepdesk/internal/i18n"
	"github.com/prepdesk/prepdesk/internal/model"
	"github.com/prepdesk/prepdesk/internal/quizgen"
)

// Generator produces a practice quiz from user preferences.
type Generator interface {
	Generate(ctx context.Context, prefs model.QuizPreferences) (model.GeneratedQuiz, error)
}

const (
	defaultQuestionCount = 10
	maxQuestionCount     = 50
)

// handleGenerate builds a practice quiz. An unparseable model response
// degrades to an empty quiz (soft fallback inside the pipeline); only a
// failed or empty remote call surfaces as a 500 here.
func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var prefs model.QuizPreferences
	if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
		respondError(w, r, http.StatusBadRequest, i18n.T(r.Context(), "InvalidRequest"), "")
		return
	}
	if prefs.QuestionCount <= 0 {
		prefs.QuestionCount = defaultQuestionCount
	}
	if prefs.QuestionCount > maxQuestionCount {
		prefs.QuestionCount = maxQuestionCount
	}
	if len(prefs.QuestionTypes) == 0 {
		prefs.QuestionTypes = []string{string(model.TypeMultipleChoice)}
	}

	quiz, err := h.generator.Generate(r.Context(), prefs)
	if err != nil {
		slog.Error("quiz generation failed", "topic", prefs.Topic, "error", err)
		respondError(w, r, http.StatusInternalServerError, i18n.T(r.Context(), "GenerationFailed"), err.Error())
		return
	}

	h.sessions.PutQuiz(quiz)
	slog.Info("quiz generated", "quiz_id", quiz.ID, "questions", len(quiz.Questions))
	respondJSON(w, http.StatusOK, map[string]any{"id": quiz.ID, "quiz": quiz})
}

// handlePracticeStart consumes the handoff slot for a generated quiz and
// starts a session over it. A missing slot means no test is available.
func (h *Handler) handlePracticeStart(w http.ResponseWriter, r *http.Request) {
	quiz, ok := h.sessions.TakeQuiz(chi.URLParam(r, "quizID"))
	if !ok {
		respondError(w, r, http.StatusNotFound, i18n.T(r.Context(), "NoTestAvailable"), "")
		return
	}
	h.startSession(w, r, quizgen.ToTest(quiz))
}
