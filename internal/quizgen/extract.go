package quizgen

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/prepdesk/prepdesk/internal/model"
)

// document is the JSON payload the model is asked to produce.
type document struct {
	Title        string               `json:"title"`
	Instructions string               `json:"instructions"`
	Questions    []model.QuizQuestion `json:"questions"`
}

// extractDocument pulls a quiz document out of free-form model output.
// The response is expected to contain a JSON object but may be wrapped in
// commentary or code fences, so extraction is two-staged: first the
// greedy first-{ to last-} substring, then the whole text. If neither
// parses, the fallback document is returned; extraction never fails past
// this point, so the caller always gets a structurally valid (possibly
// empty) quiz.
func extractDocument(raw string, prefs model.QuizPreferences) document {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")

	var doc document
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(raw[start:end+1]), &doc); err == nil {
			return doc
		}
	}
	if err := json.Unmarshal([]byte(raw), &doc); err == nil {
		return doc
	}

	slog.Warn("failed to parse model response as JSON, using fallback quiz",
		"topic", prefs.Topic, "response_len", len(raw))
	return fallbackDocument(prefs)
}

// fallbackDocument is the minimal valid quiz synthesized when parsing
// fails: a topic-derived title, templated instructions, no questions.
func fallbackDocument(prefs model.QuizPreferences) document {
	return document{
		Title:        fmt.Sprintf("%s Quiz", prefs.Topic),
		Instructions: fmt.Sprintf("Answer all %d questions about %s", prefs.QuestionCount, prefs.Topic),
		Questions:    []model.QuizQuestion{},
	}
}
