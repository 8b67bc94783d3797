// Package quizgen builds practice quizzes from user preferences by
// prompting an OpenAI-compatible completion API and reshaping the
// free-form response into a structured quiz document.
package quizgen

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/prepdesk/prepdesk/internal/model"

	openai "github.com/sashabaranov/go-openai"
)

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api   *openai.Client
	model string
}

// New creates a new generation client. baseURL may point at any
// OpenAI-compatible endpoint (e.g. a local Ollama instance).
func New(baseURL, apiKey, modelName string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
	}
}

// Generate renders the prompt, makes a single best-effort completion
// call, and assembles the response into a GeneratedQuiz. A remote
// failure or an empty response is a hard error; an unparseable response
// degrades softly to the fallback quiz with zero questions.
func (c *Client) Generate(ctx context.Context, prefs model.QuizPreferences) (model.GeneratedQuiz, error) {
	prompt, err := BuildPrompt(prefs)
	if err != nil {
		return model.GeneratedQuiz{}, fmt.Errorf("render prompt: %w", err)
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return model.GeneratedQuiz{}, fmt.Errorf("generation API call: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return model.GeneratedQuiz{}, fmt.Errorf("no response received from model")
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("model response", "raw", raw)

	return Assemble(prefs, raw), nil
}

// Assemble wraps the extracted (or fallback) document into the final
// quiz envelope, filling the id, timestamp, and any missing fields from
// the request preferences.
func Assemble(prefs model.QuizPreferences, raw string) model.GeneratedQuiz {
	doc := extractDocument(raw, prefs)

	title := doc.Title
	if title == "" {
		title = fmt.Sprintf("%s Quiz", prefs.Topic)
	}
	instructions := doc.Instructions
	if instructions == "" {
		instructions = fmt.Sprintf("Complete this %s difficulty quiz on %s", prefs.Difficulty, prefs.Topic)
	}
	questions := doc.Questions
	if questions == nil {
		questions = []model.QuizQuestion{}
	}

	return model.GeneratedQuiz{
		ID:            fmt.Sprintf("quiz-%d", time.Now().UnixMilli()),
		Title:         title,
		Subject:       prefs.Subject,
		Topic:         prefs.Topic,
		Difficulty:    prefs.Difficulty,
		QuestionCount: prefs.QuestionCount,
		Questions:     questions,
		Instructions:  instructions,
		CreatedAt:     time.Now(),
	}
}

const pointsPerQuestion = 5

// ToTest converts a generated quiz into a takeable test so a session can
// be started from it. Questions with an out-of-range answer index are
// skipped rather than producing an ungradeable question.
func ToTest(q model.GeneratedQuiz) model.Test {
	questions := make([]model.Question, 0, len(q.Questions))
	for _, qq := range q.Questions {
		if qq.CorrectAnswer < 0 || qq.CorrectAnswer >= len(qq.Options) {
			slog.Warn("dropping generated question with invalid answer index",
				"quiz", q.ID, "question", qq.ID, "index", qq.CorrectAnswer)
			continue
		}
		questions = append(questions, model.Question{
			ID:            strconv.Itoa(qq.ID),
			Text:          qq.Question,
			Type:          model.TypeMultipleChoice,
			Options:       qq.Options,
			CorrectAnswer: model.StringList{qq.Options[qq.CorrectAnswer]},
			Explanation:   qq.Explanation,
			Difficulty:    model.Difficulty(q.Difficulty),
			Points:        pointsPerQuestion,
		})
	}

	totalPoints := pointsPerQuestion * len(questions)
	duration := 2 * len(questions)
	if duration < 10 {
		duration = 10
	}

	return model.Test{
		ID:           q.ID,
		Title:        q.Title,
		Subject:      q.Subject,
		Topic:        q.Topic,
		Questions:    questions,
		Duration:     duration,
		TotalPoints:  totalPoints,
		PassingScore: int(math.Round(float64(totalPoints) * 0.6)),
		CreatedAt:    q.CreatedAt,
		IsActive:     true,
	}
}
