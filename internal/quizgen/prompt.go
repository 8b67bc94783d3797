package quizgen

import (
	"strings"
	"text/template"

	"github.com/prepdesk/prepdesk/internal/model"
)

// The schema block is embedded verbatim in every prompt: the model's
// output is parsed leniently, but an ambiguous prompt degrades parse
// success far more than any recovery logic can win back.
const promptText = `Generate a {{.Difficulty}} difficulty quiz on {{.Topic}} ({{.Subject}}) with exactly {{.QuestionCount}} questions.

Requirements:
- Format the response as valid JSON only
- Include {{join .QuestionTypes ", "}} question types
- Focus on: {{focus .FocusAreas}}
- Each question should have 4 multiple choice options (A, B, C, D)
- Provide explanations for correct answers

Return the response in this exact JSON format:
{
  "title": "Quiz Title",
  "instructions": "Clear instructions for the quiz",
  "questions": [
    {
      "id": 1,
      "question": "Question text here?",
      "options": ["Option A", "Option B", "Option C", "Option D"],
      "correctAnswer": 0,
      "explanation": "Explanation of why this answer is correct"
    }
  ]
}

Note: correctAnswer should be 0 for A, 1 for B, 2 for C, 3 for D. Return ONLY the JSON, no additional text.`

var promptTmpl = template.Must(template.New("quiz").Funcs(template.FuncMap{
	"join": strings.Join,
	"focus": func(areas []string) string {
		if len(areas) == 0 {
			return "general understanding"
		}
		return strings.Join(areas, ", ")
	},
}).Parse(promptText))

// BuildPrompt renders the generation prompt for the given preferences.
func BuildPrompt(prefs model.QuizPreferences) (string, error) {
	var sb strings.Builder
	if err := promptTmpl.Execute(&sb, prefs); err != nil {
		return "", err
	}
	return sb.String(), nil
}
