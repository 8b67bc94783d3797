// Package scoring grades submitted answers against a test. Everything in
// this package is a pure function over well-formed input: grading never
// errors and never panics, so it can sit on the session's terminal
// transition without a failure path.
package scoring

import (
	"math"
	"strings"

	"github.com/prepdesk/prepdesk/internal/model"
)

// Summary is the aggregate outcome of scoring a full test.
//
// Passed compares absolute points against Test.PassingScore. That is the
// canonical pass rule; Percentage is derived for display and must not be
// compared against PassingScore.
type Summary struct {
	Score       int
	TotalPoints int
	Percentage  int
	Passed      bool
}

// strategy grades one answer for one question type.
type strategy func(q model.Question, answer model.StringList) bool

var strategies = map[model.QuestionType]strategy{
	model.TypeMultipleChoice: gradeChoice,
	model.TypeTrueFalse:      gradeChoice,
	model.TypeShortAnswer:    gradeShortAnswer,
	model.TypeEssay:          gradeEssay,
}

// ValidateAnswer reports whether the answer is correct for the question.
// Unanswered questions flow through the same per-type path and come out
// false unless an acceptable value is itself empty. Unknown question
// types grade as incorrect.
func ValidateAnswer(q model.Question, answer model.StringList) bool {
	grade, ok := strategies[q.Type]
	if !ok {
		return false
	}
	return grade(q, answer)
}

// gradeChoice handles multiple_choice and true_false: verbatim,
// case-sensitive matching against the authored option values. A single
// selection matches any acceptable value; a multi-selection must equal
// the acceptable set exactly.
func gradeChoice(q model.Question, answer model.StringList) bool {
	switch len(answer) {
	case 0:
		return false
	case 1:
		for _, want := range q.CorrectAnswer {
			if answer[0] == want {
				return true
			}
		}
		return false
	default:
		return sameSet(answer, q.CorrectAnswer)
	}
}

func gradeShortAnswer(q model.Question, answer model.StringList) bool {
	if len(answer) == 0 {
		return false
	}
	got := strings.ToLower(strings.TrimSpace(answer[0]))
	for _, want := range q.CorrectAnswer {
		if got == strings.ToLower(strings.TrimSpace(want)) {
			return true
		}
	}
	return false
}

// gradeEssay always returns false: essays require a human grader, and a
// conservative zero beats a false "correct".
func gradeEssay(model.Question, model.StringList) bool {
	return false
}

func sameSet(a, b model.StringList) bool {
	set := make(map[string]bool, len(b))
	for _, v := range b {
		set[v] = true
	}
	seen := make(map[string]bool, len(a))
	for _, v := range a {
		if !set[v] {
			return false
		}
		seen[v] = true
	}
	return len(seen) == len(set)
}

// PointsEarned returns the question's full points if correct, else 0.
// There is no partial credit.
func PointsEarned(q model.Question, correct bool) int {
	if correct {
		return q.Points
	}
	return 0
}

// GradeAnswer finalizes a single answer, filling the derived fields.
func GradeAnswer(q model.Question, answer model.StringList) model.Answer {
	correct := ValidateAnswer(q, answer)
	return model.Answer{
		QuestionID:   q.ID,
		UserAnswer:   answer,
		IsCorrect:    correct,
		PointsEarned: PointsEarned(q, correct),
	}
}

// Score grades a complete answer mapping against a test. Questions with
// no recorded answer are graded as empty. A test with zero total points
// scores 0%.
func Score(test model.Test, answers map[string]model.StringList) (Summary, []model.Answer) {
	graded := make([]model.Answer, 0, len(test.Questions))
	score := 0
	for _, q := range test.Questions {
		a := scoringAnswer(answers, q.ID)
		ga := GradeAnswer(q, a)
		graded = append(graded, ga)
		score += ga.PointsEarned
	}

	percentage := 0
	if test.TotalPoints > 0 {
		percentage = int(math.Round(float64(score) / float64(test.TotalPoints) * 100))
	}

	return Summary{
		Score:       score,
		TotalPoints: test.TotalPoints,
		Percentage:  percentage,
		Passed:      score >= test.PassingScore,
	}, graded
}

func scoringAnswer(answers map[string]model.StringList, questionID string) model.StringList {
	if a, ok := answers[questionID]; ok {
		return a
	}
	return model.StringList{""}
}
