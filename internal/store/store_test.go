package store

import (
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prepdesk/prepdesk/internal/model"
)

func newTestStore(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleTest(id, subject, topic string) model.Test {
	return model.Test{
		ID:      id,
		Title:   topic + " Quiz",
		Subject: subject,
		Topic:   topic,
		Questions: []model.Question{
			{
				ID:            "q1",
				Text:          "Pick B",
				Type:          model.TypeMultipleChoice,
				Options:       []string{"A", "B", "C", "D"},
				CorrectAnswer: model.StringList{"B"},
				Difficulty:    model.DifficultyEasy,
				Points:        5,
			},
			{
				ID:            "q2",
				Text:          "Explain",
				Type:          model.TypeEssay,
				CorrectAnswer: model.StringList{""},
				Difficulty:    model.DifficultyHard,
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

func TestSQLiteTestRoundTrip(t *testing.T) {
	s := newTestStore(t)

	in := sampleTest("test-1", "Mathematics", "Algebra")
	if err := s.SaveTest(in); err != nil {
		t.Fatalf("SaveTest: %v", err)
	}

	out, err := s.GetTest("test-1")
	if err != nil {
		t.Fatalf("GetTest: %v", err)
	}
	if out.Title != in.Title || out.TotalPoints != 15 || !out.IsActive {
		t.Errorf("test fields lost: %+v", out)
	}
	if len(out.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(out.Questions))
	}
	if out.Questions[0].ID != "q1" || out.Questions[1].ID != "q2" {
		t.Errorf("question order not preserved: %+v", out.Questions)
	}
	if got := out.Questions[0].CorrectAnswer; len(got) != 1 || got[0] != "B" {
		t.Errorf("correct answer = %v", got)
	}
	if len(out.Questions[0].Options) != 4 {
		t.Errorf("options lost: %v", out.Questions[0].Options)
	}

	_, err = s.GetTest("missing")
	if err != sql.ErrNoRows {
		t.Errorf("GetTest(missing) = %v, want ErrNoRows", err)
	}

	// Upsert replaces questions rather than accumulating them.
	in.Questions = in.Questions[:1]
	in.TotalPoints = 5
	if err := s.SaveTest(in); err != nil {
		t.Fatalf("SaveTest upsert: %v", err)
	}
	out, err = s.GetTest("test-1")
	if err != nil {
		t.Fatalf("GetTest after upsert: %v", err)
	}
	if len(out.Questions) != 1 || out.TotalPoints != 5 {
		t.Errorf("upsert did not replace: %+v", out)
	}
}

func TestListTestsFiltered(t *testing.T) {
	s := newTestStore(t)
	for _, tc := range []struct{ id, subject, topic string }{
		{"t1", "Mathematics", "Algebra"},
		{"t2", "Mathematics", "Geometry"},
		{"t3", "Science", "Chemistry"},
	} {
		if err := s.SaveTest(sampleTest(tc.id, tc.subject, tc.topic)); err != nil {
			t.Fatalf("SaveTest %s: %v", tc.id, err)
		}
	}

	tests := []struct {
		name      string
		filter    model.TestFilter
		wantCount int
	}{
		{"no filter", model.TestFilter{}, 3},
		{"by subject", model.TestFilter{Subject: "Mathematics"}, 2},
		{"by topic", model.TestFilter{Topic: "Chemistry"}, 1},
		{"by query", model.TestFilter{Query: "geom"}, 1},
		{"by difficulty", model.TestFilter{Difficulty: model.DifficultyEasy}, 3},
		{"no match", model.TestFilter{Subject: "History"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListTests(tt.filter)
			if err != nil {
				t.Fatalf("ListTests: %v", err)
			}
			if len(got) != tt.wantCount {
				t.Errorf("got %d tests, want %d", len(got), tt.wantCount)
			}
		})
	}
}

func TestSQLiteResults(t *testing.T) {
	s := newTestStore(t)

	r := model.TestResult{
		ID:          "result-1",
		UserID:      "user-1",
		TestID:      "test-1",
		Score:       5,
		TotalPoints: 15,
		Percentage:  33,
		Passed:      false,
		CompletedAt: time.Now(),
		Answers: []model.Answer{
			{QuestionID: "q1", UserAnswer: model.StringList{"B"}, IsCorrect: true, PointsEarned: 5},
			{QuestionID: "q2", UserAnswer: model.StringList{""}, IsCorrect: false, PointsEarned: 0},
		},
	}
	if err := s.SaveResult(r); err != nil {
		t.Fatalf("SaveResult: %v", err)
	}

	got, err := s.GetResult("result-1")
	if err != nil {
		t.Fatalf("GetResult: %v", err)
	}
	if got.Score != 5 || got.Passed || got.Percentage != 33 {
		t.Errorf("result fields lost: %+v", got)
	}
	if len(got.Answers) != 2 || !got.Answers[0].IsCorrect {
		t.Errorf("answers lost: %+v", got.Answers)
	}

	list, err := s.ListResults("user-1")
	if err != nil {
		t.Fatalf("ListResults: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("expected 1 result, got %d", len(list))
	}

	list, err = s.ListResults("someone-else")
	if err != nil {
		t.Fatalf("ListResults: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("expected no results for other user, got %d", len(list))
	}
}

func TestSQLiteUsers(t *testing.T) {
	s := newTestStore(t)

	if err := SeedDefaultUser(s); err != nil {
		t.Fatalf("SeedDefaultUser: %v", err)
	}
	u, err := s.GetUser(DefaultUserID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if u.Role != model.UserRoleStudent {
		t.Errorf("role = %s, want student", u.Role)
	}

	// Seeding twice must not duplicate or overwrite.
	if err := SeedDefaultUser(s); err != nil {
		t.Fatalf("SeedDefaultUser again: %v", err)
	}
	count, err := s.UserCount()
	if err != nil {
		t.Fatalf("UserCount: %v", err)
	}
	if count != 1 {
		t.Errorf("user count = %d, want 1", count)
	}
}

func TestImportTests(t *testing.T) {
	s := newTestStore(t)

	tests := []model.Test{sampleTest("test-1", "Mathematics", "Algebra")}
	data, err := json.Marshal(tests)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	path := filepath.Join(t.TempDir(), "tests.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write seed file: %v", err)
	}

	if err := ImportTests(s, []string{path}); err != nil {
		t.Fatalf("ImportTests: %v", err)
	}
	count, err := s.TestCount()
	if err != nil {
		t.Fatalf("TestCount: %v", err)
	}
	if count != 1 {
		t.Fatalf("test count = %d, want 1", count)
	}

	// Unchanged file: import is skipped, nothing breaks.
	if err := ImportTests(s, []string{path}); err != nil {
		t.Fatalf("ImportTests unchanged: %v", err)
	}

	// Changed file: skipped with a warning, original data intact.
	tests[0].Title = "Renamed"
	data, _ = json.Marshal(tests)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("rewrite seed file: %v", err)
	}
	if err := ImportTests(s, []string{path}); err != nil {
		t.Fatalf("ImportTests changed: %v", err)
	}
	got, err := s.GetTest("test-1")
	if err != nil {
		t.Fatalf("GetTest: %v", err)
	}
	if got.Title == "Renamed" {
		t.Error("changed file should not have been re-imported")
	}
}

func TestImportRejectsInvalidTests(t *testing.T) {
	s := newTestStore(t)

	bad := sampleTest("test-1", "Mathematics", "Algebra")
	bad.TotalPoints = 99 // does not match the question points sum
	data, _ := json.Marshal([]model.Test{bad})
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write seed file: %v", err)
	}

	if err := ImportTests(s, []string{path}); err == nil {
		t.Fatal("expected error for totalPoints mismatch")
	}

	bad = sampleTest("test-2", "Mathematics", "Algebra")
	bad.Questions[0].CorrectAnswer = model.StringList{"Z"}
	data, _ = json.Marshal([]model.Test{bad})
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("rewrite seed file: %v", err)
	}
	if err := ImportTests(s, []string{path}); err == nil {
		t.Fatal("expected error for correct answer outside options")
	}
}

func TestMemoryMatchesInterface(t *testing.T) {
	m := NewMemory()

	if err := m.SaveTest(sampleTest("test-1", "Mathematics", "Algebra")); err != nil {
		t.Fatalf("SaveTest: %v", err)
	}
	if _, err := m.GetTest("missing"); err != sql.ErrNoRows {
		t.Errorf("GetTest(missing) = %v, want ErrNoRows", err)
	}
	got, err := m.ListTests(model.TestFilter{Subject: "Mathematics", ActiveOnly: true})
	if err != nil {
		t.Fatalf("ListTests: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("got %d tests, want 1", len(got))
	}
	if _, err := m.GetUser("nobody"); err != sql.ErrNoRows {
		t.Errorf("GetUser(missing) = %v, want ErrNoRows", err)
	}
}
