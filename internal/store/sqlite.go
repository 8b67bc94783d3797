package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/prepdesk/prepdesk/internal/model"

	_ "modernc.org/sqlite"
)

// SQLite is the database-backed Store.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (and if needed creates) the database at dbPath.
func NewSQLite(dbPath string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tests (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		subject TEXT NOT NULL,
		topic TEXT NOT NULL,
		duration INTEGER NOT NULL DEFAULT 0,
		total_points INTEGER NOT NULL DEFAULT 0,
		passing_score INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS questions (
		test_id TEXT NOT NULL,
		id TEXT NOT NULL,
		position INTEGER NOT NULL,
		text TEXT NOT NULL,
		type TEXT NOT NULL,
		options TEXT NOT NULL DEFAULT '[]',
		correct_answer TEXT NOT NULL DEFAULT '[]',
		explanation TEXT NOT NULL DEFAULT '',
		difficulty TEXT NOT NULL,
		points INTEGER NOT NULL DEFAULT 1,
		PRIMARY KEY (test_id, id),
		FOREIGN KEY (test_id) REFERENCES tests(id)
	);

	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		role TEXT NOT NULL,
		grade TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS results (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		test_id TEXT NOT NULL,
		score INTEGER NOT NULL,
		total_points INTEGER NOT NULL,
		percentage INTEGER NOT NULL,
		passed INTEGER NOT NULL,
		completed_at DATETIME NOT NULL,
		answers TEXT NOT NULL DEFAULT '[]',
		FOREIGN KEY (user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS imported_files (
		path TEXT PRIMARY KEY,
		hash TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveTest upserts a test and its questions in one transaction.
func (s *SQLite) SaveTest(t model.Test) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO tests (id, title, subject, topic, duration, total_points, passing_score, created_at, is_active)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   title = excluded.title, subject = excluded.subject, topic = excluded.topic,
		   duration = excluded.duration, total_points = excluded.total_points,
		   passing_score = excluded.passing_score, is_active = excluded.is_active`,
		t.ID, t.Title, t.Subject, t.Topic, t.Duration, t.TotalPoints, t.PassingScore, t.CreatedAt, boolToInt(t.IsActive),
	)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM questions WHERE test_id = ?`, t.ID); err != nil {
		return err
	}
	for i, q := range t.Questions {
		options, err := json.Marshal(q.Options)
		if err != nil {
			return err
		}
		correct, err := json.Marshal([]string(q.CorrectAnswer))
		if err != nil {
			return err
		}
		_, err = tx.Exec(
			`INSERT INTO questions (test_id, id, position, text, type, options, correct_answer, explanation, difficulty, points)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, q.ID, i, q.Text, q.Type, string(options), string(correct), q.Explanation, q.Difficulty, q.Points,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetTest returns a test with its questions in authored order.
func (s *SQLite) GetTest(id string) (model.Test, error) {
	var t model.Test
	var active int
	err := s.db.QueryRow(
		`SELECT id, title, subject, topic, duration, total_points, passing_score, created_at, is_active
		 FROM tests WHERE id = ?`, id,
	).Scan(&t.ID, &t.Title, &t.Subject, &t.Topic, &t.Duration, &t.TotalPoints, &t.PassingScore, &t.CreatedAt, &active)
	if err != nil {
		return t, err
	}
	t.IsActive = active != 0
	t.Questions, err = s.questionsForTest(id)
	return t, err
}

func (s *SQLite) questionsForTest(testID string) ([]model.Question, error) {
	rows, err := s.db.Query(
		`SELECT id, text, type, options, correct_answer, explanation, difficulty, points
		 FROM questions WHERE test_id = ? ORDER BY position`, testID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		var options, correct string
		if err := rows.Scan(&q.ID, &q.Text, &q.Type, &options, &correct, &q.Explanation, &q.Difficulty, &q.Points); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(options), &q.Options); err != nil {
			return nil, fmt.Errorf("decode options for question %s: %w", q.ID, err)
		}
		var ca []string
		if err := json.Unmarshal([]byte(correct), &ca); err != nil {
			return nil, fmt.Errorf("decode correct answer for question %s: %w", q.ID, err)
		}
		q.CorrectAnswer = model.StringList(ca)
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// ListTests returns tests matching the filter, newest first.
func (s *SQLite) ListTests(filter model.TestFilter) ([]model.Test, error) {
	query := `SELECT id FROM tests WHERE 1=1`
	var args []any
	if filter.Subject != "" {
		query += ` AND subject = ?`
		args = append(args, filter.Subject)
	}
	if filter.Topic != "" {
		query += ` AND topic = ?`
		args = append(args, filter.Topic)
	}
	if filter.ActiveOnly {
		query += ` AND is_active = 1`
	}
	if filter.Query != "" {
		query += ` AND (title LIKE ? OR topic LIKE ?)`
		like := "%" + filter.Query + "%"
		args = append(args, like, like)
	}
	if filter.Difficulty != "" {
		query += ` AND EXISTS (SELECT 1 FROM questions q WHERE q.test_id = tests.id AND q.difficulty = ?)`
		args = append(args, filter.Difficulty)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var tests []model.Test
	for _, id := range ids {
		t, err := s.GetTest(id)
		if err != nil {
			return nil, err
		}
		tests = append(tests, t)
	}
	return tests, nil
}

// TestCount returns the number of stored tests.
func (s *SQLite) TestCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM tests`).Scan(&count)
	return count, err
}

// SaveUser upserts a user.
func (s *SQLite) SaveUser(u model.User) error {
	_, err := s.db.Exec(
		`INSERT INTO users (id, name, email, role, grade, created_at) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, email = excluded.email,
		   role = excluded.role, grade = excluded.grade`,
		u.ID, u.Name, u.Email, u.Role, u.Grade, u.CreatedAt,
	)
	return err
}

// GetUser returns a user by ID.
func (s *SQLite) GetUser(id string) (model.User, error) {
	var u model.User
	err := s.db.QueryRow(
		`SELECT id, name, email, role, grade, created_at FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.Grade, &u.CreatedAt)
	return u, err
}

// UserCount returns the number of users.
func (s *SQLite) UserCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}

// SaveResult stores a completed result. Results are written once and
// never updated.
func (s *SQLite) SaveResult(r model.TestResult) error {
	answers, err := json.Marshal(r.Answers)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO results (id, user_id, test_id, score, total_points, percentage, passed, completed_at, answers)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.UserID, r.TestID, r.Score, r.TotalPoints, r.Percentage, boolToInt(r.Passed), r.CompletedAt, string(answers),
	)
	return err
}

// GetResult returns a result by ID.
func (s *SQLite) GetResult(id string) (model.TestResult, error) {
	row := s.db.QueryRow(
		`SELECT id, user_id, test_id, score, total_points, percentage, passed, completed_at, answers
		 FROM results WHERE id = ?`, id,
	)
	return scanResult(row)
}

// ListResults returns a user's results, newest first. An empty userID
// returns all results.
func (s *SQLite) ListResults(userID string) ([]model.TestResult, error) {
	query := `SELECT id, user_id, test_id, score, total_points, percentage, passed, completed_at, answers
	          FROM results`
	var args []any
	if userID != "" {
		query += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY completed_at DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []model.TestResult
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// GetImportedFileHash returns the recorded content hash for a seed file,
// or empty string if the file was never imported.
func (s *SQLite) GetImportedFileHash(path string) (string, error) {
	var hash string
	err := s.db.QueryRow(`SELECT hash FROM imported_files WHERE path = ?`, path).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return hash, err
}

// SetImportedFileHash records the content hash for a seed file.
func (s *SQLite) SetImportedFileHash(path, hash string) error {
	_, err := s.db.Exec(
		`INSERT INTO imported_files (path, hash) VALUES (?, ?)
		 ON CONFLICT(path) DO UPDATE SET hash = excluded.hash`,
		path, hash,
	)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResult(row rowScanner) (model.TestResult, error) {
	var r model.TestResult
	var passed int
	var answers string
	err := row.Scan(&r.ID, &r.UserID, &r.TestID, &r.Score, &r.TotalPoints, &r.Percentage, &passed, &r.CompletedAt, &answers)
	if err != nil {
		return r, err
	}
	r.Passed = passed != 0
	if err := json.Unmarshal([]byte(answers), &r.Answers); err != nil {
		return r, fmt.Errorf("decode answers for result %s: %w", r.ID, err)
	}
	return r, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ Store = (*SQLite)(nil)
