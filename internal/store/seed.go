package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/prepdesk/prepdesk/internal/model"
)

// DefaultUserID identifies the seeded student that stands in for a
// signed-in user when the caller injects no identity.
const DefaultUserID = "user-1"

// SeedDefaultUser creates the default student if the user table is empty.
func SeedDefaultUser(s Store) error {
	count, err := s.UserCount()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	err = s.SaveUser(model.User{
		ID:        DefaultUserID,
		Name:      "John Smith",
		Email:     "john.smith@school.edu",
		Role:      model.UserRoleStudent,
		Grade:     "10",
		CreatedAt: time.Now(),
	})
	if err != nil {
		return err
	}
	slog.Info("seeded default student user", "id", DefaultUserID)
	return nil
}

// ImportTests loads tests from the given JSON files. A file whose
// content hash matches the recorded import is skipped; a file that
// changed since its last import is skipped with a warning so existing
// results keep referring to the tests they were scored against.
func ImportTests(s Store, paths []string) error {
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		hash := sha256sum(data)
		storedHash, err := s.GetImportedFileHash(path)
		if err != nil {
			return fmt.Errorf("check import status for %s: %w", path, err)
		}
		if storedHash == hash {
			slog.Info("tests file unchanged, skipping", "path", path)
			continue
		}
		if storedHash != "" {
			slog.Warn("tests file changed since last import, skipping to avoid breaking existing results", "path", path)
			continue
		}

		var tests []model.Test
		if err := json.Unmarshal(data, &tests); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}

		for _, t := range tests {
			if err := validateTest(&t); err != nil {
				return fmt.Errorf("invalid test %q in %s: %w", t.ID, path, err)
			}
			if t.CreatedAt.IsZero() {
				t.CreatedAt = time.Now()
			}
			if err := s.SaveTest(t); err != nil {
				return fmt.Errorf("save test %q from %s: %w", t.ID, path, err)
			}
		}

		if err := s.SetImportedFileHash(path, hash); err != nil {
			return fmt.Errorf("record import for %s: %w", path, err)
		}
		slog.Info("imported tests", "path", path, "count", len(tests))
	}
	return nil
}

// validateTest enforces the authoring invariants: total points must
// equal the sum of question points, and choice questions must list their
// correct answer among the options.
func validateTest(t *model.Test) error {
	if t.ID == "" {
		return fmt.Errorf("missing id")
	}
	if sum := t.SumPoints(); t.TotalPoints != sum {
		return fmt.Errorf("totalPoints %d does not match question points sum %d", t.TotalPoints, sum)
	}
	for _, q := range t.Questions {
		if q.Type != model.TypeMultipleChoice && q.Type != model.TypeTrueFalse {
			continue
		}
		for _, want := range q.CorrectAnswer {
			found := false
			for _, opt := range q.Options {
				if opt == want {
					found = true
					break
				}
			}
			if !found {
				return fmt.Errorf("question %s: correct answer %q is not one of the options", q.ID, want)
			}
		}
	}
	return nil
}

func sha256sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
