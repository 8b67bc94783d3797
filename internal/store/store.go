// Package store persists tests, users, and results behind a repository
// interface. The SQLite implementation is the real store; the memory
// implementation mirrors the original mock-array data source and doubles
// as the test store.
package store

import "github.com/prepdesk/prepdesk/internal/model"

// Store is the storage abstraction the rest of the service depends on.
// Not-found lookups return sql.ErrNoRows from every implementation so
// callers can map them uniformly.
type Store interface {
	GetTest(id string) (model.Test, error)
	ListTests(filter model.TestFilter) ([]model.Test, error)
	SaveTest(t model.Test) error
	TestCount() (int, error)

	GetUser(id string) (model.User, error)
	SaveUser(u model.User) error
	UserCount() (int, error)

	SaveResult(r model.TestResult) error
	GetResult(id string) (model.TestResult, error)
	ListResults(userID string) ([]model.TestResult, error)

	// Import bookkeeping for seed files: a file whose content hash is
	// already recorded is not imported again.
	GetImportedFileHash(path string) (string, error)
	SetImportedFileHash(path, hash string) error

	Close() error
}
