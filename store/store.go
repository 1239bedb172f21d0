package store

import (
	"database/sql"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/malonaz/aichat/internal/file"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("not found")

// Store implements a SQLite store for local client state.
type Store struct {
	db *sql.DB
}

// New store.
func New(dbPath string) (*Store, error) {
	if err := file.CreateParentDirectory(dbPath); err != nil {
		return nil, errors.Wrap(err, "creating database directory")
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}

	// Create sessions table if it doesn't exist
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			key TEXT PRIMARY KEY,
			refresh_token TEXT NOT NULL,
			user_id TEXT NOT NULL,
			update_timestamp INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "creating sessions table")
	}

	return &Store{
		db: db,
	}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
