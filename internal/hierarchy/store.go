// Package hierarchy stores the organisation → team → client → episode tree
// as a closure table in SQLite, together with the notes attached to its
// nodes.
//
// Every ancestor/descendant pair is materialised as a row of
// hierarchy_closure, so children, descendant and ancestor lookups are single
// joins. Creation appends the parent's ancestor chain shifted one level
// down; deletion removes a whole subtree, its edges and its notes in one
// transaction.
package hierarchy

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// timeLayout is fixed-width so that lexical order of the stored text
// matches chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Config holds store initialization parameters.
type Config struct {
	DBPath string           // path to SQLite file
	Now    func() time.Time // wall clock (default time.Now)
	NewID  func() string    // id generator (default UUIDv7)
}

// Store provides the node, closure and notes tables and the hierarchy
// operations built on them.
type Store struct {
	db    *sql.DB
	now   func() time.Time
	newID func() string
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// Open opens (or creates) the store at the configured path.
func Open(cfg Config) (*Store, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("hierarchy: DBPath must not be empty")
	}

	dsn := cfg.DBPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	newID := cfg.NewID
	if newID == nil {
		newID = newUUID
	}

	return &Store{db: db, now: now, newID: newID}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// withTx runs fn in a transaction, committing only if fn succeeds.
func (s *Store) withTx(op string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return storageErr(op+": begin", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return storageErr(op+": commit", err)
	}
	return nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func (s *Store) timestamp() string {
	return formatTime(s.now())
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		// Rows written by older tools may carry plain RFC 3339.
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t
}

// newUUID returns a time-ordered UUIDv7 string.
func newUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
