// Package store wraps the Postgres connection pool the rest of the engine
// runs its transactional read-modify-write cycles against: a thin *sql.DB
// handle and raw SQL, no ORM.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// Store is a thin handle around *sql.DB. Domain packages accept it, or a
// *sql.Tx for work that must happen inside a caller-managed transaction.
type Store struct {
	db *sql.DB
}

// Open connects to Postgres at dsn and verifies the connection with a ping.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// NewStore wraps an already-open *sql.DB, for callers that set up the
// connection themselves instead of going through Open.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Begin starts a transaction. Every multi-statement mutation in this module
// runs through one.
func (s *Store) Begin() (*sql.Tx, error) {
	return s.db.Begin()
}

func (s *Store) Query(query string, args ...interface{}) (*sql.Rows, error) {
	return s.db.Query(query, args...)
}

func (s *Store) QueryRow(query string, args ...interface{}) *sql.Row {
	return s.db.QueryRow(query, args...)
}

func (s *Store) Exec(query string, args ...interface{}) (sql.Result, error) {
	return s.db.Exec(query, args...)
}

// Querier is satisfied by both *sql.DB and *sql.Tx, so read-only helper
// methods on domain packages can run either standalone or inside a caller's
// transaction without two code paths.
type Querier interface {
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
	Exec(query string, args ...interface{}) (sql.Result, error)
}

// DB exposes the underlying *sql.DB as a Querier for call sites that don't
// need a transaction.
func (s *Store) DB() Querier {
	return s.db
}
