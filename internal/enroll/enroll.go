// Package enroll implements join-code enrollment: joining a semester
// validates a short code drawn from a fixed alphabet against the semester's
// registered code, then seeds the user's per-topic progress.
package enroll

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Azen0n/enginesvc/internal/apperr"
	"github.com/Azen0n/enginesvc/internal/catalog"
	"github.com/Azen0n/enginesvc/internal/config"
	"github.com/Azen0n/enginesvc/internal/progress"
	"github.com/Azen0n/enginesvc/internal/store"
	"github.com/Azen0n/enginesvc/internal/weakestlink"
)

type Store struct {
	db *store.Store
}

func NewStore(db *store.Store) *Store {
	return &Store{db: db}
}

// SemesterByJoinCode returns (semester, course) for a join code, matched
// case-insensitively since codes are drawn from an uppercase alphabet but
// clients may submit lowercase.
func (s *Store) SemesterByJoinCode(q store.Querier, code string) (semester, course uuid.UUID, err error) {
	err = q.QueryRow(`
		SELECT id, course_id FROM semesters WHERE upper(join_code) = upper($1)
	`, code).Scan(&semester, &course)
	if err == sql.ErrNoRows {
		return uuid.Nil, uuid.Nil, apperr.New(apperr.BadPayload, "unknown join code")
	}
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("lookup join code: %w", err)
	}
	return semester, course, nil
}

func (s *Store) IsEnrolled(q store.Querier, user, semester uuid.UUID) (bool, error) {
	var exists bool
	err := q.QueryRow(`
		SELECT EXISTS(SELECT 1 FROM enrollments WHERE user_id = $1 AND semester_id = $2)
	`, user, semester).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return exists, nil
}

func (s *Store) IsTeacher(q store.Querier, user, semester uuid.UUID) (bool, error) {
	var isTeacher bool
	err := q.QueryRow(`
		SELECT is_teacher FROM enrollments WHERE user_id = $1 AND semester_id = $2
	`, user, semester).Scan(&isTeacher)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check teacher status: %w", err)
	}
	return isTeacher, nil
}

func (s *Store) insert(tx *sql.Tx, user, semester uuid.UUID) error {
	_, err := tx.Exec(`
		INSERT INTO enrollments (user_id, semester_id, is_teacher) VALUES ($1, $2, false)
		ON CONFLICT DO NOTHING
	`, user, semester)
	if err != nil {
		return fmt.Errorf("insert enrollment: %w", err)
	}
	return nil
}

// Service composes enrollment with the Progress Store and Weakest-Link
// state so joining a semester leaves a user ready for selection: a zeroed
// Progress row per topic and a NONE weakest-link state row.
type Service struct {
	db       *store.Store
	store    *Store
	catalog  *catalog.Store
	progress *progress.Store
	weakest  *weakestlink.Store
	cfg      *config.Config
}

func NewService(db *store.Store, st *Store, c *catalog.Store, p *progress.Store, w *weakestlink.Store, cfg *config.Config) *Service {
	return &Service{db: db, store: st, catalog: c, progress: p, weakest: w, cfg: cfg}
}

// Enroll validates code against the configured alphabet/length, resolves
// the semester, and enrolls user: inserts the enrollment row, a zeroed
// Progress row for every topic of the semester's course, and a NONE
// weakest-link state row, all under one transaction.
func (s *Service) Enroll(user uuid.UUID, code string) (uuid.UUID, error) {
	if err := s.validateFormat(code); err != nil {
		return uuid.Nil, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return uuid.Nil, fmt.Errorf("begin enroll transaction: %w", err)
	}
	defer tx.Rollback()

	semester, course, err := s.store.SemesterByJoinCode(tx, code)
	if err != nil {
		return uuid.Nil, err
	}

	if err := s.store.insert(tx, user, semester); err != nil {
		return uuid.Nil, err
	}
	topics, err := s.catalog.CourseTopics(course)
	if err != nil {
		return uuid.Nil, err
	}
	if err := s.progress.EnsureEnrolled(tx, user, semester, topics); err != nil {
		return uuid.Nil, err
	}
	if err := s.weakest.SetState(tx, user, semester, weakestlink.None); err != nil {
		return uuid.Nil, err
	}

	if err := tx.Commit(); err != nil {
		return uuid.Nil, fmt.Errorf("commit enroll transaction: %w", err)
	}
	return semester, nil
}

func (s *Service) validateFormat(code string) error {
	if len(code) != s.cfg.JoinCodeLength {
		return apperr.New(apperr.BadPayload, "join code must be %d characters", s.cfg.JoinCodeLength)
	}
	for _, r := range strings.ToUpper(code) {
		if !strings.ContainsRune(s.cfg.JoinCodeAlphabet, r) {
			return apperr.New(apperr.BadPayload, "join code contains an invalid character %q", r)
		}
	}
	return nil
}
