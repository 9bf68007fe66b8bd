// Package answerlog keeps the append-only record of submissions: (user,
// semester, problem, is_solved, coefficient, given_answer, elapsed,
// timestamp). Rows are never mutated nor deleted.
package answerlog

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Azen0n/enginesvc/internal/store"
)

// Answer is one append-only submission record. IsSolved is a tri-state:
// nil means the problem was skipped.
type Answer struct {
	ID             int64
	UserID         uuid.UUID
	SemesterID     uuid.UUID
	ProblemID      uuid.UUID
	IsSolved       *bool
	Coefficient    float64
	GivenAnswer    []byte // JSON payload as submitted; nil for skips
	ElapsedSeconds *int
	CreatedAt      time.Time
	Seq            int64
}

func (a *Answer) Skipped() bool {
	return a.IsSolved == nil
}

type Store struct {
	db *store.Store
}

func NewStore(db *store.Store) *Store {
	return &Store{db: db}
}

// Append writes a new UserAnswer row within tx, returning it with its
// generated id/sequence/timestamp populated.
func (s *Store) Append(tx *sql.Tx, a *Answer) (*Answer, error) {
	err := tx.QueryRow(`
		INSERT INTO user_answers (user_id, semester_id, problem_id, is_solved, coefficient, given_answer, elapsed_seconds)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, seq
	`, a.UserID, a.SemesterID, a.ProblemID, a.IsSolved, a.Coefficient, a.GivenAnswer, a.ElapsedSeconds).
		Scan(&a.ID, &a.CreatedAt, &a.Seq)
	if err != nil {
		return nil, fmt.Errorf("append answer: %w", err)
	}
	return a, nil
}

// CountNonSkippedTheory returns the count of non-skipped theory answers for
// (user, main_topic) prior to the current submission, which decides the
// calibration regime. excludeAnswer is the id of the in-flight submission's
// own row when it has already been appended in this transaction; pass 0 when
// no such row exists.
func (s *Store) CountNonSkippedTheory(q store.Querier, user, semester, topic uuid.UUID, excludeAnswer int64) (int, error) {
	var n int
	err := q.QueryRow(`
		SELECT count(*)
		FROM user_answers a
		JOIN problems p ON p.id = a.problem_id
		WHERE a.user_id = $1 AND a.semester_id = $2 AND p.main_topic = $3
		  AND p.type = 1 AND a.is_solved IS NOT NULL AND a.id <> $4
	`, user, semester, topic, excludeAnswer).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count non-skipped theory answers: %w", err)
	}
	return n, nil
}

// RecentTheoryAnswers returns the most recent n theory answers for
// (user, main_topic), most recent first, used by calibration closure's
// longest-streak computation. excludeAnswer works as in
// CountNonSkippedTheory: the in-flight submission's own row id, or 0.
func (s *Store) RecentTheoryAnswers(q store.Querier, user, semester, topic uuid.UUID, n int, excludeAnswer int64) ([]*Answer, error) {
	rows, err := q.Query(`
		SELECT a.id, a.user_id, a.semester_id, a.problem_id, a.is_solved, a.coefficient,
		       a.given_answer, a.elapsed_seconds, a.created_at, a.seq
		FROM user_answers a
		JOIN problems p ON p.id = a.problem_id
		WHERE a.user_id = $1 AND a.semester_id = $2 AND p.main_topic = $3 AND p.type = 1
		  AND a.id <> $4
		ORDER BY a.created_at DESC, a.seq DESC
		LIMIT $5
	`, user, semester, topic, excludeAnswer, n)
	if err != nil {
		return nil, fmt.Errorf("recent theory answers: %w", err)
	}
	defer rows.Close()
	return scanAnswers(rows)
}

// PriorPracticeAnswersByTopic returns, oldest first, every non-current
// practice answer for (user, main_topic), used by weakest-link triggering to
// scan prior problems on the same main topic.
func (s *Store) PriorPracticeAnswersByTopic(q store.Querier, user, semester, mainTopic, excludeProblem uuid.UUID) ([]*Answer, error) {
	rows, err := q.Query(`
		SELECT a.id, a.user_id, a.semester_id, a.problem_id, a.is_solved, a.coefficient,
		       a.given_answer, a.elapsed_seconds, a.created_at, a.seq
		FROM user_answers a
		JOIN problems p ON p.id = a.problem_id
		WHERE a.user_id = $1 AND a.semester_id = $2 AND p.main_topic = $3
		  AND p.type = 2 AND a.problem_id != $4
		ORDER BY a.created_at ASC, a.seq ASC
	`, user, semester, mainTopic, excludeProblem)
	if err != nil {
		return nil, fmt.Errorf("prior practice answers: %w", err)
	}
	defer rows.Close()
	return scanAnswers(rows)
}

// AttemptCount returns how many times (user, semester) has answered problem,
// and whether any of those attempts already solved it.
func (s *Store) AttemptCount(q store.Querier, user, semester, problem uuid.UUID) (attempts int, solved bool, err error) {
	rows, err := q.Query(`
		SELECT is_solved FROM user_answers
		WHERE user_id = $1 AND semester_id = $2 AND problem_id = $3
	`, user, semester, problem)
	if err != nil {
		return 0, false, fmt.Errorf("attempt count: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var isSolved sql.NullBool
		if err := rows.Scan(&isSolved); err != nil {
			return 0, false, fmt.Errorf("scan attempt: %w", err)
		}
		attempts++
		if isSolved.Valid && isSolved.Bool {
			solved = true
		}
	}
	return attempts, solved, rows.Err()
}

// AnsweredProblems returns the set of problem ids a user has already
// submitted an answer for in this semester, used to exclude them from
// candidate pools.
func (s *Store) AnsweredProblems(q store.Querier, user, semester uuid.UUID) (map[uuid.UUID]struct{}, error) {
	rows, err := q.Query(`
		SELECT DISTINCT problem_id FROM user_answers WHERE user_id = $1 AND semester_id = $2
	`, user, semester)
	if err != nil {
		return nil, fmt.Errorf("answered problems: %w", err)
	}
	defer rows.Close()
	set := make(map[uuid.UUID]struct{})
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan answered problem: %w", err)
		}
		set[id] = struct{}{}
	}
	return set, rows.Err()
}

func scanAnswers(rows *sql.Rows) ([]*Answer, error) {
	var out []*Answer
	for rows.Next() {
		a := &Answer{}
		var isSolved sql.NullBool
		var elapsed sql.NullInt64
		if err := rows.Scan(&a.ID, &a.UserID, &a.SemesterID, &a.ProblemID, &isSolved,
			&a.Coefficient, &a.GivenAnswer, &elapsed, &a.CreatedAt, &a.Seq); err != nil {
			return nil, fmt.Errorf("scan answer row: %w", err)
		}
		if isSolved.Valid {
			v := isSolved.Bool
			a.IsSolved = &v
		}
		if elapsed.Valid {
			v := int(elapsed.Int64)
			a.ElapsedSeconds = &v
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
