// Package selection is the facade httpapi calls for "give me the next
// problem", dispatching to the theory or practice selector and handling
// transaction boundaries and transient-error retries.
package selection

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/Azen0n/enginesvc/internal/apperr"
	"github.com/Azen0n/enginesvc/internal/catalog"
	"github.com/Azen0n/enginesvc/internal/metrics"
	"github.com/Azen0n/enginesvc/internal/practiceselect"
	"github.com/Azen0n/enginesvc/internal/store"
	"github.com/Azen0n/enginesvc/internal/theoryselect"
)

const (
	retryAttempts = 3
	retryBackoff  = 50 * time.Millisecond
)

type Facade struct {
	db       *store.Store
	catalog  *catalog.Store
	theory   *theoryselect.Selector
	practice *practiceselect.Selector
}

func NewFacade(db *store.Store, c *catalog.Store, theory *theoryselect.Selector, practice *practiceselect.Selector) *Facade {
	return &Facade{db: db, catalog: c, theory: theory, practice: practice}
}

// NextTheory picks the next theory problem for a topic. Theory selection
// never mutates weakest-link state, so it runs against the plain connection.
func (f *Facade) NextTheory(user, semester, topic uuid.UUID) (*catalog.Problem, error) {
	start := time.Now()
	defer func() { metrics.SelectionDuration.WithLabelValues("theory").Observe(time.Since(start).Seconds()) }()
	return withRetry("next-theory", func() (*catalog.Problem, error) {
		return f.theory.Next(f.db.DB(), user, semester, topic)
	})
}

// NextPractice picks the next practice problem across the user's course.
// Practice selection can advance or finalize a weakest-link probe queue, so
// it runs inside a transaction.
func (f *Facade) NextPractice(user, semester uuid.UUID) (*catalog.Problem, error) {
	start := time.Now()
	defer func() { metrics.SelectionDuration.WithLabelValues("practice").Observe(time.Since(start).Seconds()) }()

	return withRetry("next-practice", func() (*catalog.Problem, error) {
		course, err := f.catalog.CourseOfSemester(semester)
		if err != nil {
			return nil, err
		}

		tx, err := f.db.Begin()
		if err != nil {
			return nil, fmt.Errorf("begin next-practice transaction: %w", err)
		}
		defer tx.Rollback()

		problem, err := f.practice.Next(tx, user, semester, course)
		if err != nil {
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("commit next-practice transaction: %w", err)
		}
		return problem, nil
	})
}

// withRetry re-runs fn on transient persistence errors, up to retryAttempts
// with linear backoff. Domain errors are returned immediately; the caller is
// expected to branch on them, not wait them out.
func withRetry(op string, fn func() (*catalog.Problem, error)) (*catalog.Problem, error) {
	var problem *catalog.Problem
	var err error
	for attempt := 1; attempt <= retryAttempts; attempt++ {
		problem, err = fn()
		if err == nil {
			return problem, nil
		}
		var domain *apperr.Error
		if errors.As(err, &domain) {
			return nil, err
		}
		if attempt < retryAttempts {
			log.Printf("%s: attempt %d failed, retrying: %v", op, attempt, err)
			time.Sleep(time.Duration(attempt) * retryBackoff)
		}
	}
	return nil, err
}
