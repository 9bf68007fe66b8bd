// Package practiceselect picks the next practice problem across a user's
// whole course, first deferring to an in-progress weakest-link probe, then
// ranking the eligible pool by value with a two-step difficulty-cap widening
// retry.
package practiceselect

import (
	"database/sql"

	"github.com/google/uuid"

	"github.com/Azen0n/enginesvc/internal/apperr"
	"github.com/Azen0n/enginesvc/internal/catalog"
	"github.com/Azen0n/enginesvc/internal/config"
	"github.com/Azen0n/enginesvc/internal/practicepool"
	"github.com/Azen0n/enginesvc/internal/progress"
	"github.com/Azen0n/enginesvc/internal/value"
	"github.com/Azen0n/enginesvc/internal/weakestlink"
)

type Selector struct {
	catalog  *catalog.Store
	progress *progress.Store
	pool     *practicepool.Builder
	weakest  *weakestlink.Machine
	cfg      *config.Config
}

func NewSelector(c *catalog.Store, p *progress.Store, pool *practicepool.Builder, weakest *weakestlink.Machine, cfg *config.Config) *Selector {
	return &Selector{catalog: c, progress: p, pool: pool, weakest: weakest, cfg: cfg}
}

// Next returns the next practice problem for user. course is the course the
// semester runs, used to enumerate every topic eligibility is evaluated over.
func (s *Selector) Next(tx *sql.Tx, user, semester, course uuid.UUID) (*catalog.Problem, error) {
	state, err := s.weakest.Store().GetState(tx, user, semester)
	if err != nil {
		return nil, err
	}
	if state == weakestlink.InProgress {
		probe, ok, err := s.weakest.NextProbe(tx, user, semester)
		if err != nil {
			return nil, err
		}
		if ok {
			return probe, nil
		}
		if err := s.weakest.Finalize(tx, user, semester); err != nil {
			return nil, err
		}
	}

	topics, err := s.catalog.CourseTopics(course)
	if err != nil {
		return nil, err
	}
	eligibleTopics, err := s.pool.EligibleTopics(tx, user, semester, topics)
	if err != nil {
		return nil, err
	}
	if len(eligibleTopics) == 0 {
		return nil, apperr.New(apperr.TheoryNotStarted, "no topic has reached theory_low with practice remaining")
	}

	candidates, err := s.pool.EligibleProblems(tx, user, semester, eligibleTopics)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, apperr.New(apperr.NoProblemAvailable, "no eligible practice problems")
	}

	suitable, err := s.pool.FilterSuitableDifficulty(tx, user, semester, candidates)
	if err != nil {
		return nil, err
	}
	if len(suitable) > 0 {
		return s.pick(tx, user, semester, suitable)
	}

	widened := practicepool.FilterByDifficultyCap(candidates, catalog.Normal)
	if len(widened) > 0 {
		return s.pick(tx, user, semester, widened)
	}
	widened = practicepool.FilterByDifficultyCap(candidates, catalog.Hard)
	if len(widened) > 0 {
		return s.pick(tx, user, semester, widened)
	}

	return nil, apperr.New(apperr.NoProblemAvailable, "no eligible practice problems within any difficulty cap")
}

func (s *Selector) pick(tx *sql.Tx, user, semester uuid.UUID, problems []*catalog.Problem) (*catalog.Problem, error) {
	byTopic := make(value.ProgressByTopic)
	for _, p := range problems {
		for t := range p.Topics() {
			if _, ok := byTopic[t]; ok {
				continue
			}
			pr, err := s.progress.GetOrCreate(tx, user, semester, t)
			if err != nil {
				return nil, err
			}
			byTopic[t] = pr
		}
	}
	target, err := s.progress.TargetPoints(tx, user)
	if err != nil {
		return nil, err
	}
	top := value.Top(s.cfg, byTopic, problems, target)
	if top == nil {
		return nil, apperr.New(apperr.NoProblemAvailable, "no ranked practice problem")
	}
	return top, nil
}
