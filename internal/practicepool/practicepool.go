// Package practicepool builds the eligible-practice-problem candidate pool
// shared by the practice selector and the weakest-link state machine, which
// both need it and would otherwise import each other.
package practicepool

import (
	"github.com/google/uuid"

	"github.com/Azen0n/enginesvc/internal/answerlog"
	"github.com/Azen0n/enginesvc/internal/catalog"
	"github.com/Azen0n/enginesvc/internal/config"
	"github.com/Azen0n/enginesvc/internal/progress"
	"github.com/Azen0n/enginesvc/internal/store"
)

type Builder struct {
	catalog   *catalog.Store
	progress  *progress.Store
	answerlog *answerlog.Store
	cfg       *config.Config
}

func NewBuilder(c *catalog.Store, p *progress.Store, a *answerlog.Store, cfg *config.Config) *Builder {
	return &Builder{catalog: c, progress: p, answerlog: a, cfg: cfg}
}

// EligibleTopics returns topics where theory_low is reached and practice is
// not yet complete.
func (b *Builder) EligibleTopics(q store.Querier, user, semester uuid.UUID, topics []uuid.UUID) ([]uuid.UUID, error) {
	var eligible []uuid.UUID
	for _, t := range topics {
		p, err := b.progress.GetOrCreate(q, user, semester, t)
		if err != nil {
			return nil, err
		}
		if p.TheoryLowReached(b.cfg) && !p.IsPracticeCompleted(b.cfg) {
			eligible = append(eligible, t)
		}
	}
	return eligible, nil
}

// EligibleProblems narrows the practice problems of eligibleTopics to those
// the user may still attempt: not solved, attempts remaining, every
// sub-topic's theory unlocked, and the main topic not already done for the
// user's target ceiling.
func (b *Builder) EligibleProblems(q store.Querier, user, semester uuid.UUID, eligibleTopics []uuid.UUID) ([]*catalog.Problem, error) {
	candidates, err := b.catalog.PracticeCandidatesByTopics(eligibleTopics)
	if err != nil {
		return nil, err
	}
	target, err := b.progress.TargetPoints(q, user)
	if err != nil {
		return nil, err
	}

	var eligible []*catalog.Problem
	for _, p := range candidates {
		attempts, solved, err := b.answerlog.AttemptCount(q, user, semester, p.ID)
		if err != nil {
			return nil, err
		}
		if solved {
			continue
		}
		if attempts >= b.cfg.MaxAttemptsPerPractice {
			continue
		}

		allSubsReady := true
		for _, sub := range p.SubTopics {
			sp, err := b.progress.GetOrCreate(q, user, semester, sub)
			if err != nil {
				return nil, err
			}
			if !sp.TheoryLowReached(b.cfg) {
				allSubsReady = false
				break
			}
		}
		if !allSubsReady {
			continue
		}

		mainProgress, err := b.progress.GetOrCreate(q, user, semester, p.MainTopic)
		if err != nil {
			return nil, err
		}
		if b.progress.PracticeCompletedByTarget(mainProgress, target) {
			continue
		}

		eligible = append(eligible, p)
	}
	return eligible, nil
}

// FilterSuitableDifficulty keeps only problems whose difficulty equals the
// suitable difficulty for their main topic's skill estimate.
func (b *Builder) FilterSuitableDifficulty(q store.Querier, user, semester uuid.UUID, problems []*catalog.Problem) ([]*catalog.Problem, error) {
	var out []*catalog.Problem
	for _, p := range problems {
		mp, err := b.progress.GetOrCreate(q, user, semester, p.MainTopic)
		if err != nil {
			return nil, err
		}
		if p.Difficulty == b.cfg.SuitableDifficulty(mp.SkillLevel) {
			out = append(out, p)
		}
	}
	return out, nil
}

// FilterByDifficultyCap keeps problems at or below the given cap, used by
// the widening retries when the suitable-difficulty filter comes up empty.
func FilterByDifficultyCap(problems []*catalog.Problem, cap catalog.Difficulty) []*catalog.Problem {
	var out []*catalog.Problem
	for _, p := range problems {
		if p.Difficulty <= cap {
			out = append(out, p)
		}
	}
	return out
}

// TopicSet returns a problem's main topic and sub-topics as one set.
func TopicSet(p *catalog.Problem) map[uuid.UUID]struct{} {
	return p.Topics()
}

// SimilarToGroup reports whether a problem's topic set overlaps a group's
// topic set by a ratio strictly above SimilarityThreshold, the same ratio used for
// problem-to-problem similarity, generalized to a problem-vs-group
// comparison for weakest-link probe candidate ranking.
func SimilarToGroup(p *catalog.Problem, group map[uuid.UUID]struct{}, cfg *config.Config) bool {
	topics := TopicSet(p)
	intersection := 0
	for t := range topics {
		if _, ok := group[t]; ok {
			intersection++
		}
	}
	maxLen := len(topics)
	if len(group) > maxLen {
		maxLen = len(group)
	}
	if maxLen == 0 {
		return false
	}
	return float64(intersection)/float64(maxLen) > cfg.SimilarityThreshold
}
