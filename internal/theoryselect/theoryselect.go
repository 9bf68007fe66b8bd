// Package theoryselect picks the next theory problem for a topic, enforcing
// parent-topic prerequisites and the calibration difficulty cap.
package theoryselect

import (
	"github.com/google/uuid"

	"github.com/Azen0n/enginesvc/internal/answerlog"
	"github.com/Azen0n/enginesvc/internal/apperr"
	"github.com/Azen0n/enginesvc/internal/catalog"
	"github.com/Azen0n/enginesvc/internal/config"
	"github.com/Azen0n/enginesvc/internal/progress"
	"github.com/Azen0n/enginesvc/internal/store"
	"github.com/Azen0n/enginesvc/internal/value"
)

type Selector struct {
	catalog   *catalog.Store
	progress  *progress.Store
	answerlog *answerlog.Store
	cfg       *config.Config
}

func NewSelector(c *catalog.Store, p *progress.Store, a *answerlog.Store, cfg *config.Config) *Selector {
	return &Selector{catalog: c, progress: p, answerlog: a, cfg: cfg}
}

// Next implements nextTheory(user, semester, topic).
func (s *Selector) Next(q store.Querier, user, semester, topic uuid.UUID) (*catalog.Problem, error) {
	topicProgress, err := s.progress.GetOrCreate(q, user, semester, topic)
	if err != nil {
		return nil, err
	}
	if topicProgress.IsTheoryCompleted(s.cfg) {
		return nil, apperr.New(apperr.TopicTheoryDone, "theory already completed for topic %s", topic)
	}

	t, err := s.catalog.Topic(topic)
	if err != nil {
		return nil, err
	}
	if t.ParentTopic != nil {
		parentProgress, err := s.progress.GetOrCreate(q, user, semester, *t.ParentTopic)
		if err != nil {
			return nil, err
		}
		if !parentProgress.TheoryLowReached(s.cfg) {
			return nil, apperr.New(apperr.PrerequisiteNotMet, "parent topic %s has not reached theory_low", *t.ParentTopic)
		}
	}

	candidates, err := s.catalog.TheoryCandidates(topic)
	if err != nil {
		return nil, err
	}
	candidates, err = s.filterEligible(q, user, semester, candidates)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, apperr.New(apperr.NoProblemAvailable, "no theory candidates for topic %s", topic)
	}

	// No in-flight submission during selection, so nothing to exclude.
	lastN, err := s.answerlog.CountNonSkippedTheory(q, user, semester, topic, 0)
	if err != nil {
		return nil, err
	}
	target, err := s.progress.TargetPoints(q, user)
	if err != nil {
		return nil, err
	}
	if lastN >= s.cfg.PlacementAnswers {
		byTopic, err := s.progressContext(q, user, semester, candidates)
		if err != nil {
			return nil, err
		}
		return pick(s.cfg, byTopic, candidates, target)
	}

	cap := s.cfg.SuitableDifficulty(topicProgress.SkillLevel)
	for {
		capped := filterByDifficultyCap(candidates, cap)
		if len(capped) > 0 {
			byTopic, err := s.progressContext(q, user, semester, capped)
			if err != nil {
				return nil, err
			}
			return pick(s.cfg, byTopic, capped, target)
		}
		if cap >= catalog.Hard {
			return nil, apperr.New(apperr.NoProblemAvailable, "no theory candidates for topic %s within difficulty cap", topic)
		}
		cap = cap.Higher()
	}
}

func (s *Selector) filterEligible(q store.Querier, user, semester uuid.UUID, candidates []*catalog.Problem) ([]*catalog.Problem, error) {
	answered, err := s.answerlog.AnsweredProblems(q, user, semester)
	if err != nil {
		return nil, err
	}
	var eligible []*catalog.Problem
	for _, p := range candidates {
		if _, done := answered[p.ID]; done {
			continue
		}
		ok := true
		for _, sub := range p.SubTopics {
			sp, err := s.progress.GetOrCreate(q, user, semester, sub)
			if err != nil {
				return nil, err
			}
			if !sp.TheoryLowReached(s.cfg) {
				ok = false
				break
			}
		}
		if ok {
			eligible = append(eligible, p)
		}
	}
	return eligible, nil
}

func filterByDifficultyCap(problems []*catalog.Problem, cap catalog.Difficulty) []*catalog.Problem {
	var out []*catalog.Problem
	for _, p := range problems {
		if p.Difficulty <= cap {
			out = append(out, p)
		}
	}
	return out
}

func (s *Selector) progressContext(q store.Querier, user, semester uuid.UUID, problems []*catalog.Problem) (value.ProgressByTopic, error) {
	byTopic := make(value.ProgressByTopic)
	for _, p := range problems {
		topics := append([]uuid.UUID{p.MainTopic}, p.SubTopics...)
		for _, t := range topics {
			if _, ok := byTopic[t]; ok {
				continue
			}
			pr, err := s.progress.GetOrCreate(q, user, semester, t)
			if err != nil {
				return nil, err
			}
			byTopic[t] = pr
		}
	}
	return byTopic, nil
}

func pick(cfg *config.Config, byTopic value.ProgressByTopic, candidates []*catalog.Problem, target float64) (*catalog.Problem, error) {
	top := value.Top(cfg, byTopic, candidates, target)
	if top == nil {
		return nil, apperr.New(apperr.NoProblemAvailable, "no ranked theory candidate")
	}
	return top, nil
}
