// Package scoring turns a validated answer into point deltas for the main
// topic and sub-topics, bounded by thresholds, and updates the skill
// estimate, including the calibration regime run over a topic's first
// PLACEMENT_ANSWERS+1 theory answers.
package scoring

import (
	"database/sql"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/Azen0n/enginesvc/internal/answerlog"
	"github.com/Azen0n/enginesvc/internal/catalog"
	"github.com/Azen0n/enginesvc/internal/config"
	"github.com/Azen0n/enginesvc/internal/progress"
	"github.com/Azen0n/enginesvc/internal/value"
)

type Engine struct {
	progress  *progress.Store
	answerlog *answerlog.Store
	cfg       *config.Config
}

func NewEngine(p *progress.Store, a *answerlog.Store, cfg *config.Config) *Engine {
	return &Engine{progress: p, answerlog: a, cfg: cfg}
}

// Outcome reports what ApplyAnswer did, for answer intake to act on.
type Outcome struct {
	IsSolved              bool
	MainNewlyPracticeDone bool
	MainProgress          *progress.Progress
}

// ApplyAnswer runs the full scoring update for one validated answer, under
// tx. currentAnswerID is the already-appended log row for this submission,
// excluded from the engine's own history reads so they see only answers
// prior to it. subTopics is the set of already-lock-acquired Progress rows
// for the problem's sub-topics; intake locks them alongside the main topic
// so the whole update is one atomic read-modify-write.
func (e *Engine) ApplyAnswer(tx *sql.Tx, user, semester uuid.UUID, problem *catalog.Problem, coefficient float64, currentAnswerID int64, subTopics map[uuid.UUID]*progress.Progress) (*Outcome, error) {
	isSolved := coefficient >= e.cfg.MinCorrect

	main, err := e.progress.GetForUpdate(tx, user, semester, problem.MainTopic)
	if err != nil {
		return nil, err
	}
	wasPracticeDone := main.IsPracticeCompleted(e.cfg)

	target, err := e.progress.TargetPoints(tx, user)
	if err != nil {
		return nil, err
	}

	var regime regime
	if problem.Type == catalog.Theory {
		lastN, err := e.answerlog.CountNonSkippedTheory(tx, user, semester, problem.MainTopic, currentAnswerID)
		if err != nil {
			return nil, err
		}
		regime = theoryRegime(lastN, e.cfg.PlacementAnswers)
	} else {
		regime = steadyState
	}

	if isSolved {
		e.awardPoints(main, problem, coefficient, regime, target)
		for _, sp := range subTopics {
			e.awardSubPoints(sp, problem, coefficient, regime)
		}
	}

	if err := e.updateSkill(tx, user, semester, problem, coefficient, isSolved, regime, currentAnswerID, main); err != nil {
		return nil, err
	}

	if err := e.progress.Save(tx, main); err != nil {
		return nil, err
	}
	for _, sp := range subTopics {
		if err := e.progress.Save(tx, sp); err != nil {
			return nil, err
		}
	}

	return &Outcome{
		IsSolved:              isSolved,
		MainNewlyPracticeDone: !wasPracticeDone && main.IsPracticeCompleted(e.cfg),
		MainProgress:          main,
	}, nil
}

type regime int

const (
	calibrationPhase regime = iota
	calibrationClosure
	steadyState
)

func theoryRegime(lastN, placementAnswers int) regime {
	switch {
	case lastN < placementAnswers:
		return calibrationPhase
	case lastN == placementAnswers:
		return calibrationClosure
	default:
		return steadyState
	}
}

func (e *Engine) awardPoints(p *progress.Progress, problem *catalog.Problem, coefficient float64, r regime, target float64) {
	base := coefficient * e.cfg.PointsByDifficulty[problem.Difficulty]
	if r != steadyState {
		base *= e.cfg.PlacementPointsCoef
	}
	threshold := math.Min(e.cfg.TargetThreshold(problem.Difficulty), target)
	delta := value.CapDelta(value.Combined(p), value.CurrentPoints(p, problem.Type), base, threshold, value.PartMax(e.cfg, problem.Type))
	apply(p, problem.Type, delta)
}

func (e *Engine) awardSubPoints(p *progress.Progress, problem *catalog.Problem, coefficient float64, r regime) {
	base := coefficient * coefficient * e.cfg.PointsByDifficulty[problem.Difficulty] * e.cfg.SubTopicCoefficient
	if r != steadyState {
		base *= e.cfg.PlacementPointsCoef
	}
	delta := value.CapDelta(value.Combined(p), value.CurrentPoints(p, problem.Type), base, e.cfg.ThresholdMedium, value.PartMax(e.cfg, problem.Type))
	apply(p, problem.Type, delta)
}

func apply(p *progress.Progress, t catalog.ProblemType, delta float64) {
	if t == catalog.Theory {
		p.TheoryPoints += delta
	} else {
		p.PracticePoints += delta
	}
}

// updateSkill applies one of the three skill regimes: no change during
// calibration, a streak-derived one-shot adjustment at calibration closure,
// and a per-difficulty bonus/malus in steady state.
func (e *Engine) updateSkill(tx *sql.Tx, user, semester uuid.UUID, problem *catalog.Problem, coefficient float64, isSolved bool, r regime, currentAnswerID int64, main *progress.Progress) error {
	switch {
	case problem.Type == catalog.Theory && r == calibrationPhase:
		return nil
	case problem.Type == catalog.Theory && r == calibrationClosure:
		streak, err := e.closureStreak(tx, user, semester, problem.MainTopic, coefficient, isSolved, currentAnswerID)
		if err != nil {
			return fmt.Errorf("longest streak: %w", err)
		}
		main.SkillLevel += streak*e.cfg.PlacementBonus - e.cfg.PlacementBias
		return nil
	default:
		bonus := e.cfg.BonusByDifficulty[problem.Difficulty]
		if isSolved {
			main.SkillLevel += bonus
		} else {
			main.SkillLevel -= bonus
		}
		return nil
	}
}

// closureStreak computes the longest streak over the most recent
// PLACEMENT_ANSWERS prior theory answers on this topic plus the current
// submission. The current submission's own log row is excluded from the
// fetch so it enters the window exactly once, as the newest entry.
func (e *Engine) closureStreak(tx *sql.Tx, user, semester, topic uuid.UUID, currentCoefficient float64, currentSolved bool, currentAnswerID int64) (float64, error) {
	prior, err := e.answerlog.RecentTheoryAnswers(tx, user, semester, topic, e.cfg.PlacementAnswers, currentAnswerID)
	if err != nil {
		return 0, err
	}
	coefficients, solved := closureWindow(prior, currentCoefficient, currentSolved)
	return longestStreak(coefficients, solved), nil
}

// closureWindow assembles the chronological coefficient/solved series the
// closure streak runs over: prior answers (given most-recent-first)
// reversed, then the current submission as the newest entry.
func closureWindow(prior []*answerlog.Answer, currentCoefficient float64, currentSolved bool) ([]float64, []bool) {
	coefficients := make([]float64, 0, len(prior)+1)
	solved := make([]bool, 0, len(prior)+1)
	for i := len(prior) - 1; i >= 0; i-- {
		a := prior[i]
		coefficients = append(coefficients, a.Coefficient)
		solved = append(solved, a.IsSolved != nil && *a.IsSolved)
	}
	coefficients = append(coefficients, currentCoefficient)
	solved = append(solved, currentSolved)
	return coefficients, solved
}

// longestStreak returns the maximum sum of consecutive coefficient values
// across runs of consecutively solved answers.
func longestStreak(coefficients []float64, solved []bool) float64 {
	best, running := 0.0, 0.0
	for i, s := range solved {
		if !s {
			running = 0
			continue
		}
		running += coefficients[i]
		if running > best {
			best = running
		}
	}
	return best
}
