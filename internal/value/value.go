// Package value implements the cost-per-unit-progress ranking of candidate
// problems: cheaper expected time per point of remaining progress wins.
package value

import (
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/Azen0n/enginesvc/internal/catalog"
	"github.com/Azen0n/enginesvc/internal/config"
	"github.com/Azen0n/enginesvc/internal/progress"
)

// ProgressByTopic is the minimal view the value function needs: the current
// Progress row for every topic a candidate problem touches.
type ProgressByTopic map[uuid.UUID]*progress.Progress

// PointsIfSolvedMain returns the delta that would land on the problem's main
// topic if answered with coefficient 1, after every cap. target is the user's
// chosen points ceiling; once a topic's combined points reach it, further
// progress there is worth zero.
func PointsIfSolvedMain(cfg *config.Config, p *progress.Progress, problem *catalog.Problem, target float64) float64 {
	base := cfg.PointsByDifficulty[problem.Difficulty]
	threshold := math.Min(cfg.TargetThreshold(problem.Difficulty), target)
	return CapDelta(Combined(p), CurrentPoints(p, problem.Type), base, threshold, PartMax(cfg, problem.Type))
}

// PointsIfSolvedSub returns the delta that would land on one sub-topic if the
// problem is answered with coefficient 1. Sub-topic awards are always clipped
// at THRESHOLD_MEDIUM in addition to the per-part maximum.
func PointsIfSolvedSub(cfg *config.Config, p *progress.Progress, problem *catalog.Problem) float64 {
	base := cfg.PointsByDifficulty[problem.Difficulty] * cfg.SubTopicCoefficient
	return CapDelta(Combined(p), CurrentPoints(p, problem.Type), base, cfg.ThresholdMedium, PartMax(cfg, problem.Type))
}

// CapDelta clips a point award in two stages: first against the threshold
// using the topic's combined (theory+practice) points — target_threshold and
// THRESHOLD_MEDIUM are both expressed on the combined scale — then against
// the receiving part's own absolute maximum using that part's current points.
// Shared by the value function (coefficient=1 projections) and the scoring
// engine (actual coefficient-weighted deltas), so both clip identically.
func CapDelta(combinedCurrent, partCurrent, points, threshold, partMax float64) float64 {
	if combinedCurrent >= threshold {
		return 0
	}
	if combinedCurrent+points > threshold {
		points = threshold - combinedCurrent
	}
	if partCurrent >= partMax {
		return 0
	}
	if partCurrent+points > partMax {
		points = partMax - partCurrent
	}
	if points < 0 {
		return 0
	}
	return points
}

// CurrentPoints returns the points a Progress row currently holds for the
// part (theory vs. practice) a problem's type addresses.
func CurrentPoints(p *progress.Progress, t catalog.ProblemType) float64 {
	if t == catalog.Theory {
		return p.TheoryPoints
	}
	return p.PracticePoints
}

// Combined returns theory_points + practice_points, the scale
// target_threshold and THRESHOLD_MEDIUM are compared against.
func Combined(p *progress.Progress) float64 {
	return p.TheoryPoints + p.PracticePoints
}

// PartMax returns the absolute ceiling (THEORY_MAX or PRACTICE_MAX) for the
// part a problem's type addresses.
func PartMax(cfg *config.Config, t catalog.ProblemType) float64 {
	if t == catalog.Theory {
		return cfg.TheoryMax
	}
	return cfg.PracticeMax
}

// Gained sums PointsIfSolvedMain plus PointsIfSolvedSub over every sub-topic
// with a tracked Progress row.
func Gained(cfg *config.Config, byTopic ProgressByTopic, problem *catalog.Problem, target float64) float64 {
	total := 0.0
	if mp, ok := byTopic[problem.MainTopic]; ok {
		total += PointsIfSolvedMain(cfg, mp, problem, target)
	}
	for _, sub := range problem.SubTopics {
		if sp, ok := byTopic[sub]; ok {
			total += PointsIfSolvedSub(cfg, sp, problem)
		}
	}
	return total
}

// Value computes weighted_time / gained, +Inf when gained is zero so a
// maxed-out problem never outranks one that still offers progress.
func Value(cfg *config.Config, byTopic ProgressByTopic, problem *catalog.Problem, target float64) float64 {
	mainProgress, ok := byTopic[problem.MainTopic]
	if !ok {
		return math.Inf(1)
	}
	skill := mainProgress.SkillLevel
	if skill <= 0 {
		skill = cfg.AverageSkill
	}
	weightedTime := float64(problem.TimeToSolveSec) * (cfg.AverageSkill / skill)
	gained := Gained(cfg, byTopic, problem, target)
	if gained == 0 {
		return math.Inf(1)
	}
	return weightedTime / gained
}

// Scored pairs a problem with its computed value for ranking.
type Scored struct {
	Problem *catalog.Problem
	Value   float64
}

// RankByValue orders problems ascending by Value (lower is better), breaking
// ties on title so equally-valued candidates come back in a stable order.
func RankByValue(cfg *config.Config, byTopic ProgressByTopic, problems []*catalog.Problem, target float64) []Scored {
	scored := make([]Scored, len(problems))
	for i, p := range problems {
		scored[i] = Scored{Problem: p, Value: Value(cfg, byTopic, p, target)}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Value != scored[j].Value {
			return scored[i].Value < scored[j].Value
		}
		return scored[i].Problem.Title < scored[j].Problem.Title
	})
	return scored
}

// Top returns the best-ranked problem, or nil if problems is empty.
func Top(cfg *config.Config, byTopic ProgressByTopic, problems []*catalog.Problem, target float64) *catalog.Problem {
	ranked := RankByValue(cfg, byTopic, problems, target)
	if len(ranked) == 0 {
		return nil
	}
	return ranked[0].Problem
}
