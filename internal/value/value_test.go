package value

import (
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/Azen0n/enginesvc/internal/catalog"
	"github.com/Azen0n/enginesvc/internal/config"
	"github.com/Azen0n/enginesvc/internal/progress"
)

const noCeiling = 100.0

func testConfig() *config.Config {
	return &config.Config{
		TheoryMax:       40,
		PracticeMax:     60,
		ThresholdLow:    61,
		ThresholdMedium: 76,
		ThresholdHigh:   91,
		PointsByDifficulty: map[catalog.Difficulty]float64{
			catalog.Easy:   5,
			catalog.Normal: 9,
			catalog.Hard:   18,
		},
		SubTopicCoefficient: 1.0 / 3.0,
		AverageSkill:        1.7,
	}
}

func TestCapDelta(t *testing.T) {
	t.Run("no cap needed", func(t *testing.T) {
		assert.Equal(t, 9.0, CapDelta(50, 20, 9, 76, 60))
	})

	t.Run("threshold cap clips to remaining room", func(t *testing.T) {
		assert.Equal(t, 2.0, CapDelta(74, 20, 9, 76, 60))
	})

	t.Run("already at threshold yields zero", func(t *testing.T) {
		assert.Equal(t, 0.0, CapDelta(76, 20, 9, 76, 60))
	})

	t.Run("part max cap clips independently of threshold", func(t *testing.T) {
		assert.Equal(t, 1.0, CapDelta(50, 59, 9, 76, 60))
	})

	t.Run("already at part max yields zero", func(t *testing.T) {
		assert.Equal(t, 0.0, CapDelta(50, 60, 9, 76, 60))
	})
}

func TestCombinedAndCurrentPoints(t *testing.T) {
	p := &progress.Progress{TheoryPoints: 12, PracticePoints: 30}
	assert.Equal(t, 42.0, Combined(p))
	assert.Equal(t, 12.0, CurrentPoints(p, catalog.Theory))
	assert.Equal(t, 30.0, CurrentPoints(p, catalog.Practice))
}

func TestPointsIfSolvedMainRespectsTargetCeiling(t *testing.T) {
	cfg := testConfig()
	problem := &catalog.Problem{Difficulty: catalog.Hard, Type: catalog.Practice}
	p := &progress.Progress{TheoryPoints: 40, PracticePoints: 19}

	t.Run("room below the ceiling", func(t *testing.T) {
		assert.Equal(t, 18.0, PointsIfSolvedMain(cfg, p, problem, noCeiling))
	})

	t.Run("ceiling clips the award", func(t *testing.T) {
		assert.Equal(t, 2.0, PointsIfSolvedMain(cfg, p, problem, 61))
	})

	t.Run("at the ceiling yields zero", func(t *testing.T) {
		capped := &progress.Progress{TheoryPoints: 40, PracticePoints: 21}
		assert.Equal(t, 0.0, PointsIfSolvedMain(cfg, capped, problem, 61))
	})
}

func TestValueInfiniteWhenNoProgress(t *testing.T) {
	cfg := testConfig()
	main := uuid.New()
	problem := &catalog.Problem{MainTopic: main, TimeToSolveSec: 300, Difficulty: catalog.Normal}

	got := Value(cfg, ProgressByTopic{}, problem, noCeiling)
	assert.True(t, math.IsInf(got, 1))
}

func TestValueInfiniteWhenMaxedOut(t *testing.T) {
	cfg := testConfig()
	main := uuid.New()
	problem := &catalog.Problem{MainTopic: main, TimeToSolveSec: 300, Difficulty: catalog.Normal}
	byTopic := ProgressByTopic{
		main: {TheoryPoints: 0, PracticePoints: 76, SkillLevel: 1.7},
	}

	got := Value(cfg, byTopic, problem, noCeiling)
	assert.True(t, math.IsInf(got, 1))
}

func TestRankByValuePrefersLowerCost(t *testing.T) {
	cfg := testConfig()
	main := uuid.New()
	byTopic := ProgressByTopic{
		main: {TheoryPoints: 0, PracticePoints: 0, SkillLevel: 1.7},
	}
	cheap := &catalog.Problem{Title: "B", MainTopic: main, TimeToSolveSec: 100, Difficulty: catalog.Easy}
	costly := &catalog.Problem{Title: "A", MainTopic: main, TimeToSolveSec: 1000, Difficulty: catalog.Easy}

	ranked := RankByValue(cfg, byTopic, []*catalog.Problem{costly, cheap}, noCeiling)
	assert.Equal(t, cheap, ranked[0].Problem)
	assert.Equal(t, costly, ranked[1].Problem)
}

func TestRankByValueTiesBreakOnTitle(t *testing.T) {
	cfg := testConfig()
	main := uuid.New()
	byTopic := ProgressByTopic{
		main: {TheoryPoints: 0, PracticePoints: 0, SkillLevel: 1.7},
	}
	a := &catalog.Problem{Title: "Alpha", MainTopic: main, TimeToSolveSec: 300, Difficulty: catalog.Easy}
	b := &catalog.Problem{Title: "Beta", MainTopic: main, TimeToSolveSec: 300, Difficulty: catalog.Easy}

	ranked := RankByValue(cfg, byTopic, []*catalog.Problem{b, a}, noCeiling)
	assert.Equal(t, "Alpha", ranked[0].Problem.Title)
	assert.Equal(t, "Beta", ranked[1].Problem.Title)
}

func TestTopReturnsNilForEmptySlice(t *testing.T) {
	cfg := testConfig()
	assert.Nil(t, Top(cfg, ProgressByTopic{}, nil, noCeiling))
}

func TestGainedSumsMainAndSubTopics(t *testing.T) {
	cfg := testConfig()
	main := uuid.New()
	sub := uuid.New()
	byTopic := ProgressByTopic{
		main: {TheoryPoints: 0, PracticePoints: 0},
		sub:  {TheoryPoints: 0, PracticePoints: 0},
	}
	problem := &catalog.Problem{
		MainTopic:  main,
		SubTopics:  []uuid.UUID{sub},
		Difficulty: catalog.Normal,
		Type:       catalog.Practice,
	}

	got := Gained(cfg, byTopic, problem, noCeiling)
	mainGain := PointsIfSolvedMain(cfg, byTopic[main], problem, noCeiling)
	subGain := PointsIfSolvedSub(cfg, byTopic[sub], problem)
	assert.Equal(t, mainGain+subGain, got)
}
