package scoring

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/Azen0n/enginesvc/internal/answerlog"
	"github.com/Azen0n/enginesvc/internal/catalog"
	"github.com/Azen0n/enginesvc/internal/config"
	"github.com/Azen0n/enginesvc/internal/progress"
)

const noCeiling = 100.0

func testConfig() *config.Config {
	return &config.Config{
		TheoryMax:       40,
		PracticeMax:     60,
		ThresholdMedium: 76,
		PointsByDifficulty: map[catalog.Difficulty]float64{
			catalog.Easy:   5,
			catalog.Normal: 9,
			catalog.Hard:   18,
		},
		BonusByDifficulty: map[catalog.Difficulty]float64{
			catalog.Easy:   0.05,
			catalog.Normal: 0.075,
			catalog.Hard:   0.1,
		},
		SubTopicCoefficient: 1.0 / 3.0,
		PlacementPointsCoef: 0.5,
		PlacementAnswers:    5,
		PlacementBonus:      0.15,
		PlacementBias:       0.2,
	}
}

func TestTheoryRegime(t *testing.T) {
	assert.Equal(t, calibrationPhase, theoryRegime(0, 5))
	assert.Equal(t, calibrationPhase, theoryRegime(4, 5))
	assert.Equal(t, calibrationClosure, theoryRegime(5, 5))
	assert.Equal(t, steadyState, theoryRegime(6, 5))
}

func TestApplyAddsToCorrectPart(t *testing.T) {
	p := &progress.Progress{}
	apply(p, catalog.Theory, 5)
	assert.Equal(t, 5.0, p.TheoryPoints)
	assert.Equal(t, 0.0, p.PracticePoints)

	apply(p, catalog.Practice, 3)
	assert.Equal(t, 3.0, p.PracticePoints)
}

func TestAwardPointsFullCreditInSteadyState(t *testing.T) {
	e := &Engine{cfg: testConfig()}
	p := &progress.Progress{}
	problem := &catalog.Problem{Difficulty: catalog.Normal, Type: catalog.Theory}

	e.awardPoints(p, problem, 1.0, steadyState, noCeiling)
	assert.Equal(t, 9.0, p.TheoryPoints)
}

func TestAwardPointsHalvedDuringCalibration(t *testing.T) {
	e := &Engine{cfg: testConfig()}
	p := &progress.Progress{}
	problem := &catalog.Problem{Difficulty: catalog.Normal, Type: catalog.Theory}

	e.awardPoints(p, problem, 1.0, calibrationPhase, noCeiling)
	assert.Equal(t, 4.5, p.TheoryPoints)
}

func TestAwardSubPointsUsesSquaredCoefficient(t *testing.T) {
	e := &Engine{cfg: testConfig()}
	p := &progress.Progress{}
	problem := &catalog.Problem{Difficulty: catalog.Normal, Type: catalog.Practice}

	e.awardSubPoints(p, problem, 0.5, steadyState)
	expected := 0.5 * 0.5 * 9 * (1.0 / 3.0)
	assert.InDelta(t, expected, p.PracticePoints, 1e-9)
}

func TestAwardPointsCapsAtPartMax(t *testing.T) {
	cfg := testConfig()
	e := &Engine{cfg: cfg}
	p := &progress.Progress{TheoryPoints: 38}
	problem := &catalog.Problem{Difficulty: catalog.Hard, Type: catalog.Theory, ID: uuid.New()}

	e.awardPoints(p, problem, 1.0, steadyState, noCeiling)
	assert.Equal(t, 40.0, p.TheoryPoints)
}

func TestAwardPointsCapsAtTargetCeiling(t *testing.T) {
	cfg := testConfig()
	e := &Engine{cfg: cfg}
	p := &progress.Progress{TheoryPoints: 30, PracticePoints: 29}
	problem := &catalog.Problem{Difficulty: catalog.Hard, Type: catalog.Practice, ID: uuid.New()}

	e.awardPoints(p, problem, 1.0, steadyState, 61)
	assert.Equal(t, 31.0, p.PracticePoints)
}

func TestLongestStreakSumsConsecutiveSolvedCoefficients(t *testing.T) {
	t.Run("all solved", func(t *testing.T) {
		got := longestStreak(
			[]float64{1, 1, 1, 1, 1, 1},
			[]bool{true, true, true, true, true, true},
		)
		assert.Equal(t, 6.0, got)
	})

	t.Run("a miss resets the run", func(t *testing.T) {
		got := longestStreak(
			[]float64{1, 1, 0.2, 1, 0.9, 1},
			[]bool{true, true, false, true, true, true},
		)
		assert.InDelta(t, 2.9, got, 1e-9)
	})

	t.Run("nothing solved", func(t *testing.T) {
		got := longestStreak([]float64{0.5, 0.3}, []bool{false, false})
		assert.Equal(t, 0.0, got)
	})
}

func boolPtr(b bool) *bool { return &b }

func TestClosureWindowOrdersPriorsAndAppendsCurrentOnce(t *testing.T) {
	// Priors arrive most-recent-first; the window must be chronological with
	// the current submission as its single newest entry.
	prior := []*answerlog.Answer{
		{Coefficient: 0.9, IsSolved: boolPtr(true)},  // most recent prior
		{Coefficient: 0.2, IsSolved: boolPtr(false)}, // a miss mid-window
		{Coefficient: 1.0, IsSolved: boolPtr(true)},
		{Coefficient: 1.0, IsSolved: boolPtr(true)},
		{Coefficient: 0.8, IsSolved: boolPtr(true)}, // oldest prior
	}

	coefficients, solved := closureWindow(prior, 1.0, true)

	assert.Equal(t, []float64{0.8, 1.0, 1.0, 0.2, 0.9, 1.0}, coefficients)
	assert.Equal(t, []bool{true, true, true, false, true, true}, solved)

	// The miss splits the window: the leading 0.8+1.0+1.0 run beats the
	// trailing 0.9+1.0.
	assert.InDelta(t, 2.8, longestStreak(coefficients, solved), 1e-9)
}

func TestCalibrationClosureSkillDelta(t *testing.T) {
	cfg := testConfig()
	// Six consecutive solved answers at coefficient 1 give a streak of 6.0,
	// so the one-shot adjustment is 6.0*0.15 - 0.2 = 0.7.
	streak := longestStreak(
		[]float64{1, 1, 1, 1, 1, 1},
		[]bool{true, true, true, true, true, true},
	)
	delta := streak*cfg.PlacementBonus - cfg.PlacementBias
	assert.InDelta(t, 0.7, delta, 1e-9)
}
