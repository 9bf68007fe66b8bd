package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Azen0n/enginesvc/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		TheoryMax:       40,
		PracticeMax:     60,
		ThresholdLow:    61,
		ThresholdMedium: 76,
		ThresholdHigh:   91,
	}
}

func TestTheoryLowReached(t *testing.T) {
	cfg := testConfig()
	low := cfg.TheoryMax * (cfg.ThresholdLow / (cfg.TheoryMax + cfg.PracticeMax))

	t.Run("below threshold", func(t *testing.T) {
		p := &Progress{TheoryPoints: low - 1}
		assert.False(t, p.TheoryLowReached(cfg))
	})

	t.Run("at threshold", func(t *testing.T) {
		p := &Progress{TheoryPoints: low}
		assert.True(t, p.TheoryLowReached(cfg))
	})
}

func TestIsTheoryCompleted(t *testing.T) {
	cfg := testConfig()
	assert.False(t, (&Progress{TheoryPoints: 39.9}).IsTheoryCompleted(cfg))
	assert.True(t, (&Progress{TheoryPoints: 40}).IsTheoryCompleted(cfg))
}

func TestIsPracticeCompleted(t *testing.T) {
	cfg := testConfig()
	assert.False(t, (&Progress{PracticePoints: 59.9}).IsPracticeCompleted(cfg))
	assert.True(t, (&Progress{PracticePoints: 60}).IsPracticeCompleted(cfg))
}

func TestCombined(t *testing.T) {
	p := &Progress{TheoryPoints: 12, PracticePoints: 30}
	assert.Equal(t, 42.0, p.Combined())
}

func TestPracticeCompletedByTarget(t *testing.T) {
	s := &Store{cfg: testConfig()}

	t.Run("below the ceiling", func(t *testing.T) {
		p := &Progress{TheoryPoints: 40, PracticePoints: 20}
		assert.False(t, s.PracticeCompletedByTarget(p, 61))
	})

	t.Run("combined points reach the ceiling", func(t *testing.T) {
		p := &Progress{TheoryPoints: 40, PracticePoints: 21}
		assert.True(t, s.PracticeCompletedByTarget(p, 61))
	})

	t.Run("practice max completes regardless of target", func(t *testing.T) {
		p := &Progress{TheoryPoints: 0, PracticePoints: 60}
		assert.True(t, s.PracticeCompletedByTarget(p, 91))
	})
}
