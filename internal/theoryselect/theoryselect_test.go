package theoryselect

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Azen0n/enginesvc/internal/catalog"
	"github.com/Azen0n/enginesvc/internal/config"
	"github.com/Azen0n/enginesvc/internal/value"
)

func TestFilterByDifficultyCap(t *testing.T) {
	easy := &catalog.Problem{Title: "easy", Difficulty: catalog.Easy}
	normal := &catalog.Problem{Title: "normal", Difficulty: catalog.Normal}
	hard := &catalog.Problem{Title: "hard", Difficulty: catalog.Hard}
	all := []*catalog.Problem{easy, normal, hard}

	assert.Equal(t, []*catalog.Problem{easy}, filterByDifficultyCap(all, catalog.Easy))
	assert.Equal(t, []*catalog.Problem{easy, normal}, filterByDifficultyCap(all, catalog.Normal))
	assert.Equal(t, all, filterByDifficultyCap(all, catalog.Hard))
}

func TestPickReturnsBestValuedCandidate(t *testing.T) {
	cfg := &config.Config{
		TheoryMax:    40,
		PracticeMax:  60,
		ThresholdLow: 61,
		PointsByDifficulty: map[catalog.Difficulty]float64{
			catalog.Easy: 5,
		},
		AverageSkill: 1.7,
	}
	main := uuid.New()
	byTopic := value.ProgressByTopic{
		main: {SkillLevel: 1.7},
	}
	quick := &catalog.Problem{Title: "quick", MainTopic: main, TimeToSolveSec: 60, Difficulty: catalog.Easy}
	slow := &catalog.Problem{Title: "slow", MainTopic: main, TimeToSolveSec: 600, Difficulty: catalog.Easy}

	got, err := pick(cfg, byTopic, []*catalog.Problem{slow, quick}, 100)
	require.NoError(t, err)
	assert.Equal(t, quick, got)
}

func TestPickFailsOnEmptyPool(t *testing.T) {
	cfg := &config.Config{AverageSkill: 1.7}
	_, err := pick(cfg, value.ProgressByTopic{}, nil, 100)
	assert.Error(t, err)
}
