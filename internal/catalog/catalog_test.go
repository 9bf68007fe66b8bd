package catalog

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestDifficultyString(t *testing.T) {
	assert.Equal(t, "EASY", Easy.String())
	assert.Equal(t, "NORMAL", Normal.String())
	assert.Equal(t, "HARD", Hard.String())
	assert.Equal(t, "UNKNOWN", Difficulty(0).String())
}

func TestDifficultyHigherSaturatesAtHard(t *testing.T) {
	assert.Equal(t, Normal, Easy.Higher())
	assert.Equal(t, Hard, Normal.Higher())
	assert.Equal(t, Hard, Hard.Higher())
}

func TestDifficultyLowerSaturatesAtEasy(t *testing.T) {
	assert.Equal(t, Normal, Hard.Lower())
	assert.Equal(t, Easy, Normal.Lower())
	assert.Equal(t, Easy, Easy.Lower())
}

func TestProblemHasSubTopic(t *testing.T) {
	sub := uuid.New()
	other := uuid.New()
	p := &Problem{SubTopics: []uuid.UUID{sub}}

	assert.True(t, p.HasSubTopic(sub))
	assert.False(t, p.HasSubTopic(other))
}

func TestProblemTopicsIncludesMainAndSubTopics(t *testing.T) {
	main := uuid.New()
	sub1 := uuid.New()
	sub2 := uuid.New()
	p := &Problem{MainTopic: main, SubTopics: []uuid.UUID{sub1, sub2}}

	topics := p.Topics()
	assert.Len(t, topics, 3)
	assert.Contains(t, topics, main)
	assert.Contains(t, topics, sub1)
	assert.Contains(t, topics, sub2)
}
