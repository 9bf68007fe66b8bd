package weakestlink

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/Azen0n/enginesvc/internal/catalog"
	"github.com/Azen0n/enginesvc/internal/config"
)

func similarityConfig() *config.Config {
	return &config.Config{SimilarityThreshold: 0.66}
}

func TestSimilarRequiresSameMainTopic(t *testing.T) {
	cfg := similarityConfig()
	main1, main2 := uuid.New(), uuid.New()
	p := &catalog.Problem{MainTopic: main1}
	q := &catalog.Problem{MainTopic: main2}

	assert.False(t, similar(p, q, cfg))
}

func TestSimilarComparesTopicSetOverlap(t *testing.T) {
	cfg := similarityConfig()
	main := uuid.New()
	sub1, sub2, sub3 := uuid.New(), uuid.New(), uuid.New()

	t.Run("identical topic sets are similar", func(t *testing.T) {
		p := &catalog.Problem{MainTopic: main, SubTopics: []uuid.UUID{sub1, sub2}}
		q := &catalog.Problem{MainTopic: main, SubTopics: []uuid.UUID{sub1, sub2}}
		assert.True(t, similar(p, q, cfg))
	})

	t.Run("majority overlap is similar", func(t *testing.T) {
		p := &catalog.Problem{MainTopic: main, SubTopics: []uuid.UUID{sub1, sub2}}
		q := &catalog.Problem{MainTopic: main, SubTopics: []uuid.UUID{sub1}}
		assert.True(t, similar(p, q, cfg))
	})

	t.Run("low overlap is not similar", func(t *testing.T) {
		p := &catalog.Problem{MainTopic: main, SubTopics: []uuid.UUID{sub1, sub2, sub3}}
		q := &catalog.Problem{MainTopic: main, SubTopics: []uuid.UUID{sub3}}
		assert.False(t, similar(p, q, cfg))
	})
}

func TestGroupNumbersDedupesAndSorts(t *testing.T) {
	rows := []ProblemRow{
		{Group: 2},
		{Group: 1},
		{Group: 2},
		{Group: 3},
		{Group: 1},
	}
	assert.Equal(t, []int{1, 2, 3}, groupNumbers(rows))
}

func TestGroupNumbersEmpty(t *testing.T) {
	assert.Nil(t, groupNumbers(nil))
}
