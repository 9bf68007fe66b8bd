package practicepool

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/Azen0n/enginesvc/internal/catalog"
	"github.com/Azen0n/enginesvc/internal/config"
)

func TestFilterByDifficultyCapKeepsAtOrBelow(t *testing.T) {
	easy := &catalog.Problem{Title: "easy", Difficulty: catalog.Easy}
	normal := &catalog.Problem{Title: "normal", Difficulty: catalog.Normal}
	hard := &catalog.Problem{Title: "hard", Difficulty: catalog.Hard}

	got := FilterByDifficultyCap([]*catalog.Problem{easy, normal, hard}, catalog.Normal)

	assert.Equal(t, []*catalog.Problem{easy, normal}, got)
}

func TestFilterByDifficultyCapEmptyWhenNoneQualify(t *testing.T) {
	hard := &catalog.Problem{Title: "hard", Difficulty: catalog.Hard}
	got := FilterByDifficultyCap([]*catalog.Problem{hard}, catalog.Easy)
	assert.Nil(t, got)
}

func TestTopicSetIncludesMainAndSubTopics(t *testing.T) {
	main := uuid.New()
	sub := uuid.New()
	p := &catalog.Problem{MainTopic: main, SubTopics: []uuid.UUID{sub}}

	set := TopicSet(p)
	assert.Len(t, set, 2)
	assert.Contains(t, set, main)
	assert.Contains(t, set, sub)
}

func TestSimilarToGroup(t *testing.T) {
	cfg := &config.Config{SimilarityThreshold: 0.66}
	main := uuid.New()
	sub1 := uuid.New()
	sub2 := uuid.New()

	t.Run("identical topic sets are similar", func(t *testing.T) {
		p := &catalog.Problem{MainTopic: main, SubTopics: []uuid.UUID{sub1}}
		group := map[uuid.UUID]struct{}{main: {}, sub1: {}}
		assert.True(t, SimilarToGroup(p, group, cfg))
	})

	t.Run("low overlap is not similar", func(t *testing.T) {
		p := &catalog.Problem{MainTopic: main, SubTopics: []uuid.UUID{sub1, sub2}}
		group := map[uuid.UUID]struct{}{sub2: {}}
		assert.False(t, SimilarToGroup(p, group, cfg))
	})

	t.Run("empty group is never similar", func(t *testing.T) {
		p := &catalog.Problem{MainTopic: main}
		assert.False(t, SimilarToGroup(p, map[uuid.UUID]struct{}{}, cfg))
	})
}
