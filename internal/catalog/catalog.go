// Package catalog holds the typed, externally-authored, read-only entities
// of the course content graph: courses, modules, topics and problems.
package catalog

import "github.com/google/uuid"

// Difficulty is a problem's difficulty tier.
type Difficulty int

const (
	Easy Difficulty = iota + 1
	Normal
	Hard
)

func (d Difficulty) String() string {
	switch d {
	case Easy:
		return "EASY"
	case Normal:
		return "NORMAL"
	case Hard:
		return "HARD"
	default:
		return "UNKNOWN"
	}
}

// Higher returns the next difficulty tier, saturating at Hard.
func (d Difficulty) Higher() Difficulty {
	if d >= Hard {
		return Hard
	}
	return d + 1
}

// Lower returns the previous difficulty tier, saturating at Easy.
func (d Difficulty) Lower() Difficulty {
	if d <= Easy {
		return Easy
	}
	return d - 1
}

// ProblemType distinguishes theory from practice problems. Concrete answer
// kinds (MCR/MCC/FIB/CODE) are the separate AnswerKind below, validated by
// the validate package, and are orthogonal to this split.
type ProblemType int

const (
	Theory ProblemType = iota + 1
	Practice
)

// AnswerKind identifies the concrete shape of a problem's answer payload.
type AnswerKind string

const (
	MultipleChoiceRadio    AnswerKind = "MULTIPLE_CHOICE_RADIO"
	MultipleChoiceCheckbox AnswerKind = "MULTIPLE_CHOICE_CHECKBOX"
	FillInSingleBlank      AnswerKind = "FILL_IN_SINGLE_BLANK"
	Code                   AnswerKind = "CODE"
)

// Course is the top-level enrollment unit: an ordered list of Modules.
type Course struct {
	ID      uuid.UUID
	Title   string
	Modules []uuid.UUID // module ids, in order
}

// Module groups Topics and belongs to exactly one Course.
type Module struct {
	ID       uuid.UUID
	CourseID uuid.UUID
	Topics   []uuid.UUID // topic ids, in order
}

// Topic belongs to one Module and may declare a parent topic — within or
// outside its module — that must be theory-progressed before this topic's
// theory problems become available. The parent graph across all topics of a
// course must be acyclic; this is enforced at content-authoring time, out of
// scope here.
type Topic struct {
	ID          uuid.UUID
	ModuleID    uuid.UUID
	ParentTopic *uuid.UUID
}

// Problem is a theory or practice item with a main topic and an optional set
// of sub-topics (never including the main topic).
type Problem struct {
	ID             uuid.UUID
	Title          string
	Type           ProblemType
	Difficulty     Difficulty
	TimeToSolveSec int
	MainTopic      uuid.UUID
	SubTopics      []uuid.UUID
	AnswerKind     AnswerKind
}

// HasSubTopic reports whether topic is one of the problem's sub-topics.
func (p *Problem) HasSubTopic(topic uuid.UUID) bool {
	for _, t := range p.SubTopics {
		if t == topic {
			return true
		}
	}
	return false
}

// Topics returns the problem's main topic together with its sub-topics, as
// the deduplicated set the weakest-link machinery reasons about.
func (p *Problem) Topics() map[uuid.UUID]struct{} {
	set := make(map[uuid.UUID]struct{}, 1+len(p.SubTopics))
	set[p.MainTopic] = struct{}{}
	for _, t := range p.SubTopics {
		set[t] = struct{}{}
	}
	return set
}
