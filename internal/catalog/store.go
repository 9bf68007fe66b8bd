package catalog

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// Store is the read-only repository over externally-authored content:
// courses, modules, topics, problems. Runtime never writes to these tables.
type Store struct {
	db Querier
}

// Querier is satisfied by *sql.DB, *sql.Tx, or internal/store.Store.DB().
type Querier interface {
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

func NewStore(db Querier) *Store {
	return &Store{db: db}
}

func (s *Store) Topic(id uuid.UUID) (*Topic, error) {
	t := &Topic{ID: id}
	var parent uuid.NullUUID
	err := s.db.QueryRow(`SELECT module_id, parent_topic FROM topics WHERE id = $1`, id).
		Scan(&t.ModuleID, &parent)
	if err != nil {
		return nil, fmt.Errorf("load topic %s: %w", id, err)
	}
	if parent.Valid {
		t.ParentTopic = &parent.UUID
	}
	return t, nil
}

func (s *Store) Problem(id uuid.UUID) (*Problem, error) {
	p := &Problem{ID: id}
	err := s.db.QueryRow(`
		SELECT title, type, difficulty, time_to_solve_secs, main_topic, answer_kind
		FROM problems WHERE id = $1
	`, id).Scan(&p.Title, &p.Type, &p.Difficulty, &p.TimeToSolveSec, &p.MainTopic, &p.AnswerKind)
	if err != nil {
		return nil, fmt.Errorf("load problem %s: %w", id, err)
	}
	subs, err := s.subTopics(id)
	if err != nil {
		return nil, err
	}
	p.SubTopics = subs
	return p, nil
}

func (s *Store) subTopics(problem uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.db.Query(`SELECT topic_id FROM problem_sub_topics WHERE problem_id = $1`, problem)
	if err != nil {
		return nil, fmt.Errorf("load sub-topics of %s: %w", problem, err)
	}
	defer rows.Close()
	var subs []uuid.UUID
	for rows.Next() {
		var t uuid.UUID
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan sub-topic: %w", err)
		}
		subs = append(subs, t)
	}
	return subs, rows.Err()
}

// CourseTopics returns every topic id belonging to a course.
func (s *Store) CourseTopics(course uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.db.Query(`
		SELECT t.id FROM topics t JOIN modules m ON m.id = t.module_id WHERE m.course_id = $1
	`, course)
	if err != nil {
		return nil, fmt.Errorf("load course topics: %w", err)
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan course topic: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CourseOfSemester returns the course id a semester was created against.
func (s *Store) CourseOfSemester(semester uuid.UUID) (uuid.UUID, error) {
	var course uuid.UUID
	err := s.db.QueryRow(`SELECT course_id FROM semesters WHERE id = $1`, semester).Scan(&course)
	if err != nil {
		return uuid.Nil, fmt.Errorf("load course of semester %s: %w", semester, err)
	}
	return course, nil
}

// CourseOfTopic returns the course id a topic belongs to, via its module.
func (s *Store) CourseOfTopic(topic uuid.UUID) (uuid.UUID, error) {
	var course uuid.UUID
	err := s.db.QueryRow(`
		SELECT m.course_id FROM topics t JOIN modules m ON m.id = t.module_id WHERE t.id = $1
	`, topic).Scan(&course)
	if err != nil {
		return uuid.Nil, fmt.Errorf("load course of topic %s: %w", topic, err)
	}
	return course, nil
}

// TheoryCandidates returns every THEORY problem whose main_topic is topic.
func (s *Store) TheoryCandidates(topic uuid.UUID) ([]*Problem, error) {
	return s.problemsByMainTopicAndType(topic, Theory)
}

// PracticeCandidatesByTopics returns every PRACTICE problem whose main_topic
// is one of topics.
func (s *Store) PracticeCandidatesByTopics(topics []uuid.UUID) ([]*Problem, error) {
	var all []*Problem
	for _, t := range topics {
		ps, err := s.problemsByMainTopicAndType(t, Practice)
		if err != nil {
			return nil, err
		}
		all = append(all, ps...)
	}
	return all, nil
}

// RadioOption is one choice of a MULTIPLE_CHOICE_RADIO problem.
type RadioOption struct {
	ID        uuid.UUID
	Text      string
	IsCorrect bool
}

// CheckboxOption is one choice of a MULTIPLE_CHOICE_CHECKBOX problem.
type CheckboxOption struct {
	ID        uuid.UUID
	Text      string
	IsCorrect bool
}

// BlankOption is one accepted answer text of a FILL_IN_SINGLE_BLANK problem.
type BlankOption struct {
	ID   uuid.UUID
	Text string
}

func (s *Store) RadioOptions(problem uuid.UUID) ([]RadioOption, error) {
	rows, err := s.db.Query(`
		SELECT id, text, is_correct FROM multiple_choice_radio_options WHERE problem_id = $1
	`, problem)
	if err != nil {
		return nil, fmt.Errorf("load radio options for %s: %w", problem, err)
	}
	defer rows.Close()
	var out []RadioOption
	for rows.Next() {
		var o RadioOption
		if err := rows.Scan(&o.ID, &o.Text, &o.IsCorrect); err != nil {
			return nil, fmt.Errorf("scan radio option: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *Store) CheckboxOptions(problem uuid.UUID) ([]CheckboxOption, error) {
	rows, err := s.db.Query(`
		SELECT id, text, is_correct FROM multiple_choice_checkbox_options WHERE problem_id = $1
	`, problem)
	if err != nil {
		return nil, fmt.Errorf("load checkbox options for %s: %w", problem, err)
	}
	defer rows.Close()
	var out []CheckboxOption
	for rows.Next() {
		var o CheckboxOption
		if err := rows.Scan(&o.ID, &o.Text, &o.IsCorrect); err != nil {
			return nil, fmt.Errorf("scan checkbox option: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *Store) BlankOptions(problem uuid.UUID) ([]BlankOption, error) {
	rows, err := s.db.Query(`
		SELECT id, text FROM fill_in_single_blank_options WHERE problem_id = $1
	`, problem)
	if err != nil {
		return nil, fmt.Errorf("load blank options for %s: %w", problem, err)
	}
	defer rows.Close()
	var out []BlankOption
	for rows.Next() {
		var o BlankOption
		if err := rows.Scan(&o.ID, &o.Text); err != nil {
			return nil, fmt.Errorf("scan blank option: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *Store) problemsByMainTopicAndType(topic uuid.UUID, t ProblemType) ([]*Problem, error) {
	rows, err := s.db.Query(`
		SELECT id FROM problems WHERE main_topic = $1 AND type = $2
	`, topic, t)
	if err != nil {
		return nil, fmt.Errorf("load problems for topic %s: %w", topic, err)
	}
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan problem id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	problems := make([]*Problem, 0, len(ids))
	for _, id := range ids {
		p, err := s.Problem(id)
		if err != nil {
			return nil, err
		}
		problems = append(problems, p)
	}
	return problems, nil
}
