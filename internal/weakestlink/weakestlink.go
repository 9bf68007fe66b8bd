// Package weakestlink drives the per-(user, semester) automaton
// {NONE, IN_PROGRESS, DONE} that hunts for sub-topics behind repeated
// practice failures: it builds probe queues over bisected topic groups,
// records per-group verdicts, and penalizes skill on confirmed weak topics.
package weakestlink

import (
	"database/sql"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/Azen0n/enginesvc/internal/answerlog"
	"github.com/Azen0n/enginesvc/internal/catalog"
	"github.com/Azen0n/enginesvc/internal/config"
	"github.com/Azen0n/enginesvc/internal/metrics"
	"github.com/Azen0n/enginesvc/internal/practicepool"
	"github.com/Azen0n/enginesvc/internal/progress"
	"github.com/Azen0n/enginesvc/internal/store"
	"github.com/Azen0n/enginesvc/internal/topicgraph"
	"github.com/Azen0n/enginesvc/internal/value"
)

type State string

const (
	None       State = "NONE"
	InProgress State = "IN_PROGRESS"
	Done       State = "DONE"
)

// TopicRow is one WeakestLinkTopic row.
type TopicRow struct {
	TopicID uuid.UUID
	Group   int
}

// ProblemRow is one WeakestLinkProblem row.
type ProblemRow struct {
	ProblemID uuid.UUID
	Group     int
	IsSolved  *bool
	Position  int
}

// Store is the repository for the weakest-link topic/problem tables and the
// per-(user, semester) state row.
type Store struct {
	db *store.Store
}

func NewStore(db *store.Store) *Store {
	return &Store{db: db}
}

func (s *Store) GetState(q store.Querier, user, semester uuid.UUID) (State, error) {
	var st string
	err := q.QueryRow(`SELECT state FROM user_weakest_link_state WHERE user_id = $1 AND semester_id = $2`,
		user, semester).Scan(&st)
	if err == sql.ErrNoRows {
		return None, nil
	}
	if err != nil {
		return "", fmt.Errorf("get weakest-link state: %w", err)
	}
	return State(st), nil
}

func (s *Store) SetState(q store.Querier, user, semester uuid.UUID, st State) error {
	_, err := q.Exec(`
		INSERT INTO user_weakest_link_state (user_id, semester_id, state) VALUES ($1, $2, $3)
		ON CONFLICT (user_id, semester_id) DO UPDATE SET state = EXCLUDED.state
	`, user, semester, string(st))
	if err != nil {
		return fmt.Errorf("set weakest-link state: %w", err)
	}
	return nil
}

func (s *Store) Topics(q store.Querier, user, semester uuid.UUID) ([]TopicRow, error) {
	rows, err := q.Query(`
		SELECT topic_id, group_number FROM weakest_link_topics WHERE user_id = $1 AND semester_id = $2
	`, user, semester)
	if err != nil {
		return nil, fmt.Errorf("load weakest-link topics: %w", err)
	}
	defer rows.Close()
	var out []TopicRow
	for rows.Next() {
		var r TopicRow
		if err := rows.Scan(&r.TopicID, &r.Group); err != nil {
			return nil, fmt.Errorf("scan weakest-link topic: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) Problems(q store.Querier, user, semester uuid.UUID) ([]ProblemRow, error) {
	rows, err := q.Query(`
		SELECT problem_id, group_number, is_solved, position
		FROM weakest_link_problems WHERE user_id = $1 AND semester_id = $2
		ORDER BY group_number, position
	`, user, semester)
	if err != nil {
		return nil, fmt.Errorf("load weakest-link problems: %w", err)
	}
	defer rows.Close()
	var out []ProblemRow
	for rows.Next() {
		var r ProblemRow
		var solved sql.NullBool
		if err := rows.Scan(&r.ProblemID, &r.Group, &solved, &r.Position); err != nil {
			return nil, fmt.Errorf("scan weakest-link problem: %w", err)
		}
		if solved.Valid {
			v := solved.Bool
			r.IsSolved = &v
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) InsertGroup(tx *sql.Tx, user, semester uuid.UUID, group int, topics []uuid.UUID, problems []*catalog.Problem) error {
	for _, t := range topics {
		_, err := tx.Exec(`
			INSERT INTO weakest_link_topics (user_id, semester_id, topic_id, group_number)
			VALUES ($1, $2, $3, $4) ON CONFLICT DO NOTHING
		`, user, semester, t, group)
		if err != nil {
			return fmt.Errorf("insert weakest-link topic: %w", err)
		}
	}
	for i, p := range problems {
		_, err := tx.Exec(`
			INSERT INTO weakest_link_problems (user_id, semester_id, problem_id, group_number, is_solved, position)
			VALUES ($1, $2, $3, $4, NULL, $5) ON CONFLICT DO NOTHING
		`, user, semester, p.ID, group, i)
		if err != nil {
			return fmt.Errorf("insert weakest-link problem: %w", err)
		}
	}
	return nil
}

func (s *Store) DeleteGroup(tx *sql.Tx, user, semester uuid.UUID, group int) error {
	if err := s.DeleteGroupProblems(tx, user, semester, group); err != nil {
		return err
	}
	_, err := tx.Exec(`
		DELETE FROM weakest_link_topics WHERE user_id = $1 AND semester_id = $2 AND group_number = $3
	`, user, semester, group)
	if err != nil {
		return fmt.Errorf("delete weakest-link topic group: %w", err)
	}
	return nil
}

func (s *Store) DeleteGroupProblems(tx *sql.Tx, user, semester uuid.UUID, group int) error {
	_, err := tx.Exec(`
		DELETE FROM weakest_link_problems WHERE user_id = $1 AND semester_id = $2 AND group_number = $3
	`, user, semester, group)
	if err != nil {
		return fmt.Errorf("delete weakest-link problem group: %w", err)
	}
	return nil
}

func (s *Store) DeleteAll(tx *sql.Tx, user, semester uuid.UUID) error {
	if _, err := tx.Exec(`DELETE FROM weakest_link_problems WHERE user_id = $1 AND semester_id = $2`, user, semester); err != nil {
		return fmt.Errorf("delete weakest-link problems: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM weakest_link_topics WHERE user_id = $1 AND semester_id = $2`, user, semester); err != nil {
		return fmt.Errorf("delete weakest-link topics: %w", err)
	}
	return nil
}

func (s *Store) RecordVerdict(tx *sql.Tx, user, semester, problem uuid.UUID, solved bool) error {
	_, err := tx.Exec(`
		UPDATE weakest_link_problems SET is_solved = $1
		WHERE user_id = $2 AND semester_id = $3 AND problem_id = $4
	`, solved, user, semester, problem)
	if err != nil {
		return fmt.Errorf("record weakest-link verdict: %w", err)
	}
	return nil
}

// Machine drives the per-(user,semester) automaton.
type Machine struct {
	store     *Store
	progress  *progress.Store
	answerlog *answerlog.Store
	catalog   *catalog.Store
	pool      *practicepool.Builder
	graphs    *topicgraph.Registry
	cfg       *config.Config
}

func NewMachine(st *Store, p *progress.Store, a *answerlog.Store, c *catalog.Store, pool *practicepool.Builder, graphs *topicgraph.Registry, cfg *config.Config) *Machine {
	return &Machine{store: st, progress: p, answerlog: a, catalog: c, pool: pool, graphs: graphs, cfg: cfg}
}

// Store exposes the underlying repository for callers (practiceselect,
// intake) that need to read state without going through a Machine method.
func (m *Machine) Store() *Store {
	return m.store
}

// similar reports whether two problems share a main topic and their
// topic-set overlap (intersection over the larger set) is strictly above
// SimilarityThreshold.
func similar(p, q *catalog.Problem, cfg *config.Config) bool {
	if p.MainTopic != q.MainTopic {
		return false
	}
	pt, qt := p.Topics(), q.Topics()
	intersection := 0
	for t := range pt {
		if _, ok := qt[t]; ok {
			intersection++
		}
	}
	maxLen := len(pt)
	if len(qt) > maxLen {
		maxLen = len(qt)
	}
	if maxLen == 0 {
		return false
	}
	return float64(intersection)/float64(maxLen) > cfg.SimilarityThreshold
}

// Trigger is called from answer intake on a non-skipped wrong practice
// answer whose problem has already been attempted MAX_ATTEMPTS_PER_PRACTICE
// times and is still not solved. It scans for a similar previously-failed
// problem, bisects the pair's incomplete topics into two affinity groups,
// fills each group's probe queue, and moves to IN_PROGRESS if at least one
// group could be filled. Caller must have already verified state is NONE.
func (m *Machine) Trigger(tx *sql.Tx, user, semester uuid.UUID, this *catalog.Problem) error {
	priors, err := m.answerlog.PriorPracticeAnswersByTopic(tx, user, semester, this.MainTopic, this.ID)
	if err != nil {
		return err
	}

	latestByProblem := make(map[uuid.UUID]*answerlog.Answer)
	var order []uuid.UUID
	for _, a := range priors {
		if _, seen := latestByProblem[a.ProblemID]; !seen {
			order = append(order, a.ProblemID)
		}
		latestByProblem[a.ProblemID] = a // priors is chronological; last write wins -> latest per problem
	}
	// most-recent-interaction first: reverse discovery order.
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}

	var partner *catalog.Problem
	solvedSimilarCount := 0
	for _, pid := range order {
		candidate, err := m.catalog.Problem(pid)
		if err != nil {
			return err
		}
		if !similar(this, candidate, m.cfg) {
			continue
		}
		latest := latestByProblem[pid]
		switch {
		case latest.Skipped():
			return nil // abort triggering
		case latest.IsSolved != nil && !*latest.IsSolved:
			partner = candidate
		case latest.IsSolved != nil && *latest.IsSolved:
			solvedSimilarCount++
			if solvedSimilarCount >= 2 {
				return nil // abort triggering
			}
		}
		if partner != nil {
			break
		}
	}
	if partner == nil {
		return nil
	}

	topics, err := m.dedupedIncompleteTopics(tx, user, semester, this, partner)
	if err != nil {
		return err
	}
	if len(topics) == 0 {
		return nil
	}

	maxDifficulty := this.Difficulty
	if partner.Difficulty < maxDifficulty {
		maxDifficulty = partner.Difficulty
	}

	graph, err := m.graphOf(this.MainTopic)
	if err != nil {
		return err
	}
	a, b := topicgraph.Bisect(topics, graph)

	kept := 0
	for _, groupNum := range []int{1, 2} {
		group := a
		if groupNum == 2 {
			group = b
		}
		if len(group) == 0 {
			continue
		}
		problems, err := m.probeCandidates(tx, user, semester, group, maxDifficulty)
		if err != nil {
			return err
		}
		if len(problems) < m.cfg.WeakestLinkMaxPerGroup {
			continue
		}
		if err := m.store.InsertGroup(tx, user, semester, groupNum, group, problems[:m.cfg.WeakestLinkMaxPerGroup]); err != nil {
			return err
		}
		kept++
	}
	if kept == 0 {
		return nil
	}
	metrics.WeakestLinkTriggered.Inc()
	return m.store.SetState(tx, user, semester, InProgress)
}

func (m *Machine) dedupedIncompleteTopics(q store.Querier, user, semester uuid.UUID, this, partner *catalog.Problem) ([]uuid.UUID, error) {
	union := make(map[uuid.UUID]struct{})
	for t := range this.Topics() {
		union[t] = struct{}{}
	}
	for t := range partner.Topics() {
		union[t] = struct{}{}
	}
	var out []uuid.UUID
	for t := range union {
		p, err := m.progress.GetOrCreate(q, user, semester, t)
		if err != nil {
			return nil, err
		}
		if !p.IsPracticeCompleted(m.cfg) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}

func (m *Machine) graphOf(topic uuid.UUID) (*topicgraph.Graph, error) {
	course, err := m.catalog.CourseOfTopic(topic)
	if err != nil {
		return nil, err
	}
	return m.graphs.Load(course)
}

// probeCandidates builds the eligible-practice pool restricted to problems
// similar to group, ranked by value, for probe-queue construction.
func (m *Machine) probeCandidates(q store.Querier, user, semester uuid.UUID, group []uuid.UUID, maxDifficulty catalog.Difficulty) ([]*catalog.Problem, error) {
	eligibleTopics, err := m.pool.EligibleTopics(q, user, semester, group)
	if err != nil {
		return nil, err
	}
	candidates, err := m.pool.EligibleProblems(q, user, semester, eligibleTopics)
	if err != nil {
		return nil, err
	}
	groupSet := make(map[uuid.UUID]struct{}, len(group))
	for _, t := range group {
		groupSet[t] = struct{}{}
	}

	var filtered []*catalog.Problem
	byTopic := make(value.ProgressByTopic)
	for _, p := range candidates {
		if p.Difficulty > maxDifficulty {
			continue
		}
		if !practicepool.SimilarToGroup(p, groupSet, m.cfg) {
			continue
		}
		filtered = append(filtered, p)
		for t := range p.Topics() {
			if _, ok := byTopic[t]; ok {
				continue
			}
			pr, err := m.progress.GetOrCreate(q, user, semester, t)
			if err != nil {
				return nil, err
			}
			byTopic[t] = pr
		}
	}
	target, err := m.progress.TargetPoints(q, user)
	if err != nil {
		return nil, err
	}
	ranked := value.RankByValue(m.cfg, byTopic, filtered, target)
	out := make([]*catalog.Problem, len(ranked))
	for i, r := range ranked {
		out[i] = r.Problem
	}
	return out, nil
}

// NextProbe walks groups in ascending group number for the first unanswered
// probe whose main topic is still below THRESHOLD_HIGH, dropping groups
// whose topic crossed it along the way. It returns (problem, true, nil) when
// a probe is available, or (nil, false, nil) once every group has been
// resolved (caller should finalize).
func (m *Machine) NextProbe(tx *sql.Tx, user, semester uuid.UUID) (*catalog.Problem, bool, error) {
	for {
		problems, err := m.store.Problems(tx, user, semester)
		if err != nil {
			return nil, false, err
		}
		groups := groupNumbers(problems)
		if len(groups) == 0 {
			return nil, false, nil
		}

		advanced := false
		for _, g := range groups {
			for _, row := range problems {
				if row.Group != g || row.IsSolved != nil {
					continue
				}
				problem, err := m.catalog.Problem(row.ProblemID)
				if err != nil {
					return nil, false, err
				}
				mainProgress, err := m.progress.GetOrCreate(tx, user, semester, problem.MainTopic)
				if err != nil {
					return nil, false, err
				}
				if mainProgress.Combined() < m.cfg.ThresholdHigh {
					return problem, true, nil
				}
				if err := m.store.DeleteGroup(tx, user, semester, g); err != nil {
					return nil, false, err
				}
				advanced = true
				break
			}
			if advanced {
				break
			}
		}
		if !advanced {
			return nil, false, nil
		}
	}
}

func groupNumbers(rows []ProblemRow) []int {
	seen := make(map[int]struct{})
	var groups []int
	for _, r := range rows {
		if _, ok := seen[r.Group]; !ok {
			seen[r.Group] = struct{}{}
			groups = append(groups, r.Group)
		}
	}
	sort.Ints(groups)
	return groups
}

// SubmitProbeAnswer records a probe verdict and resolves groups: a group
// with enough solved probes is cleared entirely, one with enough unsolved
// probes keeps its topics as confirmed-weak and drops only the problems.
// Returns true once every group has been resolved and the machine should
// transition to DONE.
func (m *Machine) SubmitProbeAnswer(tx *sql.Tx, user, semester, problem uuid.UUID, solved bool) (bool, error) {
	if err := m.store.RecordVerdict(tx, user, semester, problem, solved); err != nil {
		return false, err
	}
	rows, err := m.store.Problems(tx, user, semester)
	if err != nil {
		return false, err
	}
	for _, g := range groupNumbers(rows) {
		solvedCount, unsolvedCount := 0, 0
		for _, r := range rows {
			if r.Group != g || r.IsSolved == nil {
				continue
			}
			if *r.IsSolved {
				solvedCount++
			} else {
				unsolvedCount++
			}
		}
		if solvedCount >= m.cfg.WeakestLinkToSolve {
			if err := m.store.DeleteGroup(tx, user, semester, g); err != nil {
				return false, err
			}
			continue
		}
		if unsolvedCount >= m.cfg.WeakestLinkToSolve {
			if err := m.store.DeleteGroupProblems(tx, user, semester, g); err != nil {
				return false, err
			}
		}
	}

	remaining, err := m.store.Problems(tx, user, semester)
	if err != nil {
		return false, err
	}
	for _, r := range remaining {
		if r.IsSolved == nil {
			return false, nil
		}
	}
	return true, nil
}

// Finalize implements the DONE state: penalize skill for every surviving
// (confirmed-weak) WeakestLinkTopic, delete all rows, and return to NONE.
func (m *Machine) Finalize(tx *sql.Tx, user, semester uuid.UUID) error {
	topics, err := m.store.Topics(tx, user, semester)
	if err != nil {
		return err
	}
	for _, t := range topics {
		p, err := m.progress.GetOrCreate(tx, user, semester, t.TopicID)
		if err != nil {
			return err
		}
		p.SkillLevel -= m.cfg.WeakestLinkPenalty
		if err := m.progress.Save(tx, p); err != nil {
			return err
		}
	}
	if err := m.store.DeleteAll(tx, user, semester); err != nil {
		return err
	}
	metrics.WeakestLinkFinalized.Inc()
	return m.store.SetState(tx, user, semester, None)
}

// Abort discards all rows and returns to NONE without applying any skill
// penalty.
func (m *Machine) Abort(tx *sql.Tx, user, semester uuid.UUID) error {
	if err := m.store.DeleteAll(tx, user, semester); err != nil {
		return err
	}
	return m.store.SetState(tx, user, semester, None)
}

// AnyTopicPracticeCompleted reports whether any surviving weakest-link topic
// has reached practice completion, which makes further probing pointless.
func (m *Machine) AnyTopicPracticeCompleted(q store.Querier, user, semester uuid.UUID) (bool, error) {
	topics, err := m.store.Topics(q, user, semester)
	if err != nil {
		return false, err
	}
	for _, t := range topics {
		p, err := m.progress.GetOrCreate(q, user, semester, t.TopicID)
		if err != nil {
			return false, err
		}
		if p.IsPracticeCompleted(m.cfg) {
			return true, nil
		}
	}
	return false, nil
}
