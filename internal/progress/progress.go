// Package progress holds per-(user, semester, topic) mastery: theory and
// practice points plus the skill estimate, read-modify-written under
// transaction.
package progress

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/Azen0n/enginesvc/internal/apperr"
	"github.com/Azen0n/enginesvc/internal/catalog"
	"github.com/Azen0n/enginesvc/internal/config"
	"github.com/Azen0n/enginesvc/internal/store"
)

// Progress is one row: a user's mastery of a single topic in a semester.
type Progress struct {
	UserID         uuid.UUID
	SemesterID     uuid.UUID
	TopicID        uuid.UUID
	TheoryPoints   float64
	PracticePoints float64
	SkillLevel     float64
}

// TheoryLowReached reports whether theory points have passed the low-water
// mark that unlocks dependent theory and this topic's practice.
func (p *Progress) TheoryLowReached(cfg *config.Config) bool {
	low := cfg.TheoryMax * (cfg.ThresholdLow / (cfg.TheoryMax + cfg.PracticeMax))
	return p.TheoryPoints >= low
}

func (p *Progress) IsTheoryCompleted(cfg *config.Config) bool {
	return p.TheoryPoints >= cfg.TheoryMax
}

func (p *Progress) IsPracticeCompleted(cfg *config.Config) bool {
	return p.PracticePoints >= cfg.PracticeMax
}

// Combined returns theory_points + practice_points, the scale
// THRESHOLD_LOW/MEDIUM/HIGH and target_threshold are expressed against.
func (p *Progress) Combined() float64 {
	return p.TheoryPoints + p.PracticePoints
}

// Store is the Postgres-backed repository for Progress rows: one struct
// holding a connection handle and config, methods doing inline SQL with
// explicit transactions for mutations.
type Store struct {
	db  *store.Store
	cfg *config.Config
}

func NewStore(db *store.Store, cfg *config.Config) *Store {
	return &Store{db: db, cfg: cfg}
}

// DB exposes the plain connection for callers (httpapi) that need to read
// or write progress outside of an existing transaction.
func (s *Store) DB() store.Querier {
	return s.db.DB()
}

// GetOrCreate returns the Progress row for (user, semester, topic), creating
// one at skill_level=AVERAGE_SKILL if absent (enrollment should have already
// created it; this guards content added after enrollment).
func (s *Store) GetOrCreate(q store.Querier, user, semester, topic uuid.UUID) (*Progress, error) {
	p, err := s.get(q, user, semester, topic)
	if err == nil {
		return p, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("get progress: %w", err)
	}
	_, err = q.Exec(`
		INSERT INTO progress (user_id, semester_id, topic_id, theory_points, practice_points, skill_level)
		VALUES ($1, $2, $3, 0, 0, $4)
		ON CONFLICT (user_id, semester_id, topic_id) DO NOTHING
	`, user, semester, topic, s.cfg.AverageSkill)
	if err != nil {
		return nil, fmt.Errorf("insert progress: %w", err)
	}
	return s.get(q, user, semester, topic)
}

func (s *Store) get(q store.Querier, user, semester, topic uuid.UUID) (*Progress, error) {
	p := &Progress{UserID: user, SemesterID: semester, TopicID: topic}
	err := q.QueryRow(`
		SELECT theory_points, practice_points, skill_level
		FROM progress WHERE user_id = $1 AND semester_id = $2 AND topic_id = $3
	`, user, semester, topic).Scan(&p.TheoryPoints, &p.PracticePoints, &p.SkillLevel)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetForUpdate locks the row within tx so concurrent submissions for the
// same (user, semester) serialize on it.
func (s *Store) GetForUpdate(tx *sql.Tx, user, semester, topic uuid.UUID) (*Progress, error) {
	p := &Progress{UserID: user, SemesterID: semester, TopicID: topic}
	err := tx.QueryRow(`
		SELECT theory_points, practice_points, skill_level
		FROM progress WHERE user_id = $1 AND semester_id = $2 AND topic_id = $3
		FOR UPDATE
	`, user, semester, topic).Scan(&p.TheoryPoints, &p.PracticePoints, &p.SkillLevel)
	if err == sql.ErrNoRows {
		return nil, apperr.New(apperr.ContentInconsistency, "missing progress row for topic %s", topic)
	}
	if err != nil {
		return nil, fmt.Errorf("lock progress: %w", err)
	}
	return p, nil
}

// Save writes p back within tx.
func (s *Store) Save(tx *sql.Tx, p *Progress) error {
	_, err := tx.Exec(`
		UPDATE progress SET theory_points = $1, practice_points = $2, skill_level = $3
		WHERE user_id = $4 AND semester_id = $5 AND topic_id = $6
	`, p.TheoryPoints, p.PracticePoints, p.SkillLevel, p.UserID, p.SemesterID, p.TopicID)
	if err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

// AllForCourse returns every existing Progress row for a user/semester across
// the topics listed; topics with no row are left out of the map.
func (s *Store) AllForCourse(q store.Querier, user, semester uuid.UUID, topics []uuid.UUID) (map[uuid.UUID]*Progress, error) {
	result := make(map[uuid.UUID]*Progress, len(topics))
	for _, t := range topics {
		p, err := s.get(q, user, semester, t)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("scan progress for topic %s: %w", t, err)
		}
		result[t] = p
	}
	return result, nil
}

// EnsureEnrolled creates a zeroed Progress row (and, at the caller, a NONE
// weakest-link state row) for every topic of a course. Called by enroll.
func (s *Store) EnsureEnrolled(tx *sql.Tx, user, semester uuid.UUID, topics []uuid.UUID) error {
	for _, topic := range topics {
		if _, err := s.GetOrCreate(tx, user, semester, topic); err != nil {
			return err
		}
	}
	return nil
}

// TargetPoints returns the user's chosen points ceiling (61/76/91), defaulting
// to THRESHOLD_LOW when the user has never set one.
func (s *Store) TargetPoints(q store.Querier, user uuid.UUID) (float64, error) {
	var target float64
	err := q.QueryRow(`SELECT target FROM user_target_points WHERE user_id = $1`, user).Scan(&target)
	if err == sql.ErrNoRows {
		return s.cfg.ThresholdLow, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load target points: %w", err)
	}
	return target, nil
}

// SetTargetPoints upserts the user's chosen ceiling. Valid values are
// THRESHOLD_LOW/MEDIUM/HIGH (61/76/91); validation lives at the caller.
func (s *Store) SetTargetPoints(q store.Querier, user uuid.UUID, target float64) error {
	_, err := q.Exec(`
		INSERT INTO user_target_points (user_id, target) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET target = EXCLUDED.target
	`, user, target)
	if err != nil {
		return fmt.Errorf("set target points: %w", err)
	}
	return nil
}

// PracticeCompletedByTarget reports whether the topic has reached the user's
// chosen points ceiling. The ceiling is on combined points: a user targeting
// 61 of the 100 available is done with a topic once theory+practice crosses
// it, even with practice capacity left.
func (s *Store) PracticeCompletedByTarget(p *Progress, target float64) bool {
	return p.Combined() >= target || p.IsPracticeCompleted(s.cfg)
}

// SolvedCountByDifficulty returns, for each difficulty tier, how many
// practice problems on this topic the user has solved. Not consulted by the
// current selectors; exposed for progression reports and selector tuning.
func (s *Store) SolvedCountByDifficulty(q store.Querier, user, semester, topic uuid.UUID) (map[catalog.Difficulty]int, error) {
	rows, err := q.Query(`
		SELECT p.difficulty, count(*)
		FROM user_answers a
		JOIN problems p ON p.id = a.problem_id
		WHERE a.user_id = $1 AND a.semester_id = $2 AND p.main_topic = $3
		  AND p.type = $4 AND a.is_solved = true
		GROUP BY p.difficulty
	`, user, semester, topic, catalog.Practice)
	if err != nil {
		return nil, fmt.Errorf("solved count by difficulty: %w", err)
	}
	defer rows.Close()

	counts := make(map[catalog.Difficulty]int)
	for rows.Next() {
		var d catalog.Difficulty
		var n int
		if err := rows.Scan(&d, &n); err != nil {
			return nil, fmt.Errorf("scan solved count: %w", err)
		}
		counts[d] = n
	}
	return counts, rows.Err()
}
