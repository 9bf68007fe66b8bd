// Package intake is the single mutating entry point for answers: it runs
// access checks, steps the weakest-link machine, appends the answer log, and
// invokes the scoring engine, all inside one transaction so a submission
// either fully lands or not at all.
package intake

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/Azen0n/enginesvc/internal/answerlog"
	"github.com/Azen0n/enginesvc/internal/apperr"
	"github.com/Azen0n/enginesvc/internal/catalog"
	"github.com/Azen0n/enginesvc/internal/config"
	"github.com/Azen0n/enginesvc/internal/enroll"
	"github.com/Azen0n/enginesvc/internal/metrics"
	"github.com/Azen0n/enginesvc/internal/progress"
	"github.com/Azen0n/enginesvc/internal/scoring"
	"github.com/Azen0n/enginesvc/internal/store"
	"github.com/Azen0n/enginesvc/internal/weakestlink"
)

type Service struct {
	db        *store.Store
	catalog   *catalog.Store
	progress  *progress.Store
	answerlog *answerlog.Store
	scoring   *scoring.Engine
	weakest   *weakestlink.Machine
	enroll    *enroll.Store
	cfg       *config.Config
}

func NewService(db *store.Store, c *catalog.Store, p *progress.Store, a *answerlog.Store, sc *scoring.Engine, w *weakestlink.Machine, e *enroll.Store, cfg *config.Config) *Service {
	return &Service{db: db, catalog: c, progress: p, answerlog: a, scoring: sc, weakest: w, enroll: e, cfg: cfg}
}

// SubmitResult is what callers need to build the submit-answer response.
type SubmitResult struct {
	Coefficient float64
	IsAnswered  bool
}

// SubmitAnswer records one answer and applies its consequences. coefficient
// must already be validated into [0,1] by the caller (internal/validate);
// givenAnswer is the submitted payload as JSON, kept verbatim in the log.
func (s *Service) SubmitAnswer(user, semester, problemID uuid.UUID, coefficient float64, givenAnswer []byte, elapsed *int) (*SubmitResult, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin submit-answer transaction: %w", err)
	}
	defer tx.Rollback()

	problem, err := s.catalog.Problem(problemID)
	if err != nil {
		return nil, err
	}

	attempts, alreadySolved, err := s.accessChecks(tx, user, semester, problem)
	if err != nil {
		return nil, err
	}

	justFinalized := false
	if problem.Type == catalog.Practice {
		state, err := s.weakest.Store().GetState(tx, user, semester)
		if err != nil {
			return nil, err
		}
		if state == weakestlink.InProgress {
			solved := coefficient >= s.cfg.MinCorrect
			allResolved, err := s.weakest.SubmitProbeAnswer(tx, user, semester, problemID, solved)
			if err != nil {
				return nil, err
			}
			if allResolved {
				if err := s.weakest.Finalize(tx, user, semester); err != nil {
					return nil, err
				}
				justFinalized = true
			}
		}
	}

	isSolved := coefficient >= s.cfg.MinCorrect
	appended, err := s.answerlog.Append(tx, &answerlog.Answer{
		UserID:         user,
		SemesterID:     semester,
		ProblemID:      problemID,
		IsSolved:       &isSolved,
		Coefficient:    coefficient,
		GivenAnswer:    givenAnswer,
		ElapsedSeconds: elapsed,
	})
	if err != nil {
		return nil, err
	}

	subTopics, err := s.lockSubTopics(tx, user, semester, problem)
	if err != nil {
		return nil, err
	}
	if _, err := s.scoring.ApplyAnswer(tx, user, semester, problem, coefficient, appended.ID, subTopics); err != nil {
		return nil, err
	}

	if problem.Type == catalog.Practice && !justFinalized {
		state, err := s.weakest.Store().GetState(tx, user, semester)
		if err != nil {
			return nil, err
		}
		if state == weakestlink.None && !isSolved && !alreadySolved && attempts+1 >= s.cfg.MaxAttemptsPerPractice {
			if err := s.weakest.Trigger(tx, user, semester, problem); err != nil {
				return nil, err
			}
			anyDone, err := s.weakest.AnyTopicPracticeCompleted(tx, user, semester)
			if err != nil {
				return nil, err
			}
			if anyDone {
				if err := s.weakest.Abort(tx, user, semester); err != nil {
					return nil, err
				}
			}
		}
	}

	typeLabel := "theory"
	if problem.Type == catalog.Practice {
		typeLabel = "practice"
	}
	solvedLabel := "false"
	if isSolved {
		solvedLabel = "true"
	}
	metrics.AnswersSubmitted.WithLabelValues(typeLabel, solvedLabel).Inc()

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit submit-answer transaction: %w", err)
	}
	return &SubmitResult{Coefficient: coefficient, IsAnswered: true}, nil
}

// SkipProblem appends a skipped answer and, for a practice problem while
// probing is IN_PROGRESS, aborts the weakest-link machine back to NONE.
func (s *Service) SkipProblem(user, semester, problemID uuid.UUID) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin skip-problem transaction: %w", err)
	}
	defer tx.Rollback()

	problem, err := s.catalog.Problem(problemID)
	if err != nil {
		return err
	}
	if _, err := s.answerlog.Append(tx, &answerlog.Answer{
		UserID:      user,
		SemesterID:  semester,
		ProblemID:   problemID,
		IsSolved:    nil,
		Coefficient: 0,
	}); err != nil {
		return err
	}

	if problem.Type == catalog.Practice {
		state, err := s.weakest.Store().GetState(tx, user, semester)
		if err != nil {
			return err
		}
		if state == weakestlink.InProgress {
			if err := s.weakest.Abort(tx, user, semester); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit skip-problem transaction: %w", err)
	}
	return nil
}

// accessChecks verifies the user may answer this problem at all. Returns the
// problem's prior attempt count and whether it was already solved, for the
// post-scoring triggering decision.
func (s *Service) accessChecks(q store.Querier, user, semester uuid.UUID, problem *catalog.Problem) (attempts int, alreadySolved bool, err error) {
	enrolled, err := s.enroll.IsEnrolled(q, user, semester)
	if err != nil {
		return 0, false, err
	}
	if !enrolled {
		return 0, false, apperr.New(apperr.NotEnrolled, "user %s is not enrolled in semester %s", user, semester)
	}
	isTeacher, err := s.enroll.IsTeacher(q, user, semester)
	if err != nil {
		return 0, false, err
	}
	if isTeacher {
		return 0, false, apperr.New(apperr.IsTeacher, "teachers do not submit answers")
	}

	topic, err := s.catalog.Topic(problem.MainTopic)
	if err != nil {
		return 0, false, err
	}
	if topic.ParentTopic != nil {
		parentProgress, err := s.progress.GetOrCreate(q, user, semester, *topic.ParentTopic)
		if err != nil {
			return 0, false, err
		}
		if !parentProgress.TheoryLowReached(s.cfg) {
			return 0, false, apperr.New(apperr.PrerequisiteNotMet, "parent topic %s has not reached theory_low", *topic.ParentTopic)
		}
	}

	mainProgress, err := s.progress.GetOrCreate(q, user, semester, problem.MainTopic)
	if err != nil {
		return 0, false, err
	}
	switch problem.Type {
	case catalog.Theory:
		if mainProgress.IsTheoryCompleted(s.cfg) {
			return 0, false, apperr.New(apperr.TopicTheoryDone, "theory already completed for topic %s", problem.MainTopic)
		}
	case catalog.Practice:
		if mainProgress.IsPracticeCompleted(s.cfg) {
			return 0, false, apperr.New(apperr.TopicPracticeDone, "practice already completed for topic %s", problem.MainTopic)
		}
		attempts, alreadySolved, err = s.answerlog.AttemptCount(q, user, semester, problem.ID)
		if err != nil {
			return 0, false, err
		}
		if alreadySolved {
			return attempts, alreadySolved, apperr.New(apperr.AlreadySolved, "problem %s already solved", problem.ID)
		}
		if attempts >= s.cfg.MaxAttemptsPerPractice {
			return attempts, alreadySolved, apperr.New(apperr.AttemptsExhausted, "problem %s attempts exhausted", problem.ID)
		}
	}
	return attempts, alreadySolved, nil
}

func (s *Service) lockSubTopics(tx *sql.Tx, user, semester uuid.UUID, problem *catalog.Problem) (map[uuid.UUID]*progress.Progress, error) {
	out := make(map[uuid.UUID]*progress.Progress, len(problem.SubTopics))
	for _, sub := range problem.SubTopics {
		p, err := s.progress.GetForUpdate(tx, user, semester, sub)
		if err != nil {
			return nil, err
		}
		out[sub] = p
	}
	return out, nil
}
