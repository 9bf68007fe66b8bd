// Package httpapi exposes the engine's inbound API as a Fiber app: one
// Handler struct holding every service, identity carried in the X-User-Id
// and X-Semester-Id headers.
package httpapi

import (
	"encoding/json"
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Azen0n/enginesvc/internal/apperr"
	"github.com/Azen0n/enginesvc/internal/enroll"
	"github.com/Azen0n/enginesvc/internal/intake"
	"github.com/Azen0n/enginesvc/internal/progress"
	"github.com/Azen0n/enginesvc/internal/selection"
	"github.com/Azen0n/enginesvc/internal/validate"
)

type Handler struct {
	selection *selection.Facade
	intake    *intake.Service
	enroll    *enroll.Service
	progress  *progress.Store
	validate  *validate.Validator
}

func NewHandler(s *selection.Facade, i *intake.Service, e *enroll.Service, p *progress.Store, v *validate.Validator) *Handler {
	return &Handler{selection: s, intake: i, enroll: e, progress: p, validate: v}
}

// getUserID extracts the authenticated user id from X-User-Id.
func getUserID(c *fiber.Ctx) (uuid.UUID, error) {
	userIDStr := c.Get("X-User-Id")
	if userIDStr == "" {
		return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "X-User-Id header required")
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid X-User-Id")
	}
	return userID, nil
}

func getSemesterID(c *fiber.Ctx) (uuid.UUID, error) {
	semesterIDStr := c.Get("X-Semester-Id")
	if semesterIDStr == "" {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "X-Semester-Id header required")
	}
	semesterID, err := uuid.Parse(semesterIDStr)
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid X-Semester-Id")
	}
	return semesterID, nil
}

// writeAppErr maps an *apperr.Error to an HTTP status + body, the one place
// the domain error taxonomy crosses into a transport-specific shape.
func writeAppErr(c *fiber.Ctx, err error) error {
	var e *apperr.Error
	if !errors.As(err, &e) {
		log.Printf("httpapi: unclassified error: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	status := fiber.StatusUnprocessableEntity
	switch e.Kind {
	case apperr.Unauthenticated:
		status = fiber.StatusUnauthorized
	case apperr.NotEnrolled, apperr.IsTeacher, apperr.PrerequisiteNotMet, apperr.TheoryNotStarted,
		apperr.TopicTheoryDone, apperr.TopicPracticeDone, apperr.NoProblemAvailable,
		apperr.AttemptsExhausted, apperr.AlreadySolved:
		status = fiber.StatusConflict
	case apperr.BadPayload:
		status = fiber.StatusBadRequest
	case apperr.ContentInconsistency:
		status = fiber.StatusInternalServerError
	}
	return c.Status(status).JSON(fiber.Map{"error": string(e.Kind), "message": e.Message})
}

// Enroll implements POST enroll(semester, joinCode).
// POST /enroll
func (h *Handler) Enroll(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return err
	}
	var req struct {
		JoinCode string `json:"join_code"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	semester, err := h.enroll.Enroll(userID, req.JoinCode)
	if err != nil {
		return writeAppErr(c, err)
	}
	return c.JSON(fiber.Map{"semester_id": semester})
}

// NextTheory implements GET nextTheory(semester, topic).
// GET /topics/:topic/next-theory
func (h *Handler) NextTheory(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return err
	}
	semesterID, err := getSemesterID(c)
	if err != nil {
		return err
	}
	topicID, err := uuid.Parse(c.Params("topic"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid topic id"})
	}

	problem, err := h.selection.NextTheory(userID, semesterID, topicID)
	if err != nil {
		return writeAppErr(c, err)
	}
	return c.JSON(problem)
}

// NextPractice implements GET nextPractice(semester).
// GET /next-practice
func (h *Handler) NextPractice(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return err
	}
	semesterID, err := getSemesterID(c)
	if err != nil {
		return err
	}

	problem, err := h.selection.NextPractice(userID, semesterID)
	if err != nil {
		return writeAppErr(c, err)
	}
	return c.JSON(problem)
}

type submitAnswerRequest struct {
	Type      string      `json:"type"`
	AnswerID  *uuid.UUID  `json:"answer_id,omitempty"`
	AnswerIDs []uuid.UUID `json:"answer_ids,omitempty"`
	Value     *string     `json:"value,omitempty"`
	Code      *string     `json:"code,omitempty"`
	Elapsed   *int        `json:"elapsed_seconds,omitempty"`
}

// SubmitAnswer implements POST submitAnswer(semester, problem, payload).
// POST /problems/:problem/answer
func (h *Handler) SubmitAnswer(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return err
	}
	semesterID, err := getSemesterID(c)
	if err != nil {
		return err
	}
	problemID, err := uuid.Parse(c.Params("problem"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid problem id"})
	}

	var req submitAnswerRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	result, err := h.validateByKind(c, problemID, req)
	if err != nil {
		return writeAppErr(c, err)
	}
	givenAnswer, err := json.Marshal(result.Echo)
	if err != nil {
		return writeAppErr(c, err)
	}

	submitted, err := h.intake.SubmitAnswer(userID, semesterID, problemID, result.Coefficient, givenAnswer, req.Elapsed)
	if err != nil {
		return writeAppErr(c, err)
	}

	return c.JSON(fiber.Map{
		"coefficient": submitted.Coefficient,
		"is_answered": submitted.IsAnswered,
		"answer_echo": result.Echo,
	})
}

func (h *Handler) validateByKind(c *fiber.Ctx, problemID uuid.UUID, req submitAnswerRequest) (*validate.Result, error) {
	switch req.Type {
	case "MULTIPLE_CHOICE_RADIO":
		var id uuid.UUID
		if req.AnswerID != nil {
			id = *req.AnswerID
		}
		return h.validate.Radio(problemID, validate.RadioPayload{AnswerID: id})
	case "MULTIPLE_CHOICE_CHECKBOX":
		return h.validate.Checkbox(problemID, validate.CheckboxPayload{AnswerIDs: req.AnswerIDs})
	case "FILL_IN_SINGLE_BLANK":
		value := ""
		if req.Value != nil {
			value = *req.Value
		}
		return h.validate.Blank(problemID, validate.BlankPayload{Value: value})
	case "CODE":
		code := ""
		if req.Code != nil {
			code = *req.Code
		}
		return h.validate.Code(c.Context(), problemID, validate.CodePayload{Code: code})
	default:
		return nil, apperr.New(apperr.BadPayload, "unknown answer type %q", req.Type)
	}
}

// SkipProblem implements POST skipProblem(semester, problem).
// POST /problems/:problem/skip
func (h *Handler) SkipProblem(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return err
	}
	semesterID, err := getSemesterID(c)
	if err != nil {
		return err
	}
	problemID, err := uuid.Parse(c.Params("problem"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid problem id"})
	}

	if err := h.intake.SkipProblem(userID, semesterID, problemID); err != nil {
		return writeAppErr(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ChangeTargetPoints implements POST changeTargetPoints({points: 61|76|91}).
// POST /target-points
func (h *Handler) ChangeTargetPoints(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return err
	}
	var req struct {
		Points float64 `json:"points"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.Points != 61 && req.Points != 76 && req.Points != 91 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "points must be 61, 76, or 91"})
	}
	if err := h.progress.SetTargetPoints(h.progress.DB(), userID, req.Points); err != nil {
		return writeAppErr(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Health is a liveness check.
// GET /health
func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "healthy", "service": "enginesvc"})
}
