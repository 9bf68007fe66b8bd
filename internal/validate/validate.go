// Package validate turns raw answer payloads into correctness coefficients,
// one validator per answer kind. The algorithm core never sees raw payloads,
// only the resulting coefficient in [0,1].
package validate

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/Azen0n/enginesvc/internal/apperr"
	"github.com/Azen0n/enginesvc/internal/catalog"
	"github.com/Azen0n/enginesvc/internal/clients/sandbox"
)

// Result is a validated answer: the computed coefficient and an echo of
// what the caller submitted, returned in the submit-answer response.
type Result struct {
	Coefficient float64
	Echo        interface{}
}

// RadioPayload is {answer_id} for MULTIPLE_CHOICE_RADIO.
type RadioPayload struct {
	AnswerID uuid.UUID `json:"answer_id"`
}

// CheckboxPayload is {answer_ids[]} for MULTIPLE_CHOICE_CHECKBOX.
type CheckboxPayload struct {
	AnswerIDs []uuid.UUID `json:"answer_ids"`
}

// BlankPayload is {value} for FILL_IN_SINGLE_BLANK.
type BlankPayload struct {
	Value string `json:"value"`
}

// CodePayload is {code} for CODE.
type CodePayload struct {
	Code string `json:"code"`
}

type Validator struct {
	catalog *catalog.Store
	sandbox *sandbox.Client
}

func NewValidator(c *catalog.Store, sb *sandbox.Client) *Validator {
	return &Validator{catalog: c, sandbox: sb}
}

// Radio validates a single-choice answer: coefficient is 1 if the chosen
// option is correct, 0 otherwise.
func (v *Validator) Radio(problem uuid.UUID, payload RadioPayload) (*Result, error) {
	if payload.AnswerID == uuid.Nil {
		return nil, apperr.New(apperr.BadPayload, "answer_id is required")
	}
	options, err := v.catalog.RadioOptions(problem)
	if err != nil {
		return nil, err
	}
	coefficient, known := radioCoefficient(options, payload.AnswerID)
	if !known {
		return nil, apperr.New(apperr.BadPayload, "answer_id %s is not an option of problem %s", payload.AnswerID, problem)
	}
	return &Result{Coefficient: coefficient, Echo: payload}, nil
}

func radioCoefficient(options []catalog.RadioOption, chosen uuid.UUID) (coefficient float64, known bool) {
	for _, o := range options {
		if o.ID == chosen {
			if o.IsCorrect {
				return 1, true
			}
			return 0, true
		}
	}
	return 0, false
}

// Checkbox validates a multi-choice answer:
// coefficient = max(0, (#correct_chosen - #wrong_chosen) / #correct_total).
func (v *Validator) Checkbox(problem uuid.UUID, payload CheckboxPayload) (*Result, error) {
	if len(payload.AnswerIDs) == 0 {
		return nil, apperr.New(apperr.BadPayload, "answer_ids is required")
	}
	options, err := v.catalog.CheckboxOptions(problem)
	if err != nil {
		return nil, err
	}
	coefficient, err := checkboxCoefficient(options, payload.AnswerIDs, problem)
	if err != nil {
		return nil, err
	}
	return &Result{Coefficient: coefficient, Echo: payload}, nil
}

func checkboxCoefficient(options []catalog.CheckboxOption, chosen []uuid.UUID, problem uuid.UUID) (float64, error) {
	correctByID := make(map[uuid.UUID]bool, len(options))
	correctTotal := 0
	for _, o := range options {
		correctByID[o.ID] = o.IsCorrect
		if o.IsCorrect {
			correctTotal++
		}
	}
	if correctTotal == 0 {
		return 0, apperr.New(apperr.ContentInconsistency, "problem %s has no correct checkbox options", problem)
	}

	chosenCorrect, chosenWrong := 0, 0
	for _, id := range chosen {
		isCorrect, known := correctByID[id]
		if !known {
			return 0, apperr.New(apperr.BadPayload, "answer_id %s is not an option of problem %s", id, problem)
		}
		if isCorrect {
			chosenCorrect++
		} else {
			chosenWrong++
		}
	}

	coefficient := float64(chosenCorrect-chosenWrong) / float64(correctTotal)
	if coefficient < 0 {
		coefficient = 0
	}
	return coefficient, nil
}

// Blank validates a fill-in answer: coefficient is 1 if value
// case-insensitively matches any accepted option, 0 otherwise.
func (v *Validator) Blank(problem uuid.UUID, payload BlankPayload) (*Result, error) {
	if strings.TrimSpace(payload.Value) == "" {
		return nil, apperr.New(apperr.BadPayload, "value is required")
	}
	options, err := v.catalog.BlankOptions(problem)
	if err != nil {
		return nil, err
	}
	return &Result{Coefficient: blankCoefficient(options, payload.Value), Echo: payload}, nil
}

func blankCoefficient(options []catalog.BlankOption, value string) float64 {
	for _, o := range options {
		if strings.EqualFold(o.Text, value) {
			return 1
		}
	}
	return 0
}

// Code delegates to the external sandbox: coefficient is 1 on "OK", 0
// otherwise.
func (v *Validator) Code(ctx context.Context, problem uuid.UUID, payload CodePayload) (*Result, error) {
	if strings.TrimSpace(payload.Code) == "" {
		return nil, apperr.New(apperr.BadPayload, "code is required")
	}
	resp, err := v.sandbox.Run(ctx, sandbox.RunRequest{ProblemID: problem, Code: payload.Code})
	if err != nil {
		return nil, apperr.Wrap(apperr.ContentInconsistency, err, "sandbox run failed for problem %s", problem)
	}
	coefficient := 0.0
	if resp.Status == "OK" {
		coefficient = 1
	}
	return &Result{Coefficient: coefficient, Echo: payload}, nil
}
