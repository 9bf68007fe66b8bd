package validate

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Azen0n/enginesvc/internal/apperr"
	"github.com/Azen0n/enginesvc/internal/catalog"
)

func TestRadioCoefficient(t *testing.T) {
	correct := catalog.RadioOption{ID: uuid.New(), IsCorrect: true}
	wrong := catalog.RadioOption{ID: uuid.New(), IsCorrect: false}
	options := []catalog.RadioOption{correct, wrong}

	t.Run("correct choice scores 1", func(t *testing.T) {
		c, known := radioCoefficient(options, correct.ID)
		assert.True(t, known)
		assert.Equal(t, 1.0, c)
	})

	t.Run("wrong choice scores 0", func(t *testing.T) {
		c, known := radioCoefficient(options, wrong.ID)
		assert.True(t, known)
		assert.Equal(t, 0.0, c)
	})

	t.Run("unknown id is reported", func(t *testing.T) {
		_, known := radioCoefficient(options, uuid.New())
		assert.False(t, known)
	})
}

func TestCheckboxCoefficient(t *testing.T) {
	problem := uuid.New()
	c1 := catalog.CheckboxOption{ID: uuid.New(), IsCorrect: true}
	c2 := catalog.CheckboxOption{ID: uuid.New(), IsCorrect: true}
	w1 := catalog.CheckboxOption{ID: uuid.New(), IsCorrect: false}
	options := []catalog.CheckboxOption{c1, c2, w1}

	t.Run("all correct scores 1", func(t *testing.T) {
		c, err := checkboxCoefficient(options, []uuid.UUID{c1.ID, c2.ID}, problem)
		require.NoError(t, err)
		assert.Equal(t, 1.0, c)
	})

	t.Run("one of two correct scores a half", func(t *testing.T) {
		c, err := checkboxCoefficient(options, []uuid.UUID{c1.ID}, problem)
		require.NoError(t, err)
		assert.Equal(t, 0.5, c)
	})

	t.Run("wrong choices subtract", func(t *testing.T) {
		c, err := checkboxCoefficient(options, []uuid.UUID{c1.ID, c2.ID, w1.ID}, problem)
		require.NoError(t, err)
		assert.Equal(t, 0.5, c)
	})

	t.Run("net-negative clamps to zero", func(t *testing.T) {
		c, err := checkboxCoefficient(options, []uuid.UUID{w1.ID}, problem)
		require.NoError(t, err)
		assert.Equal(t, 0.0, c)
	})

	t.Run("unknown id is a bad payload", func(t *testing.T) {
		_, err := checkboxCoefficient(options, []uuid.UUID{uuid.New()}, problem)
		assert.True(t, apperr.Is(err, apperr.BadPayload))
	})

	t.Run("no correct options is a content error", func(t *testing.T) {
		_, err := checkboxCoefficient([]catalog.CheckboxOption{w1}, []uuid.UUID{w1.ID}, problem)
		assert.True(t, apperr.Is(err, apperr.ContentInconsistency))
	})
}

func TestBlankCoefficientMatchesCaseInsensitively(t *testing.T) {
	options := []catalog.BlankOption{
		{ID: uuid.New(), Text: "Fourier"},
		{ID: uuid.New(), Text: "FFT"},
	}

	assert.Equal(t, 1.0, blankCoefficient(options, "fourier"))
	assert.Equal(t, 1.0, blankCoefficient(options, "fft"))
	assert.Equal(t, 0.0, blankCoefficient(options, "laplace"))
}
