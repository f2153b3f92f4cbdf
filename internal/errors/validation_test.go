package errors

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationError(t *testing.T) {
	err := NewValidationError("paper_id", "is required", "")

	assert.Equal(t, "paper_id", err.Field)
	assert.Equal(t, "is required", err.Message)
	assert.Equal(t, "validation error on field 'paper_id': is required", err.Error())
}

func TestValidationErrorsMessage(t *testing.T) {
	var errs ValidationErrors
	assert.Equal(t, "validation failed", errs.Error())

	errs = append(errs, *NewValidationError("title", "is required", nil))
	assert.Equal(t, "validation failed: title is required", errs.Error())

	errs = append(errs, *NewValidationError("code", "is required", nil))
	assert.Equal(t, "validation failed: 2 field errors", errs.Error())
}

func TestToValidationErrors(t *testing.T) {
	type subject struct {
		Title    string `validate:"required"`
		Duration int    `validate:"min=5,max=300"`
	}

	v := validator.New()
	err := v.Struct(subject{Duration: 2})
	require.Error(t, err)

	converted := ToValidationErrors(err)
	require.Len(t, converted, 2)

	assert.Equal(t, "Title", converted[0].Field)
	assert.Equal(t, "is required", converted[0].Message)
	assert.Equal(t, "required", converted[0].Rule)

	assert.Equal(t, "must be at least 5", converted[1].Message)
	assert.Equal(t, "min", converted[1].Rule)
}

func TestToValidationErrorsOnPlainError(t *testing.T) {
	assert.Empty(t, ToValidationErrors(assert.AnError))
}
