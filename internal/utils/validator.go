package utils

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/prepdeck/cbe-service/internal/errors"
	"github.com/prepdeck/cbe-service/internal/models"
)

// Validator combines struct-tag validation with the paper invariants that
// tags cannot express.
type Validator struct {
	structValidator *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New()

	// Report field names from json tags so API error messages match the
	// wire shape.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{structValidator: v}
}

// Validate checks struct tags and converts field errors to the shared
// validation error type.
func (v *Validator) Validate(s interface{}) error {
	if err := v.structValidator.Struct(s); err != nil {
		if ve := apperrors.ToValidationErrors(err); len(ve) > 0 {
			return ve
		}
		return err
	}
	return nil
}

// ValidatePaper checks the per-type question invariants on top of the struct
// tags: choice questions need options and correct ids drawn from those
// options (exactly one for single-choice); free-response questions carry
// neither.
func (v *Validator) ValidatePaper(paper *models.Paper) error {
	if err := v.Validate(paper); err != nil {
		return err
	}

	for i := range paper.Questions {
		if err := validateQuestion(&paper.Questions[i]); err != nil {
			return fmt.Errorf("question %s: %w", paper.Questions[i].ID, err)
		}
	}
	return nil
}

func validateQuestion(q *models.Question) error {
	switch q.Type {
	case models.QuestionSingleChoice, models.QuestionMultiChoice:
		if len(q.Options) == 0 {
			return fmt.Errorf("choice question has no options")
		}
		if len(q.CorrectIDs) == 0 {
			return fmt.Errorf("choice question has no correct answer")
		}
		if q.Type == models.QuestionSingleChoice && len(q.CorrectIDs) != 1 {
			return fmt.Errorf("single-choice question must have exactly one correct answer, got %d", len(q.CorrectIDs))
		}
		optionIDs := make(map[string]struct{}, len(q.Options))
		for i := range q.Options {
			optionIDs[q.Options[i].ID] = struct{}{}
		}
		for _, id := range q.CorrectIDs {
			if _, ok := optionIDs[id]; !ok {
				return fmt.Errorf("correct answer %q is not an option", id)
			}
		}
	case models.QuestionFreeResponse:
		if len(q.Options) > 0 || len(q.CorrectIDs) > 0 {
			return fmt.Errorf("free-response question must not carry options or answer keys")
		}
	default:
		return fmt.Errorf("unsupported question type: %s", q.Type)
	}
	return nil
}
