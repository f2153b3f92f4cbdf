package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/prepdeck/cbe-service/internal/errors"
	"github.com/prepdeck/cbe-service/internal/models"
)

func validPaper() *models.Paper {
	return &models.Paper{
		ID:              "p1",
		Title:           "Paper One",
		Code:            "P1",
		DurationMinutes: 60,
		Questions: []models.Question{
			{
				ID:   "q1",
				Type: models.QuestionSingleChoice,
				Stem: "Pick one",
				Options: []models.Option{
					{ID: "a", Text: "A"}, {ID: "b", Text: "B"},
				},
				CorrectIDs: []string{"a"},
				Marks:      2,
			},
			{
				ID:    "q2",
				Type:  models.QuestionFreeResponse,
				Stem:  "Explain",
				Marks: 5,
			},
		},
	}
}

func TestValidatePaper(t *testing.T) {
	v := NewValidator()

	t.Run("ValidPaper", func(t *testing.T) {
		assert.NoError(t, v.ValidatePaper(validPaper()))
	})

	t.Run("MissingTitle", func(t *testing.T) {
		p := validPaper()
		p.Title = ""
		err := v.ValidatePaper(p)
		require.Error(t, err)

		var ve apperrors.ValidationErrors
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "title", ve[0].Field)
	})

	t.Run("DurationOutOfRange", func(t *testing.T) {
		p := validPaper()
		p.DurationMinutes = 500
		assert.Error(t, v.ValidatePaper(p))
	})

	t.Run("NoQuestions", func(t *testing.T) {
		p := validPaper()
		p.Questions = nil
		assert.Error(t, v.ValidatePaper(p))
	})

	t.Run("ChoiceWithoutOptions", func(t *testing.T) {
		p := validPaper()
		p.Questions[0].Options = nil
		err := v.ValidatePaper(p)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "q1")
	})

	t.Run("SingleChoiceWithTwoCorrectAnswers", func(t *testing.T) {
		p := validPaper()
		p.Questions[0].CorrectIDs = []string{"a", "b"}
		assert.Error(t, v.ValidatePaper(p))
	})

	t.Run("CorrectIDNotAnOption", func(t *testing.T) {
		p := validPaper()
		p.Questions[0].CorrectIDs = []string{"z"}
		err := v.ValidatePaper(p)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `"z"`)
	})

	t.Run("FreeResponseWithAnswerKey", func(t *testing.T) {
		p := validPaper()
		p.Questions[1].CorrectIDs = []string{"a"}
		assert.Error(t, v.ValidatePaper(p))
	})

	t.Run("UnknownQuestionType", func(t *testing.T) {
		p := validPaper()
		p.Questions[0].Type = "essay"
		assert.Error(t, v.ValidatePaper(p))
	})
}

func TestValidateStruct(t *testing.T) {
	v := NewValidator()

	type request struct {
		PaperID string `json:"paper_id" validate:"required"`
	}

	t.Run("FieldNamesFromJSONTags", func(t *testing.T) {
		err := v.Validate(&request{})
		require.Error(t, err)

		var ve apperrors.ValidationErrors
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "paper_id", ve[0].Field)
	})

	t.Run("ValidStruct", func(t *testing.T) {
		assert.NoError(t, v.Validate(&request{PaperID: "p1"}))
	})
}
