package services

import (
	"github.com/prepdeck/cbe-service/internal/models"
)

// Score walks the paper in question order and applies per-type correctness
// rules against the attempt's selections. Marking is all-or-nothing per
// question: a multi-choice selection earns full marks only when it equals the
// correct set exactly, with no partial credit. Free-response questions still
// count toward max (and toward the answered count when non-empty) but are
// never auto-scored.
func Score(paper *models.Paper, attempt *models.Attempt) models.SubmittedResult {
	result := models.SubmittedResult{Total: len(paper.Questions)}

	for i := range paper.Questions {
		q := &paper.Questions[i]
		result.Max += q.Marks

		selection := attempt.Selection(q.ID)
		if len(selection) > 0 {
			result.Answered++
		}

		if Classify(q, selection) == models.ReviewCorrect {
			result.Score += q.Marks
		}
	}

	return result
}

// Classify applies the same equality rules as Score to one question: open for
// free-response or an empty selection, otherwise correct or wrong.
func Classify(q *models.Question, selection []string) models.ReviewState {
	if q.Type == models.QuestionFreeResponse || len(selection) == 0 {
		return models.ReviewOpen
	}

	switch q.Type {
	case models.QuestionSingleChoice:
		if len(selection) == 1 && len(q.CorrectIDs) == 1 && selection[0] == q.CorrectIDs[0] {
			return models.ReviewCorrect
		}
	case models.QuestionMultiChoice:
		if setEqual(selection, q.CorrectIDs) {
			return models.ReviewCorrect
		}
	}
	return models.ReviewWrong
}

// setEqual compares two id lists as sets: same size, same membership. A
// strict subset or superset is not equal.
func setEqual(a, b []string) bool {
	as := toSet(a)
	bs := toSet(b)
	if len(as) != len(bs) {
		return false
	}
	for id := range as {
		if _, ok := bs[id]; !ok {
			return false
		}
	}
	return true
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
