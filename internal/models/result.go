package models

// SubmittedResult is computed once on submission and read by the summary
// view. It lives in the session-scoped store only.
type SubmittedResult struct {
	Score    int `json:"score"`
	Max      int `json:"max"`
	Answered int `json:"answered"`
	Total    int `json:"total"`
}

// Percent returns the score percentage, rounded, with max floored at 1 so an
// empty paper cannot divide by zero.
func (r SubmittedResult) Percent() int {
	max := r.Max
	if max < 1 {
		max = 1
	}
	return int(float64(r.Score)/float64(max)*100 + 0.5)
}

// ReviewState classifies a question on the summary view.
type ReviewState string

const (
	ReviewCorrect ReviewState = "correct"
	ReviewWrong   ReviewState = "wrong"
	ReviewOpen    ReviewState = "open"
)

// ReviewItem is one question of the summary/review view: the learner's
// selection alongside the correct set and the explanation, if any.
type ReviewItem struct {
	QuestionID  string       `json:"question_id"`
	Number      int          `json:"number"`
	Type        QuestionType `json:"type"`
	Stem        string       `json:"stem"`
	Marks       int          `json:"marks"`
	State       ReviewState  `json:"state"`
	Selected    []string     `json:"selected,omitempty"`
	Correct     []string     `json:"correct,omitempty"`
	Explanation string       `json:"explanation,omitempty"`
}

type AttemptEndReason string

const (
	EndReasonUser    AttemptEndReason = "user"
	EndReasonTimeout AttemptEndReason = "timeout"
)
