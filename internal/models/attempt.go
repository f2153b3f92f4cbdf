package models

// Attempt is the mutable per-learner state for one paper: selected answers,
// flags and the current question index. Free-text answers are stored as a
// single-element selection list so the serialized shape is uniform across
// question types.
type Attempt struct {
	Answers      map[string][]string `json:"answers"`
	Flags        map[string]bool     `json:"flags"`
	CurrentIndex int                 `json:"currentIndex"`
}

// NewAttempt returns a fresh attempt: no answers, no flags, index 0.
func NewAttempt() *Attempt {
	return &Attempt{
		Answers: make(map[string][]string),
		Flags:   make(map[string]bool),
	}
}

// Normalize repairs an attempt decoded from storage: nil maps become empty
// and the index is clamped into [0, questionCount-1]. A paper that shrank
// since the attempt was persisted is not an error.
func (a *Attempt) Normalize(questionCount int) {
	if a.Answers == nil {
		a.Answers = make(map[string][]string)
	}
	if a.Flags == nil {
		a.Flags = make(map[string]bool)
	}
	a.CurrentIndex = ClampIndex(a.CurrentIndex, questionCount)
}

// AnsweredCount returns the number of questions with a non-empty selection.
func (a *Attempt) AnsweredCount() int {
	n := 0
	for _, sel := range a.Answers {
		if len(sel) > 0 {
			n++
		}
	}
	return n
}

// Selection returns the selection list for a question, never nil.
func (a *Attempt) Selection(questionID string) []string {
	return a.Answers[questionID]
}

// ClampIndex clamps i into [0, questionCount-1].
func ClampIndex(i, questionCount int) int {
	if questionCount <= 0 {
		return 0
	}
	if i < 0 {
		return 0
	}
	if i > questionCount-1 {
		return questionCount - 1
	}
	return i
}
