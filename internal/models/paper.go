package models

type QuestionType string

const (
	QuestionSingleChoice QuestionType = "single_choice"
	QuestionMultiChoice  QuestionType = "multi_choice"
	QuestionFreeResponse QuestionType = "free_response"
)

// Option is one selectable choice of a choice question.
type Option struct {
	ID   string `json:"id" validate:"required"`
	Text string `json:"text" validate:"required"`
}

// Question is a single exam question. Choice questions carry options and the
// correct option ids; free-response questions carry neither and are never
// auto-scored.
type Question struct {
	ID          string       `json:"id" validate:"required"`
	Type        QuestionType `json:"type" validate:"required,oneof=single_choice multi_choice free_response"`
	Stem        string       `json:"stem" validate:"required"`
	Options     []Option     `json:"options,omitempty" validate:"dive"`
	CorrectIDs  []string     `json:"correct,omitempty"`
	Marks       int          `json:"marks" validate:"required,min=1"`
	Explanation string       `json:"explanation,omitempty"`
}

// IsChoice reports whether the question is auto-scorable.
func (q *Question) IsChoice() bool {
	return q.Type == QuestionSingleChoice || q.Type == QuestionMultiChoice
}

// Paper is an immutable exam paper definition. It is the source of truth for
// correctness and marks.
type Paper struct {
	ID              string     `json:"id" validate:"required"`
	Title           string     `json:"title" validate:"required,max=200"`
	Code            string     `json:"code" validate:"required,max=20"`
	DurationMinutes int        `json:"duration_min" validate:"required,min=5,max=300"`
	Questions       []Question `json:"questions" validate:"required,min=1,dive"`
}

// QuestionCount returns the number of questions on the paper.
func (p *Paper) QuestionCount() int {
	return len(p.Questions)
}

// TotalMarks sums marks over all questions, free-response included.
func (p *Paper) TotalMarks() int {
	total := 0
	for i := range p.Questions {
		total += p.Questions[i].Marks
	}
	return total
}

// PaperSummary is the listing view of a paper, without question bodies.
type PaperSummary struct {
	ID              string `json:"id"`
	Code            string `json:"code"`
	Title           string `json:"title"`
	DurationMinutes int    `json:"duration_min"`
	QuestionCount   int    `json:"questions"`
}

func (p *Paper) Summary() PaperSummary {
	return PaperSummary{
		ID:              p.ID,
		Code:            p.Code,
		Title:           p.Title,
		DurationMinutes: p.DurationMinutes,
		QuestionCount:   len(p.Questions),
	}
}
