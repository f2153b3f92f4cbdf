package repositories

import (
	"context"
	"sort"
	"sync"

	"github.com/prepdeck/cbe-service/internal/models"
)

// MemoryBank is an in-memory paper repository. The default backend for
// development and tests; seeded with the BT practice papers.
type MemoryBank struct {
	mu     sync.RWMutex
	papers map[string]*models.Paper
}

func NewMemoryBank(papers ...*models.Paper) *MemoryBank {
	bank := &MemoryBank{papers: make(map[string]*models.Paper, len(papers))}
	for _, p := range papers {
		bank.papers[p.ID] = p
	}
	return bank
}

// NewSeededBank returns a bank preloaded with the built-in practice papers.
func NewSeededBank() *MemoryBank {
	return NewMemoryBank(SeedPapers()...)
}

func (b *MemoryBank) GetByID(ctx context.Context, id string) (*models.Paper, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	paper, ok := b.papers[id]
	if !ok {
		return nil, ErrNotFound
	}
	return paper, nil
}

func (b *MemoryBank) List(ctx context.Context) ([]models.PaperSummary, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	summaries := make([]models.PaperSummary, 0, len(b.papers))
	for _, p := range b.papers {
		summaries = append(summaries, p.Summary())
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].ID < summaries[j].ID })
	return summaries, nil
}

// Put adds or replaces a paper (used by tests and seeding).
func (b *MemoryBank) Put(paper *models.Paper) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.papers[paper.ID] = paper
}

// SeedPapers returns the built-in BT practice papers.
func SeedPapers() []*models.Paper {
	return []*models.Paper{
		{
			ID:              "bt-2023-jun",
			Title:           "BT — June 2023",
			Code:            "BT",
			DurationMinutes: 120,
			Questions: []models.Question{
				{
					ID:   "q1",
					Type: models.QuestionSingleChoice,
					Stem: "Which stakeholder is typically <b>internal</b> to an organisation?",
					Options: []models.Option{
						{ID: "a", Text: "Shareholders"},
						{ID: "b", Text: "Suppliers"},
						{ID: "c", Text: "Employees"},
						{ID: "d", Text: "Government"},
					},
					CorrectIDs:  []string{"c"},
					Marks:       2,
					Explanation: "Employees are internal stakeholders. Others listed are external.",
				},
				{
					ID:   "q2",
					Type: models.QuestionMultiChoice,
					Stem: "Select ALL that relate to data protection under A3c:",
					Options: []models.Option{
						{ID: "a", Text: "Lawful processing"},
						{ID: "b", Text: "Data minimisation"},
						{ID: "c", Text: "Going concern"},
						{ID: "d", Text: "Purpose limitation"},
					},
					CorrectIDs:  []string{"a", "b", "d"},
					Marks:       3,
					Explanation: "A3c covers lawful processing, minimisation, purpose limitation. 'Going concern' is FR.",
				},
				{
					ID:   "q3",
					Type: models.QuestionFreeResponse,
					Stem: "ACME Ltd handles personal data of EU customers. A manager requests the full dataset to be sent by email to a supplier for a time-critical task. " +
						"Briefly outline <b>two</b> concerns and <b>one</b> action you would recommend.",
					Marks:       5,
					Explanation: "Concerns: unlawful disclosure, lack of safeguards, no DPA. Action: assess lawful basis, DPA, use secure transfer.",
				},
			},
		},
		{
			ID:              "bt-2023-dec",
			Title:           "BT — December 2023",
			Code:            "BT",
			DurationMinutes: 120,
			Questions: []models.Question{
				{
					ID:   "q1",
					Type: models.QuestionSingleChoice,
					Stem: "Corporate governance primarily aims to:",
					Options: []models.Option{
						{ID: "a", Text: "Maximise short-term profits"},
						{ID: "b", Text: "Increase market share at any cost"},
						{ID: "c", Text: "Align management with stakeholder interests"},
						{ID: "d", Text: "Reduce audit fees"},
					},
					CorrectIDs:  []string{"c"},
					Marks:       2,
					Explanation: "Governance ensures accountability and alignment with stakeholder interests.",
				},
			},
		},
	}
}
