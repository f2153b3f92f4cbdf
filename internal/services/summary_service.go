package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/prepdeck/cbe-service/internal/models"
	"github.com/prepdeck/cbe-service/internal/repositories"
	"github.com/prepdeck/cbe-service/internal/store"
)

// Summary is the review view: the submitted result (when present) plus a
// per-question classification against the paper's answer keys.
type Summary struct {
	Paper    models.PaperSummary     `json:"paper"`
	Result   *models.SubmittedResult `json:"result,omitempty"`
	Percent  int                     `json:"percent"`
	HasScore bool                    `json:"has_score"`
	Review   []models.ReviewItem     `json:"review"`
}

// SummaryService reconstructs the review view after submission. It reads,
// never writes: the scorer produced the result, the attempt state is whatever
// the runner left behind.
type SummaryService struct {
	papers       repositories.PaperRepository
	persistent   store.KV
	sessionStore store.KV
	logger       *slog.Logger
}

func NewSummaryService(
	papers repositories.PaperRepository,
	persistent store.KV,
	sessionStore store.KV,
	logger *slog.Logger,
) *SummaryService {
	return &SummaryService{
		papers:       papers,
		persistent:   persistent,
		sessionStore: sessionStore,
		logger:       logger,
	}
}

// BuildSummary fetches the paper and classifies every question. A missing
// submitted result (direct navigation without submitting) degrades to counts
// without a score; it is not an error.
func (s *SummaryService) BuildSummary(ctx context.Context, paperID string) (*Summary, error) {
	paper, err := s.papers.GetByID(ctx, paperID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrPaperNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrPaperFetch, err)
	}

	summary := &Summary{Paper: paper.Summary()}

	if raw, ok, err := s.sessionStore.Get(ctx, store.ResultKey(paperID)); err != nil {
		s.logger.Warn("Failed to read submitted result", "paper_id", paperID, "error", err)
	} else if ok {
		var result models.SubmittedResult
		if uerr := json.Unmarshal([]byte(raw), &result); uerr != nil {
			s.logger.Warn("Malformed submitted result, showing review without score",
				"paper_id", paperID,
				"error", uerr)
		} else {
			summary.Result = &result
			summary.Percent = result.Percent()
			summary.HasScore = true
		}
	}

	attempt := s.loadAttempt(ctx, paperID, paper.QuestionCount())

	summary.Review = make([]models.ReviewItem, len(paper.Questions))
	for i := range paper.Questions {
		q := &paper.Questions[i]
		selection := attempt.Selection(q.ID)
		summary.Review[i] = models.ReviewItem{
			QuestionID:  q.ID,
			Number:      i + 1,
			Type:        q.Type,
			Stem:        q.Stem,
			Marks:       q.Marks,
			State:       Classify(q, selection),
			Selected:    selection,
			Correct:     q.CorrectIDs,
			Explanation: q.Explanation,
		}
	}

	return summary, nil
}

// loadAttempt reads whatever attempt state is still persisted for the paper.
// Absent or malformed state yields an empty attempt: every question reviews
// as open.
func (s *SummaryService) loadAttempt(ctx context.Context, paperID string, questionCount int) *models.Attempt {
	raw, ok, err := s.persistent.Get(ctx, store.SessionKey(paperID))
	if err != nil || !ok {
		if err != nil {
			s.logger.Warn("Failed to read attempt state for review", "paper_id", paperID, "error", err)
		}
		return models.NewAttempt()
	}
	attempt, derr := decodeAttempt(raw, questionCount)
	if derr != nil {
		s.logger.Warn("Malformed attempt state for review", "paper_id", paperID, "error", derr)
		return models.NewAttempt()
	}
	return attempt
}
