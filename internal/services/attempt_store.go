package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/prepdeck/cbe-service/internal/models"
	"github.com/prepdeck/cbe-service/internal/store"
)

// AttemptStore holds the in-memory attempt for one paper and mirrors every
// mutation into the persistent store. Write-through rather than batched so an
// abruptly closed session loses nothing.
type AttemptStore struct {
	paperID       string
	questionCount int
	kv            store.KV
	logger        *slog.Logger

	attempt *models.Attempt
}

func NewAttemptStore(paperID string, questionCount int, kv store.KV, logger *slog.Logger) *AttemptStore {
	return &AttemptStore{
		paperID:       paperID,
		questionCount: questionCount,
		kv:            kv,
		logger:        logger,
		attempt:       models.NewAttempt(),
	}
}

// Load restores the attempt from the persistent store. Absent or malformed
// state falls back to a fresh attempt; a restored index beyond the current
// paper is clamped. Neither case is surfaced.
func (s *AttemptStore) Load(ctx context.Context) error {
	raw, ok, err := s.kv.Get(ctx, store.SessionKey(s.paperID))
	if err != nil {
		return fmt.Errorf("failed to read attempt state: %w", err)
	}
	if !ok {
		s.attempt = models.NewAttempt()
		return nil
	}

	attempt, perr := decodeAttempt(raw, s.questionCount)
	if perr != nil {
		s.logger.Warn("Malformed persisted attempt, starting fresh",
			"paper_id", s.paperID,
			"error", perr)
		s.attempt = models.NewAttempt()
		return nil
	}
	s.attempt = attempt
	return nil
}

// Attempt returns the current attempt state.
func (s *AttemptStore) Attempt() *models.Attempt {
	return s.attempt
}

// SetAnswer replaces the selection list for a question. Correctness is not
// checked here; scoring is deferred to submission.
func (s *AttemptStore) SetAnswer(ctx context.Context, questionID string, selection []string) error {
	s.attempt.Answers[questionID] = selection
	return s.Persist(ctx)
}

// ToggleFlag flips the review flag for a question.
func (s *AttemptStore) ToggleFlag(ctx context.Context, questionID string) error {
	s.attempt.Flags[questionID] = !s.attempt.Flags[questionID]
	return s.Persist(ctx)
}

// SetIndex moves the current question, clamped into range.
func (s *AttemptStore) SetIndex(ctx context.Context, i int) error {
	s.attempt.CurrentIndex = models.ClampIndex(i, s.questionCount)
	return s.Persist(ctx)
}

// Persist serializes {answers, flags, currentIndex} under the paper's session
// key. The serialized form round-trips losslessly through Load.
func (s *AttemptStore) Persist(ctx context.Context) error {
	payload, err := json.Marshal(s.attempt)
	if err != nil {
		return fmt.Errorf("failed to marshal attempt state: %w", err)
	}
	if err := s.kv.Set(ctx, store.SessionKey(s.paperID), string(payload)); err != nil {
		return fmt.Errorf("failed to persist attempt state: %w", err)
	}
	return nil
}

// Replace overwrites the local attempt from a raw value another session
// persisted. Last writer wins; no merging. The value came from the store, so
// it is not written back.
func (s *AttemptStore) Replace(raw string) error {
	attempt, err := decodeAttempt(raw, s.questionCount)
	if err != nil {
		return fmt.Errorf("failed to decode external attempt state: %w", err)
	}
	s.attempt = attempt
	return nil
}

func decodeAttempt(raw string, questionCount int) (*models.Attempt, error) {
	var attempt models.Attempt
	if err := json.Unmarshal([]byte(raw), &attempt); err != nil {
		return nil, err
	}
	attempt.Normalize(questionCount)
	return &attempt, nil
}
