package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/prepdeck/cbe-service/internal/events"
	"github.com/prepdeck/cbe-service/internal/models"
	"github.com/prepdeck/cbe-service/internal/store"
)

type RunnerState string

const (
	RunnerRunning   RunnerState = "running"
	RunnerSubmitted RunnerState = "submitted"
)

// Keyboard shortcuts the runner dispatches on.
const (
	KeyArrowLeft  = "ArrowLeft"
	KeyArrowRight = "ArrowRight"
	KeyFlag       = "f"
	KeySubmit     = "s"
)

// Runner is one open session ("tab") of a timed attempt on a paper. All of
// its state transitions are serialized behind a mutex: HTTP handlers, the
// countdown ticker and the key-change subscriber all funnel through it.
//
// The state machine is Running -> Submitted, triggered by an explicit submit
// or by the countdown reaching zero; both paths converge on the same scoring
// and cleanup, and the transition fires at most once.
type Runner struct {
	id    string
	paper *models.Paper

	mu        sync.Mutex
	attempt   *AttemptStore
	deadlines *DeadlineCoordinator
	deadline  int64 // epoch ms, resynced from key-change events
	state     RunnerState
	endReason models.AttemptEndReason
	result    *models.SubmittedResult

	calculatorOpen bool
	notesOpen      bool

	persistent   store.KV // shared, also carries the scratchpad text
	sessionStore store.KV // session-scoped, holds the submitted result
	logger       *slog.Logger
	now          func() time.Time
	cancel       context.CancelFunc
}

// ID returns the session id.
func (r *Runner) ID() string { return r.id }

// Paper returns the immutable paper under attempt.
func (r *Runner) Paper() *models.Paper { return r.paper }

// State returns the current state machine position.
func (r *Runner) State() RunnerState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// ===== NAVIGATION =====

// Next moves to the following question, clamped at the last (no wraparound).
func (r *Runner) Next(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.setIndexLocked(ctx, r.attempt.Attempt().CurrentIndex+1)
}

// Prev moves to the previous question, clamped at the first.
func (r *Runner) Prev(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.setIndexLocked(ctx, r.attempt.Attempt().CurrentIndex-1)
}

// JumpTo navigates directly to a question (navigator grid), clamped.
func (r *Runner) JumpTo(ctx context.Context, i int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.setIndexLocked(ctx, i)
}

func (r *Runner) setIndexLocked(ctx context.Context, i int) error {
	if r.state != RunnerRunning {
		return ErrAttemptAlreadySubmitted
	}
	if err := r.attempt.SetIndex(ctx, i); err != nil {
		r.logger.Warn("Failed to persist index change", "session_id", r.id, "error", err)
	}
	return nil
}

// ===== FLAGS AND ANSWERS =====

// ToggleFlag flips the flag on the current question.
func (r *Runner) ToggleFlag(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != RunnerRunning {
		return ErrAttemptAlreadySubmitted
	}
	q := r.currentQuestionLocked()
	if err := r.attempt.ToggleFlag(ctx, q.ID); err != nil {
		r.logger.Warn("Failed to persist flag change", "session_id", r.id, "error", err)
	}
	return nil
}

// AnswerRequest carries one answer input. OptionID applies to choice
// questions; Text applies to free-response questions.
type AnswerRequest struct {
	QuestionID string  `json:"question_id" validate:"required"`
	OptionID   string  `json:"option_id,omitempty"`
	Text       *string `json:"text,omitempty"`
}

// SubmitAnswer applies an answer input according to the question's type:
// single-choice replaces the selection with exactly one option id,
// multi-choice toggles the option's membership, free-response stores the
// text as a single-element selection. Correctness is never checked here.
func (r *Runner) SubmitAnswer(ctx context.Context, req *AnswerRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != RunnerRunning {
		return ErrAttemptAlreadySubmitted
	}

	q := r.questionByIDLocked(req.QuestionID)
	if q == nil {
		return ErrQuestionNotOnPaper
	}

	var selection []string
	switch q.Type {
	case models.QuestionSingleChoice:
		if !hasOption(q, req.OptionID) {
			return NewValidationError("option_id", "is not an option of this question", req.OptionID)
		}
		selection = []string{req.OptionID}
	case models.QuestionMultiChoice:
		if !hasOption(q, req.OptionID) {
			return NewValidationError("option_id", "is not an option of this question", req.OptionID)
		}
		selection = toggleMembership(r.attempt.Attempt().Selection(q.ID), req.OptionID)
	case models.QuestionFreeResponse:
		if req.Text == nil {
			return NewValidationError("text", "is required for free-response questions", nil)
		}
		if *req.Text == "" {
			selection = nil
		} else {
			selection = []string{*req.Text}
		}
	}

	if err := r.attempt.SetAnswer(ctx, q.ID, selection); err != nil {
		r.logger.Warn("Failed to persist answer", "session_id", r.id, "question_id", q.ID, "error", err)
	}
	return nil
}

// HandleKey dispatches a keyboard shortcut: left/right arrows navigate, "f"
// flags the current question, "s" submits, digits 1-9 select or toggle the
// Nth option of the current question when it has that many options.
func (r *Runner) HandleKey(ctx context.Context, key string) error {
	switch key {
	case KeyArrowRight:
		return r.Next(ctx)
	case KeyArrowLeft:
		return r.Prev(ctx)
	case KeyFlag, "F":
		return r.ToggleFlag(ctx)
	case KeySubmit, "S":
		_, err := r.Submit(ctx)
		return err
	}

	if n, err := strconv.Atoi(key); err == nil && n >= 1 && n <= 9 {
		return r.selectNthOption(ctx, n)
	}
	return nil // unbound keys are ignored
}

func (r *Runner) selectNthOption(ctx context.Context, n int) error {
	r.mu.Lock()
	q := r.currentQuestionLocked()
	if !q.IsChoice() || n > len(q.Options) {
		r.mu.Unlock()
		return nil
	}
	req := &AnswerRequest{QuestionID: q.ID, OptionID: q.Options[n-1].ID}
	r.mu.Unlock()
	return r.SubmitAnswer(ctx, req)
}

// ===== TOOL TOGGLES =====

func (r *Runner) ToggleCalculator() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calculatorOpen = !r.calculatorOpen
}

func (r *Runner) ToggleNotes() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notesOpen = !r.notesOpen
}

// Notes reads the scratchpad text for the paper. The text is shared by every
// session on the paper and re-read on each call, like reopening the panel.
func (r *Runner) Notes(ctx context.Context) (string, error) {
	text, _, err := r.persistent.Get(ctx, store.NotesKey(r.paper.ID))
	if err != nil {
		return "", err
	}
	return text, nil
}

// SetNotes saves the scratchpad text. Notes are not part of the attempt:
// they survive submission and are never scored, so no state guard applies.
func (r *Runner) SetNotes(ctx context.Context, text string) error {
	return r.persistent.Set(ctx, store.NotesKey(r.paper.ID), text)
}

// ===== SUBMISSION =====

// Submit ends the attempt on explicit user action.
func (r *Runner) Submit(ctx context.Context) (models.SubmittedResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.submitLocked(ctx, models.EndReasonUser)
}

// submitLocked performs the Running -> Submitted transition: score, hand the
// result to the session store, clear the shared deadline, stop the loops.
// Guarded so a second call (a late tick, a double click) is a conflict, never
// a re-submit.
func (r *Runner) submitLocked(ctx context.Context, reason models.AttemptEndReason) (models.SubmittedResult, error) {
	if r.state != RunnerRunning {
		if r.result != nil {
			return *r.result, ErrAttemptAlreadySubmitted
		}
		return models.SubmittedResult{}, ErrAttemptAlreadySubmitted
	}

	result := Score(r.paper, r.attempt.Attempt())
	r.result = &result
	r.state = RunnerSubmitted
	r.endReason = reason

	payload, err := json.Marshal(result)
	if err != nil {
		r.logger.Error("Failed to marshal submitted result", "session_id", r.id, "error", err)
	} else if err := r.sessionStore.Set(ctx, store.ResultKey(r.paper.ID), string(payload)); err != nil {
		r.logger.Error("Failed to store submitted result", "session_id", r.id, "error", err)
	}

	if err := r.deadlines.Clear(ctx, r.paper.ID); err != nil {
		r.logger.Error("Failed to clear deadline", "session_id", r.id, "error", err)
	}

	if r.cancel != nil {
		r.cancel()
	}

	r.logger.Info("Attempt submitted",
		"session_id", r.id,
		"paper_id", r.paper.ID,
		"end_reason", reason,
		"score", result.Score,
		"max", result.Max,
		"answered", result.Answered)

	return result, nil
}

// ===== BACKGROUND LOOPS =====

// tickLoop recomputes the remaining time from the shared deadline once per
// interval. Reaching zero triggers the timeout submit; the state guard makes
// further ticks no-ops even before the context unwinds.
func (r *Runner) tickLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.mu.Lock()
			if r.state == RunnerRunning && Remaining(r.deadline, r.now()) == 0 {
				if _, err := r.submitLocked(ctx, models.EndReasonTimeout); err != nil {
					r.logger.Error("Timeout submit failed", "session_id", r.id, "error", err)
				}
			}
			r.mu.Unlock()
		}
	}
}

// listenLoop reconciles local state with writes made by sibling sessions.
// Only this paper's session and deadline keys are interesting; everything
// else, including this session's own writes, is ignored. Last writer wins,
// no merging.
func (r *Runner) listenLoop(ctx context.Context, changes <-chan events.KeyChangeEvent) {
	sessionKey := store.SessionKey(r.paper.ID)
	deadlineKey := store.DeadlineKey(r.paper.ID)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-changes:
			if !ok {
				return
			}
			if ev.Origin == r.id || ev.Deleted {
				continue
			}
			switch ev.Key {
			case sessionKey:
				r.applyExternalAttempt(ev.Value)
			case deadlineKey:
				r.applyExternalDeadline(ev.Value)
			}
		}
	}
}

func (r *Runner) applyExternalAttempt(raw string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != RunnerRunning {
		return
	}
	if err := r.attempt.Replace(raw); err != nil {
		r.logger.Warn("Ignoring undecodable external attempt state",
			"session_id", r.id,
			"paper_id", r.paper.ID,
			"error", err)
	}
}

func (r *Runner) applyExternalDeadline(raw string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	deadline, err := ParseDeadline(raw)
	if err != nil {
		r.logger.Warn("Ignoring undecodable external deadline",
			"session_id", r.id,
			"paper_id", r.paper.ID,
			"error", err)
		return
	}
	r.deadline = deadline
}

// ===== HELPERS =====

func (r *Runner) currentQuestionLocked() *models.Question {
	return &r.paper.Questions[r.attempt.Attempt().CurrentIndex]
}

func (r *Runner) questionByIDLocked(id string) *models.Question {
	for i := range r.paper.Questions {
		if r.paper.Questions[i].ID == id {
			return &r.paper.Questions[i]
		}
	}
	return nil
}

func hasOption(q *models.Question, optionID string) bool {
	for i := range q.Options {
		if q.Options[i].ID == optionID {
			return true
		}
	}
	return false
}

// toggleMembership adds the id to the selection if absent, removes it if
// present, preserving the order of the remaining ids.
func toggleMembership(selection []string, id string) []string {
	out := make([]string, 0, len(selection)+1)
	removed := false
	for _, s := range selection {
		if s == id {
			removed = true
			continue
		}
		out = append(out, s)
	}
	if !removed {
		out = append(out, id)
	}
	return out
}
