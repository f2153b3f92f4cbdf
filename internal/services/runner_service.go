package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/prepdeck/cbe-service/internal/events"
	"github.com/prepdeck/cbe-service/internal/models"
	"github.com/prepdeck/cbe-service/internal/repositories"
	"github.com/prepdeck/cbe-service/internal/store"
	"github.com/prepdeck/cbe-service/internal/utils"
)

// SessionManager opens and tracks live runner sessions. Opening a session
// runs the full load sequence: paper fetch, attempt restore, deadline
// establish, background loops. Closing a session only stops the loops; the
// persisted attempt state stays in place, so reopening the paper resumes it.
type SessionManager struct {
	papers       repositories.PaperRepository
	persistent   store.KV // shared, survives restarts
	sessionStore store.KV // session-scoped, holds results
	bus          events.Bus
	validator    *utils.Validator
	logger       *slog.Logger
	tickInterval time.Duration
	clock        func() time.Time

	mu      sync.Mutex
	runners map[string]*Runner
}

func NewSessionManager(
	papers repositories.PaperRepository,
	persistent store.KV,
	sessionStore store.KV,
	bus events.Bus,
	validator *utils.Validator,
	logger *slog.Logger,
) *SessionManager {
	return &SessionManager{
		papers:       papers,
		persistent:   persistent,
		sessionStore: sessionStore,
		bus:          bus,
		validator:    validator,
		logger:       logger,
		tickInterval: time.Second,
		clock:        time.Now,
		runners:      make(map[string]*Runner),
	}
}

// WithTickInterval overrides the countdown tick period (tests).
func (m *SessionManager) WithTickInterval(d time.Duration) *SessionManager {
	m.tickInterval = d
	return m
}

// WithClock overrides the wall clock for new sessions (tests).
func (m *SessionManager) WithClock(now func() time.Time) *SessionManager {
	m.clock = now
	return m
}

// Open starts a new runner session for a paper. Not-found and transport
// failures surface as-is; the caller retries by calling Open again, which
// re-runs the whole sequence.
func (m *SessionManager) Open(ctx context.Context, paperID string) (*Runner, error) {
	m.logger.Info("Opening runner session", "paper_id", paperID)

	paper, err := m.papers.GetByID(ctx, paperID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrPaperNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrPaperFetch, err)
	}

	if err := m.validator.ValidatePaper(paper); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPaperInvalid, err)
	}

	id := uuid.New().String()

	// Each session persists through its own notifying wrapper so sibling
	// sessions see its writes while it ignores its own.
	kv := store.NewNotifying(m.persistent, m.bus, id, m.logger)

	attempt := NewAttemptStore(paper.ID, paper.QuestionCount(), kv, m.logger)
	if err := attempt.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to restore attempt: %w", err)
	}

	deadlines := NewDeadlineCoordinator(kv, m.logger).WithClock(m.clock)
	deadline, err := deadlines.Establish(ctx, paper.ID, paper.DurationMinutes)
	if err != nil {
		return nil, err
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	runner := &Runner{
		id:           id,
		paper:        paper,
		attempt:      attempt,
		deadlines:    deadlines,
		deadline:     deadline,
		state:        RunnerRunning,
		persistent:   kv,
		sessionStore: m.sessionStore,
		logger:       m.logger,
		now:          m.clock,
		cancel:       cancel,
	}

	changes, err := m.bus.SubscribeKeyChanges(loopCtx)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to subscribe to key changes: %w", err)
	}
	go runner.listenLoop(loopCtx, changes)
	go runner.tickLoop(loopCtx, m.tickInterval)

	// A paper reopened after its deadline passed auto-submits immediately
	// rather than waiting for the first tick.
	runner.mu.Lock()
	if Remaining(runner.deadline, runner.now()) == 0 {
		if _, err := runner.submitLocked(ctx, models.EndReasonTimeout); err != nil {
			m.logger.Error("Expired-on-open submit failed", "session_id", id, "error", err)
		}
	}
	runner.mu.Unlock()

	m.mu.Lock()
	m.runners[id] = runner
	m.mu.Unlock()

	m.logger.Info("Runner session opened",
		"session_id", id,
		"paper_id", paper.ID,
		"questions", paper.QuestionCount(),
		"deadline_ms", deadline)

	return runner, nil
}

// Get returns a live session by id.
func (m *SessionManager) Get(id string) (*Runner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	runner, ok := m.runners[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return runner, nil
}

// Close stops a session's loops and drops it from the registry. The attempt
// state is not deleted: navigating away abandons it in place and returning
// resumes it (possibly against an already expired deadline).
func (m *SessionManager) Close(id string) error {
	m.mu.Lock()
	runner, ok := m.runners[id]
	if ok {
		delete(m.runners, id)
	}
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	if runner.cancel != nil {
		runner.cancel()
	}
	m.logger.Info("Runner session closed", "session_id", id, "paper_id", runner.paper.ID)
	return nil
}

// ===== VIEW =====

// OptionView is a sanitized option for the runner view.
type OptionView struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// QuestionView is the current question without correct ids or explanation:
// the runner never leaks answer keys mid-attempt.
type QuestionView struct {
	ID       string              `json:"id"`
	Type     models.QuestionType `json:"type"`
	Stem     string              `json:"stem"`
	Options  []OptionView        `json:"options,omitempty"`
	Marks    int                 `json:"marks"`
	Selected []string            `json:"selected"`
	Flagged  bool                `json:"flagged"`
}

// NavigatorEntry is one cell of the question-navigator grid.
type NavigatorEntry struct {
	Number   int    `json:"number"` // 1-based
	ID       string `json:"id"`
	Answered bool   `json:"answered"`
	Flagged  bool   `json:"flagged"`
	Current  bool   `json:"current"`
}

// RunnerView is the full snapshot a client renders: toolbar, current
// question and navigator grid.
type RunnerView struct {
	SessionID        string           `json:"session_id"`
	PaperID          string           `json:"paper_id"`
	Title            string           `json:"title"`
	Code             string           `json:"code"`
	State            RunnerState      `json:"state"`
	Index            int              `json:"index"` // 1-based
	Total            int              `json:"total"`
	Answered         int              `json:"answered"`
	RemainingSeconds int              `json:"remaining_seconds"`
	Clock            string           `json:"clock"` // mm:ss
	CalculatorOpen   bool             `json:"calculator_open"`
	NotesOpen        bool             `json:"notes_open"`
	Question         QuestionView     `json:"question"`
	Navigator        []NavigatorEntry `json:"navigator"`
}

// View produces a consistent snapshot of the session.
func (r *Runner) View() RunnerView {
	r.mu.Lock()
	defer r.mu.Unlock()

	attempt := r.attempt.Attempt()
	current := attempt.CurrentIndex
	q := &r.paper.Questions[current]
	remaining := Remaining(r.deadline, r.now())

	view := RunnerView{
		SessionID:        r.id,
		PaperID:          r.paper.ID,
		Title:            r.paper.Title,
		Code:             r.paper.Code,
		State:            r.state,
		Index:            current + 1,
		Total:            len(r.paper.Questions),
		Answered:         attempt.AnsweredCount(),
		RemainingSeconds: remaining,
		Clock:            FormatClock(remaining),
		CalculatorOpen:   r.calculatorOpen,
		NotesOpen:        r.notesOpen,
		Question: QuestionView{
			ID:       q.ID,
			Type:     q.Type,
			Stem:     q.Stem,
			Marks:    q.Marks,
			Selected: append([]string(nil), attempt.Selection(q.ID)...),
			Flagged:  attempt.Flags[q.ID],
		},
	}
	for i := range q.Options {
		view.Question.Options = append(view.Question.Options, OptionView{
			ID:   q.Options[i].ID,
			Text: q.Options[i].Text,
		})
	}

	view.Navigator = make([]NavigatorEntry, len(r.paper.Questions))
	for i := range r.paper.Questions {
		qq := &r.paper.Questions[i]
		view.Navigator[i] = NavigatorEntry{
			Number:   i + 1,
			ID:       qq.ID,
			Answered: len(attempt.Selection(qq.ID)) > 0,
			Flagged:  attempt.Flags[qq.ID],
			Current:  i == current,
		}
	}
	return view
}
