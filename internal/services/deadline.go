package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/prepdeck/cbe-service/internal/store"
)

// DeadlineCoordinator owns the single wall-clock deadline shared by every
// session of a paper. The deadline lives in the persistent store as epoch
// milliseconds; all sessions converge on the same value, last writer wins.
type DeadlineCoordinator struct {
	kv     store.KV
	logger *slog.Logger
	now    func() time.Time
}

func NewDeadlineCoordinator(kv store.KV, logger *slog.Logger) *DeadlineCoordinator {
	return &DeadlineCoordinator{kv: kv, logger: logger, now: time.Now}
}

// WithClock overrides the wall clock (tests).
func (d *DeadlineCoordinator) WithClock(now func() time.Time) *DeadlineCoordinator {
	d.now = now
	return d
}

// Establish returns the persisted deadline for the paper if one exists,
// otherwise computes now + duration, persists it and returns it. A persisted
// value that fails to parse is replaced with a fresh deadline; that recovery
// is local and never surfaced.
func (d *DeadlineCoordinator) Establish(ctx context.Context, paperID string, durationMinutes int) (int64, error) {
	key := store.DeadlineKey(paperID)

	raw, ok, err := d.kv.Get(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("failed to read deadline: %w", err)
	}
	if ok {
		deadline, perr := ParseDeadline(raw)
		if perr == nil {
			return deadline, nil
		}
		d.logger.Warn("Malformed persisted deadline, recomputing",
			"paper_id", paperID,
			"raw", raw,
			"error", perr)
	}

	deadline := d.now().UnixMilli() + int64(durationMinutes)*60_000
	if err := d.kv.Set(ctx, key, strconv.FormatInt(deadline, 10)); err != nil {
		return 0, fmt.Errorf("failed to persist deadline: %w", err)
	}

	d.logger.Info("Established attempt deadline",
		"paper_id", paperID,
		"deadline_ms", deadline,
		"duration_min", durationMinutes)

	return deadline, nil
}

// Clear removes the persisted deadline. Called once on submit; the removal
// also tells sibling sessions the attempt is over.
func (d *DeadlineCoordinator) Clear(ctx context.Context, paperID string) error {
	if err := d.kv.Delete(ctx, store.DeadlineKey(paperID)); err != nil {
		return fmt.Errorf("failed to clear deadline: %w", err)
	}
	return nil
}

// Remaining returns whole seconds until the deadline, floored at zero. Pure
// in its inputs so every tick recomputes from the shared deadline and drift
// across sessions self-corrects.
func Remaining(deadlineMillis int64, now time.Time) int {
	remaining := (deadlineMillis - now.UnixMilli()) / 1000
	if remaining < 0 {
		return 0
	}
	return int(remaining)
}

// ParseDeadline parses a persisted deadline value.
func ParseDeadline(raw string) (int64, error) {
	deadline, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid deadline %q: %w", raw, err)
	}
	return deadline, nil
}

// FormatClock renders seconds as mm:ss for the toolbar countdown.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
