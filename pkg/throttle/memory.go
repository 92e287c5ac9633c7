package throttle

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// MemoryThrottle keeps the last execution time per project in process
// memory. Construct one per process and share it.
type MemoryThrottle struct {
	mu       sync.Mutex
	clock    clockwork.Clock
	cooldown time.Duration
	last     map[string]time.Time
}

// NewMemoryThrottle returns a throttle using the given cooldown and clock.
// A nil clock means wall-clock time.
func NewMemoryThrottle(cooldown time.Duration, clock clockwork.Clock) *MemoryThrottle {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &MemoryThrottle{
		clock:    clock,
		cooldown: cooldownOrDefault(cooldown),
		last:     make(map[string]time.Time),
	}
}

// ShouldThrottle reports whether the project ran within the cooldown
// window. When it did not, the current time is recorded before returning.
func (t *MemoryThrottle) ShouldThrottle(_ context.Context, projectID string) (bool, error) {
	if projectID == "" {
		return false, ErrEmptyProjectID
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock.Now()

	if last, ok := t.last[projectID]; ok && now.Sub(last) < t.cooldown {
		return true, nil
	}

	t.last[projectID] = now

	return false, nil
}

// MarkExecuted records the current time for the project unconditionally.
func (t *MemoryThrottle) MarkExecuted(_ context.Context, projectID string) error {
	if projectID == "" {
		return ErrEmptyProjectID
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.last[projectID] = t.clock.Now()

	return nil
}

// Prune drops entries whose window has already elapsed.
func (t *MemoryThrottle) Prune() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock.Now()
	pruned := 0

	for projectID, last := range t.last {
		if now.Sub(last) >= t.cooldown {
			delete(t.last, projectID)

			pruned++
		}
	}

	return pruned
}
