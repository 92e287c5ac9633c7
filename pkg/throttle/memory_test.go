package throttle

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryThrottle_Window(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	throttle := NewMemoryThrottle(5*time.Second, clock)

	first, err := throttle.ShouldThrottle(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, first)

	clock.Advance(2 * time.Second)

	second, err := throttle.ShouldThrottle(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, second)

	clock.Advance(5 * time.Second)

	third, err := throttle.ShouldThrottle(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, third)
}

func TestMemoryThrottle_PerProject(t *testing.T) {
	ctx := context.Background()
	throttle := NewMemoryThrottle(time.Minute, clockwork.NewFakeClock())

	throttled, err := throttle.ShouldThrottle(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, throttled)

	throttled, err = throttle.ShouldThrottle(ctx, "p2")
	require.NoError(t, err)
	assert.False(t, throttled)
}

func TestMemoryThrottle_MarkExecuted(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	throttle := NewMemoryThrottle(5*time.Second, clock)

	require.NoError(t, throttle.MarkExecuted(ctx, "p1"))

	throttled, err := throttle.ShouldThrottle(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, throttled)

	clock.Advance(4 * time.Second)
	require.NoError(t, throttle.MarkExecuted(ctx, "p1"))
	clock.Advance(4 * time.Second)

	throttled, err = throttle.ShouldThrottle(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, throttled)
}

func TestMemoryThrottle_DefaultCooldown(t *testing.T) {
	throttle := NewMemoryThrottle(0, nil)

	assert.Equal(t, DefaultCooldown, throttle.cooldown)
}

func TestMemoryThrottle_EmptyProjectID(t *testing.T) {
	throttle := NewMemoryThrottle(time.Second, clockwork.NewFakeClock())

	_, err := throttle.ShouldThrottle(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyProjectID)
	assert.ErrorIs(t, throttle.MarkExecuted(context.Background(), ""), ErrEmptyProjectID)
}

func TestMemoryThrottle_ConcurrentCallersAdmitOne(t *testing.T) {
	throttle := NewMemoryThrottle(time.Minute, clockwork.NewFakeClock())

	var admitted atomic.Int32

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			throttled, err := throttle.ShouldThrottle(context.Background(), "p1")
			if err == nil && !throttled {
				admitted.Add(1)
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, int32(1), admitted.Load())
}

func TestMemoryThrottle_Prune(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	throttle := NewMemoryThrottle(5*time.Second, clock)

	_, _ = throttle.ShouldThrottle(ctx, "p1")
	clock.Advance(3 * time.Second)
	_, _ = throttle.ShouldThrottle(ctx, "p2")
	clock.Advance(3 * time.Second)

	assert.Equal(t, 1, throttle.Prune())
	assert.Len(t, throttle.last, 1)
}
