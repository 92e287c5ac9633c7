package cmd

import (
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/dukex/taskflow/pkg/engine"
	"github.com/dukex/taskflow/pkg/throttle"
)

// NewThrottle returns a redis throttle when url is set, otherwise a
// process-local one.
func NewThrottle(url string, cooldown time.Duration) engine.Throttle {
	if url == "" {
		return throttle.NewMemoryThrottle(cooldown, clockwork.NewRealClock())
	}

	t, err := throttle.NewRedisThrottleFromURL(url, cooldown)
	if err != nil {
		panic(fmt.Errorf("failed to create redis throttle: %w", err))
	}

	return t
}
