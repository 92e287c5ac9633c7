// Package throttle suppresses repeated executions for the same project
// within a cooldown window.
package throttle

import (
	"errors"
	"time"
)

// DefaultCooldown is the window used when none is configured.
const DefaultCooldown = 5 * time.Second

var ErrEmptyProjectID = errors.New("project id is required")

func cooldownOrDefault(cooldown time.Duration) time.Duration {
	if cooldown <= 0 {
		return DefaultCooldown
	}

	return cooldown
}
