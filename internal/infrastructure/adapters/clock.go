package adapters

import (
	"time"

	"github.com/opencustomize/opencustomize/internal/domain"
)

// SystemClock provides current time using the system clock.
type SystemClock struct{}

// NewSystemClock creates a new system clock adapter.
func NewSystemClock() domain.Clock {
	return &SystemClock{}
}

// Now returns the current time.
func (c *SystemClock) Now() time.Time {
	return time.Now()
}

// Ensure SystemClock implements Clock.
var _ domain.Clock = (*SystemClock)(nil)
