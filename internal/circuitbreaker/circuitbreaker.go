package circuitbreaker

import (
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Settings tunes a breaker. Zero values fall back to the defaults below.
type Settings struct {
	// ConsecutiveFailures trips the breaker.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration
}

const (
	defaultConsecutiveFailures = 5
	defaultOpenTimeout         = 30 * time.Second
)

// New returns a breaker for calls to an external dependency. State changes
// are logged.
func New[T any](name string, s Settings, logger *slog.Logger) *gobreaker.CircuitBreaker[T] {
	failures := s.ConsecutiveFailures
	if failures == 0 {
		failures = defaultConsecutiveFailures
	}
	timeout := s.OpenTimeout
	if timeout == 0 {
		timeout = defaultOpenTimeout
	}

	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
}
