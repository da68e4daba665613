package rxnorm

import (
	"errors"
	"time"

	"github.com/absorpgen/absorpgen-api/logging"
	"github.com/absorpgen/absorpgen-api/metrics"
	"github.com/sony/gobreaker"
)

// State represents the circuit breaker state
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
)

// BreakerConfig holds circuit breaker configuration
type BreakerConfig struct {
	// MaxRequests is max requests allowed in half-open state
	MaxRequests uint32
	// Interval is the cyclic period for clearing counts in closed state
	Interval time.Duration
	// Timeout is how long to wait before transitioning from open to half-open
	Timeout time.Duration
	// FailureThreshold is the number of consecutive failures before opening
	FailureThreshold uint32
}

// DefaultBreakerConfig opens after three consecutive failures
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      1,
		Interval:         60 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 3,
	}
}

func newBreaker(cfg BreakerConfig) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "rxnorm",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logging.Warn("circuit breaker state changed",
				"breaker", name,
				"from", string(mapState(from)),
				"to", string(mapState(to)))
			metrics.RxNormBreakerState.Set(stateGaugeValue(to))
		},
		IsSuccessful: func(err error) bool {
			// 4xx responses other than 429 do not count as failures,
			// nor do local throttling and callers that went away
			var done *callerDoneError
			return err == nil ||
				isClientError(err) ||
				errors.Is(err, ErrRateLimited) ||
				errors.As(err, &done)
		},
	})
}

// mapState converts gobreaker.State to our State type
func mapState(s gobreaker.State) State {
	switch s {
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateClosed
	}
}

func stateGaugeValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
