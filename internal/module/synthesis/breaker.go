package synthesis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/restyle/server/internal/utils/metrics"
	"github.com/sony/gobreaker/v2"
)

// BreakerConfig holds circuit breaker configuration.
type BreakerConfig struct {
	FailureThreshold uint32
	Timeout          time.Duration
}

// DefaultBreakerConfig returns the default breaker configuration.
func DefaultBreakerConfig() *BreakerConfig {
	return &BreakerConfig{
		FailureThreshold: 5,
		Timeout:          60 * time.Second,
	}
}

// Breaker wraps a Synthesizer with a circuit breaker so a dead provider
// fails fast instead of tying up request handlers for the full timeout.
type Breaker struct {
	inner Synthesizer
	cb    *gobreaker.CircuitBreaker[*Image]
}

// NewBreaker wraps the given synthesizer. metrics may be nil.
func NewBreaker(inner Synthesizer, cfg *BreakerConfig, m *metrics.Metrics) *Breaker {
	if cfg == nil {
		cfg = DefaultBreakerConfig()
	}

	settings := gobreaker.Settings{
		Name:    inner.Name(),
		Timeout: cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		// Policy refusals and empty responses are provider answers, not
		// provider failures; they must not open the circuit.
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, ErrContentBlocked) ||
				errors.Is(err, ErrNoImage)
		},
	}
	if m != nil {
		name := inner.Name()
		settings.OnStateChange = func(_ string, _ gobreaker.State, to gobreaker.State) {
			m.SetProviderHealth(name, to == gobreaker.StateClosed)
		}
	}

	return &Breaker{
		inner: inner,
		cb:    gobreaker.NewCircuitBreaker[*Image](settings),
	}
}

// Name returns the wrapped provider name.
func (b *Breaker) Name() string {
	return b.inner.Name()
}

// Synthesize executes the wrapped call through the circuit breaker.
func (b *Breaker) Synthesize(ctx context.Context, req *Request) (*Image, error) {
	img, err := b.cb.Execute(func() (*Image, error) {
		return b.inner.Synthesize(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("provider %s unavailable: %w", b.inner.Name(), err)
		}
		return nil, err
	}
	return img, nil
}

// Compile-time check
var _ Synthesizer = (*Breaker)(nil)
