package synthesis

import (
	"fmt"

	"github.com/restyle/server/internal/shared/config"
	"github.com/restyle/server/internal/utils/metrics"
)

// NewFromConfig builds the configured provider client wrapped in a circuit
// breaker. metrics may be nil.
func NewFromConfig(cfg *config.SynthesisConfig, m *metrics.Metrics) (Synthesizer, error) {
	var inner Synthesizer

	switch cfg.Provider {
	case "gemini":
		inner = NewGeminiClient(&GeminiConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.RequestTimeout,
		})
	case "openai":
		inner = NewOpenAIClient(&OpenAIConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.RequestTimeout,
		})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}

	breakerCfg := DefaultBreakerConfig()
	if cfg.FailureThreshold > 0 {
		breakerCfg.FailureThreshold = cfg.FailureThreshold
	}
	if cfg.CircuitTimeout > 0 {
		breakerCfg.Timeout = cfg.CircuitTimeout
	}

	return NewBreaker(inner, breakerCfg, m), nil
}
