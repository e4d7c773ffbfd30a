// Package llm holds the language model providers used to compose answers.
package llm

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/agri-advisor/internal/circuitbreaker"
	"github.com/kjstillabower/agri-advisor/internal/observability"
)

var (
	ErrNotConfigured   = errors.New("model provider not configured")
	ErrEmptyCompletion = errors.New("empty completion")
)

// Generator turns a prompt into text. Name is the label reported to callers
// as the answer source.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Name() string
}

// Options configures one provider.
type Options struct {
	Label       string
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

func (o Options) timeout() time.Duration {
	if o.Timeout <= 0 {
		return 30 * time.Second
	}
	return o.Timeout
}

// guarded adds a circuit breaker, metrics and logging around a Generator.
type guarded struct {
	next    Generator
	role    string
	breaker *circuitbreaker.CircuitBreaker
	logger  *zap.Logger
}

// Guard wraps g. role labels metrics ("primary", "fallback", "guide"); a nil
// breaker admits every call.
func Guard(g Generator, role string, breaker *circuitbreaker.CircuitBreaker, logger *zap.Logger) Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &guarded{next: g, role: role, breaker: breaker, logger: logger}
}

func (g *guarded) Name() string { return g.next.Name() }

func (g *guarded) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	var out string
	err := g.breaker.Call(ctx, func(ctx context.Context) error {
		var err error
		out, err = g.next.Generate(ctx, prompt)
		return err
	})
	observability.LLMDuration.WithLabelValues(g.role).Observe(time.Since(start).Seconds())

	outcome := "success"
	switch {
	case errors.Is(err, circuitbreaker.ErrOpen):
		outcome = "circuit_open"
	case errors.Is(err, ErrNotConfigured):
		outcome = "not_configured"
	case err != nil:
		outcome = "error"
	}
	observability.LLMCallsTotal.WithLabelValues(g.role, outcome).Inc()

	if err != nil {
		observability.LoggerFromContext(ctx, g.logger).Warn("model call failed",
			zap.String("role", g.role),
			zap.String("model", g.next.Name()),
			zap.Error(err),
		)
		return "", err
	}
	return out, nil
}

// BreakerFailure reports whether err should count against a model breaker.
// A missing key is a configuration problem, not provider health.
func BreakerFailure(err error) bool {
	return err != nil && !errors.Is(err, ErrNotConfigured)
}
