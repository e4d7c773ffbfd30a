// Package composer turns retrieved context and gateway data into the final
// answer text: template answers for pure location and weather queries,
// otherwise a primary model call with one fallback level.
package composer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kjstillabower/agri-advisor/internal/llm"
	"github.com/kjstillabower/agri-advisor/internal/observability"
)

// DefaultMaxWords caps model answers.
const DefaultMaxWords = 150

// Answer paths, used as metric labels.
const (
	PathRefusal  = "refusal"
	PathTemplate = "template"
	PathPrimary  = "primary"
	PathFallback = "fallback"
	PathError    = "error"
)

var ErrGenerationFailed = errors.New("answer generation failed")

// Answer is the composed text and the label of what produced it.
type Answer struct {
	Text   string
	Source string
	Path   string
}

// Options tunes the quality gate and post-processing.
type Options struct {
	MaxWords          int
	RejectLongAnswers bool
}

// Composer runs primary generation, the quality gate, fallback generation
// and post-processing.
type Composer struct {
	primary  llm.Generator
	fallback llm.Generator
	opts     Options
	logger   *zap.Logger
}

// New returns a Composer. fallback may be nil, in which case a poor primary
// answer is kept and a failed primary call is an error.
func New(primary, fallback llm.Generator, opts Options, logger *zap.Logger) *Composer {
	if opts.MaxWords <= 0 {
		opts.MaxWords = DefaultMaxWords
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Composer{primary: primary, fallback: fallback, opts: opts, logger: logger}
}

// Compose generates the answer for in.
func (c *Composer) Compose(ctx context.Context, in PromptInput) (Answer, error) {
	logger := observability.LoggerFromContext(ctx, c.logger)
	prompt := BuildPrompt(in, c.opts.MaxWords)

	reason := ""
	if c.primary != nil {
		text, err := c.primary.Generate(ctx, prompt)
		switch {
		case err != nil:
			reason = "primary_error"
			logger.Info("primary model failed, using fallback", zap.Error(err))
		case IsPoor(text, c.opts.MaxWords, c.opts.RejectLongAnswers):
			reason = "poor_answer"
			logger.Info("primary answer failed quality gate, using fallback",
				zap.Int("words", len(strings.Fields(text))))
			if c.fallback == nil {
				return c.accept(text, c.primary.Name(), PathPrimary), nil
			}
		default:
			return c.accept(text, c.primary.Name(), PathPrimary), nil
		}
	} else {
		reason = "primary_missing"
	}

	if c.fallback == nil {
		return Answer{}, fmt.Errorf("%w: no fallback model configured", ErrGenerationFailed)
	}
	observability.LLMFallbackTotal.WithLabelValues(reason).Inc()

	text, err := c.fallback.Generate(ctx, prompt)
	if err != nil {
		return Answer{}, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	return c.accept(text, c.fallback.Name()+" (Fallback)", PathFallback), nil
}

func (c *Composer) accept(text, source, path string) Answer {
	return Answer{
		Text:   PostProcess(text, c.opts.MaxWords),
		Source: source,
		Path:   path,
	}
}
