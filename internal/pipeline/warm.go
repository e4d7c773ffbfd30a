package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const warmConcurrency = 4

// Warm answers each query once so later identical requests hit the cache.
// Queries that end in an error response are reported together.
func (o *Orchestrator) Warm(ctx context.Context, queries []string) error {
	if len(queries) == 0 {
		return nil
	}
	start := time.Now()
	logger := o.deps.Logger
	logger.Info("warming cache", zap.Int("queries", len(queries)))

	errs := make([]error, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(warmConcurrency)
	for i, q := range queries {
		i, q := i, q
		g.Go(func() error {
			res := o.Answer(gctx, q)
			if res.Response.Error != "" {
				errs[i] = fmt.Errorf("warm %q: %s", q, res.Response.Error)
			}
			return nil
		})
	}
	_ = g.Wait()

	var result *multierror.Error
	failed := 0
	for _, err := range errs {
		if err != nil {
			result = multierror.Append(result, err)
			failed++
		}
	}
	logger.Info("cache warming complete",
		zap.Int("queries", len(queries)),
		zap.Int("errors", failed),
		zap.Float64("duration_seconds", time.Since(start).Seconds()),
	)
	return result.ErrorOrNil()
}
