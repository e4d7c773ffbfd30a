package client

import (
	"context"

	"github.com/kjstillabower/agri-advisor/internal/observability"
)

func withCorrelation(ctx context.Context, id string) context.Context {
	return observability.WithCorrelationID(ctx, id)
}
