package client

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/kjstillabower/agri-advisor/internal/circuitbreaker"
)

// TestCategorizeError verifies that CategorizeError maps errors to the correct
// ErrorKind, including sentinel errors, wrapped errors, and message heuristics.
func TestCategorizeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, ""},
		{"missing credential", fmt.Errorf("%w: geoapify", ErrMissingCredential), KindConfig},
		{"circuit open", fmt.Errorf("openweather: %w", circuitbreaker.ErrOpen), KindCircuitOpen},
		{"invalid API key", ErrInvalidAPIKey, KindAuth},
		{"wrapped not found", fmt.Errorf("lookup: %w", ErrNotFound), KindNotFound},
		{"rate limited", ErrRateLimited, KindRateLimited},
		{"rejected", ErrRequestRejected, KindRejected},
		{"upstream", fmt.Errorf("%w: HTTP 502", ErrUpstreamFailure), KindUpstream},
		{"parse", fmt.Errorf("%w: bad json", ErrParse), KindParse},
		{"deadline", fmt.Errorf("request timeout: %w", context.DeadlineExceeded), KindTimeout},
		{"timeout in message", errors.New("i/o timeout"), KindTimeout},
		{"connection refused", errors.New("dial tcp: connection refused"), KindTransport},
		{"gateway error keeps kind", &GatewayError{Kind: KindAuth, Detail: "x"}, KindAuth},
		{"unknown", errors.New("something else"), KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CategorizeError(tt.err); got != tt.want {
				t.Errorf("CategorizeError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBreakerFailure(t *testing.T) {
	if BreakerFailure(fmt.Errorf("%w: HTTP 404", ErrNotFound)) {
		t.Error("BreakerFailure(not found) = true, want false")
	}
	if !BreakerFailure(fmt.Errorf("%w: HTTP 503", ErrUpstreamFailure)) {
		t.Error("BreakerFailure(upstream) = false, want true")
	}
}
