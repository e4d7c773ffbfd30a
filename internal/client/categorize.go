package client

import (
	"context"
	"errors"
	"strings"

	"github.com/kjstillabower/agri-advisor/internal/circuitbreaker"
)

// ErrorKind is a stable classification of gateway failures. It is used in
// error markers, metrics labels and pipeline branching.
type ErrorKind string

const (
	KindConfig      ErrorKind = "config"
	KindAuth        ErrorKind = "auth"
	KindNotFound    ErrorKind = "not_found"
	KindRateLimited ErrorKind = "rate_limited"
	KindRejected    ErrorKind = "rejected"
	KindUpstream    ErrorKind = "upstream"
	KindTimeout     ErrorKind = "timeout"
	KindTransport   ErrorKind = "transport"
	KindParse       ErrorKind = "parse"
	KindCircuitOpen ErrorKind = "circuit_open"
	KindUnknown     ErrorKind = "unknown"
)

// CategorizeError maps an error to a stable ErrorKind.
func CategorizeError(err error) ErrorKind {
	if err == nil {
		return ""
	}

	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr.Kind
	}

	switch {
	case errors.Is(err, ErrMissingCredential):
		return KindConfig
	case errors.Is(err, circuitbreaker.ErrOpen):
		return KindCircuitOpen
	case errors.Is(err, ErrInvalidAPIKey):
		return KindAuth
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrRateLimited):
		return KindRateLimited
	case errors.Is(err, ErrRequestRejected):
		return KindRejected
	case errors.Is(err, ErrUpstreamFailure):
		return KindUpstream
	case errors.Is(err, ErrParse):
		return KindParse
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return KindTimeout
	}

	errStr := err.Error()
	if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded") {
		return KindTimeout
	}
	if strings.Contains(errStr, "connection") || strings.Contains(errStr, "network") ||
		strings.Contains(errStr, "http request failed") || strings.Contains(errStr, "no such host") {
		return KindTransport
	}
	if strings.Contains(errStr, "unmarshal") || strings.Contains(errStr, "invalid character") {
		return KindParse
	}
	return KindUnknown
}
