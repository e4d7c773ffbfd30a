package client

import "fmt"

// GatewayError is the error marker carried by a failed Result.
type GatewayError struct {
	Kind   ErrorKind
	Detail string
	Err    error
}

func (e *GatewayError) Error() string {
	return e.Detail
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// Result is either a Value or an Err, never both.
type Result[T any] struct {
	Value T
	Err   *GatewayError
}

// OK reports whether the call succeeded.
func (r Result[T]) OK() bool {
	return r.Err == nil
}

// Kind returns the failure kind, or "" on success.
func (r Result[T]) Kind() ErrorKind {
	if r.Err == nil {
		return ""
	}
	return r.Err.Kind
}

func ok[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

// fail builds a failed Result. prefix is prepended to the error text to form
// the user-facing detail, e.g. "Failed to detect location".
func fail[T any](prefix string, err error) Result[T] {
	return Result[T]{Err: &GatewayError{
		Kind:   CategorizeError(err),
		Detail: fmt.Sprintf("%s: %v", prefix, err),
		Err:    err,
	}}
}

func missingCredential[T any](provider string) Result[T] {
	err := fmt.Errorf("%w: %s API key not configured", ErrMissingCredential, provider)
	return Result[T]{Err: &GatewayError{Kind: KindConfig, Detail: err.Error(), Err: err}}
}
