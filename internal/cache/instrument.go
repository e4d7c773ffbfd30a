package cache

import (
	"context"
	"time"

	"github.com/kjstillabower/agri-advisor/internal/observability"
)

// instrumented records hit/miss/error counts for the wrapped store.
type instrumented struct {
	backend string
	next    Store
}

// Instrument wraps s so every Get is counted in the cache lookup metric.
func Instrument(backend string, s Store) Store {
	return &instrumented{backend: backend, next: s}
}

func (i *instrumented) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, ok, err := i.next.Get(ctx, key)
	result := "miss"
	switch {
	case err != nil:
		result = "error"
	case ok:
		result = "hit"
	}
	observability.CacheLookupsTotal.WithLabelValues(i.backend, result).Inc()
	return v, ok, err
}

func (i *instrumented) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return i.next.Set(ctx, key, value, ttl)
}

// Ping forwards to the wrapped store when it supports it.
func (i *instrumented) Ping(ctx context.Context) error {
	if p, ok := i.next.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close forwards to the wrapped store when it holds connections.
func (i *instrumented) Close() error {
	if c, ok := i.next.(Closer); ok {
		return c.Close()
	}
	return nil
}
