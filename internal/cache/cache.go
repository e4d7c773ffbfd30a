// Package cache stores serialized response payloads keyed by a content hash.
// Backends are swappable; a miss or an error never changes the answer, only
// the cost of producing it.
package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// DefaultTTL is the expiry window for response entries.
const DefaultTTL = 24 * time.Hour

// Backend names accepted by New.
const (
	BackendInMemory  = "in_memory"
	BackendFile      = "file"
	BackendMemcached = "memcached"
	BackendRedis     = "redis"
	BackendNone      = "none"
)

var ErrUnknownBackend = errors.New("unknown cache backend")

// Store is a key-value store for opaque payloads with a per-entry TTL.
// Get returns (value, true, nil) on hit and (nil, false, nil) on miss or
// expiry; expired entries are removed on read.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Pinger is implemented by stores that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Closer is implemented by stores holding connections.
type Closer interface {
	Close() error
}

// Key derives the cache key for a query from the query text, the resolved
// city and the current temperature. temperature is nil when no weather was
// available. The same inputs always produce the same key.
func Key(query, city string, temperature *float64) string {
	temp := ""
	if temperature != nil {
		temp = strconv.FormatFloat(*temperature, 'f', -1, 64)
	}
	sum := md5.Sum([]byte(query + "_" + city + "_" + temp))
	return hex.EncodeToString(sum[:])
}

// Options selects and configures a backend.
type Options struct {
	Backend string
	TTL     time.Duration

	LRUSize int
	Dir     string

	MemcachedAddrs        string
	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTimeout  time.Duration
}

// New builds the configured backend wrapped with lookup metrics. Backend
// "none" returns a nil Store; callers treat nil as caching disabled.
func New(opts Options) (Store, error) {
	var (
		s   Store
		err error
	)
	switch opts.Backend {
	case "", BackendInMemory:
		s, err = NewInMemoryStore(opts.LRUSize)
	case BackendFile:
		s, err = NewFileStore(opts.Dir)
	case BackendMemcached:
		s, err = NewMemcachedStore(opts.MemcachedAddrs, opts.MemcachedTimeout, opts.MemcachedMaxIdleConns)
	case BackendRedis:
		s, err = NewRedisStore(opts.RedisAddr, opts.RedisPassword, opts.RedisDB, opts.RedisTimeout)
	case BackendNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
	if err != nil {
		return nil, err
	}
	backend := opts.Backend
	if backend == "" {
		backend = BackendInMemory
	}
	return Instrument(backend, s), nil
}
