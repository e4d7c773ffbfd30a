//go:build integration
// +build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/kjstillabower/agri-advisor/internal/testhelpers"
)

// TestMemcachedStore_GetSet_Integration verifies that MemcachedStore successfully
// stores and retrieves values when memcached server is available.
func TestMemcachedStore_GetSet_Integration(t *testing.T) {
	c, err := NewMemcachedStore(testhelpers.MemcachedAddr(), 500*time.Millisecond, 2)
	if err != nil {
		t.Fatalf("NewMemcachedStore() error = %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	if err := c.Set(ctx, "integration-k1", []byte("payload"), time.Minute); err != nil {
		t.Skipf("Set failed (memcached may not be running): %v", err)
	}

	got, ok, err := c.Get(ctx, "integration-k1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !ok || string(got) != "payload" {
		t.Errorf("Get() = %q, %v; want payload, true", got, ok)
	}
}

// TestMemcachedStore_Get_Miss_Integration verifies that MemcachedStore returns
// ok=false when requested key does not exist in memcached.
func TestMemcachedStore_Get_Miss_Integration(t *testing.T) {
	c, err := NewMemcachedStore(testhelpers.MemcachedAddr(), 500*time.Millisecond, 2)
	if err != nil {
		t.Fatalf("NewMemcachedStore() error = %v", err)
	}
	defer c.Close()

	_, ok, err := c.Get(context.Background(), "nonexistent")
	if err != nil {
		t.Skipf("Get failed (memcached may not be running): %v", err)
	}
	if ok {
		t.Error("Get() ok = true, want false for miss")
	}
}

// TestRedisStore_GetSet_Integration verifies the redis backend round trip and TTL.
func TestRedisStore_GetSet_Integration(t *testing.T) {
	s, _ := NewRedisStore(testhelpers.RedisAddr(), "", 0, 500*time.Millisecond)
	defer s.Close()

	ctx := context.Background()
	if err := s.Ping(ctx); err != nil {
		t.Skipf("redis not reachable: %v", err)
	}
	if err := s.Set(ctx, "integration-k1", []byte("payload"), time.Second); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, ok, err := s.Get(ctx, "integration-k1")
	if err != nil || !ok || string(got) != "payload" {
		t.Fatalf("Get() = %q, %v, %v", got, ok, err)
	}

	time.Sleep(1500 * time.Millisecond)
	if _, ok, _ := s.Get(ctx, "integration-k1"); ok {
		t.Error("Get() after TTL ok = true, want false")
	}
}
