package cache

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestIdempotencyCacheRoundTripAndExpiry(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()

	cache := NewIdempotencyCache(client, time.Minute)
	ctx := context.Background()
	if err := cache.Set(ctx, "abc", []byte(`{"id":"1"}`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, ok := cache.Get(ctx, "abc")
	if !ok || string(got) != `{"id":"1"}` {
		t.Fatalf("expected cached body, got %q (%v)", got, ok)
	}
	if ttl := server.TTL("composer:idem:abc"); ttl != time.Minute {
		t.Fatalf("unexpected ttl %s", ttl)
	}
	server.FastForward(2 * time.Minute)
	if _, ok := cache.Get(ctx, "abc"); ok {
		t.Fatalf("entry should expire")
	}
}

func TestIdempotencyCacheWithoutClient(t *testing.T) {
	cache := NewIdempotencyCache(nil, 0)
	if cache.Enabled() {
		t.Fatalf("cache without client must be disabled")
	}
	if err := cache.Set(context.Background(), "k", []byte("v")); err != nil {
		t.Fatalf("disabled set should be a no-op: %v", err)
	}
	if _, ok := cache.Get(context.Background(), "k"); ok {
		t.Fatalf("disabled cache should miss")
	}
}
