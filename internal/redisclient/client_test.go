package redisclient

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/ncecere/holy_coop/backend/internal/config"
)

func TestOpenParsesURLAndPings(t *testing.T) {
	server := miniredis.RunT(t)
	client, err := Open(context.Background(), config.RedisConfig{URL: "redis://" + server.Addr() + "/0", PoolSize: 4})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer client.Close()
	if err := client.Set(context.Background(), "k", "v", 0).Err(); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got, _ := server.Get("k"); got != "v" {
		t.Fatalf("unexpected stored value %q", got)
	}
}

func TestOpenAcceptsBareAddress(t *testing.T) {
	server := miniredis.RunT(t)
	client, err := Open(context.Background(), config.RedisConfig{URL: server.Addr()})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_ = client.Close()
}

func TestOpenWithoutURLReturnsNil(t *testing.T) {
	client, err := Open(context.Background(), config.RedisConfig{})
	if err != nil || client != nil {
		t.Fatalf("expected nil client without url, got %v (%v)", client, err)
	}
}

func TestOpenFailsWhenUnreachable(t *testing.T) {
	server := miniredis.RunT(t)
	addr := server.Addr()
	server.Close()
	if _, err := Open(context.Background(), config.RedisConfig{URL: "redis://" + addr}); err == nil {
		t.Fatalf("expected ping failure")
	}
}
