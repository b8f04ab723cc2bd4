package redisstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/agrisetu/go-agriclient/core"
)

func newRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set; skipping redis integration test")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() {
		client.Close()
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("redis ping failed: %v", err)
	}
	return client
}

func TestTokenStoreRoundTrip(t *testing.T) {
	client := newRedisClient(t)
	ctx := context.Background()

	store, err := NewTokenStore(client, "test-session", WithKeyPrefix("agriclient-test:token:"))
	if err != nil {
		t.Fatalf("new token store: %v", err)
	}
	t.Cleanup(func() {
		store.Clear(ctx)
	})

	if _, err := store.Get(ctx); err != core.ErrNoCredential {
		t.Fatalf("expected ErrNoCredential on empty store, got %v", err)
	}

	expiresAt := time.Now().UTC().Add(time.Hour).Truncate(time.Second)
	saved := core.Credential{
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresAt:    &expiresAt,
	}
	if err := store.Save(ctx, saved); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.Get(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.AccessToken != saved.AccessToken || got.RefreshToken != saved.RefreshToken {
		t.Fatalf("unexpected credential: %+v", got)
	}
	if got.ExpiresAt == nil || !got.ExpiresAt.Equal(expiresAt) {
		t.Fatalf("unexpected expiry: %v", got.ExpiresAt)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := store.Get(ctx); err != core.ErrNoCredential {
		t.Fatalf("expected ErrNoCredential after clear, got %v", err)
	}
}

func TestTokenStoreTTL(t *testing.T) {
	client := newRedisClient(t)
	ctx := context.Background()

	store, err := NewTokenStore(client, "ttl-session",
		WithKeyPrefix("agriclient-test:token:"),
		WithTTL(time.Hour),
	)
	if err != nil {
		t.Fatalf("new token store: %v", err)
	}
	t.Cleanup(func() {
		store.Clear(ctx)
	})

	if err := store.Save(ctx, core.Credential{AccessToken: "access"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	ttl, err := client.TTL(ctx, "agriclient-test:token:ttl-session").Result()
	if err != nil {
		t.Fatalf("ttl: %v", err)
	}
	if ttl <= 0 || ttl > time.Hour {
		t.Fatalf("expected bounded ttl, got %v", ttl)
	}
}

func TestTokenStoreValidation(t *testing.T) {
	if _, err := NewTokenStore(nil, "session"); err == nil {
		t.Fatalf("expected error for nil client")
	}
	if _, err := NewTokenStore(redis.NewClient(&redis.Options{}), "  "); err == nil {
		t.Fatalf("expected error for blank session key")
	}
}
