// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// testValkeyClient returns a Redis client for tests.
// Skips if Valkey is unavailable.
func testValkeyClient(t *testing.T) *redis.Client {
	t.Helper()

	host := envOr("VALKEY_HOST", "localhost")
	port := envOr("VALKEY_PORT", "6379")
	password := os.Getenv("VALKEY_PASSWORD")

	client := redis.NewClient(&redis.Options{
		Addr:     host + ":" + port,
		Password: password,
		DB:       15, // Use DB 15 for tests.
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("skipping integration test: Valkey not reachable: %v", err)
	}

	t.Cleanup(func() {
		keys, _ := client.Keys(ctx, pageKeyPrefix+"*").Result()
		if len(keys) > 0 {
			client.Del(ctx, keys...)
		}
		client.Close()
	})

	return client
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func TestConnectValkey(t *testing.T) {
	host := envOr("VALKEY_HOST", "localhost")
	port := envOr("VALKEY_PORT", "6379")

	client, err := ConnectValkey(host, port, "")
	if err != nil {
		t.Skipf("skipping: Valkey not available: %v", err)
	}
	defer client.Close()

	// Verify connection.
	ctx := context.Background()
	pong, err := client.Ping(ctx).Result()
	if err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if pong != "PONG" {
		t.Errorf("expected PONG, got %q", pong)
	}
}

func TestPageCacheSetAndGet(t *testing.T) {
	client := testValkeyClient(t)
	pc := NewPageCache(client, 1*time.Minute)

	ctx := context.Background()

	// Miss.
	data, ok := pc.Get(ctx, "test-page")
	if ok {
		t.Error("expected cache miss")
	}
	if data != nil {
		t.Error("expected nil data on miss")
	}

	// Set.
	html := []byte("<html><body>Test Page</body></html>")
	pc.Set(ctx, "test-page", html)

	// Hit.
	data, ok = pc.Get(ctx, "test-page")
	if !ok {
		t.Error("expected cache hit")
	}
	if string(data) != string(html) {
		t.Errorf("data mismatch: got %q, want %q", data, html)
	}
}

func TestPageCacheInvalidateAll(t *testing.T) {
	client := testValkeyClient(t)
	pc := NewPageCache(client, 1*time.Minute)

	ctx := context.Background()

	// Set multiple pages.
	pc.Set(ctx, "page-a", []byte("a"))
	pc.Set(ctx, "page-b", []byte("b"))
	pc.Set(ctx, "page-c", []byte("c"))

	// Invalidate all.
	pc.InvalidateAll(ctx)

	// All should be gone.
	for _, key := range []string{"page-a", "page-b", "page-c"} {
		_, ok := pc.Get(ctx, key)
		if ok {
			t.Errorf("expected miss for %q after InvalidateAll", key)
		}
	}
}

func TestPageKeys(t *testing.T) {
	if got := HomepageKey(0); got != "v0:home" {
		t.Errorf("HomepageKey: got %q, want %q", got, "v0:home")
	}
	if HomepageKey(1) == HomepageKey(2) {
		t.Error("HomepageKey should differ between generations")
	}
	if got := ProjectKey(7, "loft-karakoy"); got != "v7:project:loft-karakoy" {
		t.Errorf("ProjectKey: got %q", got)
	}
}

func TestPageCacheWithoutClient(t *testing.T) {
	ctx := context.Background()

	for _, pc := range []*PageCache{nil, NewPageCache(nil, 0)} {
		if pc.Enabled() {
			t.Error("expected disabled cache")
		}
		pc.Set(ctx, "home", []byte("x"))
		if _, ok := pc.Get(ctx, "home"); ok {
			t.Error("expected miss from disabled cache")
		}
		pc.InvalidateAll(ctx)
	}
}

func TestNewPageCacheDefaultTTL(t *testing.T) {
	client := testValkeyClient(t)

	// TTL = 0 should use default.
	pc := NewPageCache(client, 0)
	if pc.ttl != DefaultPageTTL {
		t.Errorf("expected DefaultPageTTL (%v), got %v", DefaultPageTTL, pc.ttl)
	}
}

func TestPageCacheLateRenderIsNotServed(t *testing.T) {
	client := testValkeyClient(t)
	pc := NewPageCache(client, 1*time.Minute)
	ctx := context.Background()

	// A render started at generation 4; a write moved the content to 5 and
	// cleared the cache before the render finished.
	started := HomepageKey(4)
	pc.InvalidateAll(ctx)
	pc.Set(ctx, started, []byte("stale"))

	if _, ok := pc.Get(ctx, HomepageKey(5)); ok {
		t.Error("a page rendered before the write must not be served after it")
	}
	if data, ok := pc.Get(ctx, started); !ok || string(data) != "stale" {
		t.Errorf("the late page stays under its own generation: %q %v", data, ok)
	}
}
