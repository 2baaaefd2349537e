// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// page.go keeps rendered public pages in Valkey so repeat visits skip the
// five-document load and template execution. A PageCache without a client
// (Valkey not configured) is valid and never hits.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	pageKeyPrefix = "atelier:page:"

	// DefaultPageTTL is how long a rendered page stays cached.
	DefaultPageTTL = 5 * time.Minute
)

// PageCache stores rendered HTML keyed by page.
type PageCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPageCache returns a page cache on client. A nil client yields a cache
// that stores nothing.
func NewPageCache(client *redis.Client, ttl time.Duration) *PageCache {
	if ttl == 0 {
		ttl = DefaultPageTTL
	}
	return &PageCache{client: client, ttl: ttl}
}

// Enabled reports whether pages are actually cached.
func (pc *PageCache) Enabled() bool {
	return pc != nil && pc.client != nil
}

// Get returns the cached HTML for key.
func (pc *PageCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if !pc.Enabled() {
		return nil, false
	}
	val, err := pc.client.Get(ctx, pageKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		slog.Warn("page cache get error", "key", key, "error", err)
		return nil, false
	}
	slog.Debug("page cache hit", "key", key)
	return val, true
}

// Set stores rendered HTML for key with the configured TTL.
func (pc *PageCache) Set(ctx context.Context, key string, html []byte) {
	if !pc.Enabled() {
		return
	}
	if err := pc.client.Set(ctx, pageKeyPrefix+key, html, pc.ttl).Err(); err != nil {
		slog.Warn("page cache set error", "key", key, "error", err)
	}
}

// InvalidateAll drops every cached page. Any document can appear on any
// page (contact details are in every footer), so writes clear everything.
func (pc *PageCache) InvalidateAll(ctx context.Context) {
	if !pc.Enabled() {
		return
	}
	var cursor uint64
	var deleted int
	for {
		keys, next, err := pc.client.Scan(ctx, cursor, pageKeyPrefix+"*", 100).Result()
		if err != nil {
			slog.Warn("page cache scan error", "error", err)
			return
		}
		if len(keys) > 0 {
			if err := pc.client.Del(ctx, keys...).Err(); err != nil {
				slog.Warn("page cache bulk delete error", "error", err)
			}
			deleted += len(keys)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	if deleted > 0 {
		slog.Info("page cache cleared", "deleted", deleted)
	}
}

// Keys carry the content generation the page was rendered from. A render
// that overlaps a write stores its page under the old generation, which no
// request asks for again.

// HomepageKey returns the cache key for the homepage.
func HomepageKey(gen uint64) string {
	return "v" + strconv.FormatUint(gen, 10) + ":home"
}

// ProjectKey returns the cache key for a project detail page.
func ProjectKey(gen uint64, slug string) string {
	return "v" + strconv.FormatUint(gen, 10) + ":project:" + slug
}
