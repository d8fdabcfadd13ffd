// Package cache implements the search result cache (SPEC_FULL.md §4.13):
// a Redis-backed cache of completed first-page search responses, with
// singleflight coalescing of duplicate in-flight queries.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"mboxsearch/internal/ids"
	"mboxsearch/internal/query"
	pkgredis "mboxsearch/pkg/redis"
)

const keyPrefix = "mboxsearch:search:"

// ResultCache caches query.Page values computed for an
// query.IntersectionQuery. Only pages where the input cursor was empty
// (first page) and the computed result is Completed are ever stored:
// caching a later page, or an incomplete first page, risks returning
// stale results once new documents are concurrently indexed
// (SPEC_FULL.md §4.13).
type ResultCache struct {
	client *pkgredis.Client
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

// New returns a ResultCache backed by client, with entries expiring
// after ttl.
func New(client *pkgredis.Client, ttl time.Duration) *ResultCache {
	return &ResultCache{
		client: client,
		ttl:    ttl,
		logger: slog.Default().With("component", "search-cache"),
	}
}

// Cacheable reports whether iq is eligible to have its result cached or
// served from cache: only first-page queries, i.e. those submitted with
// no pagination cursor, are eligible.
func Cacheable(iq query.IntersectionQuery) bool {
	return iq.NextDocumentID == ids.Zero
}

// GetOrCompute returns a cached page for iq if one exists and iq is
// eligible; otherwise it runs computeFn (coalescing concurrent identical
// queries via singleflight) and, if the computed page is itself eligible
// for caching, stores it before returning.
func (c *ResultCache) GetOrCompute(ctx context.Context, iq query.IntersectionQuery, computeFn func() (query.Page, error)) (query.Page, bool, error) {
	if c == nil || c.client == nil {
		page, err := computeFn()
		return page, false, err
	}
	eligible := Cacheable(iq)
	key := c.buildKey(iq)
	if eligible {
		if page, ok := c.get(ctx, key); ok {
			return page, true, nil
		}
	}
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		if eligible {
			if page, ok := c.get(ctx, key); ok {
				return page, nil
			}
		}
		page, err := computeFn()
		if err != nil {
			return query.Page{}, err
		}
		if eligible && page.Completed {
			c.set(ctx, key, page)
		}
		return page, nil
	})
	if err != nil {
		return query.Page{}, false, err
	}
	return val.(query.Page), false, nil
}

func (c *ResultCache) get(ctx context.Context, key string) (query.Page, bool) {
	data, err := c.client.Get(ctx, key)
	if err != nil {
		c.misses.Add(1)
		return query.Page{}, false
	}
	var page query.Page
	if err := json.Unmarshal([]byte(data), &page); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.misses.Add(1)
		return query.Page{}, false
	}
	c.hits.Add(1)
	return page, true
}

func (c *ResultCache) set(ctx context.Context, key string, page query.Page) {
	data, err := json.Marshal(page)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// InvalidateAll drops every cached page. Called after /compact, since
// compaction does not change document visibility but is the one
// maintenance operation the cache's TTL-based staleness policy does not
// otherwise cover.
func (c *ResultCache) InvalidateAll(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	deleted, err := c.client.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating search cache: %w", err)
	}
	c.logger.Info("search cache invalidated", "keys_deleted", deleted)
	return nil
}

// Stats returns cumulative hit/miss counts.
func (c *ResultCache) Stats() (hits, misses int64) {
	if c == nil {
		return 0, 0
	}
	return c.hits.Load(), c.misses.Load()
}

func (c *ResultCache) buildKey(iq query.IntersectionQuery) string {
	var sb strings.Builder
	mailboxes := make([]string, len(iq.Mailboxes))
	for i, mq := range iq.Mailboxes {
		attrs := make([]string, 0, len(mq.Attributes))
		for attribute, aq := range mq.Attributes {
			req := append([]string{}, aq.Required...)
			exact := append([]string{}, aq.Exact...)
			sort.Strings(req)
			sort.Strings(exact)
			attrs = append(attrs, fmt.Sprintf("%s:req=%s:exact=%s", attribute, strings.Join(req, ","), strings.Join(exact, ",")))
		}
		sort.Strings(attrs)
		mailboxes[i] = mq.Mailbox + "[" + strings.Join(attrs, "|") + "]"
	}
	sort.Strings(mailboxes)
	sb.WriteString(strings.Join(mailboxes, ";"))
	fmt.Fprintf(&sb, ";range=%s-%s;max=%d", iq.RangeStart.String(), iq.RangeEnd.String(), iq.MaxNumber)
	hash := sha256.Sum256([]byte(sb.String()))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
