// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package cache memoizes analysis artifacts per analyzed method. Entries
// expire after a fixed TTL and are evicted oldest-first when the cache
// fills up.
package cache

import (
	"container/list"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Kind tags the artifact an entry holds.
type Kind string

const (
	CallChain  Kind = "CALL_CHAIN"
	AIAnalysis Kind = "AI_ANALYSIS"
	RuleCheck  Kind = "RULE_CHECK"
)

// Defaults for Config.
const (
	DefaultTTL           = 30 * time.Minute
	DefaultSweepInterval = 10 * time.Minute
	DefaultMaxEntries    = 1000
)

// Eviction starts above evictThreshold of the ceiling and removes
// evictFraction of the ceiling.
const (
	evictThreshold = 0.8
	evictFraction  = 0.2
)

// Config holds cache limits. Zero fields take the defaults.
type Config struct {
	TTL           time.Duration
	SweepInterval time.Duration
	MaxEntries    int
	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time
}

func (c Config) withDefaults() Config {
	if c.TTL <= 0 {
		c.TTL = DefaultTTL
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = DefaultSweepInterval
	}
	if c.MaxEntries <= 0 {
		c.MaxEntries = DefaultMaxEntries
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
	return c
}

type entryKey struct {
	key  string
	kind Kind
}

type entry struct {
	id        entryKey
	payload   []byte
	createdAt time.Time
	ttl       time.Duration
}

func (e *entry) expired(now time.Time) bool {
	return now.Sub(e.createdAt) > e.ttl
}

// Stats counts entries.
type Stats struct {
	Total   int          `json:"total"`
	Expired int          `json:"expired"`
	ByKind  map[Kind]int `json:"byKind"`
}

// ResultCache is a thread-safe store of JSON payloads keyed by analyzed
// method and artifact kind. The list keeps entries in insertion order, so
// its front is always the oldest entry.
type ResultCache struct {
	mu    sync.RWMutex
	ll    *list.List
	items map[entryKey]*list.Element
	cfg   Config

	logger    *slog.Logger
	stop      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New creates a cache. Call Start to run the background sweep.
func New(cfg Config, logger *slog.Logger) *ResultCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResultCache{
		ll:     list.New(),
		items:  make(map[entryKey]*list.Element),
		cfg:    cfg.withDefaults(),
		logger: logger.With("component", "cache"),
		stop:   make(chan struct{}),
	}
}

// Key returns the cache key for a method.
func Key(className, methodName string) string {
	return className + "." + methodName
}

// Start runs the expiry sweep every SweepInterval until ctx is done or
// Close is called.
func (c *ResultCache) Start(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.stop:
				return
			case <-ticker.C:
				if n := c.Sweep(); n > 0 {
					c.logger.Debug("swept expired entries", "removed", n)
				}
			}
		}
	}()
}

// Close stops the sweep and waits for it to exit. It is safe to call more
// than once.
func (c *ResultCache) Close() {
	c.closeOnce.Do(func() { close(c.stop) })
	c.wg.Wait()
}

// Put stores value under key and kind, replacing any previous entry. A
// full cache runs an eviction pass first.
func (c *ResultCache) Put(key string, kind Kind, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding %s for %s: %w", kind, key, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ll.Len() >= c.cfg.MaxEntries {
		c.evictLocked()
	}
	id := entryKey{key: key, kind: kind}
	if ele, ok := c.items[id]; ok {
		c.removeElement(ele)
	}
	c.items[id] = c.ll.PushBack(&entry{
		id:        id,
		payload:   payload,
		createdAt: c.cfg.Clock(),
		ttl:       c.cfg.TTL,
	})
	return nil
}

// Get decodes the live entry for key and kind into out. Expired entries
// and payloads that fail to decode read as misses.
func (c *ResultCache) Get(key string, kind Kind, out any) bool {
	payload, ok := c.GetRaw(key, kind)
	if !ok {
		return false
	}
	if err := json.Unmarshal(payload, out); err != nil {
		c.logger.Debug("discarding undecodable entry", "key", key, "kind", kind, "error", err)
		return false
	}
	return true
}

// GetRaw returns the stored payload for key and kind.
func (c *ResultCache) GetRaw(key string, kind Kind) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ele, ok := c.items[entryKey{key: key, kind: kind}]
	if !ok {
		return nil, false
	}
	ent := ele.Value.(*entry)
	if ent.expired(c.cfg.Clock()) {
		return nil, false
	}
	return ent.payload, true
}

// Has reports whether a live entry exists for key and kind.
func (c *ResultCache) Has(key string, kind Kind) bool {
	_, ok := c.GetRaw(key, kind)
	return ok
}

// Invalidate removes every kind stored under key.
func (c *ResultCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, kind := range []Kind{CallChain, AIAnalysis, RuleCheck} {
		if ele, ok := c.items[entryKey{key: key, kind: kind}]; ok {
			c.removeElement(ele)
		}
	}
}

// Clear removes everything.
func (c *ResultCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll = list.New()
	c.items = make(map[entryKey]*list.Element)
}

// Len returns the number of stored entries, expired ones included.
func (c *ResultCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ll.Len()
}

// Stats counts entries by kind and expiry.
func (c *ResultCache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.cfg.Clock()
	st := Stats{Total: c.ll.Len(), ByKind: make(map[Kind]int)}
	for ele := c.ll.Front(); ele != nil; ele = ele.Next() {
		ent := ele.Value.(*entry)
		if ent.expired(now) {
			st.Expired++
		}
		st.ByKind[ent.id.kind]++
	}
	return st
}

// Sweep removes every expired entry and returns how many it removed.
func (c *ResultCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.cfg.Clock()
	removed := 0
	for ele := c.ll.Front(); ele != nil; {
		next := ele.Next()
		if ele.Value.(*entry).expired(now) {
			c.removeElement(ele)
			removed++
		}
		ele = next
	}
	return removed
}

// evictLocked drops the oldest fifth of the ceiling, at least one entry,
// once the cache holds more than four fifths of it.
func (c *ResultCache) evictLocked() {
	size := c.ll.Len()
	if float64(size) <= float64(c.cfg.MaxEntries)*evictThreshold {
		return
	}
	n := int(float64(c.cfg.MaxEntries) * evictFraction)
	if n < 1 {
		n = 1
	}
	for i := 0; i < n && c.ll.Len() > 0; i++ {
		c.removeElement(c.ll.Front())
	}
	c.logger.Info("evicted oldest entries", "removed", n, "size", c.ll.Len())
}

func (c *ResultCache) removeElement(ele *list.Element) {
	c.ll.Remove(ele)
	delete(c.items, ele.Value.(*entry).id)
}
