// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a settable clock for TTL tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestPutGet(t *testing.T) {
	c := New(Config{}, nil)

	require.NoError(t, c.Put("A.b", CallChain, payload{Name: "graph", Count: 3}))

	var got payload
	require.True(t, c.Get("A.b", CallChain, &got))
	assert.Equal(t, payload{Name: "graph", Count: 3}, got)

	assert.False(t, c.Get("A.b", RuleCheck, &got), "kinds are stored separately")
	assert.False(t, c.Get("missing", CallChain, &got))
	assert.True(t, c.Has("A.b", CallChain))
}

func TestPutReplaces(t *testing.T) {
	c := New(Config{}, nil)
	require.NoError(t, c.Put("k", RuleCheck, payload{Count: 1}))
	require.NoError(t, c.Put("k", RuleCheck, payload{Count: 2}))

	var got payload
	require.True(t, c.Get("k", RuleCheck, &got))
	assert.Equal(t, 2, got.Count)
	assert.Equal(t, 1, c.Len())
}

func TestPutUnencodable(t *testing.T) {
	c := New(Config{}, nil)
	assert.Error(t, c.Put("k", CallChain, make(chan int)))
	assert.Equal(t, 0, c.Len())
}

func TestGetCorruptPayloadIsMiss(t *testing.T) {
	c := New(Config{}, nil)
	require.NoError(t, c.Put("k", CallChain, "just a string"))

	var got payload
	assert.False(t, c.Get("k", CallChain, &got))
	assert.Equal(t, 1, c.Len(), "corrupt entries are not removed by a read")
}

func TestExpiry(t *testing.T) {
	clock := newFakeClock()
	c := New(Config{TTL: time.Minute, Clock: clock.Now}, nil)
	require.NoError(t, c.Put("k", CallChain, payload{Count: 1}))

	clock.Advance(time.Minute)
	assert.True(t, c.Has("k", CallChain), "an entry lives for exactly its TTL")

	clock.Advance(time.Second)
	assert.False(t, c.Has("k", CallChain))
	assert.Equal(t, 1, c.Len(), "expired entries stay until swept")

	st := c.Stats()
	assert.Equal(t, 1, st.Total)
	assert.Equal(t, 1, st.Expired)

	assert.Equal(t, 1, c.Sweep())
	assert.Equal(t, 0, c.Len())
}

func TestEvictionRemovesOldestFifth(t *testing.T) {
	clock := newFakeClock()
	c := New(Config{MaxEntries: 1000, TTL: time.Hour, Clock: clock.Now}, nil)

	for i := 0; i < 1001; i++ {
		clock.Advance(time.Millisecond)
		require.NoError(t, c.Put(fmt.Sprintf("k%d", i), RuleCheck, i))
	}

	assert.Equal(t, 801, c.Len())
	for i := 0; i < 200; i++ {
		assert.False(t, c.Has(fmt.Sprintf("k%d", i), RuleCheck), "k%d should be evicted", i)
	}
	for i := 200; i < 1001; i++ {
		require.True(t, c.Has(fmt.Sprintf("k%d", i), RuleCheck), "k%d should remain", i)
	}

	require.NoError(t, c.Put("late", RuleCheck, 1))
	clock.Advance(59 * time.Minute)
	assert.True(t, c.Has("late", RuleCheck))
	clock.Advance(2 * time.Minute)
	assert.False(t, c.Has("late", RuleCheck))
}

func TestEvictionSmallCeiling(t *testing.T) {
	c := New(Config{MaxEntries: 2}, nil)
	for i := 0; i < 5; i++ {
		require.NoError(t, c.Put(fmt.Sprintf("k%d", i), CallChain, i))
	}
	assert.LessOrEqual(t, c.Len(), 2)
	assert.True(t, c.Has("k4", CallChain))
}

func TestInvalidateAndClear(t *testing.T) {
	c := New(Config{}, nil)
	for _, kind := range []Kind{CallChain, AIAnalysis, RuleCheck} {
		require.NoError(t, c.Put("A.b", kind, 1))
	}
	require.NoError(t, c.Put("C.d", CallChain, 1))

	c.Invalidate("A.b")
	assert.False(t, c.Has("A.b", CallChain))
	assert.False(t, c.Has("A.b", AIAnalysis))
	assert.True(t, c.Has("C.d", CallChain))

	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestStatsByKind(t *testing.T) {
	c := New(Config{}, nil)
	require.NoError(t, c.Put("a", CallChain, 1))
	require.NoError(t, c.Put("b", CallChain, 1))
	require.NoError(t, c.Put("a", RuleCheck, 1))

	st := c.Stats()
	assert.Equal(t, 3, st.Total)
	assert.Equal(t, 0, st.Expired)
	assert.Equal(t, 2, st.ByKind[CallChain])
	assert.Equal(t, 1, st.ByKind[RuleCheck])
	assert.Equal(t, 0, st.ByKind[AIAnalysis])
}

func TestBackgroundSweep(t *testing.T) {
	clock := newFakeClock()
	c := New(Config{TTL: time.Minute, SweepInterval: 5 * time.Millisecond, Clock: clock.Now}, nil)
	require.NoError(t, c.Put("k", CallChain, 1))
	clock.Advance(2 * time.Minute)

	c.Start(context.Background())
	defer c.Close()

	assert.Eventually(t, func() bool { return c.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestCloseIdempotent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := New(Config{SweepInterval: time.Hour}, nil)
	c.Start(ctx)
	cancel()
	c.Close()
	c.Close()
}

func TestConcurrentAccess(t *testing.T) {
	c := New(Config{MaxEntries: 50}, nil)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("w%d-%d", w, i%20)
				_ = c.Put(key, CallChain, i)
				var got int
				c.Get(key, CallChain, &got)
				if i%50 == 0 {
					c.Sweep()
					c.Stats()
				}
			}
		}(w)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 50)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "com.acme.UserService.find", Key("com.acme.UserService", "find"))
}
