// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package callgraph

import (
	"fmt"
	"testing"

	"github.com/petar-djukic/layercheck/internal/filter"
	"github.com/petar-djukic/layercheck/internal/resolve"
	"github.com/petar-djukic/layercheck/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingResolver wraps an Index and counts queries and lock scopes. It
// fails FindCallSites for the symbol named by failOn.
type countingResolver struct {
	*resolve.Index
	failOn     string
	references int
	rlocks     int
}

func (c *countingResolver) FindCallSites(sym types.Symbol) ([]types.Symbol, error) {
	if sym.ID == c.failOn {
		return nil, resolve.ErrUnsupported
	}
	return c.Index.FindCallSites(sym)
}

func (c *countingResolver) FindReferences(sym types.Symbol) ([]types.Symbol, error) {
	c.references++
	return c.Index.FindReferences(sym)
}

func (c *countingResolver) RLock() {
	c.rlocks++
	c.Index.RLock()
}

func method(id, class, name string, hasBody bool, params ...types.Param) types.Symbol {
	return types.Symbol{ID: id, Name: name, ContainingType: class, HasBody: hasBody, Params: params}
}

func newIndex(t *testing.T, syms []types.Symbol, calls [][2]string) *resolve.Index {
	t.Helper()
	ix := resolve.NewIndex()
	for _, s := range syms {
		ix.Add(s)
	}
	for _, c := range calls {
		require.NoError(t, ix.AddCall(c[0], c[1]))
	}
	return ix
}

func layeredIndex(t *testing.T) *resolve.Index {
	return newIndex(t,
		[]types.Symbol{
			method("ctl", "com.acme.web.UserController", "get", true),
			method("svc", "com.acme.service.UserService", "find", true),
			method("repo", "com.acme.repository.UserRepository", "load", true),
			method("list", "java.util.List", "add", true),
		},
		[][2]string{{"ctl", "svc"}, {"svc", "repo"}, {"svc", "list"}},
	)
}

func names(ms []types.MethodInfo) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.MethodName
	}
	return out
}

func TestBuildPresentationTargetIsRoot(t *testing.T) {
	r := &countingResolver{Index: layeredIndex(t)}
	b := NewBuilder(r, nil, nil, Config{}, nil)

	g, tr := b.Trace("get", "com.acme.web.UserController")

	assert.Equal(t, "get", g.Root.MethodName)
	assert.Equal(t, types.Presentation, g.Root.Layer)
	assert.Equal(t, 0, r.references, "no upward search for a presentation target")
	assert.False(t, tr.Fallback)
	assert.Equal(t, []State{Idle, AnchorResolve, Anchored, Traverse, Done}, tr.States)
	assert.Equal(t, []string{"find"}, names(g.At(1)))
	assert.Equal(t, []string{"load"}, names(g.At(2)), "java.util callee is filtered out")
	assert.Equal(t, 1, r.rlocks)
}

func TestBuildAnchorsUpward(t *testing.T) {
	b := NewBuilder(layeredIndex(t), nil, nil, Config{}, nil)

	g, tr := b.Trace("load", "com.acme.repository.UserRepository")

	assert.Equal(t, "com.acme.web.UserController", g.Root.ClassName)
	assert.Equal(t, 2, tr.AnchorHops)
	assert.Equal(t, 2, g.MaxDepth())
	require.Len(t, g.Edges, 2)
	assert.Equal(t, "com.acme.service.UserService.find()", g.Edges[1].Caller)
	assert.Equal(t, "com.acme.repository.UserRepository.load()", g.Edges[1].Callee)
}

func TestBuildSimpleTypeName(t *testing.T) {
	b := NewBuilder(layeredIndex(t), nil, nil, Config{}, nil)
	g, tr := b.Trace("find", "UserService")
	assert.False(t, tr.Fallback)
	assert.Equal(t, "get", g.Root.MethodName)
}

func TestBuildExpandsOverrides(t *testing.T) {
	ix := newIndex(t,
		[]types.Symbol{
			method("ctl", "com.acme.web.OrderController", "place", true),
			method("port", "com.acme.service.OrderService", "place", false),
			method("impl", "com.acme.service.OrderServiceImpl", "place", true),
			method("repo", "com.acme.repository.OrderRepository", "save", true),
		},
		[][2]string{{"ctl", "port"}, {"impl", "repo"}},
	)
	require.NoError(t, ix.AddOverride("port", "impl"))

	g, tr := NewBuilder(ix, nil, nil, Config{}, nil).Trace("place", "com.acme.web.OrderController")

	assert.Equal(t, []string{"place"}, names(g.At(1)))
	assert.Equal(t, []string{"save"}, names(g.At(2)))
	assert.Equal(t, 3, g.TotalMethodCount(), "implementations are expanded, not added")
	assert.Equal(t, []string{
		"com.acme.web.OrderController.place",
		"com.acme.service.OrderService.place",
		"com.acme.service.OrderServiceImpl.place",
		"com.acme.repository.OrderRepository.save",
	}, tr.Expanded)
	require.Len(t, g.Edges, 2)
	assert.Equal(t, "com.acme.service.OrderService.place()", g.Edges[1].Caller)
}

func TestBuildRecursionExpandsOnce(t *testing.T) {
	ix := newIndex(t,
		[]types.Symbol{
			method("a", "com.acme.web.LoopController", "ping", true),
			method("b", "com.acme.service.LoopService", "pong", true),
		},
		[][2]string{{"a", "b"}, {"b", "a"}, {"b", "b"}},
	)

	g, tr := NewBuilder(ix, nil, nil, Config{}, nil).Trace("ping", "com.acme.web.LoopController")

	assert.Equal(t, []string{"pong"}, names(g.At(1)))
	assert.Equal(t, []string{"ping", "pong"}, names(g.At(2)))
	assert.Equal(t, 2, g.MaxDepth())
	assert.Len(t, tr.Expanded, 2)

	seen := map[string]int{}
	for _, k := range tr.Expanded {
		seen[k]++
	}
	for k, n := range seen {
		assert.Equal(t, 1, n, "key %s expanded more than once", k)
	}
}

func TestBuildRepeatedCallSites(t *testing.T) {
	ix := newIndex(t,
		[]types.Symbol{
			method("a", "com.acme.web.UserController", "get", true),
			method("h", "com.acme.service.UserService", "find", true),
		},
		[][2]string{{"a", "h"}, {"a", "h"}},
	)

	g, tr := NewBuilder(ix, nil, nil, Config{}, nil).Trace("get", "com.acme.web.UserController")

	assert.Equal(t, []string{"find", "find"}, names(g.At(1)))
	assert.Equal(t, 3, g.TotalMethodCount())
	assert.Len(t, tr.Expanded, 2)
}

func chainIndex(t *testing.T, n int) *resolve.Index {
	var syms []types.Symbol
	var calls [][2]string
	for i := 0; i < n; i++ {
		syms = append(syms, method(fmt.Sprintf("s%d", i), fmt.Sprintf("com.acme.chain.Step%d", i), "run", true))
		if i > 0 {
			calls = append(calls, [2]string{fmt.Sprintf("s%d", i-1), fmt.Sprintf("s%d", i)})
		}
	}
	return newIndex(t, syms, calls)
}

func TestBuildMaxDepth(t *testing.T) {
	g, tr := NewBuilder(chainIndex(t, 9), nil, nil, Config{}, nil).Trace("run", "com.acme.chain.Step0")

	assert.Equal(t, DefaultMaxDepth, g.MaxDepth())
	assert.Equal(t, 6, g.TotalMethodCount())
	assert.Len(t, tr.Expanded, 5)
	for _, d := range g.DepthKeys() {
		assert.GreaterOrEqual(t, d, 1)
	}

	g = NewBuilder(chainIndex(t, 9), nil, nil, Config{MaxDepth: 2}, nil).Build("run", "com.acme.chain.Step0")
	assert.Equal(t, 2, g.MaxDepth())
}

// callerChain builds target <- c1 <- c2 ... <- cN where cN is a controller.
func callerChain(t *testing.T, hops int) *resolve.Index {
	syms := []types.Symbol{method("c0", "com.acme.chain.Target", "run", true)}
	var calls [][2]string
	for i := 1; i <= hops; i++ {
		class := fmt.Sprintf("com.acme.chain.Caller%d", i)
		if i == hops {
			class = "com.acme.web.EntryController"
		}
		syms = append(syms, method(fmt.Sprintf("c%d", i), class, "run", true))
		calls = append(calls, [2]string{fmt.Sprintf("c%d", i), fmt.Sprintf("c%d", i-1)})
	}
	return newIndex(t, syms, calls)
}

func TestBuildAnchorHopBound(t *testing.T) {
	r := &countingResolver{Index: callerChain(t, 8)}
	g, tr := NewBuilder(r, nil, nil, Config{}, nil).Trace("run", "com.acme.chain.Target")
	assert.Equal(t, "com.acme.web.EntryController", g.Root.ClassName)
	assert.Equal(t, 8, tr.AnchorHops)

	r = &countingResolver{Index: callerChain(t, 9)}
	g, tr = NewBuilder(r, nil, nil, Config{}, nil).Trace("run", "com.acme.chain.Target")
	assert.Equal(t, "com.acme.chain.Target", g.Root.ClassName, "controller beyond the bound is not reached")
	assert.Equal(t, 0, tr.AnchorHops)
	assert.LessOrEqual(t, r.references, DefaultMaxUpHops)
}

func TestBuildAnchorReferenceCycle(t *testing.T) {
	ix := newIndex(t,
		[]types.Symbol{
			method("a", "com.acme.chain.A", "run", true),
			method("b", "com.acme.chain.B", "run", true),
		},
		[][2]string{{"a", "b"}, {"b", "a"}},
	)
	g, tr := NewBuilder(ix, nil, nil, Config{}, nil).Trace("run", "com.acme.chain.A")
	assert.False(t, tr.Fallback)
	assert.Equal(t, "com.acme.chain.A", g.Root.ClassName)
}

func TestBuildFallbackOnAbsentTarget(t *testing.T) {
	g, tr := NewBuilder(layeredIndex(t), nil, nil, Config{}, nil).Trace("missing", "com.acme.web.UserController")

	require.NotNil(t, g)
	assert.True(t, tr.Fallback)
	assert.ErrorIs(t, tr.Reason, ErrTargetNotFound)
	assert.Equal(t, []State{Idle, AnchorResolve, Fallback, Done}, tr.States)

	assert.Equal(t, "missing", g.Root.MethodName)
	assert.Equal(t, "com.acme.web.UserController", g.Root.ClassName)
	assert.Equal(t, types.Presentation, g.Root.Layer)
	assert.Equal(t, []string{"findById", "validateUser"}, names(g.At(1)))
	assert.Equal(t, []string{"findById", "validateUser", "findById", "validateUser"}, names(g.At(2)))
	assert.Equal(t, 2, g.MaxDepth())
	assert.Equal(t, 7, g.TotalMethodCount())
	assert.Equal(t, types.Infrastructure, g.At(1)[0].Layer)
	assert.Equal(t, types.Application, g.At(1)[1].Layer)
}

func TestBuildFallbackSuggestsClosest(t *testing.T) {
	_, tr := NewBuilder(layeredIndex(t), nil, nil, Config{}, nil).Trace("lod", "com.acme.repository.UserRepository")
	require.Error(t, tr.Reason)
	assert.Contains(t, tr.Reason.Error(), "closest: com.acme.repository.UserRepository.load")
}

func TestBuildFallbackOnUnavailable(t *testing.T) {
	g, tr := NewBuilder(resolve.Unavailable{}, nil, nil, Config{}, nil).Trace("get", "UserController")
	assert.True(t, tr.Fallback)
	assert.ErrorIs(t, tr.Reason, resolve.ErrUnavailable)
	assert.Equal(t, 2, g.MaxDepth())
}

func TestBuildFallbackDoesNotMix(t *testing.T) {
	r := &countingResolver{Index: layeredIndex(t), failOn: "svc"}
	g, tr := NewBuilder(r, nil, nil, Config{}, nil).Trace("get", "com.acme.web.UserController")

	assert.True(t, tr.Fallback)
	assert.ErrorIs(t, tr.Reason, resolve.ErrUnsupported)
	for _, m := range g.Methods[1:] {
		assert.Contains(t, []string{"findById", "validateUser"}, m.MethodName)
	}
	assert.Equal(t, "get", g.Root.MethodName)
}

func TestBuildIncludeFilter(t *testing.T) {
	f := filter.New([]string{"com.acme.service."}, nil)
	g := NewBuilder(layeredIndex(t), nil, f, Config{}, nil).Build("get", "com.acme.web.UserController")
	assert.Equal(t, []string{"find"}, names(g.At(1)))
	assert.Empty(t, g.At(2))
}

func TestBuildIdempotent(t *testing.T) {
	b := NewBuilder(layeredIndex(t), nil, nil, Config{}, nil)
	g1 := b.Build("load", "com.acme.repository.UserRepository")
	g2 := b.Build("load", "com.acme.repository.UserRepository")
	assert.Equal(t, g1.Root, g2.Root)
	assert.Equal(t, g1.DepthKeys(), g2.DepthKeys())
	assert.Equal(t, g1.Edges, g2.Edges)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "ANCHOR_RESOLVE", AnchorResolve.String())
	assert.Equal(t, "UNKNOWN", State(42).String())
}
