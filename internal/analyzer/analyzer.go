// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package analyzer runs a full check of one method: build the call graph,
// evaluate the rules, optionally ask the advisor, and memoize each
// artifact in the result cache.
package analyzer

import (
	"context"
	"log/slog"
	"sync"

	"github.com/petar-djukic/layercheck/internal/cache"
	"github.com/petar-djukic/layercheck/internal/callgraph"
	gitpkg "github.com/petar-djukic/layercheck/internal/git"
	"github.com/petar-djukic/layercheck/internal/rules"
	"github.com/petar-djukic/layercheck/pkg/types"
)

// GraphBuilder builds call graphs. *callgraph.Builder implements it.
type GraphBuilder interface {
	Trace(methodName, className string) (*types.CallGraph, callgraph.Trace)
}

// Evaluator checks a call graph. *rules.Engine implements it.
type Evaluator interface {
	Evaluate(g *types.CallGraph) []types.Violation
}

// Advisor produces a review document. *advisor.Service implements it.
type Advisor interface {
	Enabled() bool
	Advise(ctx context.Context, g *types.CallGraph, vs []types.Violation) (string, error)
}

// RevisionSource reports the state of the analyzed work tree.
// *git.Repo implements it.
type RevisionSource interface {
	Revision() (gitpkg.Revision, error)
}

// Deps holds injected dependencies for the analyzer.
type Deps struct {
	Builder   GraphBuilder
	Engine    Evaluator
	Cache     *cache.ResultCache // Nil disables memoization
	Advisor   Advisor            // Nil disables advice
	Revisions RevisionSource     // Nil skips revision tracking
	Logger    *slog.Logger
}

// Options tunes a single check.
type Options struct {
	Advise  bool // Ask the advisor for a review
	Refresh bool // Ignore cached artifacts
}

// Result is the outcome of a check.
type Result struct {
	Graph          *types.CallGraph  `json:"graph"`
	Violations     []types.Violation `json:"violations"`
	Advice         string            `json:"advice,omitempty"`
	Cached         bool              `json:"cached"`
	Fallback       bool              `json:"fallback"`
	FallbackReason string            `json:"fallbackReason,omitempty"`
	Revision       string            `json:"revision,omitempty"`
}

// chainEntry is the cached CALL_CHAIN payload.
type chainEntry struct {
	Graph    *types.CallGraph `json:"graph"`
	Fallback bool             `json:"fallback"`
	Reason   string           `json:"reason,omitempty"`
}

// Analyzer orchestrates checks. It is safe for concurrent use.
type Analyzer struct {
	deps   Deps
	logger *slog.Logger

	mu       sync.Mutex
	revision string
	tracked  bool
}

// New creates an Analyzer. Builder and Engine are required.
func New(deps Deps) *Analyzer {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{deps: deps, logger: logger.With("component", "analyzer")}
}

// BuildAndEvaluate builds the graph for className.methodName and returns
// it with its violations, most severe first. Nothing is cached.
func (a *Analyzer) BuildAndEvaluate(methodName, className string) (*types.CallGraph, []types.Violation) {
	g, _ := a.deps.Builder.Trace(methodName, className)
	vs := a.deps.Engine.Evaluate(g)
	rules.SortBySeverity(vs)
	return g, vs
}

// Check runs the full check. The only errors returned come from ctx.
func (a *Analyzer) Check(ctx context.Context, methodName, className string, opts Options) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rev := a.syncRevision()
	key := cache.Key(className, methodName)

	res, hit := a.lookup(key, opts)
	if !hit {
		res = a.compute(key, methodName, className)
	}
	res.Revision = rev

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if opts.Advise && a.deps.Advisor != nil {
		if err := a.advise(ctx, key, res, opts); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// lookup returns the cached result when both CALL_CHAIN and RULE_CHECK are
// present.
func (a *Analyzer) lookup(key string, opts Options) (*Result, bool) {
	if a.deps.Cache == nil || opts.Refresh {
		return nil, false
	}
	var chain chainEntry
	var vs []types.Violation
	if !a.deps.Cache.Get(key, cache.CallChain, &chain) || chain.Graph == nil {
		return nil, false
	}
	if !a.deps.Cache.Get(key, cache.RuleCheck, &vs) {
		return nil, false
	}
	a.logger.Debug("cache hit", "key", key)
	return &Result{
		Graph:          chain.Graph,
		Violations:     vs,
		Cached:         true,
		Fallback:       chain.Fallback,
		FallbackReason: chain.Reason,
	}, true
}

func (a *Analyzer) compute(key, methodName, className string) *Result {
	g, tr := a.deps.Builder.Trace(methodName, className)
	res := &Result{Graph: g, Fallback: tr.Fallback}
	if tr.Reason != nil {
		res.FallbackReason = tr.Reason.Error()
	}
	a.store(key, cache.CallChain, chainEntry{Graph: g, Fallback: res.Fallback, Reason: res.FallbackReason})

	res.Violations = a.deps.Engine.Evaluate(g)
	rules.SortBySeverity(res.Violations)
	a.store(key, cache.RuleCheck, res.Violations)

	a.logger.Info("method checked",
		"key", key, "methods", g.TotalMethodCount(), "violations", len(res.Violations), "fallback", res.Fallback)
	return res
}

func (a *Analyzer) advise(ctx context.Context, key string, res *Result, opts Options) error {
	if a.deps.Cache != nil && !opts.Refresh && res.Cached {
		var advice string
		if a.deps.Cache.Get(key, cache.AIAnalysis, &advice) {
			res.Advice = advice
			return nil
		}
	}
	advice, err := a.deps.Advisor.Advise(ctx, res.Graph, res.Violations)
	if err != nil {
		return err
	}
	res.Advice = advice
	// A disabled advisor returns the local report, which is not worth keeping.
	if a.deps.Advisor.Enabled() {
		a.store(key, cache.AIAnalysis, advice)
	}
	return nil
}

func (a *Analyzer) store(key string, kind cache.Kind, v any) {
	if a.deps.Cache == nil {
		return
	}
	if err := a.deps.Cache.Put(key, kind, v); err != nil {
		a.logger.Warn("caching failed", "key", key, "kind", kind, "error", err)
	}
}

// syncRevision reads the work tree revision and clears the cache when it
// moved since the previous check.
func (a *Analyzer) syncRevision() string {
	if a.deps.Revisions == nil {
		return ""
	}
	rev, err := a.deps.Revisions.Revision()
	if err != nil {
		a.logger.Debug("revision unavailable", "error", err)
		return ""
	}
	current := rev.String()

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.tracked && current != a.revision && a.deps.Cache != nil {
		a.logger.Info("revision changed, clearing cache", "from", a.revision, "to", current)
		a.deps.Cache.Clear()
	}
	a.revision = current
	a.tracked = true
	return current
}
