// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package callgraph builds bounded call graphs over a resolver. A build
// first anchors the target at the nearest presentation-layer caller, then
// walks callees downward from that anchor. Any resolver failure produces a
// deterministic synthetic graph instead of an error.
package callgraph

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/petar-djukic/layercheck/internal/filter"
	"github.com/petar-djukic/layercheck/internal/layer"
	"github.com/petar-djukic/layercheck/internal/resolve"
	"github.com/petar-djukic/layercheck/pkg/types"
)

// Default traversal bounds.
const (
	DefaultMaxDepth  = 5
	DefaultMaxUpHops = 8
)

// ErrTargetNotFound indicates the resolver has no declaration for the
// requested method.
var ErrTargetNotFound = errors.New("target method not found")

// Config bounds a build. Zero fields take the defaults.
type Config struct {
	MaxDepth  int
	MaxUpHops int
}

func (c Config) withDefaults() Config {
	if c.MaxDepth <= 0 {
		c.MaxDepth = DefaultMaxDepth
	}
	if c.MaxUpHops <= 0 {
		c.MaxUpHops = DefaultMaxUpHops
	}
	return c
}

// State is a step of a single build.
type State int

const (
	Idle State = iota
	AnchorResolve
	Anchored
	Fallback
	Traverse
	Done
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case AnchorResolve:
		return "ANCHOR_RESOLVE"
	case Anchored:
		return "ANCHORED"
	case Fallback:
		return "FALLBACK"
	case Traverse:
		return "TRAVERSE"
	case Done:
		return "DONE"
	default:
		return "UNKNOWN"
	}
}

// Trace records how a build went.
type Trace struct {
	States     []State  // Every state entered, in order
	Expanded   []string // Method keys whose bodies were walked, in order
	AnchorHops int      // Reference hops from the target to the root
	Fallback   bool     // True when the synthetic graph was returned
	Reason     error    // Why the build fell back
}

// suggester is implemented by resolvers that can propose a near match for
// an unresolved target.
type suggester interface {
	Suggest(className, methodName string) (string, float64, bool)
}

// Builder builds call graphs. It is safe to reuse across builds but a
// single Build call is synchronous and single-threaded.
type Builder struct {
	resolver   resolve.Resolver
	classifier layer.Classifier
	filter     *filter.PackageFilter
	cfg        Config
	logger     *slog.Logger
}

// NewBuilder creates a Builder. A nil classifier selects the heuristic
// classifier, a nil filter the default excludes, a nil logger
// slog.Default().
func NewBuilder(r resolve.Resolver, c layer.Classifier, f *filter.PackageFilter, cfg Config, logger *slog.Logger) *Builder {
	if r == nil {
		r = resolve.Unavailable{}
	}
	if c == nil {
		c = layer.NewHeuristic()
	}
	if f == nil {
		f = filter.New(nil, nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		resolver:   r,
		classifier: c,
		filter:     f,
		cfg:        cfg.withDefaults(),
		logger:     logger.With("component", "callgraph"),
	}
}

// Build returns the call graph for className.methodName. It never returns
// nil.
func (b *Builder) Build(methodName, className string) *types.CallGraph {
	g, _ := b.Trace(methodName, className)
	return g
}

// Trace is Build that also reports the build's trace.
func (b *Builder) Trace(methodName, className string) (*types.CallGraph, Trace) {
	if l, ok := b.resolver.(resolve.ReadLocker); ok {
		l.RLock()
		defer l.RUnlock()
	}

	run := &build{Builder: b, trace: Trace{States: []State{Idle}}}
	g, err := run.execute(methodName, className)
	if err != nil {
		run.enter(Fallback)
		run.trace.Fallback = true
		run.trace.Reason = err
		b.logger.Warn("using synthetic call graph", "class", className, "method", methodName, "error", err)
		g = Synthetic(methodName, className)
	}
	run.enter(Done)
	b.logger.Debug("call graph built",
		"root", g.Root.Signature(), "methods", g.TotalMethodCount(), "maxDepth", g.MaxDepth())
	return g, run.trace
}

// build holds the state of one Build call.
type build struct {
	*Builder
	trace Trace
}

func (r *build) enter(s State) {
	r.trace.States = append(r.trace.States, s)
	r.logger.Debug("build state", "state", s.String())
}

func (r *build) execute(methodName, className string) (*types.CallGraph, error) {
	r.enter(AnchorResolve)
	target, ok, err := r.resolver.ResolveMethod(className, methodName)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, r.notFound(className, methodName)
	}

	root, hops, err := r.anchor(target)
	if err != nil {
		return nil, err
	}
	r.trace.AnchorHops = hops
	r.enter(Anchored)

	r.enter(Traverse)
	return r.traverse(root)
}

func (r *build) notFound(className, methodName string) error {
	if s, ok := r.resolver.(suggester); ok {
		if best, _, found := s.Suggest(className, methodName); found {
			return fmt.Errorf("%w: %s.%s (closest: %s)", ErrTargetNotFound, className, methodName, best)
		}
	}
	return fmt.Errorf("%w: %s.%s", ErrTargetNotFound, className, methodName)
}

// snapshot converts sym to a classified MethodInfo. Markers on the method
// and on its containing type both count.
func (r *build) snapshot(sym types.Symbol) (types.MethodInfo, error) {
	md, err := r.resolver.ClassifyMetadata(sym)
	if err != nil {
		return types.MethodInfo{}, err
	}
	md.Markers = append(md.Markers, sym.Markers...)
	info := types.NewMethodInfo(sym)
	info.Layer = r.classifier.Classify(md)
	return info, nil
}
