// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package rules

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/petar-djukic/layercheck/internal/layer"
	"github.com/petar-djukic/layercheck/pkg/types"
)

// Engine evaluates a RuleSet over call graphs. It holds no per-graph state
// and may be shared.
type Engine struct {
	rules      RuleSet
	method     *regexp.Regexp
	classifier layer.Classifier
}

// NewEngine compiles rs. An invalid method pattern falls back to the
// default pattern. A nil classifier selects the heuristic classifier.
func NewEngine(rs RuleSet, c layer.Classifier) *Engine {
	rs = rs.Clone()
	if rs.Naming.validate() != nil {
		rs.Naming = DefaultRuleSet().Naming
	}
	if rs.Layer.validate() != nil {
		rs.Layer = DefaultRuleSet().Layer
	}
	if c == nil {
		c = layer.NewHeuristic()
	}
	return &Engine{
		rules:      rs,
		method:     regexp.MustCompile(rs.Naming.MethodPattern),
		classifier: c,
	}
}

// Rules returns a copy of the rules in effect.
func (e *Engine) Rules() RuleSet {
	return e.rules.Clone()
}

// Evaluate checks every method of g and every caller to callee pair. The
// result depends only on g. A method or pair reached more than once is
// reported once.
func (e *Engine) Evaluate(g *types.CallGraph) []types.Violation {
	if g == nil {
		return nil
	}
	var out []types.Violation
	seen := make(map[string]bool)
	for _, m := range g.Methods {
		sig := m.Signature()
		if seen[sig] {
			continue
		}
		seen[sig] = true
		if v, ok := e.checkNaming(m); ok {
			out = append(out, v)
		}
		if v, ok := e.checkSignature(m); ok {
			out = append(out, v)
		}
	}
	return append(out, e.checkLayers(g)...)
}

func (e *Engine) checkNaming(m types.MethodInfo) (types.Violation, bool) {
	if e.method.MatchString(m.MethodName) {
		return types.Violation{}, false
	}
	return types.Violation{
		Type:          types.NamingViolation,
		Description:   fmt.Sprintf("method name %q does not match %s", m.MethodName, e.rules.Naming.MethodPattern),
		Location:      m.Signature(),
		Suggestion:    "use lowerCamelCase starting with a lowercase letter",
		Severity:      types.High,
		RuleReference: "naming.method_naming_pattern",
	}, true
}

func (e *Engine) checkSignature(m types.MethodInfo) (types.Violation, bool) {
	limit := e.rules.Signature.MaxParameters
	if len(m.Parameters) <= limit {
		return types.Violation{}, false
	}
	return types.Violation{
		Type:          types.SignatureViolation,
		Description:   fmt.Sprintf("method has %d parameters, more than the maximum of %d", len(m.Parameters), limit),
		Location:      m.Signature(),
		Suggestion:    "wrap the parameters into an object or split the method",
		Severity:      types.Medium,
		RuleReference: "signature.max_parameters",
	}, true
}

type pair struct {
	caller, callee types.MethodInfo
}

// pairs returns the caller to callee pairs to check, in graph order.
func (e *Engine) pairs(g *types.CallGraph) []pair {
	var out []pair
	if e.rules.Layer.EdgeMode == EdgeModeDepth {
		for d := 0; d < g.MaxDepth(); d++ {
			for _, caller := range g.At(d) {
				for _, callee := range g.At(d + 1) {
					out = append(out, pair{caller, callee})
				}
			}
		}
		return out
	}

	bySig := make(map[string]types.MethodInfo, len(g.Methods))
	for _, m := range g.Methods {
		if _, ok := bySig[m.Signature()]; !ok {
			bySig[m.Signature()] = m
		}
	}
	for _, edge := range g.Edges {
		caller, ok1 := bySig[edge.Caller]
		callee, ok2 := bySig[edge.Callee]
		if ok1 && ok2 {
			out = append(out, pair{caller, callee})
		}
	}
	return out
}

func (e *Engine) checkLayers(g *types.CallGraph) []types.Violation {
	var out []types.Violation
	seen := make(map[string]bool)
	for _, p := range e.pairs(g) {
		location := p.caller.Signature() + " -> " + p.callee.Signature()
		if seen[location] {
			continue
		}
		seen[location] = true

		from, to := e.layerOf(p.caller), e.layerOf(p.callee)
		if !from.Known() || !to.Known() || e.allowed(from, to, p.callee) {
			continue
		}
		out = append(out, types.Violation{
			Type:          types.LayerViolation,
			Description:   fmt.Sprintf("%s layer calls %s layer", lower(from), lower(to)),
			Location:      location,
			Suggestion:    suggestion(from, to),
			Severity:      types.High,
			RuleReference: "layer." + lower(from) + "->" + lower(to),
		})
	}
	return out
}

// layerOf returns the snapshot's layer, reclassifying from the snapshot's
// own names when the resolver left it unknown.
func (e *Engine) layerOf(m types.MethodInfo) types.Layer {
	if m.Layer.Known() {
		return m.Layer
	}
	return e.classifier.Classify(types.Metadata{
		Markers:        m.Markers,
		ContainingType: m.ClassName,
		Namespace:      m.PackageName,
	})
}

func (e *Engine) allowed(from, to types.Layer, callee types.MethodInfo) bool {
	ok := false
	for _, l := range e.rules.Layer.Allowed[from] {
		if l == to {
			ok = true
			break
		}
	}
	if ok && from == types.Presentation && to == types.Infrastructure {
		return e.isUtility(callee)
	}
	return ok
}

// isUtility reports whether m belongs to a shared helper type that the
// presentation layer may use directly.
func (e *Engine) isUtility(m types.MethodInfo) bool {
	name := types.SimpleTypeName(m.ClassName)
	for _, suffix := range []string{"Util", "Utils", "Helper"} {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	for _, seg := range e.rules.Layer.UtilitySegments {
		if layer.HasSegment(m.PackageName, seg) {
			return true
		}
	}
	return false
}

var suggestions = map[[2]types.Layer]string{
	{types.Presentation, types.Presentation}:   "presentation handlers should not call each other; move the shared logic into an application service",
	{types.Presentation, types.Domain}:         "presentation should route through application instead of invoking domain logic directly",
	{types.Presentation, types.Infrastructure}: "presentation should route through application, not call infrastructure directly except for shared helpers",
	{types.Application, types.Presentation}:    "application must not depend on presentation; return results to the caller instead",
	{types.Application, types.Application}:     "application services should not call each other directly; move the shared behavior into the domain",
	{types.Domain, types.Presentation}:         "domain must depend only downward; expose an event or return value instead of calling presentation",
	{types.Domain, types.Application}:          "domain must not call application; define a support interface in the domain and implement it outside",
	{types.Infrastructure, types.Presentation}: "infrastructure must not call up into presentation; expose a domain interface instead",
	{types.Infrastructure, types.Application}:  "infrastructure must not call up into application; invert the dependency through a domain interface",
}

func suggestion(from, to types.Layer) string {
	if s, ok := suggestions[[2]types.Layer{from, to}]; ok {
		return s
	}
	return "keep dependencies pointing down the stack: presentation, application, domain, infrastructure"
}

func lower(l types.Layer) string {
	return strings.ToLower(string(l))
}

// SortBySeverity orders violations from most to least severe, keeping the
// relative order of equal severities.
func SortBySeverity(vs []types.Violation) {
	sort.SliceStable(vs, func(i, j int) bool {
		return vs[i].Severity.Level() > vs[j].Severity.Level()
	})
}
