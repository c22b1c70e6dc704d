// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package types

import (
	"sort"
	"strings"
)

// MethodInfo is a value snapshot of a Symbol taken at analysis time.
// Two MethodInfos are the same method when their signatures are equal.
type MethodInfo struct {
	MethodName  string   `json:"methodName"`
	ClassName   string   `json:"className"`
	ReturnType  string   `json:"returnType"`
	Parameters  []string `json:"parameters"`
	Markers     []string `json:"markers,omitempty"`
	PackageName string   `json:"packageName"`
	Layer       Layer    `json:"layer"`
}

// NewMethodInfo snapshots sym. The package name falls back to the part of
// the class name before its last separator when the symbol carries no
// namespace.
func NewMethodInfo(sym Symbol) MethodInfo {
	params := make([]string, len(sym.Params))
	for i, p := range sym.Params {
		params[i] = p.String()
	}
	pkg := sym.Namespace
	if pkg == "" {
		pkg = PackageOf(sym.ContainingType)
	}
	return MethodInfo{
		MethodName:  sym.Name,
		ClassName:   sym.ContainingType,
		ReturnType:  sym.ReturnType,
		Parameters:  params,
		Markers:     append([]string(nil), sym.Markers...),
		PackageName: pkg,
		Layer:       Unknown,
	}
}

// Signature returns "returnType className.methodName(params)".
func (m MethodInfo) Signature() string {
	var b strings.Builder
	if m.ReturnType != "" {
		b.WriteString(m.ReturnType)
		b.WriteByte(' ')
	}
	b.WriteString(m.Key())
	b.WriteByte('(')
	b.WriteString(strings.Join(m.Parameters, ", "))
	b.WriteByte(')')
	return b.String()
}

// Key returns the method key "className.methodName". Overloads share a key.
func (m MethodInfo) Key() string {
	return m.ClassName + "." + m.MethodName
}

// Edge is one caller to callee pair captured during traversal.
type Edge struct {
	Caller string `json:"caller"` // Caller signature
	Callee string `json:"callee"` // Callee signature
	Depth  int    `json:"depth"`  // Depth of the callee
}

// CallGraph is the bounded call graph rooted at an anchor method. The root
// sits at depth 0; every other method sits at depth 1 or more.
type CallGraph struct {
	Root    MethodInfo           `json:"root"`
	Depths  map[int][]MethodInfo `json:"depths"`
	Methods []MethodInfo         `json:"methods"`
	Edges   []Edge               `json:"edges"`
}

// NewCallGraph creates a graph around root. The root is fixed for the life
// of the graph.
func NewCallGraph(root MethodInfo) *CallGraph {
	return &CallGraph{
		Root:    root,
		Depths:  make(map[int][]MethodInfo),
		Methods: []MethodInfo{root},
	}
}

// Add appends m at depth and records the edge from caller. Depths below 1
// are clamped to 1.
func (g *CallGraph) Add(caller, m MethodInfo, depth int) {
	if depth < 1 {
		depth = 1
	}
	g.Depths[depth] = append(g.Depths[depth], m)
	g.Methods = append(g.Methods, m)
	g.Edges = append(g.Edges, Edge{Caller: caller.Signature(), Callee: m.Signature(), Depth: depth})
}

// MaxDepth returns the largest depth present, or 0 when only the root exists.
func (g *CallGraph) MaxDepth() int {
	deepest := 0
	for d := range g.Depths {
		if d > deepest {
			deepest = d
		}
	}
	return deepest
}

// TotalMethodCount returns the number of method occurrences, root included.
func (g *CallGraph) TotalMethodCount() int {
	return len(g.Methods)
}

// At returns the methods reached at depth, in insertion order.
func (g *CallGraph) At(depth int) []MethodInfo {
	if depth == 0 {
		return []MethodInfo{g.Root}
	}
	return g.Depths[depth]
}

// DepthKeys returns the populated depths in ascending order.
func (g *CallGraph) DepthKeys() []int {
	keys := make([]int, 0, len(g.Depths))
	for d := range g.Depths {
		keys = append(keys, d)
	}
	sort.Ints(keys)
	return keys
}

// Lookup returns the first method with the given signature.
func (g *CallGraph) Lookup(signature string) (MethodInfo, bool) {
	for _, m := range g.Methods {
		if m.Signature() == signature {
			return m, true
		}
	}
	return MethodInfo{}, false
}

// TreeString renders the graph one depth level at a time.
func (g *CallGraph) TreeString() string {
	var b strings.Builder
	b.WriteString("Root: ")
	b.WriteString(g.Root.Signature())
	b.WriteByte('\n')
	for _, d := range g.DepthKeys() {
		indent := strings.Repeat("  ", d)
		for _, m := range g.Depths[d] {
			b.WriteString(indent)
			b.WriteString("├─ ")
			b.WriteString(m.Signature())
			b.WriteByte('\n')
		}
	}
	return b.String()
}
