// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package callgraph

import "github.com/petar-djukic/layercheck/pkg/types"

// anchor searches callers of target breadth-first for the nearest
// presentation-layer method. The target itself is the root when it is
// already presentation or when no such caller exists within MaxUpHops.
func (r *build) anchor(target types.Symbol) (types.Symbol, int, error) {
	info, err := r.snapshot(target)
	if err != nil {
		return types.Symbol{}, 0, err
	}
	if info.Layer == types.Presentation {
		return target, 0, nil
	}

	type item struct {
		sym  types.Symbol
		hops int
	}
	visited := map[string]bool{info.Signature(): true}
	queue := []item{{sym: target}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.hops >= r.cfg.MaxUpHops {
			continue
		}

		refs, err := r.resolver.FindReferences(cur.sym)
		if err != nil {
			return types.Symbol{}, 0, err
		}
		for _, ref := range refs {
			ri, err := r.snapshot(ref)
			if err != nil {
				return types.Symbol{}, 0, err
			}
			sig := ri.Signature()
			if visited[sig] {
				continue
			}
			visited[sig] = true
			if ri.Layer == types.Presentation {
				r.logger.Debug("anchored", "root", sig, "hops", cur.hops+1)
				return ref, cur.hops + 1, nil
			}
			queue = append(queue, item{sym: ref, hops: cur.hops + 1})
		}
	}
	return target, 0, nil
}

// frame is one method being expanded. Call frames hold callees to append;
// override frames hold implementations to expand at the same depth.
type frame struct {
	owner types.MethodInfo // The method as it appears in the graph
	depth int
	items []types.Symbol
	next  int
	calls bool
}

// traverse walks callees depth-first from root with an explicit stack. A
// callee is appended at the caller's depth plus one and expanded before the
// next call site of the caller is visited.
func (r *build) traverse(root types.Symbol) (*types.CallGraph, error) {
	rootInfo, err := r.snapshot(root)
	if err != nil {
		return nil, err
	}
	g := types.NewCallGraph(rootInfo)

	expanded := make(map[string]bool)
	var stack []*frame

	expand := func(sym types.Symbol, info, owner types.MethodInfo, depth int) error {
		if depth >= r.cfg.MaxDepth {
			return nil
		}
		key := info.Key()
		if expanded[key] {
			return nil
		}
		expanded[key] = true
		r.trace.Expanded = append(r.trace.Expanded, key)

		var (
			items []types.Symbol
			ferr  error
		)
		if sym.HasBody {
			items, ferr = r.resolver.FindCallSites(sym)
		} else {
			items, ferr = r.resolver.FindOverrides(sym)
		}
		if ferr != nil {
			return ferr
		}
		stack = append(stack, &frame{owner: owner, depth: depth, items: items, calls: sym.HasBody})
		return nil
	}

	if err := expand(root, rootInfo, rootInfo, 0); err != nil {
		return nil, err
	}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if top.next >= len(top.items) {
			stack = stack[:len(stack)-1]
			continue
		}
		sym := top.items[top.next]
		top.next++

		info, err := r.snapshot(sym)
		if err != nil {
			return nil, err
		}
		if !top.calls {
			if err := expand(sym, info, top.owner, top.depth); err != nil {
				return nil, err
			}
			continue
		}
		if !r.filter.Keep(info.ClassName) {
			continue
		}
		g.Add(top.owner, info, top.depth+1)
		if err := expand(sym, info, info, top.depth+1); err != nil {
			return nil, err
		}
	}
	return g, nil
}
