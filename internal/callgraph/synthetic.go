// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package callgraph

import (
	"github.com/petar-djukic/layercheck/internal/layer"
	"github.com/petar-djukic/layercheck/pkg/types"
)

// syntheticLevels is how many levels of calls the stand-in graph has.
const syntheticLevels = 2

// Synthetic returns the fixed stand-in graph used when resolution fails: a
// repository lookup and a validation-service call, each expanded one level
// further. Layers come from the class names alone.
func Synthetic(methodName, className string) *types.CallGraph {
	root := syntheticMethod(methodName, className)
	g := types.NewCallGraph(root)
	simulate(g, root, 0)
	return g
}

func simulate(g *types.CallGraph, caller types.MethodInfo, depth int) {
	if depth >= syntheticLevels {
		return
	}
	for _, callee := range []types.MethodInfo{
		syntheticMethod("findById", "UserRepository"),
		syntheticMethod("validateUser", "ValidationService"),
	} {
		g.Add(caller, callee, depth+1)
		simulate(g, callee, depth+1)
	}
}

func syntheticMethod(methodName, className string) types.MethodInfo {
	return types.MethodInfo{
		MethodName:  methodName,
		ClassName:   className,
		ReturnType:  "Object",
		Parameters:  []string{"Object param"},
		Markers:     []string{"@Override"},
		PackageName: types.PackageOf(className),
		Layer:       layer.ClassifyName(className),
	}
}
