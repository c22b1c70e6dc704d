// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package resolve

import (
	"fmt"
	"sort"
	"sync"

	"github.com/petar-djukic/layercheck/pkg/types"
)

// Index is an in-memory Resolver built by a language loader. It holds
// symbols plus call and override relations between them, with lookups by
// containing type, name and file.
//
// Writers take the write lock themselves. Queries do not lock; a caller
// that may race with writers holds RLock for the whole session.
type Index struct {
	mu sync.RWMutex

	symbols   []types.Symbol
	byID      map[string]int
	byType    map[string][]int
	byName    map[string][]int
	byFile    map[string][]int
	typeMeta  map[string][]string // containing type -> type-level markers
	calls     map[int][]int
	callers   map[int][]int
	overrides map[int][]int
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{
		byID:      make(map[string]int),
		byType:    make(map[string][]int),
		byName:    make(map[string][]int),
		byFile:    make(map[string][]int),
		typeMeta:  make(map[string][]string),
		calls:     make(map[int][]int),
		callers:   make(map[int][]int),
		overrides: make(map[int][]int),
	}
}

// RLock implements ReadLocker.
func (ix *Index) RLock() { ix.mu.RLock() }

// RUnlock implements ReadLocker.
func (ix *Index) RUnlock() { ix.mu.RUnlock() }

// Add inserts sym. A symbol whose ID is already present replaces nothing
// and is ignored.
func (ix *Index) Add(sym types.Symbol) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if sym.ID == "" {
		sym.ID = sym.ContainingType + "." + sym.Name
	}
	if _, ok := ix.byID[sym.ID]; ok {
		return
	}
	idx := len(ix.symbols)
	ix.symbols = append(ix.symbols, sym)
	ix.byID[sym.ID] = idx
	ix.byType[sym.ContainingType] = append(ix.byType[sym.ContainingType], idx)
	ix.byName[sym.Name] = append(ix.byName[sym.Name], idx)
	if sym.File != "" {
		ix.byFile[sym.File] = append(ix.byFile[sym.File], idx)
	}
}

// SetTypeMarkers records the markers attached to a containing type.
func (ix *Index) SetTypeMarkers(containingType string, markers []string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.typeMeta[containingType] = append([]string(nil), markers...)
}

// AddCall records that the body of fromID invokes toID. Repeated calls are
// kept; each call site is one occurrence.
func (ix *Index) AddCall(fromID, toID string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	from, to, err := ix.pair(fromID, toID)
	if err != nil {
		return err
	}
	ix.calls[from] = append(ix.calls[from], to)
	ix.callers[to] = appendUnique(ix.callers[to], from)
	return nil
}

// AddOverride records that implID implements or overrides abstractID.
func (ix *Index) AddOverride(abstractID, implID string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	abs, impl, err := ix.pair(abstractID, implID)
	if err != nil {
		return err
	}
	ix.overrides[abs] = appendUnique(ix.overrides[abs], impl)
	return nil
}

func (ix *Index) pair(a, b string) (int, int, error) {
	ai, ok := ix.byID[a]
	if !ok {
		return 0, 0, fmt.Errorf("unknown symbol %q", a)
	}
	bi, ok := ix.byID[b]
	if !ok {
		return 0, 0, fmt.Errorf("unknown symbol %q", b)
	}
	return ai, bi, nil
}

// ResolveMethod implements Resolver. className may be fully qualified or a
// simple type name; the qualified match wins. Among overloads the first
// declared is returned.
func (ix *Index) ResolveMethod(className, methodName string) (types.Symbol, bool, error) {
	for _, idx := range ix.byType[className] {
		if ix.symbols[idx].Name == methodName {
			return ix.symbols[idx], true, nil
		}
	}
	for _, idx := range ix.byName[methodName] {
		if types.SimpleTypeName(ix.symbols[idx].ContainingType) == className {
			return ix.symbols[idx], true, nil
		}
	}
	return types.Symbol{}, false, nil
}

// FindCallSites implements Resolver.
func (ix *Index) FindCallSites(sym types.Symbol) ([]types.Symbol, error) {
	idx, ok := ix.byID[sym.ID]
	if !ok {
		return nil, nil
	}
	return ix.lookup(ix.calls[idx]), nil
}

// FindOverrides implements Resolver.
func (ix *Index) FindOverrides(sym types.Symbol) ([]types.Symbol, error) {
	idx, ok := ix.byID[sym.ID]
	if !ok {
		return nil, nil
	}
	return ix.lookup(ix.overrides[idx]), nil
}

// FindReferences implements Resolver. Callers come back in the order their
// first call site was recorded.
func (ix *Index) FindReferences(sym types.Symbol) ([]types.Symbol, error) {
	idx, ok := ix.byID[sym.ID]
	if !ok {
		return nil, nil
	}
	return ix.lookup(ix.callers[idx]), nil
}

// ClassifyMetadata implements Resolver.
func (ix *Index) ClassifyMetadata(sym types.Symbol) (types.Metadata, error) {
	ns := sym.Namespace
	if ns == "" {
		ns = types.PackageOf(sym.ContainingType)
	}
	return types.Metadata{
		Markers:        append([]string(nil), ix.typeMeta[sym.ContainingType]...),
		ContainingType: sym.ContainingType,
		Namespace:      ns,
	}, nil
}

// All returns every symbol in insertion order.
func (ix *Index) All() []types.Symbol {
	result := make([]types.Symbol, len(ix.symbols))
	copy(result, ix.symbols)
	return result
}

// ByFile returns the symbols declared in filePath.
func (ix *Index) ByFile(filePath string) []types.Symbol {
	return ix.lookup(ix.byFile[filePath])
}

// Types returns the containing types known to the index, sorted.
func (ix *Index) Types() []string {
	out := make([]string, 0, len(ix.byType))
	for t := range ix.byType {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of symbols.
func (ix *Index) Len() int {
	return len(ix.symbols)
}

func (ix *Index) lookup(indices []int) []types.Symbol {
	if len(indices) == 0 {
		return nil
	}
	result := make([]types.Symbol, len(indices))
	for i, idx := range indices {
		result[i] = ix.symbols[idx]
	}
	return result
}

func appendUnique(s []int, v int) []int {
	for _, x := range s {
		if x == v {
			return s
		}
	}
	return append(s, v)
}
