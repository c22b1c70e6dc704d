// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package resolve defines the symbol-resolution boundary the call graph
// builder walks, plus an in-memory index that language loaders fill.
package resolve

import (
	"errors"
	"fmt"

	"github.com/petar-djukic/layercheck/pkg/types"
)

// Sentinel errors returned by resolvers.
var (
	// ErrUnavailable indicates the index is not ready or absent.
	ErrUnavailable = errors.New("resolution index unavailable")

	// ErrUnsupported indicates the resolver cannot answer the query.
	ErrUnsupported = errors.New("resolution query unsupported")
)

// Resolver answers the queries needed to walk a call graph.
type Resolver interface {
	// ResolveMethod finds a method by containing type and name. ok is false
	// when no such declaration exists.
	ResolveMethod(className, methodName string) (sym types.Symbol, ok bool, err error)
	// FindCallSites returns the callees invoked directly in the body of sym.
	FindCallSites(sym types.Symbol) ([]types.Symbol, error)
	// FindOverrides returns the implementations of an abstract or interface
	// method.
	FindOverrides(sym types.Symbol) ([]types.Symbol, error)
	// FindReferences returns the methods whose bodies call sym.
	FindReferences(sym types.Symbol) ([]types.Symbol, error)
	// ClassifyMetadata returns what a layer classifier needs to know.
	ClassifyMetadata(sym types.Symbol) (types.Metadata, error)
}

// ReadLocker is implemented by resolvers that need a read scope held
// across a whole query session.
type ReadLocker interface {
	RLock()
	RUnlock()
}

// Unavailable is a Resolver that fails every query. It stands in for an
// index that could not be loaded.
type Unavailable struct {
	Err error
}

func (u Unavailable) err() error {
	if u.Err == nil {
		return ErrUnavailable
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, u.Err)
}

func (u Unavailable) ResolveMethod(string, string) (types.Symbol, bool, error) {
	return types.Symbol{}, false, u.err()
}

func (u Unavailable) FindCallSites(types.Symbol) ([]types.Symbol, error) { return nil, u.err() }

func (u Unavailable) FindOverrides(types.Symbol) ([]types.Symbol, error) { return nil, u.err() }

func (u Unavailable) FindReferences(types.Symbol) ([]types.Symbol, error) { return nil, u.err() }

func (u Unavailable) ClassifyMetadata(types.Symbol) (types.Metadata, error) {
	return types.Metadata{}, u.err()
}
