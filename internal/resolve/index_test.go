// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package resolve

import (
	"errors"
	"testing"

	"github.com/petar-djukic/layercheck/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestIndex(t *testing.T) *Index {
	t.Helper()
	ix := NewIndex()
	ix.Add(types.Symbol{ID: "ctl.get", Name: "get", ContainingType: "com.acme.web.UserController", HasBody: true, File: "UserController.java"})
	ix.Add(types.Symbol{ID: "svc.find", Name: "find", ContainingType: "com.acme.service.UserService", HasBody: false})
	ix.Add(types.Symbol{ID: "impl.find", Name: "find", ContainingType: "com.acme.service.UserServiceImpl", HasBody: true})
	ix.Add(types.Symbol{ID: "repo.load", Name: "load", ContainingType: "com.acme.repository.UserRepository", HasBody: true})
	ix.SetTypeMarkers("com.acme.web.UserController", []string{"RestController"})

	require.NoError(t, ix.AddCall("ctl.get", "svc.find"))
	require.NoError(t, ix.AddCall("impl.find", "repo.load"))
	require.NoError(t, ix.AddCall("impl.find", "repo.load"))
	require.NoError(t, ix.AddOverride("svc.find", "impl.find"))
	return ix
}

func TestIndexResolveMethod(t *testing.T) {
	ix := buildTestIndex(t)

	sym, ok, err := ix.ResolveMethod("com.acme.service.UserService", "find")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "svc.find", sym.ID)

	sym, ok, err = ix.ResolveMethod("UserRepository", "load")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "repo.load", sym.ID)

	_, ok, err = ix.ResolveMethod("UserRepository", "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIndexRelations(t *testing.T) {
	ix := buildTestIndex(t)
	impl, _, _ := ix.ResolveMethod("com.acme.service.UserServiceImpl", "find")
	repo, _, _ := ix.ResolveMethod("com.acme.repository.UserRepository", "load")
	svc, _, _ := ix.ResolveMethod("com.acme.service.UserService", "find")

	calls, err := ix.FindCallSites(impl)
	require.NoError(t, err)
	assert.Len(t, calls, 2, "each call site is one occurrence")

	refs, err := ix.FindReferences(repo)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "impl.find", refs[0].ID)

	over, err := ix.FindOverrides(svc)
	require.NoError(t, err)
	require.Len(t, over, 1)
	assert.Equal(t, "impl.find", over[0].ID)

	none, err := ix.FindCallSites(types.Symbol{ID: "nope"})
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestIndexClassifyMetadata(t *testing.T) {
	ix := buildTestIndex(t)
	ctl, _, _ := ix.ResolveMethod("UserController", "get")

	md, err := ix.ClassifyMetadata(ctl)
	require.NoError(t, err)
	assert.Equal(t, []string{"RestController"}, md.Markers)
	assert.Equal(t, "com.acme.web", md.Namespace)
	assert.Equal(t, "com.acme.web.UserController", md.ContainingType)
}

func TestIndexAddCallUnknown(t *testing.T) {
	ix := buildTestIndex(t)
	assert.Error(t, ix.AddCall("ctl.get", "ghost"))
	assert.Error(t, ix.AddOverride("ghost", "impl.find"))
}

func TestIndexAccessors(t *testing.T) {
	ix := buildTestIndex(t)
	ix.Add(types.Symbol{ID: "ctl.get", Name: "dup", ContainingType: "X"})

	assert.Equal(t, 4, ix.Len())
	assert.Len(t, ix.All(), 4)
	assert.Len(t, ix.ByFile("UserController.java"), 1)
	assert.Contains(t, ix.Types(), "com.acme.service.UserServiceImpl")
}

func TestSuggest(t *testing.T) {
	ix := buildTestIndex(t)

	best, score, ok := ix.Suggest("com.acme.repository.UserRepository", "lod")
	require.True(t, ok)
	assert.Equal(t, "com.acme.repository.UserRepository.load", best)
	assert.Greater(t, score, 0.9)

	_, _, ok = ix.Suggest("zz", "q")
	assert.False(t, ok)
}

func TestUnavailable(t *testing.T) {
	u := Unavailable{Err: errors.New("not indexed")}

	_, _, err := u.ResolveMethod("A", "b")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Contains(t, err.Error(), "not indexed")

	_, err = Unavailable{}.FindCallSites(types.Symbol{})
	assert.ErrorIs(t, err, ErrUnavailable)
}

var _ Resolver = (*Index)(nil)
var _ ReadLocker = (*Index)(nil)
var _ Resolver = Unavailable{}
