// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package rulestore

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/petar-djukic/layercheck/internal/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingSource struct{}

func (failingSource) LoadRules(context.Context) (map[string]json.RawMessage, error) {
	return nil, ErrStorageUnavailable
}

func openTestStore(t *testing.T) *SQLStore {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "rules.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.EnsureSchema(context.Background()))
	return s
}

func TestDriverFor(t *testing.T) {
	assert.Equal(t, "pgx", DriverFor("postgres://u:p@localhost/rules"))
	assert.Equal(t, "pgx", DriverFor("postgresql://localhost/rules"))
	assert.Equal(t, "sqlite3", DriverFor("/tmp/rules.db"))
	assert.Equal(t, "sqlite3", DriverFor("file::memory:?cache=shared"))
}

func TestSQLStoreSeedAndLoad(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	require.NoError(t, s.Seed(ctx, rules.DefaultRuleSet()))

	raw, err := s.LoadRules(ctx)
	require.NoError(t, err)
	assert.Len(t, raw, 3)

	rs := Load(ctx, s, rules.DefaultRuleSet(), nil)
	assert.Equal(t, rules.DefaultRuleSet(), rs)
}

func TestSQLStoreOverridesCategory(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	require.NoError(t, s.SaveRule(ctx, rules.CategorySignature, json.RawMessage(`{"max_parameters": 2}`)))
	require.NoError(t, s.SaveRule(ctx, rules.CategoryNaming, json.RawMessage(`{"method_naming_pattern": "(("}`)))

	rs := Load(ctx, s, rules.DefaultRuleSet(), nil)
	assert.Equal(t, 2, rs.Signature.MaxParameters)
	assert.Equal(t, rules.DefaultRuleSet().Naming, rs.Naming)

	require.NoError(t, s.SaveRule(ctx, rules.CategorySignature, json.RawMessage(`{"max_parameters": 4}`)))
	rs = Load(ctx, s, rules.DefaultRuleSet(), nil)
	assert.Equal(t, 4, rs.Signature.MaxParameters, "save replaces the stored payload")
}

func TestSQLStoreInactiveRows(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	require.NoError(t, s.SaveRule(ctx, rules.CategorySignature, json.RawMessage(`{"max_parameters": 1}`)))
	require.NoError(t, s.SetActive(ctx, rules.CategorySignature, false))

	raw, err := s.LoadRules(ctx)
	require.NoError(t, err)
	assert.Empty(t, raw)
}

func TestSQLStoreMissingSchema(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, filepath.Join(t.TempDir(), "empty.db"))
	require.NoError(t, err)
	defer s.Close()

	_, err = s.LoadRules(ctx)
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.Equal(t, rules.DefaultRuleSet(), Load(ctx, s, rules.DefaultRuleSet(), nil))
}

func TestOpenUnreachable(t *testing.T) {
	_, err := Open(context.Background(), filepath.Join(t.TempDir(), "missing", "dir", "rules.db"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStorageUnavailable))
}

func TestLoadFallbacks(t *testing.T) {
	ctx := context.Background()
	base := rules.DefaultRuleSetFor("go")
	assert.Equal(t, base, Load(ctx, nil, base, nil))
	assert.Equal(t, base, Load(ctx, failingSource{}, base, nil))
}

func TestMapSource(t *testing.T) {
	src := MapSource{
		"signature": map[string]any{"max_parameters": 7},
		"layer": map[string]any{
			"edge_mode": "depth",
			"allowed":   map[string]any{"presentation": []any{"application"}},
		},
	}
	rs := Load(context.Background(), src, rules.DefaultRuleSet(), nil)
	assert.Equal(t, 7, rs.Signature.MaxParameters)
	assert.Equal(t, rules.EdgeModeDepth, rs.Layer.EdgeMode)
	assert.Len(t, rs.Layer.Allowed["PRESENTATION"], 1)
}
