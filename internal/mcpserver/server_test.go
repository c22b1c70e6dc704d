// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petar-djukic/layercheck/internal/analyzer"
	"github.com/petar-djukic/layercheck/internal/cache"
	"github.com/petar-djukic/layercheck/internal/callgraph"
	"github.com/petar-djukic/layercheck/internal/rules"
	"github.com/petar-djukic/layercheck/pkg/types"
)

// mockChecker implements Checker for testing.
type mockChecker struct {
	result *analyzer.Result
	err    error
	gotOpt analyzer.Options
	gotCls string
	gotMth string
}

func (m *mockChecker) Check(_ context.Context, methodName, className string, opts analyzer.Options) (*analyzer.Result, error) {
	m.gotMth, m.gotCls, m.gotOpt = methodName, className, opts
	return m.result, m.err
}

func (m *mockChecker) CacheStats() cache.Stats {
	return cache.Stats{Total: 3, Expired: 1, ByKind: map[cache.Kind]int{cache.CallChain: 2, cache.RuleCheck: 1}}
}

func (m *mockChecker) Rules() rules.RuleSet { return rules.DefaultRuleSet() }

func callRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return text.Text
}

func checkedResult() *analyzer.Result {
	return &analyzer.Result{
		Graph: callgraph.Synthetic("getUser", "UserController"),
		Violations: []types.Violation{{
			Type:     types.LayerViolation,
			Severity: types.High,
		}},
		Cached:   true,
		Revision: "aaaa",
	}
}

func TestCheckMethod(t *testing.T) {
	m := &mockChecker{result: checkedResult()}
	s := New(m, "test", nil)

	res, err := s.handleCheckMethod(context.Background(), callRequest(map[string]any{
		"class":  "com.acme.web.UserController",
		"method": "getUser",
		"advise": true,
	}))
	require.NoError(t, err)
	assert.False(t, res.IsError)

	assert.Equal(t, "com.acme.web.UserController", m.gotCls)
	assert.Equal(t, "getUser", m.gotMth)
	assert.Equal(t, analyzer.Options{Advise: true}, m.gotOpt)

	var got checkResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &got))
	assert.Equal(t, "Object UserController.getUser(Object param)", got.Root)
	assert.Equal(t, 7, got.Methods)
	assert.Equal(t, 2, got.MaxDepth)
	assert.True(t, got.Cached)
	assert.Equal(t, "aaaa", got.Revision)
	require.Len(t, got.Violations, 1)
	assert.Equal(t, types.LayerViolation, got.Violations[0].Type)
}

func TestCheckMethodEmptyViolations(t *testing.T) {
	r := checkedResult()
	r.Violations = nil
	s := New(&mockChecker{result: r}, "test", nil)

	res, err := s.handleCheckMethod(context.Background(), callRequest(map[string]any{"class": "C", "method": "m"}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, res), `"violations":[]`)
}

func TestCheckMethodErrors(t *testing.T) {
	tests := []struct {
		name    string
		args    map[string]any
		checker *mockChecker
		want    string
	}{
		{name: "missing class", args: map[string]any{"method": "m"}, checker: &mockChecker{}, want: "class"},
		{name: "missing method", args: map[string]any{"class": "C"}, checker: &mockChecker{}, want: "method"},
		{
			name:    "check fails",
			args:    map[string]any{"class": "C", "method": "m"},
			checker: &mockChecker{err: errors.New("context canceled")},
			want:    "check failed: context canceled",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(tt.checker, "test", nil)
			res, err := s.handleCheckMethod(context.Background(), callRequest(tt.args))
			require.NoError(t, err, "tool errors are reported in the result")
			assert.True(t, res.IsError)
			assert.Contains(t, resultText(t, res), tt.want)
		})
	}
}

func TestCacheStats(t *testing.T) {
	s := New(&mockChecker{}, "test", nil)
	res, err := s.handleCacheStats(context.Background(), callRequest(nil))
	require.NoError(t, err)

	var got cache.Stats
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &got))
	assert.Equal(t, 3, got.Total)
	assert.Equal(t, 1, got.Expired)
	assert.Equal(t, 2, got.ByKind[cache.CallChain])
}

func TestShowRules(t *testing.T) {
	s := New(&mockChecker{}, "test", nil)
	res, err := s.handleShowRules(context.Background(), callRequest(nil))
	require.NoError(t, err)

	var got rules.RuleSet
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &got))
	assert.Equal(t, rules.DefaultRuleSet().Signature, got.Signature)
}

func TestNewRegistersServer(t *testing.T) {
	s := New(&mockChecker{}, "1.2.3", nil)
	assert.NotNil(t, s.MCPServer())
}
