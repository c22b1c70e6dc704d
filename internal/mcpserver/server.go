// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package mcpserver exposes layer checks as MCP tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/petar-djukic/layercheck/internal/analyzer"
	"github.com/petar-djukic/layercheck/internal/cache"
	"github.com/petar-djukic/layercheck/internal/rules"
	"github.com/petar-djukic/layercheck/pkg/types"
)

// Tool names.
const (
	ToolCheckMethod = "check_method"
	ToolCacheStats  = "cache_stats"
	ToolShowRules   = "show_rules"
)

// Checker is what the tools call into. *layercheck.Checker implements it.
type Checker interface {
	Check(ctx context.Context, methodName, className string, opts analyzer.Options) (*analyzer.Result, error)
	CacheStats() cache.Stats
	Rules() rules.RuleSet
}

// Server holds the MCP server and its tool handlers.
type Server struct {
	checker Checker
	mcp     *server.MCPServer
	logger  *slog.Logger
}

// New creates the server and registers its tools.
func New(c Checker, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		checker: c,
		mcp:     server.NewMCPServer("layercheck", version, server.WithToolCapabilities(false)),
		logger:  logger.With("component", "mcpserver"),
	}

	s.mcp.AddTool(mcp.NewTool(ToolCheckMethod,
		mcp.WithDescription("Build the call graph of a method and check it against the layering, naming and signature rules"),
		mcp.WithString("class",
			mcp.Required(),
			mcp.Description("Qualified name of the declaring type, e.g. com.acme.web.UserController or example.com/shop/service.UserService"),
		),
		mcp.WithString("method",
			mcp.Required(),
			mcp.Description("Method or function name"),
		),
		mcp.WithBoolean("advise",
			mcp.Description("Also ask the configured model for a review (default: false)"),
		),
		mcp.WithBoolean("refresh",
			mcp.Description("Ignore cached results (default: false)"),
		),
	), s.handleCheckMethod)

	s.mcp.AddTool(mcp.NewTool(ToolCacheStats,
		mcp.WithDescription("Report result cache entry counts by kind"),
	), s.handleCacheStats)

	s.mcp.AddTool(mcp.NewTool(ToolShowRules,
		mcp.WithDescription("Show the rule set in effect"),
	), s.handleShowRules)

	return s
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *server.MCPServer { return s.mcp }

// ServeStdio serves requests on stdin and stdout until the client goes
// away.
func (s *Server) ServeStdio() error {
	s.logger.Info("serving on stdio")
	return server.ServeStdio(s.mcp)
}

func (s *Server) handleCheckMethod(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	className, err := request.RequireString("class")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	methodName, err := request.RequireString("method")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	opts := analyzer.Options{
		Advise:  request.GetBool("advise", false),
		Refresh: request.GetBool("refresh", false),
	}

	res, err := s.checker.Check(ctx, methodName, className, opts)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("check failed: %v", err)), nil
	}
	vs := res.Violations
	if vs == nil {
		vs = []types.Violation{}
	}
	return jsonResult(checkResult{
		Root:       res.Graph.Root.Signature(),
		Tree:       res.Graph.TreeString(),
		Methods:    res.Graph.TotalMethodCount(),
		MaxDepth:   res.Graph.MaxDepth(),
		Violations: vs,
		Advice:     res.Advice,
		Cached:     res.Cached,
		Fallback:   res.Fallback,
		Reason:     res.FallbackReason,
		Revision:   res.Revision,
	})
}

func (s *Server) handleCacheStats(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.checker.CacheStats())
}

func (s *Server) handleShowRules(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.checker.Rules())
}

// checkResult is the check_method reply. The graph is flattened to its
// tree rendering.
type checkResult struct {
	Root       string            `json:"root"`
	Tree       string            `json:"tree"`
	Methods    int               `json:"methods"`
	MaxDepth   int               `json:"max_depth"`
	Violations []types.Violation `json:"violations"`
	Advice     string            `json:"advice,omitempty"`
	Cached     bool              `json:"cached"`
	Fallback   bool              `json:"fallback"`
	Reason     string            `json:"fallback_reason,omitempty"`
	Revision   string            `json:"revision,omitempty"`
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
