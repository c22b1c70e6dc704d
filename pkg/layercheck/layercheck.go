// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package layercheck is the public interface for checking the call graph
// of a method against a four-layer architecture: presentation,
// application, domain and infrastructure.
package layercheck

import (
	"errors"
	"log/slog"
	"time"

	"github.com/petar-djukic/layercheck/internal/advisor"
	"github.com/petar-djukic/layercheck/internal/analyzer"
)

// Error types for the layercheck API.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrIndexLoad     = errors.New("failed to load source index")
)

// Source languages.
const (
	LanguageGo   = "go"
	LanguageJava = "java"
)

// Config configures a Checker.
type Config struct {
	WorkDir  string // Source root (required)
	Language string // go or java; empty detects go.mod

	Includes []string // Namespace allowlist; empty keeps everything not excluded
	Excludes []string // Namespace prefixes to skip; nil uses the defaults

	MaxDepth  int // Traversal depth bound (default 5)
	MaxUpHops int // Anchoring hop bound (default 8)

	RulesDSN string         // SQL rule store; postgres:// uses pgx, anything else sqlite
	Rules    map[string]any // Rule categories from the config file

	CacheTTL        time.Duration // Result lifetime (default 30m)
	CacheSweep      time.Duration // Expiry sweep period (default 10m)
	CacheMaxEntries int           // Result ceiling (default 1000)

	ParseCacheSize int // Parsed Java files kept between loads (default 4096)
	Concurrency    int // File parsing workers (default GOMAXPROCS)

	Advisor advisor.Config // Review model; zero value disables advice

	NoGit  bool         // Skip revision tracking
	Logger *slog.Logger // Defaults to slog.Default()
}

// Options tunes a single check.
type Options = analyzer.Options

// Result holds the outcome of a check.
type Result = analyzer.Result
