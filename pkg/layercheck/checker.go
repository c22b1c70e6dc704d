// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package layercheck

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/petar-djukic/layercheck/internal/advisor"
	"github.com/petar-djukic/layercheck/internal/analyzer"
	"github.com/petar-djukic/layercheck/internal/cache"
	"github.com/petar-djukic/layercheck/internal/callgraph"
	"github.com/petar-djukic/layercheck/internal/filter"
	gitpkg "github.com/petar-djukic/layercheck/internal/git"
	"github.com/petar-djukic/layercheck/internal/goindex"
	"github.com/petar-djukic/layercheck/internal/javaindex"
	"github.com/petar-djukic/layercheck/internal/layer"
	"github.com/petar-djukic/layercheck/internal/resolve"
	"github.com/petar-djukic/layercheck/internal/rules"
	"github.com/petar-djukic/layercheck/internal/rulestore"
	"github.com/petar-djukic/layercheck/pkg/types"
)

// Checker checks methods of one source tree. It is safe for concurrent
// use. Call Close when done.
type Checker struct {
	analyzer *analyzer.Analyzer
	engine   *rules.Engine
	cache    *cache.ResultCache
	store    *rulestore.SQLStore
	language string
}

// New validates the config, loads the rules and the source index, and
// returns a ready Checker. Only configuration errors are returned: an
// index that fails to load yields fallback graphs, and an unreachable rule
// store or model leaves the defaults in place.
//
// The cache sweep runs until ctx is done or Close is called.
func New(ctx context.Context, cfg Config) (*Checker, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	applyDefaults(&cfg)
	logger := cfg.Logger.With("component", "layercheck")

	c := &Checker{language: cfg.Language}
	var rs rules.RuleSet
	rs, c.store = loadRules(ctx, cfg, logger)

	classifier := layer.NewHeuristic()
	if len(rs.Layer.ControllerAnnotations) > 0 {
		classifier.ControllerMarkers = rs.Layer.ControllerAnnotations
	}
	classifier.ServiceMarkers = rs.Layer.ServiceAnnotations

	resolver := loadIndex(ctx, cfg)
	builder := callgraph.NewBuilder(resolver, classifier, filter.New(cfg.Includes, cfg.Excludes),
		callgraph.Config{MaxDepth: cfg.MaxDepth, MaxUpHops: cfg.MaxUpHops}, cfg.Logger)
	c.engine = rules.NewEngine(rs, classifier)

	c.cache = cache.New(cache.Config{
		TTL:           cfg.CacheTTL,
		SweepInterval: cfg.CacheSweep,
		MaxEntries:    cfg.CacheMaxEntries,
	}, cfg.Logger)
	c.cache.Start(ctx)

	model, err := advisor.NewModel(ctx, cfg.Advisor)
	if err != nil {
		logger.Warn("advice disabled", "provider", cfg.Advisor.Provider, "error", err)
	}

	var revisions analyzer.RevisionSource
	if !cfg.NoGit {
		if repo, err := gitpkg.Open(cfg.WorkDir); err == nil {
			revisions = repo
		} else {
			logger.Debug("revision tracking disabled", "error", err)
		}
	}

	c.analyzer = analyzer.New(analyzer.Deps{
		Builder:   builder,
		Engine:    c.engine,
		Cache:     c.cache,
		Advisor:   advisor.NewService(model, cfg.Logger),
		Revisions: revisions,
		Logger:    cfg.Logger,
	})
	return c, nil
}

// Check builds the call graph of className.methodName, evaluates the rules
// and, when asked, reviews the result. Results are cached per method until
// they expire or the work tree revision changes. The only errors returned
// come from ctx.
func (c *Checker) Check(ctx context.Context, methodName, className string, opts Options) (*Result, error) {
	return c.analyzer.Check(ctx, methodName, className, opts)
}

// BuildAndEvaluate builds the call graph of className.methodName and
// returns it with its violations, most severe first. Nothing is cached.
func (c *Checker) BuildAndEvaluate(methodName, className string) (*types.CallGraph, []types.Violation) {
	return c.analyzer.BuildAndEvaluate(methodName, className)
}

// CacheStats returns result cache counters.
func (c *Checker) CacheStats() cache.Stats {
	return c.cache.Stats()
}

// Invalidate drops every cached artifact of className.methodName.
func (c *Checker) Invalidate(methodName, className string) {
	c.cache.Invalidate(cache.Key(className, methodName))
}

// Rules returns the rule set in effect.
func (c *Checker) Rules() rules.RuleSet {
	return c.engine.Rules()
}

// Language returns the source language being checked.
func (c *Checker) Language() string {
	return c.language
}

// Close stops the cache sweep and closes the rule store.
func (c *Checker) Close() error {
	c.cache.Close()
	if c.store != nil {
		return c.store.Close()
	}
	return nil
}

// loadRules layers the built-in rules, the config file rules and the rule
// store, in that order. The returned store is nil when none is configured
// or it could not be opened.
func loadRules(ctx context.Context, cfg Config, logger *slog.Logger) (rules.RuleSet, *rulestore.SQLStore) {
	rs := rules.DefaultRuleSetFor(cfg.Language)
	if len(cfg.Rules) > 0 {
		rs = rulestore.Load(ctx, rulestore.MapSource(cfg.Rules), rs, cfg.Logger)
	}
	if cfg.RulesDSN == "" {
		return rs, nil
	}
	store, err := rulestore.Open(ctx, cfg.RulesDSN)
	if err != nil {
		logger.Warn("rule store unavailable", "driver", rulestore.DriverFor(cfg.RulesDSN), "error", err)
		return rs, nil
	}
	return rulestore.Load(ctx, store, rs, cfg.Logger), store
}

// EffectiveRules returns the rule set a Checker built from cfg would
// apply, without indexing the source tree.
func EffectiveRules(ctx context.Context, cfg Config) (rules.RuleSet, error) {
	if err := validateConfig(cfg); err != nil {
		return rules.RuleSet{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	applyDefaults(&cfg)
	rs, store := loadRules(ctx, cfg, cfg.Logger.With("component", "layercheck"))
	if store != nil {
		store.Close()
	}
	return rs, nil
}

// loadIndex indexes the source tree. A failed load becomes a resolver that
// fails every query.
func loadIndex(ctx context.Context, cfg Config) resolve.Resolver {
	logger := cfg.Logger.With("component", "layercheck")
	var (
		ix  *resolve.Index
		err error
	)
	switch cfg.Language {
	case LanguageGo:
		ix, err = goindex.Load(ctx, cfg.WorkDir, cfg.Logger)
	case LanguageJava:
		var loader *javaindex.Loader
		loader, err = javaindex.NewLoader(cfg.ParseCacheSize, cfg.Concurrency, cfg.Logger)
		if err == nil {
			ix, err = loader.Load(ctx, cfg.WorkDir)
		}
	}
	if err != nil {
		logger.Warn("source index unavailable, checks will use fallback graphs",
			"language", cfg.Language, "dir", cfg.WorkDir, "error", err)
		return resolve.Unavailable{Err: fmt.Errorf("%w: %v", ErrIndexLoad, err)}
	}
	return ix
}

// validateConfig checks that required fields are present and consistent.
func validateConfig(cfg Config) error {
	if cfg.WorkDir == "" {
		return fmt.Errorf("WorkDir is required")
	}
	if info, err := os.Stat(cfg.WorkDir); err != nil || !info.IsDir() {
		return fmt.Errorf("WorkDir %q does not exist or is not a directory", cfg.WorkDir)
	}
	switch cfg.Language {
	case "", LanguageGo, LanguageJava:
	default:
		return fmt.Errorf("unsupported language %q", cfg.Language)
	}
	if cfg.MaxDepth < 0 || cfg.MaxUpHops < 0 {
		return fmt.Errorf("traversal bounds must not be negative")
	}
	if cfg.CacheTTL < 0 || cfg.CacheSweep < 0 || cfg.CacheMaxEntries < 0 {
		return fmt.Errorf("cache limits must not be negative")
	}
	switch p := strings.ToLower(cfg.Advisor.Provider); p {
	case "", advisor.ProviderNone:
	case advisor.ProviderBedrock, advisor.ProviderGemini:
		if cfg.Advisor.ModelID == "" {
			return fmt.Errorf("advisor model is required for provider %q", p)
		}
		if p == advisor.ProviderBedrock && cfg.Advisor.Region == "" {
			return fmt.Errorf("advisor region is required for provider %q", p)
		}
	default:
		return fmt.Errorf("unknown advisor provider %q", cfg.Advisor.Provider)
	}
	return nil
}

// applyDefaults fills in zero-value fields with their defaults.
func applyDefaults(cfg *Config) {
	if cfg.Language == "" {
		cfg.Language = DetectLanguage(cfg.WorkDir)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
}

// DetectLanguage returns LanguageGo when dir holds a go.mod and
// LanguageJava otherwise.
func DetectLanguage(dir string) string {
	if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
		return LanguageGo
	}
	return LanguageJava
}
