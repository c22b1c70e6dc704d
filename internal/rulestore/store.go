// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package rulestore loads rule categories from SQL storage or from the
// config file. Loading never fails: an unreachable store yields the base
// rule set.
package rulestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/petar-djukic/layercheck/internal/rules"
)

// ErrStorageUnavailable indicates the rule store could not be reached or
// queried.
var ErrStorageUnavailable = errors.New("rule storage unavailable")

// Source supplies stored rule categories keyed by category name.
type Source interface {
	LoadRules(ctx context.Context) (map[string]json.RawMessage, error)
}

// Load overlays the categories from src onto base. A nil src or a failing
// one returns base unchanged.
func Load(ctx context.Context, src Source, base rules.RuleSet, logger *slog.Logger) rules.RuleSet {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "rulestore")
	if src == nil {
		return base.Clone()
	}
	raw, err := src.LoadRules(ctx)
	if err != nil {
		logger.Warn("using built-in rules", "error", err)
		return base.Clone()
	}
	logger.Debug("rules loaded", "categories", len(raw))
	return rules.FromCategories(base, raw, logger)
}

// MapSource serves categories from decoded config values, such as the
// rules section of the config file.
type MapSource map[string]any

// LoadRules implements Source.
func (m MapSource) LoadRules(context.Context) (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage, len(m))
	for name, v := range m {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encoding %s rules: %w", name, err)
		}
		out[name] = data
	}
	return out, nil
}
