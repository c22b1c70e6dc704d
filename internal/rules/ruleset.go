// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package rules evaluates naming, signature and layer-dependency rules over
// a call graph. Rules are data: each category can be replaced from storage
// and falls back to its built-in default on its own.
package rules

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"

	"github.com/petar-djukic/layercheck/pkg/types"
)

// Rule category names as stored.
const (
	CategoryNaming    = "naming"
	CategorySignature = "signature"
	CategoryLayer     = "layer"
)

// Edge modes for the layer check.
const (
	EdgeModeExact = "exact" // Pairs recorded during traversal
	EdgeModeDepth = "depth" // Every method at depth D calls every method at D+1
)

// ErrMalformedRule indicates a stored rule category failed to decode or
// validate.
var ErrMalformedRule = errors.New("malformed rule data")

// NamingRules holds naming patterns.
type NamingRules struct {
	MethodPattern string `json:"method_naming_pattern"`
}

// SignatureRules holds signature-shape limits.
type SignatureRules struct {
	MaxParameters int `json:"max_parameters"`
}

// LayerRules holds the layer-dependency policy and the markers that feed
// classification.
type LayerRules struct {
	ControllerAnnotations []string                      `json:"controller_annotations"`
	ServiceAnnotations    []string                      `json:"service_annotations"`
	EdgeMode              string                        `json:"edge_mode"`
	UtilitySegments       []string                      `json:"utility_segments"`
	Allowed               map[types.Layer][]types.Layer `json:"allowed"`
}

// RuleSet is the complete set of rules an Engine evaluates.
type RuleSet struct {
	Naming    NamingRules    `json:"naming"`
	Signature SignatureRules `json:"signature"`
	Layer     LayerRules     `json:"layer"`
}

// DefaultRuleSet returns the built-in rules.
func DefaultRuleSet() RuleSet {
	return RuleSet{
		Naming:    NamingRules{MethodPattern: `^[a-z][a-zA-Z0-9]*$`},
		Signature: SignatureRules{MaxParameters: 5},
		Layer: LayerRules{
			ControllerAnnotations: []string{"RestController", "Controller"},
			ServiceAnnotations:    []string{"Service", "Component"},
			EdgeMode:              EdgeModeExact,
			UtilitySegments:       []string{"util", "utils", "helper", "helpers", "common", "support"},
			Allowed: map[types.Layer][]types.Layer{
				types.Presentation:   {types.Application, types.Infrastructure},
				types.Application:    {types.Domain, types.Infrastructure},
				types.Domain:         {types.Domain, types.Infrastructure},
				types.Infrastructure: {types.Domain, types.Infrastructure},
			},
		},
	}
}

// DefaultRuleSetFor returns the built-in rules adjusted for a source
// language. Go exports by capitalizing, so its method pattern accepts a
// leading uppercase letter.
func DefaultRuleSetFor(language string) RuleSet {
	rs := DefaultRuleSet()
	if language == "go" {
		rs.Naming.MethodPattern = `^[A-Za-z][a-zA-Z0-9]*$`
	}
	return rs
}

// Clone returns a deep copy.
func (rs RuleSet) Clone() RuleSet {
	out := rs
	out.Layer.ControllerAnnotations = append([]string(nil), rs.Layer.ControllerAnnotations...)
	out.Layer.ServiceAnnotations = append([]string(nil), rs.Layer.ServiceAnnotations...)
	out.Layer.UtilitySegments = append([]string(nil), rs.Layer.UtilitySegments...)
	out.Layer.Allowed = make(map[types.Layer][]types.Layer, len(rs.Layer.Allowed))
	for k, v := range rs.Layer.Allowed {
		out.Layer.Allowed[k] = append([]types.Layer(nil), v...)
	}
	return out
}

// Categories renders the rule set as stored category payloads.
func (rs RuleSet) Categories() (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage, 3)
	for name, v := range map[string]any{
		CategoryNaming:    rs.Naming,
		CategorySignature: rs.Signature,
		CategoryLayer:     rs.Layer,
	} {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encoding %s rules: %w", name, err)
		}
		out[name] = data
	}
	return out, nil
}

func (n NamingRules) validate() error {
	if _, err := regexp.Compile(n.MethodPattern); err != nil {
		return fmt.Errorf("method_naming_pattern: %w", err)
	}
	return nil
}

func (s SignatureRules) validate() error {
	if s.MaxParameters < 0 {
		return fmt.Errorf("max_parameters must not be negative, got %d", s.MaxParameters)
	}
	return nil
}

func (l LayerRules) validate() error {
	if l.EdgeMode != EdgeModeExact && l.EdgeMode != EdgeModeDepth {
		return fmt.Errorf("edge_mode must be %q or %q, got %q", EdgeModeExact, EdgeModeDepth, l.EdgeMode)
	}
	for from, tos := range l.Allowed {
		if !from.Known() {
			return fmt.Errorf("allowed: unknown layer %q", from)
		}
		for _, to := range tos {
			if !to.Known() {
				return fmt.Errorf("allowed[%s]: unknown layer %q", from, to)
			}
		}
	}
	return nil
}

// FromCategories overlays stored category payloads onto base. A category
// that fails to decode or validate keeps its value from base; the others
// apply as loaded. Unknown categories are ignored.
func FromCategories(base RuleSet, raw map[string]json.RawMessage, logger *slog.Logger) RuleSet {
	if logger == nil {
		logger = slog.Default()
	}
	rs := base.Clone()

	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		payload := raw[name]
		var err error
		switch name {
		case CategoryNaming:
			n := rs.Naming
			if err = decode(payload, &n); err == nil {
				rs.Naming = n
			}
		case CategorySignature:
			s := rs.Signature
			if err = decode(payload, &s); err == nil {
				rs.Signature = s
			}
		case CategoryLayer:
			l := rs.Clone().Layer
			if err = decode(payload, &l); err == nil {
				rs.Layer = l
			}
		default:
			logger.Debug("ignoring unknown rule category", "category", name)
			continue
		}
		if err != nil {
			logger.Warn("rule category falls back to default", "category", name, "error", err)
		}
	}
	return rs
}

type validator interface {
	validate() error
}

// decode unmarshals payload over v and validates the result.
func decode[T validator](payload json.RawMessage, v *T) error {
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedRule, err)
	}
	if err := (*v).validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedRule, err)
	}
	return nil
}
