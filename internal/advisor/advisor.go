// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package advisor asks a language model to review a call graph and its
// rule violations, and renders the answer as a markdown report.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/petar-djukic/layercheck/pkg/types"
)

// ErrAdvisorFailure indicates the model call failed (network, auth, rate
// limit, empty answer).
var ErrAdvisorFailure = errors.New("advisor failure")

// Providers accepted by Config.Provider.
const (
	ProviderNone    = "none"
	ProviderBedrock = "bedrock"
	ProviderGemini  = "gemini"
)

// Model generates a completion for a single prompt.
type Model interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Config selects and configures the model provider.
type Config struct {
	Provider  string        // none, bedrock or gemini
	ModelID   string        // Provider model name (required unless disabled)
	Region    string        // AWS region for bedrock
	Profile   string        // AWS credential profile for bedrock (optional)
	APIKey    string        // Gemini API key (optional, falls back to env)
	Timeout   time.Duration // Per-request timeout
	MaxTokens int           // Response token budget
}

// NewModel builds the configured provider. A disabled provider returns a
// nil Model and no error.
func NewModel(ctx context.Context, cfg Config) (Model, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", ProviderNone:
		return nil, nil
	case ProviderBedrock:
		m, err := NewBedrock(ctx, BedrockConfig{
			ModelID:   cfg.ModelID,
			Region:    cfg.Region,
			Profile:   cfg.Profile,
			Timeout:   cfg.Timeout,
			MaxTokens: cfg.MaxTokens,
		})
		if err != nil {
			return nil, err
		}
		return m, nil
	case ProviderGemini:
		m, err := NewGemini(ctx, GeminiConfig{
			ModelID: cfg.ModelID,
			APIKey:  cfg.APIKey,
			Timeout: cfg.Timeout,
		})
		if err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrAdvisorFailure, cfg.Provider)
	}
}

// Service turns graphs and violations into advice. With no model it
// always returns the offline report.
type Service struct {
	model  Model
	logger *slog.Logger
}

// NewService wraps m, which may be nil.
func NewService(m Model, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{model: m, logger: logger.With("component", "advisor")}
}

// Enabled reports whether a model is configured.
func (s *Service) Enabled() bool { return s.model != nil }

// Advise returns a markdown report for g and vs. Model failures are logged
// and replaced by FallbackDocument; only a cancelled ctx is returned as an
// error.
func (s *Service) Advise(ctx context.Context, g *types.CallGraph, vs []types.Violation) (string, error) {
	if s.model == nil {
		return FallbackDocument(g, vs), nil
	}
	prompt, err := BuildPrompt(g, vs)
	if err != nil {
		return "", err
	}
	reply, err := s.model.Generate(ctx, prompt)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		s.logger.Warn("model call failed, using offline report", "error", err)
		return FallbackDocument(g, vs), nil
	}
	advice, ok := ParseAdvice(reply)
	if !ok {
		s.logger.Debug("reply is not structured, returning raw text")
		return strings.TrimSpace(reply), nil
	}
	return advice.Markdown(), nil
}
