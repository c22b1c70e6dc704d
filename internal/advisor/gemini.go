// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package advisor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

// GeminiConfig configures the Gemini model.
type GeminiConfig struct {
	ModelID string        // Gemini model name (required)
	APIKey  string        // Empty reads GEMINI_API_KEY / GOOGLE_API_KEY
	Timeout time.Duration // Request timeout (default 120s)
}

// ContentGenerator is the slice of the genai Models service used here.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini is a Model backed by the Gemini API.
type Gemini struct {
	gen     ContentGenerator
	modelID string
	timeout time.Duration
}

// NewGemini creates a Gemini model.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if cfg.ModelID == "" {
		return nil, fmt.Errorf("%w: model ID is required", ErrAdvisorFailure)
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("%w: creating gemini client: %v", ErrAdvisorFailure, err)
	}
	return NewGeminiWithGenerator(cli.Models, cfg), nil
}

// NewGeminiWithGenerator creates a model over a pre-configured generator.
func NewGeminiWithGenerator(gen ContentGenerator, cfg GeminiConfig) *Gemini {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &Gemini{gen: gen, modelID: cfg.ModelID, timeout: timeout}
}

// Generate implements Model. The reply is requested as JSON.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.gen.GenerateContent(callCtx, g.modelID,
		[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
		&genai.GenerateContentConfig{ResponseMIMEType: "application/json"},
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAdvisorFailure, err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("%w: empty response", ErrAdvisorFailure)
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil {
			b.WriteString(p.Text)
		}
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", fmt.Errorf("%w: empty response", ErrAdvisorFailure)
	}
	return b.String(), nil
}
