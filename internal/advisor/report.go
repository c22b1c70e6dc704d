// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package advisor

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/petar-djukic/layercheck/pkg/types"
)

// Advice is the structured reply requested by BuildPrompt.
type Advice struct {
	Violations      []AdviceItem `json:"violations"`
	Summary         string       `json:"summary"`
	Recommendations []string     `json:"recommendations"`
}

// AdviceItem is one issue reported by the model.
type AdviceItem struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Location    string `json:"location"`
	Suggestion  string `json:"suggestion"`
	Severity    string `json:"severity"`
}

// ParseAdvice decodes a model reply. Replies wrapped in a markdown code
// fence are accepted. ok is false when the reply holds no JSON object.
// Missing item fields get defaults.
func ParseAdvice(reply string) (Advice, bool) {
	var a Advice
	if err := json.Unmarshal([]byte(stripFence(reply)), &a); err != nil {
		return Advice{}, false
	}
	for i := range a.Violations {
		it := &a.Violations[i]
		it.Type = orDefault(it.Type, "unknown")
		it.Description = orDefault(it.Description, "issue reported by the advisor")
		it.Location = orDefault(it.Location, "unknown")
		it.Suggestion = orDefault(it.Suggestion, "see the summary")
		it.Severity = strings.ToLower(orDefault(it.Severity, string(types.Medium)))
	}
	return a, true
}

// Markdown renders the advice as a report.
func (a Advice) Markdown() string {
	var b strings.Builder
	b.WriteString("# Architecture review\n\n")
	if a.Summary != "" {
		b.WriteString("## Summary\n")
		b.WriteString(a.Summary)
		b.WriteString("\n\n")
	}
	if len(a.Violations) > 0 {
		b.WriteString("## Issues\n")
		for _, it := range a.Violations {
			fmt.Fprintf(&b, "- [%s] %s: %s\n", strings.ToUpper(it.Severity), it.Type, it.Description)
			fmt.Fprintf(&b, "  Location: %s\n", it.Location)
			fmt.Fprintf(&b, "  Suggestion: %s\n", it.Suggestion)
		}
		b.WriteByte('\n')
	}
	if len(a.Recommendations) > 0 {
		b.WriteString("## Recommendations\n")
		for i, r := range a.Recommendations {
			fmt.Fprintf(&b, "%d. %s\n", i+1, r)
		}
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

// FallbackDocument is the offline report: the checked method, counts per
// severity and every violation's report block.
func FallbackDocument(g *types.CallGraph, vs []types.Violation) string {
	var b strings.Builder
	b.WriteString("# Architecture check report\n\n")
	b.WriteString("## Summary\n")
	fmt.Fprintf(&b, "Method: %s\n", g.Root.Signature())
	fmt.Fprintf(&b, "Methods in chain: %d\n", g.TotalMethodCount())
	fmt.Fprintf(&b, "Violations: %d", len(vs))

	counts := map[int]int{}
	for _, v := range vs {
		counts[v.Severity.Level()]++
	}
	if len(vs) > 0 {
		fmt.Fprintf(&b, " (high %d, medium %d, low %d)", counts[3], counts[2], counts[1])
	}
	b.WriteString("\n")

	if len(vs) > 0 {
		b.WriteString("\n## Details\n")
		for _, v := range vs {
			b.WriteString(v.Report())
			b.WriteByte('\n')
		}
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
