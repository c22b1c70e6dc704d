// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package advisor

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/petar-djukic/layercheck/pkg/types"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

// MaxPromptLength bounds the review context sent to the model. Longer
// contexts are summarized and then truncated.
const MaxPromptLength = 4000

const (
	summaryDepths = 3 // depths shown in a summarized chain
	summaryWidth  = 3 // methods shown per depth
	keepHead      = 500
	keepTail      = 200
)

// promptData holds the values injected into advise.tmpl.
type promptData struct {
	Rules      []string
	Chain      string
	Violations []string
}

var layerRules = []string{
	"layers: presentation -> application -> domain -> infrastructure",
	"presentation calls application, and infrastructure only for shared helpers",
	"application calls domain and infrastructure",
	"domain reaches infrastructure through support interfaces",
	"infrastructure implements the domain support interfaces",
}

var ruleFragments = []struct {
	kind  types.ViolationType
	rules []string
}{
	{types.NamingViolation, []string{"naming: method names use lowerCamelCase, type names start with an uppercase letter"}},
	{types.LayerViolation, layerRules},
	{types.SignatureViolation, []string{"signatures: at most five parameters and an explicit return type"}},
}

// RelevantRules returns the rule statements matching the violation types
// present in vs, or a general set when vs is empty.
func RelevantRules(vs []types.Violation) []string {
	present := make(map[types.ViolationType]bool, len(vs))
	for _, v := range vs {
		present[v.Type] = true
	}
	var out []string
	for _, f := range ruleFragments {
		if present[f.kind] {
			out = append(out, f.rules...)
		}
	}
	if len(out) == 0 {
		for _, f := range ruleFragments {
			out = append(out, f.rules[0])
		}
	}
	return out
}

// SummarizeChain renders the root and at most three methods for each of
// the first three depths.
func SummarizeChain(g *types.CallGraph) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Root: %s\n", g.Root.Signature())
	for d := 1; d <= summaryDepths && d <= g.MaxDepth(); d++ {
		methods := g.At(d)
		if len(methods) == 0 {
			continue
		}
		n := min(len(methods), summaryWidth)
		sigs := make([]string, n)
		for i := 0; i < n; i++ {
			sigs[i] = methods[i].Signature()
		}
		fmt.Fprintf(&b, "Depth %d: %s", d, strings.Join(sigs, ", "))
		if len(methods) > n {
			fmt.Fprintf(&b, " (+%d more)", len(methods)-n)
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

// BuildPrompt renders the review prompt for g and vs.
func BuildPrompt(g *types.CallGraph, vs []types.Violation) (string, error) {
	data := promptData{
		Rules: RelevantRules(vs),
		Chain: strings.TrimRight(g.TreeString(), "\n"),
	}
	for _, v := range vs {
		data.Violations = append(data.Violations, strings.TrimRight(v.Report(), "\n"))
	}

	body, err := render("advise.tmpl", data)
	if err != nil {
		return "", err
	}
	if len(body) > MaxPromptLength {
		data.Chain = SummarizeChain(g)
		if body, err = render("advise.tmpl", data); err != nil {
			return "", err
		}
	}
	if len(body) > MaxPromptLength {
		body = truncate(body)
	}

	request, err := render("request.tmpl", nil)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(body, "\n") + "\n\n" + request, nil
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("executing %s: %w", name, err)
	}
	return buf.String(), nil
}

// truncate keeps the head and tail of s around an elision marker.
func truncate(s string) string {
	return s[:keepHead] + "\n... (truncated) ...\n" + s[len(s)-keepTail:]
}
