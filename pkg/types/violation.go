// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package types

import (
	"fmt"
	"strings"
)

// ViolationType tags the rule family a violation came from.
type ViolationType string

const (
	NamingViolation    ViolationType = "NAMING_VIOLATION"
	SignatureViolation ViolationType = "SIGNATURE_VIOLATION"
	LayerViolation     ViolationType = "LAYER_VIOLATION"
)

// Severity ranks violations. Unknown values rank as low.
type Severity string

const (
	High   Severity = "high"
	Medium Severity = "medium"
	Low    Severity = "low"
)

// Level returns 3, 2 or 1 for high, medium and low.
func (s Severity) Level() int {
	switch Severity(strings.ToLower(string(s))) {
	case High:
		return 3
	case Medium:
		return 2
	default:
		return 1
	}
}

// Violation is one detected deviation from a naming, signature or
// layer-dependency rule.
type Violation struct {
	Type          ViolationType `json:"type"`
	Description   string        `json:"description"`
	Location      string        `json:"location"`
	Suggestion    string        `json:"suggestion"`
	Severity      Severity      `json:"severity"`
	RuleReference string        `json:"ruleReference,omitempty"`
}

// Report renders the violation as a display block.
func (v Violation) Report() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s\n", strings.ToUpper(string(v.Severity)), v.Description)
	fmt.Fprintf(&b, "Location: %s\n", v.Location)
	fmt.Fprintf(&b, "Suggestion: %s\n", v.Suggestion)
	if v.RuleReference != "" {
		fmt.Fprintf(&b, "(Rule: %s)\n", v.RuleReference)
	}
	return b.String()
}
