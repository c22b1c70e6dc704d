// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package filter decides which qualified class names belong in a call graph.
package filter

import "strings"

// DefaultExcludes covers standard-library and common third-party namespace
// roots for JVM and Go code.
var DefaultExcludes = []string{
	"java.", "javax.", "jakarta.", "jdk.", "sun.", "kotlin.",
	"org.springframework.", "org.jetbrains.", "com.intellij.",
	"com.fasterxml.", "com.google.", "org.apache.", "org.slf4j.",
	"ch.qos.logback.", "org.hibernate.", "org.mybatis.", "org.junit.",
	"org.testng.",
	"golang.org/x/", "google.golang.org/", "github.com/stretchr/",
	"github.com/spf13/",
}

// PackageFilter keeps or drops qualified names by prefix. Excludes are
// checked first; a configured include list then acts as an allowlist.
type PackageFilter struct {
	excludes []string
	includes []string
}

// New returns a filter. A nil excludes slice selects DefaultExcludes; pass
// an empty non-nil slice to exclude nothing.
func New(includes, excludes []string) *PackageFilter {
	if excludes == nil {
		excludes = DefaultExcludes
	}
	return &PackageFilter{
		excludes: clean(excludes),
		includes: clean(includes),
	}
}

// Keep reports whether qualifiedClassName passes the filter.
func (f *PackageFilter) Keep(qualifiedClassName string) bool {
	for _, p := range f.excludes {
		if strings.HasPrefix(qualifiedClassName, p) {
			return false
		}
	}
	if len(f.includes) == 0 {
		return true
	}
	for _, p := range f.includes {
		if strings.HasPrefix(qualifiedClassName, p) {
			return true
		}
	}
	return false
}

// Excludes returns the configured exclude prefixes.
func (f *PackageFilter) Excludes() []string { return append([]string(nil), f.excludes...) }

// Includes returns the configured include prefixes.
func (f *PackageFilter) Includes() []string { return append([]string(nil), f.includes...) }

// ParseList splits a comma-separated prefix list, dropping blanks.
func ParseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func clean(in []string) []string {
	out := make([]string, 0, len(in))
	for _, p := range in {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
