// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package resolve

import "github.com/sergi/go-diff/diffmatchpatch"

const minSuggestSimilarity = 0.5

// Suggest returns the known "Type.method" closest to the requested one,
// for diagnostics when a target does not resolve. ok is false when nothing
// is similar enough.
func (ix *Index) Suggest(className, methodName string) (best string, score float64, ok bool) {
	want := className + "." + methodName
	for _, sym := range ix.symbols {
		candidate := sym.ContainingType + "." + sym.Name
		if s := similarity(candidate, want); s > score {
			best, score = candidate, s
		}
	}
	if score < minSuggestSimilarity {
		return "", score, false
	}
	return best, score, true
}

// similarity is a Levenshtein ratio between 0.0 and 1.0.
func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(a, b, false)
	distance := dmp.DiffLevenshtein(diffs)
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	return 1.0 - float64(distance)/float64(maxLen)
}
