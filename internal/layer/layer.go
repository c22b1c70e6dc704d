// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package layer maps symbol metadata to an architectural layer.
package layer

import (
	"strings"

	"github.com/petar-djukic/layercheck/pkg/types"
)

// Classifier assigns a layer to a symbol from its metadata.
type Classifier interface {
	Classify(md types.Metadata) types.Layer
}

// DefaultControllerMarkers are the marker names that identify a
// presentation-layer type.
var DefaultControllerMarkers = []string{"RestController", "Controller"}

// Heuristic classifies by marker names, type name suffixes and namespace
// segments. Symbols whose naming diverges from the conventions come back
// as Unknown.
type Heuristic struct {
	ControllerMarkers []string
	// ServiceMarkers identify application-layer types by marker. Checked
	// after the controller rules. Empty by default.
	ServiceMarkers []string
	// DomainSegments are extra namespace segments that mark the domain
	// layer, checked after the built-in rules. Empty by default.
	DomainSegments []string
}

// NewHeuristic returns a Heuristic with the default controller markers.
func NewHeuristic() *Heuristic {
	return &Heuristic{ControllerMarkers: DefaultControllerMarkers}
}

// Classify implements Classifier.
func (h *Heuristic) Classify(md types.Metadata) types.Layer {
	typeName := types.SimpleTypeName(md.ContainingType)
	ns := md.Namespace
	if ns == "" {
		ns = types.PackageOf(md.ContainingType)
	}

	if h.anyMarker(md.Markers, h.ControllerMarkers) {
		return types.Presentation
	}
	switch {
	case strings.HasSuffix(typeName, "Controller"):
		return types.Presentation
	case HasSegment(ns, "controller"):
		return types.Presentation
	case h.anyMarker(md.Markers, h.ServiceMarkers):
		return types.Application
	case strings.HasSuffix(typeName, "Service"), HasSegment(ns, "service"):
		return types.Application
	case strings.HasSuffix(typeName, "Repository"), strings.HasSuffix(typeName, "Dao"),
		HasSegment(ns, "repository"), HasSegment(ns, "dao"):
		return types.Infrastructure
	}
	for _, seg := range h.DomainSegments {
		if HasSegment(ns, seg) {
			return types.Domain
		}
	}
	return types.Unknown
}

// anyMarker reports whether a marker's qualified name ends with one of
// names. A leading "@" or "arch:" is ignored.
func (h *Heuristic) anyMarker(markers, names []string) bool {
	for _, m := range markers {
		m = strings.TrimPrefix(m, "@")
		m = strings.TrimPrefix(m, "arch:")
		for _, want := range names {
			if strings.HasSuffix(m, want) {
				return true
			}
		}
	}
	return false
}

// HasSegment reports whether ns contains seg introduced by a "." or "/"
// separator. It is a substring test, so ".controllers" also matches
// "controller".
func HasSegment(ns, seg string) bool {
	return strings.Contains(ns, "."+seg) || strings.Contains(ns, "/"+seg)
}

// ClassifyName infers a layer from substrings of a class name alone. It is
// used when no resolver metadata is available.
func ClassifyName(className string) types.Layer {
	switch {
	case strings.Contains(className, "Controller"):
		return types.Presentation
	case strings.Contains(className, "Service"):
		return types.Application
	case strings.Contains(className, "Repository"), strings.Contains(className, "Dao"):
		return types.Infrastructure
	default:
		return types.Unknown
	}
}
