// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package types defines shared types used across layercheck packages.
package types

import "strings"

// Layer is the architectural tier a symbol belongs to.
type Layer string

const (
	Presentation   Layer = "PRESENTATION"   // Controllers and request handlers
	Application    Layer = "APPLICATION"    // Services orchestrating use cases
	Domain         Layer = "DOMAIN"         // Business entities and rules
	Infrastructure Layer = "INFRASTRUCTURE" // Repositories, DAOs, adapters
	Unknown        Layer = "UNKNOWN"        // Naming did not match any convention
)

// UnmarshalText accepts layer names in any case. Config loaders lowercase
// map keys.
func (l *Layer) UnmarshalText(text []byte) error {
	*l = Layer(strings.ToUpper(string(text)))
	return nil
}

// Known reports whether the layer takes part in layer-dependency checks.
func (l Layer) Known() bool {
	switch l {
	case Presentation, Application, Domain, Infrastructure:
		return true
	default:
		return false
	}
}

// Param is one declared parameter of a method.
type Param struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// String renders the parameter as "name Type", or just the type when the
// parameter is unnamed.
func (p Param) String() string {
	if p.Name == "" {
		return p.Type
	}
	return p.Name + " " + p.Type
}

// Symbol is a resolvable method or function declaration as seen by a
// resolver. Resolvers own their symbols; the analysis core never mutates
// one.
type Symbol struct {
	ID             string   // Resolver-defined unique identity
	Name           string   // Method or function name
	ContainingType string   // Qualified name of the declaring type
	Namespace      string   // Package or import path
	ReturnType     string   // Rendered result type, empty when none
	Params         []Param  // Ordered parameters
	Markers        []string // Annotations or arch: directives on the method
	HasBody        bool     // False for interface or abstract methods
	File           string   // Source file path
	Line           int      // Line number (1-based)
}

// Metadata is what a layer classifier sees of a symbol.
type Metadata struct {
	Markers        []string // Markers on the containing type
	ContainingType string
	Namespace      string
}

// SimpleTypeName returns the part of a qualified type name after the last
// "." separator.
func SimpleTypeName(qualified string) string {
	if i := strings.LastIndex(qualified, "."); i >= 0 {
		return qualified[i+1:]
	}
	return qualified
}

// PackageOf returns the part of a qualified type name before the last "."
// separator, or "" when the name is unqualified.
func PackageOf(qualified string) string {
	if i := strings.LastIndex(qualified, "."); i >= 0 {
		return qualified[:i]
	}
	return ""
}
