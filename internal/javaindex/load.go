// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package javaindex builds a resolve.Index from Java sources with
// tree-sitter. Receivers are typed from parameters, locals and fields;
// chained calls are not followed.
package javaindex

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/petar-djukic/layercheck/internal/resolve"
	"github.com/petar-djukic/layercheck/internal/scan"
	"github.com/petar-djukic/layercheck/pkg/types"
)

// DefaultCacheSize bounds the parsed-file cache.
const DefaultCacheSize = 4096

type cacheEntry struct {
	modTime time.Time
	size    int64
	file    *File
}

// Loader indexes Java source trees. Parsed files are cached by path and
// modification time, so reloading an unchanged tree skips parsing.
type Loader struct {
	cache       *lru.Cache[string, cacheEntry]
	concurrency int
	logger      *slog.Logger
	parses      atomic.Int64
	hits        atomic.Int64
}

// Stats counts parser work since the loader was created.
type Stats struct {
	Parses    int64
	CacheHits int64
}

// NewLoader creates a loader with room for cacheSize parsed files. A
// non-positive size uses DefaultCacheSize.
func NewLoader(cacheSize, concurrency int, logger *slog.Logger) (*Loader, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	cache, err := lru.New[string, cacheEntry](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating parse cache: %w", err)
	}
	return &Loader{cache: cache, concurrency: concurrency, logger: logger.With("component", "javaindex")}, nil
}

// Stats returns parser counters.
func (l *Loader) Stats() Stats {
	return Stats{Parses: l.parses.Load(), CacheHits: l.hits.Load()}
}

// Load parses every .java file under dir and links calls, type markers and
// overrides into a fresh index.
func (l *Loader) Load(ctx context.Context, dir string) (*resolve.Index, error) {
	res, err := scan.Dir(ctx, dir, scan.Options{Extensions: []string{".java"}, Concurrency: l.concurrency}, l.parse)
	if err != nil {
		return nil, err
	}
	for _, fe := range res.Errors {
		l.logger.Warn("skipping file", "file", fe.FilePath, "error", fe.Err)
	}

	b := newBuilder()
	for _, rel := range res.Paths() {
		b.addFile(rel, res.Files[rel])
	}
	b.link(l.logger)

	l.logger.Info("index loaded", "files", len(res.Files), "symbols", b.ix.Len())
	return b.ix, nil
}

func (l *Loader) parse(ctx context.Context, path string, src []byte) (*File, error) {
	info, err := os.Stat(path)
	if err == nil {
		if e, ok := l.cache.Get(path); ok && e.modTime.Equal(info.ModTime()) && e.size == info.Size() {
			l.hits.Add(1)
			return e.file, nil
		}
	}
	f, err := ParseFile(ctx, src)
	if err != nil {
		return nil, err
	}
	l.parses.Add(1)
	if info != nil {
		l.cache.Add(path, cacheEntry{modTime: info.ModTime(), size: info.Size(), file: f})
	}
	return f, nil
}

// typeEntry is a declared type with the file context needed to qualify
// names it mentions.
type typeEntry struct {
	fq      string
	decl    TypeDecl
	file    *File
	methods []types.Symbol
}

type builder struct {
	ix       *resolve.Index
	byFQ     map[string]*typeEntry
	bySimple map[string][]string
	order    []*typeEntry
}

func newBuilder() *builder {
	return &builder{
		ix:       resolve.NewIndex(),
		byFQ:     make(map[string]*typeEntry),
		bySimple: make(map[string][]string),
	}
}

func (b *builder) addFile(rel string, f *File) {
	for _, td := range f.Types {
		fq := td.Name
		if f.Package != "" {
			fq = f.Package + "." + td.Name
		}
		if _, dup := b.byFQ[fq]; dup {
			continue
		}
		te := &typeEntry{fq: fq, decl: td, file: f}
		for _, m := range td.Methods {
			sym := types.Symbol{
				ID:             methodID(fq, m),
				Name:           m.Name,
				ContainingType: fq,
				Namespace:      f.Package,
				ReturnType:     m.ReturnType,
				Params:         m.Params,
				Markers:        m.Markers,
				HasBody:        m.HasBody,
				File:           filepath.ToSlash(rel),
				Line:           m.Line,
			}
			b.ix.Add(sym)
			te.methods = append(te.methods, sym)
		}
		if len(td.Markers) > 0 {
			b.ix.SetTypeMarkers(fq, td.Markers)
		}
		b.byFQ[fq] = te
		simple := types.SimpleTypeName(fq)
		b.bySimple[simple] = append(b.bySimple[simple], fq)
		b.order = append(b.order, te)
	}
}

// link records calls and overrides once every type is known.
func (b *builder) link(logger *slog.Logger) {
	for _, te := range b.order {
		for i, m := range te.decl.Methods {
			from := te.methods[i].ID
			for _, c := range m.Calls {
				target := b.callTarget(te, c)
				if target == "" {
					continue
				}
				to, ok := b.findMethod(target, c.Name, c.Argc)
				if !ok {
					continue
				}
				if err := b.ix.AddCall(from, to); err != nil {
					logger.Debug("skipping call", "from", from, "to", to, "error", err)
				}
			}
		}
	}

	for _, te := range b.order {
		for _, super := range b.supertypes(te.fq) {
			st := b.byFQ[super]
			for _, impl := range te.methods {
				if !impl.HasBody {
					continue
				}
				for _, abstract := range st.methods {
					if abstract.Name == impl.Name && len(abstract.Params) == len(impl.Params) {
						_ = b.ix.AddOverride(abstract.ID, impl.ID)
					}
				}
			}
		}
	}
}

func (b *builder) callTarget(te *typeEntry, c Call) string {
	switch {
	case c.Super:
		return b.qualify(te.decl.Super, te)
	case c.Type == "":
		return te.fq
	default:
		return b.qualify(c.Type, te)
	}
}

// qualify maps a type name as written in te's file to a known qualified
// name, or "" when the type is outside the index.
func (b *builder) qualify(name string, te *typeEntry) string {
	if name == "" {
		return ""
	}
	if _, ok := b.byFQ[name]; ok {
		return name
	}
	f := te.file
	head, rest, nested := strings.Cut(name, ".")
	candidates := []string{}
	if fq, ok := f.Imports[head]; ok {
		if nested {
			candidates = append(candidates, fq+"."+rest)
		} else {
			candidates = append(candidates, fq)
		}
	}
	// Nested types of the enclosing type, then the enclosing package.
	candidates = append(candidates, te.fq+"."+name)
	if f.Package != "" {
		candidates = append(candidates, f.Package+"."+name)
	}
	for _, w := range f.Wildcards {
		candidates = append(candidates, w+"."+name)
	}
	for _, c := range candidates {
		if _, ok := b.byFQ[c]; ok {
			return c
		}
	}
	if fqs := b.bySimple[types.SimpleTypeName(name)]; len(fqs) == 1 {
		return fqs[0]
	}
	return ""
}

// supertypes returns the qualified supertypes of fq known to the index,
// nearest first.
func (b *builder) supertypes(fq string) []string {
	var out []string
	seen := map[string]bool{fq: true}
	queue := []string{fq}
	for len(queue) > 0 {
		cur := b.byFQ[queue[0]]
		queue = queue[1:]
		if cur == nil {
			continue
		}
		parents := append([]string{cur.decl.Super}, cur.decl.Interfaces...)
		for _, p := range parents {
			q := b.qualify(p, cur)
			if q == "" || seen[q] {
				continue
			}
			seen[q] = true
			out = append(out, q)
			queue = append(queue, q)
		}
	}
	return out
}

// findMethod looks up name on fq and then its supertypes. An overload with
// argc parameters wins over the first declared one.
func (b *builder) findMethod(fq, name string, argc int) (string, bool) {
	for _, t := range append([]string{fq}, b.supertypes(fq)...) {
		te := b.byFQ[t]
		if te == nil {
			continue
		}
		first := ""
		for _, m := range te.methods {
			if m.Name != name {
				continue
			}
			if len(m.Params) == argc || (len(m.Params) > 0 && strings.HasSuffix(m.Params[len(m.Params)-1].Type, "...")) {
				return m.ID, true
			}
			if first == "" {
				first = m.ID
			}
		}
		if first != "" {
			return first, true
		}
	}
	return "", false
}

// methodID keeps overloads apart by parameter types.
func methodID(fq string, m Method) string {
	parts := make([]string, len(m.Params))
	for i, p := range m.Params {
		parts[i] = baseType(p.Type)
	}
	return fq + "." + m.Name + "(" + strings.Join(parts, ",") + ")"
}
