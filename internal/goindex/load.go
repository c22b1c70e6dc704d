// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package goindex builds a resolve.Index from a Go module using the type
// checker. Methods are indexed under "importpath.Type"; package-level
// functions under the bare import path.
//
// Layer markers come from doc directives of the form //arch:Name on a
// type or function declaration.
package goindex

import (
	"context"
	"errors"
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"log/slog"
	"path/filepath"
	"strings"

	"golang.org/x/tools/go/packages"

	"github.com/petar-djukic/layercheck/internal/resolve"
	lctypes "github.com/petar-djukic/layercheck/pkg/types"
)

// ErrNoPackages indicates the pattern matched nothing loadable.
var ErrNoPackages = errors.New("no Go packages found")

const loadMode = packages.NeedName | packages.NeedFiles | packages.NeedSyntax |
	packages.NeedTypes | packages.NeedTypesInfo | packages.NeedImports | packages.NeedDeps

// directivePrefix introduces a layer marker in a doc comment.
const directivePrefix = "//arch:"

// Load type-checks the packages under dir and indexes their functions,
// methods, interface methods, calls and interface implementations. Packages
// with type errors are indexed as far as the checker got.
func Load(ctx context.Context, dir string, logger *slog.Logger) (*resolve.Index, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "goindex")

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving directory: %w", err)
	}
	cfg := &packages.Config{
		Mode:    loadMode,
		Context: ctx,
		Dir:     absDir,
	}
	pkgs, err := packages.Load(cfg, "./...")
	if err != nil {
		return nil, fmt.Errorf("loading packages: %w", err)
	}
	if len(pkgs) == 0 {
		return nil, ErrNoPackages
	}

	l := &loader{ix: resolve.NewIndex(), root: absDir, logger: logger}
	for _, pkg := range pkgs {
		for _, e := range pkg.Errors {
			logger.Warn("package error", "package", pkg.PkgPath, "error", e.Msg)
		}
		if pkg.Types == nil || pkg.TypesInfo == nil || len(pkg.Syntax) == 0 {
			continue
		}
		l.pkgs = append(l.pkgs, pkg)
	}
	if len(l.pkgs) == 0 {
		return nil, ErrNoPackages
	}

	for _, pkg := range l.pkgs {
		l.declare(pkg)
	}
	for _, pkg := range l.pkgs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		l.link(pkg)
	}
	l.implementations()

	logger.Info("index loaded", "packages", len(l.pkgs), "symbols", l.ix.Len())
	return l.ix, nil
}

type loader struct {
	ix     *resolve.Index
	root   string
	pkgs   []*packages.Package
	logger *slog.Logger
}

// declare adds every function, method and interface method of pkg.
func (l *loader) declare(pkg *packages.Package) {
	for _, file := range pkg.Syntax {
		for _, decl := range file.Decls {
			switch d := decl.(type) {
			case *ast.FuncDecl:
				fn, ok := pkg.TypesInfo.Defs[d.Name].(*types.Func)
				if !ok {
					continue
				}
				l.ix.Add(l.symbol(pkg, fn, directives(d.Doc), d.Body != nil))
			case *ast.GenDecl:
				if d.Tok != token.TYPE {
					continue
				}
				for _, spec := range d.Specs {
					ts := spec.(*ast.TypeSpec)
					l.declareType(pkg, ts, d.Doc)
				}
			}
		}
	}
}

func (l *loader) declareType(pkg *packages.Package, ts *ast.TypeSpec, groupDoc *ast.CommentGroup) {
	obj, ok := pkg.TypesInfo.Defs[ts.Name].(*types.TypeName)
	if !ok {
		return
	}
	name := pkg.PkgPath + "." + obj.Name()
	markers := directives(ts.Doc)
	if len(markers) == 0 && groupDoc != nil {
		markers = directives(groupDoc)
	}
	if len(markers) > 0 {
		l.ix.SetTypeMarkers(name, markers)
	}

	iface, ok := obj.Type().Underlying().(*types.Interface)
	if !ok {
		return
	}
	for i := 0; i < iface.NumExplicitMethods(); i++ {
		l.ix.Add(l.symbol(pkg, iface.ExplicitMethod(i), nil, false))
	}
}

// link records the calls made inside every function body of pkg.
func (l *loader) link(pkg *packages.Package) {
	for _, file := range pkg.Syntax {
		for _, decl := range file.Decls {
			fd, ok := decl.(*ast.FuncDecl)
			if !ok || fd.Body == nil {
				continue
			}
			caller, ok := pkg.TypesInfo.Defs[fd.Name].(*types.Func)
			if !ok {
				continue
			}
			from := caller.FullName()
			ast.Inspect(fd.Body, func(n ast.Node) bool {
				call, ok := n.(*ast.CallExpr)
				if !ok {
					return true
				}
				callee := calledFunc(pkg.TypesInfo, call)
				if callee == nil {
					return true
				}
				// Calls into packages outside the load set are not indexed.
				if err := l.ix.AddCall(from, callee.FullName()); err != nil {
					l.logger.Debug("skipping call", "from", from, "to", callee.FullName())
				}
				return true
			})
		}
	}
}

// implementations links interface methods to the concrete methods that
// satisfy them across the loaded packages.
func (l *loader) implementations() {
	var ifaces, concrete []*types.Named
	for _, pkg := range l.pkgs {
		scope := pkg.Types.Scope()
		for _, name := range scope.Names() {
			tn, ok := scope.Lookup(name).(*types.TypeName)
			if !ok || tn.IsAlias() {
				continue
			}
			named, ok := tn.Type().(*types.Named)
			if !ok || named.TypeParams().Len() > 0 {
				continue
			}
			if types.IsInterface(named) {
				ifaces = append(ifaces, named)
			} else {
				concrete = append(concrete, named)
			}
		}
	}

	for _, in := range ifaces {
		iface := in.Underlying().(*types.Interface)
		if iface.NumMethods() == 0 {
			continue
		}
		for _, c := range concrete {
			var recv types.Type = c
			if !types.Implements(recv, iface) {
				recv = types.NewPointer(c)
				if !types.Implements(recv, iface) {
					continue
				}
			}
			for i := 0; i < iface.NumMethods(); i++ {
				abstract := iface.Method(i)
				obj, _, _ := types.LookupFieldOrMethod(recv, true, abstract.Pkg(), abstract.Name())
				impl, ok := obj.(*types.Func)
				if !ok {
					continue
				}
				if err := l.ix.AddOverride(abstract.FullName(), impl.FullName()); err != nil {
					l.logger.Debug("skipping implementation", "interface", abstract.FullName(), "impl", impl.FullName())
				}
			}
		}
	}
}

func (l *loader) symbol(pkg *packages.Package, fn *types.Func, markers []string, hasBody bool) lctypes.Symbol {
	sig := fn.Type().(*types.Signature)
	qual := func(p *types.Package) string {
		if p == pkg.Types {
			return ""
		}
		return p.Name()
	}

	containing := pkg.PkgPath
	if recv := sig.Recv(); recv != nil {
		if named := receiverNamed(recv.Type()); named != nil {
			containing = pkg.PkgPath + "." + named.Obj().Name()
		}
	}

	params := make([]lctypes.Param, 0, sig.Params().Len())
	for i := 0; i < sig.Params().Len(); i++ {
		p := sig.Params().At(i)
		typ := types.TypeString(p.Type(), qual)
		if sig.Variadic() && i == sig.Params().Len()-1 {
			if s, ok := p.Type().(*types.Slice); ok {
				typ = "..." + types.TypeString(s.Elem(), qual)
			}
		}
		params = append(params, lctypes.Param{Name: p.Name(), Type: typ})
	}

	pos := pkg.Fset.Position(fn.Pos())
	file := pos.Filename
	if rel, err := filepath.Rel(l.root, file); err == nil {
		file = rel
	}

	return lctypes.Symbol{
		ID:             fn.FullName(),
		Name:           fn.Name(),
		ContainingType: containing,
		Namespace:      pkg.PkgPath,
		ReturnType:     results(sig.Results(), qual),
		Params:         params,
		Markers:        markers,
		HasBody:        hasBody,
		File:           file,
		Line:           pos.Line,
	}
}

// calledFunc returns the declared function a call expression invokes, or
// nil for builtins, conversions and calls through function values.
func calledFunc(info *types.Info, call *ast.CallExpr) *types.Func {
	var obj types.Object
	switch fun := ast.Unparen(call.Fun).(type) {
	case *ast.Ident:
		obj = info.Uses[fun]
	case *ast.SelectorExpr:
		if sel := info.Selections[fun]; sel != nil {
			obj = sel.Obj()
		} else {
			obj = info.Uses[fun.Sel]
		}
	case *ast.IndexExpr:
		obj = genericTarget(info, fun.X)
	case *ast.IndexListExpr:
		obj = genericTarget(info, fun.X)
	}
	fn, ok := obj.(*types.Func)
	if !ok {
		return nil
	}
	return fn.Origin()
}

func genericTarget(info *types.Info, x ast.Expr) types.Object {
	switch e := x.(type) {
	case *ast.Ident:
		return info.Uses[e]
	case *ast.SelectorExpr:
		return info.Uses[e.Sel]
	}
	return nil
}

func receiverNamed(t types.Type) *types.Named {
	if p, ok := t.(*types.Pointer); ok {
		t = p.Elem()
	}
	named, _ := t.(*types.Named)
	return named
}

func results(tuple *types.Tuple, qual types.Qualifier) string {
	switch tuple.Len() {
	case 0:
		return ""
	case 1:
		return types.TypeString(tuple.At(0).Type(), qual)
	}
	parts := make([]string, tuple.Len())
	for i := 0; i < tuple.Len(); i++ {
		parts[i] = types.TypeString(tuple.At(i).Type(), qual)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// directives extracts //arch:Name markers from a doc comment.
func directives(doc *ast.CommentGroup) []string {
	if doc == nil {
		return nil
	}
	var out []string
	for _, c := range doc.List {
		if !strings.HasPrefix(c.Text, directivePrefix) {
			continue
		}
		name := strings.TrimSpace(strings.TrimPrefix(c.Text, "//"))
		if name != "arch:" {
			out = append(out, name)
		}
	}
	return out
}
