// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package javaindex

import (
	"context"
	"errors"
	"strings"
	"unicode"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"

	"github.com/petar-djukic/layercheck/pkg/types"
)

// ErrParse indicates tree-sitter produced no tree for a file.
var ErrParse = errors.New("java parse failed")

// File is the indexable content of one compilation unit.
type File struct {
	Package string
	// Imports maps simple names to qualified names for single-type imports.
	Imports map[string]string
	// Wildcards lists packages imported with ".*".
	Wildcards []string
	Types     []TypeDecl
}

// TypeDecl is a class, interface, enum or record.
type TypeDecl struct {
	Name       string // Simple name; nested types are "Outer.Inner"
	Interface  bool
	Markers    []string
	Super      string
	Interfaces []string
	Methods    []Method
	Line       int
}

// Method is a declared method of a TypeDecl.
type Method struct {
	Name       string
	ReturnType string
	Params     []types.Param
	Markers    []string
	HasBody    bool
	Line       int
	Calls      []Call
}

// Call is one method invocation inside a method body.
type Call struct {
	// Type is the receiver's declared type as written, or "" for calls on
	// the enclosing type.
	Type string
	// Super marks super.m() calls.
	Super bool
	Name  string
	Argc  int
}

// ParseFile extracts package, imports, types, methods and calls from
// Java source.
func ParseFile(ctx context.Context, src []byte) (*File, error) {
	root, err := sitter.ParseCtx(ctx, src, java.GetLanguage())
	if err != nil {
		return nil, errors.Join(ErrParse, err)
	}
	if root == nil {
		return nil, ErrParse
	}

	p := &fileParser{src: src, file: &File{Imports: make(map[string]string)}}
	for i := 0; i < int(root.NamedChildCount()); i++ {
		n := root.NamedChild(i)
		switch n.Type() {
		case "package_declaration":
			p.file.Package = p.nameOf(n)
		case "import_declaration":
			p.importDecl(n)
		case "class_declaration", "interface_declaration", "enum_declaration", "record_declaration":
			p.typeDecl(n, "")
		}
	}
	return p.file, nil
}

type fileParser struct {
	src  []byte
	file *File
}

func (p *fileParser) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(p.src)
}

// nameOf returns the first identifier or scoped identifier child of n.
func (p *fileParser) nameOf(n *sitter.Node) string {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() == "scoped_identifier" || c.Type() == "identifier" {
			return p.text(c)
		}
	}
	return ""
}

func (p *fileParser) importDecl(n *sitter.Node) {
	name := p.nameOf(n)
	if name == "" {
		return
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.Child(i).Type() == "asterisk" {
			p.file.Wildcards = append(p.file.Wildcards, name)
			return
		}
	}
	if strings.HasPrefix(strings.TrimSpace(p.text(n)), "import static") {
		return
	}
	p.file.Imports[types.SimpleTypeName(name)] = name
}

func (p *fileParser) typeDecl(n *sitter.Node, outer string) {
	name := p.text(n.ChildByFieldName("name"))
	if name == "" {
		return
	}
	if outer != "" {
		name = outer + "." + name
	}
	td := TypeDecl{
		Name:      name,
		Interface: n.Type() == "interface_declaration",
		Line:      int(n.StartPoint().Row) + 1,
	}
	fields := make(map[string]string)

	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "modifiers":
			td.Markers = p.annotations(c)
		case "superclass":
			if c.NamedChildCount() > 0 {
				td.Super = baseType(p.text(c.NamedChild(0)))
			}
		case "super_interfaces", "extends_interfaces":
			td.Interfaces = append(td.Interfaces, p.typeList(c)...)
		}
	}

	body := n.ChildByFieldName("body")
	if body == nil {
		p.file.Types = append(p.file.Types, td)
		return
	}
	members := p.members(body)

	// Fields first so method bodies can resolve them regardless of order.
	for _, m := range members {
		if m.Type() == "field_declaration" || m.Type() == "constant_declaration" {
			typ := baseType(p.text(m.ChildByFieldName("type")))
			for j := 0; j < int(m.NamedChildCount()); j++ {
				d := m.NamedChild(j)
				if d.Type() == "variable_declarator" {
					fields[p.text(d.ChildByFieldName("name"))] = typ
				}
			}
		}
	}

	var nested []*sitter.Node
	for _, m := range members {
		switch m.Type() {
		case "method_declaration":
			td.Methods = append(td.Methods, p.method(m, fields))
		case "class_declaration", "interface_declaration", "enum_declaration", "record_declaration":
			nested = append(nested, m)
		}
	}
	p.file.Types = append(p.file.Types, td)
	for _, m := range nested {
		p.typeDecl(m, name)
	}
}

// members returns the declarations in a type body. Enum bodies keep their
// members in a nested enum_body_declarations node.
func (p *fileParser) members(body *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(body.NamedChildCount()); i++ {
		c := body.NamedChild(i)
		if c.Type() == "enum_body_declarations" {
			out = append(out, p.members(c)...)
			continue
		}
		out = append(out, c)
	}
	return out
}

func (p *fileParser) typeList(n *sitter.Node) []string {
	var out []string
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() == "type_list" {
			for j := 0; j < int(c.NamedChildCount()); j++ {
				out = append(out, baseType(p.text(c.NamedChild(j))))
			}
		}
	}
	return out
}

func (p *fileParser) annotations(mods *sitter.Node) []string {
	var out []string
	for i := 0; i < int(mods.NamedChildCount()); i++ {
		c := mods.NamedChild(i)
		if c.Type() == "marker_annotation" || c.Type() == "annotation" {
			if name := p.text(c.ChildByFieldName("name")); name != "" {
				out = append(out, "@"+name)
			}
		}
	}
	return out
}

func (p *fileParser) method(n *sitter.Node, fields map[string]string) Method {
	m := Method{
		Name:       p.text(n.ChildByFieldName("name")),
		ReturnType: p.text(n.ChildByFieldName("type")),
		Line:       int(n.StartPoint().Row) + 1,
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c.Type() == "modifiers" {
			m.Markers = p.annotations(c)
		}
	}

	locals := make(map[string]string)
	if params := n.ChildByFieldName("parameters"); params != nil {
		for i := 0; i < int(params.NamedChildCount()); i++ {
			param, ok := p.param(params.NamedChild(i))
			if !ok {
				continue
			}
			m.Params = append(m.Params, param)
			locals[param.Name] = baseType(param.Type)
		}
	}

	body := n.ChildByFieldName("body")
	if body == nil {
		return m
	}
	m.HasBody = true
	p.collectLocals(body, locals)
	p.collectCalls(body, locals, fields, &m.Calls)
	return m
}

func (p *fileParser) param(n *sitter.Node) (types.Param, bool) {
	switch n.Type() {
	case "formal_parameter":
		return types.Param{
			Name: p.text(n.ChildByFieldName("name")),
			Type: p.text(n.ChildByFieldName("type")),
		}, true
	case "spread_parameter":
		var typ, name string
		for i := 0; i < int(n.NamedChildCount()); i++ {
			c := n.NamedChild(i)
			switch {
			case c.Type() == "modifiers":
			case c.Type() == "variable_declarator":
				name = p.text(c.ChildByFieldName("name"))
			case typ == "":
				typ = p.text(c)
			}
		}
		return types.Param{Name: name, Type: typ + "..."}, true
	}
	return types.Param{}, false
}

// collectLocals records the declared type of every local variable and
// enhanced-for variable in a body.
func (p *fileParser) collectLocals(n *sitter.Node, locals map[string]string) {
	switch n.Type() {
	case "local_variable_declaration":
		typ := baseType(p.text(n.ChildByFieldName("type")))
		if typ != "var" {
			for i := 0; i < int(n.NamedChildCount()); i++ {
				if d := n.NamedChild(i); d.Type() == "variable_declarator" {
					locals[p.text(d.ChildByFieldName("name"))] = typ
				}
			}
		}
	case "enhanced_for_statement":
		typ := baseType(p.text(n.ChildByFieldName("type")))
		if name := p.text(n.ChildByFieldName("name")); name != "" && typ != "var" {
			locals[name] = typ
		}
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		p.collectLocals(n.NamedChild(i), locals)
	}
}

func (p *fileParser) collectCalls(n *sitter.Node, locals, fields map[string]string, out *[]Call) {
	if n.Type() == "method_invocation" {
		if call, ok := p.call(n, locals, fields); ok {
			*out = append(*out, call)
		}
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		p.collectCalls(n.NamedChild(i), locals, fields, out)
	}
}

// call resolves the receiver of an invocation to a declared type. Chained
// calls and untyped receivers are skipped.
func (p *fileParser) call(n *sitter.Node, locals, fields map[string]string) (Call, bool) {
	c := Call{Name: p.text(n.ChildByFieldName("name"))}
	if args := n.ChildByFieldName("arguments"); args != nil {
		c.Argc = int(args.NamedChildCount())
	}
	obj := n.ChildByFieldName("object")
	if obj == nil {
		return c, true
	}
	switch obj.Type() {
	case "this":
		return c, true
	case "super":
		c.Super = true
		return c, true
	case "identifier":
		name := p.text(obj)
		if t, ok := locals[name]; ok {
			c.Type = t
			return c, true
		}
		if t, ok := fields[name]; ok {
			c.Type = t
			return c, true
		}
		if isTypeName(name) {
			c.Type = name
			return c, true
		}
	case "field_access":
		if o := obj.ChildByFieldName("object"); o != nil && o.Type() == "this" {
			if t, ok := fields[p.text(obj.ChildByFieldName("field"))]; ok {
				c.Type = t
				return c, true
			}
		}
	case "scoped_identifier":
		// Fully qualified static call such as com.acme.Util.format().
		c.Type = p.text(obj)
		return c, true
	}
	return c, false
}

// baseType strips type arguments and array brackets.
func baseType(t string) string {
	t = strings.TrimSpace(t)
	if i := strings.IndexByte(t, '<'); i >= 0 {
		t = t[:i]
	}
	t = strings.TrimSuffix(t, "...")
	for strings.HasSuffix(t, "[]") {
		t = strings.TrimSuffix(t, "[]")
	}
	return strings.TrimSpace(t)
}

func isTypeName(s string) bool {
	for _, r := range s {
		return unicode.IsUpper(r)
	}
	return false
}
