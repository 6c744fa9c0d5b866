// Package phptree is the read-only façade over a tree-sitter parse tree.
// It is the only package in this module that imports tree-sitter bindings
// directly; every other component walks a tree through this interface.
package phptree

import (
	sitter "github.com/alexaandru/go-tree-sitter-bare"
)

// Range is a half-open source range using 1-based lines and 0-based
// columns, matching the convention the rest of the engine uses for
// Location (§3).
type Range struct {
	StartLine   int
	StartColumn int
	EndLine     int
	EndColumn   int
}

// Point is a single source position: 0-based line and column, matching
// LSP's convention (distinct from Range, which is 1-based on lines).
type Point struct {
	Line   int
	Column int
}

// Node is a read-only view onto one tree-sitter parse node. The zero value
// is a null node.
type Node struct {
	n       sitter.Node
	content []byte
}

// NodeFrom wraps a raw sitter.Node with the source bytes needed to answer
// Content queries.
func NodeFrom(n sitter.Node, content []byte) Node {
	return Node{n: n, content: content}
}

// IsNull reports whether the node is absent (e.g. a missing optional field).
func (nd Node) IsNull() bool { return nd.n.IsNull() }

// Kind returns the grammar's node-type tag, e.g. "class_declaration".
func (nd Node) Kind() string {
	if nd.IsNull() {
		return ""
	}
	return nd.n.Type()
}

// Content returns the source text spanned by the node.
func (nd Node) Content() string {
	if nd.IsNull() {
		return ""
	}
	return nd.n.Content(nd.content)
}

// Range returns the node's source range.
func (nd Node) Range() Range {
	if nd.IsNull() {
		return Range{}
	}
	start, end := nd.n.StartPoint(), nd.n.EndPoint()
	return Range{
		StartLine:   int(start.Row) + 1,
		StartColumn: int(start.Column),
		EndLine:     int(end.Row) + 1,
		EndColumn:   int(end.Column),
	}
}

// StartByte returns the node's start offset in the source buffer.
func (nd Node) StartByte() uint32 {
	if nd.IsNull() {
		return 0
	}
	return uint32(nd.n.StartByte())
}

// EndByte returns the node's end offset in the source buffer.
func (nd Node) EndByte() uint32 {
	if nd.IsNull() {
		return 0
	}
	return uint32(nd.n.EndByte())
}

// ChildCount returns the number of named children.
func (nd Node) ChildCount() int {
	if nd.IsNull() {
		return 0
	}
	return int(nd.n.NamedChildCount())
}

// Child returns the i'th named child.
func (nd Node) Child(i int) Node {
	if nd.IsNull() || i < 0 || i >= nd.ChildCount() {
		return Node{}
	}
	return NodeFrom(nd.n.NamedChild(uint32(i)), nd.content)
}

// Children returns every named child, in order.
func (nd Node) Children() []Node {
	n := nd.ChildCount()
	out := make([]Node, n)
	for i := 0; i < n; i++ {
		out[i] = nd.Child(i)
	}
	return out
}

// Field returns the named-child reachable via the given grammar field,
// e.g. "name", "body", "parameters".
func (nd Node) Field(name string) Node {
	if nd.IsNull() {
		return Node{}
	}
	return NodeFrom(nd.n.ChildByFieldName(name), nd.content)
}

// FieldNameAt returns the field name associated with the i'th named child,
// or "" if that child is positional.
func (nd Node) FieldNameAt(i int) string {
	if nd.IsNull() || i < 0 || i >= nd.ChildCount() {
		return ""
	}
	return nd.n.FieldNameForNamedChild(uint32(i))
}

// Parent returns the enclosing node.
func (nd Node) Parent() Node {
	if nd.IsNull() {
		return Node{}
	}
	return NodeFrom(nd.n.Parent(), nd.content)
}

// AncestorOfKind walks up from nd (inclusive) and returns the first node
// whose Kind matches one of kinds.
func (nd Node) AncestorOfKind(kinds ...string) Node {
	set := make(map[string]struct{}, len(kinds))
	for _, k := range kinds {
		set[k] = struct{}{}
	}
	for cur := nd; !cur.IsNull(); cur = cur.Parent() {
		if _, ok := set[cur.Kind()]; ok {
			return cur
		}
	}
	return Node{}
}

// EnclosingTokenAt iterates the token path from nd up to the root,
// innermost first, matching §4.A's "enclosing-token iteration."
func (nd Node) EnclosingTokenAt(fn func(Node) bool) {
	for cur := nd; !cur.IsNull(); cur = cur.Parent() {
		if !fn(cur) {
			return
		}
	}
}
