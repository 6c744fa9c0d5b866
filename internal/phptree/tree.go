package phptree

import (
	sitter "github.com/alexaandru/go-tree-sitter-bare"
)

// Tree is a read-only façade over a parsed tree-sitter tree plus the
// source bytes it was parsed from.
type Tree struct {
	raw     *sitter.Tree
	content []byte
}

// NewTree wraps a raw tree-sitter tree.
func NewTree(raw *sitter.Tree, content []byte) Tree {
	return Tree{raw: raw, content: content}
}

// Root returns the tree's root node.
func (t Tree) Root() Node {
	if t.raw == nil {
		return Node{}
	}
	return NodeFrom(t.raw.RootNode(), t.content)
}

// NodeAt returns the smallest named node spanning the given 0-based
// line/column position.
func (t Tree) NodeAt(p Point) Node {
	if t.raw == nil {
		return Node{}
	}
	pt := sitter.Point{Row: uint(p.Line), Column: uint(p.Column)}
	return NodeFrom(t.raw.RootNode().NamedDescendantForPointRange(pt, pt), t.content)
}

// NodeInByteRange returns the smallest named node spanning [start, end).
func (t Tree) NodeInByteRange(start, end uint32) Node {
	if t.raw == nil {
		return Node{}
	}
	return NodeFrom(t.raw.RootNode().NamedDescendantForByteRange(start, end), t.content)
}

// Visitor drives a structural traversal. Each callback is optional
// (nil is skipped). ShouldDescend, when set, gates recursion into a
// node's children; the traversal otherwise descends into every node.
type Visitor struct {
	Preorder      func(Node)
	Postorder     func(Node)
	Inorder       func(Node, int) // node, child index just visited
	ShouldDescend func(Node) bool
}

// Walk performs a depth-first traversal of n using v. Traversal is purely
// structural: visitors carry their own state across calls.
func Walk(n Node, v Visitor) {
	if n.IsNull() {
		return
	}
	if v.Preorder != nil {
		v.Preorder(n)
	}
	descend := true
	if v.ShouldDescend != nil {
		descend = v.ShouldDescend(n)
	}
	if descend {
		count := n.ChildCount()
		for i := 0; i < count; i++ {
			Walk(n.Child(i), v)
			if v.Inorder != nil {
				v.Inorder(n, i)
			}
		}
	}
	if v.Postorder != nil {
		v.Postorder(n)
	}
}
