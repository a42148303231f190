/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

// Package tree provides the parse tree produced by the engine and its
// JSON and YAML encodings.
package tree

import (
	"fmt"
	"strings"
)

// Kind identifies what produced a node.
type Kind string

const (
	// KindRule is a named grammar rule. Only rule nodes have children.
	KindRule Kind = "rule"

	// KindLiteral is a quoted literal terminal, e.g. '+'.
	KindLiteral Kind = "literal"

	// KindPattern is a regular expression terminal, e.g. /[0-9]+/.
	KindPattern Kind = "pattern"
)

// Position is a location in the parsed source.
// Offset is a byte offset; Line and Column are 1-based, Column counts runes.
type Position struct {
	Offset int `json:"offset" yaml:"offset"`
	Line   int `json:"line" yaml:"line"`
	Column int `json:"column" yaml:"column"`
}

// String formats the position as line:column.
func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Span is the half-open source range [Start, End) covered by a node.
type Span struct {
	Start Position `json:"start" yaml:"start"`
	End   Position `json:"end" yaml:"end"`
}

// Node is one node of a parse tree.
type Node struct {
	Kind Kind `json:"kind" yaml:"kind"`

	// Rule is the grammar rule name (rule nodes only).
	Rule string `json:"rule,omitempty" yaml:"rule,omitempty"`

	// Value is the matched text (terminal nodes only).
	Value string `json:"value,omitempty" yaml:"value,omitempty"`

	Span Span `json:"span" yaml:"span"`

	Children []*Node `json:"children,omitempty" yaml:"children,omitempty"`
}

// IsLeaf reports whether the node is a terminal.
func (n *Node) IsLeaf() bool {
	return n.Kind != KindRule
}

// Walk visits n and its descendants depth-first in source order.
// Returning false from fn skips the node's children.
func (n *Node) Walk(fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, child := range n.Children {
		child.Walk(fn)
	}
}

// Leaves returns every terminal node in source order.
func (n *Node) Leaves() []*Node {
	var leaves []*Node
	n.Walk(func(node *Node) bool {
		if node.IsLeaf() {
			leaves = append(leaves, node)
		}
		return true
	})
	return leaves
}

// FindRule returns every node, including n itself, produced by the named rule.
func (n *Node) FindRule(name string) []*Node {
	var found []*Node
	n.Walk(func(node *Node) bool {
		if node.Kind == KindRule && node.Rule == name {
			found = append(found, node)
		}
		return true
	})
	return found
}

// Text concatenates the values of all leaves.
func (n *Node) Text() string {
	var sb strings.Builder
	for _, leaf := range n.Leaves() {
		sb.WriteString(leaf.Value)
	}
	return sb.String()
}

// Equal reports whether two trees are structurally identical.
func (n *Node) Equal(other *Node) bool {
	if n == nil || other == nil {
		return n == other
	}
	if n.Kind != other.Kind || n.Rule != other.Rule || n.Value != other.Value || n.Span != other.Span {
		return false
	}
	if len(n.Children) != len(other.Children) {
		return false
	}
	for i := range n.Children {
		if !n.Children[i].Equal(other.Children[i]) {
			return false
		}
	}
	return true
}

// String renders the tree as a compact s-expression, e.g.
// (expr (term "1") "+" (term "2")).
func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	if n.IsLeaf() {
		return fmt.Sprintf("%q", n.Value)
	}
	parts := make([]string, 0, len(n.Children)+1)
	parts = append(parts, n.Rule)
	for _, child := range n.Children {
		parts = append(parts, child.String())
	}
	return "(" + strings.Join(parts, " ") + ")"
}
