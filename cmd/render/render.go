/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

// Package render provides shared rendering functions for CLI output.
package render

import (
	"fmt"
	"io"
	"strings"

	"bennypowers.dev/parselib/tree"
)

// Outline writes n as an indented outline, one node per line. Rule nodes
// show their span; terminals show their quoted text, kind and start.
//
//	expr 1:1-1:6
//	  term 1:1-1:2
//	    "1" pattern 1:1
func Outline(w io.Writer, n *tree.Node) error {
	var sb strings.Builder
	outline(&sb, n, 0)
	_, err := io.WriteString(w, sb.String())
	return err
}

func outline(sb *strings.Builder, n *tree.Node, depth int) {
	if n == nil {
		return
	}
	sb.WriteString(strings.Repeat("  ", depth))
	if n.IsLeaf() {
		fmt.Fprintf(sb, "%q %s %s\n", n.Value, n.Kind, n.Span.Start)
		return
	}
	fmt.Fprintf(sb, "%s %s-%s\n", n.Rule, n.Span.Start, n.Span.End)
	for _, child := range n.Children {
		outline(sb, child, depth+1)
	}
}

// SExpr writes n as a one-line s-expression.
func SExpr(w io.Writer, n *tree.Node) error {
	_, err := fmt.Fprintln(w, n.String())
	return err
}

// Header writes a file heading used between trees of several files.
func Header(w io.Writer, path string) error {
	_, err := fmt.Fprintf(w, "==> %s <==\n", path)
	return err
}
