/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

package tree_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bennypowers.dev/parselib/tree"
)

func pos(offset int) tree.Position {
	return tree.Position{Offset: offset, Line: 1, Column: offset + 1}
}

func span(start, end int) tree.Span {
	return tree.Span{Start: pos(start), End: pos(end)}
}

// sample builds the tree for "1+2".
func sample() *tree.Node {
	return &tree.Node{
		Kind: tree.KindRule,
		Rule: "expr",
		Span: span(0, 3),
		Children: []*tree.Node{
			{Kind: tree.KindRule, Rule: "term", Span: span(0, 1), Children: []*tree.Node{
				{Kind: tree.KindPattern, Value: "1", Span: span(0, 1)},
			}},
			{Kind: tree.KindLiteral, Value: "+", Span: span(1, 2)},
			{Kind: tree.KindRule, Rule: "term", Span: span(2, 3), Children: []*tree.Node{
				{Kind: tree.KindPattern, Value: "2", Span: span(2, 3)},
			}},
		},
	}
}

func TestNode_Leaves(t *testing.T) {
	leaves := sample().Leaves()
	require.Len(t, leaves, 3)
	assert.Equal(t, "1", leaves[0].Value)
	assert.Equal(t, tree.KindLiteral, leaves[1].Kind)
	assert.Equal(t, "2", leaves[2].Value)
}

func TestNode_FindRuleAndText(t *testing.T) {
	n := sample()
	assert.Len(t, n.FindRule("term"), 2)
	assert.Len(t, n.FindRule("expr"), 1)
	assert.Empty(t, n.FindRule("missing"))
	assert.Equal(t, "1+2", n.Text())
}

func TestNode_WalkSkipsChildren(t *testing.T) {
	var visited []string
	sample().Walk(func(n *tree.Node) bool {
		if n.Kind == tree.KindRule {
			visited = append(visited, n.Rule)
		}
		return n.Rule != "term"
	})
	assert.Equal(t, []string{"expr", "term", "term"}, visited)
}

func TestNode_String(t *testing.T) {
	assert.Equal(t, `(expr (term "1") "+" (term "2"))`, sample().String())
}

func TestNode_Equal(t *testing.T) {
	a, b := sample(), sample()
	assert.True(t, a.Equal(b))

	b.Children[1].Value = "-"
	assert.False(t, a.Equal(b))

	var nilNode *tree.Node
	assert.True(t, nilNode.Equal(nil))
	assert.False(t, a.Equal(nil))
}

func TestMarshal_RoundTrip(t *testing.T) {
	data, err := tree.Marshal(sample())
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(data), "\n"))
	assert.Contains(t, string(data), `"kind": "rule"`)
	assert.NotContains(t, string(data), `"children": null`)

	decoded, err := tree.Unmarshal(data)
	require.NoError(t, err)
	assert.True(t, sample().Equal(decoded), "decoded tree differs: %s", decoded)
}

func TestMarshal_NoHTMLEscaping(t *testing.T) {
	n := &tree.Node{Kind: tree.KindLiteral, Value: "<&>", Span: span(0, 3)}
	data, err := tree.Marshal(n)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"value": "<&>"`)
}

func TestMarshal_Nil(t *testing.T) {
	_, err := tree.Marshal(nil)
	assert.True(t, errors.Is(err, tree.ErrEmptyDocument))

	_, err = tree.Unmarshal([]byte("null"))
	assert.True(t, errors.Is(err, tree.ErrEmptyDocument))
}

func TestMarshalYAML_RoundTrip(t *testing.T) {
	data, err := tree.MarshalYAML(sample())
	require.NoError(t, err)
	assert.Contains(t, string(data), "rule: expr")

	decoded, err := tree.UnmarshalYAML(data)
	require.NoError(t, err)
	assert.True(t, sample().Equal(decoded))
}
