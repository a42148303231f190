/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

// Package engine runs a compiled grammar over input text with a memoizing
// (packrat) PEG evaluator and builds the parse tree.
package engine

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"unicode/utf8"

	"bennypowers.dev/parselib/grammar"
	"bennypowers.dev/parselib/tree"
)

// DefaultMaxDepth bounds rule nesting when Options.MaxDepth is zero.
const DefaultMaxDepth = 10000

// ctxCheckInterval is how many rule calls pass between context checks.
const ctxCheckInterval = 1024

// Options configures a Parser.
type Options struct {
	// MaxDepth bounds how deeply rules may nest. Zero means DefaultMaxDepth.
	MaxDepth int
}

// Parser evaluates one grammar. It holds no per-parse state and is safe
// for concurrent use.
type Parser struct {
	g        *grammar.Grammar
	maxDepth int
}

// New returns a Parser for g.
func New(g *grammar.Grammar, opts Options) *Parser {
	depth := opts.MaxDepth
	if depth <= 0 {
		depth = DefaultMaxDepth
	}
	return &Parser{g: g, maxDepth: depth}
}

// Grammar returns the grammar the parser runs.
func (p *Parser) Grammar() *grammar.Grammar {
	return p.g
}

// Parse matches src against the start rule. The whole input must be
// consumed, apart from trailing skip text. On failure the error is a
// *ParseError describing the farthest point reached.
func (p *Parser) Parse(src string) (*tree.Node, error) {
	return p.ParseContext(context.Background(), src)
}

// ParseContext is like Parse but stops early when ctx is done.
func (p *Parser) ParseContext(ctx context.Context, src string) (*tree.Node, error) {
	r := &run{
		p:        p,
		ctx:      ctx,
		src:      src,
		lines:    lineStarts(src),
		memo:     make(map[memoKey]memoEntry),
		expected: make(map[string]struct{}),
	}

	start := p.g.Start
	end, nodes, ok := r.call(start, 0)
	if r.err != nil {
		return nil, r.err
	}

	if ok {
		end = r.skip(end)
		if end == len(src) {
			return nodes[0], nil
		}
		r.fail(end, "end of input")
	}

	return nil, r.parseError()
}

type memoKey struct {
	rule int
	pos  int
}

type memoEntry struct {
	ok    bool
	end   int
	nodes []*tree.Node
}

// run is the state of a single parse.
type run struct {
	p     *Parser
	ctx   context.Context
	src   string
	lines []int

	memo  map[memoKey]memoEntry
	depth int
	calls int
	err   error

	// predicate > 0 while evaluating inside & or !
	predicate int
	farthest  int
	expected  map[string]struct{}
}

func (r *run) call(rule *grammar.Rule, pos int) (int, []*tree.Node, bool) {
	key := memoKey{rule.Index, pos}
	if m, ok := r.memo[key]; ok {
		return m.end, m.nodes, m.ok
	}

	if r.calls++; r.calls%ctxCheckInterval == 0 {
		if err := r.ctx.Err(); err != nil {
			r.err = err
			return pos, nil, false
		}
	}

	if r.depth >= r.p.maxDepth {
		p := r.position(pos)
		r.err = fmt.Errorf("%w: limit %d reached in rule %q at line %d, column %d",
			ErrDepthExceeded, r.p.maxDepth, rule.Name, p.Line, p.Column)
		return pos, nil, false
	}

	r.depth++
	end, children, ok := r.eval(rule.Expr, pos)
	r.depth--
	if r.err != nil {
		return pos, nil, false
	}

	var nodes []*tree.Node
	switch {
	case !ok:
	case rule.Inline && rule != r.p.g.Start:
		nodes = children
	default:
		nodes = []*tree.Node{r.ruleNode(rule, pos, children)}
	}

	// Failures are not recorded inside predicates, so their results are
	// not memoized either.
	if r.predicate == 0 {
		r.memo[key] = memoEntry{ok: ok, end: end, nodes: nodes}
	}
	return end, nodes, ok
}

func (r *run) ruleNode(rule *grammar.Rule, pos int, children []*tree.Node) *tree.Node {
	n := &tree.Node{Kind: tree.KindRule, Rule: rule.Name, Children: children}
	if len(children) == 0 {
		at := r.position(pos)
		n.Span = tree.Span{Start: at, End: at}
	} else {
		n.Span = tree.Span{Start: children[0].Span.Start, End: children[len(children)-1].Span.End}
	}
	return n
}

func (r *run) eval(e *grammar.Expr, pos int) (int, []*tree.Node, bool) {
	if r.err != nil {
		return pos, nil, false
	}

	switch e.Kind {
	case grammar.ExprSequence:
		cur := pos
		var out []*tree.Node
		for _, item := range e.Items {
			end, nodes, ok := r.eval(item, cur)
			if !ok {
				return pos, nil, false
			}
			out = append(out, nodes...)
			cur = end
		}
		return cur, out, true

	case grammar.ExprChoice:
		for _, item := range e.Items {
			if end, nodes, ok := r.eval(item, pos); ok {
				return end, nodes, true
			}
		}
		return pos, nil, false

	case grammar.ExprLiteral:
		at := r.skip(pos)
		if !strings.HasPrefix(r.src[at:], e.Literal) {
			r.fail(at, e.String())
			return pos, nil, false
		}
		end := at + len(e.Literal)
		return end, []*tree.Node{r.leaf(tree.KindLiteral, at, end)}, true

	case grammar.ExprPattern:
		at := r.skip(pos)
		loc := e.Pattern.FindStringIndex(r.src[at:])
		if loc == nil || loc[1] == 0 {
			r.fail(at, e.String())
			return pos, nil, false
		}
		end := at + loc[1]
		return end, []*tree.Node{r.leaf(tree.KindPattern, at, end)}, true

	case grammar.ExprRef:
		return r.call(e.Rule, pos)

	case grammar.ExprRepeat:
		cur := pos
		count := 0
		var out []*tree.Node
		for e.Max < 0 || count < e.Max {
			end, nodes, ok := r.eval(e.Sub, cur)
			if !ok {
				break
			}
			count++
			out = append(out, nodes...)
			if end == cur {
				// no progress; further iterations would match the same way
				break
			}
			cur = end
		}
		if count < e.Min {
			return pos, nil, false
		}
		return cur, out, true

	case grammar.ExprAnd:
		r.predicate++
		_, _, ok := r.eval(e.Sub, pos)
		r.predicate--
		return pos, nil, ok

	case grammar.ExprNot:
		r.predicate++
		_, _, ok := r.eval(e.Sub, pos)
		r.predicate--
		return pos, nil, !ok

	default:
		r.err = fmt.Errorf("unknown expression kind %s", e.Kind)
		return pos, nil, false
	}
}

func (r *run) skip(pos int) int {
	re := r.p.g.Skip
	if re == nil {
		return pos
	}
	if loc := re.FindStringIndex(r.src[pos:]); loc != nil {
		return pos + loc[1]
	}
	return pos
}

func (r *run) leaf(kind tree.Kind, start, end int) *tree.Node {
	return &tree.Node{
		Kind:  kind,
		Value: r.src[start:end],
		Span:  tree.Span{Start: r.position(start), End: r.position(end)},
	}
}

// fail records that want was expected at pos.
func (r *run) fail(pos int, want string) {
	if r.predicate > 0 {
		return
	}
	switch {
	case pos > r.farthest:
		r.farthest = pos
		clear(r.expected)
		r.expected[want] = struct{}{}
	case pos == r.farthest:
		r.expected[want] = struct{}{}
	}
}

func (r *run) parseError() *ParseError {
	at := r.position(r.farthest)
	expected := make([]string, 0, len(r.expected))
	for want := range r.expected {
		expected = append(expected, want)
	}
	slices.Sort(expected)

	return &ParseError{
		Offset:   r.farthest,
		Line:     at.Line,
		Column:   at.Column,
		Expected: expected,
		Found:    quoteFound(r.src, r.farthest),
		src:      r.src,
	}
}

func lineStarts(src string) []int {
	starts := []int{0}
	for i := 0; i < len(src); i++ {
		if src[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// position converts a byte offset into a line and rune column, both 1-based.
func (r *run) position(offset int) tree.Position {
	line := sort.Search(len(r.lines), func(i int) bool { return r.lines[i] > offset })
	col := utf8.RuneCountInString(r.src[r.lines[line-1]:offset]) + 1
	return tree.Position{Offset: offset, Line: line, Column: col}
}
