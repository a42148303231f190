/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

// Package grammar compiles .grm grammar files into an in-memory Grammar.
//
// A grammar file is a list of rules and directives:
//
//	# comments run to end of line ("//" works too)
//	%start expr
//	%skip  /[ \t\r\n]+/
//	expr := term (('+' | '-') term)* ;
//	term := /[0-9]+/
//
// A rule ends at ";", at the next "name :=", or at end of file. Alternatives
// are ordered ("|"), postfix "*", "+" and "?" repeat, prefix "&" and "!" are
// lookahead predicates, and terminals are quoted literals or /regex/ patterns.
// Rules whose name starts with "_" are inlined into the enclosing node.
package grammar

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultSkip is the skip pattern used when a grammar has no %skip directive.
const DefaultSkip = `[ \t\r\n]+`

// Pos is a location in a grammar file. Line and Column are 1-based.
type Pos struct {
	Line   int
	Column int
}

// String formats the position as line:column.
func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// ExprKind identifies the type of a grammar expression.
type ExprKind int

const (
	// ExprSequence matches Items in order.
	ExprSequence ExprKind = iota
	// ExprChoice tries Items in order and takes the first match.
	ExprChoice
	// ExprLiteral matches Literal exactly.
	ExprLiteral
	// ExprPattern matches Pattern anchored at the current position.
	ExprPattern
	// ExprRef invokes the rule named Ref.
	ExprRef
	// ExprRepeat matches Sub between Min and Max times (Max < 0 is unbounded).
	ExprRepeat
	// ExprAnd succeeds when Sub matches, consuming nothing.
	ExprAnd
	// ExprNot succeeds when Sub does not match, consuming nothing.
	ExprNot
)

// String returns the expression kind name.
func (k ExprKind) String() string {
	switch k {
	case ExprSequence:
		return "sequence"
	case ExprChoice:
		return "choice"
	case ExprLiteral:
		return "literal"
	case ExprPattern:
		return "pattern"
	case ExprRef:
		return "ref"
	case ExprRepeat:
		return "repeat"
	case ExprAnd:
		return "and"
	case ExprNot:
		return "not"
	default:
		return fmt.Sprintf("expr(%d)", int(k))
	}
}

// Expr is one node of a rule body.
type Expr struct {
	Kind ExprKind
	Pos  Pos

	// Items holds sequence elements or choice alternatives.
	Items []*Expr

	// Sub is the operand of repeat and predicate expressions.
	Sub      *Expr
	Min, Max int

	// Literal is the unescaped text of a literal terminal.
	Literal string

	// Pattern is the anchored regexp of a pattern terminal; Source is the
	// text between the slashes.
	Pattern *regexp.Regexp
	Source  string

	// Ref is the referenced rule name; Rule is set once references resolve.
	Ref  string
	Rule *Rule
}

// String renders the expression in grammar syntax.
func (e *Expr) String() string {
	switch e.Kind {
	case ExprSequence:
		parts := make([]string, len(e.Items))
		for i, item := range e.Items {
			parts[i] = item.operand(ExprSequence)
		}
		return strings.Join(parts, " ")
	case ExprChoice:
		parts := make([]string, len(e.Items))
		for i, item := range e.Items {
			parts[i] = item.String()
		}
		return strings.Join(parts, " | ")
	case ExprLiteral:
		return quoteLiteral(e.Literal)
	case ExprPattern:
		return "/" + strings.ReplaceAll(e.Source, "/", `\/`) + "/"
	case ExprRef:
		return e.Ref
	case ExprRepeat:
		op := "*"
		switch {
		case e.Min == 1 && e.Max < 0:
			op = "+"
		case e.Min == 0 && e.Max == 1:
			op = "?"
		}
		return e.Sub.operand(ExprRepeat) + op
	case ExprAnd:
		return "&" + e.Sub.operand(ExprRepeat)
	case ExprNot:
		return "!" + e.Sub.operand(ExprRepeat)
	default:
		return e.Kind.String()
	}
}

// operand renders e, parenthesized when it would not bind tighter than parent.
func (e *Expr) operand(parent ExprKind) string {
	needsParens := false
	switch e.Kind {
	case ExprChoice:
		needsParens = true
	case ExprSequence:
		needsParens = parent == ExprRepeat || parent == ExprSequence
	case ExprRepeat, ExprAnd, ExprNot:
		needsParens = parent == ExprRepeat
	}
	if needsParens {
		return "(" + e.String() + ")"
	}
	return e.String()
}

func quoteLiteral(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`, "\n", `\n`, "\t", `\t`, "\r", `\r`)
	return "'" + r.Replace(s) + "'"
}

// Rule is a named production.
type Rule struct {
	Name  string
	Expr  *Expr
	Pos   Pos
	Index int

	// Inline rules splice their children into the enclosing node.
	Inline bool
}

// String renders the rule in grammar syntax.
func (r *Rule) String() string {
	return fmt.Sprintf("%s := %s ;", r.Name, r.Expr)
}

// Grammar is a compiled, validated grammar.
type Grammar struct {
	// Rules in definition order; Rule.Index is the position in this slice.
	Rules []*Rule

	// Start is the rule a parse begins with.
	Start *Rule

	// Skip is consumed before every terminal; nil disables skipping.
	Skip       *regexp.Regexp
	SkipSource string

	byName map[string]*Rule
}

// Rule returns the rule with the given name.
func (g *Grammar) Rule(name string) (*Rule, bool) {
	r, ok := g.byName[name]
	return r, ok
}

// String returns a one-line summary.
func (g *Grammar) String() string {
	return fmt.Sprintf("<Grammar #rules=%d start=%q>", len(g.Rules), g.Start.Name)
}

// Source renders the whole grammar back to grammar syntax.
func (g *Grammar) Source() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%%start %s\n", g.Start.Name)
	if g.Skip == nil {
		sb.WriteString("%skip none\n")
	} else {
		fmt.Fprintf(&sb, "%%skip /%s/\n", strings.ReplaceAll(g.SkipSource, "/", `\/`))
	}
	for _, r := range g.Rules {
		sb.WriteString(r.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
