/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

package grammar

import (
	"fmt"
	"regexp"
	"regexp/syntax"
	"strings"
)

// parser is a recursive-descent parser over the token stream of one
// grammar file.
type parser struct {
	tokens []token
	pos    int

	rules  []*Rule
	byName map[string]*Rule

	startTok *token
	skipTok  *token
	skip     *regexp.Regexp
	skipSrc  string
	skipNone bool
}

func newParser(tokens []token) *parser {
	return &parser{
		tokens: tokens,
		byName: make(map[string]*Rule),
	}
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) peekAt(n int) token {
	if i := p.pos + n; i < len(p.tokens) {
		return p.tokens[i]
	}
	return p.tokens[len(p.tokens)-1]
}

func (p *parser) pop() token {
	t := p.tokens[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) expect(kind tokenKind, context string) (token, error) {
	t := p.pop()
	if t.kind != kind {
		return t, errorAt(t.pos, ErrSyntax, "expected %s %s, found %s", kind, context, describe(t))
	}
	return t, nil
}

func describe(t token) string {
	if t.kind == tokEOF || t.text == "" {
		return t.kind.String()
	}
	return fmt.Sprintf("%s %q", t.kind, t.text)
}

func (p *parser) parseFile() error {
	for p.peek().kind != tokEOF {
		var err error

		switch t := p.peek(); t.kind {
		case tokDirective:
			err = p.parseDirective()
		case tokIdent:
			err = p.parseRule()
		case tokSemicolon:
			p.pop()
		default:
			err = errorAt(t.pos, ErrSyntax, "expected rule or directive, found %s", describe(t))
		}

		if err != nil {
			return err
		}
	}

	return nil
}

func (p *parser) parseDirective() error {
	directive := p.pop()

	switch directive.text {
	case "%start":
		if p.startTok != nil {
			return errorAt(directive.pos, ErrSyntax, "%%start already given at %s", p.startTok.pos)
		}
		name, err := p.expect(tokIdent, "after %start")
		if err != nil {
			return err
		}
		p.startTok = &name

	case "%skip":
		if p.skipTok != nil {
			return errorAt(directive.pos, ErrSyntax, "%%skip already given at %s", p.skipTok.pos)
		}
		p.skipTok = &directive

		switch arg := p.pop(); {
		case arg.kind == tokIdent && arg.text == "none":
			p.skipNone = true
		case arg.kind == tokPattern:
			src, err := unescapePattern(arg.text[1 : len(arg.text)-1])
			if err != nil {
				return errorAt(arg.pos, ErrInvalidPattern, "%v", err)
			}
			re, err := compilePattern(src)
			if err != nil {
				return errorAt(arg.pos, ErrInvalidPattern, "skip pattern: %v", err)
			}
			p.skip, p.skipSrc = re, src
		default:
			return errorAt(arg.pos, ErrSyntax, "expected pattern or none after %%skip, found %s", describe(arg))
		}

	default:
		return errorAt(directive.pos, ErrSyntax, "unknown directive %s", directive.text)
	}

	if p.peek().kind == tokSemicolon {
		p.pop()
	}
	return nil
}

func (p *parser) parseRule() error {
	name := p.pop()

	if _, err := p.expect(tokDefine, fmt.Sprintf("after rule name %q", name.text)); err != nil {
		return err
	}

	if existing, ok := p.byName[name.text]; ok {
		return errorAt(name.pos, ErrDuplicateRule, "rule %q already defined at %s", name.text, existing.Pos)
	}

	expr, err := p.parseChoice()
	if err != nil {
		return fmt.Errorf("in rule %q: %w", name.text, err)
	}

	if p.peek().kind == tokSemicolon {
		p.pop()
	}

	rule := &Rule{
		Name:   name.text,
		Expr:   expr,
		Pos:    name.pos,
		Index:  len(p.rules),
		Inline: strings.HasPrefix(name.text, "_"),
	}
	p.rules = append(p.rules, rule)
	p.byName[rule.Name] = rule

	return nil
}

// atSequenceEnd reports whether the next token closes the current sequence.
func (p *parser) atSequenceEnd() bool {
	switch p.peek().kind {
	case tokEOF, tokPipe, tokRParen, tokSemicolon, tokDirective:
		return true
	case tokIdent:
		// "name :=" starts the next rule
		return p.peekAt(1).kind == tokDefine
	default:
		return false
	}
}

func (p *parser) parseChoice() (*Expr, error) {
	first, err := p.parseSequence()
	if err != nil {
		return nil, err
	}

	items := []*Expr{first}
	for p.peek().kind == tokPipe {
		p.pop()
		alt, err := p.parseSequence()
		if err != nil {
			return nil, err
		}
		items = append(items, alt)
	}

	if len(items) == 1 {
		return first, nil
	}
	return &Expr{Kind: ExprChoice, Items: items, Pos: first.Pos}, nil
}

func (p *parser) parseSequence() (*Expr, error) {
	start := p.peek()

	var items []*Expr
	for !p.atSequenceEnd() {
		item, err := p.parsePrefixed()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	switch len(items) {
	case 0:
		return nil, errorAt(start.pos, ErrSyntax, "empty alternative before %s", describe(start))
	case 1:
		return items[0], nil
	default:
		return &Expr{Kind: ExprSequence, Items: items, Pos: items[0].Pos}, nil
	}
}

func (p *parser) parsePrefixed() (*Expr, error) {
	t := p.peek()

	var kind ExprKind
	switch t.kind {
	case tokAmp:
		kind = ExprAnd
	case tokBang:
		kind = ExprNot
	default:
		return p.parsePostfix()
	}

	p.pop()
	sub, err := p.parsePrefixed()
	if err != nil {
		return nil, err
	}
	return &Expr{Kind: kind, Sub: sub, Pos: t.pos}, nil
}

func (p *parser) parsePostfix() (*Expr, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	for {
		t := p.peek()
		switch t.kind {
		case tokStar:
			expr = &Expr{Kind: ExprRepeat, Sub: expr, Min: 0, Max: -1, Pos: expr.Pos}
		case tokPlus:
			expr = &Expr{Kind: ExprRepeat, Sub: expr, Min: 1, Max: -1, Pos: expr.Pos}
		case tokQuestion:
			expr = &Expr{Kind: ExprRepeat, Sub: expr, Min: 0, Max: 1, Pos: expr.Pos}
		default:
			return expr, nil
		}
		p.pop()
	}
}

func (p *parser) parsePrimary() (*Expr, error) {
	t := p.pop()

	switch t.kind {
	case tokIdent:
		return &Expr{Kind: ExprRef, Ref: t.text, Pos: t.pos}, nil

	case tokLiteral:
		lit, err := unescapeLiteral(t.text[1 : len(t.text)-1])
		if err != nil {
			return nil, errorAt(t.pos, ErrSyntax, "%v", err)
		}
		if lit == "" {
			return nil, errorAt(t.pos, ErrEmptyTerminal, "empty literal")
		}
		return &Expr{Kind: ExprLiteral, Literal: lit, Pos: t.pos}, nil

	case tokPattern:
		src, err := unescapePattern(t.text[1 : len(t.text)-1])
		if err != nil {
			return nil, errorAt(t.pos, ErrInvalidPattern, "%v", err)
		}
		re, err := compilePattern(src)
		if err != nil {
			return nil, errorAt(t.pos, ErrInvalidPattern, "/%s/: %v", src, err)
		}
		if re.MatchString("") {
			return nil, errorAt(t.pos, ErrEmptyTerminal, "pattern /%s/ matches the empty string", src)
		}
		return &Expr{Kind: ExprPattern, Pattern: re, Source: src, Pos: t.pos}, nil

	case tokLParen:
		expr, err := p.parseChoice()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, fmt.Sprintf("to close group opened at %s", t.pos)); err != nil {
			return nil, err
		}
		return expr, nil

	default:
		return nil, errorAt(t.pos, ErrSyntax, "unexpected %s", describe(t))
	}
}

// compilePattern compiles src anchored at the match position. Patterns
// are matched against the remaining input only, so assertions that look
// at the text before the position are rejected.
func compilePattern(src string) (*regexp.Regexp, error) {
	parsed, err := syntax.Parse(src, syntax.Perl)
	if err != nil {
		return nil, err
	}
	if op, ok := contextAssertion(parsed); ok {
		return nil, fmt.Errorf("%s is not supported in patterns", describeAssertion(op))
	}
	return regexp.Compile(`^(?:` + src + `)`)
}

func contextAssertion(re *syntax.Regexp) (syntax.Op, bool) {
	switch re.Op {
	case syntax.OpWordBoundary, syntax.OpNoWordBoundary, syntax.OpBeginLine, syntax.OpBeginText:
		return re.Op, true
	}
	for _, sub := range re.Sub {
		if op, ok := contextAssertion(sub); ok {
			return op, true
		}
	}
	return 0, false
}

func describeAssertion(op syntax.Op) string {
	switch op {
	case syntax.OpWordBoundary:
		return `word boundary \b`
	case syntax.OpNoWordBoundary:
		return `non-word boundary \B`
	case syntax.OpBeginLine:
		return "line start ^ in multi-line mode"
	default:
		return `text start ^ or \A`
	}
}

// unescapeLiteral resolves backslash escapes inside a quoted literal.
func unescapeLiteral(s string) (string, error) {
	if !strings.ContainsRune(s, '\\') {
		return s, nil
	}

	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			sb.WriteByte(c)
			continue
		}
		i++
		if i == len(s) {
			return "", fmt.Errorf("trailing backslash in literal")
		}
		switch s[i] {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		case '\\', '\'', '"':
			sb.WriteByte(s[i])
		default:
			return "", fmt.Errorf("unknown escape \\%c in literal", s[i])
		}
	}
	return sb.String(), nil
}

// unescapePattern turns "\/" into "/" and leaves every other escape for
// the regexp compiler.
func unescapePattern(s string) (string, error) {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			sb.WriteByte(c)
			continue
		}
		if i+1 == len(s) {
			return "", fmt.Errorf("trailing backslash in pattern")
		}
		i++
		if s[i] != '/' {
			sb.WriteByte('\\')
		}
		sb.WriteByte(s[i])
	}
	return sb.String(), nil
}
