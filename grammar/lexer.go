/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

package grammar

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// tokenKind identifies a lexical token of the grammar language.
type tokenKind int

const (
	tokEOF tokenKind = iota
	tokDirective
	tokIdent
	tokDefine
	tokLiteral
	tokPattern
	tokPipe
	tokLParen
	tokRParen
	tokStar
	tokPlus
	tokQuestion
	tokAmp
	tokBang
	tokSemicolon
	tokComment
	tokSpace
)

var tokenNames = map[tokenKind]string{
	tokEOF:       "end of file",
	tokDirective: "directive",
	tokIdent:     "name",
	tokDefine:    "':='",
	tokLiteral:   "literal",
	tokPattern:   "pattern",
	tokPipe:      "'|'",
	tokLParen:    "'('",
	tokRParen:    "')'",
	tokStar:      "'*'",
	tokPlus:      "'+'",
	tokQuestion:  "'?'",
	tokAmp:       "'&'",
	tokBang:      "'!'",
	tokSemicolon: "';'",
	tokComment:   "comment",
	tokSpace:     "whitespace",
}

func (k tokenKind) String() string {
	return tokenNames[k]
}

type token struct {
	kind tokenKind
	text string
	pos  Pos
}

type tokenDefinition struct {
	kind    tokenKind
	pattern *regexp.Regexp
}

// Order matters: comments must win over patterns, and ":=" over anything
// starting with ':'.
var tokenDefinitions = []tokenDefinition{
	{tokSpace, regexp.MustCompile(`^[ \t\r\n\f\v]+`)},
	{tokComment, regexp.MustCompile(`^(?:#|//)[^\n]*`)},
	{tokDirective, regexp.MustCompile(`^%[a-z]+`)},
	{tokDefine, regexp.MustCompile(`^:=`)},
	{tokIdent, regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*`)},
	{tokLiteral, regexp.MustCompile(`^(?:'(?:[^'\\\n]|\\.)*'|"(?:[^"\\\n]|\\.)*")`)},
	{tokPattern, regexp.MustCompile(`^/(?:[^/\\\n]|\\.)+/`)},
	{tokPipe, regexp.MustCompile(`^\|`)},
	{tokLParen, regexp.MustCompile(`^\(`)},
	{tokRParen, regexp.MustCompile(`^\)`)},
	{tokStar, regexp.MustCompile(`^\*`)},
	{tokPlus, regexp.MustCompile(`^\+`)},
	{tokQuestion, regexp.MustCompile(`^\?`)},
	{tokAmp, regexp.MustCompile(`^&`)},
	{tokBang, regexp.MustCompile(`^!`)},
	{tokSemicolon, regexp.MustCompile(`^;`)},
}

// lex splits grammar source into tokens, dropping whitespace and comments.
// The returned slice always ends with a tokEOF token.
func lex(text string) ([]token, error) {
	var tokens []token
	cur := Pos{Line: 1, Column: 1}

	for len(text) > 0 {
		matched := false

		for _, def := range tokenDefinitions {
			loc := def.pattern.FindStringIndex(text)
			if loc == nil {
				continue
			}

			matched = true
			contents := text[:loc[1]]
			if def.kind != tokSpace && def.kind != tokComment {
				tokens = append(tokens, token{kind: def.kind, text: contents, pos: cur})
			}
			cur = advance(cur, contents)
			text = text[loc[1]:]
			break
		}

		if !matched {
			switch text[0] {
			case '\'', '"':
				return nil, errorAt(cur, ErrSyntax, "unterminated literal")
			case '/':
				return nil, errorAt(cur, ErrSyntax, "unterminated or empty pattern")
			}
			r, _ := utf8.DecodeRuneInString(text)
			return nil, errorAt(cur, ErrSyntax, "unexpected character %q", r)
		}
	}

	tokens = append(tokens, token{kind: tokEOF, pos: cur})
	return tokens, nil
}

// advance moves p past text.
func advance(p Pos, text string) Pos {
	if i := strings.LastIndexByte(text, '\n'); i >= 0 {
		p.Line += strings.Count(text, "\n")
		p.Column = utf8.RuneCountInString(text[i+1:]) + 1
		return p
	}
	p.Column += utf8.RuneCountInString(text)
	return p
}
