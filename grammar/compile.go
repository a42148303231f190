/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

package grammar

import (
	"fmt"
	"regexp"

	"bennypowers.dev/parselib/fs"
	"bennypowers.dev/parselib/internal/source"
)

var defaultSkip = regexp.MustCompile(`^(?:` + DefaultSkip + `)`)

// Compile parses and validates grammar source.
func Compile(src string) (*Grammar, error) {
	tokens, err := lex(src)
	if err != nil {
		return nil, err
	}

	p := newParser(tokens)
	if err := p.parseFile(); err != nil {
		return nil, err
	}

	g, err := p.build()
	if err != nil {
		return nil, err
	}

	if err := validate(g); err != nil {
		return nil, err
	}
	return g, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(src string) *Grammar {
	g, err := Compile(src)
	if err != nil {
		panic(fmt.Sprintf("grammar: Compile: %v", err))
	}
	return g
}

// CompileFile reads, decodes and compiles the grammar file at path.
func CompileFile(filesystem fs.FileSystem, path string) (*Grammar, error) {
	data, err := filesystem.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read grammar %s: %w", path, err)
	}

	text, err := source.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("grammar %s: %w", path, err)
	}

	g, err := Compile(text)
	if err != nil {
		return nil, fmt.Errorf("grammar %s: %w", path, err)
	}
	return g, nil
}

func (p *parser) build() (*Grammar, error) {
	if len(p.rules) == 0 {
		return nil, fmt.Errorf("%w", ErrNoRules)
	}

	g := &Grammar{
		Rules:  p.rules,
		Start:  p.rules[0],
		byName: p.byName,
	}

	if p.startTok != nil {
		start, ok := p.byName[p.startTok.text]
		if !ok {
			return nil, errorAt(p.startTok.pos, ErrUndefinedRule, "%%start names undefined rule %q", p.startTok.text)
		}
		g.Start = start
	}

	switch {
	case p.skipNone:
	case p.skip != nil:
		g.Skip, g.SkipSource = p.skip, p.skipSrc
	default:
		g.Skip, g.SkipSource = defaultSkip, DefaultSkip
	}

	return g, nil
}
