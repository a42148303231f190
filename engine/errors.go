/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

package engine

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var (
	// ErrNoMatch indicates the input does not match the grammar.
	ErrNoMatch = errors.New("input does not match grammar")

	// ErrDepthExceeded indicates rule nesting went past Options.MaxDepth.
	ErrDepthExceeded = errors.New("maximum rule depth exceeded")
)

// foundWidth caps how much of the offending input a ParseError quotes.
const foundWidth = 12

// ParseError reports the farthest position the parser reached and what it
// would have accepted there.
type ParseError struct {
	Offset int
	Line   int
	Column int

	// Expected lists terminal descriptions such as '+' or /[0-9]+/, sorted.
	Expected []string

	// Found is a short quote of the input at Offset, or "end of input".
	Found string

	src string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "line %d, column %d: ", e.Line, e.Column)
	switch len(e.Expected) {
	case 0:
		sb.WriteString("unexpected input")
	case 1:
		fmt.Fprintf(&sb, "expected %s", e.Expected[0])
	default:
		fmt.Fprintf(&sb, "expected %s or %s",
			strings.Join(e.Expected[:len(e.Expected)-1], ", "),
			e.Expected[len(e.Expected)-1])
	}
	fmt.Fprintf(&sb, ", found %s", e.Found)
	return sb.String()
}

// Is reports ErrNoMatch as matching.
func (e *ParseError) Is(target error) bool {
	return target == ErrNoMatch
}

// Context renders the failing line with up to contextLines lines on each
// side and a marker under the failing column.
func (e *ParseError) Context(contextLines int) string {
	if e.Line < 1 {
		return ""
	}

	lines := strings.Split(e.src, "\n")
	cur := e.Line - 1
	start := max(0, cur-contextLines)
	end := min(cur+contextLines+1, len(lines))
	width := len(fmt.Sprint(end))

	var sb strings.Builder
	for i := start; i < end; i++ {
		line := strings.TrimSuffix(lines[i], "\r")
		fmt.Fprintf(&sb, "%*d │ %s\n", width, i+1, line)
		if i != cur {
			continue
		}
		// keep tabs so the marker lines up with the rendered text
		var pad strings.Builder
		for j, r := range []rune(line) {
			if j >= e.Column-1 {
				break
			}
			if r == '\t' {
				pad.WriteRune('\t')
			} else {
				pad.WriteByte(' ')
			}
		}
		fmt.Fprintf(&sb, "%*s │ %s^\n", width, "", pad.String())
	}
	return sb.String()
}

func quoteFound(src string, offset int) string {
	if offset >= len(src) {
		return "end of input"
	}
	rest := src[offset:]
	if utf8.RuneCountInString(rest) > foundWidth {
		rest = string([]rune(rest)[:foundWidth]) + "…"
	}
	return fmt.Sprintf("%q", rest)
}
