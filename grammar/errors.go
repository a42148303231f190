/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

package grammar

import (
	"errors"
	"fmt"
)

// Sentinel errors for grammar compilation.
var (
	// ErrSyntax indicates the grammar file is not well formed.
	ErrSyntax = errors.New("grammar syntax error")

	// ErrNoRules indicates the grammar defines no rules.
	ErrNoRules = errors.New("grammar defines no rules")

	// ErrDuplicateRule indicates a rule name is defined twice.
	ErrDuplicateRule = errors.New("duplicate rule")

	// ErrUndefinedRule indicates a reference to a rule that is not defined.
	ErrUndefinedRule = errors.New("undefined rule")

	// ErrLeftRecursion indicates a rule can reach itself without consuming input.
	ErrLeftRecursion = errors.New("left recursion")

	// ErrInvalidPattern indicates a /regex/ terminal does not compile.
	ErrInvalidPattern = errors.New("invalid pattern")

	// ErrEmptyTerminal indicates a terminal that matches the empty string.
	ErrEmptyTerminal = errors.New("terminal matches empty input")
)

// SyntaxError locates a problem in the grammar source.
type SyntaxError struct {
	Line   int
	Column int
	Msg    string
	// Err is the sentinel classifying the problem; ErrSyntax when nil.
	Err error
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Msg)
}

// Unwrap returns the classifying sentinel.
func (e *SyntaxError) Unwrap() error {
	if e.Err == nil {
		return ErrSyntax
	}
	return e.Err
}

func errorAt(p Pos, sentinel error, format string, args ...any) *SyntaxError {
	return &SyntaxError{
		Line:   p.Line,
		Column: p.Column,
		Msg:    fmt.Sprintf(format, args...),
		Err:    sentinel,
	}
}
