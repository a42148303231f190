/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

package session

import "errors"

// Sentinel errors for session operations.
var (
	// ErrGrammarNotFound indicates the grammar path is not a readable regular file.
	ErrGrammarNotFound = errors.New("grammar not found")

	// ErrGrammarInvalid indicates the grammar file failed to compile.
	ErrGrammarInvalid = errors.New("invalid grammar")

	// ErrUnprocessedInput indicates a parse was not attempted because a
	// precondition failed.
	ErrUnprocessedInput = errors.New("input not processed")

	// ErrNoGrammar indicates a parse was requested before a grammar was loaded.
	ErrNoGrammar = errors.New("no grammar loaded")

	// ErrParseFailure indicates the input did not match the loaded grammar.
	ErrParseFailure = errors.New("parse failed")

	// ErrSessionInvalid indicates a zero, stale or destroyed session handle.
	ErrSessionInvalid = errors.New("invalid session")
)
