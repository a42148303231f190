/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

package session

import (
	"time"

	"bennypowers.dev/parselib/tree"
)

// Status classifies the result of a parse request.
type Status int

const (
	// StatusParsed means the input matched and Outcome.Tree is set.
	StatusParsed Status = iota

	// StatusUnprocessed means the input path is not a readable regular file.
	StatusUnprocessed

	// StatusGrammarMissing means no grammar was loaded in the session.
	StatusGrammarMissing

	// StatusFailed means the engine ran and rejected the input, or the
	// result could not be written.
	StatusFailed

	// StatusInvalidSession means the handle did not refer to a live session.
	StatusInvalidSession
)

// String returns the status name used in logs and metrics labels.
func (s Status) String() string {
	switch s {
	case StatusParsed:
		return "parsed"
	case StatusUnprocessed:
		return "unprocessed"
	case StatusGrammarMissing:
		return "grammar_missing"
	case StatusFailed:
		return "failed"
	case StatusInvalidSession:
		return "invalid_session"
	default:
		return "unknown"
	}
}

// Outcome is the result of Parse, ParseJSON or ParseToFile.
type Outcome struct {
	Status Status

	// Path is the source file the request named.
	Path string

	// Tree is the parse tree; nil unless Status is StatusParsed.
	Tree *tree.Node

	// Output is the file written by ParseToFile.
	Output string

	// Err explains every status other than StatusParsed.
	Err error

	// Duration is the time spent in the engine.
	Duration time.Duration
}

// OK reports whether the input was parsed.
func (o Outcome) OK() bool {
	return o.Status == StatusParsed
}

// Unprocessed reports whether the request was skipped on a precondition.
func (o Outcome) Unprocessed() bool {
	return o.Status == StatusUnprocessed || o.Status == StatusGrammarMissing
}
