/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

package session

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"bennypowers.dev/parselib/engine"
	"bennypowers.dev/parselib/fs"
	"bennypowers.dev/parselib/grammar"
	"bennypowers.dev/parselib/internal/logger"
	"bennypowers.dev/parselib/internal/metrics"
	"bennypowers.dev/parselib/internal/source"
	"bennypowers.dev/parselib/tree"
)

// State is the lifecycle stage of a session.
type State int

const (
	StateCreated State = iota
	StateGrammarLoaded
	StateDestroyed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateGrammarLoaded:
		return "grammar-loaded"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Info is a snapshot of a session's attributes.
type Info struct {
	ID                   string
	LogLevel             int
	GrammarLoaded        bool
	GrammarPath          string
	LastUnprocessedInput string
	State                State
}

// session holds one loaded grammar. mu serializes every operation on it.
type session struct {
	mu sync.Mutex

	id  string
	log *logger.Logger

	grammarPath     string
	parser          *engine.Parser
	lastUnprocessed string
	destroyed       bool
}

func (sess *session) info() Info {
	state := StateCreated
	switch {
	case sess.destroyed:
		state = StateDestroyed
	case sess.parser != nil:
		state = StateGrammarLoaded
	}
	return Info{
		ID:                   sess.id,
		LogLevel:             int(sess.log.Level()),
		GrammarLoaded:        sess.parser != nil,
		GrammarPath:          sess.grammarPath,
		LastUnprocessedInput: sess.lastUnprocessed,
		State:                state,
	}
}

// release drops every reference to grammar and parser state.
func (sess *session) release() {
	sess.parser = nil
	sess.grammarPath = ""
	sess.destroyed = true
}

func (sess *session) loadGrammar(filesystem fs.FileSystem, opts engine.Options, path string, verbose bool) error {
	sess.parser = nil
	sess.grammarPath = ""

	if !fs.IsFile(filesystem, path) {
		sess.log.Errorf("grammar not loaded %s", path)
		metrics.GrammarLoadsTotal.WithLabelValues("not_found").Inc()
		return fmt.Errorf("%w: %s", ErrGrammarNotFound, path)
	}

	data, err := filesystem.ReadFile(path)
	if err != nil {
		sess.log.Errorf("grammar not loaded %s", path)
		metrics.GrammarLoadsTotal.WithLabelValues("not_found").Inc()
		return fmt.Errorf("%w: %s: %w", ErrGrammarNotFound, path, err)
	}

	g, err := compile(data)
	if err != nil {
		sess.log.Errorf("grammar %s: %v", path, err)
		metrics.GrammarLoadsTotal.WithLabelValues("invalid").Inc()
		return fmt.Errorf("%w: %s: %w", ErrGrammarInvalid, path, err)
	}

	sess.parser = engine.New(g, opts)
	sess.grammarPath = path
	metrics.GrammarLoadsTotal.WithLabelValues("ok").Inc()

	sess.log.Infof("loaded grammar %s", path)
	sess.log.Verbose(verbose, "grammar %s: %d rules, start %s, skip %s",
		path, len(g.Rules), g.Start.Name, describeSkip(g))
	for _, r := range g.Rules {
		sess.log.Verbose(verbose, "  %s", r)
	}
	return nil
}

func compile(data []byte) (*grammar.Grammar, error) {
	text, err := source.Decode(data)
	if err != nil {
		return nil, err
	}
	return grammar.Compile(text)
}

func describeSkip(g *grammar.Grammar) string {
	if g.Skip == nil {
		return "none"
	}
	return "/" + g.SkipSource + "/"
}

// parse runs the loaded grammar over path. Precondition failures record
// path as the last unprocessed input.
func (sess *session) parse(filesystem fs.FileSystem, path string, verbose bool) Outcome {
	out := Outcome{Path: path}

	if !fs.IsFile(filesystem, path) {
		sess.lastUnprocessed = path
		sess.log.Warnf("%s is not a file; not processed", path)
		out.Status = StatusUnprocessed
		out.Err = fmt.Errorf("%w: %s: not a regular file", ErrUnprocessedInput, path)
		return out
	}

	if sess.parser == nil {
		sess.lastUnprocessed = path
		sess.log.Warnf("no grammar loaded; %s not processed", path)
		out.Status = StatusGrammarMissing
		out.Err = fmt.Errorf("%w: %s: %w", ErrUnprocessedInput, path, ErrNoGrammar)
		return out
	}

	data, err := filesystem.ReadFile(path)
	if err != nil {
		sess.lastUnprocessed = path
		sess.log.Warnf("cannot read %s: %v", path, err)
		out.Status = StatusUnprocessed
		out.Err = fmt.Errorf("%w: %s: %w", ErrUnprocessedInput, path, err)
		return out
	}

	text, err := source.Decode(data)
	if err != nil {
		sess.log.Errorf("%s: %v", path, err)
		out.Status = StatusFailed
		out.Err = fmt.Errorf("%w: %s: %w", ErrParseFailure, path, err)
		return out
	}

	start := time.Now()
	root, err := sess.parser.Parse(text)
	out.Duration = time.Since(start)
	metrics.ParseDuration.Observe(out.Duration.Seconds())

	if err != nil {
		sess.log.Errorf("%s: %v", path, err)
		out.Status = StatusFailed
		out.Err = fmt.Errorf("%w: %s: %w", ErrParseFailure, path, err)
		return out
	}

	sess.log.Debugf("parsed %s in %s", path, out.Duration)
	sess.log.Verbose(verbose, "%s: %d nodes, %d leaves", path, countNodes(root), len(root.Leaves()))

	out.Status = StatusParsed
	out.Tree = root
	return out
}

func (sess *session) parseToFile(filesystem fs.FileSystem, path, dest string, verbose bool) Outcome {
	out := sess.parse(filesystem, path, verbose)
	if !out.OK() {
		return out
	}

	data, err := tree.Marshal(out.Tree)
	if err != nil {
		out.Status, out.Tree, out.Err = StatusFailed, nil, err
		return out
	}

	if dir := filepath.Dir(dest); dir != "." {
		if err := filesystem.MkdirAll(dir, 0755); err != nil {
			sess.log.Errorf("cannot create output directory %s: %v", dir, err)
			out.Status, out.Tree = StatusFailed, nil
			out.Err = fmt.Errorf("failed to create output directory %s: %w", dir, err)
			return out
		}
	}

	if err := filesystem.WriteFile(dest, data, 0644); err != nil {
		sess.log.Errorf("cannot write %s: %v", dest, err)
		out.Status, out.Tree = StatusFailed, nil
		out.Err = fmt.Errorf("failed to write %s: %w", dest, err)
		return out
	}

	sess.log.Verbose(verbose, "wrote %s", dest)
	out.Output = dest
	return out
}

func countNodes(root *tree.Node) int {
	n := 0
	root.Walk(func(*tree.Node) bool {
		n++
		return true
	})
	return n
}
