/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

// Package session provides the grammar parsing service: a caller creates a
// session, loads a grammar into it, parses source files against that grammar
// and destroys the session when done.
//
// Sessions are independent. Operations on one session are serialized;
// different sessions may be used from different goroutines at the same time.
package session

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/google/uuid"

	"bennypowers.dev/parselib/engine"
	"bennypowers.dev/parselib/fs"
	"bennypowers.dev/parselib/internal/logger"
	"bennypowers.dev/parselib/internal/metrics"
	"bennypowers.dev/parselib/tree"
)

// Options configures a Service.
type Options struct {
	// FS is the filesystem grammars and sources are read from and outputs
	// written to. Defaults to the OS filesystem if nil.
	FS fs.FileSystem

	// LogOutput receives session diagnostics. Defaults to os.Stderr.
	LogOutput io.Writer

	// LogLevel is the threshold for service-level diagnostics such as
	// ignored destroy calls. Sessions use the level given to CreateSession.
	LogLevel int

	// Destination names the output of ParseToFile when no destination is
	// passed. Defaults to Sibling(DefaultSuffix).
	Destination Destination

	// Engine configures the parser built for each loaded grammar.
	Engine engine.Options
}

type slot struct {
	generation uint32
	sess       *session
}

// Service owns an arena of sessions addressed by Handle.
type Service struct {
	// mu guards the arena only; session state is guarded by session.mu.
	mu    sync.Mutex
	slots []slot
	free  []uint32
	live  int

	fs          fs.FileSystem
	logOutput   io.Writer
	destination Destination
	engine      engine.Options
	log         *logger.Logger
}

// New creates a Service.
func New(opts Options) *Service {
	filesystem := opts.FS
	if filesystem == nil {
		filesystem = fs.NewOSFileSystem()
	}
	out := opts.LogOutput
	if out == nil {
		out = os.Stderr
	}
	dest := opts.Destination
	if dest == nil {
		dest = Sibling(DefaultSuffix)
	}
	return &Service{
		fs:          filesystem,
		logOutput:   out,
		destination: dest,
		engine:      opts.Engine,
		log:         logger.New(out, logger.ClampLevel(opts.LogLevel), "parselib: "),
	}
}

// CreateSession allocates a session with no grammar. logLevel is clamped to
// 0 (silent) through 4 (debug).
func (s *Service) CreateSession(logLevel int) Handle {
	id := uuid.NewString()
	sess := &session{
		id:  id,
		log: logger.New(s.logOutput, logger.ClampLevel(logLevel), "session "+id[:8]+": "),
	}

	s.mu.Lock()
	var index uint32
	if n := len(s.free); n > 0 {
		index = s.free[n-1]
		s.free = s.free[:n-1]
	} else {
		index = uint32(len(s.slots))
		s.slots = append(s.slots, slot{})
	}
	sl := &s.slots[index]
	sl.generation++
	if sl.generation == 0 {
		sl.generation = 1
	}
	sl.sess = sess
	s.live++
	h := Handle{index: index, generation: sl.generation}
	s.mu.Unlock()

	metrics.SessionsCreatedTotal.Inc()
	metrics.SessionsActive.Inc()
	s.log.Debugf("created %s (%s)", h, id)
	return h
}

// lookup returns the live session for h, or nil.
func (s *Service) lookup(h Handle) *session {
	if h.IsZero() {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if int(h.index) >= len(s.slots) {
		return nil
	}
	sl := s.slots[h.index]
	if sl.generation != h.generation {
		return nil
	}
	return sl.sess
}

// acquire returns the session for h with its mutex held.
func (s *Service) acquire(h Handle) (*session, error) {
	sess := s.lookup(h)
	if sess == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionInvalid, h)
	}
	sess.mu.Lock()
	// destroyed between lookup and lock
	if sess.destroyed {
		sess.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrSessionInvalid, h)
	}
	return sess, nil
}

// LoadGrammar compiles the grammar file at path into the session, replacing
// any grammar loaded before. The previous grammar is dropped first, so a
// failed load leaves the session without a grammar.
func (s *Service) LoadGrammar(h Handle, path string, verbose bool) error {
	sess, err := s.acquire(h)
	if err != nil {
		return err
	}
	defer sess.mu.Unlock()
	return sess.loadGrammar(s.fs, s.engine, path, verbose)
}

// Parse parses the file at path with the session's grammar.
func (s *Service) Parse(h Handle, path string, verbose bool) Outcome {
	sess, err := s.acquire(h)
	if err != nil {
		return s.record(Outcome{Status: StatusInvalidSession, Path: path, Err: err})
	}
	defer sess.mu.Unlock()
	return s.record(sess.parse(s.fs, path, verbose))
}

// ParseJSON is Parse plus the JSON encoding of the tree. The JSON is nil
// unless the outcome is StatusParsed.
func (s *Service) ParseJSON(h Handle, path string, verbose bool) ([]byte, Outcome) {
	out := s.Parse(h, path, verbose)
	if !out.OK() {
		return nil, out
	}
	data, err := tree.Marshal(out.Tree)
	if err != nil {
		out.Status, out.Tree, out.Err = StatusFailed, nil, err
		return nil, out
	}
	return data, out
}

// ParseToFile parses the file at path and writes the JSON tree to dest.
// An empty dest is resolved with Options.Destination.
func (s *Service) ParseToFile(h Handle, path, dest string, verbose bool) Outcome {
	sess, err := s.acquire(h)
	if err != nil {
		return s.record(Outcome{Status: StatusInvalidSession, Path: path, Err: err})
	}
	defer sess.mu.Unlock()

	if dest == "" {
		dest = s.destination(path)
	}
	return s.record(sess.parseToFile(s.fs, path, dest, verbose))
}

func (s *Service) record(out Outcome) Outcome {
	metrics.ParsesTotal.WithLabelValues(out.Status.String()).Inc()
	return out
}

// Info returns a snapshot of the session's attributes.
func (s *Service) Info(h Handle) (Info, error) {
	sess, err := s.acquire(h)
	if err != nil {
		return Info{State: StateDestroyed}, err
	}
	defer sess.mu.Unlock()
	return sess.info(), nil
}

// DestroySession releases the session's grammar and parser state. Calling
// it with a zero, stale or already destroyed handle does nothing.
func (s *Service) DestroySession(h Handle) {
	s.mu.Lock()
	sess := s.detach(h)
	s.mu.Unlock()

	if sess == nil {
		s.log.Debugf("destroy ignored for %s", h)
		return
	}

	sess.mu.Lock()
	sess.release()
	sess.mu.Unlock()

	metrics.SessionsActive.Dec()
	s.log.Debugf("destroyed %s", h)
}

// detach removes h's session from the arena. s.mu must be held.
func (s *Service) detach(h Handle) *session {
	if h.IsZero() || int(h.index) >= len(s.slots) {
		return nil
	}
	sl := &s.slots[h.index]
	if sl.generation != h.generation || sl.sess == nil {
		return nil
	}
	sess := sl.sess
	sl.sess = nil
	sl.generation++
	s.free = append(s.free, h.index)
	s.live--
	return sess
}

// Close destroys every live session.
func (s *Service) Close() {
	s.mu.Lock()
	var sessions []*session
	for i := range s.slots {
		sl := &s.slots[i]
		if sl.sess == nil {
			continue
		}
		sessions = append(sessions, s.detach(Handle{index: uint32(i), generation: sl.generation}))
	}
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.mu.Lock()
		sess.release()
		sess.mu.Unlock()
		metrics.SessionsActive.Dec()
	}
	s.log.Debugf("closed %d sessions", len(sessions))
}

// Len returns the number of live sessions.
func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live
}
