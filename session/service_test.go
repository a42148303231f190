/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

package session_test

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bennypowers.dev/parselib/engine"
	"bennypowers.dev/parselib/grammar"
	"bennypowers.dev/parselib/internal/mapfs"
	"bennypowers.dev/parselib/internal/metrics"
	"bennypowers.dev/parselib/session"
	"bennypowers.dev/parselib/testutil"
	"bennypowers.dev/parselib/tree"
)

func newService(t *testing.T) (*session.Service, *mapfs.MapFileSystem, *bytes.Buffer) {
	t.Helper()
	mfs := testutil.NewFixtureFS(t, "fixtures", "/")
	var logs bytes.Buffer
	svc := session.New(session.Options{FS: mfs, LogOutput: &logs})
	t.Cleanup(svc.Close)
	return svc, mfs, &logs
}

func TestParse_BeforeLoad(t *testing.T) {
	svc, _, _ := newService(t)
	h := svc.CreateSession(1)

	out := svc.Parse(h, "/sources/ok.txt", false)
	assert.Equal(t, session.StatusGrammarMissing, out.Status)
	assert.Nil(t, out.Tree)
	assert.True(t, out.Unprocessed())
	assert.ErrorIs(t, out.Err, session.ErrUnprocessedInput)
	assert.ErrorIs(t, out.Err, session.ErrNoGrammar)

	info, err := svc.Info(h)
	require.NoError(t, err)
	assert.Equal(t, "/sources/ok.txt", info.LastUnprocessedInput)
	assert.False(t, info.GrammarLoaded)
	assert.Equal(t, session.StateCreated, info.State)
}

func TestParse_MissingSource(t *testing.T) {
	svc, _, _ := newService(t)
	h := svc.CreateSession(1)
	require.NoError(t, svc.LoadGrammar(h, "/grammars/arith.grm", false))

	out := svc.Parse(h, "/sources/nope.txt", false)
	assert.Equal(t, session.StatusUnprocessed, out.Status)
	assert.ErrorIs(t, out.Err, session.ErrUnprocessedInput)

	out = svc.Parse(h, "/sources", false)
	assert.Equal(t, session.StatusUnprocessed, out.Status, "directories are not parsed")

	info, _ := svc.Info(h)
	assert.Equal(t, "/sources", info.LastUnprocessedInput)
}

func TestParse_Arith(t *testing.T) {
	svc, _, _ := newService(t)
	h := svc.CreateSession(1)
	require.NoError(t, svc.LoadGrammar(h, "/grammars/arith.grm", false))

	data, out := svc.ParseJSON(h, "/sources/ok.txt", false)
	require.True(t, out.OK(), "unexpected outcome: %v", out.Err)

	var numbers int
	for _, leaf := range out.Tree.Leaves() {
		if leaf.Kind == tree.KindPattern {
			numbers++
		}
	}
	assert.Equal(t, 3, numbers)
	assert.Len(t, out.Tree.FindRule("op"), 2)

	decoded, err := tree.Unmarshal(data)
	require.NoError(t, err)
	assert.True(t, out.Tree.Equal(decoded))
}

func TestParse_Failure(t *testing.T) {
	svc, _, logs := newService(t)
	h := svc.CreateSession(1)
	require.NoError(t, svc.LoadGrammar(h, "/grammars/arith.grm", false))

	data, out := svc.ParseJSON(h, "/sources/bad.txt", false)
	assert.Nil(t, data)
	assert.Equal(t, session.StatusFailed, out.Status)
	assert.Nil(t, out.Tree)
	assert.False(t, out.Unprocessed())
	assert.ErrorIs(t, out.Err, session.ErrParseFailure)
	assert.ErrorIs(t, out.Err, engine.ErrNoMatch)

	var perr *engine.ParseError
	require.ErrorAs(t, out.Err, &perr)
	assert.Equal(t, 2, perr.Line)

	info, _ := svc.Info(h)
	assert.Empty(t, info.LastUnprocessedInput, "parse failures are not unprocessed input")
	assert.Contains(t, logs.String(), "error: /sources/bad.txt")
}

func TestParseToFile_MatchesParse(t *testing.T) {
	svc, mfs, _ := newService(t)
	h := svc.CreateSession(1)
	require.NoError(t, svc.LoadGrammar(h, "/grammars/arith.grm", false))

	parsed := svc.Parse(h, "/sources/ok.txt", false)
	require.True(t, parsed.OK())

	written := svc.ParseToFile(h, "/sources/ok.txt", "", false)
	require.True(t, written.OK(), "unexpected outcome: %v", written.Err)
	assert.Equal(t, "/sources/ok.txt.json", written.Output)

	data, err := mfs.ReadFile(written.Output)
	require.NoError(t, err)
	decoded, err := tree.Unmarshal(data)
	require.NoError(t, err)
	assert.True(t, parsed.Tree.Equal(decoded))

	jsonData, _ := svc.ParseJSON(h, "/sources/ok.txt", false)
	assert.Equal(t, string(jsonData), string(data), "in-memory and on-disk encodings match")
}

func TestParseToFile_ExplicitAndConfiguredDestination(t *testing.T) {
	mfs := testutil.NewFixtureFS(t, "fixtures", "/")
	svc := session.New(session.Options{
		FS:          mfs,
		LogOutput:   io.Discard,
		Destination: session.InDir("/out", ".tree.json"),
	})
	defer svc.Close()

	h := svc.CreateSession(0)
	require.NoError(t, svc.LoadGrammar(h, "/grammars/arith.grm", false))

	out := svc.ParseToFile(h, "/sources/ok.txt", "", false)
	require.True(t, out.OK())
	assert.Equal(t, "/out/ok.txt.tree.json", out.Output)
	assert.True(t, mfs.Exists("/out/ok.txt.tree.json"))

	out = svc.ParseToFile(h, "/sources/ok.txt", "/elsewhere/result.json", false)
	require.True(t, out.OK())
	assert.Equal(t, "/elsewhere/result.json", out.Output)
	assert.True(t, mfs.Exists("/elsewhere/result.json"))
}

func TestParseToFile_Unprocessed(t *testing.T) {
	svc, mfs, _ := newService(t)
	h := svc.CreateSession(1)
	writes := mfs.Writes()

	out := svc.ParseToFile(h, "/sources/ok.txt", "", false)
	assert.Equal(t, session.StatusGrammarMissing, out.Status)
	assert.Empty(t, out.Output)
	assert.Equal(t, writes, mfs.Writes(), "nothing is written")

	info, _ := svc.Info(h)
	assert.Equal(t, "/sources/ok.txt", info.LastUnprocessedInput)
}

func TestParseToFile_WriteFailure(t *testing.T) {
	svc, _, logs := newService(t)
	h := svc.CreateSession(1)
	require.NoError(t, svc.LoadGrammar(h, "/grammars/arith.grm", false))

	// parent "directory" is a regular file
	out := svc.ParseToFile(h, "/sources/ok.txt", "/sources/small.txt/out.json", false)
	assert.Equal(t, session.StatusFailed, out.Status)
	assert.Error(t, out.Err)
	assert.NotErrorIs(t, out.Err, session.ErrParseFailure)
	assert.Empty(t, out.Output)
	assert.Contains(t, logs.String(), "error: cannot create output directory /sources/small.txt")
}

func TestLoadGrammar_Twice(t *testing.T) {
	svc, _, _ := newService(t)
	h := svc.CreateSession(1)

	require.NoError(t, svc.LoadGrammar(h, "/grammars/arith.grm", false))
	first := svc.Parse(h, "/sources/ok.txt", false)

	require.NoError(t, svc.LoadGrammar(h, "/grammars/arith.grm", false))
	second := svc.Parse(h, "/sources/ok.txt", false)

	require.True(t, first.OK())
	require.True(t, second.OK())
	assert.True(t, first.Tree.Equal(second.Tree))
}

func TestLoadGrammar_Reload(t *testing.T) {
	svc, _, _ := newService(t)
	h := svc.CreateSession(1)

	require.NoError(t, svc.LoadGrammar(h, "/grammars/arith.grm", false))
	assert.Equal(t, session.StatusFailed, svc.Parse(h, "/sources/mul.txt", false).Status)

	require.NoError(t, svc.LoadGrammar(h, "/grammars/arith2.grm", false))
	out := svc.Parse(h, "/sources/mul.txt", false)
	require.True(t, out.OK(), "unexpected outcome: %v", out.Err)
	assert.Equal(t, "expr", out.Tree.Rule)
	assert.Len(t, out.Tree.FindRule("expr"), 2, "the inlined group nests an expr")

	info, _ := svc.Info(h)
	assert.Equal(t, "/grammars/arith2.grm", info.GrammarPath)
}

func TestLoadGrammar_NotFound(t *testing.T) {
	svc, _, logs := newService(t)
	h := svc.CreateSession(1)

	err := svc.LoadGrammar(h, "/nonexistent.grm", false)
	assert.ErrorIs(t, err, session.ErrGrammarNotFound)
	assert.Contains(t, logs.String(), "grammar not loaded /nonexistent.grm")

	info, _ := svc.Info(h)
	assert.False(t, info.GrammarLoaded)
}

func TestLoadGrammar_FailedReloadDropsGrammar(t *testing.T) {
	svc, _, _ := newService(t)
	h := svc.CreateSession(1)

	require.NoError(t, svc.LoadGrammar(h, "/grammars/arith.grm", false))

	err := svc.LoadGrammar(h, "/grammars/broken.grm", false)
	assert.ErrorIs(t, err, session.ErrGrammarInvalid)
	assert.ErrorIs(t, err, grammar.ErrUndefinedRule)

	info, _ := svc.Info(h)
	assert.False(t, info.GrammarLoaded)
	assert.Equal(t, session.StateCreated, info.State)
	assert.Equal(t, session.StatusGrammarMissing, svc.Parse(h, "/sources/ok.txt", false).Status)
}

func TestLoadGrammar_Verbose(t *testing.T) {
	svc, _, logs := newService(t)
	h := svc.CreateSession(1)

	require.NoError(t, svc.LoadGrammar(h, "/grammars/arith.grm", true))
	assert.Contains(t, logs.String(), "3 rules, start expr")
	assert.Contains(t, logs.String(), "op := '+' | '-' ;")

	logs.Reset()
	silent := svc.CreateSession(0)
	require.NoError(t, svc.LoadGrammar(silent, "/grammars/arith.grm", true))
	assert.Empty(t, logs.String(), "silent sessions ignore verbose")
}

func TestLogLevels(t *testing.T) {
	svc, _, logs := newService(t)

	silent := svc.CreateSession(0)
	_ = svc.LoadGrammar(silent, "/missing.grm", false)
	assert.Empty(t, logs.String())

	info, _ := svc.Info(silent)
	assert.Equal(t, 0, info.LogLevel)

	loud := svc.CreateSession(99)
	info, _ = svc.Info(loud)
	assert.Equal(t, 4, info.LogLevel, "levels above debug clamp")

	negative := svc.CreateSession(-3)
	info, _ = svc.Info(negative)
	assert.Equal(t, 0, info.LogLevel)
}

func TestDestroySession(t *testing.T) {
	svc, _, _ := newService(t)
	h := svc.CreateSession(1)
	require.NoError(t, svc.LoadGrammar(h, "/grammars/arith.grm", false))
	require.Equal(t, 1, svc.Len())

	svc.DestroySession(h)
	assert.Equal(t, 0, svc.Len())

	assert.ErrorIs(t, svc.LoadGrammar(h, "/grammars/arith.grm", false), session.ErrSessionInvalid)

	out := svc.Parse(h, "/sources/ok.txt", false)
	assert.Equal(t, session.StatusInvalidSession, out.Status)
	assert.ErrorIs(t, out.Err, session.ErrSessionInvalid)

	data, out := svc.ParseJSON(h, "/sources/ok.txt", false)
	assert.Nil(t, data)
	assert.Equal(t, session.StatusInvalidSession, out.Status)

	assert.Equal(t, session.StatusInvalidSession, svc.ParseToFile(h, "/sources/ok.txt", "", false).Status)

	_, err := svc.Info(h)
	assert.ErrorIs(t, err, session.ErrSessionInvalid)

	assert.NotPanics(t, func() {
		svc.DestroySession(h)
		svc.DestroySession(session.Handle{})
	})
}

func TestHandle_StaleAfterReuse(t *testing.T) {
	svc, _, _ := newService(t)

	old := svc.CreateSession(1)
	svc.DestroySession(old)

	reused := svc.CreateSession(1)
	assert.NotEqual(t, old, reused)

	require.NoError(t, svc.LoadGrammar(reused, "/grammars/arith.grm", false))
	assert.ErrorIs(t, svc.LoadGrammar(old, "/grammars/arith.grm", false), session.ErrSessionInvalid)

	svc.DestroySession(old)
	assert.Equal(t, 1, svc.Len(), "destroying a stale handle leaves the new session alone")
}

func TestHandle_Zero(t *testing.T) {
	svc, _, _ := newService(t)
	var h session.Handle
	assert.True(t, h.IsZero())
	assert.Equal(t, "session(nil)", h.String())
	assert.Equal(t, session.StatusInvalidSession, svc.Parse(h, "/sources/ok.txt", false).Status)
}

func TestSessionIDs(t *testing.T) {
	svc, _, _ := newService(t)
	a, _ := svc.Info(svc.CreateSession(1))
	b, _ := svc.Info(svc.CreateSession(1))
	assert.Len(t, a.ID, 36)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestClose(t *testing.T) {
	svc, _, _ := newService(t)
	handles := []session.Handle{svc.CreateSession(1), svc.CreateSession(2), svc.CreateSession(3)}
	svc.DestroySession(handles[1])

	svc.Close()
	assert.Equal(t, 0, svc.Len())
	for _, h := range handles {
		_, err := svc.Info(h)
		assert.ErrorIs(t, err, session.ErrSessionInvalid)
	}
}

func TestConcurrentSessions(t *testing.T) {
	mfs := testutil.NewFixtureFS(t, "fixtures", "/")
	svc := session.New(session.Options{FS: mfs, LogOutput: io.Discard})
	defer svc.Close()

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h := svc.CreateSession(0)
			defer svc.DestroySession(h)

			g, src := "/grammars/arith.grm", "/sources/ok.txt"
			if i%2 == 1 {
				g, src = "/grammars/arith2.grm", "/sources/mul.txt"
			}
			if err := svc.LoadGrammar(h, g, false); err != nil {
				errs <- err
				return
			}
			for j := 0; j < 10; j++ {
				if out := svc.Parse(h, src, false); !out.OK() {
					errs <- fmt.Errorf("session %d: %w", i, out.Err)
					return
				}
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
	assert.Equal(t, 0, svc.Len())
}

func TestSharedSessionIsSerialized(t *testing.T) {
	mfs := testutil.NewFixtureFS(t, "fixtures", "/")
	svc := session.New(session.Options{FS: mfs, LogOutput: io.Discard})
	defer svc.Close()

	h := svc.CreateSession(0)
	require.NoError(t, svc.LoadGrammar(h, "/grammars/arith.grm", false))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out := svc.Parse(h, "/sources/ok.txt", false)
			assert.True(t, out.OK() || errors.Is(out.Err, session.ErrSessionInvalid))
		}()
	}
	svc.DestroySession(h)
	wg.Wait()
}

func TestMetrics(t *testing.T) {
	svc, _, _ := newService(t)

	active := promtest.ToFloat64(metrics.SessionsActive)
	created := promtest.ToFloat64(metrics.SessionsCreatedTotal)
	parsed := promtest.ToFloat64(metrics.ParsesTotal.WithLabelValues("parsed"))
	notFound := promtest.ToFloat64(metrics.GrammarLoadsTotal.WithLabelValues("not_found"))

	h := svc.CreateSession(0)
	assert.Equal(t, active+1, promtest.ToFloat64(metrics.SessionsActive))
	assert.Equal(t, created+1, promtest.ToFloat64(metrics.SessionsCreatedTotal))

	_ = svc.LoadGrammar(h, "/missing.grm", false)
	assert.Equal(t, notFound+1, promtest.ToFloat64(metrics.GrammarLoadsTotal.WithLabelValues("not_found")))

	require.NoError(t, svc.LoadGrammar(h, "/grammars/arith.grm", false))
	svc.Parse(h, "/sources/ok.txt", false)
	assert.Equal(t, parsed+1, promtest.ToFloat64(metrics.ParsesTotal.WithLabelValues("parsed")))

	svc.DestroySession(h)
	assert.Equal(t, active, promtest.ToFloat64(metrics.SessionsActive))
}

func TestDefault(t *testing.T) {
	t.Cleanup(session.Shutdown)

	svc := session.Default()
	assert.Same(t, svc, session.Default())

	h := svc.CreateSession(0)
	session.Shutdown()
	assert.Equal(t, 0, svc.Len())

	_, err := svc.Info(h)
	assert.ErrorIs(t, err, session.ErrSessionInvalid)

	fresh := session.Default()
	assert.NotSame(t, svc, fresh)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "parsed", session.StatusParsed.String())
	assert.Equal(t, "grammar_missing", session.StatusGrammarMissing.String())
	assert.True(t, strings.HasPrefix(session.StatusInvalidSession.String(), "invalid"))
}
