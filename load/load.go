/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

// Package load provides a high-level API for parsing files: one file with
// File, or many files across concurrent sessions with Batch.
package load

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"bennypowers.dev/parselib/engine"
	"bennypowers.dev/parselib/fs"
	"bennypowers.dev/parselib/session"
)

// ErrNoGrammar indicates a job named no grammar and Options.Grammar is empty.
var ErrNoGrammar = errors.New("no grammar given")

// Options configures File and Batch.
type Options struct {
	// FS is the filesystem to use. Defaults to OS filesystem if nil.
	FS fs.FileSystem

	// Service runs the sessions. When nil a private service is created
	// from FS, LogOutput and Engine and closed before returning. A supplied
	// Service keeps its own filesystem, log output and engine options.
	Service *session.Service

	// Grammar is used for jobs that name no grammar of their own.
	Grammar string

	// LogLevel is passed to CreateSession for every session.
	LogLevel int

	// LogOutput receives session diagnostics of a private service.
	LogOutput io.Writer

	// Verbose is passed to every LoadGrammar and parse call.
	Verbose bool

	// Concurrency is the number of sessions Batch runs at once.
	// Defaults to GOMAXPROCS.
	Concurrency int

	// ToFile writes each tree with ParseToFile instead of returning it.
	ToFile bool

	// Destination names output files when ToFile is set, with a private or
	// a supplied Service. When nil the service's own destination is used.
	Destination session.Destination

	// Engine configures the parsers of a private service.
	Engine engine.Options

	// Grammars, when set, resolves grammar references such as
	// npm:pkg/file.grm before any session loads them.
	Grammars *GrammarResolver

	// OnOutcome, when set, is called once per finished job. It may be
	// called from several goroutines at once.
	OnOutcome func(Job, session.Outcome)
}

// Job is one file to parse and the grammar to parse it with.
type Job struct {
	Path    string
	Grammar string
}

// Report summarizes a Batch.
type Report struct {
	// Outcomes holds one entry per job, in job order.
	Outcomes []session.Outcome

	// Parsed counts StatusParsed outcomes.
	Parsed int

	// Unprocessed lists paths skipped on a precondition.
	Unprocessed []string

	// Failed lists paths the grammar rejected or whose output failed.
	Failed []string

	// GrammarErrors maps grammar paths to their load error.
	GrammarErrors map[string]error
}

// OK reports whether every job parsed.
func (r *Report) OK() bool {
	return r.Parsed == len(r.Outcomes)
}

// Err joins the errors of every outcome that did not parse.
func (r *Report) Err() error {
	var errs []error
	for _, out := range r.Outcomes {
		if out.Err != nil {
			errs = append(errs, out.Err)
		}
	}
	return errors.Join(errs...)
}

func (opts Options) service() (*session.Service, func()) {
	if opts.Service != nil {
		return opts.Service, func() {}
	}
	svc := session.New(session.Options{
		FS:          opts.FS,
		LogOutput:   opts.LogOutput,
		Destination: opts.Destination,
		Engine:      opts.Engine,
	})
	return svc, svc.Close
}

// File parses one file with the grammar at grammarPath in a fresh session.
// The returned error reports a grammar that could not be loaded; parse
// problems are described by the Outcome.
func File(ctx context.Context, grammarPath, path string, opts Options) (session.Outcome, error) {
	if err := ctx.Err(); err != nil {
		return session.Outcome{Status: session.StatusUnprocessed, Path: path, Err: err}, err
	}

	if opts.Grammars != nil {
		resolved, err := opts.Grammars.Resolve(ctx, grammarPath)
		if err != nil {
			return session.Outcome{
				Status: session.StatusGrammarMissing,
				Path:   path,
				Err:    fmt.Errorf("%w: %s: %w", session.ErrUnprocessedInput, path, err),
			}, err
		}
		grammarPath = resolved
	}

	svc, done := opts.service()
	defer done()

	h := svc.CreateSession(opts.LogLevel)
	defer svc.DestroySession(h)

	if err := svc.LoadGrammar(h, grammarPath, opts.Verbose); err != nil {
		return session.Outcome{
			Status: session.StatusGrammarMissing,
			Path:   path,
			Err:    fmt.Errorf("%w: %s: %w", session.ErrUnprocessedInput, path, err),
		}, err
	}

	return run(svc, h, path, opts), nil
}

func run(svc *session.Service, h session.Handle, path string, opts Options) session.Outcome {
	if opts.ToFile {
		dest := ""
		if opts.Destination != nil {
			dest = opts.Destination(path)
		}
		return svc.ParseToFile(h, path, dest, opts.Verbose)
	}
	return svc.Parse(h, path, opts.Verbose)
}

// Batch parses every job. Each worker owns one session and reloads it only
// when the next job names a different grammar. A bad grammar or input never
// stops the batch; ctx is checked between files, and jobs not started when
// it is done are reported unprocessed with the context error.
func Batch(ctx context.Context, jobs []Job, opts Options) (*Report, error) {
	report := &Report{
		Outcomes:      make([]session.Outcome, len(jobs)),
		GrammarErrors: make(map[string]error),
	}
	if len(jobs) == 0 {
		return report, nil
	}

	jobs = slices.Clone(jobs)
	for i := range jobs {
		if jobs[i].Grammar == "" {
			jobs[i].Grammar = opts.Grammar
		}
	}

	unresolved := map[string]error{}
	if opts.Grammars != nil {
		unresolved = resolveGrammars(ctx, opts.Grammars, jobs)
		for ref, err := range unresolved {
			report.GrammarErrors[ref] = err
		}
	}

	svc, done := opts.service()
	defer done()

	workers := opts.Concurrency
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = min(workers, len(jobs))

	var mu sync.Mutex
	started := make([]bool, len(jobs))
	queue := make(chan int)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(queue)
		for i := range jobs {
			select {
			case queue <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	for range workers {
		g.Go(func() error {
			h := svc.CreateSession(opts.LogLevel)
			defer svc.DestroySession(h)

			loaded := ""
			for i := range queue {
				if err := gctx.Err(); err != nil {
					return err
				}
				job := jobs[i]

				mu.Lock()
				started[i] = true
				mu.Unlock()

				var out session.Outcome
				switch {
				case job.Grammar == "":
					out = session.Outcome{
						Status: session.StatusGrammarMissing,
						Path:   job.Path,
						Err:    fmt.Errorf("%w: %s: %w", session.ErrUnprocessedInput, job.Path, ErrNoGrammar),
					}
				case unresolved[job.Grammar] != nil:
					out = session.Outcome{
						Status: session.StatusGrammarMissing,
						Path:   job.Path,
						Err:    fmt.Errorf("%w: %s: %w", session.ErrUnprocessedInput, job.Path, unresolved[job.Grammar]),
					}
				default:
					if job.Grammar != loaded {
						loaded = job.Grammar
						if err := svc.LoadGrammar(h, job.Grammar, opts.Verbose); err != nil {
							mu.Lock()
							report.GrammarErrors[job.Grammar] = err
							mu.Unlock()
						}
					}
					out = run(svc, h, job.Path, opts)
				}

				report.Outcomes[i] = out
				if opts.OnOutcome != nil {
					opts.OnOutcome(job, out)
				}
			}
			return nil
		})
	}

	err := g.Wait()

	for i, job := range jobs {
		if !started[i] {
			report.Outcomes[i] = session.Outcome{
				Status: session.StatusUnprocessed,
				Path:   job.Path,
				Err:    fmt.Errorf("%w: %s: %w", session.ErrUnprocessedInput, job.Path, ctx.Err()),
			}
		}
	}
	report.tally()

	return report, err
}

func (r *Report) tally() {
	for _, out := range r.Outcomes {
		switch {
		case out.OK():
			r.Parsed++
		case out.Status == session.StatusFailed:
			r.Failed = append(r.Failed, out.Path)
		default:
			r.Unprocessed = append(r.Unprocessed, out.Path)
		}
	}
}
