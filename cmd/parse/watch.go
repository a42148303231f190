/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

package parse

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"bennypowers.dev/parselib/internal/logger"
	"bennypowers.dev/parselib/load"
	"bennypowers.dev/parselib/specifier"
)

const debounce = 150 * time.Millisecond

// watcher collects change events for a set of files and delivers them in
// debounced batches.
type watcher struct {
	fsw     *fsnotify.Watcher
	watched map[string]bool
	changes chan []string

	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer
}

func newWatcher(paths []string) (*watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &watcher{
		fsw:     fsw,
		watched: make(map[string]bool),
		changes: make(chan []string, 1),
		pending: make(map[string]struct{}),
	}

	// Directories are watched rather than files so that editors which
	// replace a file on save keep being observed.
	dirs := make(map[string]bool)
	for _, path := range paths {
		abs := absPath(path)
		w.watched[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			_ = fsw.Close()
			return nil, fmt.Errorf("error watching %s: %w", dir, err)
		}
	}

	return w, nil
}

func (w *watcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			path := filepath.Clean(event.Name)
			if w.watched[path] {
				w.schedule(path)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logger.Error("watcher error: %v", err)
		}
	}
}

func (w *watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending[path] = struct{}{}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(debounce, w.flush)
}

func (w *watcher) flush() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.pending) == 0 {
		return
	}
	paths := make([]string, 0, len(w.pending))
	for path := range w.pending {
		paths = append(paths, path)
	}
	clear(w.pending)

	// A batch still waiting to be picked up absorbs this one. Only flush
	// sends on changes, so under mu the send after a drain cannot block.
	select {
	case prev := <-w.changes:
		paths = append(prev, paths...)
	default:
	}
	slices.Sort(paths)
	w.changes <- slices.Compact(paths)
}

func (w *watcher) Close() error {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return w.fsw.Close()
}

// watch re-parses the affected jobs whenever a source or grammar changes,
// until ctx is done.
func watch(ctx context.Context, cmd *cobra.Command, s *settings) error {
	jobs := resolvedJobs(ctx, s.opts.Grammars, s.jobs)
	w, err := newWatcher(watchedPaths(jobs))
	if err != nil {
		return err
	}
	defer w.Close()

	go w.run(ctx)

	stderr := cmd.ErrOrStderr()
	fmt.Fprintf(stderr, "Watching %d files for changes\n", len(jobs))

	for {
		select {
		case <-ctx.Done():
			return writeMetrics(s.metrics)
		case changed := <-w.changes:
			affected := affectedJobs(jobs, changed)
			if len(affected) == 0 {
				continue
			}
			fmt.Fprintf(stderr, "Re-parsing %d files\n", len(affected))
			if _, err := parseAll(cmd, s, affected); err != nil {
				return err
			}
		}
	}
}

// resolvedJobs returns a copy of jobs with grammar references replaced by
// the files they resolve to, so that grammar edits can be observed.
// References that do not resolve are kept.
func resolvedJobs(ctx context.Context, grammars *load.GrammarResolver, jobs []load.Job) []load.Job {
	jobs = slices.Clone(jobs)
	if grammars == nil {
		return jobs
	}
	for i, job := range jobs {
		if job.Grammar == "" {
			continue
		}
		if path, err := grammars.Resolve(ctx, job.Grammar); err == nil {
			jobs[i].Grammar = path
		}
	}
	return jobs
}

// watchedPaths lists every source and local grammar of jobs once.
func watchedPaths(jobs []load.Job) []string {
	seen := make(map[string]bool)
	var paths []string
	add := func(path string) {
		if path == "" || seen[path] || specifier.IsPackageSpecifier(path) {
			return
		}
		seen[path] = true
		paths = append(paths, path)
	}
	for _, job := range jobs {
		add(job.Path)
		add(job.Grammar)
	}
	return paths
}

// affectedJobs returns the jobs whose source or grammar is in changed,
// in their original order.
func affectedJobs(jobs []load.Job, changed []string) []load.Job {
	set := make(map[string]bool, len(changed))
	for _, path := range changed {
		set[absPath(path)] = true
	}

	var result []load.Job
	for _, job := range jobs {
		if set[absPath(job.Path)] || (job.Grammar != "" && set[absPath(job.Grammar)]) {
			result = append(result, job)
		}
	}
	return result
}

func absPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}
