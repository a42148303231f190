/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

package load

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"bennypowers.dev/parselib/fs"
	"bennypowers.dev/parselib/internal/logger"
	"bennypowers.dev/parselib/specifier"
)

// GrammarResolver turns grammar references into paths a session can load.
// Local paths and installed packages resolve through Resolver. A package
// that is not installed is downloaded from the CDN into CacheDir when a
// Fetcher is set.
type GrammarResolver struct {
	FS       fs.FileSystem
	Resolver specifier.Resolver

	// Fetcher enables CDN downloads; nil keeps resolution offline.
	Fetcher Fetcher

	// CacheDir holds downloaded grammars, one directory per package.
	CacheDir string
}

// NewGrammarResolver resolves references from rootDir, offline.
func NewGrammarResolver(filesystem fs.FileSystem, rootDir string) (*GrammarResolver, error) {
	r, err := specifier.NewDefaultResolver(filesystem, rootDir)
	if err != nil {
		return nil, err
	}
	return &GrammarResolver{FS: filesystem, Resolver: r}, nil
}

// Resolve returns the path for ref.
func (r *GrammarResolver) Resolve(ctx context.Context, ref string) (string, error) {
	rf, err := r.Resolver.Resolve(ref)
	if err == nil {
		return rf.Path, nil
	}
	if !errors.Is(err, specifier.ErrPackageNotFound) || r.Fetcher == nil || r.CacheDir == "" {
		return "", err
	}
	return r.fetch(ctx, ref)
}

func (r *GrammarResolver) fetch(ctx context.Context, ref string) (string, error) {
	url, ok := specifier.CDNURL(ref)
	if !ok {
		return "", fmt.Errorf("%w: %s names no file", specifier.ErrPackageNotFound, ref)
	}

	parsed := specifier.Parse(ref)
	base := filepath.Join(r.CacheDir, parsed.Kind.String(), parsed.Package)
	path := filepath.Clean(filepath.Join(base, parsed.File))
	if !specifier.InsideDir(path, base) {
		return "", fmt.Errorf("%w: %s", specifier.ErrPathTraversal, ref)
	}

	if r.FS.Exists(path) {
		return path, nil
	}

	logger.Info("fetching %s", url)
	content, err := r.Fetcher.Fetch(ctx, url)
	if err != nil {
		return "", err
	}

	if err := r.FS.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("caching %s: %w", ref, err)
	}
	if err := r.FS.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("caching %s: %w", ref, err)
	}
	return path, nil
}

// resolveGrammars resolves every distinct grammar of jobs once, rewriting
// the jobs in place. References that fail keep their text and are returned
// with their error.
func resolveGrammars(ctx context.Context, r *GrammarResolver, jobs []Job) map[string]error {
	failed := make(map[string]error)
	resolved := make(map[string]string)

	for i, job := range jobs {
		if job.Grammar == "" {
			continue
		}
		if _, bad := failed[job.Grammar]; bad {
			continue
		}
		path, ok := resolved[job.Grammar]
		if !ok {
			var err error
			if path, err = r.Resolve(ctx, job.Grammar); err != nil {
				failed[job.Grammar] = err
				continue
			}
			resolved[job.Grammar] = path
		}
		jobs[i].Grammar = path
	}
	return failed
}
