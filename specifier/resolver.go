/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

package specifier

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"bennypowers.dev/parselib/fs"
)

var (
	// ErrNoResolver indicates no resolver in a chain accepts a reference.
	ErrNoResolver = errors.New("no resolver for grammar reference")

	// ErrPackageNotFound indicates a package file is not installed in any
	// node_modules above the root directory.
	ErrPackageNotFound = errors.New("package not found")

	// ErrPathTraversal indicates a package file path escapes its package.
	ErrPathTraversal = errors.New("path traversal in specifier")
)

// ResolvedFile pairs a reference with the filesystem path it names.
type ResolvedFile struct {
	Specifier string
	Path      string
	Kind      Kind
}

// Resolver resolves grammar references to filesystem paths.
type Resolver interface {
	Resolve(ref string) (*ResolvedFile, error)
	CanResolve(ref string) bool
}

// ChainResolver tries multiple resolvers in order.
type ChainResolver struct {
	resolvers []Resolver
}

// NewChainResolver creates a resolver that uses the first of resolvers
// accepting a reference.
func NewChainResolver(resolvers ...Resolver) *ChainResolver {
	return &ChainResolver{resolvers: resolvers}
}

func (c *ChainResolver) Resolve(ref string) (*ResolvedFile, error) {
	for _, r := range c.resolvers {
		if r.CanResolve(ref) {
			return r.Resolve(ref)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoResolver, ref)
}

func (c *ChainResolver) CanResolve(ref string) bool {
	for _, r := range c.resolvers {
		if r.CanResolve(ref) {
			return true
		}
	}
	return false
}

// LocalResolver resolves local paths against a root directory.
type LocalResolver struct {
	rootDir string
}

// NewLocalResolver creates a resolver for local paths. Relative paths are
// joined to rootDir; an empty rootDir leaves them unchanged.
func NewLocalResolver(rootDir string) *LocalResolver {
	return &LocalResolver{rootDir: rootDir}
}

func (r *LocalResolver) Resolve(ref string) (*ResolvedFile, error) {
	path := ref
	if r.rootDir != "" && !filepath.IsAbs(path) {
		path = filepath.Join(r.rootDir, path)
	}
	return &ResolvedFile{Specifier: ref, Path: path, Kind: KindLocal}, nil
}

func (r *LocalResolver) CanResolve(ref string) bool {
	return !IsPackageSpecifier(ref)
}

// NodeModulesResolver resolves npm: and jsr: specifiers to installed
// packages, walking up from rootDir through every node_modules directory.
// jsr packages are looked up under their npm compatibility name,
// jsr:@scope/pkg → node_modules/@jsr/scope__pkg.
type NodeModulesResolver struct {
	fs      fs.FileSystem
	rootDir string
}

// NewNodeModulesResolver creates a package resolver. rootDir must be
// absolute so that in-memory filesystems resolve the same way as the OS.
func NewNodeModulesResolver(filesystem fs.FileSystem, rootDir string) (*NodeModulesResolver, error) {
	if !filepath.IsAbs(rootDir) {
		return nil, fmt.Errorf("rootDir must be an absolute path, got: %s", rootDir)
	}
	return &NodeModulesResolver{fs: filesystem, rootDir: rootDir}, nil
}

func (r *NodeModulesResolver) Resolve(ref string) (*ResolvedFile, error) {
	parsed := Parse(ref)
	if parsed.Kind == KindLocal {
		return nil, fmt.Errorf("not a package specifier: %s", ref)
	}

	pkg := parsed.Package
	if parsed.Kind == KindJSR {
		pkg = filepath.Join("@jsr", jsrToNPMCompatPackage(pkg))
	}

	dir := r.rootDir
	for {
		base := filepath.Join(dir, "node_modules", pkg)
		path := filepath.Clean(filepath.Join(base, parsed.File))
		if !InsideDir(path, base) {
			return nil, fmt.Errorf("%w: %s", ErrPathTraversal, ref)
		}

		if r.fs.Exists(path) {
			return &ResolvedFile{Specifier: ref, Path: path, Kind: parsed.Kind}, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return nil, fmt.Errorf("%w: %s (looked in node_modules starting from %s)", ErrPackageNotFound, ref, r.rootDir)
}

func (r *NodeModulesResolver) CanResolve(ref string) bool {
	return IsPackageSpecifier(ref)
}

// NewDefaultResolver chains package and local resolution from rootDir.
func NewDefaultResolver(filesystem fs.FileSystem, rootDir string) (Resolver, error) {
	abs, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", rootDir, err)
	}
	modules, err := NewNodeModulesResolver(filesystem, abs)
	if err != nil {
		return nil, err
	}
	return NewChainResolver(modules, NewLocalResolver(rootDir)), nil
}

// InsideDir reports whether path is dir or below it.
func InsideDir(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
