/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

// Package specifier parses grammar references. A reference is either a
// local path or a package specifier naming a grammar file shipped in an
// npm or jsr package, e.g. npm:@scope/grammars/json.grm.
package specifier

import (
	"regexp"
	"strings"
)

// Kind indicates the type of specifier.
type Kind int

const (
	// KindLocal is a local file path.
	KindLocal Kind = iota
	// KindNPM is an npm package specifier.
	KindNPM
	// KindJSR is a jsr package specifier.
	KindJSR
)

func (k Kind) String() string {
	switch k {
	case KindNPM:
		return "npm"
	case KindJSR:
		return "jsr"
	default:
		return "local"
	}
}

// Specifier is a parsed grammar reference.
type Specifier struct {
	Kind Kind

	// Package is the package name, e.g. "@scope/pkg" or "pkg".
	Package string

	// File is the path within the package, or the local path.
	File string

	// Raw is the reference as written.
	Raw string
}

var (
	// npm:@scope/pkg/path, npm:pkg/path, or bare npm:pkg
	npmPattern = regexp.MustCompile(`^npm:(@[^/]+/[^/]+|[^/@][^/]*)(/.*)?$`)

	// jsr packages are always scoped
	jsrPattern = regexp.MustCompile(`^jsr:(@[^/]+/[^/]+)(/.*)?$`)
)

// Parse parses a grammar reference. Anything that is not a well-formed
// package specifier is a local path.
func Parse(ref string) *Specifier {
	for _, p := range []struct {
		kind    Kind
		pattern *regexp.Regexp
	}{
		{KindNPM, npmPattern},
		{KindJSR, jsrPattern},
	} {
		if m := p.pattern.FindStringSubmatch(ref); m != nil {
			return &Specifier{
				Kind:    p.kind,
				Package: m[1],
				File:    strings.TrimPrefix(m[2], "/"),
				Raw:     ref,
			}
		}
	}

	return &Specifier{Kind: KindLocal, File: ref, Raw: ref}
}

// IsPackageSpecifier reports whether ref is a valid npm or jsr specifier.
func IsPackageSpecifier(ref string) bool {
	return Parse(ref).Kind != KindLocal
}

// CDNURL returns the unpkg.com URL for a package specifier that names a
// file. jsr packages are served through their npm compatibility name.
func CDNURL(ref string) (string, bool) {
	parsed := Parse(ref)
	if parsed.Kind == KindLocal || parsed.File == "" {
		return "", false
	}
	pkg := parsed.Package
	if parsed.Kind == KindJSR {
		pkg = "@jsr/" + jsrToNPMCompatPackage(pkg)
	}
	return "https://unpkg.com/" + pkg + "/" + parsed.File, true
}

// jsrToNPMCompatPackage converts @scope/pkg to scope__pkg, the name jsr
// packages get under node_modules/@jsr.
func jsrToNPMCompatPackage(pkg string) string {
	if scoped, ok := strings.CutPrefix(pkg, "@"); ok {
		return strings.Replace(scoped, "/", "__", 1)
	}
	return pkg
}
