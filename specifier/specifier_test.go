/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

package specifier

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		ref  string
		kind Kind
		pkg  string
		file string
	}{
		{"npm:@parselib/grammars/json.grm", KindNPM, "@parselib/grammars", "json.grm"},
		{"npm:calc-grammar/arith.grm", KindNPM, "calc-grammar", "arith.grm"},
		{"npm:@scope/pkg/grm/nested/expr.grm", KindNPM, "@scope/pkg", "grm/nested/expr.grm"},
		{"npm:bare", KindNPM, "bare", ""},
		{"jsr:@std/grammars/toml.grm", KindJSR, "@std/grammars", "toml.grm"},
		{"jsr:unscoped/toml.grm", KindLocal, "", "jsr:unscoped/toml.grm"},
		{"./grammars/arith.grm", KindLocal, "", "./grammars/arith.grm"},
		{"/abs/arith.grm", KindLocal, "", "/abs/arith.grm"},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			spec := Parse(tt.ref)
			if spec.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", spec.Kind, tt.kind)
			}
			if spec.Package != tt.pkg {
				t.Errorf("Package = %q, want %q", spec.Package, tt.pkg)
			}
			if spec.File != tt.file {
				t.Errorf("File = %q, want %q", spec.File, tt.file)
			}
			if spec.Raw != tt.ref {
				t.Errorf("Raw = %q, want %q", spec.Raw, tt.ref)
			}
		})
	}
}

func TestIsPackageSpecifier(t *testing.T) {
	tests := map[string]bool{
		"npm:@scope/pkg/a.grm": true,
		"npm:pkg/a.grm":        true,
		"jsr:@scope/pkg/a.grm": true,
		"jsr:pkg/a.grm":        false,
		"grammars/a.grm":       false,
	}
	for ref, want := range tests {
		if got := IsPackageSpecifier(ref); got != want {
			t.Errorf("IsPackageSpecifier(%q) = %v, want %v", ref, got, want)
		}
	}
}

func TestCDNURL(t *testing.T) {
	tests := []struct {
		ref string
		url string
		ok  bool
	}{
		{"npm:@scope/pkg/a.grm", "https://unpkg.com/@scope/pkg/a.grm", true},
		{"npm:pkg/dir/a.grm", "https://unpkg.com/pkg/dir/a.grm", true},
		{"jsr:@std/grammars/a.grm", "https://unpkg.com/@jsr/std__grammars/a.grm", true},
		{"npm:pkg", "", false},
		{"local/a.grm", "", false},
	}
	for _, tt := range tests {
		url, ok := CDNURL(tt.ref)
		if url != tt.url || ok != tt.ok {
			t.Errorf("CDNURL(%q) = (%q, %v), want (%q, %v)", tt.ref, url, ok, tt.url, tt.ok)
		}
	}
}

func TestKindString(t *testing.T) {
	if KindNPM.String() != "npm" || KindJSR.String() != "jsr" || KindLocal.String() != "local" {
		t.Error("unexpected kind names")
	}
}
