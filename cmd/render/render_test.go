/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

package render

import (
	"bytes"
	"testing"

	"bennypowers.dev/parselib/engine"
	"bennypowers.dev/parselib/grammar"
	"bennypowers.dev/parselib/tree"
)

func sample(t *testing.T) *tree.Node {
	t.Helper()
	g := grammar.MustCompile("%start sum\nsum := num '+' num ;\nnum := /[0-9]+/ ;\n")
	root, err := engine.New(g, engine.Options{}).Parse("1+23")
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	return root
}

func TestOutline(t *testing.T) {
	var buf bytes.Buffer
	if err := Outline(&buf, sample(t)); err != nil {
		t.Fatal(err)
	}

	expected := `sum 1:1-1:5
  num 1:1-1:2
    "1" pattern 1:1
  "+" literal 1:2
  num 1:3-1:5
    "23" pattern 1:3
`
	if buf.String() != expected {
		t.Errorf("expected:\n%s\ngot:\n%s", expected, buf.String())
	}
}

func TestOutline_Nil(t *testing.T) {
	var buf bytes.Buffer
	if err := Outline(&buf, nil); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestSExpr(t *testing.T) {
	var buf bytes.Buffer
	if err := SExpr(&buf, sample(t)); err != nil {
		t.Fatal(err)
	}
	expected := `(sum (num "1") "+" (num "23"))` + "\n"
	if buf.String() != expected {
		t.Errorf("expected %q, got %q", expected, buf.String())
	}
}

func TestHeader(t *testing.T) {
	var buf bytes.Buffer
	if err := Header(&buf, "a.calc"); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "==> a.calc <==\n" {
		t.Errorf("unexpected header %q", buf.String())
	}
}
