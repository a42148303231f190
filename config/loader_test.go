/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

package config

import (
	"errors"
	"slices"
	"testing"

	"bennypowers.dev/parselib/testutil"
)

func TestLoad_YAML(t *testing.T) {
	mfs := testutil.NewFixtureFS(t, "fixtures/config/yaml", "/project")

	cfg, err := Load(mfs, "/project")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg == nil {
		t.Fatal("expected config, got nil")
	}

	if cfg.Grammar != "grammars/arith.grm" {
		t.Errorf("expected grammar 'grammars/arith.grm', got %q", cfg.Grammar)
	}

	if cfg.Level() != 3 {
		t.Errorf("expected log level 3, got %d", cfg.Level())
	}

	if cfg.Concurrency != 2 {
		t.Errorf("expected concurrency 2, got %d", cfg.Concurrency)
	}

	if len(cfg.Files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(cfg.Files))
	}

	if cfg.Files[0].Path != "src/*.calc" || cfg.Files[0].Grammar != "" {
		t.Errorf("unexpected first file spec %+v", cfg.Files[0])
	}

	if cfg.Files[1].Grammar != "grammars/arith2.grm" {
		t.Errorf("expected per-file grammar override, got %+v", cfg.Files[1])
	}

	if cfg.Output.Dir != "out" || cfg.Output.Suffix != ".tree.json" {
		t.Errorf("unexpected output %+v", cfg.Output)
	}

	if cfg.Output.Format != FormatJSON {
		t.Errorf("expected default format json, got %q", cfg.Output.Format)
	}
}

func TestLoad_JSONWithComments(t *testing.T) {
	mfs := testutil.NewFixtureFS(t, "fixtures/config/json", "/project")

	cfg, err := Load(mfs, "/project")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(cfg.Files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(cfg.Files))
	}

	if cfg.Files[0].Path != "a.txt" {
		t.Errorf("expected string form path 'a.txt', got %q", cfg.Files[0].Path)
	}

	if cfg.Files[1].Path != "b.txt" || cfg.Files[1].Grammar != "other.grm" {
		t.Errorf("unexpected object form %+v", cfg.Files[1])
	}

	if cfg.Output.Format != FormatYAML {
		t.Errorf("expected format yaml, got %q", cfg.Output.Format)
	}

	if cfg.Level() != 1 {
		t.Errorf("expected default log level 1, got %d", cfg.Level())
	}
}

func TestLoad_TOML(t *testing.T) {
	mfs := testutil.NewFixtureFS(t, "fixtures/config/toml", "/project")

	cfg, err := Load(mfs, "/project")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Grammar != "g.grm" {
		t.Errorf("expected grammar 'g.grm', got %q", cfg.Grammar)
	}

	if cfg.LogLevel == nil || cfg.Level() != 0 {
		t.Errorf("expected explicit log level 0, got %v", cfg.LogLevel)
	}

	if len(cfg.Files) != 2 || cfg.Files[0].Path != "a.txt" || cfg.Files[1].Grammar != "other.grm" {
		t.Errorf("unexpected files %+v", cfg.Files)
	}

	if cfg.Output.Suffix != ".out.json" {
		t.Errorf("expected suffix '.out.json', got %q", cfg.Output.Suffix)
	}
}

func TestLoad_Invalid(t *testing.T) {
	mfs := testutil.NewFixtureFS(t, "fixtures/config/invalid", "/project")

	_, err := Load(mfs, "/project")
	if !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("expected ErrInvalidFormat, got %v", err)
	}
}

func TestLoad_NotFound(t *testing.T) {
	mfs := testutil.NewFixtureFS(t, "fixtures/config/none", "/project")

	cfg, err := Load(mfs, "/project")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg != nil {
		t.Errorf("expected nil config when not found, got %+v", cfg)
	}
}

func TestLoadOrDefault_NotFound(t *testing.T) {
	mfs := testutil.NewFixtureFS(t, "fixtures/config/none", "/project")

	cfg := LoadOrDefault(mfs, "/project")
	if cfg == nil {
		t.Fatal("expected default config, got nil")
	}

	if cfg.Grammar != "" {
		t.Errorf("expected empty grammar in default, got %q", cfg.Grammar)
	}

	if cfg.Level() != 1 {
		t.Errorf("expected default level 1, got %d", cfg.Level())
	}
}

func TestConfig_Expand(t *testing.T) {
	mfs := testutil.NewFixtureFS(t, "fixtures/config/yaml", "/project")

	cfg, err := Load(mfs, "/project")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	specs, err := cfg.Expand(mfs, "/project")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := []FileSpec{
		{Path: "/project/src/a.calc", Grammar: "/project/grammars/arith.grm"},
		{Path: "/project/src/b.calc", Grammar: "/project/grammars/arith.grm"},
		{Path: "/project/extra/deep/c.calc", Grammar: "/project/grammars/arith2.grm"},
	}

	if !slices.Equal(specs, expected) {
		t.Errorf("expected %+v, got %+v", expected, specs)
	}

	paths, err := cfg.ExpandFiles(mfs, "/project")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(paths) != 3 || paths[2] != "/project/extra/deep/c.calc" {
		t.Errorf("unexpected paths %v", paths)
	}
}

func TestConfig_ExpandPlainPath(t *testing.T) {
	cfg := &Config{Files: []FileSpec{{Path: "missing.txt"}, {Path: "/abs/file.txt", Grammar: "/g.grm"}}}
	mfs := testutil.NewMapFS(t, nil)

	specs, err := cfg.Expand(mfs, "/root")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if specs[0].Path != "/root/missing.txt" || specs[0].Grammar != "" {
		t.Errorf("unexpected first spec %+v", specs[0])
	}
	if specs[1].Path != "/abs/file.txt" || specs[1].Grammar != "/g.grm" {
		t.Errorf("unexpected second spec %+v", specs[1])
	}
}

func TestConfig_GrammarForFile(t *testing.T) {
	cfg := &Config{
		Grammar: "global.grm",
		Files: []FileSpec{
			{Path: "a.txt"},
			{Path: "b.txt", Grammar: "b.grm"},
		},
	}

	tests := map[string]string{
		"a.txt":     "global.grm",
		"b.txt":     "b.grm",
		"other.txt": "global.grm",
	}
	for path, want := range tests {
		if got := cfg.GrammarForFile(path); got != want {
			t.Errorf("GrammarForFile(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestConfig_FilePaths(t *testing.T) {
	cfg := &Config{Files: []FileSpec{{Path: "a.txt"}, {Path: "src/**/*.calc"}}}

	paths := cfg.FilePaths()
	if !slices.Equal(paths, []string{"a.txt", "src/**/*.calc"}) {
		t.Errorf("unexpected paths %v", paths)
	}
}

func TestConfig_Level(t *testing.T) {
	high := 42
	cfg := &Config{LogLevel: &high}
	if cfg.Level() != 4 {
		t.Errorf("expected clamp to 4, got %d", cfg.Level())
	}
}

func TestOutput_Destination(t *testing.T) {
	if got := (Output{}).Destination()("/src/a.txt"); got != "/src/a.txt.json" {
		t.Errorf("expected sibling default, got %q", got)
	}

	if got := (Output{Dir: "/out", Suffix: ".tree"}).Destination()("/src/a.txt"); got != "/out/a.txt.tree" {
		t.Errorf("expected output dir, got %q", got)
	}
}

func TestConfig_ExpandPackageGrammar(t *testing.T) {
	cfg := &Config{
		Grammar: "npm:@calc/grammars/arith.grm",
		Files:   []FileSpec{{Path: "a.calc"}},
	}
	mfs := testutil.NewMapFS(t, nil)

	specs, err := cfg.Expand(mfs, "/project")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if specs[0].Grammar != "npm:@calc/grammars/arith.grm" {
		t.Errorf("expected package specifier kept as written, got %q", specs[0].Grammar)
	}
}
