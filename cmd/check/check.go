/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

// Package check provides the check command for parselib.
package check

import (
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bennypowers.dev/parselib/config"
	"bennypowers.dev/parselib/fs"
	"bennypowers.dev/parselib/grammar"
	"bennypowers.dev/parselib/internal/logger"
	"bennypowers.dev/parselib/load"
	"bennypowers.dev/parselib/specifier"
)

// Cmd is the check cobra command.
var Cmd = &cobra.Command{
	Use:   "check [grammars...]",
	Short: "Compile and validate grammar files",
	Long: `Compile grammar files and report problems. Without arguments the grammars
named in .config/parselib.{yaml,yml,json,toml} are checked.`,
	Args: cobra.ArbitraryArgs,
	RunE: run,
}

func init() {
	Cmd.Flags().Bool("strict", false, "Fail on warnings")
	Cmd.Flags().Bool("quiet", false, "Only output errors")
	Cmd.Flags().Bool("graph", false, "List the rules each rule references")
	Cmd.Flags().BoolP("verbose", "v", false, "Print the normalized grammar source")
}

type options struct {
	strict  bool
	quiet   bool
	graph   bool
	verbose bool
}

func run(cmd *cobra.Command, args []string) error {
	var opts options
	opts.strict, _ = cmd.Flags().GetBool("strict")
	opts.quiet, _ = cmd.Flags().GetBool("quiet")
	opts.graph, _ = cmd.Flags().GetBool("graph")
	opts.verbose, _ = cmd.Flags().GetBool("verbose")

	filesystem := fs.NewOSFileSystem()
	root := viper.GetString("root")
	if root == "" {
		root = "."
	}

	files := args
	if len(files) == 0 {
		if g := viper.GetString("grammar"); g != "" {
			files = []string{g}
		} else {
			cfg, err := config.Load(filesystem, root)
			if err != nil {
				return fmt.Errorf("error loading config: %w", err)
			}
			if cfg != nil {
				files, err = configGrammars(filesystem, cfg, root)
				if err != nil {
					return err
				}
			}
		}
	}

	if len(files) == 0 {
		return fmt.Errorf("no grammars specified and no grammars found in config")
	}

	grammars, err := load.NewGrammarResolver(filesystem, root)
	if err != nil {
		return err
	}

	failed := 0
	for _, file := range files {
		path, err := grammars.Resolve(cmd.Context(), file)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			failed++
			continue
		}
		if !checkFile(cmd.OutOrStdout(), cmd.ErrOrStderr(), filesystem, path, opts) {
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d grammars failed", failed, len(files))
	}
	return nil
}

// configGrammars lists every distinct grammar the config refers to.
func configGrammars(filesystem fs.FileSystem, cfg *config.Config, root string) ([]string, error) {
	specs, err := cfg.Expand(filesystem, root)
	if err != nil {
		return nil, fmt.Errorf("error expanding config files: %w", err)
	}

	var grammars []string
	if cfg.Grammar != "" && len(specs) == 0 {
		g := cfg.Grammar
		if !filepath.IsAbs(g) && !specifier.IsPackageSpecifier(g) {
			g = filepath.Join(root, g)
		}
		grammars = append(grammars, g)
	}
	for _, spec := range specs {
		if spec.Grammar != "" && !slices.Contains(grammars, spec.Grammar) {
			grammars = append(grammars, spec.Grammar)
		}
	}
	return grammars, nil
}

// checkFile compiles one grammar and prints its report. It returns false
// when the grammar does not compile, or has warnings in strict mode.
func checkFile(stdout, stderr io.Writer, filesystem fs.FileSystem, path string, opts options) bool {
	g, err := grammar.CompileFile(filesystem, path)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return false
	}

	unreachable := g.Unreachable()
	for _, name := range unreachable {
		logger.Warn("%s: rule %q is unreachable from %q", path, name, g.Start.Name)
	}

	if !opts.quiet {
		fmt.Fprintln(stdout, summary(path, g))
	}
	if opts.graph {
		writeGraph(stdout, g)
	}
	if opts.verbose {
		fmt.Fprint(stdout, g.Source())
	}

	return !opts.strict || len(unreachable) == 0
}

func summary(path string, g *grammar.Grammar) string {
	skip := "none"
	if g.Skip != nil {
		skip = "/" + g.SkipSource + "/"
	}
	return fmt.Sprintf("%s: %d rules, start %s, skip %s", path, len(g.Rules), g.Start.Name, skip)
}

// writeGraph prints each rule with the rules it references, marking
// rules that can reach themselves, then one example cycle.
func writeGraph(w io.Writer, g *grammar.Grammar) {
	graph := grammar.BuildReferenceGraph(g)

	for _, r := range g.Rules {
		refs := graph.References(r.Name)
		line := "  " + r.Name
		if len(refs) > 0 {
			line += " -> " + strings.Join(refs, ", ")
		}
		if isRecursive(graph, r.Name) {
			line += " (recursive)"
		}
		fmt.Fprintln(w, line)
	}

	if cycle := graph.FindCycle(); cycle != nil {
		fmt.Fprintf(w, "  cycle: %s\n", strings.Join(cycle, " -> "))
	}
}

func isRecursive(graph *grammar.RuleGraph, name string) bool {
	for _, ref := range graph.References(name) {
		if graph.Reachable(ref)[name] {
			return true
		}
	}
	return false
}
