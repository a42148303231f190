/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

// Package search provides the search command for parselib.
package search

import (
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bennypowers.dev/parselib/config"
	"bennypowers.dev/parselib/fs"
	"bennypowers.dev/parselib/load"
	"bennypowers.dev/parselib/tree"
)

// Cmd is the search cobra command.
var Cmd = &cobra.Command{
	Use:   "search <query> [files...]",
	Short: "Search parse trees for matching text",
	Long: `Parse files and print every terminal whose text matches the query, or
with --rule every node of that rule. An empty query matches everything.`,
	Args: cobra.MinimumNArgs(1),
	RunE: run,
}

func init() {
	Cmd.Flags().String("rule", "", "Match nodes of this rule by their full text")
	Cmd.Flags().String("kind", "", "Only match terminals of this kind (literal, pattern)")
	Cmd.Flags().Bool("regex", false, "Query is a regex")
	Cmd.Flags().String("format", "table", "Output format: table, json, text")
}

// Match is one node found by a search.
type Match struct {
	File  string        `json:"file"`
	Rule  string        `json:"rule,omitempty"`
	Kind  tree.Kind     `json:"kind"`
	Text  string        `json:"text"`
	Start tree.Position `json:"start"`
}

type query struct {
	text    string
	pattern *regexp.Regexp
	rule    string
	kind    tree.Kind
}

func run(cmd *cobra.Command, args []string) error {
	q := query{text: args[0]}
	files := args[1:]

	q.rule, _ = cmd.Flags().GetString("rule")
	kind, _ := cmd.Flags().GetString("kind")
	q.kind = tree.Kind(kind)
	useRegex, _ := cmd.Flags().GetBool("regex")
	format, _ := cmd.Flags().GetString("format")

	if useRegex {
		var err error
		q.pattern, err = regexp.Compile(q.text)
		if err != nil {
			return fmt.Errorf("invalid regex: %w", err)
		}
	}

	filesystem := fs.NewOSFileSystem()
	root := viper.GetString("root")
	if root == "" {
		root = "."
	}
	cfg := config.LoadOrDefault(filesystem, root)

	jobs, err := load.Jobs(filesystem, cfg, root, viper.GetString("grammar"), files)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		return fmt.Errorf("no files specified and no files found in config")
	}

	grammars, err := load.NewGrammarResolver(filesystem, root)
	if err != nil {
		return err
	}

	report, err := load.Batch(cmd.Context(), jobs, load.Options{
		FS:        filesystem,
		LogLevel:  cfg.Level(),
		LogOutput: cmd.ErrOrStderr(),
		Grammars:  grammars,
	})
	if err != nil {
		return err
	}

	var matches []Match
	for _, out := range report.Outcomes {
		if !out.OK() {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error parsing %s: %v\n", out.Path, out.Err)
			continue
		}
		matches = append(matches, search(out.Path, out.Tree, q)...)
	}

	stdout := cmd.OutOrStdout()
	switch format {
	case "json":
		return outputJSON(stdout, matches)
	case "text":
		return outputText(stdout, matches)
	default:
		return outputTable(stdout, matches)
	}
}

// search returns the matching nodes of root in source order.
func search(file string, root *tree.Node, q query) []Match {
	var candidates []*tree.Node
	if q.rule != "" {
		candidates = root.FindRule(q.rule)
	} else {
		for _, leaf := range root.Leaves() {
			if q.kind == "" || leaf.Kind == q.kind {
				candidates = append(candidates, leaf)
			}
		}
	}

	var matches []Match
	for _, node := range candidates {
		text := node.Text()
		if !matchString(text, q.text, q.pattern) {
			continue
		}
		matches = append(matches, Match{
			File:  file,
			Rule:  node.Rule,
			Kind:  node.Kind,
			Text:  text,
			Start: node.Span.Start,
		})
	}
	return matches
}

func matchString(s, query string, pattern *regexp.Regexp) bool {
	if pattern != nil {
		return pattern.MatchString(s)
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(query))
}

func outputTable(w io.Writer, matches []Match) error {
	if len(matches) == 0 {
		return nil
	}

	locWidth := 8
	labelWidth := 4
	for _, m := range matches {
		locWidth = max(locWidth, len(location(m)))
		labelWidth = max(labelWidth, len(label(m)))
	}

	for _, m := range matches {
		fmt.Fprintf(w, "%-*s  %-*s  %q\n", locWidth, location(m), labelWidth, label(m), m.Text)
	}
	return nil
}

func outputJSON(w io.Writer, matches []Match) error {
	if matches == nil {
		matches = []Match{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(matches)
}

func outputText(w io.Writer, matches []Match) error {
	for _, m := range matches {
		fmt.Fprintln(w, m.Text)
	}
	return nil
}

func location(m Match) string {
	return fmt.Sprintf("%s:%s", m.File, m.Start)
}

func label(m Match) string {
	if m.Rule != "" {
		return m.Rule
	}
	return string(m.Kind)
}
