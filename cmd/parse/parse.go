/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

// Package parse provides the parse command for parselib.
package parse

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bennypowers.dev/parselib/cmd/render"
	"bennypowers.dev/parselib/config"
	"bennypowers.dev/parselib/engine"
	"bennypowers.dev/parselib/fs"
	"bennypowers.dev/parselib/internal/logger"
	"bennypowers.dev/parselib/internal/metrics"
	"bennypowers.dev/parselib/load"
	"bennypowers.dev/parselib/tree"
)

// Cmd is the parse cobra command.
var Cmd = &cobra.Command{
	Use:   "parse [files...]",
	Short: "Parse source files with a grammar",
	Long: `Parse source files with a grammar and print each parse tree, or write it
next to the source with --write. Without arguments the files listed in
.config/parselib.{yaml,yml,json,toml} are parsed.`,
	Args: cobra.ArbitraryArgs,
	RunE: run,
}

func init() {
	addFlags(Cmd)
}

func addFlags(c *cobra.Command) {
	flags := c.Flags()
	flags.BoolP("write", "w", false, "Write each tree to a file instead of stdout")
	flags.String("out-dir", "", "Directory for written trees (default: output.dir from config, else next to each source)")
	flags.StringP("format", "f", "", "Output format for printed trees (json, yaml, outline, sexpr)")
	flags.BoolP("verbose", "v", false, "Print grammar and parse diagnostics")
	flags.IntP("concurrency", "j", 0, "Number of sessions to run at once (default: one per CPU)")
	flags.Int("max-depth", 0, "Maximum rule nesting depth (default 10000)")
	flags.Bool("watch", false, "Re-parse when sources or grammars change")
	flags.Bool("fetch", false, "Download npm: and jsr: grammars that are not installed from unpkg.com")
	flags.String("metrics-textfile", "", "Write Prometheus metrics to this file when done")
}

// settings is the effective configuration of one parse invocation.
type settings struct {
	jobs    []load.Job
	opts    load.Options
	format  string
	write   bool
	watch   bool
	metrics string
}

func run(cmd *cobra.Command, args []string) error {
	s, err := resolve(cmd, fs.NewOSFileSystem(), args)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	report, err := parseAll(cmd, s, s.jobs)
	if err != nil {
		return err
	}

	if s.watch {
		return watch(ctx, cmd, s)
	}

	if err := writeMetrics(s.metrics); err != nil {
		return err
	}

	if !report.OK() {
		return fmt.Errorf("%d of %d files not parsed", len(report.Outcomes)-report.Parsed, len(report.Outcomes))
	}
	return nil
}

// resolve merges flags, environment and config into settings.
// Flags beat environment, which beats the config file.
func resolve(cmd *cobra.Command, filesystem fs.FileSystem, args []string) (*settings, error) {
	root := viper.GetString("root")
	if root == "" {
		root = "."
	}

	cfg, err := config.Load(filesystem, root)
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	if cfg == nil {
		cfg = config.Default()
	}

	flags := cmd.Flags()
	write, _ := flags.GetBool("write")
	outDir, _ := flags.GetString("out-dir")
	format, _ := flags.GetString("format")
	verbose, _ := flags.GetBool("verbose")
	concurrency, _ := flags.GetInt("concurrency")
	maxDepth, _ := flags.GetInt("max-depth")
	watchFlag, _ := flags.GetBool("watch")
	fetch, _ := flags.GetBool("fetch")
	metricsFile, _ := flags.GetString("metrics-textfile")

	grammarFlag := viper.GetString("grammar")

	jobs, err := load.Jobs(filesystem, cfg, root, grammarFlag, args)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("no files specified and no files found in config")
	}

	level := viper.GetInt("log-level")
	if level < 0 {
		level = cfg.Level()
	}

	if format == "" {
		format = cfg.Output.Format
	}
	if !config.ValidFormat(format) {
		return nil, fmt.Errorf("%w %q", config.ErrInvalidFormat, format)
	}
	if format == "" {
		format = config.FormatJSON
	}

	if concurrency == 0 {
		concurrency = cfg.Concurrency
	}

	// output.dir in the config is relative to root; --out-dir to the
	// working directory.
	output := cfg.Output
	if outDir != "" {
		output.Dir = outDir
	} else if output.Dir != "" && !filepath.IsAbs(output.Dir) {
		output.Dir = filepath.Join(root, output.Dir)
	}

	grammars, err := newGrammarResolver(filesystem, root, fetch)
	if err != nil {
		return nil, err
	}

	return &settings{
		jobs: jobs,
		// Service stays nil: each batch gets a private service built from
		// FS, LogOutput, Destination and Engine.
		opts: load.Options{
			FS:          filesystem,
			LogLevel:    level,
			Verbose:     verbose,
			Concurrency: concurrency,
			ToFile:      write,
			Destination: output.Destination(),
			Engine:      engine.Options{MaxDepth: maxDepth},
			Grammars:    grammars,
		},
		format:  format,
		write:   write,
		watch:   watchFlag,
		metrics: metricsFile,
	}, nil
}

func newGrammarResolver(filesystem fs.FileSystem, root string, fetch bool) (*load.GrammarResolver, error) {
	grammars, err := load.NewGrammarResolver(filesystem, root)
	if err != nil {
		return nil, err
	}
	if fetch {
		cacheDir, err := os.UserCacheDir()
		if err != nil {
			return nil, fmt.Errorf("error locating cache directory: %w", err)
		}
		grammars.Fetcher = load.NewHTTPFetcher(load.DefaultMaxSize)
		grammars.CacheDir = filepath.Join(cacheDir, "parselib", "grammars")
	}
	return grammars, nil
}

func parseAll(cmd *cobra.Command, s *settings, jobs []load.Job) (*load.Report, error) {
	opts := s.opts
	opts.LogOutput = cmd.ErrOrStderr()

	start := time.Now()
	report, err := load.Batch(cmd.Context(), jobs, opts)
	if err != nil && !errors.Is(err, cmd.Context().Err()) {
		return nil, err
	}

	stderr := cmd.ErrOrStderr()
	for grammar, gerr := range report.GrammarErrors {
		fmt.Fprintf(stderr, "Error loading grammar %s: %v\n", grammar, gerr)
	}
	reportFailures(stderr, report)

	if !s.write {
		if err := writeTrees(cmd.OutOrStdout(), report, s.format); err != nil {
			return nil, err
		}
	} else if opts.Verbose {
		for _, out := range report.Outcomes {
			if out.OK() {
				fmt.Fprintf(stderr, "Wrote %s\n", out.Output)
			}
		}
	}

	logger.Debug("parsed %d of %d files in %s", report.Parsed, len(report.Outcomes), time.Since(start))
	return report, nil
}

// reportFailures prints one entry per outcome that did not parse, with
// source context for parse errors.
func reportFailures(w io.Writer, report *load.Report) {
	for _, out := range report.Outcomes {
		if out.OK() || out.Err == nil {
			continue
		}
		fmt.Fprintf(w, "%s: %s\n", out.Status, out.Err)

		var perr *engine.ParseError
		if errors.As(out.Err, &perr) {
			fmt.Fprint(w, perr.Context(1))
		}
	}
}

// writeTrees prints every parsed tree in job order. YAML trees are
// separated into documents; outline and s-expression trees get a file
// header when more than one file is printed.
func writeTrees(w io.Writer, report *load.Report, format string) error {
	headers := report.Parsed > 1
	first := true
	for _, out := range report.Outcomes {
		if !out.OK() {
			continue
		}

		var err error
		switch format {
		case config.FormatYAML:
			var data []byte
			if data, err = tree.MarshalYAML(out.Tree); err == nil {
				if !first {
					data = append([]byte("---\n"), data...)
				}
				_, err = w.Write(data)
			}
		case config.FormatOutline, config.FormatSExpr:
			if headers {
				if err = render.Header(w, out.Path); err != nil {
					return err
				}
			}
			if format == config.FormatOutline {
				err = render.Outline(w, out.Tree)
			} else {
				err = render.SExpr(w, out.Tree)
			}
		default:
			var data []byte
			if data, err = tree.Marshal(out.Tree); err == nil {
				_, err = w.Write(data)
			}
		}
		if err != nil {
			return fmt.Errorf("error writing tree for %s: %w", out.Path, err)
		}
		first = false
	}
	return nil
}

func writeMetrics(path string) error {
	if path == "" {
		return nil
	}
	if err := metrics.WriteTextfile(path); err != nil {
		return fmt.Errorf("error writing metrics: %w", err)
	}
	return nil
}
