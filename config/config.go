/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

// Package config provides configuration loading for parselib projects.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"bennypowers.dev/parselib/internal/logger"
	"bennypowers.dev/parselib/session"
)

// ErrInvalidFormat indicates an unknown output format.
var ErrInvalidFormat = errors.New("invalid output format")

// Output formats.
const (
	FormatJSON    = "json"
	FormatYAML    = "yaml"
	FormatOutline = "outline"
	FormatSExpr   = "sexpr"
)

// Formats lists every output format in documentation order.
var Formats = []string{FormatJSON, FormatYAML, FormatOutline, FormatSExpr}

// ValidFormat reports whether f names an output format. Empty means json.
func ValidFormat(f string) bool {
	return f == "" || slices.Contains(Formats, f)
}

// Config represents the parselib project configuration.
type Config struct {
	// Grammar is the default grammar file for every entry in Files.
	Grammar string `yaml:"grammar" json:"grammar" toml:"grammar"`

	// LogLevel is the session log level (0 silent .. 4 debug).
	// Nil means the default, error.
	LogLevel *int `yaml:"logLevel" json:"logLevel" toml:"logLevel"`

	// Files specifies source files to parse (paths or globs).
	Files []FileSpec `yaml:"files" json:"files" toml:"files"`

	// Output controls where and how trees are written.
	Output Output `yaml:"output" json:"output" toml:"output"`

	// Concurrency is the number of sessions run at once; zero means one
	// per CPU.
	Concurrency int `yaml:"concurrency" json:"concurrency" toml:"concurrency"`
}

// FileSpec represents a source file specification.
// It can be specified as a simple string path or as an object with overrides.
type FileSpec struct {
	// Path is the file path (supports globs).
	Path string `yaml:"path" json:"path" toml:"path"`

	// Grammar overrides the global grammar for this entry.
	Grammar string `yaml:"grammar" json:"grammar" toml:"grammar"`
}

// Output configures tree output.
type Output struct {
	// Dir collects output files in one directory instead of next to each source.
	Dir string `yaml:"dir" json:"dir" toml:"dir"`

	// Suffix is appended to the source file name. Defaults to ".json".
	Suffix string `yaml:"suffix" json:"suffix" toml:"suffix"`

	// Format of printed trees: json (default), yaml, outline or sexpr.
	Format string `yaml:"format" json:"format" toml:"format"`
}

// UnmarshalYAML handles both string and object forms for FileSpec.
func (f *FileSpec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		f.Path = node.Value
		return nil
	}

	type rawFileSpec FileSpec
	return node.Decode((*rawFileSpec)(f))
}

// UnmarshalJSON handles both string and object forms for FileSpec.
func (f *FileSpec) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		f.Path = s
		return nil
	}

	type rawFileSpec FileSpec
	return json.Unmarshal(data, (*rawFileSpec)(f))
}

// UnmarshalTOML handles both string and table forms for FileSpec.
func (f *FileSpec) UnmarshalTOML(data any) error {
	switch v := data.(type) {
	case string:
		f.Path = v
		return nil
	case map[string]any:
		for key, dst := range map[string]*string{"path": &f.Path, "grammar": &f.Grammar} {
			raw, ok := v[key]
			if !ok {
				continue
			}
			s, ok := raw.(string)
			if !ok {
				return fmt.Errorf("files.%s: expected string, got %T", key, raw)
			}
			*dst = s
		}
		return nil
	default:
		return fmt.Errorf("files: expected string or table, got %T", data)
	}
}

// Default returns a config with default values.
func Default() *Config {
	return &Config{
		Output: Output{
			Suffix: session.DefaultSuffix,
			Format: FormatJSON,
		},
	}
}

// Level returns the configured log level, or the default when unset.
func (c *Config) Level() int {
	if c.LogLevel == nil {
		return int(logger.DefaultLevel)
	}
	return int(logger.ClampLevel(*c.LogLevel))
}

// Validate reports settings no command could honor.
func (c *Config) Validate() error {
	if !ValidFormat(c.Output.Format) {
		return fmt.Errorf("%w %q: want one of %s", ErrInvalidFormat, c.Output.Format, strings.Join(Formats, ", "))
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative, got %d", c.Concurrency)
	}
	return nil
}

// GrammarForFile returns the grammar for a file path.
// File-level overrides take precedence over the global grammar.
func (c *Config) GrammarForFile(path string) string {
	for _, spec := range c.Files {
		if spec.Path == path && spec.Grammar != "" {
			return spec.Grammar
		}
	}
	return c.Grammar
}

// FilePaths returns the list of file paths from all FileSpecs.
func (c *Config) FilePaths() []string {
	paths := make([]string, 0, len(c.Files))
	for _, spec := range c.Files {
		paths = append(paths, spec.Path)
	}
	return paths
}

// Destination returns where ParseToFile writes outputs.
func (o Output) Destination() session.Destination {
	suffix := o.Suffix
	if suffix == "" {
		suffix = session.DefaultSuffix
	}
	if o.Dir != "" {
		return session.InDir(o.Dir, suffix)
	}
	return session.Sibling(suffix)
}
