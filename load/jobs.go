/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

package load

import (
	"fmt"

	"bennypowers.dev/parselib/config"
	"bennypowers.dev/parselib/fs"
)

// Jobs pairs files with grammars. Named paths use grammar, falling back to
// the config's grammar for that path; without paths the config's file list
// is expanded from rootDir, and a non-empty grammar overrides every entry.
func Jobs(filesystem fs.FileSystem, cfg *config.Config, rootDir, grammar string, paths []string) ([]Job, error) {
	var jobs []Job

	if len(paths) > 0 {
		for _, path := range paths {
			g := grammar
			if g == "" {
				g = cfg.GrammarForFile(path)
			}
			jobs = append(jobs, Job{Path: path, Grammar: g})
		}
		return jobs, nil
	}

	specs, err := cfg.Expand(filesystem, rootDir)
	if err != nil {
		return nil, fmt.Errorf("error expanding config files: %w", err)
	}
	for _, spec := range specs {
		g := spec.Grammar
		if grammar != "" {
			g = grammar
		}
		jobs = append(jobs, Job{Path: spec.Path, Grammar: g})
	}
	return jobs, nil
}
