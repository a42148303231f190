/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

package session

import "path/filepath"

// DefaultSuffix is appended to a source path to name its JSON output.
const DefaultSuffix = ".json"

// Destination maps a source path to the file ParseToFile writes when no
// explicit destination is given.
type Destination func(source string) string

// Sibling writes next to the source file: "a/b.txt" becomes "a/b.txt"+suffix.
func Sibling(suffix string) Destination {
	return func(source string) string {
		return source + suffix
	}
}

// InDir writes into dir: "a/b.txt" becomes dir+"/b.txt"+suffix.
func InDir(dir, suffix string) Destination {
	return func(source string) string {
		return filepath.Join(dir, filepath.Base(source)+suffix)
	}
}
