/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

package session

import "fmt"

// Handle identifies a session within a Service. The zero Handle refers to
// no session. Handles are plain values; copying one does not copy the session.
type Handle struct {
	index      uint32
	generation uint32
}

// IsZero reports whether h is the null handle.
func (h Handle) IsZero() bool {
	return h.generation == 0
}

// String formats the handle for diagnostics.
func (h Handle) String() string {
	if h.IsZero() {
		return "session(nil)"
	}
	return fmt.Sprintf("session(%d.%d)", h.index, h.generation)
}
