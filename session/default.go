/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

package session

import "sync"

var (
	defaultMu      sync.Mutex
	defaultService *Service
)

// Default returns the process-wide Service, creating it on first use with
// default Options.
func Default() *Service {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultService == nil {
		defaultService = New(Options{})
	}
	return defaultService
}

// Shutdown closes the process-wide Service. A later Default call creates a
// fresh one.
func Shutdown() {
	defaultMu.Lock()
	svc := defaultService
	defaultService = nil
	defaultMu.Unlock()

	if svc != nil {
		svc.Close()
	}
}
