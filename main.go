/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

// Command parselib parses source files against PEG grammars.
package main

import (
	"context"
	"os"
	"os/signal"

	"bennypowers.dev/parselib/cmd"
	"bennypowers.dev/parselib/session"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := cmd.Execute(ctx)
	stop()
	session.Shutdown()
	if err != nil {
		os.Exit(1)
	}
}
