// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"os"

	"audiostream/cmd"
	"audiostream/internal/log"
	"audiostream/pkg/build"
)

// main is the entry point for the audio processing application. The
// selected subcommand owns its run: it starts it, stops it on completion or
// interrupt, drains every stage and closes the transports before returning.
func main() {
	// Binaries built without ldflags report development values.
	if err := build.InitializeOrDevelopment(); err != nil {
		log.Debugf("Build: %v", err)
	}

	if err := cmd.Execute(context.Background()); err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}
}
