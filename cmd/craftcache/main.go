// Copyright 2026 The Craftcache Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	"github.com/craftcache/craftcache/cmd/craftcache/commands"
)

func main() {
	if err := run(); err != nil {
		// A wrapped charmcraft failure has already written its error
		// to the terminal and carries the exit code to propagate.
		// Don't print a redundant "error:" line for those.
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	return commands.Root().Execute(os.Args[1:])
}
