// Copyright 2026 The Craftcache Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands defines the craftcache command tree.
package commands

import (
	"github.com/craftcache/craftcache/cmd/craftcache/cli"
)

// Root returns the root craftcache command.
func Root() *cli.Command {
	return &cli.Command{
		Name:    "craftcache",
		Summary: "Fast first-time builds for charmcraft",
		Description: `craftcache wraps charmcraft pack with a pre-built dependency cache.

A first-time charmcraft build resolves and compiles every Python
dependency from source, which can take a long time. craftcache
downloads pre-built artifacts published by the charmcraftcache-hub
repository and places them where charmcraft's own cache lookup finds
them, so the build skips straight to packing.`,
		Subcommands: []*cli.Command{
			packCommand(),
			cleanCommand(),
			addCommand(),
			versionCommand(),
		},
	}
}
