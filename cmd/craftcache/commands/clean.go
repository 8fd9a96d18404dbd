// Copyright 2026 The Craftcache Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"

	"github.com/spf13/pflag"

	"github.com/craftcache/craftcache/cmd/craftcache/cli"
	"github.com/craftcache/craftcache/lib/cachedir"
	"github.com/craftcache/craftcache/lib/charmcraft"
	"github.com/craftcache/craftcache/lib/version"
)

func cleanCommand() *cli.Command {
	var verbose bool
	return &cli.Command{
		Name:    "clean",
		Summary: "Delete the cache and run charmcraft clean",
		Usage:   "craftcache clean [--verbose]",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("clean", pflag.ContinueOnError)
			flags.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
			return flags
		},
		Run: func(args []string) error {
			ctx := context.Background()
			logger := cli.NewCommandLogger(verbose)

			cache, err := cachedir.New(logger)
			if err != nil {
				return err
			}
			logger.Info("deleting cached artifacts", "root", cache.Root())
			if err := cache.Clear(); err != nil {
				return err
			}
			// The wipe removed the fingerprint too; record the current
			// version so the next run is not treated as an upgrade.
			if err := cache.ReconcileVersion(cachedir.FingerprintTool, version.Short()); err != nil {
				return err
			}

			logger.Info("running charmcraft clean")
			return charmcraft.Run(ctx, logger, []string{"clean"}, charmcraft.Options{Verbose: verbose})
		},
	}
}
