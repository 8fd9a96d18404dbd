// Copyright 2026 The Craftcache Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/muesli/termenv"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/craftcache/craftcache/cmd/craftcache/cli"
	"github.com/craftcache/craftcache/lib/charm"
	"github.com/craftcache/craftcache/lib/config"
	"github.com/craftcache/craftcache/lib/gitrepo"
)

func addCommand() *cli.Command {
	var verbose bool
	return &cli.Command{
		Name:    "add",
		Summary: "Register this charm with the pre-built cache",
		Description: `Register this charm with the pre-built cache.

Each charm must be registered with the hub before pre-built artifacts
exist for it. The hub builds from a list of charm branches; this
command prints a prefilled GitHub issue URL that asks the hub
maintainers to add yours to that list.`,
		Usage: "craftcache add [--verbose]",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("add", pflag.ContinueOnError)
			flags.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
			return flags
		},
		Run: func(args []string) error {
			logger := cli.NewCommandLogger(verbose)
			configPath, err := config.Path()
			if err != nil {
				return err
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			printAddGuidance(context.Background(), logger, cfg.HubRepository)
			return nil
		},
	}
}

// printAddGuidance logs the prefilled hub issue URL for registering
// the current charm. Best effort: repository, branch, and charm
// directory are filled in when detectable, omitted when not.
func printAddGuidance(ctx context.Context, logger *slog.Logger, hubRepository string) {
	params := url.Values{}
	params.Set("template", "add_charm_branch.yaml")
	params.Set("labels", "add-charm")
	params.Set("title", "Add charm branch")

	repo := gitrepo.NewRepository(".")
	if upstream, err := repo.UpstreamBranch(ctx); err == nil && upstream != "" {
		remote, branch, found := strings.Cut(upstream, "/")
		if found {
			if remoteURL, err := repo.RemoteURL(ctx, remote); err == nil {
				if repository := gitrepo.GitHubRepository(remoteURL); repository != "" {
					params.Set("repo", repository)
					params.Set("ref", branch)
				}
			}
		}
	}

	if _, err := os.Stat(charm.ManifestFileName); err == nil {
		prefix, err := repo.ShowPrefix(ctx)
		if err == nil {
			params.Set("charm-directory", prefix)
		} else if !errors.Is(err, gitrepo.ErrNotARepository) {
			logger.Debug("unable to detect charm directory", "error", err)
		}
	}

	issueURL := "https://github.com/" + hubRepository + "/issues/new?" + params.Encode()
	display := issueURL
	if term.IsTerminal(int(os.Stderr.Fd())) {
		display = termenv.Hyperlink(issueURL, issueURL)
	}
	logger.Info("to register this charm with the pre-built cache, open an issue:\n\n" + display + "\n")
	logger.Info("once the issue is processed, artifacts for this charm appear in the next hub release")
}
