// Copyright 2026 The Craftcache Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/craftcache/craftcache/cmd/craftcache/cli"
	"github.com/craftcache/craftcache/lib/assetname"
	"github.com/craftcache/craftcache/lib/cachedir"
	"github.com/craftcache/craftcache/lib/catalog"
	"github.com/craftcache/craftcache/lib/charm"
	"github.com/craftcache/craftcache/lib/charmcraft"
	"github.com/craftcache/craftcache/lib/config"
	"github.com/craftcache/craftcache/lib/fetch"
	"github.com/craftcache/craftcache/lib/gitrepo"
	"github.com/craftcache/craftcache/lib/identity"
	"github.com/craftcache/craftcache/lib/plan"
	"github.com/craftcache/craftcache/lib/version"
)

func packCommand() *cli.Command {
	var verbose bool
	var selectedPlatforms []string
	return &cli.Command{
		Name:    "pack",
		Summary: "charmcraft pack with a pre-built dependency cache",
		Description: `Pack the charm in the current directory, pre-populating charmcraft's
shared cache with pre-built artifacts downloaded from the hub.

Arguments after "--" are passed through to charmcraft pack unchanged.`,
		Usage: "craftcache pack [--platform <platform>]... [--verbose] [-- <charmcraft args>]",
		Examples: []cli.Example{
			{
				Description: "Pack all platforms declared for this machine's architecture",
				Command:     "craftcache pack",
			},
			{
				Description: "Pack one platform and pass --measure to charmcraft",
				Command:     "craftcache pack --platform ubuntu@22.04:amd64 -- --measure /tmp/measure.json",
			},
		},
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("pack", pflag.ContinueOnError)
			flags.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
			flags.StringArrayVar(&selectedPlatforms, "platform", nil,
				"platform in charmcraft.yaml 'platforms' to pack (repeatable; default: all platforms for this machine's architecture)")
			return flags
		},
		Run: func(args []string) error {
			return runPack(context.Background(), verbose, selectedPlatforms, args)
		},
	}
}

func runPack(ctx context.Context, verbose bool, selectedPlatforms, passthrough []string) error {
	logger := cli.NewCommandLogger(verbose)

	configPath, err := config.Path()
	if err != nil {
		return err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	scheme, err := assetname.ParseScheme(cfg.Scheme)
	if err != nil {
		return err
	}

	if err := charmcraft.CheckVersion(ctx); err != nil {
		return err
	}

	cache, err := cachedir.New(logger)
	if err != nil {
		return err
	}
	if err := cache.Ensure(); err != nil {
		return err
	}
	if err := cache.ReconcileVersion(cachedir.FingerprintTool, version.Short()); err != nil {
		return err
	}

	manifest, err := charm.LoadManifest(".")
	if err != nil {
		return err
	}
	architecture, err := charm.LocalArchitecture()
	if err != nil {
		return err
	}

	// Platform selection is an archives-scheme concept. Wheel
	// manifests are the legacy bases form, which declares no
	// platforms to resolve. Either way this validates before the
	// first network call.
	var platforms []charm.Platform
	switch scheme {
	case assetname.ArchivesV2:
		platforms, err = identity.ResolvePlatforms(manifest, selectedPlatforms, architecture)
		if err != nil {
			return err
		}
	case assetname.WheelsV1:
		if len(selectedPlatforms) > 0 {
			return fmt.Errorf("--platform requires the archives-v2 scheme; wheels-v1 packs the bases declared in charmcraft.yaml")
		}
	}

	client, err := catalog.NewClient(catalog.Config{
		BaseURL:       cfg.APIBaseURL,
		HubRepository: cfg.HubRepository,
		Token:         os.Getenv("GH_TOKEN"),
		Cache:         cache,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	logger.Info("fetching hub catalog", "hub", cfg.HubRepository)
	release, err := client.LatestRelease(ctx)
	if err != nil {
		return err
	}
	if err := cache.ReconcileVersion(cachedir.FingerprintHubRelease, release.Name); err != nil {
		return err
	}

	engine := fetch.NewEngine(cache, client, logger)

	switch scheme {
	case assetname.ArchivesV2:
		return packArchives(ctx, logger, cfg, cache, engine, release, manifest, platforms, verbose, passthrough)
	case assetname.WheelsV1:
		return packWheels(ctx, logger, cfg, cache, engine, release, manifest, architecture, verbose, passthrough)
	default:
		return fmt.Errorf("unhandled scheme %v", scheme)
	}
}

func packArchives(ctx context.Context, logger *slog.Logger, cfg *config.Config, cache *cachedir.Dir, engine *fetch.Engine, release *catalog.Release, manifest *charm.Manifest, platforms []charm.Platform, verbose bool, passthrough []string) error {
	repo := gitrepo.NewRepository(".")
	charmPath, err := repo.ShowPrefix(ctx)
	if err != nil {
		if errors.Is(err, gitrepo.ErrNotARepository) {
			return fmt.Errorf("pre-built caches are keyed by the charm's git repository; run craftcache from inside a git working tree")
		}
		return err
	}

	// metadata.yaml's source links take precedence; charmcraft.yaml's
	// links.source is the fallback for charms without a metadata.yaml.
	sources, err := charm.MetadataSources(".")
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		sources = manifest.SourceURLs
	}
	candidates, err := plan.CandidateRepositories(ctx, repo, sources, logger)
	if err != nil {
		return err
	}

	logger.Info("searching for this charm's cache")
	archivePlan, err := plan.BuildArchivePlan(release, candidates, charmPath, platforms, cache, logger)
	if err != nil {
		if errors.Is(err, plan.ErrNoMatches) {
			logger.Error("no pre-built cache found for this charm")
			printAddGuidance(ctx, logger, cfg.HubRepository)
			return &cli.ExitError{Code: 1}
		}
		return err
	}
	if count := len(archivePlan.Unmatched); count > 0 {
		logger.Warn(fmt.Sprintf("%d platform(s) have no pre-built cache and will build uncached", count))
	}

	if err := engine.DownloadArchives(ctx, archivePlan.Matches); err != nil {
		return err
	}
	logger.Info("unpacking download")
	if err := engine.UnpackArchives(archivePlan, charmPath); err != nil {
		return err
	}

	charmDir := cache.CharmDir(assetname.Flatten(archivePlan.Repository), assetname.Flatten(charmPath))
	for _, platform := range platforms {
		logger.Info("packing platform", "platform", platform.String())
		err := charmcraft.Run(ctx, logger,
			append([]string{"pack", "--platform", platform.String()}, passthrough...),
			charmcraft.Options{
				CacheDir: filepath.Join(charmDir, platform.DirName()),
				Verbose:  verbose,
			})
		if err != nil {
			return err
		}
	}
	return nil
}

func packWheels(ctx context.Context, logger *slog.Logger, cfg *config.Config, cache *cachedir.Dir, engine *fetch.Engine, release *catalog.Release, manifest *charm.Manifest, architecture string, verbose bool, passthrough []string) error {
	reportPath := filepath.Join(cache.Root(), "report.json")
	logger.Info("resolving dependencies")
	if err := charm.GenerateReport(ctx, ".", reportPath, verbose); err != nil {
		return err
	}
	dependencies, err := charm.LoadReport(reportPath)
	if err != nil {
		return err
	}
	wheels, err := identity.ResolveWheels(dependencies, manifest, architecture)
	if err != nil {
		return err
	}

	wheelPlan, err := plan.BuildWheelPlan(release, wheels, cache, logger)
	if err != nil {
		if errors.Is(err, plan.ErrNoMatches) {
			logger.Error("no pre-built wheels found for this charm")
			printAddGuidance(ctx, logger, cfg.HubRepository)
			return &cli.ExitError{Code: 1}
		}
		return err
	}
	if count := len(wheelPlan.Unmatched); count > 0 {
		plural := ""
		if count > 1 {
			plural = "s"
		}
		logger.Warn(fmt.Sprintf("%d wheel%s not pre-built. Run `craftcache add` for faster builds.", count, plural))
	}

	if err := engine.DownloadWheels(ctx, wheelPlan.Matches); err != nil {
		return err
	}
	if err := engine.EnsureLegacyBaseLink(filepath.Join(cache.CharmcraftDir(), plan.BuildBaseDirName)); err != nil {
		return err
	}

	logger.Info("packing charm")
	return charmcraft.Run(ctx, logger,
		append([]string{"pack"}, passthrough...),
		charmcraft.Options{CacheDir: cache.CharmcraftDir(), Verbose: verbose})
}
