// Copyright 2026 The Craftcache Authors
// SPDX-License-Identifier: Apache-2.0

// Package plan matches a charm's target identities against the hub
// catalog and produces a download plan.
//
// A plan never aborts on a partial miss: an identity with no matching
// asset degrades to "build that one without a cached artifact" and is
// reported in the plan's unmatched list. Only a total miss — nothing
// matched for the whole charm — is an error, and the caller turns it
// into guidance to register the charm with the hub.
package plan

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/craftcache/craftcache/lib/assetname"
	"github.com/craftcache/craftcache/lib/cachedir"
	"github.com/craftcache/craftcache/lib/catalog"
	"github.com/craftcache/craftcache/lib/charm"
	"github.com/craftcache/craftcache/lib/gitrepo"
	"github.com/craftcache/craftcache/lib/identity"
)

// BuildBaseDirName is the subdirectory charmcraft's provider uses for
// the buildd base instance cache. Wheels placed under it are found by
// pip inside the build container.
const BuildBaseDirName = "charmcraft-buildd-base-v7"

// ErrNoMatches reports a total-match failure: no requested identity
// matched any catalog asset.
var ErrNoMatches = errors.New("plan: no pre-built artifacts found for this charm")

// CandidateRepositories returns the GitHub repositories that might
// have published artifacts for the charm, in probe order: the origin
// remote first, then the manifest's declared source URLs, then the
// remaining remotes. Repositories are deduplicated; non-GitHub URLs
// are skipped. The repository must be a real working tree — archive
// lookups are keyed by the charm's path inside one, so callers have
// already resolved it.
func CandidateRepositories(ctx context.Context, repo *gitrepo.Repository, sourceURLs []string, logger *slog.Logger) ([]string, error) {
	var candidates []string
	seen := make(map[string]bool)
	add := func(repository, origin string) {
		if repository == "" || seen[repository] {
			return
		}
		seen[repository] = true
		candidates = append(candidates, repository)
		logger.Debug("candidate repository", "repository", repository, "from", origin)
	}

	remotes, err := repo.Remotes(ctx)
	if err != nil {
		return nil, err
	}

	for _, remote := range remotes {
		if remote != "origin" {
			continue
		}
		url, err := repo.RemoteURL(ctx, remote)
		if err != nil {
			return nil, err
		}
		add(gitrepo.GitHubRepository(url), "origin remote")
	}

	for _, url := range sourceURLs {
		add(gitrepo.GitHubRepository(url), "declared source")
	}

	for _, remote := range remotes {
		if remote == "origin" {
			continue
		}
		url, err := repo.RemoteURL(ctx, remote)
		if err != nil {
			return nil, err
		}
		add(gitrepo.GitHubRepository(url), "remote "+remote)
	}

	return candidates, nil
}

// ArchiveMatch pairs one requested platform with its catalog asset.
type ArchiveMatch struct {
	Platform charm.Platform
	Asset    catalog.Asset

	// TargetDir is where the archive's content unpacks, derived from
	// the winning repository, the charm path, and the platform.
	TargetDir string
}

// ArchivePlan is the download plan for the archives-v2 scheme.
type ArchivePlan struct {
	// Repository is the winning candidate, in "owner/name" form. All
	// matches come from this repository exclusively.
	Repository string

	Matches   []ArchiveMatch
	Unmatched []charm.Platform
}

// BuildArchivePlan matches the requested platforms against the
// release under the archives-v2 scheme.
//
// Candidates are probed in order and the first one with at least one
// matching asset wins; its assets are then used exclusively, even for
// platforms another candidate could have served. Within the winning
// candidate, a platform with no asset is unmatched, not fatal.
// Returns ErrNoMatches when every candidate comes up empty.
func BuildArchivePlan(release *catalog.Release, candidates []string, charmPath string, platforms []charm.Platform, cache *cachedir.Dir, logger *slog.Logger) (*ArchivePlan, error) {
	pathFlat := assetname.Flatten(charmPath)

	for _, candidate := range candidates {
		repositoryFlat := assetname.Flatten(candidate)
		found := false
		result := &ArchivePlan{Repository: candidate}

		for _, platform := range platforms {
			wanted := assetname.BuildArchiveV2(candidate, charmPath, platform.ReleaseName())
			asset, ok := findAsset(release.Assets, wanted)
			if !ok {
				result.Unmatched = append(result.Unmatched, platform)
				continue
			}
			found = true
			result.Matches = append(result.Matches, ArchiveMatch{
				Platform:  platform,
				Asset:     asset,
				TargetDir: filepath.Join(cache.CharmDir(repositoryFlat, pathFlat), platform.DirName(), BuildBaseDirName),
			})
		}

		if found {
			logger.Debug("repository matched",
				"repository", candidate,
				"matched", len(result.Matches),
				"unmatched", len(result.Unmatched))
			return result, nil
		}
	}

	return nil, ErrNoMatches
}

// findAsset returns the first asset with the given name. Release
// asset names are unique in practice; when duplicates occur the first
// in catalog order wins.
func findAsset(assets []catalog.Asset, name string) (catalog.Asset, bool) {
	for _, asset := range assets {
		if asset.Name == name {
			return asset, true
		}
	}
	return catalog.Asset{}, false
}

// WheelMatch pairs one wheel identity with its catalog asset.
type WheelMatch struct {
	Wheel identity.Wheel
	Asset catalog.Asset

	// TargetPath is the wheel's placement inside charmcraft's build
	// base cache, where pip's wheel lookup finds it.
	TargetPath string
}

// WheelPlan is the download plan for the wheels-v1 scheme.
type WheelPlan struct {
	Matches   []WheelMatch
	Unmatched []identity.Wheel
}

// BuildWheelPlan matches wheel identities against the release under
// the wheels-v1 scheme. Every dimension must match exactly; the first
// matching asset in catalog order wins for each identity. Returns
// ErrNoMatches when nothing matched at all and at least one identity
// was requested.
func BuildWheelPlan(release *catalog.Release, wheels []identity.Wheel, cache *cachedir.Dir, logger *slog.Logger) (*WheelPlan, error) {
	result := &WheelPlan{}
	baseDir := filepath.Join(cache.CharmcraftDir(), BuildBaseDirName)

	for _, wheel := range wheels {
		matched := false
		for _, asset := range release.Assets {
			fields, err := assetname.ParseWheelV1(asset.Name)
			if err != nil {
				// Not a wheels-v1 name; not a candidate.
				continue
			}
			if !fields.Matches(wheel) {
				continue
			}
			segments := filepath.Join(fields.PathSegments...)
			result.Matches = append(result.Matches, WheelMatch{
				Wheel: wheel,
				Asset: asset,
				TargetPath: filepath.Join(baseDir,
					"BuilddBaseAlias."+strings.ToUpper(wheel.Series),
					segments, fields.WheelFile),
			})
			matched = true
			break
		}
		if !matched {
			result.Unmatched = append(result.Unmatched, wheel)
			logger.Debug("no pre-built wheel",
				"name", wheel.Name, "version", wheel.Version,
				"series", wheel.Series, "architecture", wheel.Architecture)
		}
	}

	if len(result.Matches) == 0 && len(wheels) > 0 {
		return nil, ErrNoMatches
	}
	return result, nil
}
