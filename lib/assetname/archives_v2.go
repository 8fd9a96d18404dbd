// Copyright 2026 The Craftcache Authors
// SPDX-License-Identifier: Apache-2.0

package assetname

import (
	"fmt"
	"strings"
)

// ArchivesV2 delimiter tokens and suffix marker.
const (
	archivePathToken     = "_ccchub1_"
	archivePlatformToken = "_ccchub2_"
	archiveSuffix        = ".tar.gz"
)

// ArchiveFields are the identity dimensions recovered from an
// archives-v2 asset name.
//
// The hub flattens every "/" in the repository name and charm path to
// "_" when encoding, and "_" is also a legal character inside both, so
// the flattening is not reversible. Fields therefore hold the
// flattened forms; callers compare against Flatten of their own
// values, which preserves the exact-equality-per-dimension rule.
type ArchiveFields struct {
	// Repository is the flattened "owner/name" GitHub repository,
	// e.g. "canonical_mysql-router-k8s-operator".
	Repository string

	// Path is the flattened repository-relative charm directory,
	// "." for a charm at the repository root.
	Path string

	// Platform is the platform's release form, e.g.
	// "ubuntu@22.04_amd64".
	Platform string
}

// ParseArchiveV2 parses an archives-v2 asset name. Names produced by
// any other scheme fail with an error.
func ParseArchiveV2(name string) (ArchiveFields, error) {
	trimmed, found := strings.CutSuffix(name, archiveSuffix)
	if !found {
		return ArchiveFields{}, fmt.Errorf("assetname: %q has no %q suffix", name, archiveSuffix)
	}

	repository, rest, found := strings.Cut(trimmed, archivePathToken)
	if !found {
		return ArchiveFields{}, fmt.Errorf("assetname: %q has no %q token", name, archivePathToken)
	}
	path, platform, found := strings.Cut(rest, archivePlatformToken)
	if !found {
		return ArchiveFields{}, fmt.Errorf("assetname: %q has no %q token", name, archivePlatformToken)
	}

	if repository == "" || path == "" || platform == "" {
		return ArchiveFields{}, fmt.Errorf("assetname: %q has an empty dimension", name)
	}

	return ArchiveFields{Repository: repository, Path: path, Platform: platform}, nil
}

// BuildArchiveV2 constructs the asset name the hub publishes for a
// (repository, charm path, platform) identity. Used by tests and by
// the hub-side tooling convention; the matcher itself parses and
// compares flattened dimensions.
func BuildArchiveV2(repository, path, platformRelease string) string {
	name := repository + archivePathToken + path + archivePlatformToken + platformRelease + archiveSuffix
	return Flatten(name)
}

// Flatten applies the hub's "/" to "_" substitution.
func Flatten(s string) string {
	return strings.ReplaceAll(s, "/", "_")
}
