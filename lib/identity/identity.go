// Copyright 2026 The Craftcache Authors
// SPDX-License-Identifier: Apache-2.0

// Package identity resolves, entirely from local state, the set of
// target identities a build needs satisfied from the hub. Resolution
// happens before any network call: validation failures here abort the
// run without spending API quota.
//
// Architecture filtering is mandatory at this layer. An identity for a
// foreign architecture is never emitted, because a foreign-architecture
// artifact can never be used by the local charmcraft build.
package identity

import (
	"fmt"

	"github.com/craftcache/craftcache/lib/charm"
)

// Wheel is the target identity under the wheels-v1 scheme: one
// pre-built wheel for one dependency on one Ubuntu series.
type Wheel struct {
	// Name is the PEP 503 normalized dependency name.
	Name string

	// Version is the exact resolved dependency version.
	Version string

	// Series is the Ubuntu series code name, e.g. "focal".
	Series string

	// Architecture is the build architecture, e.g. "amd64".
	Architecture string
}

func (w Wheel) String() string {
	return fmt.Sprintf("%s %s (%s, %s)", w.Name, w.Version, w.Series, w.Architecture)
}

// ResolveWheels computes the wheels-v1 identities: the cross product
// of every non-excluded resolved dependency with every declared base
// matching the local architecture. Dependencies listed in
// charm-binary-python-packages are bundled by charmcraft itself and
// are skipped.
func ResolveWheels(dependencies []charm.Dependency, manifest *charm.Manifest, architecture string) ([]Wheel, error) {
	excluded := make(map[string]bool, len(manifest.BinaryPackages))
	for _, name := range manifest.BinaryPackages {
		excluded[charm.NormalizeName(name)] = true
	}

	var seriesList []string
	for _, base := range manifest.Bases {
		if base.Architecture != architecture {
			continue
		}
		series, err := charm.SeriesForChannel(base.Channel)
		if err != nil {
			return nil, err
		}
		seriesList = append(seriesList, series)
	}

	var wheels []Wheel
	for _, dependency := range dependencies {
		if excluded[dependency.Name] {
			continue
		}
		for _, series := range seriesList {
			wheels = append(wheels, Wheel{
				Name:         dependency.Name,
				Version:      dependency.Version,
				Series:       series,
				Architecture: architecture,
			})
		}
	}
	return wheels, nil
}

// ResolvePlatforms computes the archives-v2 identities. With no
// explicit selection, every declared platform matching the local
// architecture is used. With an explicit --platform selection, each
// value must parse, appear in the manifest's declared set, match the
// local architecture, and appear only once — all hard validation
// errors, raised before any network call.
func ResolvePlatforms(manifest *charm.Manifest, selected []string, architecture string) ([]charm.Platform, error) {
	if len(manifest.Platforms) == 0 {
		return nil, fmt.Errorf("identity: %s declares no 'platforms' (ST124 shorthand notation required)", charm.ManifestFileName)
	}

	if len(selected) == 0 {
		var platforms []charm.Platform
		for _, platform := range manifest.Platforms {
			if platform.Architecture == architecture {
				platforms = append(platforms, platform)
			}
		}
		return platforms, nil
	}

	declared := make(map[charm.Platform]bool, len(manifest.Platforms))
	for _, platform := range manifest.Platforms {
		declared[platform] = true
	}

	seen := make(map[charm.Platform]bool, len(selected))
	var platforms []charm.Platform
	for _, value := range selected {
		platform, err := charm.ParsePlatform(value)
		if err != nil {
			return nil, err
		}
		if seen[platform] {
			return nil, fmt.Errorf("identity: --platform %q passed more than once. Is this a typo?", value)
		}
		seen[platform] = true
		if !declared[platform] {
			return nil, fmt.Errorf("identity: --platform %q not found in %s 'platforms'", value, charm.ManifestFileName)
		}
		if platform.Architecture != architecture {
			return nil, fmt.Errorf("identity: architecture of --platform %q does not match this machine (%s)", value, architecture)
		}
		platforms = append(platforms, platform)
	}
	return platforms, nil
}
