// Copyright 2026 The Craftcache Authors
// SPDX-License-Identifier: Apache-2.0

package assetname

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/craftcache/craftcache/lib/charm"
	"github.com/craftcache/craftcache/lib/identity"
)

// WheelsV1 delimiter tokens and suffix marker. The tokens appear in a
// fixed order and must not be reordered: the wheel file name itself
// contains dots and dashes, so only the ccchub tokens are safe split
// points.
const (
	wheelSeriesToken       = ".ccchub1."
	wheelArchitectureToken = ".ccchub2."
	wheelPathToken         = ".ccchub3."
	wheelSuffix            = ".charmcraftcachehub"
)

// WheelFields are the identity dimensions recovered from a wheels-v1
// asset name.
type WheelFields struct {
	// WheelFile is the original wheel file name, e.g.
	// "requests-2.31.0-py3-none-any.whl".
	WheelFile string

	// Name is the PEP 503 normalized distribution name.
	Name string

	// Version is the distribution version, verbatim from the file name.
	Version string

	// Series is the Ubuntu series code name, e.g. "focal".
	Series string

	// Architecture is the build architecture, e.g. "amd64".
	Architecture string

	// PathSegments scope the wheel's placement below the build-base
	// directory (the hub flattens "/" to "_" when encoding).
	PathSegments []string
}

// ParseWheelV1 parses a wheels-v1 asset name. Names produced by any
// other scheme fail with an error.
func ParseWheelV1(name string) (WheelFields, error) {
	trimmed, found := strings.CutSuffix(name, wheelSuffix)
	if !found {
		return WheelFields{}, fmt.Errorf("assetname: %q has no %q suffix", name, wheelSuffix)
	}

	wheelFile, rest, found := strings.Cut(trimmed, wheelSeriesToken)
	if !found {
		return WheelFields{}, fmt.Errorf("assetname: %q has no %q token", name, wheelSeriesToken)
	}
	series, rest, found := strings.Cut(rest, wheelArchitectureToken)
	if !found {
		return WheelFields{}, fmt.Errorf("assetname: %q has no %q token", name, wheelArchitectureToken)
	}
	architecture, path, found := strings.Cut(rest, wheelPathToken)
	if !found {
		return WheelFields{}, fmt.Errorf("assetname: %q has no %q token", name, wheelPathToken)
	}

	distribution, version, err := parseWheelFileName(wheelFile)
	if err != nil {
		return WheelFields{}, err
	}

	return WheelFields{
		WheelFile:    wheelFile,
		Name:         distribution,
		Version:      version,
		Series:       series,
		Architecture: architecture,
		PathSegments: strings.Split(path, "_"),
	}, nil
}

// Matches reports whether every dimension the scheme encodes equals
// the wheel identity. Partial matches are rejected, not scored.
func (f WheelFields) Matches(wheel identity.Wheel) bool {
	return f.Name == wheel.Name &&
		equalVersions(f.Version, wheel.Version) &&
		f.Series == wheel.Series &&
		f.Architecture == wheel.Architecture
}

// equalVersions compares release versions segment by segment, so
// "2.31" and "2.31.0" compare equal the way pip treats them. Missing
// trailing segments count as zero; non-numeric segments must match
// verbatim.
func equalVersions(a, b string) bool {
	aSegments := strings.Split(a, ".")
	bSegments := strings.Split(b, ".")
	for i := 0; i < len(aSegments) || i < len(bSegments); i++ {
		aSegment, bSegment := "0", "0"
		if i < len(aSegments) {
			aSegment = aSegments[i]
		}
		if i < len(bSegments) {
			bSegment = bSegments[i]
		}
		aNumber, aErr := strconv.Atoi(aSegment)
		bNumber, bErr := strconv.Atoi(bSegment)
		if aErr == nil && bErr == nil {
			if aNumber != bNumber {
				return false
			}
			continue
		}
		if aSegment != bSegment {
			return false
		}
	}
	return true
}

// parseWheelFileName extracts the distribution name and version from a
// PEP 427 wheel file name. The first two dash-separated fields are the
// escaped distribution name and the version; the distribution name is
// returned PEP 503 normalized.
func parseWheelFileName(fileName string) (distribution, version string, err error) {
	stem, found := strings.CutSuffix(fileName, ".whl")
	if !found {
		return "", "", fmt.Errorf("assetname: %q is not a wheel file name", fileName)
	}
	fields := strings.Split(stem, "-")
	// distribution-version-[build-]pythontag-abitag-platformtag
	if len(fields) < 5 {
		return "", "", fmt.Errorf("assetname: %q has %d fields, want at least 5", fileName, len(fields))
	}
	return charm.NormalizeName(fields[0]), fields[1], nil
}
