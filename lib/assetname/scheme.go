// Copyright 2026 The Craftcache Authors
// SPDX-License-Identifier: Apache-2.0

// Package assetname parses hub release asset names.
//
// An asset name packs several target-identity dimensions into one
// string using fixed delimiter tokens. The encoding is not
// self-describing: two incompatible schemes exist historically, they
// use different delimiters, and a hub release is wholly produced by
// one of them. The active scheme is selected by configuration — it is
// never inferred from an individual asset, and names from one scheme
// must never be fed to the other scheme's parser.
//
// Each scheme is a pure parsing function from a name to its identity
// fields. Matching elsewhere requires exact equality on every encoded
// dimension; a name that fails to parse under the active scheme is
// simply not a candidate.
package assetname

import "fmt"

// Scheme identifies an asset-name encoding scheme.
type Scheme int

const (
	// WheelsV1 encodes one pre-built wheel per asset:
	//
	//	<wheel-file>.ccchub1.<series>.ccchub2.<arch>.ccchub3.<path-with-_>.charmcraftcachehub
	WheelsV1 Scheme = iota + 1

	// ArchivesV2 encodes one tar.gz archive per charm platform:
	//
	//	<owner>_<repo>_ccchub1_<path-with-_>_ccchub2_<platform>.tar.gz
	ArchivesV2
)

// ParseScheme parses a configuration scheme name.
func ParseScheme(name string) (Scheme, error) {
	switch name {
	case "wheels-v1":
		return WheelsV1, nil
	case "archives-v2":
		return ArchivesV2, nil
	default:
		return 0, fmt.Errorf("assetname: unknown encoding scheme %q", name)
	}
}

// String returns the configuration name of the scheme.
func (s Scheme) String() string {
	switch s {
	case WheelsV1:
		return "wheels-v1"
	case ArchivesV2:
		return "archives-v2"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}
