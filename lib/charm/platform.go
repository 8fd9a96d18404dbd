// Copyright 2026 The Craftcache Authors
// SPDX-License-Identifier: Apache-2.0

package charm

import (
	"fmt"
	"runtime"
	"strings"
)

// Platform is a charm build platform in ST124 shorthand notation,
// e.g. "ubuntu@22.04:amd64". Only the shorthand form is supported;
// charmcraft.yaml entries using expanded build-on/build-for maps are
// rejected.
type Platform struct {
	// Base is the distribution and channel, e.g. "ubuntu@22.04".
	Base string

	// Architecture is the build architecture, e.g. "amd64".
	Architecture string
}

// ParsePlatform parses ST124 shorthand notation.
func ParsePlatform(s string) (Platform, error) {
	base, architecture, found := strings.Cut(s, ":")
	if !found || base == "" || architecture == "" {
		return Platform{}, fmt.Errorf("charm: %q is not a valid ST124 shorthand platform (expected \"<distribution>@<channel>:<architecture>\")", s)
	}
	if !strings.Contains(base, "@") {
		return Platform{}, fmt.Errorf("charm: %q is not a valid ST124 shorthand platform (base %q has no \"@\")", s, base)
	}
	return Platform{Base: base, Architecture: architecture}, nil
}

// String returns the shorthand notation, e.g. "ubuntu@22.04:amd64".
func (p Platform) String() string {
	return p.Base + ":" + p.Architecture
}

// ReleaseName returns the form used inside hub release asset names,
// with the ":" separator replaced by "_" (GitHub asset names cannot
// carry a colon).
func (p Platform) ReleaseName() string {
	return p.Base + "_" + p.Architecture
}

// DirName returns the form used for the per-platform placement
// directory under the charm's cache tree.
func (p Platform) DirName() string {
	return strings.ReplaceAll(p.String(), ":", "_")
}

// LocalArchitecture returns the running machine's architecture in
// charmcraft naming. Identities are only ever emitted for this
// architecture; foreign-architecture artifacts are useless locally.
func LocalArchitecture() (string, error) {
	switch runtime.GOARCH {
	case "amd64", "arm64", "s390x", "riscv64":
		return runtime.GOARCH, nil
	case "ppc64le":
		return "ppc64el", nil
	default:
		return "", fmt.Errorf("charm: unsupported architecture %q", runtime.GOARCH)
	}
}
