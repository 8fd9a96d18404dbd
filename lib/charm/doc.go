// Copyright 2026 The Craftcache Authors
// SPDX-License-Identifier: Apache-2.0

// Package charm reads the local build inputs craftcache resolves
// identities from: charmcraft.yaml (declared platforms or legacy
// bases, binary-package exclusions, source links), metadata.yaml
// (source links), and the pip dependency-resolution report. All of
// these are produced by external tools and treated as opaque inputs;
// a missing or malformed file is a fatal, user-facing error naming
// the file.
package charm
