// Copyright 2026 The Craftcache Authors
// SPDX-License-Identifier: Apache-2.0

// Package cachedir owns the craftcache cache root: a user-scoped
// directory tree holding version fingerprints, the HTTP conditional
// cache for the hub's release manifest, raw downloaded assets, and
// placed artifacts.
//
// Cache validity is binary. The root carries two fingerprint files —
// the craftcache version and the hub release name — and a mismatch on
// either wipes the entire root. There is no per-entry invalidation:
// artifacts from different tool versions or hub releases are never
// allowed to coexist.
package cachedir

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Fingerprint identifies a version fingerprint kind. Each kind is
// recorded in its own file under the cache root, but a mismatch on any
// kind invalidates the whole root.
type Fingerprint string

const (
	// FingerprintTool is the running craftcache version.
	FingerprintTool Fingerprint = "craftcache"

	// FingerprintHubRelease is the name of the hub release the cached
	// artifacts were downloaded from.
	FingerprintHubRelease Fingerprint = "hub_release"
)

// Names of files and subdirectories under the cache root.
const (
	etagFileName        = "latest_release_etag.txt"
	releaseBodyFileName = "latest_release.json"
	downloadTempName    = "current.download.part"
	archivesDirName     = "archives"
	charmsDirName       = "charms"
	charmcraftDirName   = "charmcraft"
)

// Dir is a handle on the cache root directory.
type Dir struct {
	root   string
	logger *slog.Logger
}

// New returns a Dir rooted at the user cache directory
// (~/.cache/craftcache on Linux). The directory is not created; call
// Ensure.
func New(logger *slog.Logger) (*Dir, error) {
	userCache, err := os.UserCacheDir()
	if err != nil {
		return nil, fmt.Errorf("cachedir: resolving user cache directory: %w", err)
	}
	return At(filepath.Join(userCache, "craftcache"), logger), nil
}

// At returns a Dir rooted at an explicit path. Tests use this to work
// inside a temporary directory.
func At(root string, logger *slog.Logger) *Dir {
	return &Dir{root: root, logger: logger}
}

// Root returns the cache root path.
func (d *Dir) Root() string { return d.root }

// Ensure creates the cache root if absent. Idempotent.
func (d *Dir) Ensure() error {
	if err := os.MkdirAll(d.root, 0o755); err != nil {
		return fmt.Errorf("cachedir: creating cache root: %w", err)
	}
	return nil
}

// Clear removes the cache root recursively, tolerating "already
// absent", and recreates the empty root. The empty root is recreated
// even when removal fails partway so that fingerprint files can still
// be written.
func (d *Dir) Clear() error {
	removeErr := os.RemoveAll(d.root)
	if mkdirErr := os.MkdirAll(d.root, 0o755); mkdirErr != nil {
		return fmt.Errorf("cachedir: recreating cache root: %w", mkdirErr)
	}
	if removeErr != nil {
		return fmt.Errorf("cachedir: clearing cache root: %w", removeErr)
	}
	return nil
}

// ReconcileVersion compares the recorded fingerprint of the given kind
// against current. On first run (no fingerprint file) it records
// current without wiping. On mismatch it wipes the entire cache root —
// not just the kind's namespace — and records current.
//
// The fingerprint file is rewritten on every exit path, including when
// the wipe itself fails. A crash mid-wipe therefore never leaves a
// stale fingerprint that would mask the inconsistency on the next run:
// the rewritten fingerprint matches the running version, and the next
// run's artifact lookups simply miss.
func (d *Dir) ReconcileVersion(kind Fingerprint, current string) (err error) {
	path := filepath.Join(d.root, string(kind)+"_version.txt")

	defer func() {
		writeErr := os.WriteFile(path, []byte(current), 0o644)
		if writeErr != nil && err == nil {
			err = fmt.Errorf("cachedir: recording %s fingerprint: %w", kind, writeErr)
		}
	}()

	previous, readErr := os.ReadFile(path)
	if errors.Is(readErr, fs.ErrNotExist) {
		d.logger.Debug("no fingerprint recorded, treating as first run", "kind", string(kind))
		return nil
	}
	if readErr != nil {
		return fmt.Errorf("cachedir: reading %s fingerprint: %w", kind, readErr)
	}

	recorded := strings.TrimSpace(string(previous))
	if recorded == current {
		return nil
	}

	d.logger.Info("cache fingerprint changed, clearing cache",
		"kind", string(kind), "recorded", recorded, "current", current)
	return d.Clear()
}

// ETagPath is the file holding the entity tag of the last fetched
// release manifest.
func (d *Dir) ETagPath() string {
	return filepath.Join(d.root, etagFileName)
}

// ReleaseBodyPath is the file holding the body of the last fetched
// release manifest.
func (d *Dir) ReleaseBodyPath() string {
	return filepath.Join(d.root, releaseBodyFileName)
}

// DownloadTempPath is the shared temporary file that in-flight
// downloads stream into before their atomic rename. Downloads are
// serial, so a single shared name is sufficient; a partially-written
// temp file left by an interrupted run is simply overwritten.
func (d *Dir) DownloadTempPath() string {
	return filepath.Join(d.root, downloadTempName)
}

// ArchivePath is the raw-store path for a downloaded asset, keyed by
// its remote asset name.
func (d *Dir) ArchivePath(assetName string) string {
	return filepath.Join(d.root, archivesDirName, assetName)
}

// DigestPath is the sidecar file recording the blake3 digest of a
// raw-store asset, used to detect truncated or corrupted archives
// before reuse.
func (d *Dir) DigestPath(assetName string) string {
	return d.ArchivePath(assetName) + ".b3"
}

// CharmDir is the per-charm placement tree for unpacked archives. The
// key combines the flattened GitHub repository name and the flattened
// repository-relative charm directory, so charms sharing a repository
// stay isolated.
func (d *Dir) CharmDir(repositoryFlat, pathFlat string) string {
	return filepath.Join(d.root, charmsDirName, repositoryFlat+":"+pathFlat)
}

// CharmcraftDir is the shared-cache directory handed to charmcraft via
// CRAFT_SHARED_CACHE under the wheels-v1 scheme, where all platforms
// share one wheel tree.
func (d *Dir) CharmcraftDir() string {
	return filepath.Join(d.root, charmcraftDirName)
}
