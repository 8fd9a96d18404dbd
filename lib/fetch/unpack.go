// Copyright 2026 The Craftcache Authors
// SPDX-License-Identifier: Apache-2.0

package fetch

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/craftcache/craftcache/lib/assetname"
	"github.com/craftcache/craftcache/lib/plan"
)

// sentinelFileName marks a charm cache tree whose archives all
// unpacked to completion. Its absence over a non-empty tree means a
// previous run was interrupted mid-unpack and the tree cannot be
// trusted.
const sentinelFileName = "all_archives_fully_unpacked"

// legacyBaseDirName is the build base directory name used by
// charmcraft 2.7. It is kept as a symlink to the current name so
// older charmcraft releases still hit the cache.
const legacyBaseDirName = "charmcraft-buildd-base-v8.0"

// UnpackArchives extracts every planned archive into its per-platform
// target directory. All-or-nothing recovery: if the sentinel file is
// missing but the charm's tree exists, the whole tree is deleted and
// re-unpacked; the sentinel is removed before unpacking starts and
// recreated only after every archive has unpacked. Platforms whose
// target already exists under a valid sentinel are skipped.
func (e *Engine) UnpackArchives(archivePlan *plan.ArchivePlan, charmPath string) error {
	charmDir := e.cache.CharmDir(
		assetname.Flatten(archivePlan.Repository),
		assetname.Flatten(charmPath))
	sentinel := filepath.Join(charmDir, sentinelFileName)

	if _, err := os.Stat(sentinel); err != nil {
		if _, dirErr := os.Stat(charmDir); dirErr == nil {
			e.logger.Debug("partially unpacked cache detected, deleting and re-unpacking")
			if err := os.RemoveAll(charmDir); err != nil {
				return fmt.Errorf("fetch: removing partial unpack: %w", err)
			}
		}
	}
	if err := os.Remove(sentinel); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("fetch: removing sentinel: %w", err)
	}

	for _, match := range archivePlan.Matches {
		platformDir := filepath.Dir(match.TargetDir)
		if _, err := os.Stat(platformDir); err == nil {
			e.logger.Debug("cache already unpacked", "platform", match.Platform.String())
			continue
		}
		if err := os.MkdirAll(match.TargetDir, 0o755); err != nil {
			return fmt.Errorf("fetch: creating %s: %w", match.TargetDir, err)
		}
		if err := extractArchive(e.cache.ArchivePath(match.Asset.Name), match.TargetDir); err != nil {
			return err
		}
		e.logger.Debug("unpacked cache", "platform", match.Platform.String())
	}

	if err := os.WriteFile(sentinel, nil, 0o644); err != nil {
		return fmt.Errorf("fetch: writing sentinel: %w", err)
	}
	return nil
}

// EnsureLegacyBaseLink maintains the charmcraft 2.7 compatibility
// symlink next to the current build base directory under the
// wheels-v1 layout. A real directory squatting on the legacy name is
// replaced by the link.
func (e *Engine) EnsureLegacyBaseLink(buildBaseDir string) error {
	if err := os.MkdirAll(buildBaseDir, 0o755); err != nil {
		return fmt.Errorf("fetch: creating %s: %w", buildBaseDir, err)
	}
	legacy := filepath.Join(filepath.Dir(buildBaseDir), legacyBaseDirName)
	if info, err := os.Lstat(legacy); err == nil {
		if info.Mode()&os.ModeSymlink != 0 {
			return nil
		}
		if err := os.RemoveAll(legacy); err != nil {
			return fmt.Errorf("fetch: removing stale %s: %w", legacy, err)
		}
	}
	if err := os.Symlink(buildBaseDir, legacy); err != nil {
		return fmt.Errorf("fetch: linking %s: %w", legacy, err)
	}
	return nil
}

// extractArchive unpacks a gzip-compressed tar archive into destDir.
// Every entry's path is validated to stay inside destDir; a traversal
// attempt fails the whole extraction. Symlink targets are held to the
// same containment rule.
func extractArchive(archivePath, destDir string) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("fetch: opening archive: %w", err)
	}
	defer file.Close()

	gzipReader, err := gzip.NewReader(file)
	if err != nil {
		return fmt.Errorf("fetch: %s: %w", archivePath, err)
	}
	defer gzipReader.Close()

	root, err := filepath.Abs(destDir)
	if err != nil {
		return err
	}

	tarReader := tar.NewReader(gzipReader)
	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("fetch: reading %s: %w", archivePath, err)
		}

		target, err := containedPath(root, header.Name)
		if err != nil {
			return fmt.Errorf("fetch: %s: %w", archivePath, err)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, header.FileInfo().Mode().Perm()); err != nil {
				return fmt.Errorf("fetch: extracting %s: %w", header.Name, err)
			}
		case tar.TypeReg:
			if err := extractFile(tarReader, target, header); err != nil {
				return err
			}
		case tar.TypeSymlink:
			linkTarget := header.Linkname
			if filepath.IsAbs(linkTarget) {
				return fmt.Errorf("fetch: %s: symlink %q has absolute target %q", archivePath, header.Name, linkTarget)
			}
			resolved := filepath.Join(filepath.Dir(target), linkTarget)
			if resolved != root && !strings.HasPrefix(resolved, root+string(os.PathSeparator)) {
				return fmt.Errorf("fetch: %s: symlink %q escapes extraction root", archivePath, header.Name)
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("fetch: extracting %s: %w", header.Name, err)
			}
			if err := os.Symlink(header.Linkname, target); err != nil {
				return fmt.Errorf("fetch: extracting %s: %w", header.Name, err)
			}
		default:
			// Hard links, devices and the like have no business in a
			// wheel cache.
			return fmt.Errorf("fetch: %s: unsupported entry type %d for %q", archivePath, header.Typeflag, header.Name)
		}
	}
}

// containedPath joins name onto root and rejects any result outside
// it.
func containedPath(root, name string) (string, error) {
	if filepath.IsAbs(name) {
		return "", fmt.Errorf("absolute path %q in archive", name)
	}
	target := filepath.Join(root, name)
	if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
		return "", fmt.Errorf("path %q escapes extraction root", name)
	}
	return target, nil
}

func extractFile(reader io.Reader, target string, header *tar.Header) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("fetch: extracting %s: %w", header.Name, err)
	}
	file, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, header.FileInfo().Mode().Perm())
	if err != nil {
		return fmt.Errorf("fetch: extracting %s: %w", header.Name, err)
	}
	_, err = io.Copy(file, reader)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("fetch: extracting %s: %w", header.Name, err)
	}
	if !header.ModTime.IsZero() {
		// pip compares wheel cache mtimes; preserve them.
		os.Chtimes(target, header.ModTime, header.ModTime)
	}
	return nil
}
