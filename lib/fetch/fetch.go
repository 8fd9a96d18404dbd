// Copyright 2026 The Craftcache Authors
// SPDX-License-Identifier: Apache-2.0

// Package fetch downloads planned assets into the cache and unpacks
// them where charmcraft's own cache lookup finds them.
//
// Downloads are atomic: every asset streams to a single shared
// temporary path and is renamed into place only when complete, so an
// interrupted run leaves either a whole file or no file. Raw archives
// carry a BLAKE3 digest sidecar written at download time; a cached
// archive whose digest no longer matches is re-downloaded rather than
// trusted.
package fetch

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/zeebo/blake3"

	"github.com/craftcache/craftcache/lib/cachedir"
	"github.com/craftcache/craftcache/lib/catalog"
	"github.com/craftcache/craftcache/lib/plan"
	"github.com/craftcache/craftcache/lib/progress"
)

// Downloader streams one asset's content. *catalog.Client implements
// it; tests substitute a local fake.
type Downloader interface {
	Download(ctx context.Context, asset catalog.Asset, w io.Writer, onChunk func(n int)) error
}

// Engine executes a download plan against the cache directory.
type Engine struct {
	cache      *cachedir.Dir
	downloader Downloader
	logger     *slog.Logger
}

// NewEngine creates an Engine.
func NewEngine(cache *cachedir.Dir, downloader Downloader, logger *slog.Logger) *Engine {
	return &Engine{cache: cache, downloader: downloader, logger: logger}
}

// DownloadArchives fetches every planned archive not already present
// and intact in the raw archive store. Progress is reported against
// the byte total of the assets actually queued.
func (e *Engine) DownloadArchives(ctx context.Context, matches []plan.ArchiveMatch) error {
	var queued []plan.ArchiveMatch
	for _, match := range matches {
		if e.archiveIntact(match.Asset.Name) {
			e.logger.Debug("archive already downloaded", "platform", match.Platform.String())
			continue
		}
		queued = append(queued, match)
	}

	var total int64
	for _, match := range queued {
		total += match.Asset.Size
	}
	reporter := progress.New("Downloading cache", total)
	defer reporter.Finish()

	for _, match := range queued {
		if err := e.downloadArchive(ctx, match.Asset, reporter); err != nil {
			return err
		}
		e.logger.Debug("downloaded archive", "platform", match.Platform.String())
	}
	return nil
}

// archiveIntact reports whether the raw archive exists and matches
// its digest sidecar. A missing or stale sidecar counts as corrupt.
func (e *Engine) archiveIntact(assetName string) bool {
	recorded, err := os.ReadFile(e.cache.DigestPath(assetName))
	if err != nil {
		return false
	}
	actual, err := fileDigest(e.cache.ArchivePath(assetName))
	if err != nil {
		return false
	}
	if actual != string(recorded) {
		e.logger.Warn("cached archive fails digest check, re-downloading", "asset", assetName)
		return false
	}
	return true
}

func (e *Engine) downloadArchive(ctx context.Context, asset catalog.Asset, reporter *progress.Reporter) error {
	digest, err := e.downloadTo(ctx, asset, e.cache.ArchivePath(asset.Name), reporter)
	if err != nil {
		return err
	}
	if err := os.WriteFile(e.cache.DigestPath(asset.Name), []byte(digest), 0o644); err != nil {
		return fmt.Errorf("fetch: writing digest: %w", err)
	}
	return nil
}

// downloadTo streams an asset to the shared temporary path, then
// renames it to finalPath. Returns the hex BLAKE3 digest of the
// content.
func (e *Engine) downloadTo(ctx context.Context, asset catalog.Asset, finalPath string, reporter *progress.Reporter) (string, error) {
	temporary := e.cache.DownloadTempPath()
	file, err := os.Create(temporary)
	if err != nil {
		return "", fmt.Errorf("fetch: creating temporary file: %w", err)
	}

	hasher := blake3.New()
	err = e.downloader.Download(ctx, asset, io.MultiWriter(file, hasher), reporter.Add)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(temporary)
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(finalPath), 0o755); err != nil {
		return "", fmt.Errorf("fetch: creating %s: %w", filepath.Dir(finalPath), err)
	}
	if err := os.Rename(temporary, finalPath); err != nil {
		return "", fmt.Errorf("fetch: placing %s: %w", finalPath, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// DownloadWheels fetches every planned wheel whose placement path is
// not already populated. Wheels go straight to their final path under
// the build base tree; there is no raw store for them.
func (e *Engine) DownloadWheels(ctx context.Context, matches []plan.WheelMatch) error {
	var queued []plan.WheelMatch
	for _, match := range matches {
		if _, err := os.Stat(match.TargetPath); err == nil {
			e.logger.Debug("wheel already placed",
				"name", match.Wheel.Name, "series", match.Wheel.Series)
			continue
		}
		queued = append(queued, match)
	}

	var total int64
	for _, match := range queued {
		total += match.Asset.Size
	}
	reporter := progress.New("Downloading wheels", total)
	defer reporter.Finish()

	for _, match := range queued {
		if _, err := e.downloadTo(ctx, match.Asset, match.TargetPath, reporter); err != nil {
			return err
		}
		e.logger.Debug("downloaded wheel",
			"name", match.Wheel.Name, "series", match.Wheel.Series)
	}
	return nil
}

func fileDigest(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()
	hasher := blake3.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
