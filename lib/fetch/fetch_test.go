// Copyright 2026 The Craftcache Authors
// SPDX-License-Identifier: Apache-2.0

package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/craftcache/craftcache/lib/cachedir"
	"github.com/craftcache/craftcache/lib/catalog"
	"github.com/craftcache/craftcache/lib/charm"
	"github.com/craftcache/craftcache/lib/identity"
	"github.com/craftcache/craftcache/lib/plan"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mustParsePlatform(t *testing.T, s string) charm.Platform {
	t.Helper()
	platform, err := charm.ParsePlatform(s)
	if err != nil {
		t.Fatalf("ParsePlatform(%q): %v", s, err)
	}
	return platform
}

// fakeDownloader serves asset content from memory and counts
// downloads per asset name.
type fakeDownloader struct {
	content map[string][]byte
	calls   map[string]int
	failOn  string
}

func newFakeDownloader() *fakeDownloader {
	return &fakeDownloader{content: make(map[string][]byte), calls: make(map[string]int)}
}

func (d *fakeDownloader) Download(ctx context.Context, asset catalog.Asset, w io.Writer, onChunk func(n int)) error {
	d.calls[asset.Name]++
	content, ok := d.content[asset.Name]
	if !ok {
		return fmt.Errorf("no such asset %q", asset.Name)
	}
	if asset.Name == d.failOn {
		// Write half, then fail, simulating a dropped connection.
		w.Write(content[:len(content)/2])
		return fmt.Errorf("connection reset")
	}
	n, err := w.Write(content)
	if err != nil {
		return err
	}
	if onChunk != nil {
		onChunk(n)
	}
	return nil
}

func newTestEngine(t *testing.T) (*Engine, *cachedir.Dir, *fakeDownloader) {
	t.Helper()
	cache := cachedir.At(t.TempDir(), testLogger())
	if err := cache.Ensure(); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	downloader := newFakeDownloader()
	return NewEngine(cache, downloader, testLogger()), cache, downloader
}

func archiveMatch(t *testing.T, cache *cachedir.Dir, assetName string, size int64) plan.ArchiveMatch {
	t.Helper()
	platform := mustParsePlatform(t, "ubuntu@22.04:amd64")
	return plan.ArchiveMatch{
		Platform: platform,
		Asset:    catalog.Asset{Name: assetName, Size: size},
		TargetDir: filepath.Join(cache.CharmDir("acme_router", "."),
			platform.DirName(), "charmcraft-buildd-base-v7"),
	}
}

func TestDownloadArchives_PlacesArchiveAndDigest(t *testing.T) {
	engine, cache, downloader := newTestEngine(t)
	content := []byte("archive content")
	downloader.content["a.tar.gz"] = content

	match := archiveMatch(t, cache, "a.tar.gz", int64(len(content)))
	if err := engine.DownloadArchives(context.Background(), []plan.ArchiveMatch{match}); err != nil {
		t.Fatalf("DownloadArchives: %v", err)
	}

	placed, err := os.ReadFile(cache.ArchivePath("a.tar.gz"))
	if err != nil {
		t.Fatalf("reading placed archive: %v", err)
	}
	if string(placed) != string(content) {
		t.Error("placed archive content differs")
	}
	if _, err := os.Stat(cache.DigestPath("a.tar.gz")); err != nil {
		t.Errorf("digest sidecar not written: %v", err)
	}
	if _, err := os.Stat(cache.DownloadTempPath()); !os.IsNotExist(err) {
		t.Error("temporary download file left behind")
	}
}

func TestDownloadArchives_SkipsIntactArchives(t *testing.T) {
	engine, cache, downloader := newTestEngine(t)
	downloader.content["a.tar.gz"] = []byte("archive content")

	match := archiveMatch(t, cache, "a.tar.gz", 15)
	for range 2 {
		if err := engine.DownloadArchives(context.Background(), []plan.ArchiveMatch{match}); err != nil {
			t.Fatalf("DownloadArchives: %v", err)
		}
	}
	if downloader.calls["a.tar.gz"] != 1 {
		t.Errorf("downloads = %d, want 1", downloader.calls["a.tar.gz"])
	}
}

func TestDownloadArchives_RedownloadsCorruptArchive(t *testing.T) {
	engine, cache, downloader := newTestEngine(t)
	downloader.content["a.tar.gz"] = []byte("archive content")

	match := archiveMatch(t, cache, "a.tar.gz", 15)
	if err := engine.DownloadArchives(context.Background(), []plan.ArchiveMatch{match}); err != nil {
		t.Fatalf("DownloadArchives: %v", err)
	}

	// Flip the cached bytes without touching the sidecar.
	if err := os.WriteFile(cache.ArchivePath("a.tar.gz"), []byte("tampered"), 0o644); err != nil {
		t.Fatalf("tampering: %v", err)
	}

	if err := engine.DownloadArchives(context.Background(), []plan.ArchiveMatch{match}); err != nil {
		t.Fatalf("DownloadArchives after tamper: %v", err)
	}
	if downloader.calls["a.tar.gz"] != 2 {
		t.Errorf("downloads = %d, want 2", downloader.calls["a.tar.gz"])
	}
	placed, _ := os.ReadFile(cache.ArchivePath("a.tar.gz"))
	if string(placed) != "archive content" {
		t.Error("corrupt archive not replaced")
	}
}

func TestDownloadArchives_InterruptedDownloadLeavesNoFinalFile(t *testing.T) {
	engine, cache, downloader := newTestEngine(t)
	downloader.content["a.tar.gz"] = []byte("archive content")
	downloader.failOn = "a.tar.gz"

	match := archiveMatch(t, cache, "a.tar.gz", 15)
	if err := engine.DownloadArchives(context.Background(), []plan.ArchiveMatch{match}); err == nil {
		t.Fatal("expected download error")
	}
	if _, err := os.Stat(cache.ArchivePath("a.tar.gz")); !os.IsNotExist(err) {
		t.Error("partial archive placed at final path")
	}
	if _, err := os.Stat(cache.DownloadTempPath()); !os.IsNotExist(err) {
		t.Error("temporary file left behind")
	}
}

func TestDownloadWheels_PlacesAndSkips(t *testing.T) {
	engine, cache, downloader := newTestEngine(t)
	content := []byte("wheel content")
	assetName := "requests-2.31.0-py3-none-any.whl.ccchub1.focal.ccchub2.amd64.ccchub3.charm.charmcraftcachehub"
	downloader.content[assetName] = content

	match := plan.WheelMatch{
		Wheel: identity.Wheel{Name: "requests", Version: "2.31.0", Series: "focal", Architecture: "amd64"},
		Asset: catalog.Asset{Name: assetName, Size: int64(len(content))},
		TargetPath: filepath.Join(cache.CharmcraftDir(), "charmcraft-buildd-base-v7",
			"BuilddBaseAlias.FOCAL", "charm", "requests-2.31.0-py3-none-any.whl"),
	}

	for range 2 {
		if err := engine.DownloadWheels(context.Background(), []plan.WheelMatch{match}); err != nil {
			t.Fatalf("DownloadWheels: %v", err)
		}
	}

	placed, err := os.ReadFile(match.TargetPath)
	if err != nil {
		t.Fatalf("reading placed wheel: %v", err)
	}
	if string(placed) != string(content) {
		t.Error("placed wheel content differs")
	}
	if downloader.calls[assetName] != 1 {
		t.Errorf("downloads = %d, want 1", downloader.calls[assetName])
	}
}
