// Copyright 2026 The Craftcache Authors
// SPDX-License-Identifier: Apache-2.0

package plan

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/craftcache/craftcache/lib/cachedir"
	"github.com/craftcache/craftcache/lib/catalog"
	"github.com/craftcache/craftcache/lib/charm"
	"github.com/craftcache/craftcache/lib/gitrepo"
	"github.com/craftcache/craftcache/lib/identity"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testCache(t *testing.T) *cachedir.Dir {
	t.Helper()
	return cachedir.At(t.TempDir(), testLogger())
}

func mustParsePlatform(t *testing.T, s string) charm.Platform {
	t.Helper()
	platform, err := charm.ParsePlatform(s)
	if err != nil {
		t.Fatalf("ParsePlatform(%q): %v", s, err)
	}
	return platform
}

func TestBuildArchivePlan_FirstCandidateWithAnyMatchWins(t *testing.T) {
	jammy := mustParsePlatform(t, "ubuntu@22.04:amd64")
	noble := mustParsePlatform(t, "ubuntu@24.04:amd64")

	release := &catalog.Release{
		Name: "build-1702562019-v1",
		Assets: []catalog.Asset{
			// The fork has only jammy; upstream has both.
			{Name: "acme_router-operator_ccchub1_._ccchub2_ubuntu@22.04_amd64.tar.gz", Size: 10},
			{Name: "canonical_router-operator_ccchub1_._ccchub2_ubuntu@22.04_amd64.tar.gz", Size: 10},
			{Name: "canonical_router-operator_ccchub1_._ccchub2_ubuntu@24.04_amd64.tar.gz", Size: 10},
		},
	}

	plan, err := BuildArchivePlan(release,
		[]string{"acme/router-operator", "canonical/router-operator"},
		".", []charm.Platform{jammy, noble}, testCache(t), testLogger())
	if err != nil {
		t.Fatalf("BuildArchivePlan: %v", err)
	}

	// The fork matched first, so it wins exclusively: noble stays
	// unmatched even though upstream could have served it.
	if plan.Repository != "acme/router-operator" {
		t.Errorf("Repository = %q", plan.Repository)
	}
	if len(plan.Matches) != 1 || plan.Matches[0].Platform != jammy {
		t.Errorf("Matches = %+v", plan.Matches)
	}
	if len(plan.Unmatched) != 1 || plan.Unmatched[0] != noble {
		t.Errorf("Unmatched = %+v", plan.Unmatched)
	}
}

func TestBuildArchivePlan_SkipsEmptyCandidates(t *testing.T) {
	jammy := mustParsePlatform(t, "ubuntu@22.04:amd64")

	release := &catalog.Release{
		Name: "build-1702562019-v1",
		Assets: []catalog.Asset{
			{Name: "canonical_router-operator_ccchub1_charms_router_ccchub2_ubuntu@22.04_amd64.tar.gz", Size: 10},
		},
	}

	plan, err := BuildArchivePlan(release,
		[]string{"acme/router-operator", "canonical/router-operator"},
		"charms/router", []charm.Platform{jammy}, testCache(t), testLogger())
	if err != nil {
		t.Fatalf("BuildArchivePlan: %v", err)
	}
	if plan.Repository != "canonical/router-operator" {
		t.Errorf("Repository = %q", plan.Repository)
	}
	if len(plan.Matches) != 1 {
		t.Fatalf("Matches = %+v", plan.Matches)
	}
	target := plan.Matches[0].TargetDir
	if !strings.Contains(target, "canonical_router-operator:charms_router") {
		t.Errorf("TargetDir = %q, want flattened charm key", target)
	}
	if filepath.Base(target) != "charmcraft-buildd-base-v7" {
		t.Errorf("TargetDir = %q, want build base leaf", target)
	}
}

func TestBuildArchivePlan_TotalMissIsError(t *testing.T) {
	jammy := mustParsePlatform(t, "ubuntu@22.04:amd64")
	release := &catalog.Release{Name: "build-1-v1"}

	_, err := BuildArchivePlan(release, []string{"acme/router-operator"},
		".", []charm.Platform{jammy}, testCache(t), testLogger())
	if !errors.Is(err, ErrNoMatches) {
		t.Errorf("err = %v, want ErrNoMatches", err)
	}
}

func TestBuildWheelPlan_PartialMissDegrades(t *testing.T) {
	release := &catalog.Release{
		Name: "build-1702562019-v1",
		Assets: []catalog.Asset{
			{Name: "requests-2.31.0-py3-none-any.whl.ccchub1.focal.ccchub2.amd64.ccchub3.charm.charmcraftcachehub", Size: 10},
			{Name: "not-a-wheel-asset.tar.gz", Size: 10},
		},
	}

	wheels := []identity.Wheel{
		{Name: "requests", Version: "2.31.0", Series: "focal", Architecture: "amd64"},
		{Name: "requests", Version: "2.31.0", Series: "jammy", Architecture: "amd64"},
	}

	plan, err := BuildWheelPlan(release, wheels, testCache(t), testLogger())
	if err != nil {
		t.Fatalf("BuildWheelPlan: %v", err)
	}
	if len(plan.Matches) != 1 {
		t.Fatalf("Matches = %+v", plan.Matches)
	}
	if plan.Matches[0].Wheel.Series != "focal" {
		t.Errorf("matched series = %q", plan.Matches[0].Wheel.Series)
	}
	if len(plan.Unmatched) != 1 || plan.Unmatched[0].Series != "jammy" {
		t.Errorf("Unmatched = %+v", plan.Unmatched)
	}

	target := plan.Matches[0].TargetPath
	if !strings.Contains(target, "BuilddBaseAlias.FOCAL") {
		t.Errorf("TargetPath = %q, want series alias segment", target)
	}
	if filepath.Base(target) != "requests-2.31.0-py3-none-any.whl" {
		t.Errorf("TargetPath = %q, want wheel file leaf", target)
	}
}

func TestBuildWheelPlan_TotalMissIsError(t *testing.T) {
	release := &catalog.Release{Name: "build-1-v1"}
	wheels := []identity.Wheel{
		{Name: "requests", Version: "2.31.0", Series: "focal", Architecture: "amd64"},
	}

	_, err := BuildWheelPlan(release, wheels, testCache(t), testLogger())
	if !errors.Is(err, ErrNoMatches) {
		t.Errorf("err = %v, want ErrNoMatches", err)
	}
}

func TestBuildWheelPlan_NoIdentitiesIsEmptyPlan(t *testing.T) {
	release := &catalog.Release{Name: "build-1-v1"}

	plan, err := BuildWheelPlan(release, nil, testCache(t), testLogger())
	if err != nil {
		t.Fatalf("BuildWheelPlan: %v", err)
	}
	if len(plan.Matches) != 0 || len(plan.Unmatched) != 0 {
		t.Errorf("plan = %+v, want empty", plan)
	}
}

// initRepoWithRemotes creates a git repository with the given remotes
// in insertion order.
func initRepoWithRemotes(t *testing.T, remotes map[string]string, order []string) *gitrepo.Repository {
	t.Helper()

	dir := t.TempDir()
	run := func(args ...string) {
		t.Helper()
		command := exec.Command("git", append([]string{"-C", dir}, args...)...)
		command.Env = os.Environ()
		if output, err := command.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, output)
		}
	}
	run("init", "--initial-branch=main")
	for _, name := range order {
		run("remote", "add", name, remotes[name])
	}
	return gitrepo.NewRepository(dir)
}

func TestCandidateRepositories_Priority(t *testing.T) {
	repo := initRepoWithRemotes(t, map[string]string{
		"fork":   "git@github.com:acme/router-operator.git",
		"origin": "https://github.com/me/router-operator",
	}, []string{"fork", "origin"})

	candidates, err := CandidateRepositories(context.Background(), repo,
		[]string{"https://github.com/canonical/router-operator"}, testLogger())
	if err != nil {
		t.Fatalf("CandidateRepositories: %v", err)
	}

	want := []string{"me/router-operator", "canonical/router-operator", "acme/router-operator"}
	if len(candidates) != len(want) {
		t.Fatalf("candidates = %v, want %v", candidates, want)
	}
	for i := range want {
		if candidates[i] != want[i] {
			t.Errorf("candidates[%d] = %q, want %q", i, candidates[i], want[i])
		}
	}
}

func TestCandidateRepositories_Deduplicates(t *testing.T) {
	repo := initRepoWithRemotes(t, map[string]string{
		"origin": "https://github.com/canonical/router-operator",
	}, []string{"origin"})

	candidates, err := CandidateRepositories(context.Background(), repo,
		[]string{"https://github.com/canonical/router-operator.git", "https://example.com/elsewhere"},
		testLogger())
	if err != nil {
		t.Fatalf("CandidateRepositories: %v", err)
	}
	if len(candidates) != 1 || candidates[0] != "canonical/router-operator" {
		t.Errorf("candidates = %v", candidates)
	}
}
