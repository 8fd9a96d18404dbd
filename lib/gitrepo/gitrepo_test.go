// Copyright 2026 The Craftcache Authors
// SPDX-License-Identifier: Apache-2.0

package gitrepo

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// initRepo creates a git repository with an initial commit in a temp
// directory and returns the path.
func initRepo(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	run := func(args ...string) {
		t.Helper()
		command := exec.Command("git", append([]string{"-C", dir}, args...)...)
		command.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=Test", "GIT_AUTHOR_EMAIL=test@test.local",
			"GIT_COMMITTER_NAME=Test", "GIT_COMMITTER_EMAIL=test@test.local",
		)
		if output, err := command.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, output)
		}
	}

	run("init", "--initial-branch=main")
	if err := os.WriteFile(filepath.Join(dir, "README"), []byte("test\n"), 0644); err != nil {
		t.Fatalf("write README: %v", err)
	}
	run("add", "README")
	run("commit", "-m", "initial")
	return dir
}

func TestShowPrefix(t *testing.T) {
	t.Parallel()

	dir := initRepo(t)
	subdir := filepath.Join(dir, "charms", "router")
	if err := os.MkdirAll(subdir, 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	prefix, err := NewRepository(dir).ShowPrefix(context.Background())
	if err != nil {
		t.Fatalf("ShowPrefix at root: %v", err)
	}
	if prefix != "." {
		t.Errorf("root prefix = %q, want %q", prefix, ".")
	}

	prefix, err = NewRepository(subdir).ShowPrefix(context.Background())
	if err != nil {
		t.Fatalf("ShowPrefix in subdir: %v", err)
	}
	if prefix != "charms/router" {
		t.Errorf("subdir prefix = %q, want %q", prefix, "charms/router")
	}
}

func TestShowPrefix_NotARepository(t *testing.T) {
	t.Parallel()

	_, err := NewRepository(t.TempDir()).ShowPrefix(context.Background())
	if !errors.Is(err, ErrNotARepository) {
		t.Errorf("err = %v, want ErrNotARepository", err)
	}
}

func TestRemotes(t *testing.T) {
	t.Parallel()

	dir := initRepo(t)
	repo := NewRepository(dir)
	ctx := context.Background()

	if _, err := repo.Run(ctx, "remote", "add", "origin", "git@github.com:acme/router-operator.git"); err != nil {
		t.Fatalf("remote add: %v", err)
	}
	if _, err := repo.Run(ctx, "remote", "add", "upstream", "https://github.com/canonical/router-operator"); err != nil {
		t.Fatalf("remote add: %v", err)
	}

	remotes, err := repo.Remotes(ctx)
	if err != nil {
		t.Fatalf("Remotes: %v", err)
	}
	if len(remotes) != 2 {
		t.Fatalf("Remotes = %v, want 2 entries", remotes)
	}

	url, err := repo.RemoteURL(ctx, "origin")
	if err != nil {
		t.Fatalf("RemoteURL: %v", err)
	}
	if url != "git@github.com:acme/router-operator.git" {
		t.Errorf("RemoteURL(origin) = %q", url)
	}
}

func TestUpstreamBranch_NoUpstream(t *testing.T) {
	t.Parallel()

	branch, err := NewRepository(initRepo(t)).UpstreamBranch(context.Background())
	if err != nil {
		t.Fatalf("UpstreamBranch: %v", err)
	}
	if branch != "" {
		t.Errorf("branch = %q, want empty without an upstream", branch)
	}
}

func TestGitHubRepository(t *testing.T) {
	t.Parallel()

	cases := []struct {
		url  string
		want string
	}{
		{"git@github.com:canonical/charmcraftcache-hub.git", "canonical/charmcraftcache-hub"},
		{"https://github.com/canonical/charmcraftcache-hub", "canonical/charmcraftcache-hub"},
		{"https://github.com/canonical/charmcraftcache-hub.git", "canonical/charmcraftcache-hub"},
		{"https://github.com/canonical/charmcraftcache-hub/", "canonical/charmcraftcache-hub"},
		{"https://gitlab.com/canonical/charmcraftcache-hub", ""},
		{"https://github.com/just-an-owner", ""},
		{"ssh://example.com/owner/repo.git", ""},
	}
	for _, c := range cases {
		if got := GitHubRepository(c.url); got != c.want {
			t.Errorf("GitHubRepository(%q) = %q, want %q", c.url, got, c.want)
		}
	}
}
