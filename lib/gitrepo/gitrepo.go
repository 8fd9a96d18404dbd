// Copyright 2026 The Craftcache Authors
// SPDX-License-Identifier: Apache-2.0

// Package gitrepo provides typed access to the git CLI for charm
// repository discovery. The charm's working tree tells us two things:
// where the charm sits relative to the repository root (archives are
// keyed by that path) and which GitHub repositories might have
// published pre-built artifacts for it (the remotes). All commands
// target a specific directory via the -C flag, which is automatically
// injected by all Repository methods.
package gitrepo

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Repository represents a git working tree at a specific directory.
// All operations target this directory via "git -C <dir>". There is
// no default directory — callers must always specify which repository
// they mean.
type Repository struct {
	dir string
}

// ErrNotARepository is reported by ShowPrefix when the directory is
// not inside a git working tree. Callers treat this as "no remotes to
// search", not as a failure.
var ErrNotARepository = fmt.Errorf("gitrepo: not a git repository")

// NewRepository returns a Repository targeting the given directory.
func NewRepository(dir string) *Repository {
	return &Repository{dir: dir}
}

// Dir returns the repository directory.
func (r *Repository) Dir() string {
	return r.dir
}

// Run executes a git command targeting this repository and returns
// stdout. Stderr is captured separately and included in error messages
// on failure.
func (r *Repository) Run(ctx context.Context, args ...string) (string, error) {
	fullArgs := append([]string{"-C", r.dir}, args...)
	var stdout, stderr bytes.Buffer
	command := exec.CommandContext(ctx, "git", fullArgs...)
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return "", fmt.Errorf("git %s in %s: %w (stderr: %s)",
			strings.Join(args, " "), r.dir, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// ShowPrefix returns the directory's path relative to the repository
// root, "." for the root itself. Returns ErrNotARepository when the
// directory is not inside a working tree.
func (r *Repository) ShowPrefix(ctx context.Context) (string, error) {
	output, err := r.Run(ctx, "rev-parse", "--show-prefix")
	if err != nil {
		if strings.Contains(err.Error(), "not a git repository") {
			return "", ErrNotARepository
		}
		return "", err
	}
	prefix := strings.Trim(strings.TrimSpace(output), "/")
	if prefix == "" {
		return ".", nil
	}
	return prefix, nil
}

// Remotes returns the configured remote names, in git's order.
func (r *Repository) Remotes(ctx context.Context) ([]string, error) {
	output, err := r.Run(ctx, "remote")
	if err != nil {
		return nil, err
	}
	var remotes []string
	for _, line := range strings.Split(output, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			remotes = append(remotes, line)
		}
	}
	return remotes, nil
}

// RemoteURL returns the fetch URL of a named remote.
func (r *Repository) RemoteURL(ctx context.Context, remote string) (string, error) {
	output, err := r.Run(ctx, "remote", "get-url", remote)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(output), nil
}

// UpstreamBranch returns the remote-tracking branch of the checked-out
// branch in "remote/branch" form, or "" when the branch has no
// upstream or HEAD is detached.
func (r *Repository) UpstreamBranch(ctx context.Context) (string, error) {
	head, err := r.Run(ctx, "symbolic-ref", "--quiet", "HEAD")
	if err != nil {
		// Detached HEAD.
		return "", nil
	}
	ref := strings.TrimSpace(head)
	if ref == "" {
		return "", nil
	}
	output, err := r.Run(ctx, "for-each-ref", "--format=%(upstream:short)", ref)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(output), nil
}

// GitHubRepository extracts the "owner/name" GitHub repository from a
// remote URL. Returns "" when the URL does not point at GitHub.
// Handles both SSH ("git@github.com:owner/name.git") and HTTPS
// ("https://github.com/owner/name") forms.
func GitHubRepository(url string) string {
	var path string
	switch {
	case strings.HasPrefix(url, "git@github.com:"):
		path = strings.TrimPrefix(url, "git@github.com:")
	case strings.HasPrefix(url, "https://github.com/"):
		path = strings.TrimPrefix(url, "https://github.com/")
	default:
		return ""
	}
	path = strings.TrimSuffix(strings.TrimSuffix(path, "/"), ".git")
	if strings.Count(path, "/") != 1 {
		return ""
	}
	return path
}
