// Copyright 2026 The Craftcache Authors
// SPDX-License-Identifier: Apache-2.0

// Package charmcraft runs the charmcraft binary. The wrapped tool owns
// the actual build; this package gates on a minimum version, points
// charmcraft's shared cache at a craftcache-managed directory, and
// passes its exit code through.
package charmcraft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// minimumVersion is the oldest charmcraft release whose platforms
// syntax and shared-cache layout this tool understands.
const minimumVersion = "3.3.0"

// ErrNotInstalled reports that the charmcraft binary is not on PATH.
// Distinct from TooOldError so the user gets install guidance rather
// than upgrade guidance.
var ErrNotInstalled = errors.New("charmcraft: not installed (charmcraft >=" + minimumVersion + " required)")

// TooOldError reports an installed charmcraft below the minimum
// supported version.
type TooOldError struct {
	Installed string
}

func (err *TooOldError) Error() string {
	return fmt.Sprintf("charmcraft: version %s installed, >=%s required", err.Installed, minimumVersion)
}

// ExitError carries charmcraft's own non-zero exit code. charmcraft
// has already written its error to the terminal, so the wrapper exits
// with the same code without printing anything further.
type ExitError struct {
	Code int
}

func (err *ExitError) Error() string {
	return fmt.Sprintf("charmcraft exited with code %d", err.Code)
}

// ExitCode returns the exit code for the process to propagate.
func (err *ExitError) ExitCode() int {
	return err.Code
}

// Version returns the installed charmcraft version, or ErrNotInstalled.
func Version(ctx context.Context) (string, error) {
	output, err := exec.CommandContext(ctx, "charmcraft", "version", "--format", "json").Output()
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", ErrNotInstalled
		}
		return "", fmt.Errorf("charmcraft: querying version: %w", err)
	}
	var parsed struct {
		Version string `json:"version"`
	}
	if err := json.Unmarshal(output, &parsed); err != nil {
		return "", fmt.Errorf("charmcraft: decoding version output: %w", err)
	}
	return parsed.Version, nil
}

// CheckVersion fails unless an installed charmcraft meets the minimum
// version.
func CheckVersion(ctx context.Context) error {
	version, err := Version(ctx)
	if err != nil {
		return err
	}
	older, err := olderThan(version, minimumVersion)
	if err != nil {
		return err
	}
	if older {
		return &TooOldError{Installed: version}
	}
	return nil
}

// Options configure one charmcraft invocation.
type Options struct {
	// CacheDir, when set, is exported as CRAFT_SHARED_CACHE so
	// charmcraft's build provider reads the pre-populated cache. The
	// directory is created if needed.
	CacheDir string

	// Verbose appends -v so charmcraft's own debug output reaches the
	// terminal alongside ours.
	Verbose bool
}

// Run executes a charmcraft command with stdout and stderr attached
// to the terminal. A non-zero exit becomes an *ExitError carrying the
// same code, so the wrapper exits exactly as charmcraft did.
func Run(ctx context.Context, logger *slog.Logger, args []string, options Options) error {
	if err := CheckVersion(ctx); err != nil {
		return err
	}

	env := os.Environ()
	if options.CacheDir != "" {
		if err := os.MkdirAll(options.CacheDir, 0o755); err != nil {
			return fmt.Errorf("charmcraft: creating cache dir: %w", err)
		}
		env = append(env, "CRAFT_SHARED_CACHE="+options.CacheDir)
	}
	if options.Verbose {
		args = append(args, "-v")
	}

	logger.Debug("running charmcraft", "args", args, "cache_dir", options.CacheDir)
	command := exec.CommandContext(ctx, "charmcraft", args...)
	command.Env = env
	command.Stdout = os.Stdout
	command.Stderr = os.Stderr

	if err := command.Run(); err != nil {
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			return &ExitError{Code: exitError.ExitCode()}
		}
		return fmt.Errorf("charmcraft: %w", err)
	}
	return nil
}

// olderThan compares two dotted numeric versions. Pre-release and
// build suffixes after a "-" or "+" are ignored: the numeric core
// decides. Missing segments compare as zero.
func olderThan(version, reference string) (bool, error) {
	a, err := versionSegments(version)
	if err != nil {
		return false, fmt.Errorf("charmcraft: unparseable version %q: %w", version, err)
	}
	b, err := versionSegments(reference)
	if err != nil {
		return false, fmt.Errorf("charmcraft: unparseable version %q: %w", reference, err)
	}
	for i := 0; i < len(a) || i < len(b); i++ {
		var left, right int
		if i < len(a) {
			left = a[i]
		}
		if i < len(b) {
			right = b[i]
		}
		if left != right {
			return left < right, nil
		}
	}
	return false, nil
}

func versionSegments(version string) ([]int, error) {
	core := version
	if index := strings.IndexAny(core, "-+"); index >= 0 {
		core = core[:index]
	}
	parts := strings.Split(core, ".")
	segments := make([]int, 0, len(parts))
	for _, part := range parts {
		value, err := strconv.Atoi(part)
		if err != nil {
			return nil, err
		}
		segments = append(segments, value)
	}
	return segments, nil
}
