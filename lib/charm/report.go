// Copyright 2026 The Craftcache Authors
// SPDX-License-Identifier: Apache-2.0

package charm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
)

// RequirementsFileName is the resolved dependency list pip consumes.
const RequirementsFileName = "requirements.txt"

// Dependency is one install-time dependency from the pip
// dependency-resolution report, with its name already normalized.
type Dependency struct {
	// Name is the PEP 503 normalized distribution name.
	Name string

	// Version is the exact resolved version string.
	Version string
}

// normalizeRuns collapses runs of the characters PEP 503 treats as
// equivalent separators.
var normalizeRuns = regexp.MustCompile(`[-_.]+`)

// NormalizeName normalizes a Python distribution name per PEP 503:
// lowercase, with runs of "-", "_" and "." collapsed to a single "-".
func NormalizeName(name string) string {
	return strings.ToLower(normalizeRuns.ReplaceAllString(name, "-"))
}

// GenerateReport runs a pip dry-run install against dir's
// requirements.txt, writing the machine-readable resolution report to
// reportPath. pip's own resolver does the version work; craftcache
// only consumes the resolved list.
//
// pip's stdout is suppressed unless verbose; stderr always passes
// through so resolution failures stay diagnosable.
func GenerateReport(ctx context.Context, dir, reportPath string, verbose bool) error {
	requirements := filepath.Join(dir, RequirementsFileName)
	if _, err := os.Stat(requirements); errors.Is(err, fs.ErrNotExist) {
		if _, statErr := os.Stat(filepath.Join(dir, ManifestFileName)); statErr == nil {
			return fmt.Errorf("charm: %s not found. Are you using a pack wrapper (e.g. `tox run -e build-dev`)? If so, call craftcache via the wrapper", RequirementsFileName)
		}
		return fmt.Errorf("charm: %s not found. `cd` into the directory with %s", RequirementsFileName, ManifestFileName)
	}

	command := exec.CommandContext(ctx, "python3", "-m", "pip", "install",
		"--dry-run", "--ignore-installed",
		"-r", requirements,
		"--quiet",
		"--report", reportPath)
	if verbose {
		command.Stdout = os.Stdout
	} else {
		command.Stdout = io.Discard
	}
	command.Stderr = os.Stderr

	if err := command.Run(); err != nil {
		return fmt.Errorf("charm: resolving dependencies with pip: %w", err)
	}
	return nil
}

// LoadReport reads and parses a pip resolution report.
func LoadReport(path string) ([]Dependency, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("charm: reading dependency report %s: %w", path, err)
	}
	return ParseReport(data)
}

// ParseReport extracts the install-time dependencies from a pip
// resolution report (the --report JSON format).
func ParseReport(data []byte) ([]Dependency, error) {
	var report struct {
		Install []struct {
			Metadata struct {
				Name    string `json:"name"`
				Version string `json:"version"`
			} `json:"metadata"`
		} `json:"install"`
	}
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("charm: parsing dependency report: %w", err)
	}

	dependencies := make([]Dependency, 0, len(report.Install))
	for _, entry := range report.Install {
		if entry.Metadata.Name == "" {
			return nil, fmt.Errorf("charm: dependency report entry has no name")
		}
		dependencies = append(dependencies, Dependency{
			Name:    NormalizeName(entry.Metadata.Name),
			Version: entry.Metadata.Version,
		})
	}
	return dependencies, nil
}
