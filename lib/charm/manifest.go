// Copyright 2026 The Craftcache Authors
// SPDX-License-Identifier: Apache-2.0

package charm

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ManifestFileName is the charm build manifest read from the working
// directory.
const ManifestFileName = "charmcraft.yaml"

// seriesByChannel maps Ubuntu base channels to series code names, the
// form the wheels-v1 asset encoding carries.
var seriesByChannel = map[string]string{
	"20.04": "focal",
	"22.04": "jammy",
	"24.04": "noble",
}

// Manifest is the subset of charmcraft.yaml craftcache needs.
type Manifest struct {
	// Dir is the directory the manifest was loaded from.
	Dir string

	// Platforms are the declared ST124 platforms, in declaration
	// order. Empty when the manifest uses the legacy bases syntax.
	Platforms []Platform

	// Bases are the legacy declared bases. Empty when the manifest
	// uses the platforms syntax.
	Bases []Base

	// BinaryPackages lists dependencies declared under
	// parts.charm.charm-binary-python-packages. These are bundled as
	// native binary packages by charmcraft itself and are excluded
	// from wheel download.
	BinaryPackages []string

	// SourceURLs are the repository links declared under
	// links.source.
	SourceURLs []string
}

// Base is one entry of the legacy bases list, already flattened
// through build-on.
type Base struct {
	// Channel is the Ubuntu channel, e.g. "22.04".
	Channel string

	// Architecture is the single build architecture of this base.
	Architecture string
}

// stringList accepts either a YAML scalar or a sequence of scalars.
// charmcraft.yaml and metadata.yaml both allow "source" to be a single
// URL or a list.
type stringList []string

func (l *stringList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var single string
		if err := node.Decode(&single); err != nil {
			return err
		}
		*l = stringList{single}
		return nil
	}
	var many []string
	if err := node.Decode(&many); err != nil {
		return err
	}
	*l = stringList(many)
	return nil
}

type manifestYAML struct {
	Platforms yaml.Node  `yaml:"platforms"`
	Bases     []baseYAML `yaml:"bases"`
	Parts     struct {
		Charm struct {
			BinaryPackages []string `yaml:"charm-binary-python-packages"`
		} `yaml:"charm"`
	} `yaml:"parts"`
	Links struct {
		Source stringList `yaml:"source"`
	} `yaml:"links"`
}

type baseYAML struct {
	Channel       string     `yaml:"channel"`
	Architectures []string   `yaml:"architectures"`
	BuildOn       []baseYAML `yaml:"build-on"`
}

// LoadManifest reads and parses charmcraft.yaml from dir. A missing
// manifest is reported with guidance to cd into the charm directory.
func LoadManifest(dir string) (*Manifest, error) {
	path := filepath.Join(dir, ManifestFileName)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("charm: %s not found. `cd` into the directory with %s", ManifestFileName, ManifestFileName)
	}
	if err != nil {
		return nil, fmt.Errorf("charm: reading %s: %w", path, err)
	}

	var raw manifestYAML
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("charm: parsing %s: %w", path, err)
	}

	manifest := &Manifest{
		Dir:            dir,
		BinaryPackages: raw.Parts.Charm.BinaryPackages,
		SourceURLs:     raw.Links.Source,
	}

	if raw.Platforms.Kind != 0 {
		platforms, err := parsePlatformsNode(&raw.Platforms)
		if err != nil {
			return nil, fmt.Errorf("charm: %s: %w", path, err)
		}
		manifest.Platforms = platforms
	}

	for _, base := range raw.Bases {
		flattened, err := flattenBase(base)
		if err != nil {
			return nil, fmt.Errorf("charm: %s: %w", path, err)
		}
		manifest.Bases = append(manifest.Bases, flattened)
	}

	return manifest, nil
}

// parsePlatformsNode decodes the "platforms" mapping, preserving
// declaration order. Only shorthand notation is supported: the map
// value must be null, and the key itself must parse as an ST124
// platform.
func parsePlatformsNode(node *yaml.Node) ([]Platform, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("'platforms' must be a mapping")
	}
	var platforms []Platform
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i]
		value := node.Content[i+1]
		if value.Tag != "!!null" {
			return nil, fmt.Errorf("platform %q: shorthand notation required ('build-on' and 'build-for' not supported)", key.Value)
		}
		platform, err := ParsePlatform(key.Value)
		if err != nil {
			return nil, err
		}
		platforms = append(platforms, platform)
	}
	return platforms, nil
}

// flattenBase resolves the legacy bases formats into a single
// (channel, architecture) pair. A base with a build-on list must
// contain exactly one entry, and each base must declare exactly one
// architecture (defaulting to amd64); multiple architectures per base
// would make the series-to-architecture identity ambiguous.
func flattenBase(base baseYAML) (Base, error) {
	if len(base.BuildOn) > 0 {
		if len(base.BuildOn) != 1 {
			return Base{}, fmt.Errorf("base with %d 'build-on' entries not supported (use one base per architecture)", len(base.BuildOn))
		}
		base = base.BuildOn[0]
	}
	architectures := base.Architectures
	if len(architectures) == 0 {
		architectures = []string{"amd64"}
	}
	if len(architectures) != 1 {
		return Base{}, fmt.Errorf("multiple architectures %v in one base not supported (use one base per architecture)", architectures)
	}
	if base.Channel == "" {
		return Base{}, fmt.Errorf("base has no channel")
	}
	return Base{Channel: base.Channel, Architecture: architectures[0]}, nil
}

// SeriesForChannel maps an Ubuntu channel (e.g. "22.04") to its series
// code name (e.g. "jammy").
func SeriesForChannel(channel string) (string, error) {
	series, ok := seriesByChannel[channel]
	if !ok {
		return "", fmt.Errorf("charm: unsupported base channel %q", channel)
	}
	return series, nil
}

// MetadataSources returns the source URLs declared in metadata.yaml,
// or nil when the file is absent or declares none.
func MetadataSources(dir string) ([]string, error) {
	data, err := os.ReadFile(filepath.Join(dir, "metadata.yaml"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("charm: reading metadata.yaml: %w", err)
	}

	var raw struct {
		Source stringList `yaml:"source"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("charm: parsing metadata.yaml: %w", err)
	}
	return raw.Source, nil
}
