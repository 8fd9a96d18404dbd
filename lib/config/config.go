// Copyright 2026 The Craftcache Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for craftcache.
//
// Configuration is optional: every field has a working default, and
// most users never create a config file. When present, the file lives
// at ~/.config/craftcache/config.yaml (or the path in the
// CRAFTCACHE_CONFIG environment variable) and can point craftcache at
// a different hub repository, API endpoint, or asset-name encoding
// scheme. The encoding scheme is always chosen here — never inferred
// per asset — because the scheme delimiters are not self-describing.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Default values applied when no config file is present.
const (
	// DefaultHubRepository is the GitHub repository whose releases
	// publish the pre-built artifact catalog.
	DefaultHubRepository = "canonical/charmcraftcache-hub"

	// DefaultAPIBaseURL is the GitHub REST API endpoint.
	DefaultAPIBaseURL = "https://api.github.com"

	// DefaultScheme is the asset-name encoding scheme the hub
	// currently publishes with.
	DefaultScheme = "archives-v2"
)

// Config holds the craftcache runtime configuration.
type Config struct {
	// HubRepository is the "owner/name" of the hub repository on GitHub.
	HubRepository string `yaml:"hub-repository"`

	// APIBaseURL is the root URL for GitHub API requests. Must use HTTPS.
	APIBaseURL string `yaml:"api-base-url"`

	// Scheme selects the asset-name encoding scheme: "archives-v2"
	// (per-platform tar.gz archives) or "wheels-v1" (per-dependency
	// wheel files). A hub release is wholly produced by one scheme;
	// the two are never intermixed.
	Scheme string `yaml:"scheme"`
}

// Path returns the config file path: CRAFTCACHE_CONFIG if set,
// otherwise ~/.config/craftcache/config.yaml.
func Path() (string, error) {
	if env := os.Getenv("CRAFTCACHE_CONFIG"); env != "" {
		return env, nil
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config: resolving user config directory: %w", err)
	}
	return filepath.Join(configDir, "craftcache", "config.yaml"), nil
}

// Load reads the config file at path, applying defaults for absent
// fields. A missing file is not an error — it yields the default
// configuration. path may be empty to use Path().
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		path, err = Path()
		if err != nil {
			return nil, err
		}
	}

	config := &Config{
		HubRepository: DefaultHubRepository,
		APIBaseURL:    DefaultAPIBaseURL,
		Scheme:        DefaultScheme,
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return config, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return config, nil
}

func (c *Config) validate() error {
	if c.HubRepository == "" {
		return fmt.Errorf("hub-repository must not be empty")
	}
	switch c.Scheme {
	case "archives-v2", "wheels-v1":
	default:
		return fmt.Errorf("unknown scheme %q (expected \"archives-v2\" or \"wheels-v1\")", c.Scheme)
	}
	return nil
}
