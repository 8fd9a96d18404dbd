// Copyright 2026 The Craftcache Authors
// SPDX-License-Identifier: Apache-2.0

package identity

import (
	"strings"
	"testing"

	"github.com/craftcache/craftcache/lib/charm"
)

func platformManifest() *charm.Manifest {
	return &charm.Manifest{
		Platforms: []charm.Platform{
			{Base: "ubuntu@22.04", Architecture: "amd64"},
			{Base: "ubuntu@24.04", Architecture: "amd64"},
			{Base: "ubuntu@22.04", Architecture: "arm64"},
		},
	}
}

func TestResolveWheels_CrossProductWithArchitectureFilter(t *testing.T) {
	manifest := &charm.Manifest{
		Bases: []charm.Base{
			{Channel: "20.04", Architecture: "amd64"},
			{Channel: "22.04", Architecture: "amd64"},
			{Channel: "22.04", Architecture: "arm64"},
		},
	}
	dependencies := []charm.Dependency{
		{Name: "requests", Version: "2.31.0"},
		{Name: "ops", Version: "2.5.0"},
	}

	wheels, err := ResolveWheels(dependencies, manifest, "amd64")
	if err != nil {
		t.Fatalf("ResolveWheels: %v", err)
	}

	if len(wheels) != 4 {
		t.Fatalf("got %d wheels, want 4: %v", len(wheels), wheels)
	}
	for _, wheel := range wheels {
		if wheel.Architecture != "amd64" {
			t.Errorf("foreign-architecture identity emitted: %v", wheel)
		}
	}
	want := Wheel{Name: "requests", Version: "2.31.0", Series: "focal", Architecture: "amd64"}
	if wheels[0] != want {
		t.Errorf("wheels[0] = %v, want %v", wheels[0], want)
	}
}

func TestResolveWheels_SkipsBinaryPackages(t *testing.T) {
	manifest := &charm.Manifest{
		Bases:          []charm.Base{{Channel: "22.04", Architecture: "amd64"}},
		BinaryPackages: []string{"Cryptography"},
	}
	dependencies := []charm.Dependency{
		{Name: "cryptography", Version: "41.0.0"},
		{Name: "requests", Version: "2.31.0"},
	}

	wheels, err := ResolveWheels(dependencies, manifest, "amd64")
	if err != nil {
		t.Fatalf("ResolveWheels: %v", err)
	}
	if len(wheels) != 1 || wheels[0].Name != "requests" {
		t.Errorf("wheels = %v, want only requests", wheels)
	}
}

func TestResolvePlatforms_DefaultsToLocalArchitecture(t *testing.T) {
	platforms, err := ResolvePlatforms(platformManifest(), nil, "amd64")
	if err != nil {
		t.Fatalf("ResolvePlatforms: %v", err)
	}
	if len(platforms) != 2 {
		t.Fatalf("got %d platforms, want 2: %v", len(platforms), platforms)
	}
	for _, platform := range platforms {
		if platform.Architecture != "amd64" {
			t.Errorf("foreign-architecture platform emitted: %v", platform)
		}
	}
}

func TestResolvePlatforms_DuplicateSelectionRejected(t *testing.T) {
	_, err := ResolvePlatforms(platformManifest(),
		[]string{"ubuntu@22.04:amd64", "ubuntu@22.04:amd64"}, "amd64")
	if err == nil || !strings.Contains(err.Error(), "passed more than once") {
		t.Fatalf("err = %v, want duplicate rejection", err)
	}
}

func TestResolvePlatforms_UnknownSelectionRejected(t *testing.T) {
	_, err := ResolvePlatforms(platformManifest(), []string{"ubuntu@20.04:amd64"}, "amd64")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("err = %v, want unknown-platform rejection", err)
	}
}

func TestResolvePlatforms_ForeignArchitectureRejected(t *testing.T) {
	_, err := ResolvePlatforms(platformManifest(), []string{"ubuntu@22.04:arm64"}, "amd64")
	if err == nil || !strings.Contains(err.Error(), "does not match") {
		t.Fatalf("err = %v, want architecture rejection", err)
	}
}

func TestResolvePlatforms_InvalidNotationRejected(t *testing.T) {
	_, err := ResolvePlatforms(platformManifest(), []string{"jammy"}, "amd64")
	if err == nil {
		t.Fatal("expected error for non-shorthand platform")
	}
}
