// Copyright 2026 The Craftcache Authors
// SPDX-License-Identifier: Apache-2.0

package charm

import "testing"

func TestParsePlatform(t *testing.T) {
	platform, err := ParsePlatform("ubuntu@22.04:amd64")
	if err != nil {
		t.Fatalf("ParsePlatform: %v", err)
	}
	if platform.Base != "ubuntu@22.04" || platform.Architecture != "amd64" {
		t.Errorf("platform = %+v", platform)
	}
	if got := platform.String(); got != "ubuntu@22.04:amd64" {
		t.Errorf("String() = %q", got)
	}
	if got := platform.ReleaseName(); got != "ubuntu@22.04_amd64" {
		t.Errorf("ReleaseName() = %q", got)
	}
}

func TestParsePlatform_Invalid(t *testing.T) {
	for _, input := range []string{"", "jammy", "ubuntu@22.04", "ubuntu:amd64", ":amd64", "ubuntu@22.04:"} {
		if _, err := ParsePlatform(input); err == nil {
			t.Errorf("ParsePlatform(%q): expected error", input)
		}
	}
}
