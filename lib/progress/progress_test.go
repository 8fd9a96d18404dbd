// Copyright 2026 The Craftcache Authors
// SPDX-License-Identifier: Apache-2.0

package progress

import (
	"bytes"
	"strings"
	"testing"
)

func TestReporter_DrawsPercentages(t *testing.T) {
	var buffer bytes.Buffer
	reporter := newReporter("Downloading cache", 200, &buffer, true)

	reporter.Add(100)
	reporter.Add(100)
	reporter.Finish()

	output := buffer.String()
	if !strings.Contains(output, " 50%") {
		t.Errorf("output lacks 50%% frame: %q", output)
	}
	if !strings.Contains(output, "100%") {
		t.Errorf("output lacks 100%% frame: %q", output)
	}
	if !strings.Contains(output, "Downloading cache") {
		t.Errorf("output lacks label: %q", output)
	}
}

func TestReporter_ZeroTotalCompletesOnFinish(t *testing.T) {
	var buffer bytes.Buffer
	reporter := newReporter("Downloading cache", 0, &buffer, true)

	reporter.Finish()

	if !strings.Contains(buffer.String(), "100%") {
		t.Errorf("zero-total bar did not complete: %q", buffer.String())
	}
}

func TestReporter_DisabledWritesNothing(t *testing.T) {
	var buffer bytes.Buffer
	reporter := newReporter("Downloading cache", 100, &buffer, false)

	reporter.Add(50)
	reporter.Finish()

	if buffer.Len() != 0 {
		t.Errorf("disabled reporter wrote %q", buffer.String())
	}
}

func TestReporter_RedrawsOnlyOnChange(t *testing.T) {
	var buffer bytes.Buffer
	reporter := newReporter("Downloading cache", 1000000, &buffer, true)

	reporter.Add(1)
	size := buffer.Len()
	reporter.Add(1)
	if buffer.Len() != size {
		t.Error("redrew without a percentage change")
	}
}

func TestReporter_AddAfterFinishIgnored(t *testing.T) {
	var buffer bytes.Buffer
	reporter := newReporter("Downloading cache", 100, &buffer, true)

	reporter.Finish()
	size := buffer.Len()
	reporter.Add(50)
	if buffer.Len() != size {
		t.Error("Add after Finish redrew")
	}
}
