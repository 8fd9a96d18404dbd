// Copyright 2026 The Craftcache Authors
// SPDX-License-Identifier: Apache-2.0

// Package progress renders a single-line download progress bar on
// stderr. The bar tracks cumulative bytes against a total computed
// from the assets actually queued for download; a run where
// everything is already cached completes the bar immediately. On a
// non-terminal stderr the bar is disabled and progress is left to the
// structured log.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

const barWidth = 30

// Reporter accumulates byte counts and redraws the bar when the
// rendered percentage changes. Safe for use from the download loop's
// chunk callback.
type Reporter struct {
	mu       sync.Mutex
	output   *termenv.Output
	label    string
	total    int64
	done     int64
	lastPct  int
	enabled  bool
	finished bool
}

// New creates a Reporter for total expected bytes, writing to stderr.
// A zero total means nothing is queued; Finish renders the bar
// complete in that case.
func New(label string, total int64) *Reporter {
	return newReporter(label, total, os.Stderr, term.IsTerminal(int(os.Stderr.Fd())))
}

func newReporter(label string, total int64, w io.Writer, enabled bool) *Reporter {
	return &Reporter{
		output:  termenv.NewOutput(w),
		label:   label,
		total:   total,
		lastPct: -1,
		enabled: enabled,
	}
}

// Add records n more downloaded bytes and redraws if the percentage
// moved.
func (r *Reporter) Add(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished {
		return
	}
	r.done += int64(n)
	r.draw()
}

// Finish completes and terminates the bar line. With nothing queued
// the bar jumps straight to 100%.
func (r *Reporter) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished {
		return
	}
	r.done = r.total
	r.draw()
	r.finished = true
	if r.enabled {
		fmt.Fprintln(r.output)
	}
}

func (r *Reporter) draw() {
	if !r.enabled {
		return
	}
	pct := 100
	if r.total > 0 {
		pct = int(r.done * 100 / r.total)
		if pct > 100 {
			pct = 100
		}
	}
	if pct == r.lastPct {
		return
	}
	r.lastPct = pct

	filled := barWidth * pct / 100
	bar := strings.Repeat("━", filled) + strings.Repeat(" ", barWidth-filled)
	styledBar := r.output.String(bar).Foreground(r.output.Color("6")).String()

	r.output.ClearLine()
	fmt.Fprintf(r.output, "\r%s %s %3d%%", r.label, styledBar, pct)
}
