// Copyright 2026 The Craftcache Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source for testability.
//
// Production code accepts a Clock parameter instead of calling
// time.Now directly. In production, Real() provides the standard
// library behavior. In tests, Fake() provides a deterministic clock
// frozen at a chosen instant, which makes rate-limit retry arithmetic
// reproducible.
package clock

import "time"

// Clock abstracts the current time. Every production function that
// calls time.Now should accept a Clock parameter (or be a method on a
// struct with a Clock field) instead of calling the time package
// directly.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// realClock delegates to the time package.
type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Real returns a Clock backed by the standard library.
func Real() Clock { return realClock{} }

// FakeClock is a Clock frozen at a settable instant.
type FakeClock struct {
	now time.Time
}

// Fake returns a FakeClock frozen at the given instant.
func Fake(now time.Time) *FakeClock {
	return &FakeClock{now: now}
}

// Now returns the frozen instant.
func (c *FakeClock) Now() time.Time { return c.now }

// Advance moves the frozen instant forward by d.
func (c *FakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }
