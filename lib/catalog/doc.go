// Copyright 2026 The Craftcache Authors
// SPDX-License-Identifier: Apache-2.0

// Package catalog queries the hub repository's GitHub releases.
//
// The latest release is the catalog of every artifact the hub has
// published. The client fetches it conditionally: the ETag and the
// full response body from the previous fetch are persisted in the
// cache directory, the next request carries If-None-Match, and a 304
// reuses the persisted body byte for byte without consuming rate
// limit quota.
//
// Rate limiting is surfaced, never absorbed. A 403 or 429 becomes a
// *RateLimitError carrying the computed retry time; the caller aborts
// and tells the user when to try again. Unauthenticated clients get a
// GH_TOKEN hint, since authenticated quota is sixty times larger.
package catalog
