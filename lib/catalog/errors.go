// Copyright 2026 The Craftcache Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RateLimitError reports a GitHub rate-limited response. It is never
// retried internally: the computed retry time is handed to the user,
// who decides whether to wait or to set a token.
type RateLimitError struct {
	// RetryAt is when the rate limit window resets.
	RetryAt time.Time

	// Wait is RetryAt minus the response time, rounded to the nearest
	// second for display.
	Wait time.Duration

	// Authenticated records whether the rate-limited request carried
	// a token. Unauthenticated callers get a hint that a token would
	// raise the limit.
	Authenticated bool
}

func (err *RateLimitError) Error() string {
	message := fmt.Sprintf("catalog: GitHub API rate limit exceeded; try again in %s (at %s)",
		err.Wait, err.RetryAt.Format(time.Kitchen))
	if !err.Authenticated {
		message += ". Set the GH_TOKEN environment variable to a GitHub token to raise the limit from 60 to 5000 requests per hour"
	}
	return message
}

// rateLimitError computes the retry time from a rate-limited
// response's headers. The window reset timestamp is authoritative
// when the primary quota is exhausted; failing that, Retry-After is
// consulted (secondary limits advertise it); with neither usable, a
// flat minute is assumed.
func (client *Client) rateLimitError(header http.Header) *RateLimitError {
	now := client.clock.Now()
	var retryAt time.Time

	if header.Get("X-RateLimit-Remaining") == "0" {
		if resetUnix, err := strconv.ParseInt(header.Get("X-RateLimit-Reset"), 10, 64); err == nil {
			retryAt = time.Unix(resetUnix, 0)
		}
	}
	if retryAt.IsZero() {
		if seconds, err := strconv.Atoi(header.Get("Retry-After")); err == nil && seconds > 0 {
			retryAt = now.Add(time.Duration(seconds) * time.Second)
		}
	}
	if retryAt.IsZero() {
		retryAt = now.Add(time.Minute)
	}

	wait := retryAt.Sub(now).Round(time.Second)
	if wait < 0 {
		wait = 0
	}

	return &RateLimitError{
		RetryAt:       retryAt,
		Wait:          wait,
		Authenticated: client.token != "",
	}
}

// APIError represents a non-2xx, non-rate-limit response from the
// GitHub REST API.
type APIError struct {
	// StatusCode is the HTTP response status code.
	StatusCode int

	// Message is the top-level error description from GitHub.
	Message string
}

func (err *APIError) Error() string {
	return fmt.Sprintf("catalog: GitHub API HTTP %d: %s", err.StatusCode, err.Message)
}

// parseAPIError parses a GitHub API error from a status code and
// response body. GitHub returns structured JSON error bodies with a
// message field; anything else is reported verbatim.
func parseAPIError(statusCode int, body []byte) *APIError {
	apiError := &APIError{StatusCode: statusCode}

	var wireError struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &wireError) == nil && wireError.Message != "" {
		apiError.Message = wireError.Message
	} else {
		apiError.Message = strings.TrimSpace(string(body))
	}

	return apiError
}
