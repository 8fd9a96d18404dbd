// Copyright 2026 The Craftcache Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// Download streams an asset's content into w. onChunk, if non-nil, is
// called with the size of each chunk as it arrives, for progress
// reporting. The caller owns placement: nothing here touches the
// cache layout.
func (client *Client) Download(ctx context.Context, asset Asset, w io.Writer, onChunk func(n int)) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, asset.BrowserDownloadURL, nil)
	if err != nil {
		return fmt.Errorf("catalog: creating download request: %w", err)
	}
	request.Header.Set("Accept", "application/octet-stream")
	if client.token != "" {
		request.Header.Set("Authorization", "Bearer "+client.token)
	}

	response, err := client.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("catalog: downloading %s: %w", asset.Name, err)
	}
	defer response.Body.Close()

	if response.StatusCode == http.StatusForbidden || response.StatusCode == http.StatusTooManyRequests {
		return client.rateLimitError(response.Header)
	}
	if response.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(response.Body, 4096))
		return parseAPIError(response.StatusCode, body)
	}

	reader := io.Reader(response.Body)
	if onChunk != nil {
		reader = &countingReader{reader: response.Body, onChunk: onChunk}
	}
	if _, err := io.Copy(w, reader); err != nil {
		return fmt.Errorf("catalog: downloading %s: %w", asset.Name, err)
	}
	return nil
}

// countingReader reports each read's size to a callback.
type countingReader struct {
	reader  io.Reader
	onChunk func(n int)
}

func (r *countingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	if n > 0 {
		r.onChunk(n)
	}
	return n, err
}
