// Package sources holds the external data-provider clients and their
// normalizers. Each fetcher returns raw items and may fail on transport or
// auth errors; each normalizer is pure, never fails and renders a bounded
// "no items found" report for an empty list.
package sources

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// maxItems caps the entries carried into a normalized report.
	maxItems = 10
	// previewLen truncates free-text descriptions in reports.
	previewLen = 200

	requestTimeout = 15 * time.Second
)

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: requestTimeout}
}

// preview returns at most previewLen characters of s, marking truncation.
func preview(s string) string {
	runes := []rune(s)
	if len(runes) <= previewLen {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(string(runes[:previewLen])) + "…"
}

// checkStatus drains and reports a non-2xx response as an error carrying
// a short body snippet.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}
