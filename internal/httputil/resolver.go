// Copyright Cometadata Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared across stages.
package httputil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// ResolverBase is the DOI resolver endpoint. Declared as a var so tests can
// substitute an httptest server.
var ResolverBase = "https://doi.org/"

// NewResolverClient returns a client configured for DOI resolution checks:
// redirects are not followed, because a redirect from the resolver already
// proves the DOI is registered.
func NewResolverClient() *http.Client {
	return &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// CheckDOIResolves issues a HEAD request for the DOI against the resolver
// and reports whether it resolved: any 2xx or 3xx status counts. Transport
// errors and timeouts report false; they are the caller's signal that the
// record is unresolved, not a pipeline failure.
func CheckDOIResolves(ctx context.Context, client *http.Client, doi, userAgent string, timeout time.Duration) bool {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, ResolverBase+url.PathEscape(doi), nil)
	if err != nil {
		return false
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode >= 200 && resp.StatusCode < 400
}

// UserAgent builds the User-Agent header for resolver traffic, appending a
// polite-pool contact when one is configured.
func UserAgent(version, contact string) string {
	ua := fmt.Sprintf("crossref-citations/%s", version)
	if contact != "" {
		ua += fmt.Sprintf(" (mailto:%s)", contact)
	}
	return ua
}
