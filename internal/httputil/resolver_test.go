// Copyright Cometadata Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withTestResolver(t *testing.T, handler http.HandlerFunc) *http.Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	old := ResolverBase
	ResolverBase = ts.URL + "/"
	t.Cleanup(func() { ResolverBase = old })

	return NewResolverClient()
}

func TestCheckDOIResolvesRedirect(t *testing.T) {
	client := withTestResolver(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		w.Header().Set("Location", "https://publisher.example/landing")
		w.WriteHeader(http.StatusFound)
	})

	assert.True(t, CheckDOIResolves(context.Background(), client, "10.1234/x", "", time.Second))
}

func TestCheckDOIResolvesSuccessStatus(t *testing.T) {
	client := withTestResolver(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	assert.True(t, CheckDOIResolves(context.Background(), client, "10.1234/x", "", time.Second))
}

func TestCheckDOIResolvesNotFound(t *testing.T) {
	client := withTestResolver(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	assert.False(t, CheckDOIResolves(context.Background(), client, "10.1234/missing", "", time.Second))
}

func TestCheckDOIResolvesTimeout(t *testing.T) {
	client := withTestResolver(t, func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	})

	assert.False(t, CheckDOIResolves(context.Background(), client, "10.1234/slow", "", 10*time.Millisecond))
}

func TestCheckDOIResolvesEscapesDOI(t *testing.T) {
	var gotPath string
	client := withTestResolver(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.WriteHeader(http.StatusFound)
	})

	require.True(t, CheckDOIResolves(context.Background(), client, "10.1234/a<b>c", "", time.Second))
	assert.Equal(t, "/10.1234%2Fa%3Cb%3Ec", gotPath)
}

func TestCheckDOIResolvesSendsUserAgent(t *testing.T) {
	var gotUA string
	client := withTestResolver(t, func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusOK)
	})

	CheckDOIResolves(context.Background(), client, "10.1234/x", "crossref-citations/0.1", time.Second)
	assert.Equal(t, "crossref-citations/0.1", gotUA)
}

func TestUserAgent(t *testing.T) {
	assert.Equal(t, "crossref-citations/0.1", UserAgent("0.1", ""))
	assert.Equal(t, "crossref-citations/0.1 (mailto:ops@example.org)", UserAgent("0.1", "ops@example.org"))
}

func TestNewResolverClientDoesNotFollowRedirects(t *testing.T) {
	var calls int
	client := withTestResolver(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Location", ResolverBase)
		w.WriteHeader(http.StatusMovedPermanently)
	})

	resp, err := client.Head(ResolverBase + "10.1/x")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMovedPermanently, resp.StatusCode)
	assert.Equal(t, 1, calls)
}
