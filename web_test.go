/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Seednode/hitline/catalog"
)

func newTestHandler(t *testing.T, cfg *Config) http.Handler {
	t.Helper()

	songs, err := catalog.Default()
	require.NoError(t, err)

	handler, gm := newRouter(cfg, songs, nil, make(chan error, 64))
	t.Cleanup(gm.Stop)

	return handler
}

func get(t *testing.T, handler http.Handler, path string, headers ...string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	return rec.Result()
}

func body(t *testing.T, resp *http.Response) string {
	t.Helper()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return string(data)
}

func TestStaticRoutes(t *testing.T) {
	handler := newTestHandler(t, testConfig())

	resp := get(t, handler, "/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Ok\n", body(t, resp))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))

	resp = get(t, handler, "/version")
	assert.Equal(t, "hitline v"+releaseVersion+"\n", body(t, resp))

	resp = get(t, handler, "/robots.txt")
	assert.Contains(t, body(t, resp), "User-agent: GPTBot")

	resp = get(t, handler, "/")
	assert.Contains(t, body(t, resp), `href="/hitline"`)

	resp = get(t, handler, "/assets/hitline/app.js")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/javascript; charset=utf-8", resp.Header.Get("Content-Type"))

	resp = get(t, handler, "/assets/hitline/missing.js")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = get(t, handler, "/favicons/favicon.svg")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/svg+xml", resp.Header.Get("Content-Type"))
}

func TestNewGameRedirect(t *testing.T) {
	cfg := testConfig()
	cfg.prefix = "/games"
	handler := newTestHandler(t, cfg)

	resp := get(t, handler, "/games/hitline")
	require.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)

	location := resp.Header.Get("Location")
	require.True(t, strings.HasPrefix(location, "/games/hitline/"), location)
	assert.True(t, validGameID(strings.TrimPrefix(location, "/games/hitline/")))
	assert.Len(t, strings.TrimPrefix(location, "/games/hitline/"), 8)
}

func TestGamePage(t *testing.T) {
	handler := newTestHandler(t, testConfig())

	resp := get(t, handler, "/hitline/abcd1234")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body(t, resp), "timeline-list")
	assert.Contains(t, resp.Header.Get("Content-Security-Policy"), "https://www.youtube.com")
	assert.Empty(t, resp.Header.Get("Cross-Origin-Embedder-Policy"))

	cookies := resp.Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, playerCookieName, cookies[0].Name)

	resp = get(t, handler, "/hitline/abcd1234", "Cookie", playerCookieName+"=known")
	assert.Empty(t, resp.Cookies())
}

func TestQRCode(t *testing.T) {
	handler := newTestHandler(t, testConfig())

	resp := get(t, handler, "/hitline/abcd1234/qr")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.True(t, strings.HasPrefix(body(t, resp), "\x89PNG"))
}

func TestScoresDisabled(t *testing.T) {
	handler := newTestHandler(t, testConfig())

	resp := get(t, handler, "/scores")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCORS(t *testing.T) {
	cfg := testConfig()
	cfg.corsOrigins = []string{"https://example.com"}
	handler := newTestHandler(t, cfg)

	resp := get(t, handler, "/healthz", "Origin", "https://example.com")
	assert.Equal(t, "https://example.com", resp.Header.Get("Access-Control-Allow-Origin"))

	resp = get(t, handler, "/healthz", "Origin", "https://elsewhere.example")
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestResponseSize(t *testing.T) {
	assert.Equal(t, "512 B", responseSize(512))
	assert.Equal(t, "1.5 kB", responseSize(1500))
	assert.Equal(t, "2.0 MB", responseSize(2_000_000))
}
