package extract

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gjeldshjelp/debt-cli/internal/resilience"
)

func fastRetry() resilience.RetryConfig {
	return resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}
}

func TestHTTPDetailFetcher(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		assert.Equal(t, "/sak/123456", r.URL.Path)
		assert.Equal(t, "sesjon=abc", r.Header.Get("Cookie"))
		w.Write([]byte(detailHTML)) //nolint:errcheck
	}))
	defer srv.Close()

	f, err := NewHTTPDetailFetcher(HTTPDetailOptions{
		URLTemplate:       srv.URL + "/sak/{case}",
		Header:            http.Header{"Cookie": {"sesjon=abc"}},
		RequestsPerSecond: 1000,
		Retry:             fastRetry(),
	})
	require.NoError(t, err)

	body, err := f.FetchDetail(context.Background(), "123456")
	require.NoError(t, err)
	assert.Equal(t, detailHTML, body)
	assert.Equal(t, int32(2), calls.Load())
}

func TestHTTPDetailFetcher_NotFoundIsFinal(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f, err := NewHTTPDetailFetcher(HTTPDetailOptions{URLTemplate: srv.URL + "/{case}", RequestsPerSecond: 1000, Retry: fastRetry()})
	require.NoError(t, err)

	_, err = f.FetchDetail(context.Background(), "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http 404")
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPDetailFetcher_OversizedBody(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(strings.Repeat("x", 64))) //nolint:errcheck
	}))
	defer srv.Close()

	f, err := NewHTTPDetailFetcher(HTTPDetailOptions{
		URLTemplate:       srv.URL + "/{case}",
		RequestsPerSecond: 1000,
		MaxBytes:          32,
		Retry:             fastRetry(),
	})
	require.NoError(t, err)

	_, err = f.FetchDetail(context.Background(), "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds 32 bytes")
	assert.Equal(t, int32(1), calls.Load())
}

func TestNewHTTPDetailFetcher_NeedsPlaceholder(t *testing.T) {
	_, err := NewHTTPDetailFetcher(HTTPDetailOptions{URLTemplate: "https://example.no/sak"})
	assert.Error(t, err)
}

func TestOverviewExtractor_FetchesMissingDetails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(detailHTML)) //nolint:errcheck
	}))
	defer srv.Close()

	f, err := NewHTTPDetailFetcher(HTTPDetailOptions{URLTemplate: srv.URL + "/{case}", RequestsPerSecond: 1000, Retry: fastRetry()})
	require.NoError(t, err)

	ex, err := New(KindOverview, "Intrum", Options{Fetcher: f})
	require.NoError(t, err)
	res, err := ex.Extract(context.Background(), Snapshot{Content: []byte(overviewHTML)})
	require.NoError(t, err)
	require.NotEmpty(t, res.Candidates)
	assert.NotEmpty(t, res.Candidates[0].Details)
}
