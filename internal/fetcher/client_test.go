package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OPEN-NEXT/LOSH-krawler/internal/config"
	"github.com/OPEN-NEXT/LOSH-krawler/internal/logging"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.Config{
		OSHWAAPIBaseURL: srv.URL + "/api",
		OSHWAAPIToken:   "secret",
		OSHWATimeoutMs:  2000,
	}
	c := NewClient(cfg, logging.Discard())
	c.retryBase = time.Millisecond
	return c
}

func TestFetchPageWithRetry(t *testing.T) {
	var attempts int32
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/projects", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "10", r.URL.Query().Get("offset"))
		assert.Equal(t, "2", r.URL.Query().Get("limit"))
		if atomic.AddInt32(&attempts, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"boom"}`))
			return
		}
		_, _ = w.Write([]byte(`{"total":12,"items":[{"oshwaUid":"US000011"},{"oshwaUid":"US000012"}]}`))
	})

	page, err := c.FetchPage(context.Background(), 10, 2)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
	assert.Equal(t, 12, page.Total)
	require.Len(t, page.Items, 2)
	assert.JSONEq(t, `{"oshwaUid":"US000012"}`, string(page.Items[1]))
}

func TestFetchProject(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/projects/US000042":
			_, _ = w.Write([]byte(`[{"oshwaUid":"US000042","projectName":"Wind Station"}]`))
		case "/api/projects/US000043":
			_, _ = w.Write([]byte(`[]`))
		default:
			http.NotFound(w, r)
		}
	})

	raw, err := c.FetchProject(context.Background(), "US000042")
	require.NoError(t, err)
	assert.JSONEq(t, `{"oshwaUid":"US000042","projectName":"Wind Station"}`, string(raw))

	_, err = c.FetchProject(context.Background(), "US000043")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = c.FetchProject(context.Background(), "US999999")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestFetchClientErrorIsNotRetried(t *testing.T) {
	var attempts int32
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusBadRequest)
	})

	_, err := c.FetchPage(context.Background(), 0, 10)
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestFetchRequiresToken(t *testing.T) {
	c := NewClient(config.Config{OSHWAAPIBaseURL: "http://127.0.0.1:1"}, logging.Discard())
	_, err := c.FetchPage(context.Background(), 0, 10)
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestParseProjectID(t *testing.T) {
	tests := map[string]string{
		"US000042":  "US000042",
		" us000042": "US000042",
		"https://certification.oshwa.org/de000123.html": "DE000123",
	}
	for in, want := range tests {
		got, err := ParseProjectID(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseProjectID("https://certification.oshwa.org/list.html")
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestQuotaLimiterWaitsForReset(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	var slept time.Duration

	q := NewQuotaLimiter(1, logging.Discard())
	q.now = func() time.Time { return now }
	q.sleep = func(d time.Duration) { slept += d }

	q.WaitTurn()
	assert.Zero(t, slept)

	h := http.Header{}
	h.Set("X-RateLimit-Remaining", "0")
	h.Set("X-RateLimit-Reset", "1704110430")
	q.UpdateFromHeaders(h)
	q.WaitTurn()
	assert.Equal(t, 30*time.Second, slept)

	q.UpdateFromHeaders(http.Header{})
	q.WaitTurn()
	assert.Equal(t, 60*time.Second, slept)
}

func TestIntervalLimiter(t *testing.T) {
	var slept time.Duration
	l := NewIntervalLimiter(time.Hour)
	l.sleep = func(d time.Duration) { slept += d }

	l.WaitTurn()
	assert.Zero(t, slept)
	l.WaitTurn()
	assert.InDelta(t, time.Hour.Seconds(), slept.Seconds(), 1)

	slept = 0
	free := NewIntervalLimiter(0)
	free.sleep = func(d time.Duration) { slept += d }
	free.WaitTurn()
	free.WaitTurn()
	assert.Zero(t, slept)
}
