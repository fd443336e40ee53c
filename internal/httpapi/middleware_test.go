package httpapi

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimitConcurrency_RejectsWhenFull(t *testing.T) {
	ing := &fakeIngestor{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	h := NewRouter(Dependencies{
		Ingestor:              ing,
		Querier:               &fakeQuerier{},
		Lister:                &fakeLister{},
		Health:                fakeHealth{},
		MaxConcurrentRequests: 1,
		Logger:                quietLogger(),
	})

	body, contentType := multipartBody(t, filePart{"files", "a.txt", "alpha"})
	done := make(chan *httptest.ResponseRecorder)
	go func() {
		req := httptest.NewRequest(http.MethodPost, "/upload", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		done <- rec
	}()
	<-ing.entered

	// The bound is shared between upload and query.
	rec := doQuery(h, `{"query":"anything"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "Server busy", decodeError(t, rec).Error)

	// Health is never limited.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	close(ing.release)
	first := <-done
	assert.Equal(t, http.StatusOK, first.Code)
}

func TestLimitConcurrency_Disabled(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	h := LimitConcurrency(0, quietLogger())(next)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestHealthHandler(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewHealthHandler(fakeHealth{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
		assert.Contains(t, rec.Body.String(), `"store":"connected"`)
	})

	t.Run("unhealthy", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewHealthHandler(fakeHealth{err: errors.New("down")}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), `"status":"unhealthy"`)
		assert.Contains(t, rec.Body.String(), `"store":"disconnected"`)
	})
}

func TestLandingHandler(t *testing.T) {
	h := newTestRouter(&fakeIngestor{}, &fakeQuerier{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html"))
	assert.Contains(t, rec.Body.String(), `fetch("/upload"`)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLogRequests_PassesFlushThrough(t *testing.T) {
	var flushable bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, ok := w.(http.Flusher)
		flushable = ok
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte("data: 1\n\n"))
		if ok {
			f.Flush()
		}
		assert.NoError(t, http.NewResponseController(w).Flush())
	})

	rec := httptest.NewRecorder()
	LogRequests(next, quietLogger()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/mcp", nil))

	assert.True(t, flushable)
	assert.True(t, rec.Flushed)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "data: 1\n\n", rec.Body.String())
}
