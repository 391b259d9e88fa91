package transport_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/Amund211/notesync/internal/adapters/transport"
	"github.com/Amund211/notesync/internal/domain"
	"github.com/Amund211/notesync/internal/ratelimiting"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTransport(t *testing.T, handler http.HandlerFunc) *transport.Transport {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	tr, err := transport.New(server.URL+"/api", server.Client(), "notesync-test")
	require.NoError(t, err)
	return tr
}

func TestNew(t *testing.T) {
	t.Parallel()

	_, err := transport.New("/api", http.DefaultClient, "")
	require.Error(t, err)

	_, err = transport.New("https://notes.example.com/api", http.DefaultClient, "")
	require.NoError(t, err)
}

func TestRequest(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		tr := newTransport(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/api/notes", r.URL.Path)
			assert.Equal(t, "2", r.URL.Query().Get("page"))
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			assert.Equal(t, "notesync-test", r.Header.Get("User-Agent"))

			body, err := io.ReadAll(r.Body)
			assert.NoError(t, err)
			assert.JSONEq(t, `{"title":"Groceries"}`, string(body))

			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":"1"}`))
		})

		resp, err := tr.Request(
			t.Context(),
			http.MethodPost,
			"/notes",
			map[string]string{"title": "Groceries"},
			url.Values{"page": []string{"2"}},
		)
		require.NoError(t, err)
		require.Equal(t, http.StatusCreated, resp.Status)
		require.JSONEq(t, `{"id":"1"}`, string(resp.Data))
	})

	t.Run("no body", func(t *testing.T) {
		t.Parallel()

		tr := newTransport(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Empty(t, r.Header.Get("Content-Type"))
			assert.Empty(t, r.URL.RawQuery)
			w.WriteHeader(http.StatusNoContent)
		})

		resp, err := tr.Request(t.Context(), http.MethodDelete, "/notes/1", nil, nil)
		require.NoError(t, err)
		require.Equal(t, http.StatusNoContent, resp.Status)
		require.Empty(t, resp.Data)
	})

	t.Run("status errors", func(t *testing.T) {
		t.Parallel()

		cases := []struct {
			status  int
			body    string
			err     error
			message string
		}{
			{status: 400, body: `{"message":"Invalid page"}`, err: domain.ErrValidation, message: "Invalid page"},
			{status: 401, body: `{"message":"Not authenticated"}`, err: domain.ErrUnauthorized, message: "Not authenticated"},
			{status: 403, body: `{"message":"Forbidden"}`, err: domain.ErrForbidden, message: "Forbidden"},
			{status: 404, body: ``, err: domain.ErrNotFound, message: "Not Found"},
			{status: 409, body: `{"message":"Already invited"}`, err: domain.ErrConflict, message: "Already invited"},
			{status: 413, body: `not json`, err: domain.ErrClient, message: "Request Entity Too Large"},
			{status: 422, body: `{"message":"Title is required"}`, err: domain.ErrValidation, message: "Title is required"},
			{status: 500, body: `{"message":"Internal server error"}`, err: domain.ErrServer, message: "Internal server error"},
			{status: 503, body: `{}`, err: domain.ErrServer, message: "Service Unavailable"},
			{status: 300, body: ``, err: domain.ErrUnexpectedStatus, message: "Multiple Choices"},
			{status: 304, body: ``, err: domain.ErrUnexpectedStatus, message: "Not Modified"},
		}

		for _, c := range cases {
			t.Run(fmt.Sprint(c.status), func(t *testing.T) {
				t.Parallel()

				tr := newTransport(t, func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(c.status)
					_, _ = w.Write([]byte(c.body))
				})

				resp, err := tr.Request(t.Context(), http.MethodGet, "/notes/1", nil, nil)
				require.ErrorIs(t, err, c.err)
				require.Equal(t, c.status, resp.Status)

				var statusErr *transport.StatusError
				require.ErrorAs(t, err, &statusErr)
				require.Equal(t, c.status, statusErr.Status)
				require.Equal(t, c.message, statusErr.Message)
				require.Equal(t, "/notes/1", statusErr.Path)

				require.Equal(t, c.status >= 500, domain.IsTransient(err))
				require.Equal(t, c.status >= 500, errors.Is(err, domain.ErrServer))
			})
		}
	})

	t.Run("informational and redirect statuses are not transient", func(t *testing.T) {
		t.Parallel()

		for _, status := range []int{http.StatusProcessing, http.StatusEarlyHints, http.StatusFound, http.StatusPermanentRedirect} {
			err := &transport.StatusError{Method: http.MethodGet, Path: "/notes", Status: status}
			require.ErrorIs(t, err, domain.ErrUnexpectedStatus, status)
			require.ErrorIs(t, err, domain.ErrClient, status)
			require.NotErrorIs(t, err, domain.ErrServer, status)
			require.False(t, domain.IsTransient(err), status)
		}
	})

	t.Run("unauthorized handler replaces the error", func(t *testing.T) {
		t.Parallel()

		tr := newTransport(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/api/notes" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.WriteHeader(http.StatusForbidden)
		})

		var calls atomic.Int32
		tr.SetUnauthorizedHandler(func(ctx context.Context, err error) error {
			calls.Add(1)
			return fmt.Errorf("%w: %w", domain.ErrSessionExpired, err)
		})

		_, err := tr.Request(t.Context(), http.MethodGet, "/notes", nil, nil)
		require.ErrorIs(t, err, domain.ErrSessionExpired)
		require.Equal(t, int32(1), calls.Load())

		_, err = tr.Request(t.Context(), http.MethodGet, "/notes/1", nil, nil)
		require.ErrorIs(t, err, domain.ErrForbidden)
		require.Equal(t, int32(1), calls.Load(), "only 401 responses are intercepted")
	})

	t.Run("network error", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		tr, err := transport.New(server.URL, server.Client(), "")
		require.NoError(t, err)
		server.Close()

		_, err = tr.Request(t.Context(), http.MethodGet, "/notes", nil, nil)
		require.ErrorIs(t, err, domain.ErrNetwork)
		require.True(t, domain.IsTransient(err))
	})

	t.Run("unencodable body", func(t *testing.T) {
		t.Parallel()

		tr := newTransport(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("no request should be sent")
		})

		_, err := tr.Request(t.Context(), http.MethodPost, "/notes", map[string]any{"bad": make(chan int)}, nil)
		require.Error(t, err)
		require.False(t, domain.IsTransient(err))
	})
}

func TestHTTPClientKeepsSession(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login":
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "secret", Path: "/"})
			_ = json.NewEncoder(w).Encode(map[string]string{"id": "1"})
		case "/api/auth/check":
			cookie, err := r.Cookie("session")
			if err != nil || cookie.Value != "secret" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]string{"id": "1"})
		}
	}))
	defer server.Close()

	limiter, stop := ratelimiting.NewTokenBucketRateLimiter(100, 100)
	defer stop()

	httpClient, err := transport.NewHTTPClient(limiter)
	require.NoError(t, err)
	tr, err := transport.New(server.URL+"/api", httpClient, "")
	require.NoError(t, err)

	_, err = tr.Request(t.Context(), http.MethodGet, "/auth/check", nil, nil)
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = tr.Request(t.Context(), http.MethodPost, "/auth/login", map[string]string{"email": "a@b.c"}, nil)
	require.NoError(t, err)

	resp, err := tr.Request(t.Context(), http.MethodGet, "/auth/check", nil, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.Status)
}
