// ABOUTME: Tests for the Gemini completion client
// ABOUTME: Uses httptest servers to verify request shape and error mapping

package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Complete_Success(t *testing.T) {
	var gotPath, gotKey string
	var gotBody generateRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Hi there"}]}}]}`))
	}))
	defer srv.Close()

	client := New(Config{APIKey: "test-key", Model: "gemini-2.0-flash", BaseURL: srv.URL}, nil)

	reply, err := client.Complete(context.Background(), "Hello")
	require.NoError(t, err)
	assert.Equal(t, "Hi there", reply)

	// Request shape: model in path, key as query param, prompt in contents
	assert.Equal(t, "/v1beta/models/gemini-2.0-flash:generateContent", gotPath)
	assert.Equal(t, "test-key", gotKey)
	require.Len(t, gotBody.Contents, 1)
	require.Len(t, gotBody.Contents[0].Parts, 1)
	assert.Equal(t, "Hello", gotBody.Contents[0].Parts[0].Text)
}

func TestClient_Complete_ConcatenatesParts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Hello, "},{"text":"world"}]}}]}`))
	}))
	defer srv.Close()

	client := New(Config{APIKey: "k", BaseURL: srv.URL}, nil)

	reply, err := client.Complete(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "Hello, world", reply)
}

func TestClient_Complete_NotConfigured(t *testing.T) {
	client := New(Config{}, nil)

	_, err := client.Complete(context.Background(), "Hello")
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.False(t, client.Configured())
}

func TestClient_Complete_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"Resource has been exhausted"}}`))
	}))
	defer srv.Close()

	client := New(Config{APIKey: "k", BaseURL: srv.URL}, nil)

	_, err := client.Complete(context.Background(), "Hello")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, "Resource has been exhausted", apiErr.Message)
}

func TestClient_Complete_ServerErrorWithMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"message":"Internal error encountered"}}`))
	}))
	defer srv.Close()

	client := New(Config{APIKey: "k", BaseURL: srv.URL}, nil)

	_, err := client.Complete(context.Background(), "Hello")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, "Internal error encountered", apiErr.Message)
}

func TestClient_Complete_ServerErrorUnparseableBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`<html>bad gateway</html>`))
	}))
	defer srv.Close()

	client := New(Config{APIKey: "k", BaseURL: srv.URL}, nil)

	_, err := client.Complete(context.Background(), "Hello")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Empty(t, apiErr.Message)
}

func TestClient_Complete_NoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	client := New(Config{APIKey: "k", BaseURL: srv.URL}, nil)

	_, err := client.Complete(context.Background(), "Hello")
	assert.ErrorIs(t, err, ErrNoContent)
}

func TestClient_Complete_EmptyParts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[{"content":{"parts":[]}}]}`))
	}))
	defer srv.Close()

	client := New(Config{APIKey: "k", BaseURL: srv.URL}, nil)

	_, err := client.Complete(context.Background(), "Hello")
	assert.ErrorIs(t, err, ErrNoContent)
}

func TestClient_Complete_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	client := New(Config{APIKey: "k", BaseURL: srv.URL}, nil)

	_, err := client.Complete(context.Background(), "Hello")
	require.Error(t, err)

	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr), "transport failure must not be an APIError")
}

func TestClient_Complete_RetriesTransportFailures(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		hj, ok := w.(http.Hijacker)
		require.True(t, ok)
		conn, _, err := hj.Hijack()
		require.NoError(t, err)
		conn.Close() // drop without a response
	}))
	defer srv.Close()

	client := New(Config{APIKey: "k", BaseURL: srv.URL, MaxAttempts: 3}, nil)

	_, err := client.Complete(context.Background(), "Hello")
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_Complete_DoesNotRetryAPIErrors(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := New(Config{APIKey: "k", BaseURL: srv.URL, MaxAttempts: 3}, nil)

	_, err := client.Complete(context.Background(), "Hello")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}
