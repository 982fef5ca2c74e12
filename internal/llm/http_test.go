package llm

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostCompletion_Headers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	t.Cleanup(srv.Close)

	reply, status, err := PostCompletion(context.Background(), srv.Client(), srv.URL,
		map[string]any{"model": "gpt-4o"}, map[string]string{"Authorization": "Bearer k"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"choices":[]}`, string(reply))
}

func TestPostCompletion_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)

	reply, status, err := PostCompletion(context.Background(), srv.Client(), srv.URL, map[string]any{}, nil, nil)
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusTooManyRequests, statusErr.Code)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Contains(t, string(reply), "rate limited")
	assert.Contains(t, err.Error(), "chat completions")
}

func TestPostCompletion_OversizedReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", maxCompletionBytes+1)))
	}))
	t.Cleanup(srv.Close)

	reply, _, err := PostCompletion(context.Background(), srv.Client(), srv.URL, map[string]any{}, nil, nil)
	require.Error(t, err)
	assert.Nil(t, reply)
	assert.Contains(t, err.Error(), "exceeds")
}
