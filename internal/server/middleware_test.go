package server

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loggedRequest(t *testing.T, status int) map[string]any {
	t.Helper()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	handler := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/v1/meetings", nil))
	assert.Equal(t, status, rec.Code)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestLoggingMiddleware(t *testing.T) {
	entry := loggedRequest(t, http.StatusOK)

	assert.Equal(t, "DEBUG", entry["level"])
	assert.Equal(t, "GET", entry["method"])
	assert.Equal(t, "/v1/meetings", entry["path"])
	assert.Equal(t, float64(http.StatusOK), entry["status"])
	assert.Contains(t, entry, "duration_ms")
}

func TestLoggingMiddlewareServerError(t *testing.T) {
	entry := loggedRequest(t, http.StatusInternalServerError)

	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "request failed", entry["msg"])
}

func TestLoggingMiddlewareImplicitOK(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	// Handler writes the body without calling WriteHeader.
	handler := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, float64(http.StatusOK), entry["status"])
}
