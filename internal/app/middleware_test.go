package app

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/require"
)

func TestRequestLoggerRecordsStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	handler := middleware.RequestID(requestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream"))
	})))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/cash-closings", nil))

	require.Equal(t, http.StatusBadGateway, rr.Code)
	out := buf.String()
	require.Contains(t, out, "level=ERROR")
	require.Contains(t, out, "path=/api/cash-closings")
	require.Contains(t, out, "status=502")
	require.Contains(t, out, "bytes=8")
	require.Contains(t, out, "request_id=")
}

func TestRequestLoggerDefaultsToOK(t *testing.T) {
	var buf bytes.Buffer
	handler := requestLogger(slog.New(slog.NewTextHandler(&buf, nil)))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Contains(t, buf.String(), "status=200")
	require.Contains(t, buf.String(), "level=INFO")
}
