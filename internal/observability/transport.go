package observability

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

const requestIDHeader = "X-Request-ID"

type Transport struct {
	Next   http.RoundTripper
	Logger *slog.Logger
}

func NewTransport(next http.RoundTripper, logger *slog.Logger) *Transport {
	if next == nil {
		next = http.DefaultTransport
	}
	return &Transport{Next: next, Logger: logger}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if runID := RunIDFromContext(req.Context()); runID != "" && req.Header.Get(requestIDHeader) == "" {
		req = req.Clone(req.Context())
		req.Header.Set(requestIDHeader, runID)
	}

	start := time.Now()
	resp, err := t.Next.RoundTrip(req)
	elapsed := time.Since(start)

	status := "error"
	if err == nil {
		status = strconv.Itoa(resp.StatusCode)
	}
	observeHTTPClientRequest(req.URL.Host, req.Method, status, elapsed)

	if t.Logger != nil {
		attrs := []any{
			slog.String("method", req.Method),
			slog.String("host", req.URL.Host),
			slog.String("path", req.URL.Path),
			slog.String("status", status),
			slog.String("duration", elapsed.String()),
		}
		if err != nil {
			attrs = append(attrs, slog.Any("error", err))
		}
		t.Logger.DebugContext(req.Context(), "http_client_request", attrs...)
	}
	return resp, err
}
