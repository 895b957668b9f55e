// Package trace assigns request ids and logs every HTTP request.
package trace

import (
	"context"
	"log/slog"
	"net/http"
	"regexp"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	applog "expenses/internal/log"
)

type ctxKey struct{}

// HeaderRequestID is accepted from callers and echoed on responses.
const HeaderRequestID = "X-Request-ID"

var validRequestID = regexp.MustCompile(`^[A-Za-z0-9_.:-]{1,64}$`)

// Metrics is a snapshot of the request counters.
type Metrics struct {
	TotalRequests  int64
	ClientErrors   int64
	FailedRequests int64
}

// Middleware tags requests with an id, counts them and writes one access
// log record per request.
type Middleware struct {
	extractIP func(*http.Request) string

	total   atomic.Int64
	client  atomic.Int64
	failure atomic.Int64
}

// NewMiddleware creates a trace middleware. extractIP may be nil.
func NewMiddleware(extractIP func(*http.Request) string) *Middleware {
	return &Middleware{extractIP: extractIP}
}

// Middleware wraps next with request tracing.
func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(HeaderRequestID)
		if !validRequestID.MatchString(requestID) {
			requestID = GenerateRequestID()
		}
		w.Header().Set(HeaderRequestID, requestID)

		ctx := context.WithValue(r.Context(), ctxKey{}, requestID)
		r = r.WithContext(ctx)
		m.total.Add(1)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		level := m.classify(rec.status)
		m.logRequest(ctx, level, r, requestID, rec.status, time.Since(start))
	})
}

// classify bumps the error counters and picks the log level for status.
func (m *Middleware) classify(status int) slog.Level {
	switch {
	case status >= 500:
		m.failure.Add(1)
		return slog.LevelError
	case status >= 400:
		m.client.Add(1)
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

func (m *Middleware) logRequest(ctx context.Context, level slog.Level, r *http.Request, requestID string, status int, elapsed time.Duration) {
	clientIP := ""
	if m.extractIP != nil {
		clientIP = m.extractIP(r)
	}

	fields := applog.NewFields().
		WithRequestID(requestID).
		WithClientIP(clientIP).
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.UserAgent(), r.Referer()).
		WithHTTPResponse(status, elapsed.Milliseconds(), status < 400)

	applog.FromContext(ctx).WithComponent(applog.ComponentHTTP).
		Log(ctx, level, "HTTP request completed", fields.ToSlice()...)
}

// GetMetrics returns the current counters.
func (m *Middleware) GetMetrics() Metrics {
	return Metrics{
		TotalRequests:  m.total.Load(),
		ClientErrors:   m.client.Load(),
		FailedRequests: m.failure.Load(),
	}
}

// statusRecorder remembers the first status written.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (rw *statusRecorder) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.status = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *statusRecorder) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// GenerateRequestID returns a fresh random request id.
func GenerateRequestID() string {
	return "req_" + uuid.NewString()
}

// GetRequestID extracts the request id from ctx, or "" when none was set.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// RequestID reads the id assigned by Middleware. It plugs into
// log.RequestIDMiddleware.
func RequestID(r *http.Request) string {
	return GetRequestID(r.Context())
}
