// Package middleware provides the HTTP middlewares of the API.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"vidgrab/internal/observability"
	"vidgrab/pkg/gen"
)

type contextKey string

// RequestIDKey holds the request id in the request context.
const RequestIDKey contextKey = "requestID"

// HeaderXRequestID carries the request id in requests and responses.
const HeaderXRequestID = "X-Request-ID"

// RequestLog is what Logger writes for every request.
type RequestLog struct {
	Method        string `json:"method"`
	URI           string `json:"uri"`
	RemoteAddr    string `json:"remote_addr"`
	Proto         string `json:"proto"`
	ContentLength int64  `json:"content_length"`
	RequestID     string `json:"request_id,omitempty"`
}

// statusRecorder remembers the status and size of a response.
type statusRecorder struct {
	http.ResponseWriter

	status int
	size   int
}

func (r *statusRecorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}

	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}

	n, err := r.ResponseWriter.Write(b)
	r.size += n

	return n, err
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func (r *statusRecorder) code() int {
	if r.status == 0 {
		return http.StatusOK
	}

	return r.status
}

// Recoverer turns a handler panic into a 500 response. http.ErrAbortHandler is re-panicked.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w}

		defer func() {
			rvr := recover()
			if rvr == nil {
				return
			}

			if rvr == http.ErrAbortHandler { //nolint:errorlint
				panic(rvr)
			}

			slog.ErrorContext(r.Context(), "http handler panicked", slog.Any("panic", rvr), slog.String("uri", r.RequestURI))

			if rec.status == 0 {
				http.Error(rec, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
		}()

		next.ServeHTTP(rec, r)
	})
}

// RequestID propagates the X-Request-ID header or generates a new id.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(HeaderXRequestID)
		if reqID == "" {
			reqID = gen.ID()
		}

		ctx := context.WithValue(r.Context(), RequestIDKey, reqID)
		w.Header().Set(HeaderXRequestID, reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Logger logs every request at debug level.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID, _ := r.Context().Value(RequestIDKey).(string)

		slog.DebugContext(r.Context(), "http request",
			slog.Any("request", RequestLog{
				Method:        r.Method,
				URI:           r.RequestURI,
				RemoteAddr:    r.RemoteAddr,
				Proto:         r.Proto,
				ContentLength: r.ContentLength,
				RequestID:     reqID,
			}))
		next.ServeHTTP(w, r)
	})
}

// Metrics records count, duration and response size of every request.
func Metrics(m *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}

			next.ServeHTTP(rec, r)

			m.RecordHTTPRequest(r.Method, RouteLabel(r.URL.Path), rec.code(), time.Since(start), rec.size)
		})
	}
}

// RouteLabel replaces id segments of path with "{id}" to keep label cardinality low.
func RouteLabel(path string) string {
	segments := strings.Split(path, "/")
	for i, s := range segments {
		if gen.IsID(s) {
			segments[i] = "{id}"
		}
	}

	return strings.Join(segments, "/")
}
