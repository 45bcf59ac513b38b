package errors

import (
	"net/http"
	"runtime/debug"

	"github.com/copyleftdev/tourfit/internal/logging"
)

// RecoveryMiddleware returns a middleware that turns a handler panic into a
// 500 response and an error log.
func RecoveryMiddleware(logger *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("Recovered from panic", map[string]interface{}{
						"error":  rec,
						"stack":  string(debug.Stack()),
						"method": r.Method,
						"path":   r.URL.Path,
						"query":  r.URL.RawQuery,
					})
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// ErrorHandler logs every response with a status of 400 or above.
func ErrorHandler(logger *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rw, r)

			if rw.status >= http.StatusBadRequest {
				logger.Warn("Request error", map[string]interface{}{
					"status": rw.status,
					"method": r.Method,
					"path":   r.URL.Path,
					"ip":     r.RemoteAddr,
				})
			}
		})
	}
}

// StatusFor maps an error chain to an HTTP status code.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case Is(err, ErrNotFound):
		return http.StatusNotFound
	case Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case Is(err, ErrAlreadyExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	status int
}

// WriteHeader captures the status code before writing the header.
func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
