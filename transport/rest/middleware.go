package rest

import (
	"bufio"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"time"
)

// responseWriter - remembers the status code for the access log.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (that *responseWriter) WriteHeader(code int) {
	that.status = code
	that.ResponseWriter.WriteHeader(code)
}

// Hijack - lets websocket upgrades pass through the middleware.
func (that *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := that.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}

	return hijacker.Hijack()
}

func (that *responseWriter) Unwrap() http.ResponseWriter {
	return that.ResponseWriter
}

func loggerMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.status,
			"duration", time.Since(start),
		)
	})
}

func recoverer(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger.Error("panic recovered", "path", r.URL.Path, "panic", rec, "stack", string(debug.Stack()))
				writeJSON(logger, w, http.StatusInternalServerError, errorBody{Error: "internal server error", Code: "internal"})
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// Middleware - the logging and panic recovery chain, for other servers of the process.
func Middleware(logger *slog.Logger, next http.Handler) http.Handler {
	return recoverer(logger, loggerMiddleware(logger, next))
}
