// OGA CRM - Partner School Relationship Management
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package middleware provides the HTTP middleware shared by all routes:
// structured request logging and Prometheus instrumentation. Request IDs,
// panic recovery, CORS, and rate limiting come from the chi ecosystem and
// are wired directly in the router.
package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/tzustu63/ogacrm-sub001/internal/metrics"
)

// RequestLogger logs one line per request with method, path, status,
// size, duration, and the chi request id.
func RequestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			event := logger.Info()
			if ww.Status() >= http.StatusInternalServerError {
				event = logger.Error()
			}
			event.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("request_id", chimiddleware.GetReqID(r.Context())).
				Str("remote", r.RemoteAddr).
				Msg("request")
		})
	}
}

// Prometheus records request counts and latency per route pattern. The
// chi route pattern is used instead of the raw path to keep label
// cardinality bounded.
func Prometheus(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			m.RecordHTTPRequest(r.Method, route, strconv.Itoa(ww.Status()), time.Since(start))
		})
	}
}
