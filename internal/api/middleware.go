package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"southerniot.dev/erp/internal/auth"
)

type contextKey string

// claimsKey carries the validated operator claims through the request context.
const claimsKey contextKey = "claims"

// claimsFrom returns the operator claims attached by requireAuth, if any.
func claimsFrom(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*auth.Claims)
	return claims, ok
}

// statusRecorder captures the response status for logging and metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// instrument wraps h with request logging and Prometheus metrics. route is
// the registered pattern, not the concrete path, to keep label cardinality
// bounded.
func (s *Server) instrument(route string, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		if s.metrics != nil {
			s.metrics.HTTPRequestsInFlight.Inc()
			defer s.metrics.HTTPRequestsInFlight.Dec()
		}

		h(rec, r)

		elapsed := time.Since(start)
		if s.metrics != nil {
			s.metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
			s.metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())
		}

		s.logger.Info("request handled",
			"method", r.Method,
			"route", route,
			"status", rec.status,
			"duration_ms", elapsed.Milliseconds(),
		)
	})
}

// requireAuth rejects requests without a valid Bearer access token and
// attaches the token claims to the request context.
func (s *Server) requireAuth(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			if s.metrics != nil {
				s.metrics.AuthFailuresTotal.WithLabelValues("jwt").Inc()
			}
			s.writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}

		claims, err := s.tokens.Validate(token)
		if err != nil {
			if s.metrics != nil {
				s.metrics.AuthFailuresTotal.WithLabelValues("jwt").Inc()
			}
			s.writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}

		h(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
	}
}

// requireDeviceToken guards telemetry ingestion with the static device token.
func (s *Server) requireDeviceToken(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		presented := r.Header.Get(auth.DeviceTokenHeader)
		if presented == "" {
			if s.metrics != nil {
				s.metrics.AuthFailuresTotal.WithLabelValues("device_token").Inc()
			}
			s.writeDetail(w, http.StatusUnauthorized, "Missing Authentication Token (X-IOT-Token header)")
			return
		}

		if !s.devices.Authorize(presented) {
			if s.metrics != nil {
				s.metrics.AuthFailuresTotal.WithLabelValues("device_token").Inc()
			}
			s.writeDetail(w, http.StatusForbidden, "Invalid Authentication Token")
			return
		}

		h(w, r)
	}
}

// listParams reads the skip/limit pagination query parameters.
func listParams(r *http.Request, defaultLimit int) (skip, limit int) {
	limit = defaultLimit
	if v := r.URL.Query().Get("skip"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			skip = n
		}
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	return skip, limit
}

// pathID parses the numeric {id} segment used by update and delete routes.
func pathID(r *http.Request) (uint, bool) {
	n, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(n), true
}
