package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ogulcanaydogan/cloudsaver/internal/auth"
)

// authenticate rejects requests without a verified bearer token and stores
// the caller identity in the request context.
func (s *Server) authenticate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := auth.ParseBearer(r.Header.Get("Authorization"))
		if err != nil {
			reason := "malformed_credentials"
			if errors.Is(err, auth.ErrMissingCredentials) {
				reason = "missing_credentials"
			}
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeError(w, http.StatusUnauthorized, reason)
			return
		}

		id, err := s.verifier.Verify(r.Context(), token)
		switch {
		case errors.Is(err, auth.ErrInvalidToken):
			w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
			writeError(w, http.StatusUnauthorized, "invalid_token")
			return
		case err != nil:
			s.logger.Error("verify token", "error", err)
			writeError(w, http.StatusServiceUnavailable, "auth_unavailable")
			return
		}

		next(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument records request counts and latency for route.
func (s *Server) instrument(route string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next(rec, r)

		requestsTotal.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		s.logger.Debug("request served", "route", route, "status", rec.status,
			"duration_ms", time.Since(start).Milliseconds())
	})
}
