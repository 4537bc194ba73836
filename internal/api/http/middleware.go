package http

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"rentfolio-backend/internal/domain"
	"rentfolio-backend/internal/security"
)

type contextKey string

const actorContextKey contextKey = "actor"

// ActorFromContext returns the authenticated actor placed by the auth
// middleware, or false when the request was unauthenticated.
func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey).(domain.Actor)
	return actor, ok
}

// AuthMiddleware resolves the bearer token into an actor. Requests reaching
// the handlers are already authenticated; role checks stay in the services.
func AuthMiddleware(tokens security.TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
				return
			}
			actor, err := tokens.ResolveActor(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", err.Error())
				return
			}
			ctx := context.WithValue(r.Context(), actorContextKey, *actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// MetricsMiddleware records request counts and latency per route.
func MetricsMiddleware(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(recorder, r)
		httpRequestDuration.WithLabelValues(r.Method, endpoint).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(r.Method, endpoint, strconv.Itoa(recorder.status)).Inc()
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// clientMeta extracts the caller's IP and user agent for audit snapshots.
func clientMeta(r *http.Request) domain.RequestMeta {
	ip := r.Header.Get("X-Forwarded-For")
	if ip != "" {
		if idx := strings.IndexByte(ip, ','); idx > 0 {
			ip = ip[:idx]
		}
		ip = strings.TrimSpace(ip)
	} else {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err == nil {
			ip = host
		} else {
			ip = r.RemoteAddr
		}
	}
	return domain.RequestMeta{IP: ip, UserAgent: r.UserAgent()}
}
