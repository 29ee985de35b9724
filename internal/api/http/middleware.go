package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"rentops-backend/internal/config"
	"rentops-backend/internal/domain"
	"rentops-backend/internal/logger"
	"rentops-backend/internal/security"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type actorKey struct{}

func withActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the actor the auth middleware resolved.
func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(domain.Actor)
	return actor, ok
}

// AuthMiddleware authenticates requests according to the security level of
// the matched route name.
type AuthMiddleware struct {
	tokenManager security.TokenManager
}

func NewAuthMiddleware(tm security.TokenManager) *AuthMiddleware {
	return &AuthMiddleware{tokenManager: tm}
}

func (m *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := ""
		if route := mux.CurrentRoute(r); route != nil {
			name = route.GetName()
		}
		level := config.GetSecurityLevel(name)

		// Public endpoint - skip auth
		if level == config.SecurityPublic {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := extractToken(r)
		if !ok {
			writeMessage(w, http.StatusUnauthorized, "authorization token is not provided")
			return
		}

		claims, err := m.tokenManager.ValidateToken(token)
		if err != nil {
			if errors.Is(err, security.ErrExpiredToken) {
				writeMessage(w, http.StatusUnauthorized, "token has expired")
				return
			}
			writeMessage(w, http.StatusUnauthorized, "invalid token")
			return
		}

		actor := claims.Actor()
		if level == config.SecurityAdmin && !actor.IsAdmin() {
			writeMessage(w, http.StatusForbidden, "admin role required")
			return
		}

		ctx := withActor(r.Context(), actor)
		ctx = logger.NewContext(ctx, "actor", actor.Email, "role", actor.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	// Remove Bearer prefix if present
	if len(header) > 7 && strings.ToUpper(header[0:7]) == "BEARER " {
		header = header[7:]
	}
	header = strings.TrimSpace(header)
	return header, header != ""
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware tags the request with an ID and logs one line when it
// completes.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		ctx := logger.NewContext(r.Context(), "request_id", requestID)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r.WithContext(ctx))

		log := logger.FromContext(ctx)
		attrs := []any{"method", r.Method, "path", r.URL.Path, "status", rec.status, "duration_ms", time.Since(start).Milliseconds()}
		if rec.status >= http.StatusInternalServerError {
			log.Error("HTTP request", attrs...)
			return
		}
		log.Debug("HTTP request", attrs...)
	})
}
