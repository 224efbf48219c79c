// Package middleware holds the HTTP middleware: bearer-token authentication
// and request logging.
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/clothingstore/catalog-service/internal/domain"
	"github.com/clothingstore/catalog-service/internal/platform/logger"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

type contextKey string

const (
	actorIDKey   contextKey = "actor_id"
	actorRoleKey contextKey = "actor_role"
)

// Claims is the JWT payload the auth service issues. The role is read from
// the verified token only; role fields in request bodies are never trusted.
type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// JWTAuth verifies the Bearer token and stores the actor's identity and role
// in the request context. Requests without a valid token are rejected with
// 401.
func JWTAuth(secret string, log *logger.Logger) func(http.Handler) http.Handler {
	authLogger := log.Named("JWTAuth")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				http.Error(w, `{"error":"missing authorization header"}`, http.StatusUnauthorized)
				return
			}
			tokenString := strings.TrimPrefix(header, "Bearer ")
			if tokenString == header {
				http.Error(w, `{"error":"authorization header must be a bearer token"}`, http.StatusUnauthorized)
				return
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				authLogger.Debug("Rejected token", zap.Error(err))
				http.Error(w, `{"error":"invalid or expired token"}`, http.StatusUnauthorized)
				return
			}
			if claims.UserID == "" {
				http.Error(w, `{"error":"token is missing the user id"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), actorIDKey, claims.UserID)
			ctx = context.WithValue(ctx, actorRoleKey, domain.ParseRole(claims.Role))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ActorFromContext returns the authenticated actor stored by JWTAuth.
func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	id, ok := ctx.Value(actorIDKey).(string)
	if !ok || id == "" {
		return domain.Actor{}, false
	}
	role, ok := ctx.Value(actorRoleKey).(domain.Role)
	if !ok {
		return domain.Actor{}, false
	}
	return domain.Actor{ID: id, Role: role}, true
}

// WithActor returns a context carrying the actor, for tests and internal
// callers that bypass the HTTP middleware.
func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	ctx = context.WithValue(ctx, actorIDKey, actor.ID)
	return context.WithValue(ctx, actorRoleKey, actor.Role)
}
