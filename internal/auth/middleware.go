package auth

import (
	"context"
	"net/http"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Actor is the authenticated caller, resolved from JWT claims.
type Actor struct {
	UserID    string
	Role      string // "doctor" or "hospital"
	ProfileID string // doctor id or hospital id, depending on Role
}

type contextKey string

const actorKey contextKey = "actor"

// ActorFromContext returns the authenticated actor, or false if the request
// did not pass through Middleware.
func ActorFromContext(ctx context.Context) (*Actor, bool) {
	actor, ok := ctx.Value(actorKey).(*Actor)
	return actor, ok
}

// Middleware validates the bearer token and stores the actor on the request
// context. requiredRole may be empty to accept any authenticated caller.
func Middleware(requiredRole string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			tokenString := strings.TrimPrefix(header, "Bearer ")

			secret := os.Getenv("JWT_SECRET")
			if secret == "" {
				http.Error(w, "Server misconfigured", http.StatusInternalServerError)
				return
			}

			claims := jwt.MapClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
				return []byte(secret), nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || !token.Valid {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			actor := &Actor{}
			if v, ok := claims["user_id"].(string); ok {
				actor.UserID = v
			}
			if v, ok := claims["role"].(string); ok {
				actor.Role = v
			}
			if v, ok := claims["profile_id"].(string); ok {
				actor.ProfileID = v
			}
			if actor.UserID == "" || actor.Role == "" || actor.ProfileID == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			if requiredRole != "" && actor.Role != requiredRole {
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), actorKey, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
