package api

import (
	"context"
	"net/http"
	"strings"

	"serwis-uzytkownikow/internal/auth"
	"serwis-uzytkownikow/internal/authz"
)

type contextKey string

const userContextKey = contextKey("user")

func (s *Server) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header required", http.StatusUnauthorized)
			return
		}

		headerParts := strings.Split(authHeader, " ")
		if len(headerParts) != 2 || headerParts[0] != "Bearer" {
			http.Error(w, "Invalid Authorization header format", http.StatusUnauthorized)
			return
		}

		tokenString := headerParts[1]

		claims, err := auth.VerifyJWT(tokenString, s.config.JWT.Secret)
		if err != nil {
			http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
			return
		}

		// The token carries role and quota as a login-time snapshot. When
		// recheck_claims is on, the current values override the snapshot and
		// a deleted subject loses access immediately.
		if s.config.Auth.RecheckClaims {
			user, err := s.store.GetUserByID(r.Context(), claims.UserID)
			if err != nil {
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}
			if user == nil {
				http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}
			claims.Email = user.Email
			claims.Role = user.Role
			claims.Quota = user.Quota
		}

		ctx := context.WithValue(r.Context(), userContextKey, claims)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GetUserFromContext(ctx context.Context) *auth.AppClaims {
	if claims, ok := ctx.Value(userContextKey).(*auth.AppClaims); ok {
		return claims
	}
	return nil
}

func actorFromClaims(claims *auth.AppClaims) authz.Actor {
	return authz.Actor{UserID: claims.UserID, Role: claims.Role}
}
