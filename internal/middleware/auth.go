package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/Aphatheology/future-stack-assessment/internal/service"

	"go.uber.org/zap"
)

type contextKey string

const (
	UserIDKey   contextKey = "user_id"
	UserRoleKey contextKey = "user_role"
)

// AccessTokenValidator validates a bearer token and returns its claims.
// Implemented by the auth service, which also checks the revocation
// blacklist.
type AccessTokenValidator interface {
	ValidateAccessToken(ctx context.Context, tokenString string) (*service.AccessClaims, error)
}

// AuthMiddleware validates bearer tokens and puts the authenticated
// user's id and role on the request context
func AuthMiddleware(validator AccessTokenValidator, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Debug("Missing authorization header")
				RespondWithError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				logger.Debug("Invalid authorization header format")
				RespondWithError(w, http.StatusUnauthorized, "invalid authorization header format")
				return
			}

			tokenString := parts[1]

			claims, err := validator.ValidateAccessToken(r.Context(), tokenString)
			if err != nil {
				logger.Debug("Token validation failed", zap.Error(err))
				RespondWithAppError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
			ctx = context.WithValue(ctx, UserRoleKey, claims.Role)
			ctx = context.WithValue(ctx, accessTokenKey, tokenString)

			logger.Debug("User authenticated",
				zap.String("user_id", claims.UserID),
				zap.String("role", claims.Role),
			)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

const accessTokenKey contextKey = "access_token"

// GetUserID extracts user ID from request context
func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok
}

// GetUserRole extracts user role from request context
func GetUserRole(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(UserRoleKey).(string)
	return role, ok
}

// GetAccessToken extracts the raw bearer token from request context,
// used by logout to blacklist the presented token
func GetAccessToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(accessTokenKey).(string)
	return token, ok
}
