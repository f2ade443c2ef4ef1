package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"teamvault/internal/logging"
	"teamvault/internal/server/auth"
)

type contextKey string

const userIDKey contextKey = "userID"

// AuthMiddleware validates bearer JWTs and stores the user ID in the request
// context.
type AuthMiddleware struct {
	secret []byte
	log    logging.Logger
}

// NewAuthMiddleware constructs the middleware with the JWT HMAC secret.
func NewAuthMiddleware(secret []byte, log logging.Logger) *AuthMiddleware {
	return &AuthMiddleware{secret: secret, log: log}
}

// Middleware returns a huma middleware rejecting requests without a valid
// bearer token.
func (a *AuthMiddleware) Middleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		header := ctx.Header("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			a.reject(ctx)
			return
		}

		userID, err := auth.GetUserIDFromToken(token, a.secret)
		if err != nil {
			a.log.Warn(ctx.Context(), "rejected token", "error", err)
			a.reject(ctx)
			return
		}

		newCtx := context.WithValue(ctx.Context(), userIDKey, userID)
		next(huma.WithContext(ctx, newCtx))
	}
}

func (a *AuthMiddleware) reject(ctx huma.Context) {
	ctx.SetStatus(http.StatusUnauthorized)
	ctx.SetHeader("Content-Type", "application/json")
	_ = json.NewEncoder(ctx.BodyWriter()).Encode(map[string]string{"error": "unauthorized"})
}

// UserID returns the authenticated user ID placed by the middleware.
func UserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDKey).(string)
	return userID, ok
}
