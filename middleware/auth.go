package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"assetverse/identity"
	"assetverse/utils"
)

// EmailContextKey is where the verified principal email lives in the request
// context.
const EmailContextKey = "userEmail"

// Auth verifies the bearer credential with the identity provider and
// attaches the principal email to the request context. Role resolution
// happens later, in the handlers, against the user collection.
func Auth(verifier identity.Verifier, logger *zap.Logger) mux.MiddlewareFunc {
	log := logger.Named("auth")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// WebSocket upgrades authenticate via query token inside the
			// handler.
			if r.Header.Get("Upgrade") == "websocket" {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
				utils.RespondWithError(w, http.StatusUnauthorized, "missing or invalid Authorization header")
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")
			email, err := verifier.Verify(r.Context(), token)
			if err != nil {
				log.Debug("token rejected", zap.Error(err))
				utils.RespondWithError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), EmailContextKey, email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// PrincipalEmail extracts the verified email set by Auth.
func PrincipalEmail(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(EmailContextKey).(string)
	return email, ok && email != ""
}
