package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"tapestry/internal/auth"
	"tapestry/internal/domain/repositories"
	"tapestry/internal/httputil"
)

// Auth resolves the request's user from a bearer token. Authentication is
// optional: a request without a token proceeds anonymously (public pages and
// magic links are reachable without an account), but a token that fails
// verification is rejected outright.
func Auth(verifier auth.TokenVerifier, users repositories.UserRepository, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			tokenString, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				httputil.RespondError(w, http.StatusUnauthorized, "malformed Authorization header")
				return
			}

			claims, err := verifier.VerifyToken(tokenString)
			if err != nil {
				httputil.RespondError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			userID, err := uuid.Parse(claims.GetUserID())
			if err != nil {
				httputil.RespondError(w, http.StatusUnauthorized, "invalid subject claim")
				return
			}

			user, err := users.GetByID(r.Context(), userID)
			if err != nil {
				logger.Warn("token valid but user lookup failed", "user_id", userID, "error", err)
				httputil.RespondError(w, http.StatusUnauthorized, "unknown user")
				return
			}

			next.ServeHTTP(w, httputil.WithUser(r, user))
		})
	}
}
