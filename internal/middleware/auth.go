package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hongminglow/user-manager/internal/auth"
	"github.com/hongminglow/user-manager/internal/http/respond"
)

// TokenValidator is satisfied by *auth.TokenManager.
type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

type claimsKey struct{}

// ClaimsFromContext returns the claims stored by Authenticate.
func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*auth.Claims)
	return claims, ok
}

// Authenticate rejects requests without a valid bearer token. Every failure
// produces the same 401; the reason is only logged.
func Authenticate(tokens TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				logger.WarnContext(r.Context(), "rejected request", slog.String("reason", "missing bearer token"), slog.String("path", r.URL.Path))
				unauthorized(w)
				return
			}
			claims, err := tokens.Validate(raw)
			if err != nil {
				logger.WarnContext(r.Context(), "rejected request", slog.String("reason", err.Error()), slog.String("path", r.URL.Path))
				unauthorized(w)
				return
			}
			ctx := context.WithValue(r.Context(), claimsKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
	respond.Error(w, http.StatusUnauthorized, "unauthorized")
}
