package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"social-posts-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// Messages returned by Authenticate
const (
	MsgNoToken      = "Error. Token no proporcionado."
	MsgInvalidToken = "Error. Token inválido o expirado."
)

type contextKey string

const claimsKey contextKey = "claims"

// TokenVerifier verifies a bearer token
type TokenVerifier interface {
	Verify(token string) (*services.Claims, error)
}

// Authenticate rejects requests without a bearer token (401) or with one that
// fails verification (403). Verified claims are stored in the request context.
func Authenticate(tokens TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				respondError(w, MsgNoToken, http.StatusUnauthorized)
				return
			}

			claims, err := tokens.Verify(token)
			if err != nil {
				log.Debug().Err(err).Str("path", r.URL.Path).Msg("Token rejected")
				respondError(w, MsgInvalidToken, http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
// The scheme is matched case-insensitively.
func BearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	token = strings.TrimSpace(token)
	if strings.ContainsAny(token, " \t") {
		return ""
	}
	return token
}

// WithClaims returns a context carrying claims
func WithClaims(ctx context.Context, claims *services.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// GetClaims extracts the verified claims from context
func GetClaims(ctx context.Context) (*services.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*services.Claims)
	return claims, ok && claims != nil
}

// GetUserID extracts the authenticated user ID from context, or 0
func GetUserID(ctx context.Context) int64 {
	claims, ok := GetClaims(ctx)
	if !ok {
		return 0
	}
	return claims.ID
}

func respondError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}
