// ABOUTME: Bearer token parsing and HTTP middleware for admin endpoints
// ABOUTME: RequireAdmin verifies an admin JWT and adds AuthContext to the request

package auth

import (
	"errors"
	"net/http"
	"strings"
)

// Bearer parsing errors
var (
	ErrMissingToken    = errors.New("missing bearer token")
	ErrMalformedHeader = errors.New("authorization header is not a bearer token")
)

// ExtractBearerToken returns the token from an "Authorization: Bearer <token>"
// header value. Surrounding whitespace around the token is ignored.
func ExtractBearerToken(authHeader string) (string, error) {
	if strings.TrimSpace(authHeader) == "" {
		return "", ErrMissingToken
	}
	token, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok {
		return "", ErrMalformedHeader
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}

// ErrorWriter writes an error response with the given status.
type ErrorWriter func(w http.ResponseWriter, status int, msg string)

// RequireAdmin creates an HTTP middleware that only admits requests
// carrying a valid admin token.
func RequireAdmin(verifier *JWTVerifier, writeError ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := ExtractBearerToken(r.Header.Get("Authorization"))
			if err != nil {
				writeError(w, http.StatusUnauthorized, "admin token required")
				return
			}

			claims, err := verifier.Verify(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			authCtx := &AuthContext{Subject: claims.Subject}
			if claims.Role != "" {
				authCtx.Roles = []string{claims.Role}
			}
			if !authCtx.IsAdmin() {
				writeError(w, http.StatusForbidden, "admin role required")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithAuth(r.Context(), authCtx)))
		})
	}
}
