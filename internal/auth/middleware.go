package auth

import (
	"context"
	"net/http"
	"strings"
)

type contextKey int

const (
	userIDKey contextKey = iota
	emailKey
)

// UnauthorizedFunc writes the response for a rejected request.
type UnauthorizedFunc func(w http.ResponseWriter, r *http.Request, message string)

// Middleware authenticates "Authorization: Bearer <token>" headers and
// stores the caller's identity in the request context.
func Middleware(issuer *Issuer, unauthorized UnauthorizedFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				unauthorized(w, r, "missing authorization header")
				return
			}
			tokenStr, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(tokenStr) == "" {
				unauthorized(w, r, "authorization header must use the Bearer scheme")
				return
			}

			claims, err := issuer.Verify(strings.TrimSpace(tokenStr))
			if err != nil {
				unauthorized(w, r, "invalid or expired token")
				return
			}

			ctx := WithUser(r.Context(), claims.Subject, claims.Email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithUser returns a context carrying the authenticated user.
func WithUser(ctx context.Context, userID, email string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, emailKey, email)
}

// UserID returns the authenticated user's ID, or "" when absent.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// Email returns the authenticated user's email, or "" when absent.
func Email(ctx context.Context) string {
	email, _ := ctx.Value(emailKey).(string)
	return email
}
