package middleware

import (
	"context"
	"net/http"
	"strings"
)

// TokenValidator is the part of *credgate.Engine the guard needs.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (string, error)
}

type emailContextKey struct{}

// EmailFromContext returns the email a guarded request was authenticated as.
func EmailFromContext(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(emailContextKey{}).(string)
	return email, ok && email != ""
}

// Guard rejects requests without a valid bearer session token with 401 and
// passes the rest on with the token's email in the request context.
func Guard(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if validator == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			email, err := validator.ValidateToken(r.Context(), token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), emailContextKey{}, email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
