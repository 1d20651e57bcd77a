package middleware

import (
	"net/http"
	"strings"
)

func readToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(h), "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	if k := r.Header.Get("X-API-Key"); k != "" {
		return strings.TrimSpace(k)
	}
	if c, err := r.Cookie("auth_token"); err == nil {
		return strings.TrimSpace(c.Value)
	}
	return ""
}

func hasToken(given string, set []string) bool {
	if given == "" {
		return false
	}
	for _, k := range set {
		if k == given {
			return true
		}
	}
	return false
}

// RequireToken gates requests on a bearer token, API-key header or auth
// cookie. With no tokens configured it allows all requests (local dev).
func RequireToken(tokens []string) func(http.Handler) http.Handler {
	enabled := len(tokens) > 0
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if hasToken(readToken(r), tokens) {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
		})
	}
}
