package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/yolodolo42/sitepilot/internal/auth"
)

type adminKey struct{}

// AdminFromContext returns the token record that authenticated the request.
func AdminFromContext(ctx context.Context) *auth.AdminToken {
	tok, _ := ctx.Value(adminKey{}).(*auth.AdminToken)
	return tok
}

// RequireAdmin rejects requests without a valid "Authorization: Bearer"
// admin token. A nil verifier rejects everything.
func RequireAdmin(v TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearer(r.Header.Get("Authorization"))
			if !ok || v == nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="sitepilot"`)
				Error(w, http.StatusUnauthorized, "admin token required")
				return
			}
			tok, err := v.VerifyAdminToken(token)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="sitepilot", error="invalid_token"`)
				Error(w, http.StatusUnauthorized, "invalid admin token")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), adminKey{}, tok)))
		})
	}
}

func bearer(header string) (string, bool) {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

// CORS returns middleware that handles CORS headers.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			allowed, explicit := false, false
			for _, o := range allowedOrigins {
				if o == origin {
					allowed, explicit = true, true
					break
				}
				if o == "*" {
					allowed = true
				}
			}

			if allowed && origin != "" {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
				w.Header().Add("Vary", "Origin")
				// Credentials only for explicitly listed origins.
				if explicit {
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				}
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
