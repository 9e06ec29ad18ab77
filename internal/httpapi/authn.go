package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"colschool.org/internal/auth"
)

// publicPaths lists endpoints reachable without a bearer token. The webhook
// authenticates by signature, not by session.
var publicPaths = map[string]struct{}{
	"/healthz":                        {},
	"/readyz":                         {},
	"/metrics":                        {},
	"/v1/info":                        {},
	"/v1/auth/register-student":       {},
	"/v1/auth/verify":                 {},
	"/v1/auth/resend-verification":    {},
	"/v1/auth/password-reset/request": {},
	"/v1/auth/password-reset":         {},
	"/v1/auth/login/student":          {},
	"/v1/auth/login/tutor":            {},
	"/v1/auth/login/admin":            {},
	"/v1/auth/refresh":                {},
	"/v1/payments/webhook":            {},
}

// withAuth resolves the bearer token to a principal for protected paths.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := publicPaths[r.URL.Path]; ok {
			next.ServeHTTP(w, r)
			return
		}
		token, ok := extractBearerToken(r)
		if !ok {
			writeError(w, r, http.StatusUnauthorized, "UNAUTHENTICATED", "missing bearer token")
			return
		}
		p, err := a.auth.AuthenticateAccess(r.Context(), token)
		if err != nil {
			status, code, msg := tokenFailure(err)
			writeError(w, r, status, code, msg)
			return
		}
		if !p.Active {
			writeError(w, r, http.StatusForbidden, "ACCOUNT_DEACTIVATED", "account is deactivated")
			return
		}
		ctx := auth.ContextWithPrincipal(r.Context(), *p)
		ctx = auth.ContextWithToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractBearerToken(r *http.Request) (string, bool) {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if h == "" {
		return "", false
	}
	const prefix = "bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(h[len(prefix):])
	return token, token != ""
}

func tokenFailure(err error) (int, string, string) {
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		return http.StatusUnauthorized, auth.ErrTokenExpired.Code, "token has expired"
	case errors.Is(err, auth.ErrPrincipalNotFound):
		return http.StatusUnauthorized, auth.ErrPrincipalNotFound.Code, "account no longer exists"
	default:
		return http.StatusUnauthorized, auth.ErrTokenMalformed.Code, "token is invalid"
	}
}

// requirePrincipal fetches the authenticated principal or answers 401.
func requirePrincipal(w http.ResponseWriter, r *http.Request) (auth.Principal, bool) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHENTICATED", "authentication required")
		return auth.Principal{}, false
	}
	return p, true
}

// requireCapability answers 403 unless the caller's role grants the
// capability.
func requireCapability(w http.ResponseWriter, r *http.Request, c auth.Capability) (auth.Principal, bool) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return auth.Principal{}, false
	}
	if !p.Role.Can(c) {
		writeError(w, r, http.StatusForbidden, "FORBIDDEN", "insufficient permissions")
		return auth.Principal{}, false
	}
	return p, true
}
