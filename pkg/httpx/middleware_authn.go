package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/idp/pkg/slogx"
)

// BearerAuthenticator resolves a bearer access token to its principal.
// Every failure is reported to the client the same way, so implementations
// need not distinguish unknown, expired and revoked tokens.
type BearerAuthenticator interface {
	AuthenticateBearer(ctx context.Context, token string) (Principal, error)
}

// AuthnMiddleware requires an RFC 6750 bearer token and stores the resolved
// Principal in the request context.
func AuthnMiddleware(a BearerAuthenticator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			raw, ok := bearerToken(r)
			if !ok {
				writeBearerError(w, "missing bearer token")
				return
			}

			p, err := a.AuthenticateBearer(ctx, raw)
			if err != nil {
				slogx.FromContext(ctx).Info("bearer authentication failed", "err", err)
				writeBearerError(w, "invalid or expired token")
				return
			}

			ctx = slogx.WithAttrs(ctx, "account_id", p.AccountID)
			next.ServeHTTP(w, r.WithContext(WithPrincipal(ctx, p)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(authz, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// writeBearerError writes an RFC 6750 invalid_token challenge.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	(&OAuth2Error{StatusCode: http.StatusUnauthorized, Code: ErrCodeInvalidToken, Description: desc}).WriteError(w)
}
