package http

import (
	"net/http"

	"github.com/aussiebroadwan/idp/internal/idp/service"
	"github.com/aussiebroadwan/idp/pkg/httpx"
	"github.com/aussiebroadwan/idp/pkg/slogx"
)

// ClientAuthMiddleware requires HTTP Basic client credentials and stores
// the client id in the request principal.
func ClientAuthMiddleware(clients *service.ClientAuthenticator) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			clientID, secret, ok := r.BasicAuth()
			if !ok || clients.Authenticate(ctx, clientID, secret) != nil {
				slogx.FromContext(ctx).Info("client authentication failed", "client_id", clientID)
				w.Header().Set("WWW-Authenticate", `Basic realm="idp"`)
				(&httpx.OAuth2Error{
					StatusCode: http.StatusUnauthorized,
					Code:       httpx.ErrCodeInvalidClient,
				}).WriteError(w)
				return
			}

			ctx = slogx.WithAttrs(ctx, "client_id", clientID)
			next.ServeHTTP(w, r.WithContext(httpx.WithPrincipal(ctx, httpx.Principal{ClientID: clientID})))
		})
	}
}

func clientIDFromRequest(r *http.Request) string {
	p, _ := httpx.PrincipalFromContext(r.Context())
	return p.ClientID
}
