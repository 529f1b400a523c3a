package http

import (
	"bytes"
	"context"
	"net/http"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
	"github.com/aussiebroadwan/idp/internal/idp/service"
	"github.com/aussiebroadwan/idp/pkg/cryptox"
	"github.com/aussiebroadwan/idp/pkg/httpx"
	"github.com/aussiebroadwan/idp/pkg/slogx"
)

// SessionCookieName holds the sid token handle.
const SessionCookieName = "SID"

type sessionCtxKey struct{}

func withSession(ctx context.Context, sid domain.Token) context.Context {
	return context.WithValue(ctx, sessionCtxKey{}, sid)
}

func sessionFromContext(ctx context.Context) (domain.Token, bool) {
	sid, ok := ctx.Value(sessionCtxKey{}).(domain.Token)
	return sid, ok
}

// SessionMiddleware resolves the SID cookie to its sid token. A session is
// only usable by the user agent that opened it. Stale cookies are expired
// on the response; requests without a session still reach next.
func SessionMiddleware(tokens *service.TokenHandler, secure bool) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("Vary", "Cookie")

			c, err := r.Cookie(SessionCookieName)
			if err != nil || c.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			sid, err := tokens.GetCheckedToken(ctx, c.Value, domain.KindSidToken)
			if err == nil {
				p, _ := domain.PayloadAs[*domain.SidToken](sid)
				if p.UserAgentFingerprint != nil && !bytes.Equal(p.UserAgentFingerprint, cryptox.Fingerprint(r.UserAgent())) {
					slogx.FromContext(ctx).Info("session used from another user agent", "sid", sid.ID)
					err = service.ErrInvalidGrant
				}
			}
			if err != nil {
				http.SetCookie(w, expiredSessionCookie(secure))
				next.ServeHTTP(w, r)
				return
			}

			ctx = slogx.WithAttrs(ctx, "account_id", sid.AccountID)
			next.ServeHTTP(w, r.WithContext(withSession(ctx, sid)))
		})
	}
}

// SessionCookie returns the cookie carrying a sid token handle.
func SessionCookie(handle string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    handle,
		Path:     "/",
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

func expiredSessionCookie(secure bool) *http.Cookie {
	c := SessionCookie("", secure)
	c.MaxAge = -1
	return c
}
