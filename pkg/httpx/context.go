package httpx

import "context"

type ctxKey string

const (
	ctxKeyPrincipal ctxKey = "principal"
)

// Principal is the caller authenticated by a bearer access token.
type Principal struct {
	AccountID string
	ClientID  string
	TokenID   string
	Scopes    []string
}

// WithPrincipal attaches p to ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKeyPrincipal, p)
}

// PrincipalFromContext returns the authenticated caller, if any.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKeyPrincipal).(Principal)
	return p, ok
}

func scopesFromCtx(ctx context.Context) []string {
	if p, ok := PrincipalFromContext(ctx); ok {
		return p.Scopes
	}
	return nil
}
