package http

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
	"github.com/aussiebroadwan/idp/internal/idp/service"
	"github.com/aussiebroadwan/idp/pkg/httpx"
	"github.com/aussiebroadwan/idp/pkg/slogx"
)

// RevokeHandler serves POST /a/revoke (RFC 7009). Unknown, expired and
// already revoked tokens all answer 200 since the client cannot act on the
// difference. Revoking a token also revokes every token derived from it.
type RevokeHandler struct {
	Tokens *service.TokenHandler
}

// ServeHTTP godoc
//
//	@Summary		OAuth2 Token Revocation Endpoint
//	@Description	Revokes an authorization code, access token or refresh token issued to the calling client (RFC 7009).
//	@Description	Returns 200 OK for invalid or unknown tokens.
//	@Tags			OAuth2
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Security		BasicAuth
//	@Param			token	formData	string	true	"The token to revoke"
//	@Success		200		"Token revoked (or was already invalid)"
//	@Failure		400		{object}	httpx.OAuth2Error	"invalid_request, unauthorized_client"
//	@Failure		401		{object}	httpx.OAuth2Error	"invalid_client"
//	@Router			/a/revoke [post].
func (h *RevokeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if err := r.ParseForm(); err != nil {
		httpx.NewInvalidRequest("malformed form body").WriteError(w)
		return
	}
	values := r.PostForm["token"]
	if len(values) > 1 {
		httpx.NewInvalidRequest("token included more than once").WriteError(w)
		return
	}
	if len(values) == 0 || strings.TrimSpace(values[0]) == "" {
		httpx.NewInvalidRequest("Missing required parameter: token").WriteError(w)
		return
	}

	t, err := h.Tokens.GetCheckedToken(ctx, strings.TrimSpace(values[0]), "")
	if err != nil {
		log.Debug("revoke of invalid token", "err", err)
		revoked(w)
		return
	}

	if tokenClientID(t) != clientIDFromRequest(r) {
		(&httpx.OAuth2Error{StatusCode: http.StatusBadRequest, Code: httpx.ErrCodeUnauthorizedClient}).WriteError(w)
		return
	}

	if err := h.Tokens.RevokeToken(ctx, domain.Account{ID: t.AccountID}, t); err != nil {
		log.Error("revoke failed", "token_id", t.ID, "err", err)
		httpx.NewServerError().WriteError(w)
		return
	}

	slogx.Audit(ctx, slogx.EventTokenRevoked, "token_id", t.ID, "kind", string(t.Kind()))
	revoked(w)
}

func revoked(w http.ResponseWriter) {
	httpx.NoCache(w)
	w.WriteHeader(http.StatusOK)
}

// tokenClientID returns the client a token was issued to, or "" for
// tokens that belong to no client.
func tokenClientID(t domain.Token) string {
	switch p := t.Payload.(type) {
	case *domain.AuthorizationCode:
		return p.ClientID
	case *domain.AccessToken:
		return p.ClientID
	case *domain.RefreshToken:
		return p.ClientID
	default:
		return ""
	}
}
