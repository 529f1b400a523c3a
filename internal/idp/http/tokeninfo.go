package http

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
	"github.com/aussiebroadwan/idp/internal/idp/service"
	"github.com/aussiebroadwan/idp/internal/idp/store"
	"github.com/aussiebroadwan/idp/pkg/httpx"
	"github.com/aussiebroadwan/idp/pkg/slogx"
)

// TokenInfoResponse describes an access token.
type TokenInfoResponse struct {
	Active    bool   `json:"active"`
	Subject   string `json:"sub,omitempty"`
	ClientID  string `json:"client_id,omitempty"`
	Scope     string `json:"scope,omitempty"`
	TokenType string `json:"token_type,omitempty"`
	IssuedAt  int64  `json:"iat,omitempty"`
	ExpiresAt int64  `json:"exp,omitempty"`
}

func newTokenInfoResponse(t domain.Token) TokenInfoResponse {
	at, _ := domain.PayloadAs[*domain.AccessToken](t)
	return TokenInfoResponse{
		Active:    true,
		Subject:   t.AccountID,
		ClientID:  at.ClientID,
		Scope:     strings.Join(at.ScopeIDs, " "),
		TokenType: "Bearer",
		IssuedAt:  t.CreatedAt.Unix(),
		ExpiresAt: t.ExpiresAt().Unix(),
	}
}

// TokenInfoHandler describes access tokens, either the bearer token of the
// request (GET) or a token submitted by its client (POST).
type TokenInfoHandler struct {
	Tokens *service.TokenHandler
	Store  store.Store
}

// HandleGet godoc
//
//	@Summary		Describe the bearer access token
//	@Description	Returns the account, client, scopes and expiry of the access token used to call it. Requires the openid scope.
//	@Tags			OAuth2
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	TokenInfoResponse
//	@Failure		401	{object}	httpx.OAuth2Error	"invalid_token"
//	@Failure		403	{object}	httpx.OAuth2Error	"insufficient_scope"
//	@Router			/a/tokeninfo [get].
func (h *TokenInfoHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	p, ok := httpx.PrincipalFromContext(ctx)
	if !ok {
		httpx.NewServerError().WriteError(w)
		return
	}

	t, err := h.Store.Tokens().GetToken(ctx, p.TokenID)
	if err != nil {
		// Revoked since the middleware looked it up.
		slogx.FromContext(ctx).Info("tokeninfo lookup failed", "err", err)
		httpx.WriteJSON(w, http.StatusOK, TokenInfoResponse{Active: false})
		return
	}

	httpx.WriteJSON(w, http.StatusOK, newTokenInfoResponse(t))
}

// HandlePost godoc
//
//	@Summary		Introspect an access token
//	@Description	Describes an access token issued to the calling client. Any token that is invalid, or was issued to another client, is reported as inactive.
//	@Tags			OAuth2
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Security		BasicAuth
//	@Param			token	formData	string	true	"The access token"
//	@Success		200		{object}	TokenInfoResponse
//	@Failure		401		{object}	httpx.OAuth2Error	"invalid_client"
//	@Router			/a/tokeninfo [post].
func (h *TokenInfoHandler) HandlePost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	inactive := TokenInfoResponse{Active: false}

	token := strings.TrimSpace(r.PostFormValue("token"))
	if token == "" {
		httpx.WriteJSON(w, http.StatusOK, inactive)
		return
	}

	t, err := h.Tokens.GetCheckedToken(ctx, token, domain.KindAccessToken)
	if err != nil || tokenClientID(t) != clientIDFromRequest(r) {
		httpx.WriteJSON(w, http.StatusOK, inactive)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, newTokenInfoResponse(t))
}
