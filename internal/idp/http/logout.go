package http

import (
	"net/http"
	"slices"
	"strings"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
	"github.com/aussiebroadwan/idp/internal/idp/service"
	"github.com/aussiebroadwan/idp/pkg/httpx"
	"github.com/aussiebroadwan/idp/pkg/jwtx"
	"github.com/aussiebroadwan/idp/pkg/oauthx"
	"github.com/aussiebroadwan/idp/pkg/slogx"
)

// LogoutPrompt is what a signed-in user is asked to confirm.
type LogoutPrompt struct {
	FormAction  string `json:"form_action"`
	Continue    string `json:"continue,omitempty"`
	ClientID    string `json:"client_id,omitempty"`
	IDTokenHint string `json:"id_token_hint,omitempty"`
}

// LogoutHandler serves /a/logout (OpenID Connect RP-initiated logout).
type LogoutHandler struct {
	Tokens        *service.TokenHandler
	Keys          *jwtx.KeyPair
	Issuer        string
	BaseURL       string
	PortalURL     string
	SecureCookies bool
}

// HandleGet godoc
//
//	@Summary		Start a logout
//	@Description	Validates id_token_hint and post_logout_redirect_uri. Signed-out users are redirected straight away;
//	@Description	signed-in users get the form to confirm with POST.
//	@Tags			Session
//	@Produce		json
//	@Param			id_token_hint				query	string	false	"ID token previously issued to the client"
//	@Param			post_logout_redirect_uri	query	string	false	"Where to send the user afterwards"
//	@Param			state						query	string	false	"Opaque value echoed on the redirect"
//	@Success		200	{object}	LogoutPrompt
//	@Success		303	"Redirect for signed-out users"
//	@Router			/a/logout [get].
func (h *LogoutHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	q := r.URL.Query()

	_, signedIn := sessionFromContext(ctx)

	hint := q.Get("id_token_hint")
	audience := h.hintAudience(r, hint)
	if hint != "" && audience == "" {
		log.Debug("ignoring invalid id_token_hint")
	}

	// Without a hint naming the client, following the redirect would make
	// us an open redirector.
	continueURL := strings.TrimSpace(q.Get("post_logout_redirect_uri"))
	if audience == "" || !oauthx.IsValidRedirectURI(continueURL) {
		continueURL = ""
	}
	if continueURL != "" {
		continueURL = oauthx.NewRedirectURI(continueURL).SetState(q.Get("state")).String()
	}

	if !signedIn {
		h.redirect(w, r, continueURL)
		return
	}

	prompt := LogoutPrompt{
		FormAction: "/a/logout",
		Continue:   continueURL,
		ClientID:   audience,
	}
	if audience != "" {
		prompt.IDTokenHint = hint
	}
	httpx.WriteJSON(w, http.StatusOK, prompt)
}

// HandlePost godoc
//
//	@Summary		Log out
//	@Description	Revokes the current session along with every code and token issued under it, then redirects.
//	@Tags			Session
//	@Accept			application/x-www-form-urlencoded
//	@Param			continue		formData	string	false	"Where to send the user afterwards"
//	@Param			id_token_hint	formData	string	false	"Required when continue leaves this server and the portal"
//	@Success		303	"Redirect to continue"
//	@Failure		400	"Cross-origin request"
//	@Router			/a/logout [post].
func (h *LogoutHandler) HandlePost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Leaving for a client takes the same hint as GET.
	continueURL := strings.TrimSpace(r.PostFormValue("continue"))
	if !oauthx.IsValidRedirectURI(continueURL) {
		continueURL = ""
	} else if !slices.Contains(h.ownOrigins(), httpx.OriginFromURI(continueURL)) &&
		h.hintAudience(r, r.PostFormValue("id_token_hint")) == "" {
		continueURL = ""
	}

	if sid, ok := sessionFromContext(ctx); ok {
		if err := h.Tokens.RevokeToken(ctx, domain.Account{ID: sid.AccountID}, sid); err != nil {
			slogx.FromContext(ctx).Error("failed to revoke session", "sid", sid.ID, "err", err)
		} else {
			slogx.Audit(ctx, slogx.EventLogout, "sid", sid.ID, "account_id", sid.AccountID)
		}
	}

	http.SetCookie(w, expiredSessionCookie(h.SecureCookies))
	h.redirect(w, r, continueURL)
}

// hintAudience returns the client an id_token_hint was issued to, or "" if
// the hint is missing or does not verify. A signed-in user must be its
// subject.
func (h *LogoutHandler) hintAudience(r *http.Request, hint string) string {
	if hint == "" {
		return ""
	}
	subject := ""
	if sid, ok := sessionFromContext(r.Context()); ok {
		subject = sid.AccountID
	}
	return jwtx.AudienceFromHint(hint, h.Keys.Public, h.Issuer, subject)
}

func (h *LogoutHandler) ownOrigins() []string {
	return httpx.StrictRefererOptions{
		BaseURL:     h.BaseURL,
		PortalURL:   h.PortalURL,
		AllowPortal: true,
	}.ExpectedOrigins()
}

func (h *LogoutHandler) redirect(w http.ResponseWriter, r *http.Request, to string) {
	if to == "" {
		to = h.BaseURL
	}
	w.Header().Set("Cache-Control", "no-cache, no-store")
	http.Redirect(w, r, to, http.StatusSeeOther)
}
