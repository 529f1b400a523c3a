package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
	"github.com/aussiebroadwan/idp/internal/idp/store"
	"github.com/aussiebroadwan/idp/pkg/cryptox"
	"github.com/aussiebroadwan/idp/pkg/idx"
	"github.com/aussiebroadwan/idp/pkg/oauthx"
	"github.com/aussiebroadwan/idp/pkg/slogx"
)

// Token lifetimes.
const (
	DefaultAuthorizationCodeTTL = time.Minute
	DefaultAccessTokenTTL       = time.Hour
	DefaultSidTokenTTL          = 2 * time.Hour

	// DefaultRefreshTokenTTL stands in for "never expires".
	DefaultRefreshTokenTTL = 100 * 365 * 24 * time.Hour

	// OneTimeTokenTTL is fixed.
	OneTimeTokenTTL = 60 * time.Second
)

// ErrInvalidScope is returned when a refresh asks for scopes the refresh
// token was never granted.
var ErrInvalidScope = errors.New("invalid_scope")

// errTokenGone marks a handle whose token is no longer stored, as opposed
// to one that is present but fails its checks.
var errTokenGone = fmt.Errorf("%w: unknown token", ErrInvalidGrant)

// TokenConfig holds the configurable token lifetimes. Zero values use the
// defaults.
type TokenConfig struct {
	AuthorizationCodeTTL time.Duration
	AccessTokenTTL       time.Duration
	RefreshTokenTTL      time.Duration
	SidTokenTTL          time.Duration
}

func (c TokenConfig) withDefaults() TokenConfig {
	if c.AuthorizationCodeTTL <= 0 {
		c.AuthorizationCodeTTL = DefaultAuthorizationCodeTTL
	}
	if c.AccessTokenTTL <= 0 {
		c.AccessTokenTTL = DefaultAccessTokenTTL
	}
	if c.RefreshTokenTTL <= 0 {
		c.RefreshTokenTTL = DefaultRefreshTokenTTL
	}
	if c.SidTokenTTL <= 0 {
		c.SidTokenTTL = DefaultSidTokenTTL
	}
	return c
}

// Issued is a freshly minted token and the handle the client presents. The
// handle is the only place the pass ever appears.
type Issued struct {
	Token  domain.Token
	Handle string
}

// Grant is the result of redeeming an authorization code.
type Grant struct {
	AccessToken  Issued
	RefreshToken *Issued // set when offline_access was granted

	// Nonce, SessionID and AuthTime feed the ID token.
	Nonce     string
	SessionID string
	AuthTime  time.Time
}

// CodeRequest carries what an authorization request asked for.
type CodeRequest struct {
	ClientID      string
	ScopeIDs      []string
	ClaimNames    []string
	Nonce         string
	RedirectURI   string
	CodeChallenge string
}

// TokenHandler mints, checks and revokes tokens.
//
// A token is valid while now < CreatedAt+TTL and the token is still stored
// on its account. Expired tokens stay stored until a sweep removes them;
// revoked tokens are gone. Neither ever becomes valid again.
type TokenHandler struct {
	Store  store.Store
	Hasher cryptox.PasswordHasher
	Config TokenConfig

	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

func NewTokenHandler(st store.Store, hasher cryptox.PasswordHasher, cfg TokenConfig) *TokenHandler {
	return &TokenHandler{
		Store:  st,
		Hasher: hasher,
		Config: cfg.withDefaults(),
		Now:    time.Now,
	}
}

func (h *TokenHandler) now() time.Time {
	if h.Now == nil {
		return time.Now().UTC()
	}
	return h.Now().UTC()
}

// CheckTokenValidity reports whether t is unexpired and still held by
// account. Storage errors count as invalid.
func (h *TokenHandler) CheckTokenValidity(ctx context.Context, account domain.Account, t *domain.Token) bool {
	if t == nil {
		return false
	}
	if t.ExpiredAt(h.now()) {
		return false
	}

	ok, err := h.Store.Tokens().HasToken(ctx, account.ID, t.ID)
	if err != nil {
		slogx.FromContext(ctx).Error("token lookup failed", "token_id", t.ID, "err", err)
		return false
	}
	return ok
}

// CleanUpTokens removes every invalid token of account in one batch and
// returns how many were removed. Tokens revoked concurrently are skipped
// and tokens created after the listing are untouched.
func (h *TokenHandler) CleanUpTokens(ctx context.Context, account domain.Account) (int64, error) {
	now := h.now()

	tokens, err := h.Store.Tokens().ListAccountTokens(ctx, account.ID)
	if err != nil {
		return 0, err
	}

	// Listed tokens are present, so only expiry can make them invalid.
	var stale []string
	for _, t := range tokens {
		if t.ExpiredAt(now) {
			stale = append(stale, t.ID)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}

	return h.Store.Tokens().DeleteTokens(ctx, account.ID, stale)
}

// CreateAccessToken mints an access token for account. A ttl of zero uses
// the configured access token lifetime. When refresh is set, the new token
// inherits its client and grants and is revoked along with it.
func (h *TokenHandler) CreateAccessToken(ctx context.Context, account domain.Account, ttl time.Duration, refresh *domain.Token) (Issued, error) {
	if ttl <= 0 {
		ttl = h.Config.AccessTokenTTL
	}

	if refresh == nil {
		return h.mint(ctx, h.Store.Tokens(), account.ID, ttl, nil, &domain.AccessToken{})
	}

	if refresh.AccountID != account.ID {
		return Issued{}, ErrInvalidGrant
	}
	rt, ok := domain.PayloadAs[*domain.RefreshToken](*refresh)
	if !ok {
		return Issued{}, ErrInvalidGrant
	}
	return h.mintUnder(ctx, *refresh, func(tokens store.Tokens) (Issued, error) {
		return h.mintFromRefresh(ctx, tokens, *refresh, rt, rt.ScopeIDs, ttl)
	})
}

// CreateOneTimeAccessToken mints a one-time token, valid for 60 seconds.
func (h *TokenHandler) CreateOneTimeAccessToken(ctx context.Context, account domain.Account) (Issued, error) {
	return h.mint(ctx, h.Store.Tokens(), account.ID, OneTimeTokenTTL, nil, &domain.OneTimeToken{})
}

// CreateRefreshToken mints a refresh token that does not expire in any
// realistic deployment lifetime.
func (h *TokenHandler) CreateRefreshToken(ctx context.Context, account domain.Account) (Issued, error) {
	return h.mint(ctx, h.Store.Tokens(), account.ID, h.Config.RefreshTokenTTL, nil, &domain.RefreshToken{})
}

// OneTimeTokenToAccessToken consumes oneTime and mints an access token in
// its place. Of two concurrent exchanges only the one that actually removes
// the one-time token succeeds; the other gets ErrInvalidGrant.
func (h *TokenHandler) OneTimeTokenToAccessToken(ctx context.Context, account domain.Account, oneTime domain.Token) (Issued, error) {
	if oneTime.Kind() != domain.KindOneTimeToken || !h.CheckTokenValidity(ctx, account, &oneTime) {
		return Issued{}, ErrInvalidGrant
	}

	var issued Issued
	err := h.Store.WithTx(ctx, func(tx store.Tx) error {
		n, err := tx.Tokens().DeleteTokens(ctx, account.ID, []string{oneTime.ID})
		if err != nil {
			return err
		}
		if n != 1 {
			return ErrInvalidGrant
		}

		issued, err = h.mint(ctx, tx.Tokens(), account.ID, h.Config.AccessTokenTTL, nil, &domain.AccessToken{})
		return err
	})
	if err != nil {
		return Issued{}, err
	}
	return issued, nil
}

// RevokeToken removes t and everything derived from it from account.
// Revoking a token that is already gone, or that account does not hold, is
// a no-op.
func (h *TokenHandler) RevokeToken(ctx context.Context, account domain.Account, t domain.Token) error {
	return h.Store.WithTx(ctx, func(tx store.Tx) error {
		held, err := tx.Tokens().HasToken(ctx, account.ID, t.ID)
		if err != nil || !held {
			return err
		}
		_, err = tx.Tokens().RevokeToken(ctx, t.ID)
		return err
	})
}

// EndSessions logs account out of every browser session. Codes and
// access tokens minted under those sessions go with them; refresh tokens
// and their access tokens do not.
func (h *TokenHandler) EndSessions(ctx context.Context, account domain.Account) (int64, error) {
	var n int64
	err := h.Store.WithTx(ctx, func(tx store.Tx) error {
		tokens, err := tx.Tokens().ListAccountTokens(ctx, account.ID)
		if err != nil {
			return err
		}

		n, err = tx.Tokens().RevokeTokensForAccount(ctx, account.ID, domain.KindSidToken)
		if err != nil {
			return err
		}
		for _, t := range tokens {
			if t.Kind() != domain.KindSidToken {
				continue
			}
			revoked, err := tx.Tokens().RevokeDescendants(ctx, t.ID)
			if err != nil {
				return err
			}
			n += revoked
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// CreateSidToken opens a browser session for account.
func (h *TokenHandler) CreateSidToken(ctx context.Context, account domain.Account, userAgent string) (Issued, error) {
	payload := &domain.SidToken{
		AuthenticatedAt:      h.now().Truncate(time.Millisecond),
		UserAgentFingerprint: cryptox.Fingerprint(userAgent),
	}
	return h.mint(ctx, h.Store.Tokens(), account.ID, h.Config.SidTokenTTL, nil, payload)
}

// CreateAuthorizationCode mints an authorization code under the session
// sid, which must still be held. Logging out revokes the code with the
// session.
func (h *TokenHandler) CreateAuthorizationCode(ctx context.Context, sid domain.Token, req CodeRequest) (Issued, error) {
	if sid.Kind() != domain.KindSidToken {
		return Issued{}, ErrInvalidGrant
	}
	if req.ClientID == "" {
		return Issued{}, ErrInvalidClient
	}
	if !oauthx.IsValidRedirectURI(req.RedirectURI) {
		return Issued{}, ErrInvalidRedirectURI
	}

	payload := &domain.AuthorizationCode{
		ClientID:      req.ClientID,
		ScopeIDs:      slices.Clone(req.ScopeIDs),
		ClaimNames:    slices.Clone(req.ClaimNames),
		Nonce:         req.Nonce,
		RedirectURI:   req.RedirectURI,
		CodeChallenge: req.CodeChallenge,
	}
	return h.mintUnder(ctx, sid, func(tokens store.Tokens) (Issued, error) {
		return h.mint(ctx, tokens, sid.AccountID, h.Config.AuthorizationCodeTTL, sid.Lineage(), payload)
	})
}

// RedeemAuthorizationCode checks a code handle and exchanges it. A handle
// naming a code that is already gone is treated as a replay and everything
// minted from that code is revoked.
func (h *TokenHandler) RedeemAuthorizationCode(ctx context.Context, handle, clientID, redirectURI, codeVerifier string) (Grant, error) {
	info, err := Deserialize(handle)
	if err != nil {
		return Grant{}, ErrInvalidGrant
	}

	code, err := h.checkToken(ctx, info, domain.KindAuthorizationCode)
	if errors.Is(err, errTokenGone) {
		if _, rerr := h.ReportCodeReuse(ctx, info.ID); rerr != nil {
			slogx.FromContext(ctx).Error("code reuse revocation failed", "code_id", info.ID, "err", rerr)
		}
		return Grant{}, ErrInvalidGrant
	}
	if err != nil {
		return Grant{}, err
	}

	return h.ExchangeAuthorizationCode(ctx, code, clientID, redirectURI, codeVerifier)
}

// ExchangeAuthorizationCode consumes code and mints an access token for
// the client, plus a refresh token when offline_access was granted. Every
// minted token lists the code among its ancestors. A refresh token
// descends from the code alone, so logging out of the session leaves
// offline access in place.
func (h *TokenHandler) ExchangeAuthorizationCode(ctx context.Context, code domain.Token, clientID, redirectURI, codeVerifier string) (Grant, error) {
	log := slogx.FromContext(ctx)

	ac, ok := domain.PayloadAs[*domain.AuthorizationCode](code)
	if !ok || code.ExpiredAt(h.now()) {
		return Grant{}, ErrInvalidGrant
	}
	if ac.ClientID != clientID {
		log.Info("authorization code presented by another client", "client_id", clientID)
		return Grant{}, ErrInvalidGrant
	}
	if ac.RedirectURI != redirectURI {
		log.Info("authorization code redirect_uri mismatch", "client_id", clientID)
		return Grant{}, ErrInvalidGrant
	}
	if !verifyCodeChallenge(ac.CodeChallenge, codeVerifier) {
		return Grant{}, ErrInvalidGrant
	}

	grant := Grant{Nonce: ac.Nonce}
	err := h.Store.WithTx(ctx, func(tx store.Tx) error {
		n, err := tx.Tokens().DeleteTokens(ctx, code.AccountID, []string{code.ID})
		if err != nil {
			return err
		}
		if n != 1 {
			return errTokenGone
		}

		// The session is the last ancestor of a code.
		if len(code.AncestorIDs) > 0 {
			sidID := code.AncestorIDs[len(code.AncestorIDs)-1]
			if sid, err := tx.Tokens().GetToken(ctx, sidID); err == nil {
				if p, ok := domain.PayloadAs[*domain.SidToken](sid); ok {
					grant.SessionID = sid.ID
					grant.AuthTime = p.AuthenticatedAt
				}
			} else if !errors.Is(err, store.ErrNotFound) {
				return err
			}
		}

		if !slices.Contains(ac.ScopeIDs, oauthx.ScopeOfflineAccess) {
			grant.AccessToken, err = h.mint(ctx, tx.Tokens(), code.AccountID, h.Config.AccessTokenTTL, code.Lineage(),
				&domain.AccessToken{
					ClientID:   ac.ClientID,
					ScopeIDs:   slices.Clone(ac.ScopeIDs),
					ClaimNames: slices.Clone(ac.ClaimNames),
				})
			return err
		}

		refresh, err := h.mint(ctx, tx.Tokens(), code.AccountID, h.Config.RefreshTokenTTL, []string{code.ID},
			&domain.RefreshToken{
				ClientID:   ac.ClientID,
				ScopeIDs:   slices.Clone(ac.ScopeIDs),
				ClaimNames: slices.Clone(ac.ClaimNames),
			})
		if err != nil {
			return err
		}
		grant.RefreshToken = &refresh

		rt, _ := domain.PayloadAs[*domain.RefreshToken](refresh.Token)
		grant.AccessToken, err = h.mintFromRefresh(ctx, tx.Tokens(), refresh.Token, rt, rt.ScopeIDs, h.Config.AccessTokenTTL)
		return err
	})
	if errors.Is(err, errTokenGone) {
		if _, rerr := h.ReportCodeReuse(ctx, code.ID); rerr != nil {
			log.Error("code reuse revocation failed", "code_id", code.ID, "err", rerr)
		}
		return Grant{}, ErrInvalidGrant
	}
	if err != nil {
		return Grant{}, err
	}
	return grant, nil
}

// RefreshAccessToken mints an access token from a refresh token handle,
// optionally narrowed to scopeIDs.
func (h *TokenHandler) RefreshAccessToken(ctx context.Context, handle, clientID string, scopeIDs []string) (Issued, error) {
	refresh, err := h.GetCheckedToken(ctx, handle, domain.KindRefreshToken)
	if err != nil {
		return Issued{}, err
	}

	rt, _ := domain.PayloadAs[*domain.RefreshToken](refresh)
	if rt.ClientID != clientID {
		return Issued{}, ErrInvalidGrant
	}

	if len(scopeIDs) == 0 {
		scopeIDs = rt.ScopeIDs
	}
	for _, s := range scopeIDs {
		if !slices.Contains(rt.ScopeIDs, s) {
			return Issued{}, ErrInvalidScope
		}
	}

	return h.mintUnder(ctx, refresh, func(tokens store.Tokens) (Issued, error) {
		return h.mintFromRefresh(ctx, tokens, refresh, rt, scopeIDs, h.Config.AccessTokenTTL)
	})
}

// GetCheckedToken resolves a client-held handle to its stored token of the
// given kind. Every failure is ErrInvalidGrant so callers cannot tell an
// unknown token from an expired, revoked or mistyped one.
func (h *TokenHandler) GetCheckedToken(ctx context.Context, handle string, kind domain.TokenKind) (domain.Token, error) {
	info, err := Deserialize(handle)
	if err != nil {
		return domain.Token{}, ErrInvalidGrant
	}

	t, err := h.checkToken(ctx, info, kind)
	if errors.Is(err, errTokenGone) {
		return domain.Token{}, ErrInvalidGrant
	}
	return t, err
}

// ReportCodeReuse revokes every token minted from a replayed authorization
// code and records an audit event when anything was revoked.
func (h *TokenHandler) ReportCodeReuse(ctx context.Context, codeID string) (int64, error) {
	n, err := h.Store.Tokens().RevokeDescendants(ctx, codeID)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		slogx.Audit(ctx, slogx.EventCodeReuse,
			slog.String("code_id", codeID),
			slog.Int64("revoked", n),
		)
	}
	return n, nil
}

func (h *TokenHandler) checkToken(ctx context.Context, info TokenInfo, kind domain.TokenKind) (domain.Token, error) {
	now := h.now()

	// A forged handle should at least look unexpired; this saves a lookup.
	if info.ExpiresAt.Before(now) {
		return domain.Token{}, ErrInvalidGrant
	}

	t, err := h.Store.Tokens().GetToken(ctx, info.ID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Token{}, errTokenGone
	}
	if err != nil {
		return domain.Token{}, err
	}

	if t.ExpiredAt(now) || !h.Hasher.CheckPassword(info.Pass, t.Hash, t.Salt) {
		return domain.Token{}, ErrInvalidGrant
	}
	if kind != "" && t.Kind() != kind {
		return domain.Token{}, ErrInvalidGrant
	}
	return t, nil
}

func (h *TokenHandler) mintFromRefresh(ctx context.Context, tokens store.Tokens, refresh domain.Token, rt *domain.RefreshToken, scopeIDs []string, ttl time.Duration) (Issued, error) {
	payload := &domain.AccessToken{
		ClientID:       rt.ClientID,
		ScopeIDs:       slices.Clone(scopeIDs),
		ClaimNames:     slices.Clone(rt.ClaimNames),
		RefreshTokenID: refresh.ID,
	}
	return h.mint(ctx, tokens, refresh.AccountID, ttl, refresh.Lineage(), payload)
}

// mintUnder runs mintFn in a transaction, after checking that parent is
// still held.
func (h *TokenHandler) mintUnder(ctx context.Context, parent domain.Token, mintFn func(tokens store.Tokens) (Issued, error)) (Issued, error) {
	var issued Issued
	err := h.Store.WithTx(ctx, func(tx store.Tx) error {
		held, err := tx.Tokens().HasToken(ctx, parent.AccountID, parent.ID)
		if err != nil {
			return err
		}
		if !held {
			return ErrInvalidGrant
		}
		issued, err = mintFn(tx.Tokens())
		return err
	})
	if err != nil {
		return Issued{}, err
	}
	return issued, nil
}

// mint secures a new token with a random pass and registers it through
// tokens, which may belong to a transaction.
func (h *TokenHandler) mint(ctx context.Context, tokens store.Tokens, accountID string, ttl time.Duration, ancestors []string, payload domain.Payload) (Issued, error) {
	pass, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		return Issued{}, err
	}
	salt, err := h.Hasher.CreateSalt()
	if err != nil {
		return Issued{}, err
	}
	hash, err := h.Hasher.HashPassword(pass, salt)
	if err != nil {
		return Issued{}, err
	}

	now := h.now().Truncate(time.Millisecond)
	t := domain.Token{
		ID:          idx.NewAt(now).String(),
		AccountID:   accountID,
		CreatedAt:   now,
		TTL:         ttl,
		AncestorIDs: ancestors,
		Hash:        hash,
		Salt:        salt,
		Payload:     payload,
	}

	if err := tokens.CreateToken(ctx, t); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Issued{}, ErrAccountNotFound
		}
		return Issued{}, fmt.Errorf("service: register %s: %w", payload.Kind(), err)
	}

	return Issued{Token: t, Handle: Serialize(t, pass)}, nil
}

// verifyCodeChallenge checks an RFC 7636 S256 verifier. Codes minted
// without a challenge accept any verifier.
func verifyCodeChallenge(challenge, verifier string) bool {
	if challenge == "" {
		return true
	}
	if verifier == "" {
		return false
	}
	sum := sha256.Sum256([]byte(verifier))
	expected := base64.RawURLEncoding.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(challenge), []byte(expected)) == 1
}
