package domain

import "time"

// TokenKind identifies the variant of a Token.
type TokenKind string

const (
	KindAuthorizationCode TokenKind = "authorization_code"
	KindAccessToken       TokenKind = "access_token"
	KindRefreshToken      TokenKind = "refresh_token"
	KindOneTimeToken      TokenKind = "one_time_token"
	KindSidToken          TokenKind = "sid_token"
)

// Token is a server-side credential owned by an account.
//
// A token is valid while now < CreatedAt+TTL and it is still stored; there is
// no way back once it has expired or been revoked. The pass handed to the
// client is never stored, only its Hash and Salt.
type Token struct {
	ID        string
	AccountID string
	CreatedAt time.Time
	TTL       time.Duration

	// AncestorIDs lists the tokens this one was derived from, oldest first.
	// Revoking an ancestor revokes this token too.
	AncestorIDs []string

	Hash []byte
	Salt []byte

	Payload Payload
}

// Kind returns the variant of t, or "" when it has no payload.
func (t Token) Kind() TokenKind {
	if t.Payload == nil {
		return ""
	}
	return t.Payload.Kind()
}

// ExpiresAt is CreatedAt+TTL.
func (t Token) ExpiresAt() time.Time {
	return t.CreatedAt.Add(t.TTL)
}

// ExpiredAt reports whether t is expired at now.
func (t Token) ExpiredAt(now time.Time) bool {
	return !now.Before(t.ExpiresAt())
}

// Lineage returns the ancestors of a token derived from t.
func (t Token) Lineage() []string {
	out := make([]string, 0, len(t.AncestorIDs)+1)
	out = append(out, t.AncestorIDs...)
	return append(out, t.ID)
}

// Payload holds the variant-specific fields of a Token.
type Payload interface {
	Kind() TokenKind
	isPayload()
}

// PayloadAs returns the payload of t as P.
func PayloadAs[P Payload](t Token) (P, bool) {
	p, ok := t.Payload.(P)
	return p, ok
}

// AuthorizationCode is the single-use code of the authorization code grant.
type AuthorizationCode struct {
	ClientID      string
	ScopeIDs      []string
	ClaimNames    []string
	Nonce         string
	RedirectURI   string
	CodeChallenge string
}

// AccessToken is a bearer token granted to a client.
type AccessToken struct {
	ClientID   string
	ScopeIDs   []string
	ClaimNames []string

	// RefreshTokenID is set when the token was minted from a refresh token.
	RefreshTokenID string
}

// RefreshToken mints new access tokens for a client.
type RefreshToken struct {
	ClientID   string
	ScopeIDs   []string
	ClaimNames []string
}

// OneTimeToken bridges one authentication step to the next.
type OneTimeToken struct{}

// SidToken is a browser session.
type SidToken struct {
	AuthenticatedAt      time.Time
	UserAgentFingerprint []byte
}

func (*AuthorizationCode) Kind() TokenKind { return KindAuthorizationCode }
func (*AccessToken) Kind() TokenKind       { return KindAccessToken }
func (*RefreshToken) Kind() TokenKind      { return KindRefreshToken }
func (*OneTimeToken) Kind() TokenKind      { return KindOneTimeToken }
func (*SidToken) Kind() TokenKind          { return KindSidToken }

func (*AuthorizationCode) isPayload() {}
func (*AccessToken) isPayload()       {}
func (*RefreshToken) isPayload()      {}
func (*OneTimeToken) isPayload()      {}
func (*SidToken) isPayload()          {}

// NewPayload returns an empty payload for kind, or nil when kind is unknown.
func NewPayload(kind TokenKind) Payload {
	switch kind {
	case KindAuthorizationCode:
		return &AuthorizationCode{}
	case KindAccessToken:
		return &AccessToken{}
	case KindRefreshToken:
		return &RefreshToken{}
	case KindOneTimeToken:
		return &OneTimeToken{}
	case KindSidToken:
		return &SidToken{}
	default:
		return nil
	}
}
