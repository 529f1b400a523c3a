package service

import (
	"errors"
	"time"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
	"github.com/aussiebroadwan/idp/pkg/jwtx"
)

// IDTokenIssuer signs OpenID Connect ID tokens with the process key pair.
type IDTokenIssuer struct {
	Keys   *jwtx.KeyPair
	Issuer string
	TTL    time.Duration
	Now    func() time.Time
}

func NewIDTokenIssuer(keys *jwtx.KeyPair, issuer string, ttl time.Duration) *IDTokenIssuer {
	if ttl <= 0 {
		ttl = jwtx.DefaultIDTokenTTL
	}
	return &IDTokenIssuer{Keys: keys, Issuer: issuer, TTL: ttl, Now: time.Now}
}

// Issue returns a signed ID token asserting accountID to clientID.
func (i *IDTokenIssuer) Issue(accountID, clientID, nonce string, authTime time.Time, sessionID string) (string, error) {
	if accountID == "" || clientID == "" {
		return "", errors.New("service: id token needs a subject and an audience")
	}

	now := time.Now
	if i.Now != nil {
		now = i.Now
	}

	claims := jwtx.NewIDTokenClaims(i.Issuer, accountID, clientID, nonce, authTime, now(), i.TTL)
	claims.SessionID = sessionID
	return i.Keys.Sign(claims)
}

// IssueForGrant signs the ID token accompanying a redeemed authorization
// code.
func (i *IDTokenIssuer) IssueForGrant(g Grant) (string, error) {
	t := g.AccessToken.Token
	at, ok := domain.PayloadAs[*domain.AccessToken](t)
	if !ok {
		return "", ErrInvalidGrant
	}
	return i.Issue(t.AccountID, at.ClientID, g.Nonce, g.AuthTime, g.SessionID)
}
