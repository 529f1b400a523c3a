package sqlite

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
)

// Payload columns are JSON documents; the structs below pin the stored field
// names independently of the domain types.

type authorizationCodeDoc struct {
	ClientID      string   `json:"client_id"`
	ScopeIDs      []string `json:"scope_ids,omitempty"`
	ClaimNames    []string `json:"claim_names,omitempty"`
	Nonce         string   `json:"nonce,omitempty"`
	RedirectURI   string   `json:"redirect_uri"`
	CodeChallenge string   `json:"code_challenge,omitempty"`
}

type accessTokenDoc struct {
	ClientID       string   `json:"client_id"`
	ScopeIDs       []string `json:"scope_ids,omitempty"`
	ClaimNames     []string `json:"claim_names,omitempty"`
	RefreshTokenID string   `json:"refresh_token_id,omitempty"`
}

type refreshTokenDoc struct {
	ClientID   string   `json:"client_id"`
	ScopeIDs   []string `json:"scope_ids,omitempty"`
	ClaimNames []string `json:"claim_names,omitempty"`
}

type sidTokenDoc struct {
	AuthenticatedAt      int64  `json:"authenticated_at,omitempty"`
	UserAgentFingerprint []byte `json:"ua_fingerprint,omitempty"`
}

// encodePayload returns the client_id column and the JSON payload of p.
func encodePayload(p domain.Payload) (string, string, error) {
	var (
		clientID string
		doc      any
	)
	switch v := p.(type) {
	case *domain.AuthorizationCode:
		clientID = v.ClientID
		doc = authorizationCodeDoc{
			ClientID:      v.ClientID,
			ScopeIDs:      v.ScopeIDs,
			ClaimNames:    v.ClaimNames,
			Nonce:         v.Nonce,
			RedirectURI:   v.RedirectURI,
			CodeChallenge: v.CodeChallenge,
		}
	case *domain.AccessToken:
		clientID = v.ClientID
		doc = accessTokenDoc{
			ClientID:       v.ClientID,
			ScopeIDs:       v.ScopeIDs,
			ClaimNames:     v.ClaimNames,
			RefreshTokenID: v.RefreshTokenID,
		}
	case *domain.RefreshToken:
		clientID = v.ClientID
		doc = refreshTokenDoc{ClientID: v.ClientID, ScopeIDs: v.ScopeIDs, ClaimNames: v.ClaimNames}
	case *domain.OneTimeToken:
		return "", "{}", nil
	case *domain.SidToken:
		doc = sidTokenDoc{
			AuthenticatedAt:      toMillis(v.AuthenticatedAt),
			UserAgentFingerprint: v.UserAgentFingerprint,
		}
	default:
		return "", "", fmt.Errorf("sqlite: unsupported token payload %T", p)
	}

	b, err := json.Marshal(doc)
	if err != nil {
		return "", "", err
	}
	return clientID, string(b), nil
}

func decodePayload(kind domain.TokenKind, data string) (domain.Payload, error) {
	raw := []byte(data)
	switch kind {
	case domain.KindAuthorizationCode:
		var d authorizationCodeDoc
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, err
		}
		return &domain.AuthorizationCode{
			ClientID:      d.ClientID,
			ScopeIDs:      d.ScopeIDs,
			ClaimNames:    d.ClaimNames,
			Nonce:         d.Nonce,
			RedirectURI:   d.RedirectURI,
			CodeChallenge: d.CodeChallenge,
		}, nil
	case domain.KindAccessToken:
		var d accessTokenDoc
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, err
		}
		return &domain.AccessToken{
			ClientID:       d.ClientID,
			ScopeIDs:       d.ScopeIDs,
			ClaimNames:     d.ClaimNames,
			RefreshTokenID: d.RefreshTokenID,
		}, nil
	case domain.KindRefreshToken:
		var d refreshTokenDoc
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, err
		}
		return &domain.RefreshToken{ClientID: d.ClientID, ScopeIDs: d.ScopeIDs, ClaimNames: d.ClaimNames}, nil
	case domain.KindOneTimeToken:
		return &domain.OneTimeToken{}, nil
	case domain.KindSidToken:
		var d sidTokenDoc
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, err
		}
		var authAt time.Time
		if d.AuthenticatedAt != 0 {
			authAt = fromMillis(d.AuthenticatedAt)
		}
		return &domain.SidToken{AuthenticatedAt: authAt, UserAgentFingerprint: d.UserAgentFingerprint}, nil
	default:
		return nil, fmt.Errorf("sqlite: unknown token kind %q", kind)
	}
}
