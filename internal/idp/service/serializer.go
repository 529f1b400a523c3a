package service

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
	"github.com/aussiebroadwan/idp/pkg/idx"
)

// handleSeparator splits the token id from its pass. Neither ULIDs nor
// base64url passes contain it.
const handleSeparator = "/"

var errMalformedHandle = errors.New("service: malformed token handle")

// TokenInfo is what a client-held handle claims about its token. Only ID and
// Pass are checked against the store; the timestamps let obviously expired
// handles be dropped before any lookup.
type TokenInfo struct {
	ID        string
	Pass      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type tokenInfoDoc struct {
	ID  string `json:"id"`
	Iat int64  `json:"iat"`
	Exp int64  `json:"exp"`
}

// Serialize returns the opaque handle given to the client for t.
func Serialize(t domain.Token, pass string) string {
	doc := tokenInfoDoc{
		ID:  t.ID + handleSeparator + pass,
		Iat: t.CreatedAt.Unix(),
		Exp: ceilUnix(t.ExpiresAt()),
	}
	// Marshalling a struct of strings and ints cannot fail.
	b, _ := json.Marshal(doc)
	return base64.RawURLEncoding.EncodeToString(b)
}

// Deserialize decodes a handle produced by Serialize.
func Deserialize(handle string) (TokenInfo, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(handle))
	if err != nil {
		return TokenInfo{}, errMalformedHandle
	}

	var doc tokenInfoDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return TokenInfo{}, errMalformedHandle
	}

	id, pass, ok := strings.Cut(doc.ID, handleSeparator)
	if !ok || pass == "" {
		return TokenInfo{}, errMalformedHandle
	}
	if _, err := idx.Parse(id); err != nil {
		return TokenInfo{}, errMalformedHandle
	}

	return TokenInfo{
		ID:        id,
		Pass:      pass,
		IssuedAt:  time.Unix(doc.Iat, 0).UTC(),
		ExpiresAt: time.Unix(doc.Exp, 0).UTC(),
	}, nil
}

// ceilUnix rounds up so the advertised exp is never earlier than the real
// expiry.
func ceilUnix(t time.Time) int64 {
	if t.Nanosecond() > 0 {
		return t.Unix() + 1
	}
	return t.Unix()
}
