package domain

import "time"

// AuthorizedScopes records what an account granted to a client. There is at
// most one record per (AccountID, ClientID); grants only grow until revoked.
type AuthorizedScopes struct {
	AccountID  string
	ClientID   string
	ScopeIDs   []string
	ClaimNames []string
	UpdatedAt  time.Time
}
