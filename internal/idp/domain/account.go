package domain

import "time"

// Account is the owner of tokens, credentials and authorized scopes. The
// token core only needs its identity.
type Account struct {
	ID        string
	Email     string
	Admin     bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
