package domain

import "time"

// CredentialsType tells user passwords and client secrets apart; both are
// keyed by the owner's id.
type CredentialsType string

const (
	CredentialsUser   CredentialsType = "user"
	CredentialsClient CredentialsType = "client"
)

// Credentials is a password hash and the salt it was hashed with.
type Credentials struct {
	Type      CredentialsType
	ID        string
	Hash      []byte
	Salt      []byte
	UpdatedAt time.Time
}
