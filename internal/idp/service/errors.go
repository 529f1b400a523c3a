package service

import "errors"

var (
	// ErrAccountNotFound means no account holds the presented token, or the
	// handle could not be read at all.
	ErrAccountNotFound = errors.New("account_not_found")

	// ErrCredentialExpired means the token exists but is expired or the pass
	// does not match.
	ErrCredentialExpired = errors.New("credential_expired")

	ErrInvalidGrant       = errors.New("invalid_grant")
	ErrInvalidClient      = errors.New("invalid_client")
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrInvalidRedirectURI = errors.New("invalid_redirect_uri")
	ErrPasswordTooShort   = errors.New("password_too_short")
)
