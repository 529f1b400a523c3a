package httpx

import (
	"encoding/json"
	"net/http"
	"strings"
)

// WriteJSON writes v as a JSON response with caching disabled.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// NoCache disables caching, as required for every response carrying tokens.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}

// ParseSpaceDelimitedFields splits a space-delimited parameter such as scope.
// It returns nil for blank input.
func ParseSpaceDelimitedFields(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return strings.Fields(s)
}

// OAuth 2.0 error codes (RFC 6749 section 5.2, RFC 6750 section 3.1).
const (
	ErrCodeInvalidRequest     = "invalid_request"
	ErrCodeInvalidGrant       = "invalid_grant"
	ErrCodeInvalidClient      = "invalid_client"
	ErrCodeUnauthorizedClient = "unauthorized_client"
	ErrCodeInvalidToken       = "invalid_token"
	ErrCodeInsufficientScope  = "insufficient_scope"
	ErrCodeServerError        = "server_error"
)

// OAuth2Error is an OAuth 2.0 error response.
type OAuth2Error struct {
	StatusCode  int    `json:"-"`
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func (e *OAuth2Error) Error() string {
	if e.Description == "" {
		return e.Code
	}
	return e.Code + ": " + e.Description
}

// WriteError writes the error as JSON with its status code.
func (e *OAuth2Error) WriteError(w http.ResponseWriter) {
	WriteJSON(w, e.StatusCode, e)
}

// NewInvalidRequest reports a malformed request.
func NewInvalidRequest(desc string) *OAuth2Error {
	return &OAuth2Error{StatusCode: http.StatusBadRequest, Code: ErrCodeInvalidRequest, Description: desc}
}

// NewServerError reports an unexpected failure without leaking details.
func NewServerError() *OAuth2Error {
	return &OAuth2Error{StatusCode: http.StatusInternalServerError, Code: ErrCodeServerError}
}
