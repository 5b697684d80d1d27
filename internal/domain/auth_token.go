package domain

import "errors"

var (
	// ErrNoAuthToken is returned when an authentication token is required but not provided.
	ErrNoAuthToken = errors.New("no auth token")
	// ErrInvalidAuthToken is returned when a token's signature is invalid or it has expired.
	ErrInvalidAuthToken = errors.New("invalid auth token")
)

// AuthTokenCookie is the name of the cookie carrying the session token.
const AuthTokenCookie = "token"

// AuthToken is the validated content of a session token.
type AuthToken struct {
	UserID    int64  `json:"userId"`    // Immutable id of the account the session belongs to
	Username  string `json:"username"`  // Username at login time
	IssuedAt  int64  `json:"issuedAt"`  // Unix timestamp when the token was created
	ExpiresAt int64  `json:"expiresAt"` // Unix timestamp when the token expires
}
