package domain

import "errors"

var (
	// ErrUserAlreadyExists is returned when a username is already taken.
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrUserNotFound is returned when looking up a non-existent user.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredentials is returned when the username/password combination is incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidUsername is returned when a username does not satisfy the username rules.
	ErrInvalidUsername = errors.New("invalid username")
	// ErrInvalidPassword is returned when a password does not satisfy the password rules.
	ErrInvalidPassword = errors.New("invalid password")
	// ErrUsernameUnchanged is returned when a rename targets the current username.
	ErrUsernameUnchanged = errors.New("username unchanged")
)

// User represents a registered account.
type User struct {
	ID           int64  // Unique identifier
	Username     string // Login username
	PasswordHash []byte // bcrypt hash
	CreatedAt    int64  // Unix timestamp of account creation
	UpdatedAt    int64  // Unix timestamp of the last username change
}
