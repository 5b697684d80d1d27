package domain

import "regexp"

//nolint:gochecknoglobals
var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9]{4,16}$`)
	passwordPattern = regexp.MustCompile(`^[a-zA-Z0-9!@#$%^&*()\\/;:]{6,}$`)
)

// ValidateUsername reports ErrInvalidUsername unless the username is 4-16
// alphanumeric characters.
func ValidateUsername(username string) error {
	if !usernamePattern.MatchString(username) {
		return ErrInvalidUsername
	}

	return nil
}

// ValidatePassword reports ErrInvalidPassword unless the password is at least
// 6 characters of letters, digits or !@#$%^&*()\/;:.
func ValidatePassword(password string) error {
	if !passwordPattern.MatchString(password) {
		return ErrInvalidPassword
	}

	return nil
}
