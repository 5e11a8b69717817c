package auth

import (
	"regexp"

	"golang.org/x/crypto/bcrypt"
)

const (
	// BcryptCost is the cost factor for bcrypt hashing
	BcryptCost = 10
	// MinPasswordLength is the default minimum password length
	MinPasswordLength = 8
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

	hasUpper   = regexp.MustCompile(`[A-Z]`)
	hasLower   = regexp.MustCompile(`[a-z]`)
	hasNumber  = regexp.MustCompile(`[0-9]`)
	hasSpecial = regexp.MustCompile(`[!@#$%^&*()_+\-=\[\]{};':"\\|,.<>\/?]`)
)

// HashPassword hashes a password using bcrypt
func HashPassword(password string) ([]byte, error) {
	if password == "" {
		return nil, ErrEmptyPassword
	}
	return bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
}

// ValidatePassword checks if a password matches the hash
func ValidatePassword(password string, hash []byte) error {
	return bcrypt.CompareHashAndPassword(hash, []byte(password))
}

// CheckPasswordStrength validates password strength. A minLength below one
// falls back to MinPasswordLength.
func CheckPasswordStrength(password string, minLength int, requireStrong bool) error {
	if password == "" {
		return ErrEmptyPassword
	}
	if minLength < 1 {
		minLength = MinPasswordLength
	}
	if len(password) < minLength {
		return ErrPasswordTooShort
	}
	if !requireStrong {
		return nil
	}

	if !hasUpper.MatchString(password) ||
		!hasLower.MatchString(password) ||
		!hasNumber.MatchString(password) ||
		!hasSpecial.MatchString(password) {
		return ErrWeakPassword
	}
	return nil
}

// ValidateUsername validates username format. Usernames become part of the
// account's subject id, so only alphanumerics, underscore and hyphen pass.
func ValidateUsername(username string) error {
	if len(username) < 3 || len(username) > 50 {
		return ErrInvalidUsername
	}
	if !usernamePattern.MatchString(username) {
		return ErrInvalidUsername
	}
	return nil
}
