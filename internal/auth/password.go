package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt silently ignores input beyond 72 bytes, so longer passwords are
// rejected outright rather than truncated.
const maxPasswordBytes = 72

var (
	ErrEmptyPassword   = errors.New("empty password")
	ErrPasswordTooLong = errors.New("password exceeds 72 bytes")
)

// HashPassword derives a bcrypt hash from the plaintext.
func HashPassword(plaintext string) (string, error) {
	switch {
	case plaintext == "":
		return "", ErrEmptyPassword
	case len(plaintext) > maxPasswordBytes:
		return "", ErrPasswordTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// ComparePassword checks plaintext against the stored bcrypt hash,
// returning bcrypt.ErrMismatchedHashAndPassword on a mismatch.
func ComparePassword(hash, plaintext string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
}
