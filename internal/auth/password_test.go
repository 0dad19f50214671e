package auth

import (
	"errors"
	"strings"
	"testing"
)

// TestPasswordHashing verifies the hash round trip and that wrong or
// empty passwords are rejected.
func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if hash == "s3cret" {
		t.Fatalf("password stored in plaintext")
	}

	if err := ComparePassword(hash, "s3cret"); err != nil {
		t.Fatalf("correct password rejected: %v", err)
	}
	if err := ComparePassword(hash, "wrong"); err == nil {
		t.Fatalf("wrong password accepted")
	}
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	if _, err := HashPassword(""); !errors.Is(err, ErrEmptyPassword) {
		t.Fatalf("HashPassword(\"\") = %v, want %v", err, ErrEmptyPassword)
	}
}

// TestHashPasswordRejectsOverlong verifies input beyond bcrypt's 72-byte
// limit is rejected instead of silently truncated.
func TestHashPasswordRejectsOverlong(t *testing.T) {
	if _, err := HashPassword(strings.Repeat("a", 73)); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("HashPassword(73 bytes) = %v, want %v", err, ErrPasswordTooLong)
	}
}
