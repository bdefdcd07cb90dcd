package auth

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

const (
	// MinPasswordLength applies to every password we hash, including the
	// bootstrap admin's.
	MinPasswordLength = 12

	// MaxPasswordLength is bcrypt's input limit in bytes. Longer passwords
	// are rejected rather than silently truncated.
	MaxPasswordLength = 72

	bcryptCost = 12
)

var (
	ErrPasswordTooShort = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrPasswordTooLong  = fmt.Errorf("password must be at most %d bytes", MaxPasswordLength)
	ErrPasswordMismatch = errors.New("password does not match")
)

// CheckPasswordLength reports whether password is an acceptable length to hash.
func CheckPasswordLength(password string) error {
	switch {
	case len(password) < MinPasswordLength:
		return ErrPasswordTooShort
	case len(password) > MaxPasswordLength:
		return ErrPasswordTooLong
	}
	return nil
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	if err := CheckPasswordLength(password); err != nil {
		return "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword compares password with a stored hash. A wrong password
// yields ErrPasswordMismatch; a corrupt hash yields a wrapped error.
func VerifyPassword(password, hash string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	if err != nil {
		return fmt.Errorf("failed to verify password: %w", err)
	}
	return nil
}

var decoyHash = sync.OnceValue(func() []byte {
	h, err := bcrypt.GenerateFromPassword([]byte("lasz-decoy-password"), bcryptCost)
	if err != nil {
		panic(fmt.Sprintf("auth: decoy hash: %v", err))
	}
	return h
})

// VerifyDecoy runs a full-cost comparison against a throwaway hash. Sign-in
// calls it for unknown emails so they take as long as a wrong password.
func VerifyDecoy(password string) {
	_ = bcrypt.CompareHashAndPassword(decoyHash(), []byte(password))
}
