package auth

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// MinAdminPasswordLength is the shortest admin password accepted for hashing.
const MinAdminPasswordLength = 8

var (
	// ErrPasswordMismatch means the password does not match the configured hash.
	ErrPasswordMismatch = errors.New("auth: password mismatch")
	// ErrWeakPassword rejects admin passwords that are too short to hash.
	ErrWeakPassword = fmt.Errorf("auth: admin password must be at least %d characters", MinAdminPasswordLength)
)

// HashAdminPassword produces the value for AUTH_ADMIN_PASSWORD_HASH. A cost
// of zero uses bcrypt's default.
func HashAdminPassword(password string, cost int) (string, error) {
	password = strings.TrimRight(password, "\r\n")
	if len(password) < MinAdminPasswordLength {
		return "", ErrWeakPassword
	}
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash admin password: %w", err)
	}
	return string(hashed), nil
}

// CheckAdminPassword verifies plain against the configured hash. A wrong
// password yields ErrPasswordMismatch; any other error means the configured
// hash is unusable.
func CheckAdminPassword(hashed, plain string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	if err != nil {
		return fmt.Errorf("admin password hash: %w", err)
	}
	return nil
}
