package auth

import (
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/spec-kit/ticket-tracker/pkg/util"
)

// MinPasswordLength applies to signup, password change and reset confirm.
const MinPasswordLength = 8

// HashPassword validates and hashes a plaintext password with the given cost.
func HashPassword(password string, cost int) (string, error) {
	if len(password) < MinPasswordLength {
		return "", apperrors.NewValidationError("password", "must be at least 8 characters")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hashed value.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}
