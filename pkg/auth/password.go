package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	BcryptCost = 14 // OWASP 2026 recommendation - stronger than cost 12 (Feb 2026)

	// GeneratedPasswordBytes is the entropy of a minted credential. Nine
	// random bytes encode to a 12-character URL-safe string.
	GeneratedPasswordBytes = 9
)

func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

func ComparePassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// GeneratePassword mints a high-entropy, URL-safe plaintext credential.
func GeneratePassword() (string, error) {
	bytes := make([]byte, GeneratedPasswordBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate password: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}
