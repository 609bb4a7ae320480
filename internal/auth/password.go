package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Password length limits. bcrypt ignores everything past 72 bytes, so longer
// passwords are rejected instead of being silently truncated.
const (
	MinPasswordLength = 6
	MaxPasswordLength = 72
)

// DefaultCost is the bcrypt work factor used in production, about 250ms per
// hash on a current server.
const DefaultCost = 12

var (
	ErrPasswordMismatch = errors.New("auth: invalid password")
	ErrPasswordLength   = fmt.Errorf("auth: password must be %d to %d bytes", MinPasswordLength, MaxPasswordLength)
)

// PasswordService hashes and verifies passwords with bcrypt. The hash embeds
// its own salt and cost, so verifying needs nothing but the stored string.
type PasswordService struct {
	cost int
}

func NewPasswordService() *PasswordService {
	return &PasswordService{cost: DefaultCost}
}

// NewPasswordServiceWithCost lets tests use bcrypt.MinCost.
func NewPasswordServiceWithCost(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) < MinPasswordLength || len(plaintext) > MaxPasswordLength {
		return "", ErrPasswordLength
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}
	return string(hashed), nil
}

// Verify returns ErrPasswordMismatch when plaintext does not match hash.
func (p *PasswordService) Verify(hash, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}
