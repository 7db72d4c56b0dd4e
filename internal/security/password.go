package security

import (
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes is bcrypt's input limit, in bytes not characters.
const MaxPasswordBytes = 72

var ErrPasswordTooLong = bcrypt.ErrPasswordTooLong

// Hash password hashes a plain text password with bcrypt.
func HashPassword(plain string) (string, error) {
	if len(plain) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)

	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// helper that compares a bcrypt hash with a plaintext password.

func CheckPassword(hash, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}

var (
	dummyOnce sync.Once
	dummyHash string
)

// BurnCompare spends the same bcrypt work as a real comparison. Login calls it
// for unknown emails so response time does not reveal which emails exist.
func BurnCompare(plain string) {
	dummyOnce.Do(func() {
		h, err := bcrypt.GenerateFromPassword([]byte("rsvphub-timing-equalizer"), bcrypt.DefaultCost)
		if err == nil {
			dummyHash = string(h)
		}
	})
	if dummyHash == "" {
		return
	}
	_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(plain))
}
