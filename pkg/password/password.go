// Package password derives and verifies salted password hashes.
// Plaintext passwords are never stored; each hash is keyed with a salt
// that is generated fresh per call and never reused.
package password

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha512"
	"fmt"
	"strings"

	appErrors "github.com/noah-isme/auth-api/pkg/errors"
)

// SaltSize is the number of random bytes used as the HMAC key.
const SaltSize = 128

// CreateHash derives an HMAC-SHA512 hash of password keyed with a newly
// generated random salt. The returned salt must be stored alongside the
// hash to verify later.
func CreateHash(password string) (hash, salt []byte, err error) {
	if strings.TrimSpace(password) == "" {
		return nil, nil, appErrors.Clone(appErrors.ErrInvalidInput, "password cannot be empty or whitespace")
	}

	salt = make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, nil, fmt.Errorf("generate salt: %w", err)
	}

	mac := hmac.New(sha512.New, salt)
	mac.Write([]byte(password))
	return mac.Sum(nil), salt, nil
}

// Verify recomputes the hash of password with storedSalt and compares it
// against storedHash in constant time. Empty stored material indicates
// corrupt data and is reported as an error, not as a mismatch.
func Verify(password string, storedHash, storedSalt []byte) (bool, error) {
	if strings.TrimSpace(password) == "" {
		return false, appErrors.Clone(appErrors.ErrInvalidInput, "password cannot be empty or whitespace")
	}
	if len(storedHash) == 0 {
		return false, appErrors.Clone(appErrors.ErrInvalidInput, "stored password hash is empty")
	}
	if len(storedSalt) == 0 {
		return false, appErrors.Clone(appErrors.ErrInvalidInput, "stored password salt is empty")
	}

	mac := hmac.New(sha512.New, storedSalt)
	mac.Write([]byte(password))
	return hmac.Equal(mac.Sum(nil), storedHash), nil
}
