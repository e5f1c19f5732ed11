// Package cryptox holds the password credential format used for user
// accounts: scrypt with fixed parameters and a per-credential random salt.
//
// A stored credential looks like
//
//	scrypt:<saltHex>:<keyHex>
package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/scrypt"
)

const (
	algorithm = "scrypt"

	scryptN   = 16384
	scryptR   = 8
	scryptP   = 1
	keyLength = 64
	saltSize  = 16
)

// package-level seams for tests
var (
	readSalt  = rand.Read
	deriveKey = scrypt.Key
)

// HashPassword derives a credential for password with a fresh random salt.
// Two calls with the same password yield different credentials.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := readSalt(salt); err != nil {
		return "", fmt.Errorf("salt: %w", err)
	}

	key, err := deriveKey([]byte(password), salt, scryptN, scryptR, scryptP, keyLength)
	if err != nil {
		return "", fmt.Errorf("scrypt: %w", err)
	}

	return algorithm + ":" + hex.EncodeToString(salt) + ":" + hex.EncodeToString(key), nil
}

// VerifyPassword reports whether password matches credential. Any malformed
// credential simply yields false.
func VerifyPassword(password, credential string) bool {
	parts := strings.Split(credential, ":")
	if len(parts) != 3 || parts[0] != algorithm {
		return false
	}

	salt, err := hex.DecodeString(parts[1])
	if err != nil || len(salt) == 0 {
		return false
	}
	expected, err := hex.DecodeString(parts[2])
	if err != nil || len(expected) != keyLength {
		return false
	}

	key, err := deriveKey([]byte(password), salt, scryptN, scryptR, scryptP, keyLength)
	if err != nil {
		return false
	}

	return subtle.ConstantTimeCompare(key, expected) == 1
}
