package cryptox

import (
	"crypto/sha256"

	"golang.org/x/crypto/argon2"

	"teamvault/internal/common"
)

// Argon2id parameters. Changing them changes every derived key, so they are
// fixed for the lifetime of the stored data.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4

	// KeySize is the length of every symmetric key in the system: the
	// password-derived key, the team key, and attachment file keys.
	KeySize = 32

	// SaltSize is the length of the per-user random salt.
	SaltSize = 16
)

// deriveBlock runs a single Argon2id pass producing a 64-byte block. The two
// halves serve different purposes and are never used interchangeably: the
// first half becomes the envelope encryption key, the second half feeds the
// login verifier. One stored salt, two separated secrets.
func deriveBlock(password, salt []byte) ([]byte, error) {
	if len(password) == 0 {
		return nil, common.ErrWeakInput
	}
	if len(salt) == 0 {
		return nil, common.ErrWeakInput
	}
	return argon2.IDKey(password, salt, argonTime, argonMemory, argonThreads, 2*KeySize), nil
}

// DeriveKey derives the symmetric key that protects the user's private-key
// envelope. Deterministic: the same (password, salt) pair always yields the
// same key; different salts yield unrelated keys.
func DeriveKey(password, salt []byte) ([]byte, error) {
	block, err := deriveBlock(password, salt)
	if err != nil {
		return nil, err
	}
	key := make([]byte, KeySize)
	copy(key, block[:KeySize])
	common.WipeByteArray(block)
	return key, nil
}

// MakeVerifier derives the login verifier stored server-side for password
// authentication. It is computed over the half of the Argon2id block that
// DeriveKey discards, then hashed once more, so an attacker holding the
// verifier cannot recover the envelope encryption key.
func MakeVerifier(password, salt []byte) ([]byte, error) {
	block, err := deriveBlock(password, salt)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(block[KeySize:])
	common.WipeByteArray(block)
	return sum[:], nil
}
