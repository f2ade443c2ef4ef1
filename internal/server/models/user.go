// Package models defines the persisted entities shared by repositories and
// services. Secret-bearing fields always hold ciphertext; plaintext secrets,
// private keys, and team keys never appear here.
package models

import "time"

// User holds a user's profile and cryptographic material at rest. Verifier
// authenticates logins; EncryptedPrivateKey/PrivateKeyNonce form the
// password-protected envelope around the user's asymmetric private key. The
// keypair is generated once at signup; only the envelope (and Salt) change
// on password change.
type User struct {
	ID                  string
	Email               string
	Name                string
	Salt                []byte
	Verifier            []byte
	PublicKey           []byte
	EncryptedPrivateKey []byte
	PrivateKeyNonce     []byte
	CreatedAt           time.Time
}
