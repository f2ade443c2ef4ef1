package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"

	"golang.org/x/crypto/nacl/box"

	"teamvault/internal/common"
)

// AEADNonceSize is the AES-GCM nonce length used for envelopes, credential
// secrets, and attachment file keys.
const AEADNonceSize = 12

// PrivateKeyEnvelope is the at-rest form of a user's private key: the key
// encrypted under the password-derived key. The private key inside never
// changes after account creation; only the envelope is rewritten on password
// change.
type PrivateKeyEnvelope struct {
	Ciphertext []byte
	Nonce      []byte
	Salt       []byte
}

// NewIdentity generates a fresh NaCl box keypair and seals the private key
// under a key derived from password with a fresh random salt. The public key
// is returned in clear; persistence of both is the caller's responsibility.
func NewIdentity(password []byte) ([]byte, *PrivateKeyEnvelope, error) {
	pub, priv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, err
	}
	defer common.WipeByteArray(priv[:])

	salt := common.GenerateRandByteArray(SaltSize)
	key, err := DeriveKey(password, salt)
	if err != nil {
		return nil, nil, err
	}
	defer common.WipeByteArray(key)

	ciphertext, nonce, err := sealAEAD(key, priv[:])
	if err != nil {
		return nil, nil, err
	}

	return pub[:], &PrivateKeyEnvelope{Ciphertext: ciphertext, Nonce: nonce, Salt: salt}, nil
}

// UnlockIdentity re-derives the envelope key and decrypts the private key.
// A wrong password and a tampered envelope are indistinguishable: both
// return common.ErrInvalidCredentials with no further detail.
func UnlockIdentity(password []byte, env *PrivateKeyEnvelope) ([]byte, error) {
	key, err := DeriveKey(password, env.Salt)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(key)

	priv, err := openAEAD(key, env.Ciphertext, env.Nonce)
	if err != nil {
		return nil, common.ErrInvalidCredentials
	}
	return priv, nil
}

// RewrapIdentity re-encrypts the same private key under a key derived from
// newPassword and a fresh salt. The private key, the public key, and every
// existing team-key wrap for this user remain valid.
func RewrapIdentity(oldPassword, newPassword []byte, env *PrivateKeyEnvelope) (*PrivateKeyEnvelope, error) {
	priv, err := UnlockIdentity(oldPassword, env)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(priv)

	salt := common.GenerateRandByteArray(SaltSize)
	key, err := DeriveKey(newPassword, salt)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(key)

	ciphertext, nonce, err := sealAEAD(key, priv)
	if err != nil {
		return nil, err
	}
	return &PrivateKeyEnvelope{Ciphertext: ciphertext, Nonce: nonce, Salt: salt}, nil
}

// sealAEAD encrypts plaintext with AES-256-GCM under key, generating an
// independent random nonce per call.
func sealAEAD(key, plaintext []byte) (ciphertext, nonce []byte, err error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, err
	}
	nonce = common.GenerateRandByteArray(AEADNonceSize)
	return aesgcm.Seal(nil, nonce, plaintext, nil), nonce, nil
}

// openAEAD decrypts and authenticates a (ciphertext, nonce) pair.
func openAEAD(key, ciphertext, nonce []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return aesgcm.Open(nil, nonce, ciphertext, nil)
}
