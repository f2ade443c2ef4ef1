package cryptox

import (
	"crypto/rand"

	"golang.org/x/crypto/nacl/box"

	"teamvault/internal/common"
)

const (
	// WrapNonceSize is the NaCl box nonce length, stored next to each wrap.
	WrapNonceSize = 24

	publicKeySize = 32
)

// NewTeamKey returns a fresh random symmetric team key.
func NewTeamKey() []byte {
	return common.GenerateRandByteArray(KeySize)
}

// WrapTeamKey encrypts the team key for one member using NaCl box with an
// ephemeral sender keypair. The ephemeral public key is prepended to the
// ciphertext so only the recipient's private key is needed to unwrap; the
// box nonce is returned separately for storage in its own column.
func WrapTeamKey(teamKey, memberPublicKey []byte) (wrapped, nonce []byte, err error) {
	if len(teamKey) != KeySize || len(memberPublicKey) != publicKeySize {
		return nil, nil, common.ErrWeakInput
	}

	ephPub, ephPriv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, err
	}
	defer common.WipeByteArray(ephPriv[:])

	var peer [publicKeySize]byte
	copy(peer[:], memberPublicKey)

	var n [WrapNonceSize]byte
	copy(n[:], common.GenerateRandByteArray(WrapNonceSize))

	sealed := box.Seal(nil, teamKey, &n, &peer, ephPriv)

	wrapped = make([]byte, 0, publicKeySize+len(sealed))
	wrapped = append(wrapped, ephPub[:]...)
	wrapped = append(wrapped, sealed...)
	return wrapped, n[:], nil
}

// UnwrapTeamKey recovers the team key from a wrap using the member's private
// key. Any failure (wrong key, tampered wrap, corrupted nonce) is reported
// uniformly as common.ErrDecryption.
func UnwrapTeamKey(wrapped, nonce, memberPrivateKey []byte) ([]byte, error) {
	if len(wrapped) <= publicKeySize || len(nonce) != WrapNonceSize || len(memberPrivateKey) != publicKeySize {
		return nil, common.ErrDecryption
	}

	var ephPub, priv [publicKeySize]byte
	copy(ephPub[:], wrapped[:publicKeySize])
	copy(priv[:], memberPrivateKey)
	defer common.WipeByteArray(priv[:])

	var n [WrapNonceSize]byte
	copy(n[:], nonce)

	teamKey, ok := box.Open(nil, wrapped[publicKeySize:], &n, &ephPub, &priv)
	if !ok {
		return nil, common.ErrDecryption
	}
	return teamKey, nil
}
