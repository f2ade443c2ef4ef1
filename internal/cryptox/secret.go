package cryptox

import "teamvault/internal/common"

// EncryptSecret AEAD-encrypts a credential secret under an already-unwrapped
// team key. Each call generates an independent random nonce; nonce reuse
// under the same key is never acceptable, so the nonce is never supplied by
// the caller. The team key is not retained.
func EncryptSecret(teamKey, plaintext []byte) (ciphertext, nonce []byte, err error) {
	if len(teamKey) != KeySize {
		return nil, nil, common.ErrWeakInput
	}
	return sealAEAD(teamKey, plaintext)
}

// DecryptSecret reverses EncryptSecret. A wrong team key, tampered
// ciphertext, and a corrupted nonce are indistinguishable: all surface as
// common.ErrDecryption.
func DecryptSecret(teamKey, ciphertext, nonce []byte) ([]byte, error) {
	if len(teamKey) != KeySize {
		return nil, common.ErrDecryption
	}
	plaintext, err := openAEAD(teamKey, ciphertext, nonce)
	if err != nil {
		return nil, common.ErrDecryption
	}
	return plaintext, nil
}
