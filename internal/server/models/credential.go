package models

import "time"

// SecretKind classifies what a credential's encrypted secret contains.
type SecretKind string

const (
	KindPassword SecretKind = "password"
	KindSSHKey   SecretKind = "ssh_key"
)

// Credential is a stored secret belonging to a team, encrypted under the
// team's symmetric key. Metadata (title, hostname, username) is stored in
// clear; the secret exists only as ciphertext + nonce.
type Credential struct {
	ID              string
	TeamID          string
	Title           string
	Hostname        string
	Username        string
	Kind            SecretKind
	EncryptedSecret []byte
	Nonce           []byte
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
