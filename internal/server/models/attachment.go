package models

import "time"

// Attachment is a large encrypted blob (e.g. an SSH key file) that lives in
// object storage rather than the database. The blob is encrypted under a
// random file key; EncryptedFileKey is that key encrypted under the team
// key, so attachments survive team membership changes the same way
// credentials do.
type Attachment struct {
	ID               string
	CredentialID     string
	StorageKey       string
	EncryptedFileKey []byte
	Nonce            []byte
	UploadStatus     string
	CreatedAt        time.Time
}

// AttachmentUploadTask pairs a presigned PUT URL with the attachment it
// belongs to.
type AttachmentUploadTask struct {
	AttachmentID string
	URL          string
}
