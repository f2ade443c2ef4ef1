package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"teamvault/internal/common"
	"teamvault/internal/server/config"
	"teamvault/internal/server/models"
	"teamvault/internal/server/repositories/repomanager"
)

// Function variables below are seams for testing the AWS SDK calls.
var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

const presignValidity = 15 * time.Minute

// AttachmentService manages encrypted attachment blobs for credentials. The
// server never sees blob plaintext: clients encrypt under a random file key
// (itself wrapped under the team key and stored with the row) and transfer
// the blob directly to object storage via presigned URLs.
type AttachmentService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	config      *config.Config
}

// NewAttachmentService constructs an AttachmentService.
func NewAttachmentService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *AttachmentService {
	return &AttachmentService{db: db, repomanager: m, config: cfg}
}

// GetRandomStorageKey builds a date-prefixed unique object key.
func GetRandomStorageKey() string {
	d := time.Now()
	return fmt.Sprintf("attachments/%d/%d/%d/%v", d.Year(), d.Month(), d.Day(), uuid.New())
}

func (s *AttachmentService) getPresignClient() (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(context.Background(),
		awsconfig.WithRegion(s.config.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
	})

	return newS3PresignClient(client), nil
}

func (s *AttachmentService) getPresignedPutURL(ctx context.Context) (string, string, error) {
	presignClient, err := s.getPresignClient()
	if err != nil {
		return "", "", err
	}

	bucket := s.config.S3Bucket
	key := GetRandomStorageKey()

	req, err := presignPutObject(presignClient, ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(presignValidity))
	if err != nil {
		return "", "", err
	}

	return key, req.URL, nil
}

func (s *AttachmentService) getPresignedGetURL(ctx context.Context, key string) (string, error) {
	presignClient, err := s.getPresignClient()
	if err != nil {
		return "", err
	}

	bucket := s.config.S3Bucket

	req, err := presignGetObject(presignClient, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(presignValidity))
	if err != nil {
		return "", err
	}

	return req.URL, nil
}

// RequestUpload registers a pending attachment for the credential and returns
// a presigned PUT URL for the encrypted blob. encryptedFileKey and nonce are
// the client-produced wrap of the random file key under the team key.
func (s *AttachmentService) RequestUpload(ctx context.Context, userID, credentialID string, encryptedFileKey, nonce []byte) (*models.AttachmentUploadTask, error) {
	if len(encryptedFileKey) == 0 || len(nonce) == 0 {
		return nil, common.ErrWeakInput
	}

	if err := s.requireCredentialAccess(ctx, userID, credentialID); err != nil {
		return nil, err
	}

	storageKey, url, err := s.getPresignedPutURL(ctx)
	if err != nil {
		return nil, fmt.Errorf("error presigning upload: %v", err)
	}

	att := &models.Attachment{
		CredentialID:     credentialID,
		StorageKey:       storageKey,
		EncryptedFileKey: encryptedFileKey,
		Nonce:            nonce,
		UploadStatus:     "pending",
	}
	created, err := s.repomanager.Attachments(s.db).Create(ctx, att)
	if err != nil {
		return nil, fmt.Errorf("error creating attachment: %v", err)
	}

	return &models.AttachmentUploadTask{AttachmentID: created.ID, URL: url}, nil
}

// MarkUploaded confirms that the client finished the presigned PUT.
func (s *AttachmentService) MarkUploaded(ctx context.Context, userID, attachmentID string) error {
	repo := s.repomanager.Attachments(s.db)
	att, err := repo.Get(ctx, attachmentID)
	if err != nil {
		return err
	}
	if err := s.requireCredentialAccess(ctx, userID, att.CredentialID); err != nil {
		return err
	}
	return repo.MarkUploaded(ctx, attachmentID)
}

// GetDownloadURL returns a presigned GET URL for an uploaded attachment,
// along with the stored encrypted file key and nonce the client needs to
// decrypt the blob.
func (s *AttachmentService) GetDownloadURL(ctx context.Context, userID, attachmentID string) (string, *models.Attachment, error) {
	repo := s.repomanager.Attachments(s.db)
	att, err := repo.Get(ctx, attachmentID)
	if err != nil {
		return "", nil, err
	}
	if err := s.requireCredentialAccess(ctx, userID, att.CredentialID); err != nil {
		return "", nil, err
	}
	if att.UploadStatus != "uploaded" {
		return "", nil, common.ErrorNotFound
	}

	url, err := s.getPresignedGetURL(ctx, att.StorageKey)
	if err != nil {
		return "", nil, fmt.Errorf("error presigning download: %v", err)
	}
	return url, att, nil
}

// List returns the attachments recorded for a credential.
func (s *AttachmentService) List(ctx context.Context, userID, credentialID string) ([]*models.Attachment, error) {
	if err := s.requireCredentialAccess(ctx, userID, credentialID); err != nil {
		return nil, err
	}
	return s.repomanager.Attachments(s.db).ListByCredential(ctx, credentialID)
}

// requireCredentialAccess checks that userID is a member of the team owning
// the credential.
func (s *AttachmentService) requireCredentialAccess(ctx context.Context, userID, credentialID string) error {
	cred, err := s.repomanager.Credentials(s.db).Get(ctx, credentialID)
	if err != nil {
		return err
	}
	if _, err := s.repomanager.Teams(s.db).GetMember(ctx, cred.TeamID, userID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrNotAMember
		}
		return err
	}
	return nil
}
