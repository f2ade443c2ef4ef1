package services

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"teamvault/internal/common"
	"teamvault/internal/server/config"
	"teamvault/internal/server/models"
)

// stubPresign replaces the AWS seams so no network or credentials are needed.
func stubPresign(t *testing.T, putURL, getURL string, presignErr error) {
	t.Helper()

	origLoad := loadDefaultAWSConfig
	origNewClient := newS3ClientFromConfig
	origNewPresign := newS3PresignClient
	origPut := presignPutObject
	origGet := presignGetObject
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNewClient
		newS3PresignClient = origNewPresign
		presignPutObject = origPut
		presignGetObject = origGet
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client { return nil }
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient { return nil }
	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		if presignErr != nil {
			return nil, presignErr
		}
		return &v4.PresignedHTTPRequest{URL: putURL}, nil
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		if presignErr != nil {
			return nil, presignErr
		}
		return &v4.PresignedHTTPRequest{URL: getURL}, nil
	}
}

func newAttachmentFixture(t *testing.T) (*AttachmentService, *fakeRepoManager, *models.User, *models.Credential, func()) {
	t.Helper()
	db, mock := newSQLMockDB(t)
	rm := newFakeRepoManager()
	cfg := &config.Config{S3Bucket: "teamvault", S3Region: "us-east-1"}

	teamSvc := NewTeamService(db, rm)
	credSvc := NewCredentialService(db, rm)
	attSvc := NewAttachmentService(db, rm, cfg)

	admin, adminPriv := seedUser(t, rm, "admin@example.com")
	team := seedTeam(t, teamSvc, mock, admin.ID, "devops")
	cred, err := credSvc.Create(context.Background(), admin.ID, adminPriv, team.ID,
		"deploy key", "", "git", models.KindSSHKey, []byte("ssh-ed25519 ..."))
	if err != nil {
		t.Fatalf("Create credential error: %v", err)
	}
	return attSvc, rm, admin, cred, func() { db.Close() }
}

func TestRequestUpload_Success(t *testing.T) {
	stubPresign(t, "https://s3.local/put", "https://s3.local/get", nil)

	attSvc, rm, admin, cred, closeDB := newAttachmentFixture(t)
	defer closeDB()

	task, err := attSvc.RequestUpload(context.Background(), admin.ID, cred.ID, []byte("wrapped-fk"), []byte("nonce"))
	if err != nil {
		t.Fatalf("RequestUpload error: %v", err)
	}
	if task.URL != "https://s3.local/put" || task.AttachmentID == "" {
		t.Fatalf("unexpected task: %+v", task)
	}

	att, err := rm.attachments.Get(context.Background(), task.AttachmentID)
	if err != nil {
		t.Fatalf("attachment row missing: %v", err)
	}
	if att.UploadStatus != "pending" || att.StorageKey == "" {
		t.Fatalf("unexpected attachment: %+v", att)
	}
}

func TestRequestUpload_Validation(t *testing.T) {
	attSvc, _, admin, cred, closeDB := newAttachmentFixture(t)
	defer closeDB()

	if _, err := attSvc.RequestUpload(context.Background(), admin.ID, cred.ID, nil, []byte("n")); !errors.Is(err, common.ErrWeakInput) {
		t.Fatalf("expected ErrWeakInput, got %v", err)
	}
}

func TestRequestUpload_NotAMember(t *testing.T) {
	stubPresign(t, "https://s3.local/put", "https://s3.local/get", nil)

	attSvc, rm, _, cred, closeDB := newAttachmentFixture(t)
	defer closeDB()
	outsider, _ := seedUser(t, rm, "outsider@example.com")

	_, err := attSvc.RequestUpload(context.Background(), outsider.ID, cred.ID, []byte("fk"), []byte("n"))
	if !errors.Is(err, common.ErrNotAMember) {
		t.Fatalf("expected ErrNotAMember, got %v", err)
	}
}

func TestMarkUploadedAndDownloadURL(t *testing.T) {
	stubPresign(t, "https://s3.local/put", "https://s3.local/get", nil)

	attSvc, _, admin, cred, closeDB := newAttachmentFixture(t)
	defer closeDB()

	task, err := attSvc.RequestUpload(context.Background(), admin.ID, cred.ID, []byte("fk"), []byte("n"))
	if err != nil {
		t.Fatalf("RequestUpload error: %v", err)
	}

	// download before upload completes is refused
	if _, _, err := attSvc.GetDownloadURL(context.Background(), admin.ID, task.AttachmentID); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound for pending attachment, got %v", err)
	}

	if err := attSvc.MarkUploaded(context.Background(), admin.ID, task.AttachmentID); err != nil {
		t.Fatalf("MarkUploaded error: %v", err)
	}

	url, att, err := attSvc.GetDownloadURL(context.Background(), admin.ID, task.AttachmentID)
	if err != nil {
		t.Fatalf("GetDownloadURL error: %v", err)
	}
	if url != "https://s3.local/get" {
		t.Fatalf("unexpected URL %q", url)
	}
	if string(att.EncryptedFileKey) != "fk" || string(att.Nonce) != "n" {
		t.Fatalf("unexpected key material: %+v", att)
	}
}

func TestRequestUpload_PresignError(t *testing.T) {
	stubPresign(t, "", "", errors.New("presign down"))

	attSvc, rm, admin, cred, closeDB := newAttachmentFixture(t)
	defer closeDB()

	if _, err := attSvc.RequestUpload(context.Background(), admin.ID, cred.ID, []byte("fk"), []byte("n")); err == nil {
		t.Fatal("expected error, got nil")
	}
	if len(rm.attachments.byID) != 0 {
		t.Fatal("no attachment row may be created when presigning fails")
	}
}
