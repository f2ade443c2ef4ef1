package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"teamvault/internal/server/models"
)

type attachmentDTO struct {
	ID           string    `json:"id"`
	CredentialID string    `json:"credential_id"`
	UploadStatus string    `json:"upload_status"`
	CreatedAt    time.Time `json:"created_at"`
}

type requestUploadInput struct {
	CredentialID string `path:"credentialID"`
	Body         struct {
		EncryptedFileKey []byte `json:"encrypted_file_key" doc:"File key wrapped under the team key"`
		Nonce            []byte `json:"nonce"`
	}
}

type requestUploadOutput struct {
	Body struct {
		AttachmentID string `json:"attachment_id"`
		UploadURL    string `json:"upload_url"`
	}
}

type attachmentIDInput struct {
	AttachmentID string `path:"attachmentID"`
}

type downloadURLOutput struct {
	Body struct {
		DownloadURL      string `json:"download_url"`
		EncryptedFileKey []byte `json:"encrypted_file_key"`
		Nonce            []byte `json:"nonce"`
	}
}

type listAttachmentsInput struct {
	CredentialID string `path:"credentialID"`
}

type listAttachmentsOutput struct {
	Body struct {
		Attachments []attachmentDTO `json:"attachments"`
	}
}

func (h *Handler) registerAttachmentRoutes(api huma.API, protected huma.Middlewares) {
	security := []map[string][]string{{"bearer": {}}}

	huma.Register(api, huma.Operation{
		OperationID:   "attachment-request-upload",
		Method:        http.MethodPost,
		Path:          "/api/credentials/{credentialID}/attachments",
		Summary:       "Register an attachment and presign its upload",
		Tags:          []string{"attachments"},
		Security:      security,
		Middlewares:   protected,
		DefaultStatus: http.StatusCreated,
	}, h.requestUpload)

	huma.Register(api, huma.Operation{
		OperationID: "attachment-list",
		Method:      http.MethodGet,
		Path:        "/api/credentials/{credentialID}/attachments",
		Summary:     "List a credential's attachments",
		Tags:        []string{"attachments"},
		Security:    security,
		Middlewares: protected,
	}, h.listAttachments)

	huma.Register(api, huma.Operation{
		OperationID: "attachment-mark-uploaded",
		Method:      http.MethodPost,
		Path:        "/api/attachments/{attachmentID}/uploaded",
		Summary:     "Confirm that the presigned upload finished",
		Tags:        []string{"attachments"},
		Security:    security,
		Middlewares: protected,
	}, h.markUploaded)

	huma.Register(api, huma.Operation{
		OperationID: "attachment-download",
		Method:      http.MethodGet,
		Path:        "/api/attachments/{attachmentID}/download",
		Summary:     "Presign a download and return the wrapped file key",
		Tags:        []string{"attachments"},
		Security:    security,
		Middlewares: protected,
	}, h.downloadAttachment)
}

func (h *Handler) requestUpload(ctx context.Context, input *requestUploadInput) (*requestUploadOutput, error) {
	userID, ok := UserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("unauthorized")
	}
	task, err := h.attachments.RequestUpload(ctx, userID, input.CredentialID, input.Body.EncryptedFileKey, input.Body.Nonce)
	if err != nil {
		return nil, mapErr(err)
	}
	out := &requestUploadOutput{}
	out.Body.AttachmentID = task.AttachmentID
	out.Body.UploadURL = task.URL
	return out, nil
}

func (h *Handler) listAttachments(ctx context.Context, input *listAttachmentsInput) (*listAttachmentsOutput, error) {
	userID, ok := UserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("unauthorized")
	}
	attachments, err := h.attachments.List(ctx, userID, input.CredentialID)
	if err != nil {
		return nil, mapErr(err)
	}
	out := &listAttachmentsOutput{}
	out.Body.Attachments = make([]attachmentDTO, 0, len(attachments))
	for _, att := range attachments {
		out.Body.Attachments = append(out.Body.Attachments, toAttachmentDTO(att))
	}
	return out, nil
}

func (h *Handler) markUploaded(ctx context.Context, input *attachmentIDInput) (*statusOutput, error) {
	userID, ok := UserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("unauthorized")
	}
	if err := h.attachments.MarkUploaded(ctx, userID, input.AttachmentID); err != nil {
		return nil, mapErr(err)
	}
	return okStatus(), nil
}

func (h *Handler) downloadAttachment(ctx context.Context, input *attachmentIDInput) (*downloadURLOutput, error) {
	userID, ok := UserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("unauthorized")
	}
	url, att, err := h.attachments.GetDownloadURL(ctx, userID, input.AttachmentID)
	if err != nil {
		return nil, mapErr(err)
	}
	out := &downloadURLOutput{}
	out.Body.DownloadURL = url
	out.Body.EncryptedFileKey = att.EncryptedFileKey
	out.Body.Nonce = att.Nonce
	return out, nil
}

func toAttachmentDTO(att *models.Attachment) attachmentDTO {
	return attachmentDTO{
		ID:           att.ID,
		CredentialID: att.CredentialID,
		UploadStatus: att.UploadStatus,
		CreatedAt:    att.CreatedAt,
	}
}
