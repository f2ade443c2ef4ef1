package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"teamvault/internal/common"
	"teamvault/internal/server/models"
)

type credentialDTO struct {
	ID        string    `json:"id"`
	TeamID    string    `json:"team_id"`
	Title     string    `json:"title"`
	Hostname  string    `json:"hostname,omitempty"`
	Username  string    `json:"username,omitempty"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type createCredentialInput struct {
	Body struct {
		TeamID   string `json:"team_id"`
		Title    string `json:"title"`
		Hostname string `json:"hostname,omitempty"`
		Username string `json:"username,omitempty"`
		Kind     string `json:"kind" enum:"password,ssh_key"`
		Secret   []byte `json:"secret"`
		Password string `json:"password" doc:"Caller password, needed to unwrap the team key"`
	}
}

type createCredentialOutput struct {
	Body credentialDTO
}

type listCredentialsInput struct {
	TeamID string `query:"team_id" required:"true"`
}

type listCredentialsOutput struct {
	Body struct {
		Credentials []credentialDTO `json:"credentials"`
	}
}

type updateCredentialInput struct {
	CredentialID string `path:"credentialID"`
	Body         struct {
		Title    string `json:"title"`
		Hostname string `json:"hostname,omitempty"`
		Username string `json:"username,omitempty"`
		Kind     string `json:"kind" enum:"password,ssh_key"`
		Secret   []byte `json:"secret"`
		Password string `json:"password"`
	}
}

type revealCredentialInput struct {
	CredentialID string `path:"credentialID"`
	Body         struct {
		Password string `json:"password"`
	}
}

type revealCredentialOutput struct {
	Body struct {
		Secret []byte `json:"secret"`
	}
}

type credentialIDInput struct {
	CredentialID string `path:"credentialID"`
}

func (h *Handler) registerCredentialRoutes(api huma.API, protected huma.Middlewares) {
	security := []map[string][]string{{"bearer": {}}}

	huma.Register(api, huma.Operation{
		OperationID:   "credential-create",
		Method:        http.MethodPost,
		Path:          "/api/credentials",
		Summary:       "Store a credential encrypted under the team key",
		Tags:          []string{"credentials"},
		Security:      security,
		Middlewares:   protected,
		DefaultStatus: http.StatusCreated,
	}, h.createCredential)

	huma.Register(api, huma.Operation{
		OperationID: "credential-list",
		Method:      http.MethodGet,
		Path:        "/api/credentials",
		Summary:     "List a team's credentials, metadata only",
		Tags:        []string{"credentials"},
		Security:    security,
		Middlewares: protected,
	}, h.listCredentials)

	huma.Register(api, huma.Operation{
		OperationID: "credential-update",
		Method:      http.MethodPut,
		Path:        "/api/credentials/{credentialID}",
		Summary:     "Update a credential's metadata and secret",
		Tags:        []string{"credentials"},
		Security:    security,
		Middlewares: protected,
	}, h.updateCredential)

	huma.Register(api, huma.Operation{
		OperationID: "credential-reveal",
		Method:      http.MethodPost,
		Path:        "/api/credentials/{credentialID}/reveal",
		Summary:     "Decrypt and return a credential's secret",
		Tags:        []string{"credentials"},
		Security:    security,
		Middlewares: protected,
	}, h.revealCredential)

	huma.Register(api, huma.Operation{
		OperationID: "credential-delete",
		Method:      http.MethodDelete,
		Path:        "/api/credentials/{credentialID}",
		Summary:     "Delete a credential",
		Tags:        []string{"credentials"},
		Security:    security,
		Middlewares: protected,
	}, h.deleteCredential)
}

func (h *Handler) createCredential(ctx context.Context, input *createCredentialInput) (*createCredentialOutput, error) {
	userID, ok := UserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	privateKey, err := h.unlockCaller(ctx, userID, input.Body.Password)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(privateKey)
	defer common.WipeByteArray(input.Body.Secret)

	cred, err := h.credentials.Create(ctx, userID, privateKey,
		input.Body.TeamID, input.Body.Title, input.Body.Hostname, input.Body.Username,
		models.SecretKind(input.Body.Kind), input.Body.Secret)
	if err != nil {
		return nil, mapErr(err)
	}
	return &createCredentialOutput{Body: toCredentialDTO(cred)}, nil
}

func (h *Handler) listCredentials(ctx context.Context, input *listCredentialsInput) (*listCredentialsOutput, error) {
	userID, ok := UserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("unauthorized")
	}
	creds, err := h.credentials.List(ctx, userID, input.TeamID)
	if err != nil {
		return nil, mapErr(err)
	}
	out := &listCredentialsOutput{}
	out.Body.Credentials = make([]credentialDTO, 0, len(creds))
	for _, cred := range creds {
		out.Body.Credentials = append(out.Body.Credentials, toCredentialDTO(cred))
	}
	return out, nil
}

func (h *Handler) updateCredential(ctx context.Context, input *updateCredentialInput) (*statusOutput, error) {
	userID, ok := UserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	privateKey, err := h.unlockCaller(ctx, userID, input.Body.Password)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(privateKey)
	defer common.WipeByteArray(input.Body.Secret)

	if err := h.credentials.Update(ctx, userID, privateKey,
		input.CredentialID, input.Body.Title, input.Body.Hostname, input.Body.Username,
		models.SecretKind(input.Body.Kind), input.Body.Secret); err != nil {
		return nil, mapErr(err)
	}
	return okStatus(), nil
}

func (h *Handler) revealCredential(ctx context.Context, input *revealCredentialInput) (*revealCredentialOutput, error) {
	userID, ok := UserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	privateKey, err := h.unlockCaller(ctx, userID, input.Body.Password)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(privateKey)

	secret, err := h.credentials.Reveal(ctx, userID, privateKey, input.CredentialID)
	if err != nil {
		return nil, mapErr(err)
	}
	out := &revealCredentialOutput{}
	out.Body.Secret = secret
	return out, nil
}

func (h *Handler) deleteCredential(ctx context.Context, input *credentialIDInput) (*statusOutput, error) {
	userID, ok := UserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("unauthorized")
	}
	if err := h.credentials.Delete(ctx, userID, input.CredentialID); err != nil {
		return nil, mapErr(err)
	}
	return okStatus(), nil
}

func toCredentialDTO(cred *models.Credential) credentialDTO {
	return credentialDTO{
		ID:        cred.ID,
		TeamID:    cred.TeamID,
		Title:     cred.Title,
		Hostname:  cred.Hostname,
		Username:  cred.Username,
		Kind:      string(cred.Kind),
		CreatedAt: cred.CreatedAt,
		UpdatedAt: cred.UpdatedAt,
	}
}
