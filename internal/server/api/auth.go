package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"teamvault/internal/common"
)

type signupInput struct {
	Body struct {
		InviteCode string `json:"invite_code" doc:"One-time registration code"`
		Email      string `json:"email" format:"email"`
		Name       string `json:"name"`
		Password   string `json:"password"`
	}
}

type signupOutput struct {
	Body struct {
		UserID string `json:"user_id"`
		Email  string `json:"email"`
	}
}

type saltInput struct {
	Email string `query:"email" required:"true"`
}

type saltOutput struct {
	Body struct {
		Salt []byte `json:"salt"`
	}
}

type envelopeDTO struct {
	Ciphertext []byte `json:"ciphertext"`
	Nonce      []byte `json:"nonce"`
	Salt       []byte `json:"salt"`
}

type loginInput struct {
	Body struct {
		Email    string `json:"email" format:"email"`
		Password string `json:"password"`
	}
}

type loginOutput struct {
	Body struct {
		AccessToken  string      `json:"access_token"`
		RefreshToken string      `json:"refresh_token"`
		Envelope     envelopeDTO `json:"envelope"`
	}
}

type refreshInput struct {
	Body struct {
		RefreshToken string `json:"refresh_token"`
	}
}

type refreshOutput struct {
	Body struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
}

type inviteOutput struct {
	Body struct {
		Code string `json:"code"`
	}
}

type changePasswordInput struct {
	Body struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
}

type changePasswordOutput struct {
	Body struct {
		Status string `json:"status"`
	}
}

func (h *Handler) registerAuthRoutes(api huma.API, protected huma.Middlewares) {
	huma.Register(api, huma.Operation{
		OperationID:   "auth-signup",
		Method:        http.MethodPost,
		Path:          "/auth/signup",
		Summary:       "Register a new user with an invite code",
		Tags:          []string{"auth"},
		DefaultStatus: http.StatusCreated,
	}, h.signup)

	huma.Register(api, huma.Operation{
		OperationID: "auth-salt",
		Method:      http.MethodGet,
		Path:        "/auth/salt",
		Summary:     "Get the password salt for an email",
		Tags:        []string{"auth"},
	}, h.salt)

	huma.Register(api, huma.Operation{
		OperationID: "auth-login",
		Method:      http.MethodPost,
		Path:        "/auth/login",
		Summary:     "Authenticate and receive tokens plus the private-key envelope",
		Tags:        []string{"auth"},
	}, h.login)

	huma.Register(api, huma.Operation{
		OperationID: "auth-refresh",
		Method:      http.MethodPost,
		Path:        "/auth/refresh",
		Summary:     "Rotate a refresh token",
		Tags:        []string{"auth"},
	}, h.refresh)

	huma.Register(api, huma.Operation{
		OperationID:   "auth-invite",
		Method:        http.MethodPost,
		Path:          "/auth/invite",
		Summary:       "Generate a one-time invite code",
		Tags:          []string{"auth"},
		DefaultStatus: http.StatusCreated,
	}, h.invite)

	huma.Register(api, huma.Operation{
		OperationID: "auth-change-password",
		Method:      http.MethodPost,
		Path:        "/auth/change-password",
		Summary:     "Change the account password, rewrapping the private key",
		Tags:        []string{"auth"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: protected,
	}, h.changePassword)
}

func (h *Handler) signup(ctx context.Context, input *signupInput) (*signupOutput, error) {
	password := []byte(input.Body.Password)
	defer common.WipeByteArray(password)

	user, err := h.users.Register(ctx, input.Body.InviteCode, input.Body.Email, input.Body.Name, password)
	if err != nil {
		return nil, mapErr(err)
	}

	out := &signupOutput{}
	out.Body.UserID = user.ID
	out.Body.Email = user.Email
	return out, nil
}

func (h *Handler) salt(ctx context.Context, input *saltInput) (*saltOutput, error) {
	salt, err := h.users.GetSalt(ctx, input.Email)
	if err != nil {
		return nil, mapErr(err)
	}
	out := &saltOutput{}
	out.Body.Salt = salt
	return out, nil
}

func (h *Handler) login(ctx context.Context, input *loginInput) (*loginOutput, error) {
	password := []byte(input.Body.Password)
	defer common.WipeByteArray(password)

	pair, env, err := h.users.Login(ctx, input.Body.Email, password)
	if err != nil {
		return nil, mapErr(err)
	}

	out := &loginOutput{}
	out.Body.AccessToken = pair.AccessToken
	out.Body.RefreshToken = pair.RefreshToken
	out.Body.Envelope = envelopeDTO{Ciphertext: env.Ciphertext, Nonce: env.Nonce, Salt: env.Salt}
	return out, nil
}

func (h *Handler) refresh(ctx context.Context, input *refreshInput) (*refreshOutput, error) {
	pair, err := h.users.RefreshToken(ctx, input.Body.RefreshToken)
	if err != nil {
		return nil, mapErr(err)
	}
	out := &refreshOutput{}
	out.Body.AccessToken = pair.AccessToken
	out.Body.RefreshToken = pair.RefreshToken
	return out, nil
}

func (h *Handler) invite(ctx context.Context, _ *struct{}) (*inviteOutput, error) {
	invite, err := h.invites.Generate(ctx)
	if err != nil {
		return nil, mapErr(err)
	}
	out := &inviteOutput{}
	out.Body.Code = invite.Code
	return out, nil
}

func (h *Handler) changePassword(ctx context.Context, input *changePasswordInput) (*changePasswordOutput, error) {
	userID, ok := UserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	oldPassword := []byte(input.Body.OldPassword)
	newPassword := []byte(input.Body.NewPassword)
	defer common.WipeByteArray(oldPassword)
	defer common.WipeByteArray(newPassword)

	if err := h.users.ChangePassword(ctx, userID, oldPassword, newPassword); err != nil {
		return nil, mapErr(err)
	}
	out := &changePasswordOutput{}
	out.Body.Status = "ok"
	return out, nil
}
