package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"teamvault/internal/common"
	"teamvault/internal/server/models"
)

type teamDTO struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	IsPersonal bool      `json:"is_personal"`
	CreatedAt  time.Time `json:"created_at"`
}

type memberDTO struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

type createTeamInput struct {
	Body struct {
		Name string `json:"name"`
	}
}

type createTeamOutput struct {
	Body teamDTO
}

type listTeamsOutput struct {
	Body struct {
		Teams []teamDTO `json:"teams"`
	}
}

type teamIDInput struct {
	TeamID string `path:"teamID"`
}

type listMembersOutput struct {
	Body struct {
		Members []memberDTO `json:"members"`
	}
}

type addMemberInput struct {
	TeamID string `path:"teamID"`
	Body   struct {
		UserID   string `json:"user_id"`
		Role     string `json:"role" enum:"member,admin"`
		Password string `json:"password" doc:"Caller password, needed to unwrap the team key"`
	}
}

type statusOutput struct {
	Body struct {
		Status string `json:"status"`
	}
}

type removeMemberInput struct {
	TeamID string `path:"teamID"`
	UserID string `path:"userID"`
}

type rotateKeyInput struct {
	TeamID string `path:"teamID"`
	Body   struct {
		Password string `json:"password" doc:"Caller password, needed to unwrap the old team key"`
	}
}

type keyAccessOutput struct {
	Body struct {
		EncryptedTeamKey []byte `json:"encrypted_team_key"`
		Nonce            []byte `json:"nonce"`
	}
}

func (h *Handler) registerTeamRoutes(api huma.API, protected huma.Middlewares) {
	security := []map[string][]string{{"bearer": {}}}

	huma.Register(api, huma.Operation{
		OperationID:   "team-create",
		Method:        http.MethodPost,
		Path:          "/api/teams",
		Summary:       "Create a team",
		Tags:          []string{"teams"},
		Security:      security,
		Middlewares:   protected,
		DefaultStatus: http.StatusCreated,
	}, h.createTeam)

	huma.Register(api, huma.Operation{
		OperationID: "team-list",
		Method:      http.MethodGet,
		Path:        "/api/teams",
		Summary:     "List the caller's teams",
		Tags:        []string{"teams"},
		Security:    security,
		Middlewares: protected,
	}, h.listTeams)

	huma.Register(api, huma.Operation{
		OperationID: "team-members",
		Method:      http.MethodGet,
		Path:        "/api/teams/{teamID}/members",
		Summary:     "List team members",
		Tags:        []string{"teams"},
		Security:    security,
		Middlewares: protected,
	}, h.listMembers)

	huma.Register(api, huma.Operation{
		OperationID:   "team-add-member",
		Method:        http.MethodPost,
		Path:          "/api/teams/{teamID}/members",
		Summary:       "Add a member, wrapping the team key for them",
		Tags:          []string{"teams"},
		Security:      security,
		Middlewares:   protected,
		DefaultStatus: http.StatusCreated,
	}, h.addMember)

	huma.Register(api, huma.Operation{
		OperationID: "team-remove-member",
		Method:      http.MethodDelete,
		Path:        "/api/teams/{teamID}/members/{userID}",
		Summary:     "Remove a member and their key access",
		Tags:        []string{"teams"},
		Security:    security,
		Middlewares: protected,
	}, h.removeMember)

	huma.Register(api, huma.Operation{
		OperationID: "team-rotate-key",
		Method:      http.MethodPost,
		Path:        "/api/teams/{teamID}/rotate",
		Summary:     "Rotate the team key and re-encrypt all credentials",
		Tags:        []string{"teams"},
		Security:    security,
		Middlewares: protected,
	}, h.rotateKey)

	huma.Register(api, huma.Operation{
		OperationID: "team-key-access",
		Method:      http.MethodGet,
		Path:        "/api/teams/{teamID}/key",
		Summary:     "Fetch the caller's wrapped copy of the team key",
		Tags:        []string{"teams"},
		Security:    security,
		Middlewares: protected,
	}, h.getKeyAccess)
}

func (h *Handler) createTeam(ctx context.Context, input *createTeamInput) (*createTeamOutput, error) {
	userID, ok := UserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("unauthorized")
	}
	team, err := h.teams.Create(ctx, userID, input.Body.Name)
	if err != nil {
		return nil, mapErr(err)
	}
	return &createTeamOutput{Body: toTeamDTO(team)}, nil
}

func (h *Handler) listTeams(ctx context.Context, _ *struct{}) (*listTeamsOutput, error) {
	userID, ok := UserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("unauthorized")
	}
	teams, err := h.teams.List(ctx, userID)
	if err != nil {
		return nil, mapErr(err)
	}
	out := &listTeamsOutput{}
	out.Body.Teams = make([]teamDTO, 0, len(teams))
	for _, team := range teams {
		out.Body.Teams = append(out.Body.Teams, toTeamDTO(team))
	}
	return out, nil
}

func (h *Handler) listMembers(ctx context.Context, input *teamIDInput) (*listMembersOutput, error) {
	userID, ok := UserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("unauthorized")
	}
	members, err := h.teams.ListMembers(ctx, userID, input.TeamID)
	if err != nil {
		return nil, mapErr(err)
	}
	out := &listMembersOutput{}
	out.Body.Members = make([]memberDTO, 0, len(members))
	for _, m := range members {
		out.Body.Members = append(out.Body.Members, memberDTO{UserID: m.UserID, Role: string(m.Role)})
	}
	return out, nil
}

func (h *Handler) addMember(ctx context.Context, input *addMemberInput) (*statusOutput, error) {
	userID, ok := UserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	privateKey, err := h.unlockCaller(ctx, userID, input.Body.Password)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(privateKey)

	if err := h.teams.AddMember(ctx, userID, privateKey, input.TeamID, input.Body.UserID, models.Role(input.Body.Role)); err != nil {
		return nil, mapErr(err)
	}
	return okStatus(), nil
}

func (h *Handler) removeMember(ctx context.Context, input *removeMemberInput) (*statusOutput, error) {
	userID, ok := UserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("unauthorized")
	}
	if err := h.teams.RemoveMember(ctx, userID, input.TeamID, input.UserID); err != nil {
		return nil, mapErr(err)
	}
	return okStatus(), nil
}

func (h *Handler) rotateKey(ctx context.Context, input *rotateKeyInput) (*statusOutput, error) {
	userID, ok := UserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	privateKey, err := h.unlockCaller(ctx, userID, input.Body.Password)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(privateKey)

	if err := h.teams.RotateKey(ctx, userID, privateKey, input.TeamID); err != nil {
		return nil, mapErr(err)
	}
	return okStatus(), nil
}

func (h *Handler) getKeyAccess(ctx context.Context, input *teamIDInput) (*keyAccessOutput, error) {
	userID, ok := UserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("unauthorized")
	}
	access, err := h.teams.GetKeyAccess(ctx, userID, input.TeamID)
	if err != nil {
		return nil, mapErr(err)
	}
	out := &keyAccessOutput{}
	out.Body.EncryptedTeamKey = access.EncryptedTeamKey
	out.Body.Nonce = access.Nonce
	return out, nil
}

// unlockCaller opens the caller's private-key envelope with the password sent
// in the request body. The caller must wipe the returned key.
func (h *Handler) unlockCaller(ctx context.Context, userID, password string) ([]byte, error) {
	pw := []byte(password)
	defer common.WipeByteArray(pw)

	privateKey, err := h.users.UnlockPrivateKey(ctx, userID, pw)
	if err != nil {
		return nil, mapErr(err)
	}
	return privateKey, nil
}

func toTeamDTO(team *models.Team) teamDTO {
	return teamDTO{ID: team.ID, Name: team.Name, IsPersonal: team.IsPersonal, CreatedAt: team.CreatedAt}
}

func okStatus() *statusOutput {
	out := &statusOutput{}
	out.Body.Status = "ok"
	return out
}
