// Package api exposes the HTTP surface: huma operations over a chi router.
// Handlers translate between wire DTOs and services; binary fields (salts,
// nonces, wrapped keys, ciphertext) travel base64-encoded as JSON strings.
package api

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"teamvault/internal/logging"
	"teamvault/internal/server/services"
)

// Handler bundles the services behind the HTTP operations.
type Handler struct {
	users       *services.UserService
	teams       *services.TeamService
	credentials *services.CredentialService
	attachments *services.AttachmentService
	invites     *services.InviteService
	log         logging.Logger
}

// NewHandler constructs the API handler set.
func NewHandler(
	users *services.UserService,
	teams *services.TeamService,
	credentials *services.CredentialService,
	attachments *services.AttachmentService,
	invites *services.InviteService,
	log logging.Logger,
) *Handler {
	return &Handler{
		users:       users,
		teams:       teams,
		credentials: credentials,
		attachments: attachments,
		invites:     invites,
		log:         log,
	}
}

// NewRouter builds a chi mux with every operation registered through huma.
// Operations under /api plus /auth/change-password carry the bearer
// middleware; the rest are public.
func NewRouter(h *Handler, jwtSecret []byte) *chi.Mux {
	mux := chi.NewMux()

	config := huma.DefaultConfig("TeamVault API", "1.0.0")
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {Type: "http", Scheme: "bearer"},
	}

	api := humachi.New(mux, config)

	authMW := NewAuthMiddleware(jwtSecret, h.log)
	protected := huma.Middlewares{authMW.Middleware()}

	h.registerHealthRoutes(api)
	h.registerAuthRoutes(api, protected)
	h.registerTeamRoutes(api, protected)
	h.registerCredentialRoutes(api, protected)
	h.registerAttachmentRoutes(api, protected)

	return mux
}
