package api

import (
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"teamvault/internal/common"
)

// mapErr translates service sentinel errors into huma status errors. Unknown
// errors surface as 500 without internal detail.
func mapErr(err error) error {
	switch {
	case errors.Is(err, common.ErrWeakInput):
		return huma.Error422UnprocessableEntity(err.Error())
	case errors.Is(err, common.ErrInvalidCredentials),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrRefreshTokenExpired),
		errors.Is(err, common.ErrorUnauthorized):
		return huma.Error401Unauthorized("unauthorized")
	case errors.Is(err, common.ErrorForbidden),
		errors.Is(err, common.ErrNotAMember),
		errors.Is(err, common.ErrDecryption):
		return huma.Error403Forbidden("forbidden")
	case errors.Is(err, common.ErrorNotFound):
		return huma.Error404NotFound("not found")
	default:
		return huma.Error500InternalServerError("internal error")
	}
}
