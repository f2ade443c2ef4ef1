// Package common defines shared constants and sentinel errors used across
// TeamVault components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")

	// Crypto core errors. ErrInvalidCredentials and ErrDecryption are
	// deliberately generic: they must not reveal which check failed.
	ErrWeakInput          = errors.New("weak or empty input")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDecryption         = errors.New("decryption failed")

	// Team access errors.
	ErrNotAMember = errors.New("not a team member")

	// ErrConsistency marks a membership without a matching key wrap or a
	// partially applied rotation. It is never repaired in place: the
	// operation aborts and the error is surfaced as fatal.
	ErrConsistency = errors.New("inconsistent team key state")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)
