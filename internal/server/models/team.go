package models

import "time"

// Role of a team member. Admins may add/remove members and rotate the key.
type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

// Team owns exactly one symmetric team key, present in storage only as
// per-member wraps (TeamKeyAccess rows).
type Team struct {
	ID         string
	Name       string
	IsPersonal bool
	CreatedAt  time.Time
}

// TeamMember links a user to a team. Invariant: every membership row has a
// matching TeamKeyAccess row; one without the other is a consistency fault.
type TeamMember struct {
	TeamID string
	UserID string
	Role   Role
}

// TeamKeyAccess is the team key wrapped for one member's public key.
// Created together with the membership, deleted together with it, and
// replaced wholesale on rotation.
type TeamKeyAccess struct {
	TeamID           string
	UserID           string
	EncryptedTeamKey []byte
	Nonce            []byte
}
