package models

import "time"

// InviteCode gates registration: one code, one signup.
type InviteCode struct {
	ID        string
	Code      string
	IsUsed    bool
	CreatedAt time.Time
}
