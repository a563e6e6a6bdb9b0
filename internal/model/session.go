package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionUserType discriminates which account collection a session
// references.
type SessionUserType string

const (
	SessionUserTypeUser SessionUserType = "user"
	SessionUserTypeOps  SessionUserType = "ops"
)

// Session is a bearer credential: possession of the token is
// authentication. Logout soft-revokes (sets RevokedAt); rows are only
// hard-deleted by the retention sweep once past their expiry window.
type Session struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	UserID    uuid.UUID       `db:"user_id" json:"user_id"`
	UserType  SessionUserType `db:"user_type" json:"user_type"`
	Token     string          `db:"token" json:"-"`
	ExpiresAt time.Time       `db:"expires_at" json:"expires_at"`
	RevokedAt *time.Time      `db:"revoked_at" json:"revoked_at,omitempty"`
	UserAgent string          `db:"user_agent" json:"user_agent,omitempty"`
	IPAddress string          `db:"ip_address" json:"ip_address,omitempty"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// ValidAt reports whether the session authenticates at time now.
func (s *Session) ValidAt(now time.Time) bool {
	return s.ExpiresAt.After(now) && s.RevokedAt == nil
}
