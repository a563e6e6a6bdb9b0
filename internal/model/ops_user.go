package model

import "time"

// OpsRole is a staff authority level.
type OpsRole string

const (
	OpsRoleAdmin    OpsRole = "admin"
	OpsRoleOperator OpsRole = "operator"
)

// OpsUser is a staff account with authority over the booking pipeline.
type OpsUser struct {
	Base
	Email        string     `db:"email" json:"email"`
	Name         string     `db:"name" json:"name"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Role         OpsRole    `db:"role" json:"role"`
	IsActive     bool       `db:"is_active" json:"is_active"`
	LastLoginAt  *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
}

// OpsLoginRequest is the ops console login payload.
type OpsLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// CreateOpsUserRequest provisions a staff account; gated by the admin
// secret, used for seeding.
type CreateOpsUserRequest struct {
	Email       string  `json:"email" binding:"required,email"`
	Password    string  `json:"password" binding:"required,min=8"`
	Name        string  `json:"name" binding:"required"`
	Role        OpsRole `json:"role"`
	AdminSecret string  `json:"admin_secret" binding:"required"`
}
