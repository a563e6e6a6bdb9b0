package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Base contains common fields for all models
type Base struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Pagination represents common pagination parameters
type Pagination struct {
	Page  int `json:"page" form:"page"`
	Limit int `json:"limit" form:"limit"`
}

// Normalize clamps page/limit into the given bounds.
func (p *Pagination) Normalize(defaultLimit, maxLimit int) {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = defaultLimit
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
}

// Offset returns the row offset for the current page.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.Limit
}

// TotalPages returns the page count for a given total.
func (p Pagination) TotalPages(total int) int {
	if p.Limit == 0 {
		return 0
	}
	return (total + p.Limit - 1) / p.Limit
}

// NormalizeEmail is the single normalization applied to every email before
// storage and every comparison. Ownership checks, guest lookups and login
// all go through it; ad hoc lowercasing at call sites is a bug.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
