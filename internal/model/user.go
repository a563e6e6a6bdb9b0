package model

// AuthProvider identifies how a registered user account was created.
type AuthProvider string

const (
	ProviderGoogle AuthProvider = "google"
	ProviderGuest  AuthProvider = "guest"
)

// User is a registered consumer account. Email is stored normalized and
// unique; (provider, provider_id) is unique for linked identities.
type User struct {
	Base
	Email        string       `db:"email" json:"email"`
	Name         string       `db:"name" json:"name"`
	Provider     AuthProvider `db:"provider" json:"provider"`
	ProviderID   *string      `db:"provider_id" json:"provider_id,omitempty"`
	Locale       Locale       `db:"locale" json:"locale"`
	Phone        string       `db:"phone" json:"phone,omitempty"`
	ProfileImage string       `db:"profile_image" json:"profile_image,omitempty"`
	IsActive     bool         `db:"is_active" json:"is_active"`
}
