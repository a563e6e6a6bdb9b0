package model

import "github.com/google/uuid"

// IdentityKind is the discriminant of the Identity union. Consumers
// switch on it rather than probing optional fields.
type IdentityKind string

const (
	IdentityAnonymous  IdentityKind = "anonymous"
	IdentityRegistered IdentityKind = "registered"
	IdentityOps        IdentityKind = "ops"
	IdentityGuest      IdentityKind = "guest"
)

// Identity is the acting identity resolved from a presented credential.
// Only the fields relevant to the Kind are populated.
type Identity struct {
	Kind         IdentityKind
	UserID       uuid.UUID // registered and ops
	Email        string    // registered and guest, normalized
	Name         string
	Locale       Locale    // registered
	ProfileImage string    // registered
	Role         OpsRole   // ops
	BookingID    uuid.UUID // guest, the booking the access code unlocked
}

// Anonymous is the unauthenticated identity. Every credential failure
// resolves to it so callers cannot tell which check failed.
var Anonymous = Identity{Kind: IdentityAnonymous}

func (i Identity) IsAnonymous() bool  { return i.Kind == IdentityAnonymous || i.Kind == "" }
func (i Identity) IsRegistered() bool { return i.Kind == IdentityRegistered }
func (i Identity) IsOps() bool        { return i.Kind == IdentityOps }
