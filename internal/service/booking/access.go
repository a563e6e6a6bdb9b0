package booking

import (
	"github.com/globalbeauty/concierge-api/internal/model"
	"github.com/globalbeauty/concierge-api/pkg/token"
)

// CanAccess reports whether the actor may view or act on the booking.
// Four credentials open a booking: the booking's own access code
// presented directly (no session needed), an ops session, account
// ownership (by user id or by the normalized email on the account), or
// guest credentials already verified against this exact booking. With
// no credential at all the answer is no.
func CanAccess(actor model.Identity, booking *model.Booking, presentedCode string) bool {
	if presentedCode != "" && token.NormalizeAccessCode(presentedCode) == booking.AccessCode {
		return true
	}

	switch actor.Kind {
	case model.IdentityOps:
		return true
	case model.IdentityRegistered:
		if booking.UserID != nil && *booking.UserID == actor.UserID {
			return true
		}
		return booking.GuestEmail != "" && booking.GuestEmail == actor.Email
	case model.IdentityGuest:
		return actor.BookingID == booking.ID
	default:
		return false
	}
}
