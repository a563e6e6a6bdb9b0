package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/globalbeauty/concierge-api/internal/model"
)

// All repository interfaces in one file
type (
	// BookingRepository persists booking requests. AppendTransition must
	// apply the status set, the history append and any option replacement
	// as a single atomic update; implementations must not rewrite the
	// history array from a previously loaded snapshot.
	BookingRepository interface {
		Create(ctx context.Context, booking *model.Booking) error
		Get(ctx context.Context, id uuid.UUID) (*model.Booking, error)
		GetByGuestCredentials(ctx context.Context, email, accessCode string) (*model.Booking, error)
		List(ctx context.Context, filters *model.BookingFilters) ([]*model.Booking, int, error)
		ListQueue(ctx context.Context, status model.BookingStatus, p model.Pagination) ([]*model.BookingWithSLA, int, error)
		AppendTransition(ctx context.Context, id uuid.UUID, change model.StatusChange, proposed model.ProposedOptions, confirmed *model.ConfirmedOption) error
		CountByStatus(ctx context.Context) (map[model.BookingStatus]int, error)
	}

	// ReviewRepository persists reviews. Create returns a conflict error
	// when a review already exists for the booking; the unique index is
	// what closes the concurrent-submission race.
	ReviewRepository interface {
		Create(ctx context.Context, review *model.Review) error
		GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*model.Review, error)
		ListByClinic(ctx context.Context, filters *model.ReviewFilters) ([]*model.Review, int, error)
		ListByUser(ctx context.Context, userID uuid.UUID, p model.Pagination) ([]*model.ReviewWithClinic, int, error)
		RatingStats(ctx context.Context, clinicID uuid.UUID) (count int, sum int, err error)
		RatingDistribution(ctx context.Context, clinicID uuid.UUID) (map[int]int, error)
		IncrementHelpful(ctx context.Context, id uuid.UUID) (int, error)
	}

	ClinicRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Clinic, error)
		List(ctx context.Context, filters *model.ClinicFilters) ([]*model.Clinic, int, error)
		UpdateRating(ctx context.Context, id uuid.UUID, rating float64, reviewCount int) error
	}

	UserRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		GetByEmail(ctx context.Context, email string) (*model.User, error)
		Create(ctx context.Context, user *model.User) error
		Update(ctx context.Context, user *model.User) error
	}

	OpsUserRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.OpsUser, error)
		GetByEmail(ctx context.Context, email string) (*model.OpsUser, error)
		Create(ctx context.Context, user *model.OpsUser) error
		UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	}

	// SessionRepository persists bearer sessions. GetByToken returns the
	// row regardless of validity; expiry and revocation checks belong to
	// the identity service. DeleteExpiredBefore is the retention sweep.
	SessionRepository interface {
		Create(ctx context.Context, session *model.Session) error
		GetByToken(ctx context.Context, token string) (*model.Session, error)
		Revoke(ctx context.Context, token string, userType model.SessionUserType, at time.Time) error
		DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
	}
)
