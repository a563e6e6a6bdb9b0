// Package identity resolves request credentials into a caller identity.
package identity

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/globalbeauty/concierge-api/internal/model"
	"github.com/globalbeauty/concierge-api/internal/repository"
	"github.com/globalbeauty/concierge-api/pkg/token"
)

// Service turns session tokens and guest credentials into an Identity.
// Any credential that cannot be fully verified resolves to Anonymous;
// the resolver never returns an error for bad credentials, only for
// infrastructure failures surfaced by the caller as anonymous anyway.
type Service struct {
	sessionRepo repository.SessionRepository
	userRepo    repository.UserRepository
	opsRepo     repository.OpsUserRepository
	bookingRepo repository.BookingRepository
	logger      zerolog.Logger
	now         func() time.Time
}

func NewService(
	sessionRepo repository.SessionRepository,
	userRepo repository.UserRepository,
	opsRepo repository.OpsUserRepository,
	bookingRepo repository.BookingRepository,
	logger zerolog.Logger,
) *Service {
	return &Service{
		sessionRepo: sessionRepo,
		userRepo:    userRepo,
		opsRepo:     opsRepo,
		bookingRepo: bookingRepo,
		logger:      logger.With().Str("service", "identity").Logger(),
		now:         time.Now,
	}
}

// Resolve maps a session token to a registered-user identity. Missing,
// expired, or revoked sessions and inactive users all yield Anonymous.
func (s *Service) Resolve(ctx context.Context, sessionToken string) model.Identity {
	if sessionToken == "" {
		return model.Anonymous
	}

	session, err := s.sessionRepo.GetByToken(ctx, sessionToken)
	if err != nil {
		return model.Anonymous
	}
	if session.UserType != model.SessionUserTypeUser || !session.ValidAt(s.now()) {
		return model.Anonymous
	}

	user, err := s.userRepo.Get(ctx, session.UserID)
	if err != nil || !user.IsActive {
		return model.Anonymous
	}

	return model.Identity{
		Kind:         model.IdentityRegistered,
		UserID:       user.ID,
		Email:        user.Email,
		Name:         user.Name,
		Locale:       user.Locale,
		ProfileImage: user.ProfileImage,
	}
}

// ResolveOps maps an ops session token to an ops identity.
func (s *Service) ResolveOps(ctx context.Context, sessionToken string) model.Identity {
	if sessionToken == "" {
		return model.Anonymous
	}

	session, err := s.sessionRepo.GetByToken(ctx, sessionToken)
	if err != nil {
		return model.Anonymous
	}
	if session.UserType != model.SessionUserTypeOps || !session.ValidAt(s.now()) {
		return model.Anonymous
	}

	opsUser, err := s.opsRepo.Get(ctx, session.UserID)
	if err != nil || !opsUser.IsActive {
		return model.Anonymous
	}

	return model.Identity{
		Kind:   model.IdentityOps,
		UserID: opsUser.ID,
		Email:  opsUser.Email,
		Name:   opsUser.Name,
		Role:   opsUser.Role,
	}
}

// ResolveGuest verifies an email plus access code pair against a stored
// booking. The code is compared case-insensitively; on any mismatch the
// caller stays Anonymous.
func (s *Service) ResolveGuest(ctx context.Context, email, accessCode string) model.Identity {
	email = model.NormalizeEmail(email)
	accessCode = token.NormalizeAccessCode(accessCode)
	if email == "" || accessCode == "" {
		return model.Anonymous
	}

	booking, err := s.bookingRepo.GetByGuestCredentials(ctx, email, accessCode)
	if err != nil {
		return model.Anonymous
	}

	return model.Identity{
		Kind:      model.IdentityGuest,
		Email:     email,
		BookingID: booking.ID,
	}
}
