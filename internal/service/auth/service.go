// Package auth handles consumer sign-in. Google sign-in is the only
// provider; the verifier boundary keeps the token check swappable in
// tests.
package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/globalbeauty/concierge-api/internal/model"
	"github.com/globalbeauty/concierge-api/internal/repository"
	apperrors "github.com/globalbeauty/concierge-api/pkg/errors"
	"github.com/globalbeauty/concierge-api/pkg/metrics"
	"github.com/globalbeauty/concierge-api/pkg/token"
)

// Profile is the identity asserted by an OAuth provider token.
type Profile struct {
	ProviderID string
	Email      string
	Name       string
	Picture    string
}

// TokenVerifier validates a provider-issued ID token and returns the
// profile it asserts.
type TokenVerifier interface {
	Verify(ctx context.Context, idToken string) (*Profile, error)
}

// LoginRequest carries the provider ID token plus client hints.
type LoginRequest struct {
	IDToken string       `json:"id_token" binding:"required"`
	Locale  model.Locale `json:"locale"`
}

type Service struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	verifier    TokenVerifier
	expiry      time.Duration
	metrics     *metrics.Metrics
	logger      zerolog.Logger
	now         func() time.Time
}

func NewService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	verifier TokenVerifier,
	expiryDays int,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Service {
	return &Service{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		verifier:    verifier,
		expiry:      time.Duration(expiryDays) * 24 * time.Hour,
		metrics:     m,
		logger:      logger.With().Str("service", "auth").Logger(),
		now:         time.Now,
	}
}

// Login verifies the provider token, finds or creates the account, and
// issues a session. An existing account with the same normalized email
// is linked to the provider rather than duplicated.
func (s *Service) Login(ctx context.Context, req *LoginRequest, userAgent, ip string) (*model.User, *model.Session, error) {
	profile, err := s.verifier.Verify(ctx, req.IDToken)
	if err != nil {
		return nil, nil, apperrors.Unauthorized("invalid credentials", err)
	}

	user, err := s.findOrCreateUser(ctx, profile, req.Locale)
	if err != nil {
		return nil, nil, err
	}
	if !user.IsActive {
		return nil, nil, apperrors.Unauthorized("invalid credentials", nil)
	}

	session := &model.Session{
		ID:        uuid.New(),
		UserID:    user.ID,
		UserType:  model.SessionUserTypeUser,
		Token:     token.NewSessionToken(),
		ExpiresAt: s.now().Add(s.expiry),
		UserAgent: userAgent,
		IPAddress: ip,
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, nil, err
	}

	s.metrics.SessionsCreated.Inc()
	s.logger.Info().Str("user_id", user.ID.String()).Msg("user login")
	return user, session, nil
}

func (s *Service) findOrCreateUser(ctx context.Context, profile *Profile, locale model.Locale) (*model.User, error) {
	email := model.NormalizeEmail(profile.Email)
	if email == "" {
		return nil, apperrors.Unauthorized("provider token carries no email", nil)
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err == nil {
		if user.ProviderID == nil {
			providerID := profile.ProviderID
			user.Provider = model.ProviderGoogle
			user.ProviderID = &providerID
			if user.ProfileImage == "" {
				user.ProfileImage = profile.Picture
			}
			if err := s.userRepo.Update(ctx, user); err != nil {
				return nil, err
			}
		}
		return user, nil
	}
	if !apperrors.IsNotFound(err) {
		return nil, err
	}

	providerID := profile.ProviderID
	user = &model.User{
		Email:        email,
		Name:         profile.Name,
		Provider:     model.ProviderGoogle,
		ProviderID:   &providerID,
		Locale:       locale.OrDefault(),
		ProfileImage: profile.Picture,
		IsActive:     true,
	}
	user.ID = uuid.New()

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info().Str("user_id", user.ID.String()).Msg("user account created")
	return user, nil
}

// Logout soft-revokes the session token; unknown tokens are a no-op.
func (s *Service) Logout(ctx context.Context, sessionToken string) error {
	if sessionToken == "" {
		return nil
	}
	return s.sessionRepo.Revoke(ctx, sessionToken, model.SessionUserTypeUser, s.now())
}

// Me returns the account behind a resolved registered identity.
func (s *Service) Me(ctx context.Context, actor model.Identity) (*model.User, error) {
	if !actor.IsRegistered() {
		return nil, apperrors.Unauthorized("login required", nil)
	}
	return s.userRepo.Get(ctx, actor.UserID)
}
