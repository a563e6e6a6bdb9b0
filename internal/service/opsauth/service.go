// Package opsauth handles staff console authentication.
package opsauth

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/globalbeauty/concierge-api/internal/model"
	"github.com/globalbeauty/concierge-api/internal/repository"
	apperrors "github.com/globalbeauty/concierge-api/pkg/errors"
	"github.com/globalbeauty/concierge-api/pkg/metrics"
	"github.com/globalbeauty/concierge-api/pkg/security"
	"github.com/globalbeauty/concierge-api/pkg/token"
)

type Service struct {
	opsRepo     repository.OpsUserRepository
	sessionRepo repository.SessionRepository
	hasher      security.PasswordHasher
	adminSecret string
	expiry      time.Duration
	metrics     *metrics.Metrics
	logger      zerolog.Logger
	now         func() time.Time
}

func NewService(
	opsRepo repository.OpsUserRepository,
	sessionRepo repository.SessionRepository,
	hasher security.PasswordHasher,
	adminSecret string,
	expiryDays int,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Service {
	return &Service{
		opsRepo:     opsRepo,
		sessionRepo: sessionRepo,
		hasher:      hasher,
		adminSecret: adminSecret,
		expiry:      time.Duration(expiryDays) * 24 * time.Hour,
		metrics:     m,
		logger:      logger.With().Str("service", "opsauth").Logger(),
		now:         time.Now,
	}
}

// Login verifies staff credentials and issues a session. Unknown email,
// wrong password and deactivated account all return the same error so a
// caller cannot probe which accounts exist.
func (s *Service) Login(ctx context.Context, req *model.OpsLoginRequest, userAgent, ip string) (*model.OpsUser, *model.Session, error) {
	invalid := func(err error) (*model.OpsUser, *model.Session, error) {
		return nil, nil, apperrors.Unauthorized("invalid credentials", err)
	}

	opsUser, err := s.opsRepo.GetByEmail(ctx, model.NormalizeEmail(req.Email))
	if err != nil {
		if apperrors.IsNotFound(err) {
			return invalid(err)
		}
		return nil, nil, err
	}
	if !opsUser.IsActive {
		return invalid(nil)
	}
	if err := s.hasher.Compare(opsUser.PasswordHash, req.Password); err != nil {
		return invalid(err)
	}

	now := s.now()
	session := &model.Session{
		ID:        uuid.New(),
		UserID:    opsUser.ID,
		UserType:  model.SessionUserTypeOps,
		Token:     token.NewSessionToken(),
		ExpiresAt: now.Add(s.expiry),
		UserAgent: userAgent,
		IPAddress: ip,
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, nil, err
	}

	if err := s.opsRepo.UpdateLastLogin(ctx, opsUser.ID, now); err != nil {
		s.logger.Warn().Err(err).Str("ops_user_id", opsUser.ID.String()).Msg("failed to record last login")
	}

	s.metrics.SessionsCreated.Inc()
	s.logger.Info().Str("ops_user_id", opsUser.ID.String()).Msg("ops login")
	return opsUser, session, nil
}

// Logout soft-revokes the session. The row stays until the retention
// sweep deletes it.
func (s *Service) Logout(ctx context.Context, sessionToken string) error {
	if sessionToken == "" {
		return nil
	}
	return s.sessionRepo.Revoke(ctx, sessionToken, model.SessionUserTypeOps, s.now())
}

// CreateUser provisions a staff account. Gated by the deployment's admin
// secret rather than an existing session so the first account can be
// seeded.
func (s *Service) CreateUser(ctx context.Context, req *model.CreateOpsUserRequest) (*model.OpsUser, error) {
	if s.adminSecret == "" ||
		subtle.ConstantTimeCompare([]byte(req.AdminSecret), []byte(s.adminSecret)) != 1 {
		return nil, apperrors.Forbidden("invalid admin secret", nil)
	}

	role := req.Role
	if role == "" {
		role = model.OpsRoleOperator
	}
	if role != model.OpsRoleAdmin && role != model.OpsRoleOperator {
		return nil, apperrors.Validation("unknown role", nil)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, apperrors.Internal("failed to hash password", err)
	}

	opsUser := &model.OpsUser{
		Email:        model.NormalizeEmail(req.Email),
		Name:         req.Name,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	opsUser.ID = uuid.New()

	if err := s.opsRepo.Create(ctx, opsUser); err != nil {
		return nil, err
	}

	s.logger.Info().Str("ops_user_id", opsUser.ID.String()).Str("role", string(role)).Msg("ops user created")
	return opsUser, nil
}
