// Package clinic serves the read-mostly clinic directory.
package clinic

import (
	"context"
	"time"

	"github.com/google/uuid"
	patcache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/globalbeauty/concierge-api/internal/model"
	"github.com/globalbeauty/concierge-api/internal/repository"
	apperrors "github.com/globalbeauty/concierge-api/pkg/errors"
)

// cacheTTL bounds staleness of directory reads. Rating recomputes show
// up within this window.
const cacheTTL = time.Minute

type Service struct {
	clinicRepo repository.ClinicRepository
	cache      *patcache.Cache
	logger     zerolog.Logger
}

func NewService(clinicRepo repository.ClinicRepository, logger zerolog.Logger) *Service {
	return &Service{
		clinicRepo: clinicRepo,
		cache:      patcache.New(cacheTTL, 5*time.Minute),
		logger:     logger.With().Str("service", "clinic").Logger(),
	}
}

func (s *Service) Get(ctx context.Context, id string) (*model.Clinic, error) {
	clinicID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperrors.Validation("invalid clinic id", err)
	}

	if cached, ok := s.cache.Get(clinicID.String()); ok {
		return cached.(*model.Clinic), nil
	}

	clinic, err := s.clinicRepo.Get(ctx, clinicID)
	if err != nil {
		return nil, err
	}
	s.cache.Set(clinicID.String(), clinic, patcache.DefaultExpiration)
	return clinic, nil
}

func (s *Service) List(ctx context.Context, filters *model.ClinicFilters) ([]*model.Clinic, int, error) {
	filters.Pagination.Normalize(20, 100)
	return s.clinicRepo.List(ctx, filters)
}
