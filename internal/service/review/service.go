// Package review implements the verified review gate: one review per
// confirmed booking, submitted by the booking's owner.
package review

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/globalbeauty/concierge-api/internal/model"
	"github.com/globalbeauty/concierge-api/internal/repository"
	apperrors "github.com/globalbeauty/concierge-api/pkg/errors"
	"github.com/globalbeauty/concierge-api/pkg/metrics"
)

// Eligibility refusal reasons, surfaced to the review form.
const (
	ReasonLoginRequired   = "login required"
	ReasonBookingNotFound = "booking not found"
	ReasonNotYourBooking  = "not your booking"
	ReasonNotConfirmed    = "booking must be confirmed"
	ReasonAlreadyReviewed = "already reviewed"
)

type Service struct {
	reviewRepo  repository.ReviewRepository
	bookingRepo repository.BookingRepository
	clinicRepo  repository.ClinicRepository
	metrics     *metrics.Metrics
	logger      zerolog.Logger
}

func NewService(
	reviewRepo repository.ReviewRepository,
	bookingRepo repository.BookingRepository,
	clinicRepo repository.ClinicRepository,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Service {
	return &Service{
		reviewRepo:  reviewRepo,
		bookingRepo: bookingRepo,
		clinicRepo:  clinicRepo,
		metrics:     m,
		logger:      logger.With().Str("service", "review").Logger(),
	}
}

// CanReview runs the eligibility gates in order and returns the first
// refusal: the caller must be logged in, the booking must exist and be
// theirs, it must be confirmed, and no review may exist for it yet.
func (s *Service) CanReview(ctx context.Context, actor model.Identity, bookingID uuid.UUID) (*model.ReviewEligibility, error) {
	if !actor.IsRegistered() {
		return &model.ReviewEligibility{Reason: ReasonLoginRequired}, nil
	}

	booking, err := s.bookingRepo.Get(ctx, bookingID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return &model.ReviewEligibility{Reason: ReasonBookingNotFound}, nil
		}
		return nil, err
	}
	if !owns(actor, booking) {
		return &model.ReviewEligibility{Reason: ReasonNotYourBooking}, nil
	}
	if booking.Status != model.BookingStatusConfirmed {
		return &model.ReviewEligibility{Reason: ReasonNotConfirmed}, nil
	}

	if _, err := s.reviewRepo.GetByBookingID(ctx, bookingID); err == nil {
		return &model.ReviewEligibility{Reason: ReasonAlreadyReviewed}, nil
	} else if !apperrors.IsNotFound(err) {
		return nil, err
	}

	return &model.ReviewEligibility{Allowed: true}, nil
}

// Create submits a review. Eligibility is re-validated here regardless
// of any earlier CanReview call; the unique constraint on booking_id is
// what finally closes the concurrent double-submit race.
func (s *Service) Create(ctx context.Context, actor model.Identity, req *model.CreateReviewRequest) (*model.Review, error) {
	if !actor.IsRegistered() {
		return nil, apperrors.Unauthorized(ReasonLoginRequired, nil)
	}

	booking, err := s.bookingRepo.Get(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}
	if !owns(actor, booking) {
		return nil, apperrors.Forbidden(ReasonNotYourBooking, nil)
	}
	if booking.Status != model.BookingStatusConfirmed {
		return nil, apperrors.Validation(ReasonNotConfirmed, nil)
	}

	review := &model.Review{
		ClinicID:   booking.ClinicID,
		UserID:     actor.UserID,
		BookingID:  booking.ID,
		Rating:     req.Rating,
		Title:      req.Title,
		Content:    req.Content,
		Procedure:  booking.Procedure,
		VisitDate:  booking.VisitDate(),
		Locale:     booking.Locale,
		Photos:     model.StringSlice(req.Photos),
		IsVerified: true,
		IsVisible:  true,
	}
	review.ID = uuid.New()

	if err := s.reviewRepo.Create(ctx, review); err != nil {
		if apperrors.IsConflict(err) {
			s.metrics.ReviewConflicts.Inc()
			return nil, apperrors.Conflict(ReasonAlreadyReviewed, err)
		}
		return nil, err
	}

	s.metrics.ReviewsCreated.Inc()
	s.logger.Info().
		Str("review_id", review.ID.String()).
		Str("clinic_id", review.ClinicID.String()).
		Int("rating", review.Rating).
		Msg("review created")

	if err := s.recomputeClinicRating(ctx, booking.ClinicID); err != nil {
		// The review is committed; a stale clinic aggregate self-heals on
		// the next recompute.
		s.logger.Error().Err(err).
			Str("clinic_id", booking.ClinicID.String()).
			Msg("failed to recompute clinic rating")
	}

	return review, nil
}

// recomputeClinicRating recalculates the clinic aggregate from all of
// its reviews and rounds the mean to one decimal. A full recompute,
// never an incremental adjustment, so drift cannot accumulate.
func (s *Service) recomputeClinicRating(ctx context.Context, clinicID uuid.UUID) error {
	count, sum, err := s.reviewRepo.RatingStats(ctx, clinicID)
	if err != nil {
		return err
	}

	var rating float64
	if count > 0 {
		rating = float64(sum) / float64(count)
		rating = float64(int64(rating*10+0.5)) / 10
	}
	return s.clinicRepo.UpdateRating(ctx, clinicID, rating, count)
}

// ListByClinic returns visible reviews plus the aggregate stats block.
func (s *Service) ListByClinic(ctx context.Context, filters *model.ReviewFilters) ([]*model.Review, int, *model.ReviewStats, error) {
	filters.Pagination.Normalize(20, 100)
	if filters.Sort == "" {
		filters.Sort = model.ReviewSortRecent
	}

	reviews, total, err := s.reviewRepo.ListByClinic(ctx, filters)
	if err != nil {
		return nil, 0, nil, err
	}

	count, sum, err := s.reviewRepo.RatingStats(ctx, filters.ClinicID)
	if err != nil {
		return nil, 0, nil, err
	}
	distribution, err := s.reviewRepo.RatingDistribution(ctx, filters.ClinicID)
	if err != nil {
		return nil, 0, nil, err
	}

	stats := &model.ReviewStats{
		TotalReviews:       count,
		RatingDistribution: distribution,
	}
	if count > 0 {
		avg := float64(sum) / float64(count)
		stats.AverageRating = float64(int64(avg*10+0.5)) / 10
	}

	return reviews, total, stats, nil
}

// ListMine returns the caller's own reviews, newest first, with the
// clinic name joined in.
func (s *Service) ListMine(ctx context.Context, actor model.Identity, p model.Pagination) ([]*model.ReviewWithClinic, int, error) {
	if !actor.IsRegistered() {
		return nil, 0, apperrors.Unauthorized(ReasonLoginRequired, nil)
	}
	p.Normalize(20, 100)
	return s.reviewRepo.ListByUser(ctx, actor.UserID, p)
}

// MarkHelpful increments the helpful counter and returns the new count.
func (s *Service) MarkHelpful(ctx context.Context, id uuid.UUID) (int, error) {
	return s.reviewRepo.IncrementHelpful(ctx, id)
}

// owns reports whether the registered actor owns the booking, by user id
// or by the email on the account.
func owns(actor model.Identity, booking *model.Booking) bool {
	if booking.UserID != nil && *booking.UserID == actor.UserID {
		return true
	}
	return booking.GuestEmail != "" && booking.GuestEmail == actor.Email
}
