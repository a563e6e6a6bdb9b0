// Package booking implements the booking request lifecycle: creation
// with access code issuance, the ops status pipeline, and the queue and
// stats views.
package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/globalbeauty/concierge-api/internal/model"
	"github.com/globalbeauty/concierge-api/internal/repository"
	apperrors "github.com/globalbeauty/concierge-api/pkg/errors"
	"github.com/globalbeauty/concierge-api/pkg/messaging"
	"github.com/globalbeauty/concierge-api/pkg/metrics"
	"github.com/globalbeauty/concierge-api/pkg/token"
)

// Notifier receives lifecycle events for email delivery. Calls are made
// from goroutines after the state change has committed; implementations
// must not assume the request context is still alive.
type Notifier interface {
	BookingCreated(ctx context.Context, booking *model.Booking)
	StatusChanged(ctx context.Context, booking *model.Booking, status model.BookingStatus)
}

// maxAccessCodeAttempts bounds regeneration on unique-constraint
// collisions. At 8 hex chars a second collision is already unlikely.
const maxAccessCodeAttempts = 5

const eventsChannel = "booking.events"

type Service struct {
	bookingRepo repository.BookingRepository
	clinicRepo  repository.ClinicRepository
	notifier    Notifier
	broker      messaging.Broker
	metrics     *metrics.Metrics
	logger      zerolog.Logger
	now         func() time.Time
}

func NewService(
	bookingRepo repository.BookingRepository,
	clinicRepo repository.ClinicRepository,
	notifier Notifier,
	broker messaging.Broker,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Service {
	return &Service{
		bookingRepo: bookingRepo,
		clinicRepo:  clinicRepo,
		notifier:    notifier,
		broker:      broker,
		metrics:     m,
		logger:      logger.With().Str("service", "booking").Logger(),
		now:         time.Now,
	}
}

// Create validates the request, issues an access code and persists the
// booking with its seed history entry. The acknowledgement email and the
// event publish happen after return and never fail the call.
func (s *Service) Create(ctx context.Context, actor model.Identity, req *model.CreateBookingRequest) (*model.Booking, error) {
	clinic, err := s.clinicRepo.Get(ctx, req.ClinicID)
	if err != nil {
		return nil, err
	}
	if !clinic.IsActive {
		return nil, apperrors.Validation("clinic is not accepting requests", nil)
	}

	booking := &model.Booking{
		ClinicID:          req.ClinicID,
		Procedure:         req.Procedure,
		PreferredDate:     req.PreferredDate,
		PreferredTimeSlot: req.PreferredTimeSlot,
		GuestPhone:        req.GuestPhone,
		Photos:            model.StringSlice(req.Photos),
		Locale:            req.Locale.OrDefault(),
		Notes:             req.Notes,
		Status:            model.BookingStatusReceived,
	}
	if req.Budget != nil {
		booking.Budget = *req.Budget
	}

	// Requester: a logged-in user owns the booking through their account,
	// anyone else must leave a way to reach them.
	if actor.IsRegistered() {
		userID := actor.UserID
		booking.UserID = &userID
		booking.GuestEmail = actor.Email
	} else {
		booking.GuestEmail = model.NormalizeEmail(req.GuestEmail)
	}
	if booking.GuestEmail == "" && booking.GuestPhone == "" {
		return nil, apperrors.Validation("a contact email or phone is required", nil)
	}

	now := s.now()
	booking.StatusHistory = model.StatusHistory{{
		Status:    model.BookingStatusReceived,
		ChangedAt: now,
	}}

	if err := s.createWithAccessCode(ctx, booking); err != nil {
		return nil, err
	}

	s.metrics.BookingsCreated.Inc()
	s.logger.Info().
		Str("booking_id", booking.ID.String()).
		Str("clinic_id", booking.ClinicID.String()).
		Msg("booking request created")

	go s.notifier.BookingCreated(context.Background(), booking)
	go s.publishEvent("booking.created", booking)

	return booking, nil
}

// createWithAccessCode inserts the booking, regenerating the access code
// on a unique-constraint collision.
func (s *Service) createWithAccessCode(ctx context.Context, booking *model.Booking) error {
	for attempt := 0; attempt < maxAccessCodeAttempts; attempt++ {
		booking.ID = uuid.New()
		booking.AccessCode = token.NewAccessCode()

		err := s.bookingRepo.Create(ctx, booking)
		if err == nil {
			return nil
		}
		if !apperrors.IsConflict(err) {
			return err
		}
		s.metrics.AccessCodeRetries.Inc()
		s.logger.Warn().Int("attempt", attempt+1).Msg("access code collision, regenerating")
	}
	return apperrors.Internal("could not allocate a unique access code", nil)
}

// Get loads a booking and enforces the access guard. presentedCode is
// the raw access code from the request, if any; it opens the booking it
// belongs to without a session.
func (s *Service) Get(ctx context.Context, actor model.Identity, id, presentedCode string) (*model.Booking, error) {
	bookingID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperrors.Validation("invalid booking id", err)
	}

	booking, err := s.bookingRepo.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !CanAccess(actor, booking, presentedCode) {
		return nil, apperrors.Forbidden("you do not have access to this booking", nil)
	}
	return booking, nil
}

// ListMine returns the caller's own bookings: by account for registered
// users, by verified email for guests.
func (s *Service) ListMine(ctx context.Context, actor model.Identity, status model.BookingStatus, p model.Pagination) ([]*model.Booking, int, error) {
	if status != "" && !status.Valid() {
		return nil, 0, apperrors.Validation("unknown status filter", nil)
	}
	p.Normalize(20, 100)
	filters := &model.BookingFilters{Status: status, Pagination: p}

	switch {
	case actor.IsRegistered():
		userID := actor.UserID
		filters.UserID = &userID
		filters.GuestEmail = actor.Email
	case actor.Kind == model.IdentityGuest:
		filters.GuestEmail = actor.Email
	default:
		return nil, 0, apperrors.Unauthorized("login or guest credentials required", nil)
	}

	return s.bookingRepo.List(ctx, filters)
}

// Transition applies an ops status change. Every call appends a history
// entry, even when the status repeats; proposed options are replaced
// wholesale when present and the confirmed option is set once provided.
func (s *Service) Transition(ctx context.Context, actor model.Identity, id string, req *model.UpdateBookingStatusRequest) (*model.Booking, error) {
	if !actor.IsOps() {
		return nil, apperrors.Forbidden("ops access required", nil)
	}
	bookingID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperrors.Validation("invalid booking id", err)
	}
	if !req.Status.Valid() {
		return nil, apperrors.Validation("unknown booking status", nil)
	}

	changedBy := actor.UserID
	change := model.StatusChange{
		Status:    req.Status,
		ChangedAt: s.now(),
		ChangedBy: &changedBy,
		Note:      req.Note,
	}

	if err := s.bookingRepo.AppendTransition(ctx, bookingID, change, req.ProposedOptions, req.ConfirmedOption); err != nil {
		return nil, err
	}

	booking, err := s.bookingRepo.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	s.metrics.StatusTransitions.WithLabelValues(string(req.Status)).Inc()
	s.logger.Info().
		Str("booking_id", booking.ID.String()).
		Str("status", string(req.Status)).
		Str("changed_by", changedBy.String()).
		Msg("booking status updated")

	go s.notifier.StatusChanged(context.Background(), booking, req.Status)
	go s.publishEvent("booking.status_changed", booking)

	return booking, nil
}

// Queue returns the ops work queue with SLA annotations computed at
// read time.
func (s *Service) Queue(ctx context.Context, status model.BookingStatus, p model.Pagination) ([]*model.BookingWithSLA, int, error) {
	if status != "" && !status.Valid() {
		return nil, 0, apperrors.Validation("unknown booking status", nil)
	}
	p.Normalize(20, 100)

	items, total, err := s.bookingRepo.ListQueue(ctx, status, p)
	if err != nil {
		return nil, 0, err
	}

	now := s.now()
	for _, item := range items {
		item.SLA = item.ComputeSLA(now)
	}
	return items, total, nil
}

// Stats builds the ops dashboard aggregate. Total counts only requests
// in the active funnel; terminal informational statuses are excluded.
func (s *Service) Stats(ctx context.Context) (*model.BookingStats, error) {
	counts, err := s.bookingRepo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	total := counts[model.BookingStatusConfirmed] +
		counts[model.BookingStatusCancelled] +
		counts[model.BookingStatusReceived] +
		counts[model.BookingStatusContactingHospital] +
		counts[model.BookingStatusProposedOptions]

	var conversionRate float64
	if total > 0 {
		conversionRate = float64(counts[model.BookingStatusConfirmed]) / float64(total) * 100
		conversionRate = float64(int64(conversionRate*10+0.5)) / 10
	}

	return &model.BookingStats{
		StatusCounts:   counts,
		TotalRequests:  total,
		ConversionRate: conversionRate,
		Pending:        counts[model.BookingStatusReceived] + counts[model.BookingStatusContactingHospital],
	}, nil
}

func (s *Service) publishEvent(eventType string, booking *model.Booking) {
	if s.broker == nil {
		return
	}

	msg := messaging.Message{
		Type: eventType,
		Payload: map[string]interface{}{
			"booking_id": booking.ID,
			"clinic_id":  booking.ClinicID,
			"status":     booking.Status,
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.broker.Publish(ctx, eventsChannel, msg); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("failed to publish booking event")
	}
}
