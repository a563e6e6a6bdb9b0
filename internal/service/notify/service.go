// Package notify sends booking lifecycle emails. Delivery is best
// effort: failures are logged and counted, never surfaced to the
// operation that triggered them.
package notify

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/globalbeauty/concierge-api/internal/email"
	"github.com/globalbeauty/concierge-api/internal/model"
	"github.com/globalbeauty/concierge-api/internal/repository"
	apperrors "github.com/globalbeauty/concierge-api/pkg/errors"
	"github.com/globalbeauty/concierge-api/pkg/metrics"
)

type Service struct {
	sender     email.Sender
	clinicRepo repository.ClinicRepository
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

func NewService(sender email.Sender, clinicRepo repository.ClinicRepository, m *metrics.Metrics, logger zerolog.Logger) *Service {
	return &Service{
		sender:     sender,
		clinicRepo: clinicRepo,
		metrics:    m,
		logger:     logger.With().Str("service", "notify").Logger(),
	}
}

// BookingCreated sends the acknowledgement email carrying the access
// code. Called in a goroutine by the booking service.
func (s *Service) BookingCreated(ctx context.Context, booking *model.Booking) {
	s.send(ctx, booking, TemplateBookingReceived)
}

// StatusChanged sends the email matching the new status. Only confirmed
// and cancelled trigger mail; every other status is silent.
func (s *Service) StatusChanged(ctx context.Context, booking *model.Booking, status model.BookingStatus) {
	var kind TemplateKind
	switch status {
	case model.BookingStatusConfirmed:
		kind = TemplateBookingConfirmed
	case model.BookingStatusCancelled:
		kind = TemplateBookingCancelled
	default:
		return
	}
	s.send(ctx, booking, kind)
}

// messageTemplates maps the ops console's short message keys to email
// templates.
var messageTemplates = map[string]TemplateKind{
	"received":   TemplateBookingReceived,
	"contacting": TemplateContactingHospital,
	"options":    TemplateProposedOptions,
	"confirmed":  TemplateBookingConfirmed,
	"cancelled":  TemplateBookingCancelled,
}

// SendMessage sends an ops-initiated template email to the booking
// contact and returns the recipient. Unlike the lifecycle hooks this is
// an explicit staff action, so a missing contact or unknown key is an
// error.
func (s *Service) SendMessage(ctx context.Context, booking *model.Booking, template string) (string, error) {
	kind, ok := messageTemplates[template]
	if !ok {
		return "", apperrors.Validation("unknown message template", nil)
	}
	to := booking.ContactEmail()
	if to == "" {
		return "", apperrors.Validation("booking has no contact email", nil)
	}
	s.send(ctx, booking, kind)
	return to, nil
}

func (s *Service) send(ctx context.Context, booking *model.Booking, kind TemplateKind) {
	to := booking.ContactEmail()
	if to == "" {
		s.logger.Debug().
			Str("booking_id", booking.ID.String()).
			Str("template", string(kind)).
			Msg("no contact email, skipping notification")
		return
	}

	data := templateData{
		Procedure:  booking.Procedure,
		AccessCode: booking.AccessCode,
	}
	if clinic, err := s.clinicRepo.Get(ctx, booking.ClinicID); err == nil {
		data.ClinicName = clinic.Name.In(booking.Locale)
	}
	if booking.ConfirmedOption.Valid {
		data.Date = formatDate(booking.ConfirmedOption.Date)
		data.TimeSlot = booking.ConfirmedOption.TimeSlot
		if booking.ConfirmedOption.Price > 0 {
			data.Price = formatPrice(booking.ConfirmedOption.Price, booking.Budget.Currency)
		}
	} else {
		data.Date = formatDate(booking.PreferredDate)
		data.TimeSlot = booking.PreferredTimeSlot
	}
	// The booking arrives reloaded after the transition committed, so the
	// last history entry carries the note of the change being announced.
	if n := len(booking.StatusHistory); n > 0 {
		data.Note = booking.StatusHistory[n-1].Note
	}

	rendered := render(kind, booking.Locale, data)
	if rendered.Subject == "" {
		return
	}

	if err := s.sender.Send(to, rendered.Subject, rendered.Body); err != nil {
		s.metrics.EmailsFailed.WithLabelValues(string(kind)).Inc()
		s.logger.Error().Err(err).
			Str("booking_id", booking.ID.String()).
			Str("template", string(kind)).
			Msg("notification delivery failed")
		return
	}
	s.metrics.EmailsSent.WithLabelValues(string(kind)).Inc()
}
