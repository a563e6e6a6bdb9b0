package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/globalbeauty/concierge-api/internal/model"
	apperrors "github.com/globalbeauty/concierge-api/pkg/errors"
	"github.com/globalbeauty/concierge-api/pkg/metrics"
)

var testMetrics = metrics.New("notify_service_test")

type sentMail struct {
	to      string
	subject string
	body    string
}

type fakeSender struct {
	sent []sentMail
	err  error
}

func (s *fakeSender) Send(to, subject, htmlBody string) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sentMail{to: to, subject: subject, body: htmlBody})
	return nil
}

type fakeClinicRepo struct {
	clinic *model.Clinic
}

func (r *fakeClinicRepo) Get(_ context.Context, id uuid.UUID) (*model.Clinic, error) {
	if r.clinic != nil && r.clinic.ID == id {
		return r.clinic, nil
	}
	return nil, apperrors.NotFound("clinic", nil)
}

func (r *fakeClinicRepo) List(_ context.Context, _ *model.ClinicFilters) ([]*model.Clinic, int, error) {
	return nil, 0, nil
}

func (r *fakeClinicRepo) UpdateRating(_ context.Context, _ uuid.UUID, _ float64, _ int) error {
	return nil
}

func testBooking(clinicID uuid.UUID, locale model.Locale) *model.Booking {
	b := &model.Booking{
		ClinicID:      clinicID,
		GuestEmail:    "mina@example.com",
		Procedure:     "rhinoplasty",
		PreferredDate: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
		Locale:        locale,
		AccessCode:    "A1B2C3D4",
		Status:        model.BookingStatusReceived,
	}
	b.ID = uuid.New()
	return b
}

func newService(sender *fakeSender, clinic *model.Clinic) *Service {
	return NewService(sender, &fakeClinicRepo{clinic: clinic}, testMetrics, zerolog.Nop())
}

func TestBookingCreatedSendsAccessCode(t *testing.T) {
	clinic := &model.Clinic{Name: model.LocalizedString{EN: "Glow Clinic", JA: "グロークリニック"}}
	clinic.ID = uuid.New()
	sender := &fakeSender{}
	svc := newService(sender, clinic)

	svc.BookingCreated(context.Background(), testBooking(clinic.ID, model.LocaleEN))

	require.Len(t, sender.sent, 1)
	mail := sender.sent[0]
	assert.Equal(t, "mina@example.com", mail.to)
	assert.Equal(t, "We received your booking request", mail.subject)
	assert.Contains(t, mail.body, "A1B2C3D4")
	assert.Contains(t, mail.body, "rhinoplasty")
	assert.Contains(t, mail.body, "Glow Clinic")
}

func TestNotificationsAreLocalized(t *testing.T) {
	clinic := &model.Clinic{Name: model.LocalizedString{EN: "Glow Clinic", JA: "グロークリニック"}}
	clinic.ID = uuid.New()
	sender := &fakeSender{}
	svc := newService(sender, clinic)

	svc.BookingCreated(context.Background(), testBooking(clinic.ID, model.LocaleJA))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "ご予約リクエストを受け付けました", sender.sent[0].subject)
	assert.Contains(t, sender.sent[0].body, "グロークリニック", "clinic name resolved in the booking locale")
}

func TestUnknownLocaleFallsBackToEnglish(t *testing.T) {
	clinic := &model.Clinic{Name: model.LocalizedString{EN: "Glow Clinic"}}
	clinic.ID = uuid.New()
	sender := &fakeSender{}
	svc := newService(sender, clinic)

	svc.BookingCreated(context.Background(), testBooking(clinic.ID, model.Locale("de")))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "We received your booking request", sender.sent[0].subject)
}

func TestStatusChangedSendsOnlyTerminalStatuses(t *testing.T) {
	clinic := &model.Clinic{Name: model.LocalizedString{EN: "Glow Clinic"}}
	clinic.ID = uuid.New()
	sender := &fakeSender{}
	svc := newService(sender, clinic)
	booking := testBooking(clinic.ID, model.LocaleEN)

	silent := []model.BookingStatus{
		model.BookingStatusReceived,
		model.BookingStatusContactingHospital,
		model.BookingStatusProposedOptions,
		model.BookingStatusNeedsMoreInfo,
		model.BookingStatusNoAvailability,
	}
	for _, status := range silent {
		svc.StatusChanged(context.Background(), booking, status)
	}
	assert.Empty(t, sender.sent, "intermediate statuses are silent")

	svc.StatusChanged(context.Background(), booking, model.BookingStatusConfirmed)
	svc.StatusChanged(context.Background(), booking, model.BookingStatusCancelled)
	require.Len(t, sender.sent, 2)
	assert.Equal(t, "Your booking is confirmed", sender.sent[0].subject)
	assert.Equal(t, "Your booking request was cancelled", sender.sent[1].subject)
}

func TestConfirmedEmailUsesConfirmedOption(t *testing.T) {
	clinic := &model.Clinic{Name: model.LocalizedString{EN: "Glow Clinic"}}
	clinic.ID = uuid.New()
	sender := &fakeSender{}
	svc := newService(sender, clinic)

	booking := testBooking(clinic.ID, model.LocaleEN)
	booking.ConfirmedOption = model.NullConfirmedOption{
		ConfirmedOption: model.ConfirmedOption{
			Date:     time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC),
			TimeSlot: "14:00",
		},
		Valid: true,
	}

	svc.StatusChanged(context.Background(), booking, model.BookingStatusConfirmed)

	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].body, "2026-07-15")
	assert.Contains(t, sender.sent[0].body, "14:00")
	assert.NotContains(t, sender.sent[0].body, "Price:", "no price agreed, no price line")
}

func TestConfirmedEmailIncludesPrice(t *testing.T) {
	clinic := &model.Clinic{Name: model.LocalizedString{EN: "Glow Clinic"}}
	clinic.ID = uuid.New()
	sender := &fakeSender{}
	svc := newService(sender, clinic)

	booking := testBooking(clinic.ID, model.LocaleEN)
	booking.Budget = model.Budget{Currency: model.CurrencyKRW}
	booking.ConfirmedOption = model.NullConfirmedOption{
		ConfirmedOption: model.ConfirmedOption{
			Date:     time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC),
			TimeSlot: "14:00",
			Price:    1500000,
		},
		Valid: true,
	}

	svc.StatusChanged(context.Background(), booking, model.BookingStatusConfirmed)

	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].body, "1500000 KRW", "agreed price shown in the booking's currency")
}

func TestCancelledEmailIncludesNote(t *testing.T) {
	clinic := &model.Clinic{Name: model.LocalizedString{EN: "Glow Clinic"}}
	clinic.ID = uuid.New()
	sender := &fakeSender{}
	svc := newService(sender, clinic)

	booking := testBooking(clinic.ID, model.LocaleEN)
	booking.Status = model.BookingStatusCancelled
	booking.StatusHistory = model.StatusHistory{
		{Status: model.BookingStatusReceived},
		{Status: model.BookingStatusCancelled, Note: "clinic fully booked in July"},
	}

	svc.StatusChanged(context.Background(), booking, model.BookingStatusCancelled)

	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].body, "clinic fully booked in July")

	// Without a note on the change the reason line is left out.
	sender.sent = nil
	booking.StatusHistory = model.StatusHistory{{Status: model.BookingStatusCancelled}}
	svc.StatusChanged(context.Background(), booking, model.BookingStatusCancelled)
	require.Len(t, sender.sent, 1)
	assert.NotContains(t, sender.sent[0].body, "Reason:")
}

func TestNoContactEmailSkipsSend(t *testing.T) {
	clinic := &model.Clinic{Name: model.LocalizedString{EN: "Glow Clinic"}}
	clinic.ID = uuid.New()
	sender := &fakeSender{}
	svc := newService(sender, clinic)

	booking := testBooking(clinic.ID, model.LocaleEN)
	booking.GuestEmail = ""

	svc.BookingCreated(context.Background(), booking)
	assert.Empty(t, sender.sent)
}

func TestSenderFailureIsSwallowed(t *testing.T) {
	clinic := &model.Clinic{Name: model.LocalizedString{EN: "Glow Clinic"}}
	clinic.ID = uuid.New()
	sender := &fakeSender{err: errors.New("smtp connection refused")}
	svc := newService(sender, clinic)

	// Delivery is best effort; the call must not panic or surface the
	// transport error.
	svc.BookingCreated(context.Background(), testBooking(clinic.ID, model.LocaleEN))
	assert.Empty(t, sender.sent)
}

func TestSendMessage(t *testing.T) {
	clinic := &model.Clinic{Name: model.LocalizedString{EN: "Glow Clinic"}}
	clinic.ID = uuid.New()
	sender := &fakeSender{}
	svc := newService(sender, clinic)
	booking := testBooking(clinic.ID, model.LocaleEN)

	recipient, err := svc.SendMessage(context.Background(), booking, "contacting")
	require.NoError(t, err)
	assert.Equal(t, "mina@example.com", recipient)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "We are contacting the clinic", sender.sent[0].subject)

	recipient, err = svc.SendMessage(context.Background(), booking, "options")
	require.NoError(t, err)
	assert.Equal(t, "mina@example.com", recipient)
	require.Len(t, sender.sent, 2)
	assert.Contains(t, sender.sent[1].body, booking.AccessCode)
}

func TestSendMessageRefusals(t *testing.T) {
	clinic := &model.Clinic{Name: model.LocalizedString{EN: "Glow Clinic"}}
	clinic.ID = uuid.New()
	sender := &fakeSender{}
	svc := newService(sender, clinic)
	booking := testBooking(clinic.ID, model.LocaleEN)

	_, err := svc.SendMessage(context.Background(), booking, "bogus")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrValidation))

	booking.GuestEmail = ""
	_, err = svc.SendMessage(context.Background(), booking, "received")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrValidation))
	assert.Empty(t, sender.sent)
}

func TestUnknownClinicStillSends(t *testing.T) {
	sender := &fakeSender{}
	svc := newService(sender, nil)

	svc.BookingCreated(context.Background(), testBooking(uuid.New(), model.LocaleEN))

	require.Len(t, sender.sent, 1, "a missing clinic row must not block the notification")
	assert.Contains(t, sender.sent[0].body, "rhinoplasty")
}
