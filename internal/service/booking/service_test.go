package booking

import (
	"context"
	"sync"
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

var testMetrics = metrics.New("booking_service_test")

type fakeBookingRepo struct {
	mu         sync.Mutex
	bookings   map[uuid.UUID]*model.Booking
	takenCodes map[string]bool
	creates    int
}

func newFakeBookingRepo() *fakeBookingRepo {
	return &fakeBookingRepo{
		bookings:   make(map[uuid.UUID]*model.Booking),
		takenCodes: make(map[string]bool),
	}
}

func (r *fakeBookingRepo) Create(_ context.Context, booking *model.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creates++
	if r.takenCodes[booking.AccessCode] {
		return apperrors.Conflict("access code already in use", nil)
	}
	r.takenCodes[booking.AccessCode] = true
	clone := *booking
	r.bookings[booking.ID] = &clone
	return nil
}

func (r *fakeBookingRepo) Get(_ context.Context, id uuid.UUID) (*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	booking, ok := r.bookings[id]
	if !ok {
		return nil, apperrors.NotFound("booking request", nil)
	}
	clone := *booking
	return &clone, nil
}

func (r *fakeBookingRepo) GetByGuestCredentials(_ context.Context, email, accessCode string) (*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, booking := range r.bookings {
		if booking.GuestEmail == email && booking.AccessCode == accessCode {
			clone := *booking
			return &clone, nil
		}
	}
	return nil, apperrors.NotFound("booking request", nil)
}

func (r *fakeBookingRepo) List(_ context.Context, filters *model.BookingFilters) ([]*model.Booking, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Booking
	for _, booking := range r.bookings {
		if filters.Status != "" && booking.Status != filters.Status {
			continue
		}
		if filters.UserID != nil && booking.UserID != nil && *booking.UserID == *filters.UserID {
			out = append(out, booking)
			continue
		}
		if filters.GuestEmail != "" && booking.GuestEmail == filters.GuestEmail {
			out = append(out, booking)
		}
	}
	return out, len(out), nil
}

func (r *fakeBookingRepo) ListQueue(_ context.Context, status model.BookingStatus, _ model.Pagination) ([]*model.BookingWithSLA, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.BookingWithSLA
	for _, booking := range r.bookings {
		if status != "" && booking.Status != status {
			continue
		}
		clone := *booking
		out = append(out, &model.BookingWithSLA{Booking: &clone})
	}
	return out, len(out), nil
}

// AppendTransition mirrors the production single-statement update: the
// entry is appended to whatever history the row holds now.
func (r *fakeBookingRepo) AppendTransition(_ context.Context, id uuid.UUID, change model.StatusChange, proposed model.ProposedOptions, confirmed *model.ConfirmedOption) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	booking, ok := r.bookings[id]
	if !ok {
		return apperrors.NotFound("booking request", nil)
	}
	booking.Status = change.Status
	booking.StatusHistory = append(booking.StatusHistory, change)
	if proposed != nil {
		booking.ProposedOptions = proposed
	}
	if confirmed != nil {
		booking.ConfirmedOption = model.NullConfirmedOption{ConfirmedOption: *confirmed, Valid: true}
	}
	return nil
}

func (r *fakeBookingRepo) CountByStatus(_ context.Context) (map[model.BookingStatus]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[model.BookingStatus]int)
	for _, booking := range r.bookings {
		counts[booking.Status]++
	}
	return counts, nil
}

type fakeClinicRepo struct {
	clinics map[uuid.UUID]*model.Clinic
}

func newFakeClinicRepo(clinics ...*model.Clinic) *fakeClinicRepo {
	r := &fakeClinicRepo{clinics: make(map[uuid.UUID]*model.Clinic)}
	for _, c := range clinics {
		r.clinics[c.ID] = c
	}
	return r
}

func (r *fakeClinicRepo) Get(_ context.Context, id uuid.UUID) (*model.Clinic, error) {
	clinic, ok := r.clinics[id]
	if !ok {
		return nil, apperrors.NotFound("clinic", nil)
	}
	return clinic, nil
}

func (r *fakeClinicRepo) List(_ context.Context, _ *model.ClinicFilters) ([]*model.Clinic, int, error) {
	return nil, 0, nil
}

func (r *fakeClinicRepo) UpdateRating(_ context.Context, id uuid.UUID, rating float64, reviewCount int) error {
	clinic, ok := r.clinics[id]
	if !ok {
		return apperrors.NotFound("clinic", nil)
	}
	clinic.Rating = rating
	clinic.ReviewCount = reviewCount
	return nil
}

type notifierCall struct {
	event  string
	status model.BookingStatus
}

type fakeNotifier struct {
	calls chan notifierCall
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{calls: make(chan notifierCall, 10)}
}

func (n *fakeNotifier) BookingCreated(_ context.Context, _ *model.Booking) {
	n.calls <- notifierCall{event: "created"}
}

func (n *fakeNotifier) StatusChanged(_ context.Context, _ *model.Booking, status model.BookingStatus) {
	n.calls <- notifierCall{event: "status", status: status}
}

func (n *fakeNotifier) next(t *testing.T) notifierCall {
	t.Helper()
	select {
	case call := <-n.calls:
		return call
	case <-time.After(2 * time.Second):
		t.Fatal("expected a notifier call")
		return notifierCall{}
	}
}

func testClinic() *model.Clinic {
	clinic := &model.Clinic{
		Name:     model.LocalizedString{EN: "Glow Clinic"},
		City:     model.CitySeoul,
		IsActive: true,
	}
	clinic.ID = uuid.New()
	return clinic
}

func newTestService(repo *fakeBookingRepo, clinic *model.Clinic, notifier Notifier) *Service {
	if notifier == nil {
		notifier = newFakeNotifier()
	}
	return NewService(repo, newFakeClinicRepo(clinic), notifier, nil, testMetrics, zerolog.Nop())
}

func createRequest(clinicID uuid.UUID) *model.CreateBookingRequest {
	return &model.CreateBookingRequest{
		ClinicID:      clinicID,
		Procedure:     "rhinoplasty",
		PreferredDate: time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC),
		GuestEmail:    "Mina@Example.com",
		Locale:        model.LocaleJA,
	}
}

func TestCreateGuestBooking(t *testing.T) {
	repo := newFakeBookingRepo()
	clinic := testClinic()
	notifier := newFakeNotifier()
	svc := newTestService(repo, clinic, notifier)

	booking, err := svc.Create(context.Background(), model.Anonymous, createRequest(clinic.ID))
	require.NoError(t, err)

	assert.Equal(t, model.BookingStatusReceived, booking.Status)
	assert.Equal(t, "mina@example.com", booking.GuestEmail, "email stored normalized")
	assert.Len(t, booking.AccessCode, 8)
	assert.Nil(t, booking.UserID)

	require.Len(t, booking.StatusHistory, 1, "history seeded with the received entry")
	assert.Equal(t, model.BookingStatusReceived, booking.StatusHistory[0].Status)

	assert.Equal(t, "created", notifier.next(t).event)
}

func TestCreateRegisteredBooking(t *testing.T) {
	repo := newFakeBookingRepo()
	clinic := testClinic()
	svc := newTestService(repo, clinic, nil)

	actor := model.Identity{Kind: model.IdentityRegistered, UserID: uuid.New(), Email: "kim@example.com"}
	req := createRequest(clinic.ID)
	req.GuestEmail = ""

	booking, err := svc.Create(context.Background(), actor, req)
	require.NoError(t, err)
	require.NotNil(t, booking.UserID)
	assert.Equal(t, actor.UserID, *booking.UserID)
	assert.Equal(t, "kim@example.com", booking.GuestEmail, "account email becomes the contact email")
}

func TestCreateRequiresSomeContact(t *testing.T) {
	repo := newFakeBookingRepo()
	clinic := testClinic()
	svc := newTestService(repo, clinic, nil)

	req := createRequest(clinic.ID)
	req.GuestEmail = ""

	_, err := svc.Create(context.Background(), model.Anonymous, req)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrValidation))

	// A phone number alone is a valid way to be reached.
	req = createRequest(clinic.ID)
	req.GuestEmail = ""
	req.GuestPhone = "+82-10-1234-5678"

	booking, err := svc.Create(context.Background(), model.Anonymous, req)
	require.NoError(t, err)
	assert.Empty(t, booking.GuestEmail)
	assert.Equal(t, "+82-10-1234-5678", booking.GuestPhone)
}

func TestCreateRejectsUnknownOrInactiveClinic(t *testing.T) {
	repo := newFakeBookingRepo()
	clinic := testClinic()
	svc := newTestService(repo, clinic, nil)

	_, err := svc.Create(context.Background(), model.Anonymous, createRequest(uuid.New()))
	assert.True(t, apperrors.IsNotFound(err), "unknown clinic surfaces as not found")

	clinic.IsActive = false
	_, err = svc.Create(context.Background(), model.Anonymous, createRequest(clinic.ID))
	assert.True(t, apperrors.IsCode(err, apperrors.ErrValidation))
}

func TestCreateRetriesAccessCodeCollision(t *testing.T) {
	repo := newFakeBookingRepo()
	clinic := testClinic()
	svc := newTestService(repo, clinic, nil)

	first, err := svc.Create(context.Background(), model.Anonymous, createRequest(clinic.ID))
	require.NoError(t, err)

	// Every insert collides: the loop must give up after the bounded
	// number of attempts.
	always := &collidingRepo{fakeBookingRepo: repo}
	svc2 := newTestService(repo, clinic, nil)
	svc2.bookingRepo = always

	_, err = svc2.Create(context.Background(), model.Anonymous, createRequest(clinic.ID))
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrInternal))
	assert.Equal(t, maxAccessCodeAttempts, always.attempts, "retries bounded")

	// Partial collisions succeed with a fresh code.
	twice := &collidingRepo{fakeBookingRepo: repo, failures: 2}
	svc3 := newTestService(repo, clinic, nil)
	svc3.bookingRepo = twice

	booking, err := svc3.Create(context.Background(), model.Anonymous, createRequest(clinic.ID))
	require.NoError(t, err)
	assert.NotEqual(t, first.AccessCode, booking.AccessCode)
	assert.Equal(t, 3, twice.attempts)
}

// collidingRepo reports a conflict for the first failures creates, or
// every create when failures is zero.
type collidingRepo struct {
	*fakeBookingRepo
	failures int
	attempts int
}

func (r *collidingRepo) Create(ctx context.Context, booking *model.Booking) error {
	r.attempts++
	if r.failures == 0 || r.attempts <= r.failures {
		return apperrors.Conflict("access code already in use", nil)
	}
	return r.fakeBookingRepo.Create(ctx, booking)
}

func TestTransitionAppendsHistory(t *testing.T) {
	repo := newFakeBookingRepo()
	clinic := testClinic()
	notifier := newFakeNotifier()
	svc := newTestService(repo, clinic, notifier)

	booking, err := svc.Create(context.Background(), model.Anonymous, createRequest(clinic.ID))
	require.NoError(t, err)
	notifier.next(t)

	ops := model.Identity{Kind: model.IdentityOps, UserID: uuid.New(), Role: model.OpsRoleOperator}

	statuses := []model.BookingStatus{
		model.BookingStatusContactingHospital,
		model.BookingStatusProposedOptions,
		model.BookingStatusConfirmed,
	}
	for i, status := range statuses {
		updated, err := svc.Transition(context.Background(), ops, booking.ID.String(), &model.UpdateBookingStatusRequest{
			Status: status,
			Note:   "step",
		})
		require.NoError(t, err)
		assert.Equal(t, status, updated.Status)
		require.Len(t, updated.StatusHistory, i+2, "each transition appends exactly one entry")
		assert.Equal(t, status, updated.StatusHistory[i+1].Status)
		require.NotNil(t, updated.StatusHistory[i+1].ChangedBy)
		assert.Equal(t, ops.UserID, *updated.StatusHistory[i+1].ChangedBy)
	}
}

func TestTransitionSameStatusStillAppends(t *testing.T) {
	repo := newFakeBookingRepo()
	clinic := testClinic()
	svc := newTestService(repo, clinic, nil)

	booking, err := svc.Create(context.Background(), model.Anonymous, createRequest(clinic.ID))
	require.NoError(t, err)

	ops := model.Identity{Kind: model.IdentityOps, UserID: uuid.New()}
	req := &model.UpdateBookingStatusRequest{Status: model.BookingStatusReceived, Note: "re-checked"}

	updated, err := svc.Transition(context.Background(), ops, booking.ID.String(), req)
	require.NoError(t, err)
	assert.Len(t, updated.StatusHistory, 2, "repeated status is still recorded")
}

func TestTransitionIsPermissive(t *testing.T) {
	repo := newFakeBookingRepo()
	clinic := testClinic()
	svc := newTestService(repo, clinic, nil)

	booking, err := svc.Create(context.Background(), model.Anonymous, createRequest(clinic.ID))
	require.NoError(t, err)

	ops := model.Identity{Kind: model.IdentityOps, UserID: uuid.New()}

	// cancelled straight back to confirmed: no transition matrix blocks
	// an ops correction.
	for _, status := range []model.BookingStatus{model.BookingStatusCancelled, model.BookingStatusConfirmed} {
		_, err := svc.Transition(context.Background(), ops, booking.ID.String(), &model.UpdateBookingStatusRequest{Status: status})
		require.NoError(t, err)
	}
}

func TestTransitionReplacesOptionsWholesale(t *testing.T) {
	repo := newFakeBookingRepo()
	clinic := testClinic()
	svc := newTestService(repo, clinic, nil)

	booking, err := svc.Create(context.Background(), model.Anonymous, createRequest(clinic.ID))
	require.NoError(t, err)

	ops := model.Identity{Kind: model.IdentityOps, UserID: uuid.New()}
	first := model.ProposedOptions{
		{Date: time.Date(2026, 9, 12, 0, 0, 0, 0, time.UTC), TimeSlot: "10:00", Price: 900000},
		{Date: time.Date(2026, 9, 13, 0, 0, 0, 0, time.UTC), TimeSlot: "14:00", Price: 950000},
	}
	_, err = svc.Transition(context.Background(), ops, booking.ID.String(), &model.UpdateBookingStatusRequest{
		Status:          model.BookingStatusProposedOptions,
		ProposedOptions: first,
	})
	require.NoError(t, err)

	second := model.ProposedOptions{
		{Date: time.Date(2026, 9, 20, 0, 0, 0, 0, time.UTC), TimeSlot: "09:00", Price: 880000},
	}
	updated, err := svc.Transition(context.Background(), ops, booking.ID.String(), &model.UpdateBookingStatusRequest{
		Status:          model.BookingStatusProposedOptions,
		ProposedOptions: second,
	})
	require.NoError(t, err)
	require.Len(t, updated.ProposedOptions, 1, "second proposal replaces the first, not merges")
	assert.Equal(t, second[0], updated.ProposedOptions[0])
}

func TestTransitionGuards(t *testing.T) {
	repo := newFakeBookingRepo()
	clinic := testClinic()
	svc := newTestService(repo, clinic, nil)

	booking, err := svc.Create(context.Background(), model.Anonymous, createRequest(clinic.ID))
	require.NoError(t, err)

	req := &model.UpdateBookingStatusRequest{Status: model.BookingStatusConfirmed}

	_, err = svc.Transition(context.Background(), model.Anonymous, booking.ID.String(), req)
	assert.True(t, apperrors.IsForbidden(err), "anonymous cannot transition")

	registered := model.Identity{Kind: model.IdentityRegistered, UserID: uuid.New()}
	_, err = svc.Transition(context.Background(), registered, booking.ID.String(), req)
	assert.True(t, apperrors.IsForbidden(err), "consumers cannot transition")

	ops := model.Identity{Kind: model.IdentityOps, UserID: uuid.New()}
	_, err = svc.Transition(context.Background(), ops, booking.ID.String(), &model.UpdateBookingStatusRequest{Status: "archived"})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrValidation), "unknown status rejected")

	_, err = svc.Transition(context.Background(), ops, uuid.New().String(), req)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestTransitionNotifiesOnlyTerminalStatuses(t *testing.T) {
	repo := newFakeBookingRepo()
	clinic := testClinic()
	notifier := newFakeNotifier()
	svc := newTestService(repo, clinic, notifier)

	booking, err := svc.Create(context.Background(), model.Anonymous, createRequest(clinic.ID))
	require.NoError(t, err)
	notifier.next(t)

	ops := model.Identity{Kind: model.IdentityOps, UserID: uuid.New()}

	// The service hands every transition to the notifier; the notifier
	// decides which statuses produce mail. Here we only assert the calls
	// arrive with the right status.
	_, err = svc.Transition(context.Background(), ops, booking.ID.String(), &model.UpdateBookingStatusRequest{Status: model.BookingStatusConfirmed})
	require.NoError(t, err)
	call := notifier.next(t)
	assert.Equal(t, "status", call.event)
	assert.Equal(t, model.BookingStatusConfirmed, call.status)
}

func TestGetEnforcesGuard(t *testing.T) {
	repo := newFakeBookingRepo()
	clinic := testClinic()
	svc := newTestService(repo, clinic, nil)

	booking, err := svc.Create(context.Background(), model.Anonymous, createRequest(clinic.ID))
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), model.Anonymous, booking.ID.String(), "")
	assert.True(t, apperrors.IsForbidden(err))

	// The access code alone opens its booking, no session required.
	got, err := svc.Get(context.Background(), model.Anonymous, booking.ID.String(), booking.AccessCode)
	require.NoError(t, err)
	assert.Equal(t, booking.ID, got.ID)

	_, err = svc.Get(context.Background(), model.Anonymous, booking.ID.String(), "FFFFFFFF")
	assert.True(t, apperrors.IsForbidden(err), "a wrong code grants nothing")

	guest := model.Identity{Kind: model.IdentityGuest, Email: booking.GuestEmail, BookingID: booking.ID}
	got, err = svc.Get(context.Background(), guest, booking.ID.String(), "")
	require.NoError(t, err)
	assert.Equal(t, booking.ID, got.ID)

	_, err = svc.Get(context.Background(), model.Anonymous, "not-a-uuid", "")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrValidation))
}

func TestQueueAnnotatesSLA(t *testing.T) {
	repo := newFakeBookingRepo()
	clinic := testClinic()
	svc := newTestService(repo, clinic, nil)

	booking, err := svc.Create(context.Background(), model.Anonymous, createRequest(clinic.ID))
	require.NoError(t, err)

	// Age the stored row past the SLA window.
	repo.mu.Lock()
	repo.bookings[booking.ID].CreatedAt = time.Now().Add(-9 * time.Hour)
	repo.mu.Unlock()

	items, total, err := svc.Queue(context.Background(), model.BookingStatusReceived, model.Pagination{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.True(t, items[0].SLA.IsOverdue)
	assert.InDelta(t, 9.0, items[0].SLA.HoursElapsed, 0.1)
	assert.Equal(t, 0.0, items[0].SLA.HoursRemaining)

	_, _, err = svc.Queue(context.Background(), "bogus", model.Pagination{})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrValidation))
}

func TestStats(t *testing.T) {
	repo := newFakeBookingRepo()
	clinic := testClinic()
	svc := newTestService(repo, clinic, nil)

	seed := func(status model.BookingStatus, n int) {
		for i := 0; i < n; i++ {
			b := &model.Booking{Status: status}
			b.ID = uuid.New()
			repo.bookings[b.ID] = b
		}
	}
	seed(model.BookingStatusReceived, 3)
	seed(model.BookingStatusContactingHospital, 2)
	seed(model.BookingStatusConfirmed, 4)
	seed(model.BookingStatusCancelled, 1)
	seed(model.BookingStatusNoAvailability, 5)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 10, stats.TotalRequests, "noAvailability stays out of the funnel total")
	assert.Equal(t, 40.0, stats.ConversionRate)
	assert.Equal(t, 5, stats.Pending)
	assert.Equal(t, 5, stats.StatusCounts[model.BookingStatusNoAvailability])
}

func TestListMine(t *testing.T) {
	repo := newFakeBookingRepo()
	clinic := testClinic()
	svc := newTestService(repo, clinic, nil)

	booking, err := svc.Create(context.Background(), model.Anonymous, createRequest(clinic.ID))
	require.NoError(t, err)

	guest := model.Identity{Kind: model.IdentityGuest, Email: booking.GuestEmail, BookingID: booking.ID}
	mine, total, err := svc.ListMine(context.Background(), guest, "", model.Pagination{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, mine, 1)

	mine, _, err = svc.ListMine(context.Background(), guest, model.BookingStatusCancelled, model.Pagination{})
	require.NoError(t, err)
	assert.Empty(t, mine, "status filter excludes the received booking")

	_, _, err = svc.ListMine(context.Background(), guest, model.BookingStatus("bogus"), model.Pagination{})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrValidation))

	_, _, err = svc.ListMine(context.Background(), model.Anonymous, "", model.Pagination{})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrUnauthorized))
}
