package opsauth

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

var testMetrics = metrics.New("opsauth_service_test")

type fakeOpsRepo struct {
	byEmail   map[string]*model.OpsUser
	lastLogin map[uuid.UUID]time.Time
}

func newFakeOpsRepo() *fakeOpsRepo {
	return &fakeOpsRepo{
		byEmail:   make(map[string]*model.OpsUser),
		lastLogin: make(map[uuid.UUID]time.Time),
	}
}

func (r *fakeOpsRepo) Get(_ context.Context, id uuid.UUID) (*model.OpsUser, error) {
	for _, u := range r.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, apperrors.NotFound("ops user", nil)
}

func (r *fakeOpsRepo) GetByEmail(_ context.Context, email string) (*model.OpsUser, error) {
	u, ok := r.byEmail[email]
	if !ok {
		return nil, apperrors.NotFound("ops user", nil)
	}
	return u, nil
}

func (r *fakeOpsRepo) Create(_ context.Context, u *model.OpsUser) error {
	if _, exists := r.byEmail[u.Email]; exists {
		return apperrors.Conflict("email already registered", nil)
	}
	r.byEmail[u.Email] = u
	return nil
}

func (r *fakeOpsRepo) UpdateLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	r.lastLogin[id] = at
	return nil
}

type fakeSessionRepo struct {
	byToken map[string]*model.Session
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{byToken: make(map[string]*model.Session)}
}

func (r *fakeSessionRepo) Create(_ context.Context, s *model.Session) error {
	r.byToken[s.Token] = s
	return nil
}

func (r *fakeSessionRepo) GetByToken(_ context.Context, token string) (*model.Session, error) {
	s, ok := r.byToken[token]
	if !ok {
		return nil, apperrors.NotFound("session", nil)
	}
	return s, nil
}

func (r *fakeSessionRepo) Revoke(_ context.Context, token string, userType model.SessionUserType, at time.Time) error {
	s, ok := r.byToken[token]
	if !ok || s.UserType != userType {
		return apperrors.NotFound("session", nil)
	}
	s.RevokedAt = &at
	return nil
}

func (r *fakeSessionRepo) DeleteExpiredBefore(_ context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	for token, s := range r.byToken {
		if s.ExpiresAt.Before(cutoff) {
			delete(r.byToken, token)
			deleted++
		}
	}
	return deleted, nil
}

// fakeHasher treats the stored hash as "hashed:" + password.
type fakeHasher struct{}

func (fakeHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }

func (fakeHasher) Compare(hashedPassword, password string) error {
	if hashedPassword != "hashed:"+password {
		return errors.New("hash mismatch")
	}
	return nil
}

const adminSecret = "seed-secret"

type fixture struct {
	svc      *Service
	ops      *fakeOpsRepo
	sessions *fakeSessionRepo
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ops:      newFakeOpsRepo(),
		sessions: newFakeSessionRepo(),
		now:      time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(f.ops, f.sessions, fakeHasher{}, adminSecret, 7, testMetrics, zerolog.Nop())
	f.svc.now = func() time.Time { return f.now }
	return f
}

func (f *fixture) seedOperator(t *testing.T, email, password string) *model.OpsUser {
	t.Helper()
	u := &model.OpsUser{
		Email:        email,
		Name:         "Operator",
		PasswordHash: "hashed:" + password,
		Role:         model.OpsRoleOperator,
		IsActive:     true,
	}
	u.ID = uuid.New()
	require.NoError(t, f.ops.Create(context.Background(), u))
	return u
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	seeded := f.seedOperator(t, "ops@example.com", "hunter2secret")

	user, session, err := f.svc.Login(context.Background(), &model.OpsLoginRequest{
		Email:    " Ops@Example.COM ",
		Password: "hunter2secret",
	}, "test-agent", "203.0.113.9")
	require.NoError(t, err)

	assert.Equal(t, seeded.ID, user.ID)
	assert.Len(t, session.Token, 64)
	assert.Equal(t, model.SessionUserTypeOps, session.UserType)
	assert.Equal(t, f.now.Add(7*24*time.Hour), session.ExpiresAt)
	assert.Equal(t, "test-agent", session.UserAgent)
	assert.Equal(t, f.now, f.ops.lastLogin[seeded.ID])

	stored, err := f.sessions.GetByToken(context.Background(), session.Token)
	require.NoError(t, err)
	assert.True(t, stored.ValidAt(f.now))
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	f := newFixture(t)
	f.seedOperator(t, "ops@example.com", "hunter2secret")
	inactive := f.seedOperator(t, "gone@example.com", "hunter2secret")
	inactive.IsActive = false

	cases := map[string]*model.OpsLoginRequest{
		"unknown email":  {Email: "nobody@example.com", Password: "hunter2secret"},
		"wrong password": {Email: "ops@example.com", Password: "wrong"},
		"deactivated":    {Email: "gone@example.com", Password: "hunter2secret"},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := f.svc.Login(context.Background(), req, "", "")
			require.Error(t, err)
			assert.True(t, apperrors.IsCode(err, apperrors.ErrUnauthorized))
			var appErr *apperrors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, "invalid credentials", appErr.Message)
		})
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	f := newFixture(t)
	f.seedOperator(t, "ops@example.com", "hunter2secret")

	_, session, err := f.svc.Login(context.Background(), &model.OpsLoginRequest{
		Email:    "ops@example.com",
		Password: "hunter2secret",
	}, "", "")
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(context.Background(), session.Token))
	stored, err := f.sessions.GetByToken(context.Background(), session.Token)
	require.NoError(t, err, "revocation is soft, the row survives until the sweep")
	assert.False(t, stored.ValidAt(f.now))

	assert.NoError(t, f.svc.Logout(context.Background(), ""), "empty token is a no-op")
}

func TestCreateUser(t *testing.T) {
	f := newFixture(t)

	user, err := f.svc.CreateUser(context.Background(), &model.CreateOpsUserRequest{
		Email:       " New@Example.COM ",
		Password:    "longenoughpw",
		Name:        "New Operator",
		AdminSecret: adminSecret,
	})
	require.NoError(t, err)

	assert.Equal(t, "new@example.com", user.Email)
	assert.Equal(t, model.OpsRoleOperator, user.Role, "role defaults to operator")
	assert.Equal(t, "hashed:longenoughpw", user.PasswordHash)
	assert.True(t, user.IsActive)

	admin, err := f.svc.CreateUser(context.Background(), &model.CreateOpsUserRequest{
		Email:       "admin@example.com",
		Password:    "longenoughpw",
		Name:        "Admin",
		Role:        model.OpsRoleAdmin,
		AdminSecret: adminSecret,
	})
	require.NoError(t, err)
	assert.Equal(t, model.OpsRoleAdmin, admin.Role)
}

func TestCreateUserRefusals(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateUser(context.Background(), &model.CreateOpsUserRequest{
		Email:       "new@example.com",
		Password:    "longenoughpw",
		Name:        "New",
		AdminSecret: "wrong",
	})
	assert.True(t, apperrors.IsForbidden(err))

	_, err = f.svc.CreateUser(context.Background(), &model.CreateOpsUserRequest{
		Email:       "new@example.com",
		Password:    "longenoughpw",
		Name:        "New",
		Role:        model.OpsRole("superuser"),
		AdminSecret: adminSecret,
	})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrValidation))
}

func TestCreateUserWithoutConfiguredSecretAlwaysRefuses(t *testing.T) {
	f := newFixture(t)
	svc := NewService(f.ops, f.sessions, fakeHasher{}, "", 7, testMetrics, zerolog.Nop())

	_, err := svc.CreateUser(context.Background(), &model.CreateOpsUserRequest{
		Email:       "new@example.com",
		Password:    "longenoughpw",
		Name:        "New",
		AdminSecret: "",
	})
	assert.True(t, apperrors.IsForbidden(err), "an unset secret disables provisioning entirely")
}
