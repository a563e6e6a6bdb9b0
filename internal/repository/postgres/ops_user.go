package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/globalbeauty/concierge-api/internal/model"
	"github.com/globalbeauty/concierge-api/internal/repository"
	apperrors "github.com/globalbeauty/concierge-api/pkg/errors"
)

const opsUserColumns = `
	id, email, name, password_hash, role, is_active, last_login_at,
	created_at, updated_at
`

type opsUserRepository struct {
	db *sqlx.DB
}

func NewOpsUserRepository(db *sqlx.DB) repository.OpsUserRepository {
	return &opsUserRepository{db: db}
}

func (r *opsUserRepository) Get(ctx context.Context, id uuid.UUID) (*model.OpsUser, error) {
	query := `SELECT ` + opsUserColumns + ` FROM ops_users WHERE id = $1`

	var user model.OpsUser
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("ops user", err)
		}
		return nil, fmt.Errorf("failed to get ops user: %w", err)
	}
	return &user, nil
}

func (r *opsUserRepository) GetByEmail(ctx context.Context, email string) (*model.OpsUser, error) {
	query := `SELECT ` + opsUserColumns + ` FROM ops_users WHERE email = $1`

	var user model.OpsUser
	if err := r.db.GetContext(ctx, &user, query, model.NormalizeEmail(email)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("ops user", err)
		}
		return nil, fmt.Errorf("failed to get ops user by email: %w", err)
	}
	return &user, nil
}

func (r *opsUserRepository) Create(ctx context.Context, user *model.OpsUser) error {
	query := `
		INSERT INTO ops_users (
			id, email, name, password_hash, role, is_active,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	user.Email = model.NormalizeEmail(user.Email)

	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.Name,
		user.PasswordHash,
		user.Role,
		user.IsActive,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return apperrors.Conflict("ops user already exists", err)
		}
		return fmt.Errorf("failed to create ops user: %w", err)
	}
	return nil
}

func (r *opsUserRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE ops_users SET last_login_at = $2, updated_at = $2 WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id, at); err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return nil
}
