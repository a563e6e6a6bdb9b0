package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/globalbeauty/concierge-api/internal/model"
	"github.com/globalbeauty/concierge-api/internal/repository"
	apperrors "github.com/globalbeauty/concierge-api/pkg/errors"
)

type sessionRepository struct {
	db *sqlx.DB
}

func NewSessionRepository(db *sqlx.DB) repository.SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Create(ctx context.Context, session *model.Session) error {
	query := `
		INSERT INTO sessions (
			id, user_id, user_type, token, expires_at, user_agent,
			ip_address, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	session.CreatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		session.ID,
		session.UserID,
		session.UserType,
		session.Token,
		session.ExpiresAt,
		session.UserAgent,
		session.IPAddress,
		session.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (r *sessionRepository) GetByToken(ctx context.Context, token string) (*model.Session, error) {
	query := `
		SELECT id, user_id, user_type, token, expires_at, revoked_at,
			   user_agent, ip_address, created_at
		FROM sessions
		WHERE token = $1
	`
	var session model.Session
	if err := r.db.GetContext(ctx, &session, query, token); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("session", err)
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &session, nil
}

func (r *sessionRepository) Revoke(ctx context.Context, token string, userType model.SessionUserType, at time.Time) error {
	query := `UPDATE sessions SET revoked_at = $3 WHERE token = $1 AND user_type = $2 AND revoked_at IS NULL`

	if _, err := r.db.ExecContext(ctx, query, token, userType, at); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

func (r *sessionRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM sessions WHERE expires_at < $1`

	result, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return result.RowsAffected()
}
