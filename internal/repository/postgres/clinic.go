package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/globalbeauty/concierge-api/internal/model"
	"github.com/globalbeauty/concierge-api/internal/repository"
	apperrors "github.com/globalbeauty/concierge-api/pkg/errors"
)

const clinicColumns = `
	id, name, city, address, phone, languages, tags, rating, review_count,
	images, description, is_active, created_at, updated_at
`

type clinicRepository struct {
	db *sqlx.DB
}

func NewClinicRepository(db *sqlx.DB) repository.ClinicRepository {
	return &clinicRepository{db: db}
}

func (r *clinicRepository) Get(ctx context.Context, id uuid.UUID) (*model.Clinic, error) {
	query := `SELECT ` + clinicColumns + ` FROM clinics WHERE id = $1`

	var clinic model.Clinic
	if err := r.db.GetContext(ctx, &clinic, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("clinic", err)
		}
		return nil, fmt.Errorf("failed to get clinic: %w", err)
	}
	return &clinic, nil
}

func (r *clinicRepository) List(ctx context.Context, filters *model.ClinicFilters) ([]*model.Clinic, int, error) {
	where := " WHERE is_active"
	args := []interface{}{}
	argCount := 1

	if filters.City != "" {
		where += fmt.Sprintf(" AND city = $%d", argCount)
		args = append(args, filters.City)
		argCount++
	}

	if filters.Tag != "" {
		where += fmt.Sprintf(" AND tags @> $%d::jsonb", argCount)
		args = append(args, fmt.Sprintf(`["%s"]`, filters.Tag))
		argCount++
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT count(*) FROM clinics"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count clinics: %w", err)
	}

	query := `SELECT ` + clinicColumns + ` FROM clinics` + where +
		fmt.Sprintf(" ORDER BY rating DESC LIMIT $%d OFFSET $%d", argCount, argCount+1)
	args = append(args, filters.Pagination.Limit, filters.Pagination.Offset())

	var clinics []*model.Clinic
	if err := r.db.SelectContext(ctx, &clinics, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list clinics: %w", err)
	}
	return clinics, total, nil
}

func (r *clinicRepository) UpdateRating(ctx context.Context, id uuid.UUID, rating float64, reviewCount int) error {
	query := `UPDATE clinics SET rating = $2, review_count = $3, updated_at = $4 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, rating, reviewCount, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update clinic rating: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("clinic", nil)
	}
	return nil
}
