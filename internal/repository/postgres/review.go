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

const reviewColumns = `
	id, clinic_id, user_id, booking_id, rating, title, content, "procedure",
	visit_date, locale, photos, is_verified, is_visible, helpful_count,
	created_at, updated_at
`

type reviewRepository struct {
	db *sqlx.DB
}

func NewReviewRepository(db *sqlx.DB) repository.ReviewRepository {
	return &reviewRepository{db: db}
}

func (r *reviewRepository) Create(ctx context.Context, review *model.Review) error {
	query := `
		INSERT INTO reviews (
			id, clinic_id, user_id, booking_id, rating, title, content,
			"procedure", visit_date, locale, photos, is_verified, is_visible,
			helpful_count, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	now := time.Now()
	review.CreatedAt = now
	review.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		review.ID,
		review.ClinicID,
		review.UserID,
		review.BookingID,
		review.Rating,
		review.Title,
		review.Content,
		review.Procedure,
		review.VisitDate,
		review.Locale,
		review.Photos,
		review.IsVerified,
		review.IsVisible,
		review.HelpfulCount,
		review.CreatedAt,
		review.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" && pqErr.Constraint == "reviews_booking_id_key" {
			return apperrors.Conflict("booking already reviewed", err)
		}
		return fmt.Errorf("failed to create review: %w", err)
	}
	return nil
}

func (r *reviewRepository) GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*model.Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE booking_id = $1`

	var review model.Review
	if err := r.db.GetContext(ctx, &review, query, bookingID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("review", err)
		}
		return nil, fmt.Errorf("failed to get review by booking: %w", err)
	}
	return &review, nil
}

func (r *reviewRepository) ListByClinic(ctx context.Context, filters *model.ReviewFilters) ([]*model.Review, int, error) {
	var order string
	switch filters.Sort {
	case model.ReviewSortRatingHigh:
		order = "rating DESC, created_at DESC"
	case model.ReviewSortRatingLow:
		order = "rating ASC, created_at DESC"
	case model.ReviewSortHelpful:
		order = "helpful_count DESC, created_at DESC"
	default:
		order = "created_at DESC"
	}

	var total int
	countQuery := `SELECT count(*) FROM reviews WHERE clinic_id = $1 AND is_visible`
	if err := r.db.GetContext(ctx, &total, countQuery, filters.ClinicID); err != nil {
		return nil, 0, fmt.Errorf("failed to count reviews: %w", err)
	}

	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE clinic_id = $1 AND is_visible ORDER BY ` +
		order + ` LIMIT $2 OFFSET $3`

	var reviews []*model.Review
	if err := r.db.SelectContext(ctx, &reviews, query, filters.ClinicID, filters.Pagination.Limit, filters.Pagination.Offset()); err != nil {
		return nil, 0, fmt.Errorf("failed to list reviews: %w", err)
	}
	return reviews, total, nil
}

func (r *reviewRepository) ListByUser(ctx context.Context, userID uuid.UUID, p model.Pagination) ([]*model.ReviewWithClinic, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT count(*) FROM reviews WHERE user_id = $1`, userID); err != nil {
		return nil, 0, fmt.Errorf("failed to count user reviews: %w", err)
	}

	query := `
		SELECT r.id, r.clinic_id, r.user_id, r.booking_id, r.rating, r.title,
			   r.content, r."procedure", r.visit_date, r.locale, r.photos,
			   r.is_verified, r.is_visible, r.helpful_count, r.created_at, r.updated_at,
			   c.name AS clinic_name
		FROM reviews r
		JOIN clinics c ON c.id = r.clinic_id
		WHERE r.user_id = $1
		ORDER BY r.created_at DESC LIMIT $2 OFFSET $3
	`
	rows := []struct {
		model.Review
		ClinicName model.LocalizedString `db:"clinic_name"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query, userID, p.Limit, p.Offset()); err != nil {
		return nil, 0, fmt.Errorf("failed to list user reviews: %w", err)
	}

	items := make([]*model.ReviewWithClinic, 0, len(rows))
	for i := range rows {
		items = append(items, &model.ReviewWithClinic{
			Review:     &rows[i].Review,
			ClinicName: rows[i].ClinicName,
		})
	}
	return items, total, nil
}

func (r *reviewRepository) RatingStats(ctx context.Context, clinicID uuid.UUID) (int, int, error) {
	query := `
		SELECT count(*) AS count, COALESCE(sum(rating), 0) AS sum
		FROM reviews
		WHERE clinic_id = $1 AND is_visible
	`
	var stats struct {
		Count int `db:"count"`
		Sum   int `db:"sum"`
	}
	if err := r.db.GetContext(ctx, &stats, query, clinicID); err != nil {
		return 0, 0, fmt.Errorf("failed to get rating stats: %w", err)
	}
	return stats.Count, stats.Sum, nil
}

func (r *reviewRepository) RatingDistribution(ctx context.Context, clinicID uuid.UUID) (map[int]int, error) {
	query := `
		SELECT rating, count(*) AS count
		FROM reviews
		WHERE clinic_id = $1 AND is_visible
		GROUP BY rating
	`
	rows := []struct {
		Rating int `db:"rating"`
		Count  int `db:"count"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query, clinicID); err != nil {
		return nil, fmt.Errorf("failed to get rating distribution: %w", err)
	}

	dist := map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}
	for _, row := range rows {
		dist[row.Rating] = row.Count
	}
	return dist, nil
}

func (r *reviewRepository) IncrementHelpful(ctx context.Context, id uuid.UUID) (int, error) {
	query := `UPDATE reviews SET helpful_count = helpful_count + 1, updated_at = $2 WHERE id = $1 RETURNING helpful_count`

	var count int
	if err := r.db.GetContext(ctx, &count, query, id, time.Now()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, apperrors.NotFound("review", err)
		}
		return 0, fmt.Errorf("failed to increment helpful count: %w", err)
	}
	return count, nil
}
