package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
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

const bookingColumns = `
	id, clinic_id, user_id, guest_email, guest_phone, access_code,
	"procedure", preferred_date, preferred_time_slot, budget, photos,
	locale, notes, status, status_history, ops_notes, proposed_options,
	confirmed_option, created_at, updated_at
`

type bookingRepository struct {
	db *sqlx.DB
}

func NewBookingRepository(db *sqlx.DB) repository.BookingRepository {
	return &bookingRepository{db: db}
}

func (r *bookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	query := `
		INSERT INTO bookings (
			id, clinic_id, user_id, guest_email, guest_phone, access_code,
			"procedure", preferred_date, preferred_time_slot, budget, photos,
			locale, notes, status, status_history, ops_notes,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`
	now := time.Now()
	booking.CreatedAt = now
	booking.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		booking.ID,
		booking.ClinicID,
		booking.UserID,
		booking.GuestEmail,
		booking.GuestPhone,
		booking.AccessCode,
		booking.Procedure,
		booking.PreferredDate,
		booking.PreferredTimeSlot,
		booking.Budget,
		booking.Photos,
		booking.Locale,
		booking.Notes,
		booking.Status,
		booking.StatusHistory,
		booking.OpsNotes,
		booking.CreatedAt,
		booking.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" && pqErr.Constraint == "bookings_access_code_key" {
			return apperrors.Conflict("access code already in use", err)
		}
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

func (r *bookingRepository) Get(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	var booking model.Booking
	if err := r.db.GetContext(ctx, &booking, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("booking request", err)
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return &booking, nil
}

func (r *bookingRepository) GetByGuestCredentials(ctx context.Context, email, accessCode string) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE guest_email = $1 AND access_code = $2`

	var booking model.Booking
	if err := r.db.GetContext(ctx, &booking, query, email, accessCode); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("booking request", err)
		}
		return nil, fmt.Errorf("failed to get booking by guest credentials: %w", err)
	}
	return &booking, nil
}

func (r *bookingRepository) List(ctx context.Context, filters *model.BookingFilters) ([]*model.Booking, int, error) {
	where := " WHERE 1=1"
	args := []interface{}{}
	argCount := 1

	if filters.UserID != nil && filters.GuestEmail != "" {
		where += fmt.Sprintf(" AND (user_id = $%d OR guest_email = $%d)", argCount, argCount+1)
		args = append(args, *filters.UserID, filters.GuestEmail)
		argCount += 2
	} else if filters.UserID != nil {
		where += fmt.Sprintf(" AND user_id = $%d", argCount)
		args = append(args, *filters.UserID)
		argCount++
	} else if filters.GuestEmail != "" {
		where += fmt.Sprintf(" AND guest_email = $%d", argCount)
		args = append(args, filters.GuestEmail)
		argCount++
	}

	if filters.Status != "" {
		where += fmt.Sprintf(" AND status = $%d", argCount)
		args = append(args, filters.Status)
		argCount++
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT count(*) FROM bookings"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count bookings: %w", err)
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings` + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argCount, argCount+1)
	args = append(args, filters.Pagination.Limit, filters.Pagination.Offset())

	var bookings []*model.Booking
	if err := r.db.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, total, nil
}

func (r *bookingRepository) ListQueue(ctx context.Context, status model.BookingStatus, p model.Pagination) ([]*model.BookingWithSLA, int, error) {
	where := ""
	args := []interface{}{}
	argCount := 1

	if status != "" {
		where = fmt.Sprintf(" WHERE b.status = $%d", argCount)
		args = append(args, status)
		argCount++
	}

	var total int
	countQuery := "SELECT count(*) FROM bookings b" + where
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count queue: %w", err)
	}

	query := `
		SELECT b.id, b.clinic_id, b.user_id, b.guest_email, b.guest_phone,
			   b.access_code, b."procedure", b.preferred_date, b.preferred_time_slot,
			   b.budget, b.photos, b.locale, b.notes, b.status, b.status_history,
			   b.ops_notes, b.proposed_options, b.confirmed_option,
			   b.created_at, b.updated_at,
			   c.name AS clinic_name
		FROM bookings b
		JOIN clinics c ON c.id = b.clinic_id` + where +
		fmt.Sprintf(" ORDER BY b.created_at DESC LIMIT $%d OFFSET $%d", argCount, argCount+1)
	args = append(args, p.Limit, p.Offset())

	rows := []struct {
		model.Booking
		ClinicName model.LocalizedString `db:"clinic_name"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list queue: %w", err)
	}

	items := make([]*model.BookingWithSLA, 0, len(rows))
	for i := range rows {
		items = append(items, &model.BookingWithSLA{
			Booking:    &rows[i].Booking,
			ClinicName: rows[i].ClinicName,
		})
	}
	return items, total, nil
}

// AppendTransition applies the status set, the history append and any
// option replacement in one UPDATE. The history entry is concatenated
// server-side so concurrent transitions both land in commit order.
func (r *bookingRepository) AppendTransition(ctx context.Context, id uuid.UUID, change model.StatusChange, proposed model.ProposedOptions, confirmed *model.ConfirmedOption) error {
	entry, err := json.Marshal([]model.StatusChange{change})
	if err != nil {
		return fmt.Errorf("failed to marshal history entry: %w", err)
	}

	var confirmedArg interface{}
	if confirmed != nil {
		buf, err := json.Marshal(confirmed)
		if err != nil {
			return fmt.Errorf("failed to marshal confirmed option: %w", err)
		}
		confirmedArg = buf
	}

	query := `
		UPDATE bookings
		SET status = $2,
			status_history = status_history || $3::jsonb,
			proposed_options = COALESCE($4, proposed_options),
			confirmed_option = COALESCE($5, confirmed_option),
			updated_at = $6
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, id, change.Status, entry, proposed, confirmedArg, time.Now())
	if err != nil {
		return fmt.Errorf("failed to apply transition: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("booking request", nil)
	}
	return nil
}

func (r *bookingRepository) CountByStatus(ctx context.Context) (map[model.BookingStatus]int, error) {
	query := `SELECT status, count(*) AS count FROM bookings GROUP BY status`

	rows := []struct {
		Status model.BookingStatus `db:"status"`
		Count  int                 `db:"count"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to count by status: %w", err)
	}

	counts := make(map[model.BookingStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
