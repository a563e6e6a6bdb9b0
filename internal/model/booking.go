package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusReceived           BookingStatus = "received"
	BookingStatusContactingHospital BookingStatus = "contactingHospital"
	BookingStatusProposedOptions    BookingStatus = "proposedOptions"
	BookingStatusConfirmed          BookingStatus = "confirmed"
	BookingStatusCancelled          BookingStatus = "cancelled"
	BookingStatusNeedsMoreInfo      BookingStatus = "needsMoreInfo"
	BookingStatusNoAvailability     BookingStatus = "noAvailability"
)

// BookingStatuses lists every valid status value.
var BookingStatuses = []BookingStatus{
	BookingStatusReceived,
	BookingStatusContactingHospital,
	BookingStatusProposedOptions,
	BookingStatusConfirmed,
	BookingStatusCancelled,
	BookingStatusNeedsMoreInfo,
	BookingStatusNoAvailability,
}

// Valid reports whether s is a known status value.
func (s BookingStatus) Valid() bool {
	for _, known := range BookingStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// StatusChange is one entry of a booking's append-only status history.
type StatusChange struct {
	Status    BookingStatus `json:"status"`
	ChangedAt time.Time     `json:"changed_at"`
	ChangedBy *uuid.UUID    `json:"changed_by,omitempty"`
	Note      string        `json:"note,omitempty"`
}

// StatusHistory is the jsonb-backed ordered history. It is only ever
// appended to; the repository appends with a jsonb concat, never by
// rewriting the array from a loaded snapshot.
type StatusHistory []StatusChange

func (h StatusHistory) Value() (driver.Value, error) {
	if h == nil {
		h = StatusHistory{}
	}
	return json.Marshal(h)
}

func (h *StatusHistory) Scan(src interface{}) error {
	if src == nil {
		*h = StatusHistory{}
		return nil
	}
	return scanJSON(src, h)
}

// ProposedOption is one appointment option offered by ops.
type ProposedOption struct {
	Date     time.Time `json:"date"`
	TimeSlot string    `json:"time_slot"`
	Price    float64   `json:"price"`
	Note     string    `json:"note,omitempty"`
}

// ProposedOptions is replaced wholesale on update, never merged.
type ProposedOptions []ProposedOption

func (o ProposedOptions) Value() (driver.Value, error) {
	if o == nil {
		return nil, nil
	}
	return json.Marshal(o)
}

func (o *ProposedOptions) Scan(src interface{}) error {
	if src == nil {
		*o = nil
		return nil
	}
	return scanJSON(src, o)
}

// ConfirmedOption is the single finalized date/time/price. Once set it is
// the source of truth for a review's visit date.
type ConfirmedOption struct {
	Date     time.Time `json:"date"`
	TimeSlot string    `json:"time_slot"`
	Price    float64   `json:"price"`
}

// NullConfirmedOption wraps ConfirmedOption for a nullable jsonb column.
type NullConfirmedOption struct {
	ConfirmedOption
	Valid bool
}

func (o NullConfirmedOption) Value() (driver.Value, error) {
	if !o.Valid {
		return nil, nil
	}
	return json.Marshal(o.ConfirmedOption)
}

func (o *NullConfirmedOption) Scan(src interface{}) error {
	if src == nil {
		*o = NullConfirmedOption{}
		return nil
	}
	o.Valid = true
	return scanJSON(src, &o.ConfirmedOption)
}

func (o NullConfirmedOption) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(o.ConfirmedOption)
}

func (o *NullConfirmedOption) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*o = NullConfirmedOption{}
		return nil
	}
	o.Valid = true
	return json.Unmarshal(data, &o.ConfirmedOption)
}

// Booking is the central entity: a booking request moving through the ops
// pipeline. Exactly one of UserID or the guest contact fields identifies
// the requester; AccessCode is a capability credential standing in for a
// login and is never regenerated.
type Booking struct {
	Base
	ClinicID          uuid.UUID           `db:"clinic_id" json:"clinic_id"`
	UserID            *uuid.UUID          `db:"user_id" json:"user_id,omitempty"`
	GuestEmail        string              `db:"guest_email" json:"guest_email,omitempty"`
	GuestPhone        string              `db:"guest_phone" json:"guest_phone,omitempty"`
	AccessCode        string              `db:"access_code" json:"access_code"`
	Procedure         string              `db:"procedure" json:"procedure"`
	PreferredDate     time.Time           `db:"preferred_date" json:"preferred_date"`
	PreferredTimeSlot string              `db:"preferred_time_slot" json:"preferred_time_slot,omitempty"`
	Budget            Budget              `db:"budget" json:"budget"`
	Photos            StringSlice         `db:"photos" json:"photos"`
	Locale            Locale              `db:"locale" json:"locale"`
	Notes             string              `db:"notes" json:"notes,omitempty"`
	Status            BookingStatus       `db:"status" json:"status"`
	StatusHistory     StatusHistory       `db:"status_history" json:"status_history"`
	OpsNotes          string              `db:"ops_notes" json:"ops_notes,omitempty"`
	ProposedOptions   ProposedOptions     `db:"proposed_options" json:"proposed_options,omitempty"`
	ConfirmedOption   NullConfirmedOption `db:"confirmed_option" json:"confirmed_option"`
}

// ContactEmail returns the email notifications go to, empty if none.
func (b *Booking) ContactEmail() string {
	return b.GuestEmail
}

// VisitDate is the date a review records: the confirmed date when one
// exists, otherwise the requested date.
func (b *Booking) VisitDate() time.Time {
	if b.ConfirmedOption.Valid {
		return b.ConfirmedOption.Date
	}
	return b.PreferredDate
}

// SLAHours is the ops first-response window for new requests.
const SLAHours = 8

// SLA is a view-time projection for the ops queue. It is recomputed on
// every read and never persisted.
type SLA struct {
	HoursElapsed   float64 `json:"hours_elapsed"`
	HoursRemaining float64 `json:"hours_remaining"`
	IsOverdue      bool    `json:"is_overdue"`
}

// ComputeSLA derives the SLA annotation for a booking at time now.
func (b *Booking) ComputeSLA(now time.Time) SLA {
	elapsed := now.Sub(b.CreatedAt).Hours()
	return SLA{
		HoursElapsed:   roundTenth(elapsed),
		HoursRemaining: maxFloat(0, roundTenth(SLAHours-elapsed)),
		IsOverdue:      elapsed > SLAHours && b.Status == BookingStatusReceived,
	}
}

func roundTenth(f float64) float64 {
	if f >= 0 {
		return float64(int64(f*10+0.5)) / 10
	}
	return float64(int64(f*10-0.5)) / 10
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// CreateBookingRequest is the consumer-facing creation payload.
type CreateBookingRequest struct {
	ClinicID          uuid.UUID `json:"clinic_id" binding:"required"`
	Procedure         string    `json:"procedure" binding:"required"`
	PreferredDate     time.Time `json:"preferred_date" binding:"required"`
	PreferredTimeSlot string    `json:"preferred_time_slot"`
	Budget            *Budget   `json:"budget"`
	GuestEmail        string    `json:"guest_email" binding:"omitempty,email"`
	GuestPhone        string    `json:"guest_phone"`
	Photos            []string  `json:"photos"`
	Locale            Locale    `json:"locale"`
	Notes             string    `json:"notes"`
}

// UpdateBookingStatusRequest is the ops-facing transition payload.
type UpdateBookingStatusRequest struct {
	Status          BookingStatus    `json:"status" binding:"required"`
	Note            string           `json:"note"`
	ProposedOptions ProposedOptions  `json:"proposed_options"`
	ConfirmedOption *ConfirmedOption `json:"confirmed_option"`
}

// BookingFilters narrows booking list queries.
type BookingFilters struct {
	Status     BookingStatus
	UserID     *uuid.UUID
	GuestEmail string
	Pagination Pagination
}

// BookingWithSLA pairs a booking with its queue annotation.
type BookingWithSLA struct {
	*Booking
	ClinicName LocalizedString `json:"clinic_name"`
	SLA        SLA             `json:"sla"`
}

// BookingStats is the ops dashboard aggregate.
type BookingStats struct {
	StatusCounts   map[BookingStatus]int `json:"status_counts"`
	TotalRequests  int                   `json:"total_requests"`
	ConversionRate float64               `json:"conversion_rate"`
	Pending        int                   `json:"pending"`
}
