package model

import (
	"time"

	"github.com/google/uuid"
)

// Review is a verified consumer review. Exactly one review may exist per
// booking; the unique constraint on booking_id is the authority, the
// service-level eligibility check is advisory.
type Review struct {
	Base
	ClinicID     uuid.UUID   `db:"clinic_id" json:"clinic_id"`
	UserID       uuid.UUID   `db:"user_id" json:"user_id"`
	BookingID    uuid.UUID   `db:"booking_id" json:"booking_id"`
	Rating       int         `db:"rating" json:"rating"`
	Title        string      `db:"title" json:"title"`
	Content      string      `db:"content" json:"content"`
	Procedure    string      `db:"procedure" json:"procedure"`
	VisitDate    time.Time   `db:"visit_date" json:"visit_date"`
	Locale       Locale      `db:"locale" json:"locale"`
	Photos       StringSlice `db:"photos" json:"photos"`
	IsVerified   bool        `db:"is_verified" json:"is_verified"`
	IsVisible    bool        `db:"is_visible" json:"is_visible"`
	HelpfulCount int         `db:"helpful_count" json:"helpful_count"`
}

// CreateReviewRequest is the consumer-facing review payload.
type CreateReviewRequest struct {
	BookingID uuid.UUID `json:"booking_id" binding:"required"`
	Rating    int       `json:"rating" binding:"required,min=1,max=5"`
	Title     string    `json:"title" binding:"required,max=100"`
	Content   string    `json:"content" binding:"required,min=10,max=2000"`
	Photos    []string  `json:"photos" binding:"max=5"`
}

// ReviewSort orders clinic review listings.
type ReviewSort string

const (
	ReviewSortRecent     ReviewSort = "recent"
	ReviewSortRatingHigh ReviewSort = "rating-high"
	ReviewSortRatingLow  ReviewSort = "rating-low"
	ReviewSortHelpful    ReviewSort = "helpful"
)

// ReviewFilters narrows clinic review listings.
type ReviewFilters struct {
	ClinicID   uuid.UUID
	Sort       ReviewSort
	Pagination Pagination
}

// ReviewWithClinic pairs a review with the clinic it covers, for the
// caller's own-review listing.
type ReviewWithClinic struct {
	*Review
	ClinicName LocalizedString `json:"clinic_name"`
}

// ReviewEligibility is the gate result consulted before showing the
// review form; CreateReview re-validates independently.
type ReviewEligibility struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// ReviewStats is the aggregate block returned with clinic listings.
type ReviewStats struct {
	AverageRating      float64     `json:"average_rating"`
	TotalReviews       int         `json:"total_reviews"`
	RatingDistribution map[int]int `json:"rating_distribution"`
}
