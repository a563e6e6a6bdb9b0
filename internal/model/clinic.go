package model

// Clinic is a read-mostly directory entry. Bookings and reviews store a
// reference to the clinic id, never a copy of its fields; rating and
// review_count are the only columns this service writes back, as a full
// recomputation after each review.
type Clinic struct {
	Base
	Name        LocalizedString `db:"name" json:"name"`
	City        City            `db:"city" json:"city"`
	Address     LocalizedString `db:"address" json:"address"`
	Phone       string          `db:"phone" json:"phone"`
	Languages   StringSlice     `db:"languages" json:"languages"`
	Tags        StringSlice     `db:"tags" json:"tags"`
	Rating      float64         `db:"rating" json:"rating"`
	ReviewCount int             `db:"review_count" json:"review_count"`
	Images      StringSlice     `db:"images" json:"images"`
	Description LocalizedString `db:"description" json:"description"`
	IsActive    bool            `db:"is_active" json:"is_active"`
}

// ClinicFilters narrows clinic directory listings.
type ClinicFilters struct {
	City       City
	Tag        string
	Pagination Pagination
}
