package profiles

import (
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("profile not found")
	ErrDuplicateIDNumber = errors.New("a profile with that ID number already exists")
)

// Profile holds the KYC details collected before gear can be released to a
// customer. One row per user.
type Profile struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	FullName   string    `json:"full_name"`
	Phone      string    `json:"phone"`
	IDNumber   string    `json:"id_number"`
	IDPhotoURL *string   `json:"id_photo_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CustomerRow is the staff-facing listing view: profile joined with the
// account and booking counts in a single query.
type CustomerRow struct {
	Profile
	Email         string     `json:"email"`
	IsActive      bool       `json:"is_active"`
	BookingsCount int        `json:"bookings_count"`
	LastBookingAt *time.Time `json:"last_booking_at,omitempty"`
}
