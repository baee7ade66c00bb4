package bookings

import (
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("booking not found")
	ErrEmptyBooking      = errors.New("a booking needs at least one item")
	ErrInvalidDateRange  = errors.New("end date must not be before start date")
	ErrStartInPast       = errors.New("start date must not be in the past")
	ErrInvalidTransition = errors.New("invalid booking status transition")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// transitions is the closed lifecycle graph. Stock is reserved at creation
// and released on the two terminal edges that end a rental.
var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusActive, StatusCancelled},
	StatusActive:    {StatusCompleted},
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusActive, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether next is a legal successor of s.
func (s Status) CanTransitionTo(next Status) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// ReleasesStock reports whether entering this status returns the reserved
// units to the pool.
func (s Status) ReleasesStock() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type PaymentStatus string

const (
	PaymentUnpaid      PaymentStatus = "unpaid"
	PaymentDepositPaid PaymentStatus = "deposit_paid"
	PaymentPaid        PaymentStatus = "paid"
)

// DerivePaymentStatus maps the sum of completed payments onto the three
// payment states. Paying the deposit alone never reads as fully paid.
func DerivePaymentStatus(paidAmount, depositAmount, totalAmount int64) PaymentStatus {
	switch {
	case paidAmount >= totalAmount:
		return PaymentPaid
	case paidAmount >= depositAmount && paidAmount > 0:
		return PaymentDepositPaid
	default:
		return PaymentUnpaid
	}
}

// Booking is a reservation of one or more inventory items for an inclusive
// date range. Amounts are whole Kenyan shillings.
type Booking struct {
	ID            int64         `json:"id"`
	Reference     string        `json:"reference"`
	CustomerID    int64         `json:"customer_id"`
	StartDate     time.Time     `json:"start_date"`
	EndDate       time.Time     `json:"end_date"`
	DurationDays  int           `json:"duration_days"`
	TotalAmount   int64         `json:"total_amount"`
	DepositAmount int64         `json:"deposit_amount"`
	Status        Status        `json:"status"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	Notes         *string       `json:"notes,omitempty"`
	Items         []LineItem    `json:"items,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// LineItem freezes the rate the customer saw: daily_rate is copied from the
// inventory item at booking time so later price edits do not reprice
// existing bookings.
type LineItem struct {
	ID        int64  `json:"id"`
	BookingID int64  `json:"booking_id"`
	ItemID    int64  `json:"item_id"`
	ItemName  string `json:"item_name"`
	Quantity  int    `json:"quantity"`
	DailyRate int64  `json:"daily_rate"`
	Subtotal  int64  `json:"subtotal"`
}

// StaffRow is the back-office listing view, joined with the customer in the
// same query.
type StaffRow struct {
	Booking
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
	PaidAmount    int64  `json:"paid_amount"`
}
