package inventory

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound      = errors.New("inventory item not found")
	ErrItemInUse     = errors.New("cannot delete an item with existing bookings")
	ErrDuplicateName = errors.New("an item with this name already exists")
)

// InsufficientStockError names the item so the caller can tell the customer
// which line of the booking failed.
type InsufficientStockError struct {
	ItemID    int64
	ItemName  string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: requested %d, available %d", e.ItemName, e.Requested, e.Available)
}

// Item is a rentable unit of gear. available_quantity tracks units not
// currently reserved by an active booking; 0 <= available <= total is
// enforced by guarded updates, never by blind writes.
type Item struct {
	ID                int64     `json:"id"`
	Name              string    `json:"name"`
	Category          string    `json:"category"`
	Description       *string   `json:"description,omitempty"`
	DailyRate         int64     `json:"daily_rate"`
	TotalQuantity     int       `json:"total_quantity"`
	AvailableQuantity int       `json:"available_quantity"`
	ImageURLs         []string  `json:"image_urls,omitempty"`
	IsActive          bool      `json:"is_active"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
