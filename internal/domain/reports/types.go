package reports

import "time"

// Dashboard is the back-office landing view, assembled from aggregate
// queries rather than per-row fetches.
type Dashboard struct {
	TotalCustomers    int   `json:"total_customers"`
	ActiveBookings    int   `json:"active_bookings"`
	PendingBookings   int   `json:"pending_bookings"`
	CompletedBookings int   `json:"completed_bookings"`
	RevenueTotal      int64 `json:"revenue_total"`
	RevenueThisMonth  int64 `json:"revenue_this_month"`
	OutstandingAmount int64 `json:"outstanding_amount"`
	ItemsOut          int   `json:"items_out"`
}

// MonthlyRevenue is one row of the revenue-by-month report.
type MonthlyRevenue struct {
	Month    time.Time `json:"month"`
	Revenue  int64     `json:"revenue"`
	Payments int       `json:"payments"`
}

// LowStockItem flags catalog entries running out of rentable units.
type LowStockItem struct {
	ItemID            int64  `json:"item_id"`
	ItemName          string `json:"item_name"`
	Category          string `json:"category"`
	TotalQuantity     int    `json:"total_quantity"`
	AvailableQuantity int    `json:"available_quantity"`
}

// TopItem ranks inventory by booked volume over a window.
type TopItem struct {
	ItemID       int64  `json:"item_id"`
	ItemName     string `json:"item_name"`
	Category     string `json:"category"`
	TimesBooked  int    `json:"times_booked"`
	UnitsBooked  int    `json:"units_booked"`
	RevenueShare int64  `json:"revenue_share"`
}
