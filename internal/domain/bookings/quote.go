package bookings

import "time"

// DefaultDepositPercent is used when the customer does not pick one.
const DefaultDepositPercent = 50

// depositPercents is the closed set of upfront shares the shop offers.
var depositPercents = map[int]bool{30: true, 50: true, 100: true}

// ValidDepositPercent reports whether pct is one of the offered shares.
func ValidDepositPercent(pct int) bool {
	return depositPercents[pct]
}

// QuoteItem is one requested line before pricing.
type QuoteItem struct {
	ItemID    int64
	Quantity  int
	DailyRate int64
	ItemName  string
}

// Quote is the priced result of a booking request. Pure arithmetic, no
// storage involved, so customers can preview the cost before committing.
type Quote struct {
	DurationDays   int        `json:"duration_days"`
	DepositPercent int        `json:"deposit_percent"`
	TotalAmount    int64      `json:"total_amount"`
	DepositAmount  int64      `json:"deposit_amount"`
	BalanceAmount  int64      `json:"balance_amount"`
	Lines          []LineItem `json:"lines"`
}

// DurationDays counts rental days inclusively: picking up and returning on
// the same date is one paid day.
func DurationDays(start, end time.Time) int {
	s := start.Truncate(24 * time.Hour)
	e := end.Truncate(24 * time.Hour)
	return int(e.Sub(s).Hours()/24) + 1
}

// ComputeQuote prices a date range against the requested lines. The date
// range and deposit percent must already be validated.
func ComputeQuote(start, end time.Time, depositPct int, items []QuoteItem) Quote {
	days := DurationDays(start, end)

	q := Quote{DurationDays: days, DepositPercent: depositPct}
	for _, it := range items {
		sub := int64(it.Quantity) * it.DailyRate * int64(days)
		q.Lines = append(q.Lines, LineItem{
			ItemID:    it.ItemID,
			ItemName:  it.ItemName,
			Quantity:  it.Quantity,
			DailyRate: it.DailyRate,
			Subtotal:  sub,
		})
		q.TotalAmount += sub
	}
	q.DepositAmount = Deposit(q.TotalAmount, depositPct)
	q.BalanceAmount = q.TotalAmount - q.DepositAmount
	return q
}

// Deposit rounds half up to a whole shilling, so total is always
// deposit + balance exactly.
func Deposit(total int64, pct int) int64 {
	return (total*int64(pct) + 50) / 100
}

// ValidateDates rejects inverted ranges and starts before today. now is
// passed in so callers and tests share one clock.
func ValidateDates(start, end, now time.Time) error {
	if end.Before(start) {
		return ErrInvalidDateRange
	}
	today := now.Truncate(24 * time.Hour)
	if start.Before(today) {
		return ErrStartInPast
	}
	return nil
}
