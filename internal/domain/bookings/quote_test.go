package bookings

import (
	"testing"
	"time"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestDurationDays(t *testing.T) {
	tests := []struct {
		name  string
		start string
		end   string
		want  int
	}{
		{"same day", "2024-01-01", "2024-01-01", 1},
		{"weekend", "2024-01-01", "2024-01-03", 3},
		{"full week", "2024-03-04", "2024-03-10", 7},
		{"month boundary", "2024-01-31", "2024-02-01", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DurationDays(date(tt.start), date(tt.end)); got != tt.want {
				t.Errorf("DurationDays(%s, %s) = %d, want %d", tt.start, tt.end, got, tt.want)
			}
		})
	}
}

func TestComputeQuote(t *testing.T) {
	q := ComputeQuote(date("2024-01-01"), date("2024-01-03"), 50, []QuoteItem{
		{ItemID: 1, ItemName: "Canon R5", Quantity: 1, DailyRate: 1000},
	})

	if q.DurationDays != 3 {
		t.Errorf("duration = %d, want 3", q.DurationDays)
	}
	if q.TotalAmount != 3000 {
		t.Errorf("total = %d, want 3000", q.TotalAmount)
	}
	if q.DepositAmount != 1500 {
		t.Errorf("deposit = %d, want 1500", q.DepositAmount)
	}
	if q.BalanceAmount != 1500 {
		t.Errorf("balance = %d, want 1500", q.BalanceAmount)
	}
	if len(q.Lines) != 1 || q.Lines[0].Subtotal != 3000 {
		t.Errorf("unexpected lines: %+v", q.Lines)
	}
}

func TestComputeQuoteMultipleLines(t *testing.T) {
	q := ComputeQuote(date("2024-05-10"), date("2024-05-11"), 30, []QuoteItem{
		{ItemID: 1, ItemName: "Sony A7 IV", Quantity: 2, DailyRate: 2500},
		{ItemID: 2, ItemName: "Godox light kit", Quantity: 1, DailyRate: 800},
	})

	// 2 days: (2*2500 + 800) * 2 = 11600
	if q.TotalAmount != 11600 {
		t.Errorf("total = %d, want 11600", q.TotalAmount)
	}
	if q.DepositAmount != 3480 {
		t.Errorf("deposit = %d, want 3480", q.DepositAmount)
	}
	if q.DepositAmount+q.BalanceAmount != q.TotalAmount {
		t.Errorf("deposit %d + balance %d != total %d", q.DepositAmount, q.BalanceAmount, q.TotalAmount)
	}
}

func TestDepositRoundsHalfUp(t *testing.T) {
	tests := []struct {
		total int64
		pct   int
		want  int64
	}{
		{3000, 50, 1500},
		{101, 50, 51}, // 50.5 rounds up
		{99, 50, 50},  // 49.5 rounds up
		{1, 50, 1},    // 0.5 rounds up
		{0, 50, 0},
		{3000, 30, 900},
		{3000, 100, 3000},
	}
	for _, tt := range tests {
		if got := Deposit(tt.total, tt.pct); got != tt.want {
			t.Errorf("Deposit(%d, %d) = %d, want %d", tt.total, tt.pct, got, tt.want)
		}
	}
}

func TestValidDepositPercent(t *testing.T) {
	for _, pct := range []int{30, 50, 100} {
		if !ValidDepositPercent(pct) {
			t.Errorf("%d should be a valid deposit percent", pct)
		}
	}
	for _, pct := range []int{0, 25, 40, 99, 101} {
		if ValidDepositPercent(pct) {
			t.Errorf("%d should not be a valid deposit percent", pct)
		}
	}
}

func TestValidateDates(t *testing.T) {
	now := date("2024-06-15")

	if err := ValidateDates(date("2024-06-20"), date("2024-06-18"), now); err != ErrInvalidDateRange {
		t.Errorf("inverted range: got %v, want ErrInvalidDateRange", err)
	}
	if err := ValidateDates(date("2024-06-10"), date("2024-06-20"), now); err != ErrStartInPast {
		t.Errorf("past start: got %v, want ErrStartInPast", err)
	}
	if err := ValidateDates(date("2024-06-15"), date("2024-06-15"), now); err != nil {
		t.Errorf("today is a valid start: got %v", err)
	}
}

func TestDerivePaymentStatus(t *testing.T) {
	tests := []struct {
		name    string
		paid    int64
		deposit int64
		total   int64
		want    PaymentStatus
	}{
		{"nothing paid", 0, 1500, 3000, PaymentUnpaid},
		{"below deposit", 1000, 1500, 3000, PaymentUnpaid},
		{"deposit exactly", 1500, 1500, 3000, PaymentDepositPaid},
		{"between deposit and total", 2000, 1500, 3000, PaymentDepositPaid},
		{"total exactly", 3000, 1500, 3000, PaymentPaid},
		{"overpaid", 3500, 1500, 3000, PaymentPaid},
		{"zero deposit booking", 0, 0, 3000, PaymentUnpaid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DerivePaymentStatus(tt.paid, tt.deposit, tt.total); got != tt.want {
				t.Errorf("DerivePaymentStatus(%d, %d, %d) = %s, want %s", tt.paid, tt.deposit, tt.total, got, tt.want)
			}
		})
	}
}

func TestStatusTransitions(t *testing.T) {
	allowed := []struct{ from, to Status }{
		{StatusPending, StatusConfirmed},
		{StatusPending, StatusCancelled},
		{StatusConfirmed, StatusActive},
		{StatusConfirmed, StatusCancelled},
		{StatusActive, StatusCompleted},
	}
	for _, tt := range allowed {
		if !tt.from.CanTransitionTo(tt.to) {
			t.Errorf("%s -> %s should be allowed", tt.from, tt.to)
		}
	}

	denied := []struct{ from, to Status }{
		{StatusPending, StatusActive},
		{StatusPending, StatusCompleted},
		{StatusActive, StatusCancelled},
		{StatusCompleted, StatusActive},
		{StatusCancelled, StatusConfirmed},
	}
	for _, tt := range denied {
		if tt.from.CanTransitionTo(tt.to) {
			t.Errorf("%s -> %s should be denied", tt.from, tt.to)
		}
	}
}
