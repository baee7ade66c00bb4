package bookings

import (
	"context"
	"errors"
	"fmt"

	"camrent/internal/infra/dbx"

	"github.com/jackc/pgx/v5"
)

type Store interface {
	Create(ctx context.Context, b *Booking) error
	SetReference(ctx context.Context, bookingID int64, reference string) error
	GetByID(ctx context.Context, id int64) (*Booking, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*Booking, error)
	ListByCustomer(ctx context.Context, customerID int64, limit, offset int) ([]*Booking, int, error)
	ListStaff(ctx context.Context, f StaffFilter) ([]StaffRow, int, error)
	UpdateStatus(ctx context.Context, id int64, from, to Status) error
	SetPaymentStatus(ctx context.Context, id int64, ps PaymentStatus) error
}

// StaffFilter narrows the back-office listing.
type StaffFilter struct {
	Status        Status
	PaymentStatus PaymentStatus
	Search        string
	Limit         int
	Offset        int
}

type Repository struct {
	q dbx.Querier
}

func NewRepository(q dbx.Querier) Store {
	return &Repository{q: q}
}

// Create inserts the booking and its line items. Stock reservation and
// reference assignment happen in the same transaction, driven by the caller.
func (r *Repository) Create(ctx context.Context, b *Booking) error {
	if len(b.Items) == 0 {
		return ErrEmptyBooking
	}

	err := r.q.QueryRow(ctx, `
		INSERT INTO bookings
		  (customer_id, start_date, end_date, duration_days, total_amount, deposit_amount,
		   status, payment_status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`,
		b.CustomerID, b.StartDate, b.EndDate, b.DurationDays, b.TotalAmount, b.DepositAmount,
		StatusPending, PaymentUnpaid, b.Notes,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	b.Status = StatusPending
	b.PaymentStatus = PaymentUnpaid

	for i := range b.Items {
		li := &b.Items[i]
		li.BookingID = b.ID
		err := r.q.QueryRow(ctx, `
			INSERT INTO booking_items (booking_id, item_id, quantity, daily_rate, subtotal)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`, li.BookingID, li.ItemID, li.Quantity, li.DailyRate, li.Subtotal).Scan(&li.ID)
		if err != nil {
			return fmt.Errorf("insert booking item: %w", err)
		}
	}
	return nil
}

func (r *Repository) SetReference(ctx context.Context, bookingID int64, reference string) error {
	result, err := r.q.Exec(ctx, `UPDATE bookings SET reference = $1 WHERE id = $2`, reference, bookingID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*Booking, error) {
	return r.get(ctx, id, false)
}

// GetByIDForUpdate takes a row lock so payment reconciliation and status
// changes serialize on the booking. Only meaningful inside a transaction.
func (r *Repository) GetByIDForUpdate(ctx context.Context, id int64) (*Booking, error) {
	return r.get(ctx, id, true)
}

func (r *Repository) get(ctx context.Context, id int64, forUpdate bool) (*Booking, error) {
	query := `
		SELECT id, COALESCE(reference, ''), customer_id, start_date, end_date, duration_days,
		       total_amount, deposit_amount, status, payment_status, notes, created_at, updated_at
		FROM bookings
		WHERE id = $1
	`
	if forUpdate {
		query += " FOR UPDATE"
	}

	b := &Booking{}
	err := r.q.QueryRow(ctx, query, id).Scan(
		&b.ID, &b.Reference, &b.CustomerID, &b.StartDate, &b.EndDate, &b.DurationDays,
		&b.TotalAmount, &b.DepositAmount, &b.Status, &b.PaymentStatus, &b.Notes,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if err := r.loadItems(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (r *Repository) loadItems(ctx context.Context, b *Booking) error {
	rows, err := r.q.Query(ctx, `
		SELECT bi.id, bi.booking_id, bi.item_id, i.name, bi.quantity, bi.daily_rate, bi.subtotal
		FROM booking_items bi
		JOIN inventory_items i ON i.id = bi.item_id
		WHERE bi.booking_id = $1
		ORDER BY bi.id
	`, b.ID)
	if err != nil {
		return fmt.Errorf("load booking items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var li LineItem
		if err := rows.Scan(&li.ID, &li.BookingID, &li.ItemID, &li.ItemName, &li.Quantity, &li.DailyRate, &li.Subtotal); err != nil {
			return fmt.Errorf("scan booking item: %w", err)
		}
		b.Items = append(b.Items, li)
	}
	return rows.Err()
}

func (r *Repository) ListByCustomer(ctx context.Context, customerID int64, limit, offset int) ([]*Booking, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.q.Query(ctx, `
		SELECT id, COALESCE(reference, ''), customer_id, start_date, end_date, duration_days,
		       total_amount, deposit_amount, status, payment_status, notes,
		       created_at, updated_at,
		       COUNT(*) OVER() AS total_count
		FROM bookings
		WHERE customer_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, customerID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var (
		out   []*Booking
		total int
	)
	for rows.Next() {
		var b Booking
		var t int
		if err := rows.Scan(
			&b.ID, &b.Reference, &b.CustomerID, &b.StartDate, &b.EndDate, &b.DurationDays,
			&b.TotalAmount, &b.DepositAmount, &b.Status, &b.PaymentStatus, &b.Notes,
			&b.CreatedAt, &b.UpdatedAt, &t,
		); err != nil {
			return nil, 0, fmt.Errorf("scan booking: %w", err)
		}
		if total == 0 {
			total = t
		}
		out = append(out, &b)
	}
	return out, total, rows.Err()
}

// ListStaff serves the back office: bookings joined with the customer and the
// completed-payment sum in one round trip.
func (r *Repository) ListStaff(ctx context.Context, f StaffFilter) ([]StaffRow, int, error) {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	rows, err := r.q.Query(ctx, `
SELECT
  b.id, COALESCE(b.reference, ''), b.customer_id, b.start_date, b.end_date, b.duration_days,
  b.total_amount, b.deposit_amount, b.status, b.payment_status, b.notes,
  b.created_at, b.updated_at,
  u.full_name, u.phone,
  COALESCE(SUM(p.amount) FILTER (WHERE p.status = 'completed'), 0) AS paid_amount,
  COUNT(*) OVER() AS total_count
FROM bookings b
JOIN users u ON u.id = b.customer_id
LEFT JOIN payments p ON p.booking_id = b.id
WHERE ($1 = '' OR b.status = $1)
  AND ($2 = '' OR b.payment_status = $2)
  AND ($3 = '' OR b.reference = $3 OR u.full_name ILIKE '%' || $3 || '%' OR u.phone = $3)
GROUP BY b.id, u.full_name, u.phone
ORDER BY b.created_at DESC
LIMIT $4 OFFSET $5
`, string(f.Status), string(f.PaymentStatus), f.Search, f.Limit, f.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list staff bookings: %w", err)
	}
	defer rows.Close()

	var (
		out   []StaffRow
		total int
	)
	for rows.Next() {
		var row StaffRow
		var t int
		if err := rows.Scan(
			&row.ID, &row.Reference, &row.CustomerID, &row.StartDate, &row.EndDate, &row.DurationDays,
			&row.TotalAmount, &row.DepositAmount, &row.Status, &row.PaymentStatus, &row.Notes,
			&row.CreatedAt, &row.UpdatedAt,
			&row.CustomerName, &row.CustomerPhone,
			&row.PaidAmount, &t,
		); err != nil {
			return nil, 0, fmt.Errorf("scan staff booking: %w", err)
		}
		if total == 0 {
			total = t
		}
		out = append(out, row)
	}
	return out, total, rows.Err()
}

// UpdateStatus moves a booking along the lifecycle. The WHERE clause pins the
// current status, so a concurrent transition loses cleanly instead of
// clobbering.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, from, to Status) error {
	if !from.CanTransitionTo(to) {
		return ErrInvalidTransition
	}

	result, err := r.q.Exec(ctx, `
		UPDATE bookings
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`, to, id, from)
	if err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrInvalidTransition
	}
	return nil
}

func (r *Repository) SetPaymentStatus(ctx context.Context, id int64, ps PaymentStatus) error {
	result, err := r.q.Exec(ctx, `
		UPDATE bookings
		SET payment_status = $1, updated_at = NOW()
		WHERE id = $2
	`, ps, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
