package paymentsrepo

import (
	"context"
	"errors"
	"fmt"

	"camrent/internal/infra/dbx"

	"github.com/jackc/pgx/v5"
)

type Store interface {
	Create(ctx context.Context, p *Payment) error
	GetByID(ctx context.Context, id int64) (*Payment, error)
	GetByProviderRef(ctx context.Context, providerRef string) (*Payment, error)
	MarkCompleted(ctx context.Context, id int64, receiptNo string) error
	MarkFailed(ctx context.Context, id int64, reason string) error
	SumCompletedForBooking(ctx context.Context, bookingID int64) (int64, error)
	ListByBooking(ctx context.Context, bookingID int64) ([]*Payment, error)
}

type Repository struct {
	q dbx.Querier
}

func NewRepository(q dbx.Querier) Store {
	return &Repository{q: q}
}

func (r *Repository) Create(ctx context.Context, p *Payment) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO payments
		  (booking_id, amount, method, status, provider_ref, phone_number, recorded_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`,
		p.BookingID, p.Amount, p.Method, p.Status, p.ProviderRef, p.PhoneNumber, p.RecordedBy,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*Payment, error) {
	return r.getWhere(ctx, "id = $1", id)
}

// GetByProviderRef looks up the pending payment a gateway callback refers to.
func (r *Repository) GetByProviderRef(ctx context.Context, providerRef string) (*Payment, error) {
	return r.getWhere(ctx, "provider_ref = $1", providerRef)
}

func (r *Repository) getWhere(ctx context.Context, cond string, arg any) (*Payment, error) {
	query := `
		SELECT id, booking_id, amount, method, status, provider_ref, phone_number,
		       receipt_no, fail_reason, recorded_by, created_at, updated_at
		FROM payments
		WHERE ` + cond

	p := &Payment{}
	err := r.q.QueryRow(ctx, query, arg).Scan(
		&p.ID, &p.BookingID, &p.Amount, &p.Method, &p.Status, &p.ProviderRef, &p.PhoneNumber,
		&p.ReceiptNo, &p.FailReason, &p.RecordedBy, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// MarkCompleted finalizes a pending payment. The status guard makes a
// replayed callback a no-op at the database level.
func (r *Repository) MarkCompleted(ctx context.Context, id int64, receiptNo string) error {
	result, err := r.q.Exec(ctx, `
		UPDATE payments
		SET status = $1, receipt_no = $2, updated_at = NOW()
		WHERE id = $3 AND status = $4
	`, StatusCompleted, receiptNo, id, StatusPending)
	if err != nil {
		return fmt.Errorf("mark payment completed: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrAlreadyFinalized
	}
	return nil
}

func (r *Repository) MarkFailed(ctx context.Context, id int64, reason string) error {
	result, err := r.q.Exec(ctx, `
		UPDATE payments
		SET status = $1, fail_reason = $2, updated_at = NOW()
		WHERE id = $3 AND status = $4
	`, StatusFailed, reason, id, StatusPending)
	if err != nil {
		return fmt.Errorf("mark payment failed: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrAlreadyFinalized
	}
	return nil
}

// SumCompletedForBooking feeds the derived payment status on the booking.
func (r *Repository) SumCompletedForBooking(ctx context.Context, bookingID int64) (int64, error) {
	var sum int64
	err := r.q.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM payments
		WHERE booking_id = $1 AND status = $2
	`, bookingID, StatusCompleted).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum payments: %w", err)
	}
	return sum, nil
}

func (r *Repository) ListByBooking(ctx context.Context, bookingID int64) ([]*Payment, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, booking_id, amount, method, status, provider_ref, phone_number,
		       receipt_no, fail_reason, recorded_by, created_at, updated_at
		FROM payments
		WHERE booking_id = $1
		ORDER BY created_at DESC
	`, bookingID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var out []*Payment
	for rows.Next() {
		p := &Payment{}
		if err := rows.Scan(
			&p.ID, &p.BookingID, &p.Amount, &p.Method, &p.Status, &p.ProviderRef, &p.PhoneNumber,
			&p.ReceiptNo, &p.FailReason, &p.RecordedBy, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
