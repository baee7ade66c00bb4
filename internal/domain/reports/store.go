package reports

import (
	"context"
	"fmt"
	"time"

	"camrent/internal/infra/dbx"
)

type Store interface {
	GetDashboard(ctx context.Context) (*Dashboard, error)
	RevenueByMonth(ctx context.Context, months int) ([]MonthlyRevenue, error)
	TopItems(ctx context.Context, since time.Time, limit int) ([]TopItem, error)
	LowStockItems(ctx context.Context, threshold int) ([]LowStockItem, error)
}

type Repository struct {
	q dbx.Querier
}

func NewRepository(q dbx.Querier) Store {
	return &Repository{q: q}
}

// GetDashboard gathers the headline numbers in two queries: one over
// bookings and customers, one over payments.
func (r *Repository) GetDashboard(ctx context.Context) (*Dashboard, error) {
	d := &Dashboard{}

	err := r.q.QueryRow(ctx, `
		SELECT
		  (SELECT COUNT(*) FROM profiles),
		  COUNT(*) FILTER (WHERE status = 'active'),
		  COUNT(*) FILTER (WHERE status = 'pending'),
		  COUNT(*) FILTER (WHERE status = 'completed'),
		  COALESCE(SUM(total_amount - deposit_amount) FILTER (WHERE status IN ('confirmed', 'active') AND payment_status <> 'paid'), 0),
		  COALESCE((SELECT SUM(bi.quantity)
		            FROM booking_items bi
		            JOIN bookings b2 ON b2.id = bi.booking_id
		            WHERE b2.status = 'active'), 0)
		FROM bookings
	`).Scan(
		&d.TotalCustomers,
		&d.ActiveBookings,
		&d.PendingBookings,
		&d.CompletedBookings,
		&d.OutstandingAmount,
		&d.ItemsOut,
	)
	if err != nil {
		return nil, fmt.Errorf("dashboard bookings: %w", err)
	}

	err = r.q.QueryRow(ctx, `
		SELECT
		  COALESCE(SUM(amount), 0),
		  COALESCE(SUM(amount) FILTER (WHERE created_at >= date_trunc('month', NOW())), 0)
		FROM payments
		WHERE status = 'completed'
	`).Scan(&d.RevenueTotal, &d.RevenueThisMonth)
	if err != nil {
		return nil, fmt.Errorf("dashboard revenue: %w", err)
	}

	return d, nil
}

func (r *Repository) RevenueByMonth(ctx context.Context, months int) ([]MonthlyRevenue, error) {
	if months <= 0 || months > 36 {
		months = 12
	}

	rows, err := r.q.Query(ctx, `
		SELECT date_trunc('month', created_at) AS month,
		       COALESCE(SUM(amount), 0),
		       COUNT(*)
		FROM payments
		WHERE status = 'completed'
		  AND created_at >= date_trunc('month', NOW()) - make_interval(months => $1 - 1)
		GROUP BY month
		ORDER BY month
	`, months)
	if err != nil {
		return nil, fmt.Errorf("revenue by month: %w", err)
	}
	defer rows.Close()

	var out []MonthlyRevenue
	for rows.Next() {
		var m MonthlyRevenue
		if err := rows.Scan(&m.Month, &m.Revenue, &m.Payments); err != nil {
			return nil, fmt.Errorf("scan monthly revenue: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// LowStockItems lists active items whose rentable pool has dropped to the
// threshold or below, emptiest first.
func (r *Repository) LowStockItems(ctx context.Context, threshold int) ([]LowStockItem, error) {
	if threshold < 0 {
		threshold = 0
	}

	rows, err := r.q.Query(ctx, `
		SELECT id, name, category, total_quantity, available_quantity
		FROM inventory_items
		WHERE is_active = TRUE AND available_quantity <= $1
		ORDER BY available_quantity ASC, name
	`, threshold)
	if err != nil {
		return nil, fmt.Errorf("low stock items: %w", err)
	}
	defer rows.Close()

	var out []LowStockItem
	for rows.Next() {
		var it LowStockItem
		if err := rows.Scan(&it.ItemID, &it.ItemName, &it.Category, &it.TotalQuantity, &it.AvailableQuantity); err != nil {
			return nil, fmt.Errorf("scan low stock item: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *Repository) TopItems(ctx context.Context, since time.Time, limit int) ([]TopItem, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	rows, err := r.q.Query(ctx, `
		SELECT i.id, i.name, i.category,
		       COUNT(DISTINCT bi.booking_id),
		       COALESCE(SUM(bi.quantity), 0),
		       COALESCE(SUM(bi.subtotal), 0)
		FROM booking_items bi
		JOIN inventory_items i ON i.id = bi.item_id
		JOIN bookings b ON b.id = bi.booking_id
		WHERE b.created_at >= $1 AND b.status <> 'cancelled'
		GROUP BY i.id
		ORDER BY SUM(bi.subtotal) DESC
		LIMIT $2
	`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("top items: %w", err)
	}
	defer rows.Close()

	var out []TopItem
	for rows.Next() {
		var t TopItem
		if err := rows.Scan(&t.ItemID, &t.ItemName, &t.Category, &t.TimesBooked, &t.UnitsBooked, &t.RevenueShare); err != nil {
			return nil, fmt.Errorf("scan top item: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
