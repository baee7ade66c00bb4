package profiles

import (
	"context"
	"errors"
	"fmt"

	"camrent/internal/infra/dbx"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type Store interface {
	Create(ctx context.Context, p *Profile) error
	GetByUserID(ctx context.Context, userID int64) (*Profile, error)
	Update(ctx context.Context, p *Profile) error
	SetIDPhoto(ctx context.Context, userID int64, url string) error
	ListCustomers(ctx context.Context, search string, limit, offset int) ([]CustomerRow, int, error)
}

type Repository struct {
	q dbx.Querier
}

func NewRepository(q dbx.Querier) Store {
	return &Repository{q: q}
}

func (r *Repository) Create(ctx context.Context, p *Profile) error {
	query := `
		INSERT INTO profiles (user_id, full_name, phone, id_number, id_photo_url)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	err := r.q.QueryRow(ctx, query,
		p.UserID, p.FullName, p.Phone, p.IDNumber, p.IDPhotoURL,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "profiles_id_number_key" {
			return ErrDuplicateIDNumber
		}
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}

func (r *Repository) GetByUserID(ctx context.Context, userID int64) (*Profile, error) {
	query := `
		SELECT id, user_id, full_name, phone, id_number, id_photo_url, created_at, updated_at
		FROM profiles
		WHERE user_id = $1
	`
	p := &Profile{}
	err := r.q.QueryRow(ctx, query, userID).Scan(
		&p.ID, &p.UserID, &p.FullName, &p.Phone, &p.IDNumber, &p.IDPhotoURL, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *Repository) Update(ctx context.Context, p *Profile) error {
	query := `
		UPDATE profiles
		SET full_name = $1, phone = $2, id_number = $3, updated_at = NOW()
		WHERE user_id = $4
		RETURNING id, updated_at
	`
	err := r.q.QueryRow(ctx, query, p.FullName, p.Phone, p.IDNumber, p.UserID).Scan(&p.ID, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "profiles_id_number_key" {
			return ErrDuplicateIDNumber
		}
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}

func (r *Repository) SetIDPhoto(ctx context.Context, userID int64, url string) error {
	result, err := r.q.Exec(ctx, `UPDATE profiles SET id_photo_url = $1, updated_at = NOW() WHERE user_id = $2`, url, userID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListCustomers joins profiles with accounts and booking aggregates in one
// query rather than fetching per-row.
func (r *Repository) ListCustomers(ctx context.Context, search string, limit, offset int) ([]CustomerRow, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.q.Query(ctx, `
SELECT
  p.id, p.user_id, p.full_name, p.phone, p.id_number, p.id_photo_url,
  p.created_at, p.updated_at,
  u.email, u.is_active,
  COUNT(b.id) AS bookings_count,
  MAX(b.created_at) AS last_booking_at,
  COUNT(*) OVER() AS total_count
FROM profiles p
JOIN users u ON u.id = p.user_id
LEFT JOIN bookings b ON b.customer_id = p.user_id
WHERE ($1 = '' OR p.full_name ILIKE '%' || $1 || '%' OR p.id_number = $1 OR p.phone = $1)
GROUP BY p.id, u.email, u.is_active
ORDER BY p.created_at DESC
LIMIT $2 OFFSET $3
`, search, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	var (
		out   []CustomerRow
		total int
	)
	for rows.Next() {
		var c CustomerRow
		var t int
		if err := rows.Scan(
			&c.ID, &c.UserID, &c.FullName, &c.Phone, &c.IDNumber, &c.IDPhotoURL,
			&c.CreatedAt, &c.UpdatedAt,
			&c.Email, &c.IsActive,
			&c.BookingsCount, &c.LastBookingAt,
			&t,
		); err != nil {
			return nil, 0, fmt.Errorf("scan customer: %w", err)
		}
		if total == 0 {
			total = t
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}
