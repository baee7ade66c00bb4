package inventory

import (
	"context"
	"errors"
	"fmt"

	"camrent/internal/infra/dbx"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type Store interface {
	Create(ctx context.Context, item *Item) error
	GetByID(ctx context.Context, id int64) (*Item, error)
	List(ctx context.Context, category string, limit, offset int) ([]*Item, int, error)
	Update(ctx context.Context, item *Item) error
	Delete(ctx context.Context, id int64) error
	AddImageURL(ctx context.Context, id int64, url string) error
	RemoveImageURL(ctx context.Context, id int64, url string) error

	// Reserve atomically decrements available stock, failing when fewer than
	// qty units remain. Release is its inverse, capped at total_quantity.
	// Both are safe under concurrent bookings.
	Reserve(ctx context.Context, itemID int64, qty int) error
	Release(ctx context.Context, itemID int64, qty int) error
}

type Repository struct {
	q dbx.Querier
}

func NewRepository(q dbx.Querier) Store {
	return &Repository{q: q}
}

func (r *Repository) Create(ctx context.Context, item *Item) error {
	query := `
		INSERT INTO inventory_items
		  (name, category, description, daily_rate, total_quantity, available_quantity, image_urls)
		VALUES ($1, $2, $3, $4, $5, $5, $6)
		RETURNING id, available_quantity, is_active, created_at, updated_at
	`
	err := r.q.QueryRow(ctx, query,
		item.Name, item.Category, item.Description, item.DailyRate, item.TotalQuantity, item.ImageURLs,
	).Scan(&item.ID, &item.AvailableQuantity, &item.IsActive, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateName
		}
		return fmt.Errorf("create inventory item: %w", err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*Item, error) {
	query := `
		SELECT id, name, category, description, daily_rate, total_quantity,
		       available_quantity, image_urls, is_active, created_at, updated_at
		FROM inventory_items
		WHERE id = $1
	`
	item := &Item{}
	err := r.q.QueryRow(ctx, query, id).Scan(
		&item.ID, &item.Name, &item.Category, &item.Description, &item.DailyRate,
		&item.TotalQuantity, &item.AvailableQuantity, &item.ImageURLs,
		&item.IsActive, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return item, nil
}

func (r *Repository) List(ctx context.Context, category string, limit, offset int) ([]*Item, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.q.Query(ctx, `
		SELECT id, name, category, description, daily_rate, total_quantity,
		       available_quantity, image_urls, is_active, created_at, updated_at,
		       COUNT(*) OVER() AS total_count
		FROM inventory_items
		WHERE is_active = true
		  AND ($1 = '' OR category = $1)
		ORDER BY name
		LIMIT $2 OFFSET $3
	`, category, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list inventory: %w", err)
	}
	defer rows.Close()

	var (
		out   []*Item
		total int
	)
	for rows.Next() {
		var item Item
		var t int
		if err := rows.Scan(
			&item.ID, &item.Name, &item.Category, &item.Description, &item.DailyRate,
			&item.TotalQuantity, &item.AvailableQuantity, &item.ImageURLs,
			&item.IsActive, &item.CreatedAt, &item.UpdatedAt,
			&t,
		); err != nil {
			return nil, 0, fmt.Errorf("scan inventory item: %w", err)
		}
		if total == 0 {
			total = t
		}
		out = append(out, &item)
	}
	return out, total, rows.Err()
}

// Update changes catalog fields and total quantity. Shrinking the total also
// shrinks availability but never below zero, and never touches units already
// reserved by bookings.
func (r *Repository) Update(ctx context.Context, item *Item) error {
	query := `
		UPDATE inventory_items
		SET name = $1,
		    category = $2,
		    description = $3,
		    daily_rate = $4,
		    available_quantity = GREATEST(0, available_quantity + ($5 - total_quantity)),
		    total_quantity = $5,
		    is_active = $6,
		    updated_at = NOW()
		WHERE id = $7
		RETURNING available_quantity, updated_at
	`
	err := r.q.QueryRow(ctx, query,
		item.Name, item.Category, item.Description, item.DailyRate,
		item.TotalQuantity, item.IsActive, item.ID,
	).Scan(&item.AvailableQuantity, &item.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("update inventory item: %w", err)
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	result, err := r.q.Exec(ctx, `DELETE FROM inventory_items WHERE id = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrItemInUse
		}
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) AddImageURL(ctx context.Context, id int64, url string) error {
	result, err := r.q.Exec(ctx, `
		UPDATE inventory_items
		SET image_urls = array_append(image_urls, $1), updated_at = NOW()
		WHERE id = $2
	`, url, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) RemoveImageURL(ctx context.Context, id int64, url string) error {
	result, err := r.q.Exec(ctx, `
		UPDATE inventory_items
		SET image_urls = array_remove(image_urls, $1), updated_at = NOW()
		WHERE id = $2
	`, url, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Reserve is the guard that closes the oversell race: the decrement and the
// floor check are one statement, so two concurrent bookings for the last
// unit cannot both pass.
func (r *Repository) Reserve(ctx context.Context, itemID int64, qty int) error {
	if qty < 1 {
		return fmt.Errorf("reserve quantity must be >= 1, got %d", qty)
	}

	result, err := r.q.Exec(ctx, `
		UPDATE inventory_items
		SET available_quantity = available_quantity - $1, updated_at = NOW()
		WHERE id = $2 AND available_quantity >= $1
	`, qty, itemID)
	if err != nil {
		return fmt.Errorf("reserve stock: %w", err)
	}
	if result.RowsAffected() == 0 {
		// Either the item is gone or there is not enough stock; fetch the
		// current state to report which.
		item, getErr := r.GetByID(ctx, itemID)
		if getErr != nil {
			return getErr
		}
		return &InsufficientStockError{
			ItemID:    item.ID,
			ItemName:  item.Name,
			Requested: qty,
			Available: item.AvailableQuantity,
		}
	}
	return nil
}

// Release returns units to the pool, capped so availability can never exceed
// the total owned.
func (r *Repository) Release(ctx context.Context, itemID int64, qty int) error {
	if qty < 1 {
		return fmt.Errorf("release quantity must be >= 1, got %d", qty)
	}

	result, err := r.q.Exec(ctx, `
		UPDATE inventory_items
		SET available_quantity = LEAST(total_quantity, available_quantity + $1), updated_at = NOW()
		WHERE id = $2
	`, qty, itemID)
	if err != nil {
		return fmt.Errorf("release stock: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
