package storage

import (
	"context"
	"fmt"

	"camrent/internal/domain/accesscontrol"
	"camrent/internal/domain/bookings"
	"camrent/internal/domain/inventory"
	"camrent/internal/domain/paymentsrepo"
	"camrent/internal/domain/profiles"
	"camrent/internal/domain/pushtokens"
	"camrent/internal/domain/reports"
	"camrent/internal/domain/users"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Container struct {
	pool          *pgxpool.Pool // IMPORTANT: set the pool so WithRentalTx works
	Users         users.Store
	Profiles      profiles.Store
	Inventory     inventory.Store
	Bookings      bookings.Store
	Payments      paymentsrepo.Store
	Reports       reports.Store
	PushTokens    pushtokens.Store
	AccessControl accesscontrol.Store
}

func NewContainer(db *pgxpool.Pool) *Container {
	return &Container{
		pool:          db,
		Users:         users.NewRepository(db),
		Profiles:      profiles.NewRepository(db),
		Inventory:     inventory.NewRepository(db),
		Bookings:      bookings.NewRepository(db),
		Payments:      paymentsrepo.NewRepository(db),
		Reports:       reports.NewRepository(db),
		PushTokens:    pushtokens.NewRepository(db),
		AccessControl: accesscontrol.NewRepository(db),
	}
}

// RentalTx is a temporary, tx-scoped set of repos for atomic units of work:
// creating a booking together with its stock reservation, or reconciling a
// payment against the booking it belongs to.
type RentalTx struct {
	Inventory inventory.Store
	Bookings  bookings.Store
	Payments  paymentsrepo.Store
}

// WithRentalTx runs a rental unit-of-work atomically.
func (c *Container) WithRentalTx(ctx context.Context, fn func(s *RentalTx) error) error {
	if c.pool == nil {
		return fmt.Errorf("storage container pool is nil (did you forget to set pool in NewContainer?)")
	}

	tx, err := c.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}

	defer func() {
		_ = tx.Rollback(ctx) // safe even if already committed
	}()

	s := &RentalTx{
		Inventory: inventory.NewRepository(tx),
		Bookings:  bookings.NewRepository(tx),
		Payments:  paymentsrepo.NewRepository(tx),
	}

	if err := fn(s); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
