package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hauslive/hausd/internal/domain"
)

type RegistryRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *RegistryRepo) With(db DB) *RegistryRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *RegistryRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// Create persists the registry singleton. A second create fails with
// repository.ErrConflict via the primary key on the fixed address.
func (r *RegistryRepo) Create(ctx context.Context, reg *domain.Registry) error {
	const op = "postgres.RegistryRepo.Create"

	db := r.handle()

	_, err := db.Exec(ctx,
		`INSERT INTO registry(address, authority, treasury, fee_rate, event_counter)
       	 VALUES ($1, $2, $3, $4, $5)`,
		reg.Address, reg.Authority, reg.Treasury, reg.FeeRate, reg.EventCounter,
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}

// Get retrieves the registry singleton.
//
// Returns:
//   - *domain.Registry: the registry when found.
//   - error: repository.ErrNotFound if it was never initialized.
func (r *RegistryRepo) Get(ctx context.Context, address domain.Address) (*domain.Registry, error) {
	const op = "postgres.RegistryRepo.Get"

	db := r.handle()

	var reg domain.Registry
	err := db.QueryRow(ctx,
		`SELECT address, authority, treasury, fee_rate, event_counter
       	 FROM registry WHERE address = $1`,
		address,
	).Scan(&reg.Address, &reg.Authority, &reg.Treasury, &reg.FeeRate, &reg.EventCounter)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return &reg, nil
}

// AllocateEventID bumps the monotonic event counter and returns the id
// it covered, so ids are dense starting at 0. The increment commits or
// rolls back with the rest of the event-creation transaction.
func (r *RegistryRepo) AllocateEventID(ctx context.Context, address domain.Address) (uint64, error) {
	const op = "postgres.RegistryRepo.AllocateEventID"

	db := r.handle()

	var next uint64
	err := db.QueryRow(ctx,
		`UPDATE registry
         SET event_counter = event_counter + 1
      	 WHERE address = $1
      	 RETURNING event_counter`,
		address,
	).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return next - 1, nil
}
