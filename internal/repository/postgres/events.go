package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hauslive/hausd/internal/domain"
	"github.com/hauslive/hausd/internal/repository"
)

type EventRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *EventRepo) With(db DB) *EventRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *EventRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

const eventColumns = `id, address, authority, name, description, category,
	inventory_size, unit_price, sale_type, reserve_price,
	start_time, duration_secs, tickets_sold, total_tips,
	highest_tipper, highest_tip_amount, status,
	mint, metadata, master_edition, created_at`

func scanEvent(row interface{ Scan(dest ...any) error }) (*domain.Event, error) {
	var (
		e            domain.Event
		durationSecs int64
	)

	err := row.Scan(
		&e.ID, &e.Address, &e.Authority, &e.Name, &e.Description, &e.Category,
		&e.InventorySize, &e.UnitPrice, &e.SaleType, &e.ReservePrice,
		&e.StartTime, &durationSecs, &e.TicketsSold, &e.TotalTips,
		&e.HighestTipper, &e.HighestTipAmount, &e.Status,
		&e.Mint, &e.Metadata, &e.MasterEdition, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.Duration = time.Duration(durationSecs) * time.Second

	return &e, nil
}

// Create persists a freshly allocated event record.
//
// Returns:
//   - error: repository.ErrConflict if the id or address is already taken.
func (r *EventRepo) Create(ctx context.Context, e *domain.Event) error {
	const op = "postgres.EventRepo.Create"

	db := r.handle()

	_, err := db.Exec(ctx,
		`INSERT INTO events(
			id, address, authority, name, description, category,
			inventory_size, unit_price, sale_type, reserve_price,
			start_time, duration_secs, tickets_sold, total_tips,
			highest_tipper, highest_tip_amount, status,
			mint, metadata, master_edition
		 ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)`,
		e.ID, e.Address, e.Authority, e.Name, e.Description, e.Category,
		e.InventorySize, e.UnitPrice, e.SaleType, e.ReservePrice,
		e.StartTime, int64(e.Duration/time.Second), e.TicketsSold, e.TotalTips,
		e.HighestTipper, e.HighestTipAmount, e.Status,
		e.Mint, e.Metadata, e.MasterEdition,
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}

// Get retrieves an event by its id.
func (r *EventRepo) Get(ctx context.Context, id uint64) (*domain.Event, error) {
	const op = "postgres.EventRepo.Get"

	db := r.handle()

	e, err := scanEvent(db.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`, id,
	))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return e, nil
}

// GetForUpdate retrieves an event with a row lock, so the mutating
// operation holding the transaction cannot lose a concurrent update.
func (r *EventRepo) GetForUpdate(ctx context.Context, id uint64) (*domain.Event, error) {
	const op = "postgres.EventRepo.GetForUpdate"

	db := r.handle()

	e, err := scanEvent(db.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1 FOR UPDATE`, id,
	))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return e, nil
}

// List returns events ordered by start time.
func (r *EventRepo) List(ctx context.Context, limit, offset int) ([]domain.Event, error) {
	const op = "postgres.EventRepo.List"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT `+eventColumns+`
		 FROM events
		 ORDER BY start_time, id
		 LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer rows.Close()

	var out []domain.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}

		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// UpdateStatus persists a status transition.
func (r *EventRepo) UpdateStatus(ctx context.Context, id uint64, status domain.EventStatus) error {
	const op = "postgres.EventRepo.UpdateStatus"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE events SET status = $2 WHERE id = $1`,
		id, status,
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

// UpdateTips persists the tip accumulator and the highest-tipper pair
// computed by the domain logic under the caller's row lock.
func (r *EventRepo) UpdateTips(
	ctx context.Context,
	id uint64,
	totalTips uint64,
	highestTipper domain.Address,
	highestTipAmount uint64,
) error {
	const op = "postgres.EventRepo.UpdateTips"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE events
         SET total_tips = $2, highest_tipper = $3, highest_tip_amount = $4
      	 WHERE id = $1`,
		id, totalTips, highestTipper, highestTipAmount,
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

// IncrementTicketsSold bumps the event-side sold counter, kept in step
// with the inventory-side counter inside the purchase transaction.
func (r *EventRepo) IncrementTicketsSold(ctx context.Context, id uint64) error {
	const op = "postgres.EventRepo.IncrementTicketsSold"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE events SET tickets_sold = tickets_sold + 1 WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}
