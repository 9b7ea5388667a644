package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hauslive/hausd/internal/domain"
	"github.com/hauslive/hausd/internal/repository"
)

type InventoryRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *InventoryRepo) With(db DB) *InventoryRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *InventoryRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// Create provisions the per-event inventory record. Called from the
// event-creation transaction only.
func (r *InventoryRepo) Create(ctx context.Context, inv *domain.TicketInventory) error {
	const op = "postgres.InventoryRepo.Create"

	db := r.handle()

	_, err := db.Exec(ctx,
		`INSERT INTO ticket_inventories(
			event_id, authority, inventory_size, unit_price, tickets_sold, ticket_sequence
		 ) VALUES ($1, $2, $3, $4, $5, $6)`,
		inv.EventID, inv.Authority, inv.InventorySize, inv.UnitPrice,
		inv.TicketsSold, inv.TicketSequence,
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}

// Get retrieves the inventory for an event.
func (r *InventoryRepo) Get(ctx context.Context, eventID uint64) (*domain.TicketInventory, error) {
	const op = "postgres.InventoryRepo.Get"

	db := r.handle()

	var inv domain.TicketInventory
	err := db.QueryRow(ctx,
		`SELECT event_id, authority, inventory_size, unit_price, tickets_sold, ticket_sequence
       	 FROM ticket_inventories WHERE event_id = $1`,
		eventID,
	).Scan(&inv.EventID, &inv.Authority, &inv.InventorySize, &inv.UnitPrice,
		&inv.TicketsSold, &inv.TicketSequence)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return &inv, nil
}

// GetForUpdate retrieves the inventory with a row lock for the purchase
// transaction.
func (r *InventoryRepo) GetForUpdate(ctx context.Context, eventID uint64) (*domain.TicketInventory, error) {
	const op = "postgres.InventoryRepo.GetForUpdate"

	db := r.handle()

	var inv domain.TicketInventory
	err := db.QueryRow(ctx,
		`SELECT event_id, authority, inventory_size, unit_price, tickets_sold, ticket_sequence
       	 FROM ticket_inventories WHERE event_id = $1 FOR UPDATE`,
		eventID,
	).Scan(&inv.EventID, &inv.Authority, &inv.InventorySize, &inv.UnitPrice,
		&inv.TicketsSold, &inv.TicketSequence)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return &inv, nil
}

// UpdateCounters persists the sold counter and the sequence counter
// together; they must never drift apart.
func (r *InventoryRepo) UpdateCounters(ctx context.Context, eventID, ticketsSold, ticketSequence uint64) error {
	const op = "postgres.InventoryRepo.UpdateCounters"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE ticket_inventories
         SET tickets_sold = $2, ticket_sequence = $3
      	 WHERE event_id = $1`,
		eventID, ticketsSold, ticketSequence,
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}
