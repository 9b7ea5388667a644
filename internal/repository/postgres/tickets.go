package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hauslive/hausd/internal/domain"
)

type TicketRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *TicketRepo) With(db DB) *TicketRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *TicketRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func (r *TicketRepo) Create(ctx context.Context, t *domain.Ticket) error {
	const op = "postgres.TicketRepo.Create"

	db := r.handle()

	_, err := db.Exec(ctx,
		`INSERT INTO tickets(address, event_id, seq, owner, mint, metadata, master_edition)
       	 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.Address, t.EventID, t.Seq, t.Owner, t.Mint, t.Metadata, t.MasterEdition,
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}

// Get retrieves a ticket by event id and sequential ticket id.
func (r *TicketRepo) Get(ctx context.Context, eventID, seq uint64) (*domain.Ticket, error) {
	const op = "postgres.TicketRepo.Get"

	db := r.handle()

	var t domain.Ticket
	err := db.QueryRow(ctx,
		`SELECT address, event_id, seq, owner, mint, metadata, master_edition, created_at
       	 FROM tickets WHERE event_id = $1 AND seq = $2`,
		eventID, seq,
	).Scan(&t.Address, &t.EventID, &t.Seq, &t.Owner, &t.Mint, &t.Metadata,
		&t.MasterEdition, &t.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return &t, nil
}

// ListByOwner returns the caller's tickets, newest first.
func (r *TicketRepo) ListByOwner(ctx context.Context, owner domain.Address, limit, offset int) ([]domain.Ticket, error) {
	const op = "postgres.TicketRepo.ListByOwner"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT address, event_id, seq, owner, mint, metadata, master_edition, created_at
		 FROM tickets
		 WHERE owner = $1
		 ORDER BY created_at DESC, event_id, seq
		 LIMIT $2 OFFSET $3`,
		owner, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer rows.Close()

	var out []domain.Ticket
	for rows.Next() {
		var t domain.Ticket
		if err := rows.Scan(&t.Address, &t.EventID, &t.Seq, &t.Owner, &t.Mint,
			&t.Metadata, &t.MasterEdition, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}

		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}
