package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hauslive/hausd/internal/domain"
)

type TipRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *TipRepo) With(db DB) *TipRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *TipRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// Create persists a tip record. The unique (event_id, tipper) constraint
// reproduces the derived-address collision: a second tip from the same
// tipper fails with repository.ErrConflict.
func (r *TipRepo) Create(ctx context.Context, tip *domain.Tip) error {
	const op = "postgres.TipRepo.Create"

	db := r.handle()

	_, err := db.Exec(ctx,
		`INSERT INTO tips(address, event_id, tipper, amount, tipped_at)
       	 VALUES ($1, $2, $3, $4, $5)`,
		tip.Address, tip.EventID, tip.Tipper, tip.Amount, tip.TippedAt,
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}

// ListByEvent returns an event's tips ordered as a leaderboard: largest
// first, earlier tip wins the tie.
func (r *TipRepo) ListByEvent(ctx context.Context, eventID uint64, limit, offset int) ([]domain.Tip, error) {
	const op = "postgres.TipRepo.ListByEvent"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT address, event_id, tipper, amount, tipped_at
		 FROM tips
		 WHERE event_id = $1
		 ORDER BY amount DESC, tipped_at ASC
		 LIMIT $2 OFFSET $3`,
		eventID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer rows.Close()

	var out []domain.Tip
	for rows.Next() {
		var t domain.Tip
		if err := rows.Scan(&t.Address, &t.EventID, &t.Tipper, &t.Amount, &t.TippedAt); err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}

		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}
