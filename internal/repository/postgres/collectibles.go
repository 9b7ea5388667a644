package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hauslive/hausd/internal/domain"
	"github.com/hauslive/hausd/internal/repository"
)

type CollectibleRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *CollectibleRepo) With(db DB) *CollectibleRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *CollectibleRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func (r *CollectibleRepo) Create(ctx context.Context, c *domain.Collectible) error {
	const op = "postgres.CollectibleRepo.Create"

	db := r.handle()

	_, err := db.Exec(ctx,
		`INSERT INTO collectibles(
			mint, metadata_addr, master_edition, name, symbol, uri,
			creator, update_authority, owner
		 ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.Mint, c.MetadataAddress, c.MasterEdition, c.Name, c.Symbol, c.URI,
		c.Creator, c.UpdateAuthority, c.Owner,
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}

func (r *CollectibleRepo) Get(ctx context.Context, mint domain.Address) (*domain.Collectible, error) {
	const op = "postgres.CollectibleRepo.Get"

	db := r.handle()

	var c domain.Collectible
	err := db.QueryRow(ctx,
		`SELECT mint, metadata_addr, master_edition, name, symbol, uri,
				creator, update_authority, owner, created_at
       	 FROM collectibles WHERE mint = $1`,
		mint,
	).Scan(&c.Mint, &c.MetadataAddress, &c.MasterEdition, &c.Name, &c.Symbol,
		&c.URI, &c.Creator, &c.UpdateAuthority, &c.Owner, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return &c, nil
}

// TransferOwner moves the single unit from its current holder to the
// recipient. The holder is matched in the predicate, so a stale caller
// cannot move someone else's asset.
func (r *CollectibleRepo) TransferOwner(ctx context.Context, mint, from, to domain.Address) error {
	const op = "postgres.CollectibleRepo.TransferOwner"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE collectibles SET owner = $3 WHERE mint = $1 AND owner = $2`,
		mint, from, to,
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrConflict)
	}

	return nil
}

// UpdateURI rewrites the metadata URI; only the designated update
// authority may do so.
func (r *CollectibleRepo) UpdateURI(ctx context.Context, mint, authority domain.Address, uri string) error {
	const op = "postgres.CollectibleRepo.UpdateURI"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE collectibles SET uri = $3 WHERE mint = $1 AND update_authority = $2`,
		mint, authority, uri,
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrConflict)
	}

	return nil
}
