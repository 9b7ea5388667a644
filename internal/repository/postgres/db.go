package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		pool: pool,
	}
}

// RunTx executes fn inside a serializable read-write transaction. Every
// top-level ledger operation goes through here, so concurrent mutations
// of the same event serialize and commit all-or-nothing.
func (s *Store) RunTx(
	ctx context.Context,
	opts *pgx.TxOptions,
	fn func(ctx context.Context, tx DB) error,
) error {
	txOpts := pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	}

	if opts != nil {
		txOpts.IsoLevel = opts.IsoLevel
		txOpts.AccessMode = opts.AccessMode
		txOpts.DeferrableMode = opts.DeferrableMode
	}

	tx, err := s.pool.BeginTx(ctx, txOpts)
	if err != nil {
		return err
	}

	defer tx.Rollback(ctx)

	if err := fn(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}

func (s *Store) Registry() *RegistryRepo         { return &RegistryRepo{pool: s.pool} }
func (s *Store) Events() *EventRepo              { return &EventRepo{pool: s.pool} }
func (s *Store) Inventories() *InventoryRepo     { return &InventoryRepo{pool: s.pool} }
func (s *Store) Tickets() *TicketRepo            { return &TicketRepo{pool: s.pool} }
func (s *Store) Tips() *TipRepo                  { return &TipRepo{pool: s.pool} }
func (s *Store) Accounts() *AccountRepo          { return &AccountRepo{pool: s.pool} }
func (s *Store) Collectibles() *CollectibleRepo  { return &CollectibleRepo{pool: s.pool} }
