package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hauslive/hausd/internal/domain"
	"github.com/hauslive/hausd/internal/repository"
)

type AccountRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *AccountRepo) With(db DB) *AccountRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *AccountRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// Create registers an account with its secret hash.
//
// Returns:
//   - error: repository.ErrConflict if the address already exists.
func (r *AccountRepo) Create(ctx context.Context, address domain.Address, secretHash string) error {
	const op = "postgres.AccountRepo.Create"

	db := r.handle()

	_, err := db.Exec(ctx,
		`INSERT INTO accounts(address, balance, secret_hash)
       	 VALUES ($1, 0, $2)`,
		address, secretHash,
	)

	return wrapDBErr(op, err)
}

// Get retrieves an account's balance record.
func (r *AccountRepo) Get(ctx context.Context, address domain.Address) (*domain.Account, error) {
	const op = "postgres.AccountRepo.Get"

	db := r.handle()

	var a domain.Account
	err := db.QueryRow(ctx,
		`SELECT address, balance, created_at
       	 FROM accounts WHERE address = $1`,
		address,
	).Scan(&a.Address, &a.Balance, &a.CreatedAt)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &a, nil
}

// GetSecretHash returns the stored login secret hash for an address.
func (r *AccountRepo) GetSecretHash(ctx context.Context, address domain.Address) (string, error) {
	const op = "postgres.AccountRepo.GetSecretHash"

	db := r.handle()

	var hash string
	err := db.QueryRow(ctx,
		`SELECT secret_hash FROM accounts WHERE address = $1`,
		address,
	).Scan(&hash)
	if err != nil {
		return "", wrapDBErr(op, err)
	}

	return hash, nil
}

// Credit adds funds to an account, creating the balance row for derived
// addresses (events, treasury) on first use.
func (r *AccountRepo) Credit(ctx context.Context, address domain.Address, amount uint64) error {
	const op = "postgres.AccountRepo.Credit"

	db := r.handle()

	_, err := db.Exec(ctx,
		`INSERT INTO accounts(address, balance)
       	 VALUES ($1, $2)
      	 ON CONFLICT (address) DO UPDATE SET balance = accounts.balance + $2`,
		address, amount,
	)

	return wrapDBErr(op, err)
}

// Transfer is the custodial balance transfer primitive: it debits the
// source only when the funds cover the amount, then credits the
// destination. Both legs live inside the caller's transaction, so a
// failed second leg rolls back the first.
//
// Returns:
//   - error: repository.ErrInsufficientFunds if the source balance is short.
//   - error: repository.ErrNotFound if the source account does not exist.
func (r *AccountRepo) Transfer(ctx context.Context, from, to domain.Address, amount uint64) error {
	const op = "postgres.AccountRepo.Transfer"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE accounts
         SET balance = balance - $2
      	 WHERE address = $1 AND balance >= $2`,
		from, amount,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		var exists bool
		if err := db.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM accounts WHERE address = $1)`,
			from,
		).Scan(&exists); err != nil {
			return wrapDBErr(op, err)
		}

		if !exists {
			return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
		}

		return fmt.Errorf("%s:%w", op, repository.ErrInsufficientFunds)
	}

	return r.Credit(ctx, to, amount)
}
