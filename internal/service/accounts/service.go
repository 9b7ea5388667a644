// Package accounts is the custodial identity boundary. It turns a login
// secret into a derived address with a balance; everything past this
// boundary deals in addresses only.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hauslive/hausd/internal/clock"
	"github.com/hauslive/hausd/internal/domain"
	"github.com/hauslive/hausd/internal/keys"
	"github.com/hauslive/hausd/internal/repository"
	postgresrepo "github.com/hauslive/hausd/internal/repository/postgres"
)

type Config struct {
	JWTSecret string
	TokenTTL  time.Duration
}

type Service struct {
	store     *postgresrepo.Store
	clk       clock.Clock
	jwtSecret []byte
	tokenTTL  time.Duration
}

func New(store *postgresrepo.Store, clk clock.Clock, cfg Config) *Service {
	return &Service{
		store:     store,
		clk:       clk,
		jwtSecret: []byte(cfg.JWTSecret),
		tokenTTL:  cfg.TokenTTL,
	}
}

// Register creates an account with a fresh derived address and a
// bcrypt-hashed secret, and returns a signed token for it.
func (s *Service) Register(ctx context.Context, secret string) (domain.Address, string, error) {
	const op = "service.accounts.Register"

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return domain.NoAddress, "", fmt.Errorf("%s:%w", op, err)
	}

	seed := uuid.New()
	address := keys.Account(seed[:])

	if err := s.store.Accounts().Create(ctx, address, string(hash)); err != nil {
		return domain.NoAddress, "", fmt.Errorf("%s:%w", op, err)
	}

	token, err := s.signToken(address, s.clk.Now())
	if err != nil {
		return domain.NoAddress, "", fmt.Errorf("%s:%w", op, err)
	}

	return address, token, nil
}

// Login verifies the secret for an address and issues a token.
//
// Returns:
//   - error: accounts.ErrInvalidCredentials for a wrong secret or an
//     unknown address; the two are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, address domain.Address, secret string) (string, error) {
	const op = "service.accounts.Login"

	hash, err := s.store.Accounts().GetSecretHash(ctx, address)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", fmt.Errorf("%s:%w", op, ErrInvalidCredentials)
		}
		return "", fmt.Errorf("%s:%w", op, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)); err != nil {
		return "", fmt.Errorf("%s:%w", op, ErrInvalidCredentials)
	}

	token, err := s.signToken(address, s.clk.Now())
	if err != nil {
		return "", fmt.Errorf("%s:%w", op, err)
	}

	return token, nil
}

// Deposit credits the caller's own balance. Funding is custodial and
// external settlement is out of scope, so the credit is unconditional.
func (s *Service) Deposit(ctx context.Context, caller domain.Address, amount uint64) (*domain.Account, error) {
	const op = "service.accounts.Deposit"

	if amount == 0 {
		return nil, fmt.Errorf("%s:%w", op, ErrZeroDeposit)
	}

	if err := s.store.Accounts().Credit(ctx, caller, amount); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return s.Get(ctx, caller)
}

// Get retrieves an account's balance record.
func (s *Service) Get(ctx context.Context, address domain.Address) (*domain.Account, error) {
	const op = "service.accounts.Get"

	a, err := s.store.Accounts().Get(ctx, address)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrAccountNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return a, nil
}
