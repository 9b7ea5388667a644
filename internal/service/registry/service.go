package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/hauslive/hausd/internal/domain"
	"github.com/hauslive/hausd/internal/keys"
	"github.com/hauslive/hausd/internal/repository"
	postgresrepo "github.com/hauslive/hausd/internal/repository/postgres"
	redisrepo "github.com/hauslive/hausd/internal/repository/redis"
	"github.com/hauslive/hausd/internal/uow"
)

// Service owns the platform registry singleton: authority, treasury,
// fee rate and the event-id counter. Id issuance itself happens inside
// the event-creation transaction, not through a separate call.
type Service struct {
	store *postgresrepo.Store
	cache *redisrepo.Cache
	uow   *uow.UoW
}

func New(store *postgresrepo.Store, cache *redisrepo.Cache) *Service {
	return &Service{
		store: store,
		cache: cache,
		uow:   uow.NewUoW(store),
	}
}

// Initialize creates the singleton with the caller as platform authority.
//
// Returns:
//   - *domain.Registry: the created registry.
//   - error: registry.ErrAlreadyInitialized if the singleton exists.
func (s *Service) Initialize(
	ctx context.Context,
	caller domain.Address,
	treasury domain.Address,
	feeRate uint64,
) (*domain.Registry, error) {
	const op = "service.registry.Initialize"

	reg := &domain.Registry{
		Address:      keys.Registry(),
		Authority:    caller,
		Treasury:     treasury,
		FeeRate:      feeRate,
		EventCounter: 0,
	}

	err := s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		if err := s.store.Registry().With(tx).Create(ctx, reg); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return fmt.Errorf("%s:%w", op, ErrAlreadyInitialized)
			}
			return fmt.Errorf("%s:%w", op, err)
		}

		// The treasury must be able to receive fee payouts even if it
		// never logged in.
		if err := s.store.Accounts().With(tx).Credit(ctx, treasury, 0); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		after(func(ctx context.Context) {
			_ = s.cache.InvalidateRegistry(ctx)
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	return reg, nil
}

// Get retrieves the registry singleton.
//
// Returns:
//   - error: registry.ErrNotInitialized if it was never created.
func (s *Service) Get(ctx context.Context) (*domain.Registry, error) {
	const op = "service.registry.Get"

	reg, err := s.store.Registry().Get(ctx, keys.Registry())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrNotInitialized)
		}

		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return reg, nil
}
