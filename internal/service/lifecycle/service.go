package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hauslive/hausd/internal/clock"
	"github.com/hauslive/hausd/internal/collectible"
	"github.com/hauslive/hausd/internal/domain"
	"github.com/hauslive/hausd/internal/keys"
	"github.com/hauslive/hausd/internal/repository"
	postgresrepo "github.com/hauslive/hausd/internal/repository/postgres"
	redisrepo "github.com/hauslive/hausd/internal/repository/redis"
	"github.com/hauslive/hausd/internal/uow"
)

// TicketLedger is the capability handed to the lifecycle manager for the
// cross-component call during event creation. It is scoped to inventory
// provisioning: nothing else of the ticket ledger is reachable here, and
// the call joins the creation transaction, so its failure aborts the
// whole operation.
type TicketLedger interface {
	InitializeInventory(ctx context.Context, tx postgresrepo.DB, event *domain.Event) error
}

type Config struct{}

// Service drives the event state machine from creation to the final
// payout fan-out.
type Service struct {
	store        *postgresrepo.Store
	cache        *redisrepo.Cache
	pubsub       *redisrepo.EventsPubSub
	issuer       collectible.Issuer
	ticketLedger TicketLedger
	clk          clock.Clock
	uow          *uow.UoW
	cfg          Config
}

func New(
	store *postgresrepo.Store,
	cache *redisrepo.Cache,
	pubsub *redisrepo.EventsPubSub,
	issuer collectible.Issuer,
	ticketLedger TicketLedger,
	clk clock.Clock,
	cfg Config,
) *Service {
	return &Service{
		store:        store,
		cache:        cache,
		pubsub:       pubsub,
		issuer:       issuer,
		ticketLedger: ticketLedger,
		clk:          clk,
		uow:          uow.NewUoW(store),
		cfg:          cfg,
	}
}

type CreateEventInput struct {
	Name          string
	Symbol        string
	URI           string
	Description   string
	Category      string
	InventorySize uint64
	UnitPrice     uint64
	SaleType      domain.SaleType
	ReservePrice  uint64
	StartTime     time.Time
	Duration      time.Duration
}

// CreateEvent allocates the next event id from the registry counter and
// creates the event record, its collectible and its ticket inventory in
// one transaction. Ids are dense from 0; the counter never decrements,
// and a failed creation leaves no trace because the allocation rolls
// back with everything else.
//
// Inputs are deliberately permissive: start times in the past and zero
// durations are accepted as given.
//
// Returns:
//   - *domain.Event: the created event.
//   - error: lifecycle.ErrRegistryNotInitialized if the registry singleton is missing.
//   - error: lifecycle.ErrUnknownSaleType for a sale type outside the known set.
func (s *Service) CreateEvent(
	ctx context.Context,
	creator domain.Address,
	in CreateEventInput,
) (*domain.Event, error) {
	const op = "service.lifecycle.CreateEvent"

	switch in.SaleType {
	case domain.SaleCumulativeTips, domain.SaleBlindAuction, domain.SaleQuadraticTipping:
	default:
		return nil, fmt.Errorf("%s:%w", op, ErrUnknownSaleType)
	}

	var event *domain.Event

	err := s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		regAddr := keys.Registry()

		if _, err := s.store.Registry().With(tx).Get(ctx, regAddr); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s:%w", op, ErrRegistryNotInitialized)
			}
			return fmt.Errorf("%s:%w", op, err)
		}

		id, err := s.store.Registry().With(tx).AllocateEventID(ctx, regAddr)
		if err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		addr := keys.Event(id)

		ev := &domain.Event{
			ID:            id,
			Address:       addr,
			Authority:     creator,
			Name:          in.Name,
			Description:   in.Description,
			Category:      in.Category,
			InventorySize: in.InventorySize,
			UnitPrice:     in.UnitPrice,
			SaleType:      in.SaleType,
			ReservePrice:  in.ReservePrice,
			StartTime:     in.StartTime,
			Duration:      in.Duration,
			HighestTipper: domain.NoAddress,
			Status:        domain.EventCreated,
		}

		// The event collectible: creator holds the single unit, the
		// event address is the update authority so AddContent can
		// rewrite the URI later.
		col, err := s.issuer.Issue(ctx, tx, collectible.IssueParams{
			Scope:           addr,
			Name:            in.Name,
			Symbol:          in.Symbol,
			URI:             in.URI,
			Creator:         creator,
			UpdateAuthority: addr,
			Owner:           creator,
		})
		if err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		ev.Mint = col.Mint
		ev.Metadata = col.MetadataAddress
		ev.MasterEdition = col.MasterEdition

		if err := s.store.Events().With(tx).Create(ctx, ev); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		// Open the event's custodial balance; only lifecycle logic ever
		// debits it.
		if err := s.store.Accounts().With(tx).Credit(ctx, addr, 0); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		if err := s.ticketLedger.InitializeInventory(ctx, tx, ev); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		event = ev

		after(func(ctx context.Context) {
			_ = s.cache.InvalidateEvent(ctx, ev.ID)
			_ = s.pubsub.PublishEventChanged(ctx, ev.ID)
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	return event, nil
}

// UpdateStatus advances the state machine: Created→Live once the start
// time passed, Live→Completed once the duration elapsed. Any other
// transition is rejected and leaves the event untouched.
//
// Returns:
//   - error: domain.ErrNotAuthority if the caller does not own the event.
//   - error: domain.ErrEventNotStarted, domain.ErrEventNotEnded,
//     domain.ErrInvalidStatusTransition on guard failures.
func (s *Service) UpdateStatus(
	ctx context.Context,
	caller domain.Address,
	eventID uint64,
	to domain.EventStatus,
) error {
	const op = "service.lifecycle.UpdateStatus"

	return s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		ev, err := s.store.Events().With(tx).GetForUpdate(ctx, eventID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s:%w", op, ErrEventNotFound)
			}
			return fmt.Errorf("%s:%w", op, err)
		}

		if ev.Authority != caller {
			return fmt.Errorf("%s:%w", op, domain.ErrNotAuthority)
		}

		if err := ev.ValidateTransition(to, s.clk.Now()); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		if err := s.store.Events().With(tx).UpdateStatus(ctx, eventID, to); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		after(func(ctx context.Context) {
			_ = s.cache.InvalidateEvent(ctx, eventID)
			_ = s.pubsub.PublishEventChanged(ctx, eventID)
		})

		return nil
	})
}

// AddContent updates the event collectible's metadata URI while the
// event is live or just completed. Status and financial fields stay
// untouched.
func (s *Service) AddContent(
	ctx context.Context,
	caller domain.Address,
	eventID uint64,
	contentURI string,
) error {
	const op = "service.lifecycle.AddContent"

	return s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		ev, err := s.store.Events().With(tx).GetForUpdate(ctx, eventID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s:%w", op, ErrEventNotFound)
			}
			return fmt.Errorf("%s:%w", op, err)
		}

		if ev.Authority != caller {
			return fmt.Errorf("%s:%w", op, domain.ErrNotAuthority)
		}

		if err := ev.ValidateAddContent(); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		// The event address is the collectible's update authority.
		if err := s.issuer.UpdateURI(ctx, tx, ev.Mint, ev.Address, contentURI); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		after(func(ctx context.Context) {
			_ = s.cache.InvalidateEvent(ctx, eventID)
			_ = s.pubsub.PublishEventChanged(ctx, eventID)
		})

		return nil
	})
}

// Finalize distributes the collected tips and hands the event collectible
// to the highest tipper, then seals the event. The fee split, both
// payouts and the collectible transfer commit together or not at all:
// there is no partial-payout state to recover from.
//
// Returns:
//   - *domain.Payout: the fee/artist amounts paid out.
//   - error: domain.ErrEventNotCompleted, domain.ErrNoTips on guard failures.
//   - error: domain.ErrCalculation if the fee math overflows.
func (s *Service) Finalize(
	ctx context.Context,
	caller domain.Address,
	eventID uint64,
) (*domain.Payout, error) {
	const op = "service.lifecycle.Finalize"

	var payout domain.Payout

	err := s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		reg, err := s.store.Registry().With(tx).Get(ctx, keys.Registry())
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s:%w", op, ErrRegistryNotInitialized)
			}
			return fmt.Errorf("%s:%w", op, err)
		}

		ev, err := s.store.Events().With(tx).GetForUpdate(ctx, eventID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s:%w", op, ErrEventNotFound)
			}
			return fmt.Errorf("%s:%w", op, err)
		}

		if ev.Authority != caller {
			return fmt.Errorf("%s:%w", op, domain.ErrNotAuthority)
		}

		if err := ev.ValidateFinalize(); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		p, err := ev.SplitTips(reg.FeeRate)
		if err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		accounts := s.store.Accounts().With(tx)

		if err := accounts.Transfer(ctx, ev.Address, reg.Treasury, p.FeeAmount); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		if err := accounts.Transfer(ctx, ev.Address, ev.Authority, p.ArtistAmount); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		if ev.HighestTipper != domain.NoAddress {
			if err := s.issuer.Transfer(ctx, tx, ev.Mint, ev.Authority, ev.HighestTipper); err != nil {
				return fmt.Errorf("%s:%w", op, err)
			}
		}

		if err := s.store.Events().With(tx).UpdateStatus(ctx, eventID, domain.EventFinalized); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		payout = p

		after(func(ctx context.Context) {
			_ = s.cache.InvalidateEvent(ctx, eventID)
			_ = s.pubsub.PublishEventChanged(ctx, eventID)
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &payout, nil
}
