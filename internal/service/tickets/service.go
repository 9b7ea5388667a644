package tickets

import (
	"context"
	"errors"
	"fmt"

	"github.com/hauslive/hausd/internal/clock"
	"github.com/hauslive/hausd/internal/collectible"
	"github.com/hauslive/hausd/internal/domain"
	"github.com/hauslive/hausd/internal/keys"
	"github.com/hauslive/hausd/internal/repository"
	postgresrepo "github.com/hauslive/hausd/internal/repository/postgres"
	redisrepo "github.com/hauslive/hausd/internal/repository/redis"
	"github.com/hauslive/hausd/internal/uow"
)

type Config struct {
	ContentBaseURI string
}

// Service is the per-event sales ledger: sequential ticket issuance,
// inventory accounting and the admission check.
type Service struct {
	store   *postgresrepo.Store
	cache   *redisrepo.Cache
	pubsub  *redisrepo.EventsPubSub
	issuer  collectible.Issuer
	limiter *redisrepo.SlidingWindowLimiter
	clk     clock.Clock
	uow     *uow.UoW
	cfg     Config
}

func New(
	store *postgresrepo.Store,
	cache *redisrepo.Cache,
	pubsub *redisrepo.EventsPubSub,
	issuer collectible.Issuer,
	limiter *redisrepo.SlidingWindowLimiter,
	clk clock.Clock,
	cfg Config,
) *Service {
	return &Service{
		store:   store,
		cache:   cache,
		pubsub:  pubsub,
		issuer:  issuer,
		limiter: limiter,
		clk:     clk,
		uow:     uow.NewUoW(store),
		cfg:     cfg,
	}
}

// InitializeInventory provisions the sales record for a freshly created
// event, inside the creation transaction. It is reached only through the
// lifecycle manager, never over the API.
func (s *Service) InitializeInventory(ctx context.Context, tx postgresrepo.DB, event *domain.Event) error {
	const op = "service.tickets.InitializeInventory"

	inv := &domain.TicketInventory{
		EventID:        event.ID,
		Authority:      event.Authority,
		InventorySize:  event.InventorySize,
		UnitPrice:      event.UnitPrice,
		TicketsSold:    0,
		TicketSequence: 0,
	}

	if err := s.store.Inventories().With(tx).Create(ctx, inv); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// BuyTicket sells the next sequential ticket to the buyer: the price
// moves from the buyer's balance into the event's custody, the counters
// advance, and the ticket collectible is issued to the buyer. All of it
// commits atomically, so an oversold or unpaid ticket cannot exist.
//
// rlKey scopes the rate limit, normally the buyer address.
//
// Returns:
//   - *domain.Ticket: the issued ticket.
//   - error: domain.ErrSoldOut once inventory is exhausted (size 0 is unlimited).
//   - error: domain.ErrEventAlreadyStarted after the start time.
//   - error: domain.ErrInsufficientPayment if the buyer's balance is short.
//   - error: tickets.ErrRateLimited when the purchase window is exceeded.
func (s *Service) BuyTicket(
	ctx context.Context,
	buyer domain.Address,
	eventID uint64,
	rlKey string,
) (*domain.Ticket, error) {
	const op = "service.tickets.BuyTicket"

	if s.limiter != nil && rlKey != "" {
		allowed, _, _, err := s.limiter.Allow(ctx, rlKey)
		if err == nil && !allowed {
			return nil, fmt.Errorf("%s:%w", op, ErrRateLimited)
		}
	}

	var ticket *domain.Ticket

	err := s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		ev, err := s.store.Events().With(tx).GetForUpdate(ctx, eventID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s:%w", op, ErrEventNotFound)
			}
			return fmt.Errorf("%s:%w", op, err)
		}

		inv, err := s.store.Inventories().With(tx).GetForUpdate(ctx, eventID)
		if err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		if err := ev.ValidateSale(s.clk.Now()); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		if err := s.store.Accounts().With(tx).Transfer(ctx, buyer, ev.Address, inv.UnitPrice); err != nil {
			if errors.Is(err, repository.ErrInsufficientFunds) {
				return fmt.Errorf("%s:%w", op, domain.ErrInsufficientPayment)
			}
			return fmt.Errorf("%s:%w", op, err)
		}

		seq := inv.NextTicketSeq()

		if err := s.store.Inventories().With(tx).UpdateCounters(ctx, eventID, inv.TicketsSold, inv.TicketSequence); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		if err := s.store.Events().With(tx).IncrementTicketsSold(ctx, eventID); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		addr := keys.Ticket(eventID, seq)

		col, err := s.issuer.Issue(ctx, tx, collectible.IssueParams{
			Scope:           addr,
			Name:            fmt.Sprintf("Ticket #%d for %s", seq, ev.Name),
			Symbol:          "TICKET",
			URI:             fmt.Sprintf("%s/tickets/%d/%d", s.cfg.ContentBaseURI, eventID, seq),
			Creator:         ev.Address,
			UpdateAuthority: ev.Address,
			Owner:           buyer,
		})
		if err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		t := &domain.Ticket{
			Address:       addr,
			EventID:       eventID,
			Seq:           seq,
			Owner:         buyer,
			Mint:          col.Mint,
			Metadata:      col.MetadataAddress,
			MasterEdition: col.MasterEdition,
		}

		if err := s.store.Tickets().With(tx).Create(ctx, t); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		ticket = t

		after(func(ctx context.Context) {
			_ = s.cache.InvalidateEvent(ctx, eventID)
			_ = s.pubsub.PublishEventChanged(ctx, eventID)
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	return ticket, nil
}

// VerifyTicket is the read-only admission check: the ticket must belong
// to the event, the caller must own it, and the event must be live.
// Nothing is written; verification can run any number of times.
func (s *Service) VerifyTicket(
	ctx context.Context,
	caller domain.Address,
	eventID uint64,
	ticketSeq uint64,
) error {
	const op = "service.tickets.VerifyTicket"

	ev, err := s.store.Events().Get(ctx, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%s:%w", op, ErrEventNotFound)
		}
		return fmt.Errorf("%s:%w", op, err)
	}

	t, err := s.store.Tickets().Get(ctx, eventID, ticketSeq)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%s:%w", op, ErrTicketNotFound)
		}
		return fmt.Errorf("%s:%w", op, err)
	}

	if err := ev.VerifyTicket(t, caller); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}
