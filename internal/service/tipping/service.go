package tipping

import (
	"context"
	"errors"
	"fmt"

	"github.com/hauslive/hausd/internal/clock"
	"github.com/hauslive/hausd/internal/domain"
	"github.com/hauslive/hausd/internal/keys"
	"github.com/hauslive/hausd/internal/repository"
	postgresrepo "github.com/hauslive/hausd/internal/repository/postgres"
	redisrepo "github.com/hauslive/hausd/internal/repository/redis"
	"github.com/hauslive/hausd/internal/uow"
)

// Service is the tipping ledger: one tip per tipper per event, funds
// held in the event's custody until finalize.
type Service struct {
	store   *postgresrepo.Store
	cache   *redisrepo.Cache
	pubsub  *redisrepo.EventsPubSub
	limiter *redisrepo.SlidingWindowLimiter
	clk     clock.Clock
	uow     *uow.UoW
}

func New(
	store *postgresrepo.Store,
	cache *redisrepo.Cache,
	pubsub *redisrepo.EventsPubSub,
	limiter *redisrepo.SlidingWindowLimiter,
	clk clock.Clock,
) *Service {
	return &Service{
		store:   store,
		cache:   cache,
		pubsub:  pubsub,
		limiter: limiter,
		clk:     clk,
		uow:     uow.NewUoW(store),
	}
}

// TipCreator records a tip against a live event. The amount moves into
// the event's custody, the running total grows with checked addition,
// and the highest-tipper slot moves only on a strictly greater amount,
// so equal bids keep the earlier tipper. The payment and the counter
// update share one serializable transaction: concurrent tips cannot
// lose each other's totals.
//
// Returns:
//   - *domain.Tip: the recorded tip.
//   - error: tipping.ErrAlreadyTipped on a second tip for the same event.
//   - error: domain.ErrEventNotLive outside the live window.
//   - error: domain.ErrInsufficientPayment if the tipper's balance is short.
//   - error: domain.ErrCalculation if the running total would overflow.
func (s *Service) TipCreator(
	ctx context.Context,
	tipper domain.Address,
	eventID uint64,
	amount uint64,
	rlKey string,
) (*domain.Tip, error) {
	const op = "service.tipping.TipCreator"

	if amount == 0 {
		return nil, fmt.Errorf("%s:%w", op, ErrZeroTip)
	}

	if s.limiter != nil && rlKey != "" {
		allowed, _, _, err := s.limiter.Allow(ctx, rlKey)
		if err == nil && !allowed {
			return nil, fmt.Errorf("%s:%w", op, ErrRateLimited)
		}
	}

	var tip *domain.Tip

	err := s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		ev, err := s.store.Events().With(tx).GetForUpdate(ctx, eventID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s:%w", op, ErrEventNotFound)
			}
			return fmt.Errorf("%s:%w", op, err)
		}

		// Counter math first: a rejected tip must not move any funds.
		if err := ev.ApplyTip(tipper, amount); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		if err := s.store.Accounts().With(tx).Transfer(ctx, tipper, ev.Address, amount); err != nil {
			if errors.Is(err, repository.ErrInsufficientFunds) {
				return fmt.Errorf("%s:%w", op, domain.ErrInsufficientPayment)
			}
			return fmt.Errorf("%s:%w", op, err)
		}

		t := &domain.Tip{
			Address:  keys.Tip(eventID, tipper),
			EventID:  eventID,
			Tipper:   tipper,
			Amount:   amount,
			TippedAt: s.clk.Now(),
		}

		if err := s.store.Tips().With(tx).Create(ctx, t); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return fmt.Errorf("%s:%w", op, ErrAlreadyTipped)
			}
			return fmt.Errorf("%s:%w", op, err)
		}

		if err := s.store.Events().With(tx).UpdateTips(ctx, eventID, ev.TotalTips, ev.HighestTipper, ev.HighestTipAmount); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		tip = t

		after(func(ctx context.Context) {
			_ = s.cache.InvalidateEvent(ctx, eventID)
			_ = s.pubsub.PublishEventChanged(ctx, eventID)
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	return tip, nil
}
