// Package query is the read side: cached single-record lookups and the
// paginated listings. It never writes through to Postgres; the mutating
// services invalidate its keys after commit.
package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hauslive/hausd/internal/domain"
	"github.com/hauslive/hausd/internal/keys"
	"github.com/hauslive/hausd/internal/repository"
	postgresrepo "github.com/hauslive/hausd/internal/repository/postgres"
	redisrepo "github.com/hauslive/hausd/internal/repository/redis"
)

type Config struct {
	EventTTL    time.Duration
	RegistryTTL time.Duration
	TipsTTL     time.Duration
	MaxPageSize int
}

func (c *Config) defaults() {
	if c.EventTTL <= 0 {
		c.EventTTL = 15 * time.Second
	}
	if c.RegistryTTL <= 0 {
		c.RegistryTTL = time.Minute
	}
	if c.TipsTTL <= 0 {
		c.TipsTTL = 5 * time.Second
	}
	if c.MaxPageSize <= 0 {
		c.MaxPageSize = 100
	}
}

type Service struct {
	store *postgresrepo.Store
	cache *redisrepo.Cache
	cfg   Config
}

func New(store *postgresrepo.Store, cache *redisrepo.Cache, cfg Config) *Service {
	cfg.defaults()

	return &Service{store: store, cache: cache, cfg: cfg}
}

func (s *Service) clampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > s.cfg.MaxPageSize {
		limit = s.cfg.MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// GetEvent returns an event, served from cache when fresh.
func (s *Service) GetEvent(ctx context.Context, id uint64) (*domain.Event, error) {
	const op = "service.query.GetEvent"

	ev, err := redisrepo.GetOrSetJSON(ctx, s.cache, redisrepo.KeyEventSummary(id), s.cfg.EventTTL,
		func(ctx context.Context) (*domain.Event, error) {
			return s.store.Events().Get(ctx, id)
		},
	)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrEventNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return ev, nil
}

// GetRegistry returns the platform registry, served from cache.
func (s *Service) GetRegistry(ctx context.Context) (*domain.Registry, error) {
	const op = "service.query.GetRegistry"

	reg, err := redisrepo.GetOrSetJSON(ctx, s.cache, redisrepo.KeyRegistry(), s.cfg.RegistryTTL,
		func(ctx context.Context) (*domain.Registry, error) {
			return s.store.Registry().Get(ctx, keys.Registry())
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return reg, nil
}

// ListEvents returns a page of events ordered by start time.
func (s *Service) ListEvents(ctx context.Context, limit, offset int) ([]domain.Event, error) {
	const op = "service.query.ListEvents"

	limit, offset = s.clampPage(limit, offset)

	out, err := s.store.Events().List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// ListTips returns the tip leaderboard for an event, largest tip first
// and the earlier tip winning ties. The first page is cached because it
// is the hot read during a live event.
func (s *Service) ListTips(ctx context.Context, eventID uint64, limit, offset int) ([]domain.Tip, error) {
	const op = "service.query.ListTips"

	limit, offset = s.clampPage(limit, offset)

	if offset == 0 && limit == s.cfg.MaxPageSize {
		tips, err := redisrepo.GetOrSetJSON(ctx, s.cache, redisrepo.KeyEventTips(eventID), s.cfg.TipsTTL,
			func(ctx context.Context) ([]domain.Tip, error) {
				return s.store.Tips().ListByEvent(ctx, eventID, limit, offset)
			},
		)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		return tips, nil
	}

	tips, err := s.store.Tips().ListByEvent(ctx, eventID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return tips, nil
}

// GetTicket returns a single ticket by event id and sequence.
func (s *Service) GetTicket(ctx context.Context, eventID, seq uint64) (*domain.Ticket, error) {
	const op = "service.query.GetTicket"

	t, err := s.store.Tickets().Get(ctx, eventID, seq)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrTicketNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return t, nil
}

// ListTicketsByOwner returns the caller's tickets, newest first.
func (s *Service) ListTicketsByOwner(ctx context.Context, owner domain.Address, limit, offset int) ([]domain.Ticket, error) {
	const op = "service.query.ListTicketsByOwner"

	limit, offset = s.clampPage(limit, offset)

	out, err := s.store.Tickets().ListByOwner(ctx, owner, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}
