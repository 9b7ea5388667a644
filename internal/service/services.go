package service

import (
	"github.com/hauslive/hausd/internal/clock"
	"github.com/hauslive/hausd/internal/collectible"
	postgres "github.com/hauslive/hausd/internal/repository/postgres"
	redis "github.com/hauslive/hausd/internal/repository/redis"
	"github.com/hauslive/hausd/internal/service/accounts"
	"github.com/hauslive/hausd/internal/service/lifecycle"
	"github.com/hauslive/hausd/internal/service/query"
	"github.com/hauslive/hausd/internal/service/registry"
	"github.com/hauslive/hausd/internal/service/tickets"
	"github.com/hauslive/hausd/internal/service/tipping"
)

type Services struct {
	Registry  *registry.Service
	Lifecycle *lifecycle.Service
	Tickets   *tickets.Service
	Tipping   *tipping.Service
	Accounts  *accounts.Service
	Query     *query.Service
}

type Config struct {
	Lifecycle lifecycle.Config
	Tickets   tickets.Config
	Accounts  accounts.Config
	Query     query.Config
}

func NewServices(
	store *postgres.Store,
	cache *redis.Cache,
	pubsub *redis.EventsPubSub,
	limiter *redis.SlidingWindowLimiter,
	issuer collectible.Issuer,
	clk clock.Clock,
	cfg Config,
) *Services {
	// The ticket ledger doubles as the lifecycle manager's inventory
	// provisioner, so it is wired first.
	ticketsSvc := tickets.New(store, cache, pubsub, issuer, limiter, clk, cfg.Tickets)

	return &Services{
		Registry:  registry.New(store, cache),
		Lifecycle: lifecycle.New(store, cache, pubsub, issuer, ticketsSvc, clk, cfg.Lifecycle),
		Tickets:   ticketsSvc,
		Tipping:   tipping.New(store, cache, pubsub, limiter, clk),
		Accounts:  accounts.New(store, clk, cfg.Accounts),
		Query:     query.New(store, cache, cfg.Query),
	}
}
