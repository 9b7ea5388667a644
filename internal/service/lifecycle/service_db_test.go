package lifecycle_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/hauslive/hausd/internal/clock"
	"github.com/hauslive/hausd/internal/collectible"
	"github.com/hauslive/hausd/internal/domain"
	postgresrepo "github.com/hauslive/hausd/internal/repository/postgres"
	redisrepo "github.com/hauslive/hausd/internal/repository/redis"
	"github.com/hauslive/hausd/internal/service/lifecycle"
	"github.com/hauslive/hausd/internal/service/registry"
	"github.com/hauslive/hausd/internal/service/tickets"
	"github.com/hauslive/hausd/internal/service/tipping"
	"github.com/hauslive/hausd/internal/testutil"
)

// stepClock lets the test walk the event through its time gates.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

var _ clock.Clock = (*stepClock)(nil)

type fixture struct {
	store     *postgresrepo.Store
	clk       *stepClock
	registry  *registry.Service
	lifecycle *lifecycle.Service
	tickets   *tickets.Service
	tipping   *tipping.Service
}

func newFixture(t *testing.T, ctx context.Context) *fixture {
	t.Helper()

	pool := testutil.NewTestPool(t)
	testutil.ApplyMigrations(t, ctx, pool)
	testutil.TruncateAll(t, ctx, pool)

	store := postgresrepo.NewStore(pool)

	// Cache and pubsub failures are ignored by the after-commit hooks,
	// so a dead client address keeps the flow test Redis-free.
	rdb := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond})
	cache := redisrepo.New(rdb)
	pubsub := redisrepo.NewEventsPubSub(rdb)

	issuer := collectible.NewLedger(store)
	clk := &stepClock{now: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}

	ticketsSvc := tickets.New(store, cache, pubsub, issuer, nil, clk, tickets.Config{ContentBaseURI: "https://haus.test"})

	return &fixture{
		store:     store,
		clk:       clk,
		registry:  registry.New(store, cache),
		lifecycle: lifecycle.New(store, cache, pubsub, issuer, ticketsSvc, clk, lifecycle.Config{}),
		tickets:   ticketsSvc,
		tipping:   tipping.New(store, cache, pubsub, nil, clk),
	}
}

func (f *fixture) credit(t *testing.T, ctx context.Context, addr domain.Address, amount uint64) {
	t.Helper()
	if err := f.store.Accounts().Credit(ctx, addr, amount); err != nil {
		t.Fatalf("credit %s: %v", addr, err)
	}
}

func (f *fixture) balance(t *testing.T, ctx context.Context, addr domain.Address) uint64 {
	t.Helper()
	a, err := f.store.Accounts().Get(ctx, addr)
	if err != nil {
		t.Fatalf("get account %s: %v", addr, err)
	}
	return a.Balance
}

func baseEventInput(start time.Time) lifecycle.CreateEventInput {
	return lifecycle.CreateEventInput{
		Name:          "Night Session",
		Symbol:        "HAUS",
		URI:           "https://haus.test/events/meta",
		Description:   "late set",
		Category:      "music",
		InventorySize: 10,
		UnitPrice:     250,
		SaleType:      domain.SaleCumulativeTips,
		StartTime:     start,
		Duration:      2 * time.Hour,
	}
}

func TestEventLifecycleFlow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, ctx)

	const (
		artist   domain.Address = "artist"
		treasury domain.Address = "treasury"
		buyer    domain.Address = "buyer"
		alice    domain.Address = "alice"
		bob      domain.Address = "bob"
	)

	start := time.Date(2026, 8, 1, 20, 0, 0, 0, time.UTC)

	// Creation requires the registry singleton.
	if _, err := f.lifecycle.CreateEvent(ctx, artist, baseEventInput(start)); !errors.Is(err, lifecycle.ErrRegistryNotInitialized) {
		t.Fatalf("want ErrRegistryNotInitialized, got %v", err)
	}

	if _, err := f.registry.Initialize(ctx, "platform", treasury, 100); err != nil {
		t.Fatalf("initialize registry: %v", err)
	}
	if _, err := f.registry.Initialize(ctx, "platform", treasury, 100); !errors.Is(err, registry.ErrAlreadyInitialized) {
		t.Fatalf("want ErrAlreadyInitialized, got %v", err)
	}

	// Dense ids from zero.
	ev, err := f.lifecycle.CreateEvent(ctx, artist, baseEventInput(start))
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	if ev.ID != 0 {
		t.Fatalf("first event id = %d, want 0", ev.ID)
	}
	second, err := f.lifecycle.CreateEvent(ctx, artist, baseEventInput(start))
	if err != nil {
		t.Fatalf("create second event: %v", err)
	}
	if second.ID != 1 {
		t.Fatalf("second event id = %d, want 1", second.ID)
	}

	// Sales before the start time.
	f.credit(t, ctx, buyer, 1000)

	ticket, err := f.tickets.BuyTicket(ctx, buyer, ev.ID, "")
	if err != nil {
		t.Fatalf("buy ticket: %v", err)
	}
	if ticket.Seq != 0 {
		t.Fatalf("first ticket seq = %d, want 0", ticket.Seq)
	}
	if _, err := f.tickets.BuyTicket(ctx, buyer, ev.ID, ""); err != nil {
		t.Fatalf("buy second ticket: %v", err)
	}
	if got := f.balance(t, ctx, buyer); got != 500 {
		t.Fatalf("buyer balance = %d, want 500", got)
	}
	if got := f.balance(t, ctx, ev.Address); got != 500 {
		t.Fatalf("event custody = %d, want 500", got)
	}

	// Tipping requires a live event.
	f.credit(t, ctx, alice, 300)
	if _, err := f.tipping.TipCreator(ctx, alice, ev.ID, 300, ""); !errors.Is(err, domain.ErrEventNotLive) {
		t.Fatalf("want ErrEventNotLive before go-live, got %v", err)
	}

	// Go live; only the authority may drive the transition.
	f.clk.Set(start)
	if err := f.lifecycle.UpdateStatus(ctx, bob, ev.ID, domain.EventLive); !errors.Is(err, domain.ErrNotAuthority) {
		t.Fatalf("want ErrNotAuthority, got %v", err)
	}
	if err := f.lifecycle.UpdateStatus(ctx, artist, ev.ID, domain.EventLive); err != nil {
		t.Fatalf("go live: %v", err)
	}

	// Sales closed once started.
	if _, err := f.tickets.BuyTicket(ctx, buyer, ev.ID, ""); !errors.Is(err, domain.ErrEventAlreadyStarted) {
		t.Fatalf("want ErrEventAlreadyStarted, got %v", err)
	}

	// Admission check while live.
	if err := f.tickets.VerifyTicket(ctx, buyer, ev.ID, 0); err != nil {
		t.Fatalf("verify ticket: %v", err)
	}
	if err := f.tickets.VerifyTicket(ctx, bob, ev.ID, 0); !errors.Is(err, domain.ErrNotTicketOwner) {
		t.Fatalf("want ErrNotTicketOwner, got %v", err)
	}

	// Tips: equal amounts keep the earlier tipper in the lead.
	f.credit(t, ctx, bob, 300)
	if _, err := f.tipping.TipCreator(ctx, alice, ev.ID, 300, ""); err != nil {
		t.Fatalf("alice tip: %v", err)
	}
	if _, err := f.tipping.TipCreator(ctx, bob, ev.ID, 300, ""); err != nil {
		t.Fatalf("bob tip: %v", err)
	}
	if _, err := f.tipping.TipCreator(ctx, alice, ev.ID, 1, ""); !errors.Is(err, tipping.ErrAlreadyTipped) {
		t.Fatalf("want ErrAlreadyTipped, got %v", err)
	}

	tipped, err := f.store.Events().Get(ctx, ev.ID)
	if err != nil {
		t.Fatalf("reload event: %v", err)
	}
	if tipped.TotalTips != 600 {
		t.Fatalf("total tips = %d, want 600", tipped.TotalTips)
	}
	if tipped.HighestTipper != alice {
		t.Fatalf("highest tipper = %s, want alice on a tie", tipped.HighestTipper)
	}

	// Finalize is gated on completion.
	if _, err := f.lifecycle.Finalize(ctx, artist, ev.ID); !errors.Is(err, domain.ErrEventNotCompleted) {
		t.Fatalf("want ErrEventNotCompleted, got %v", err)
	}

	f.clk.Set(start.Add(2 * time.Hour))
	if err := f.lifecycle.UpdateStatus(ctx, artist, ev.ID, domain.EventCompleted); err != nil {
		t.Fatalf("complete: %v", err)
	}

	payout, err := f.lifecycle.Finalize(ctx, artist, ev.ID)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if payout.FeeAmount != 60 || payout.ArtistAmount != 540 {
		t.Fatalf("payout = %d/%d, want 60/540", payout.FeeAmount, payout.ArtistAmount)
	}
	if got := f.balance(t, ctx, treasury); got != 60 {
		t.Fatalf("treasury balance = %d, want 60", got)
	}
	if got := f.balance(t, ctx, artist); got != 540 {
		t.Fatalf("artist balance = %d, want 540", got)
	}
	// Ticket revenue stays in custody; only tips are distributed.
	if got := f.balance(t, ctx, ev.Address); got != 500 {
		t.Fatalf("event custody after finalize = %d, want 500", got)
	}

	// The event collectible went to the highest tipper.
	col, err := f.store.Collectibles().Get(ctx, tipped.Mint)
	if err != nil {
		t.Fatalf("get collectible: %v", err)
	}
	if col.Owner != alice {
		t.Fatalf("collectible owner = %s, want alice", col.Owner)
	}

	final, err := f.store.Events().Get(ctx, ev.ID)
	if err != nil {
		t.Fatalf("reload event: %v", err)
	}
	if final.Status != domain.EventFinalized {
		t.Fatalf("status = %s, want finalized", final.Status)
	}

	// A finalized event cannot be finalized again.
	if _, err := f.lifecycle.Finalize(ctx, artist, ev.ID); !errors.Is(err, domain.ErrEventNotCompleted) {
		t.Fatalf("want ErrEventNotCompleted on repeat finalize, got %v", err)
	}
}

func TestBuyTicketSoldOut(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, ctx)

	if _, err := f.registry.Initialize(ctx, "platform", "treasury", 100); err != nil {
		t.Fatalf("initialize registry: %v", err)
	}

	start := time.Date(2026, 8, 1, 20, 0, 0, 0, time.UTC)
	in := baseEventInput(start)
	in.InventorySize = 1

	ev, err := f.lifecycle.CreateEvent(ctx, "artist", in)
	if err != nil {
		t.Fatalf("create event: %v", err)
	}

	f.credit(t, ctx, "buyer", 1000)

	if _, err := f.tickets.BuyTicket(ctx, "buyer", ev.ID, ""); err != nil {
		t.Fatalf("buy ticket: %v", err)
	}
	if _, err := f.tickets.BuyTicket(ctx, "buyer", ev.ID, ""); !errors.Is(err, domain.ErrSoldOut) {
		t.Fatalf("want ErrSoldOut, got %v", err)
	}
}

func TestBuyTicketInsufficientBalance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, ctx)

	if _, err := f.registry.Initialize(ctx, "platform", "treasury", 100); err != nil {
		t.Fatalf("initialize registry: %v", err)
	}

	start := time.Date(2026, 8, 1, 20, 0, 0, 0, time.UTC)
	ev, err := f.lifecycle.CreateEvent(ctx, "artist", baseEventInput(start))
	if err != nil {
		t.Fatalf("create event: %v", err)
	}

	f.credit(t, ctx, "poor", 100)

	if _, err := f.tickets.BuyTicket(ctx, "poor", ev.ID, ""); !errors.Is(err, domain.ErrInsufficientPayment) {
		t.Fatalf("want ErrInsufficientPayment, got %v", err)
	}
	if got := f.balance(t, ctx, "poor"); got != 100 {
		t.Fatalf("failed purchase must not move funds, balance = %d", got)
	}
}

func TestFinalizeWithoutTips(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, ctx)

	if _, err := f.registry.Initialize(ctx, "platform", "treasury", 100); err != nil {
		t.Fatalf("initialize registry: %v", err)
	}

	start := time.Date(2026, 8, 1, 20, 0, 0, 0, time.UTC)
	ev, err := f.lifecycle.CreateEvent(ctx, "artist", baseEventInput(start))
	if err != nil {
		t.Fatalf("create event: %v", err)
	}

	f.clk.Set(start)
	if err := f.lifecycle.UpdateStatus(ctx, "artist", ev.ID, domain.EventLive); err != nil {
		t.Fatalf("go live: %v", err)
	}
	f.clk.Set(start.Add(2 * time.Hour))
	if err := f.lifecycle.UpdateStatus(ctx, "artist", ev.ID, domain.EventCompleted); err != nil {
		t.Fatalf("complete: %v", err)
	}

	if _, err := f.lifecycle.Finalize(ctx, "artist", ev.ID); !errors.Is(err, domain.ErrNoTips) {
		t.Fatalf("want ErrNoTips, got %v", err)
	}
}
