package domain

import (
	"errors"
	"math"
	"testing"
	"time"
)

func liveEvent() *Event {
	return &Event{
		ID:            7,
		Address:       "event-addr",
		Authority:     "artist",
		Status:        EventLive,
		StartTime:     time.Date(2026, 8, 1, 20, 0, 0, 0, time.UTC),
		Duration:      2 * time.Hour,
		HighestTipper: NoAddress,
	}
}

func TestValidateTransition(t *testing.T) {
	start := time.Date(2026, 8, 1, 20, 0, 0, 0, time.UTC)

	t.Run("created to live after start", func(t *testing.T) {
		e := &Event{Status: EventCreated, StartTime: start, Duration: time.Hour}
		if err := e.ValidateTransition(EventLive, start.Add(time.Minute)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("created to live at exact start", func(t *testing.T) {
		e := &Event{Status: EventCreated, StartTime: start, Duration: time.Hour}
		if err := e.ValidateTransition(EventLive, start); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("created to live before start", func(t *testing.T) {
		e := &Event{Status: EventCreated, StartTime: start, Duration: time.Hour}
		err := e.ValidateTransition(EventLive, start.Add(-time.Second))
		if !errors.Is(err, ErrEventNotStarted) {
			t.Fatalf("want ErrEventNotStarted, got %v", err)
		}
	})

	t.Run("live to completed after end", func(t *testing.T) {
		e := &Event{Status: EventLive, StartTime: start, Duration: time.Hour}
		if err := e.ValidateTransition(EventCompleted, start.Add(time.Hour)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("live to completed before end", func(t *testing.T) {
		e := &Event{Status: EventLive, StartTime: start, Duration: time.Hour}
		err := e.ValidateTransition(EventCompleted, start.Add(59*time.Minute))
		if !errors.Is(err, ErrEventNotEnded) {
			t.Fatalf("want ErrEventNotEnded, got %v", err)
		}
	})

	t.Run("all other transitions rejected", func(t *testing.T) {
		cases := []struct {
			from EventStatus
			to   EventStatus
		}{
			{EventCreated, EventCompleted},
			{EventCreated, EventFinalized},
			{EventCreated, EventCreated},
			{EventLive, EventCreated},
			{EventLive, EventFinalized},
			{EventCompleted, EventCreated},
			{EventCompleted, EventLive},
			{EventCompleted, EventFinalized},
			{EventFinalized, EventLive},
			{EventFinalized, EventCompleted},
		}

		for _, tc := range cases {
			e := &Event{Status: tc.from, StartTime: start, Duration: time.Hour}
			err := e.ValidateTransition(tc.to, start.Add(24*time.Hour))
			if !errors.Is(err, ErrInvalidStatusTransition) {
				t.Fatalf("%s->%s: want ErrInvalidStatusTransition, got %v", tc.from, tc.to, err)
			}
		}
	})
}

func TestValidateAddContent(t *testing.T) {
	for _, tc := range []struct {
		status EventStatus
		ok     bool
	}{
		{EventCreated, false},
		{EventLive, true},
		{EventCompleted, true},
		{EventFinalized, false},
	} {
		e := &Event{Status: tc.status}
		err := e.ValidateAddContent()
		if tc.ok && err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.status, err)
		}
		if !tc.ok && !errors.Is(err, ErrCannotAddContent) {
			t.Fatalf("%s: want ErrCannotAddContent, got %v", tc.status, err)
		}
	}
}

func TestValidateSale(t *testing.T) {
	start := time.Date(2026, 8, 1, 20, 0, 0, 0, time.UTC)
	before := start.Add(-time.Minute)

	t.Run("inventory left", func(t *testing.T) {
		e := &Event{InventorySize: 3, TicketsSold: 2, StartTime: start}
		if err := e.ValidateSale(before); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("sold out at capacity", func(t *testing.T) {
		e := &Event{InventorySize: 3, TicketsSold: 3, StartTime: start}
		if !errors.Is(e.ValidateSale(before), ErrSoldOut) {
			t.Fatal("want ErrSoldOut")
		}
	})

	t.Run("zero inventory size is unlimited", func(t *testing.T) {
		e := &Event{InventorySize: 0, TicketsSold: 1_000_000, StartTime: start}
		if err := e.ValidateSale(before); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("sales close at start time", func(t *testing.T) {
		e := &Event{InventorySize: 0, StartTime: start}
		if !errors.Is(e.ValidateSale(start), ErrEventAlreadyStarted) {
			t.Fatal("want ErrEventAlreadyStarted at exact start")
		}
		if !errors.Is(e.ValidateSale(start.Add(time.Minute)), ErrEventAlreadyStarted) {
			t.Fatal("want ErrEventAlreadyStarted after start")
		}
	})
}

func TestApplyTip(t *testing.T) {
	t.Run("accumulates totals", func(t *testing.T) {
		e := liveEvent()
		if err := e.ApplyTip("alice", 100); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := e.ApplyTip("bob", 50); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if e.TotalTips != 150 {
			t.Fatalf("TotalTips = %d, want 150", e.TotalTips)
		}
	})

	t.Run("higher tip takes the lead", func(t *testing.T) {
		e := liveEvent()
		_ = e.ApplyTip("alice", 100)
		_ = e.ApplyTip("bob", 200)
		if e.HighestTipper != "bob" || e.HighestTipAmount != 200 {
			t.Fatalf("leader = %s/%d, want bob/200", e.HighestTipper, e.HighestTipAmount)
		}
	})

	t.Run("equal tip keeps earlier tipper", func(t *testing.T) {
		e := liveEvent()
		_ = e.ApplyTip("alice", 100)
		_ = e.ApplyTip("bob", 100)
		if e.HighestTipper != "alice" {
			t.Fatalf("leader = %s, want alice to keep the lead on a tie", e.HighestTipper)
		}
	})

	t.Run("rejected outside live", func(t *testing.T) {
		for _, status := range []EventStatus{EventCreated, EventCompleted, EventFinalized} {
			e := liveEvent()
			e.Status = status
			if !errors.Is(e.ApplyTip("alice", 10), ErrEventNotLive) {
				t.Fatalf("%s: want ErrEventNotLive", status)
			}
			if e.TotalTips != 0 {
				t.Fatalf("%s: counters must stay untouched", status)
			}
		}
	})

	t.Run("overflow leaves counters untouched", func(t *testing.T) {
		e := liveEvent()
		e.TotalTips = math.MaxUint64 - 5
		err := e.ApplyTip("alice", 10)
		if !errors.Is(err, ErrCalculation) {
			t.Fatalf("want ErrCalculation, got %v", err)
		}
		if e.TotalTips != math.MaxUint64-5 || e.HighestTipper != NoAddress {
			t.Fatal("counters must stay untouched on overflow")
		}
	})
}

func TestValidateFinalize(t *testing.T) {
	t.Run("completed with tips", func(t *testing.T) {
		e := &Event{Status: EventCompleted, TotalTips: 1}
		if err := e.ValidateFinalize(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("not completed", func(t *testing.T) {
		for _, status := range []EventStatus{EventCreated, EventLive, EventFinalized} {
			e := &Event{Status: status, TotalTips: 1}
			if !errors.Is(e.ValidateFinalize(), ErrEventNotCompleted) {
				t.Fatalf("%s: want ErrEventNotCompleted", status)
			}
		}
	})

	t.Run("no tips", func(t *testing.T) {
		e := &Event{Status: EventCompleted, TotalTips: 0}
		if !errors.Is(e.ValidateFinalize(), ErrNoTips) {
			t.Fatal("want ErrNoTips")
		}
	})
}

func TestSplitTips(t *testing.T) {
	t.Run("fee is floored, artist gets exact remainder", func(t *testing.T) {
		cases := []struct {
			total   uint64
			feeRate uint64
			fee     uint64
			artist  uint64
		}{
			{3200, 100, 320, 2880},
			{999, 100, 99, 900},
			{1, 100, 0, 1},
			{1000, 0, 0, 1000},
			{1000, 1000, 1000, 0},
			{12345, 25, 308, 12037},
		}

		for _, tc := range cases {
			e := &Event{TotalTips: tc.total}
			p, err := e.SplitTips(tc.feeRate)
			if err != nil {
				t.Fatalf("total=%d rate=%d: unexpected error: %v", tc.total, tc.feeRate, err)
			}
			if p.FeeAmount != tc.fee || p.ArtistAmount != tc.artist {
				t.Fatalf("total=%d rate=%d: got %d/%d, want %d/%d",
					tc.total, tc.feeRate, p.FeeAmount, p.ArtistAmount, tc.fee, tc.artist)
			}
			if p.FeeAmount+p.ArtistAmount != tc.total {
				t.Fatalf("total=%d rate=%d: split does not conserve the total", tc.total, tc.feeRate)
			}
		}
	})

	t.Run("multiplication overflow", func(t *testing.T) {
		e := &Event{TotalTips: math.MaxUint64}
		if _, err := e.SplitTips(2); !errors.Is(err, ErrCalculation) {
			t.Fatalf("want ErrCalculation, got %v", err)
		}
	})
}

func TestVerifyTicket(t *testing.T) {
	e := liveEvent()
	ticket := &Ticket{EventID: e.ID, Seq: 0, Owner: "alice"}

	t.Run("valid", func(t *testing.T) {
		if err := e.VerifyTicket(ticket, "alice"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("wrong event", func(t *testing.T) {
		other := &Ticket{EventID: e.ID + 1, Owner: "alice"}
		if !errors.Is(e.VerifyTicket(other, "alice"), ErrInvalidTicket) {
			t.Fatal("want ErrInvalidTicket")
		}
	})

	t.Run("wrong owner", func(t *testing.T) {
		if !errors.Is(e.VerifyTicket(ticket, "bob"), ErrNotTicketOwner) {
			t.Fatal("want ErrNotTicketOwner")
		}
	})

	t.Run("not live", func(t *testing.T) {
		done := liveEvent()
		done.Status = EventCompleted
		if !errors.Is(done.VerifyTicket(ticket, "alice"), ErrEventNotLive) {
			t.Fatal("want ErrEventNotLive")
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			if err := e.VerifyTicket(ticket, "alice"); err != nil {
				t.Fatalf("check %d: unexpected error: %v", i, err)
			}
		}
	})
}

func TestNextTicketSeq(t *testing.T) {
	inv := &TicketInventory{}

	for want := uint64(0); want < 5; want++ {
		got := inv.NextTicketSeq()
		if got != want {
			t.Fatalf("seq = %d, want %d", got, want)
		}
		if inv.TicketSequence != inv.TicketsSold {
			t.Fatalf("sequence %d drifted from sold %d", inv.TicketSequence, inv.TicketsSold)
		}
	}
}

func TestCheckedMath(t *testing.T) {
	t.Run("add overflow", func(t *testing.T) {
		if _, err := CheckedAdd(math.MaxUint64, 1); !errors.Is(err, ErrCalculation) {
			t.Fatal("want ErrCalculation")
		}
		if v, err := CheckedAdd(math.MaxUint64-1, 1); err != nil || v != math.MaxUint64 {
			t.Fatalf("got %d, %v", v, err)
		}
	})

	t.Run("sub underflow", func(t *testing.T) {
		if _, err := CheckedSub(0, 1); !errors.Is(err, ErrCalculation) {
			t.Fatal("want ErrCalculation")
		}
		if v, err := CheckedSub(5, 5); err != nil || v != 0 {
			t.Fatalf("got %d, %v", v, err)
		}
	})

	t.Run("mul overflow", func(t *testing.T) {
		if _, err := CheckedMul(math.MaxUint64, 2); !errors.Is(err, ErrCalculation) {
			t.Fatal("want ErrCalculation")
		}
		if v, err := CheckedMul(0, math.MaxUint64); err != nil || v != 0 {
			t.Fatalf("got %d, %v", v, err)
		}
	})
}
