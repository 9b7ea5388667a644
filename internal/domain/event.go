package domain

import (
	"errors"
	"math"
	"time"
)

var (
	ErrEventNotStarted         = errors.New("event has not started yet")
	ErrEventNotEnded           = errors.New("event has not ended yet")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrCannotAddContent        = errors.New("cannot add content in current status")
	ErrEventNotCompleted       = errors.New("event is not completed")
	ErrNoTips                  = errors.New("no tips received for this event")
	ErrSoldOut                 = errors.New("sold out")
	ErrEventAlreadyStarted     = errors.New("event has already started")
	ErrEventNotLive            = errors.New("event is not live")
	ErrInvalidTicket           = errors.New("invalid ticket")
	ErrNotTicketOwner          = errors.New("not ticket owner")
	ErrInsufficientPayment     = errors.New("insufficient payment")
	ErrCalculation             = errors.New("calculation error")
	ErrNotAuthority            = errors.New("caller is not the authority")
)

// EndTime is the instant after which a live event may be completed.
func (e *Event) EndTime() time.Time {
	return e.StartTime.Add(e.Duration)
}

// ValidateTransition checks the status state machine. Only Created→Live and
// Live→Completed are reachable here; Finalized is entered by Finalize alone.
func (e *Event) ValidateTransition(to EventStatus, now time.Time) error {
	switch {
	case e.Status == EventCreated && to == EventLive:
		if now.Before(e.StartTime) {
			return ErrEventNotStarted
		}
	case e.Status == EventLive && to == EventCompleted:
		if now.Before(e.EndTime()) {
			return ErrEventNotEnded
		}
	default:
		return ErrInvalidStatusTransition
	}

	return nil
}

// ValidateAddContent allows content updates only while the event is
// running or just finished.
func (e *Event) ValidateAddContent() error {
	if e.Status != EventLive && e.Status != EventCompleted {
		return ErrCannotAddContent
	}

	return nil
}

// ValidateSale guards a ticket purchase: inventory left (size 0 is
// unlimited) and the event not yet started.
func (e *Event) ValidateSale(now time.Time) error {
	if e.InventorySize != 0 && e.TicketsSold >= e.InventorySize {
		return ErrSoldOut
	}

	if !now.Before(e.StartTime) {
		return ErrEventAlreadyStarted
	}

	return nil
}

// ApplyTip accumulates a tip into the event counters. TotalTips uses
// checked addition; the highest tipper moves only on a strictly greater
// amount, so ties keep the earlier tipper.
func (e *Event) ApplyTip(tipper Address, amount uint64) error {
	if e.Status != EventLive {
		return ErrEventNotLive
	}

	total, err := CheckedAdd(e.TotalTips, amount)
	if err != nil {
		return err
	}

	e.TotalTips = total

	if amount > e.HighestTipAmount {
		e.HighestTipper = tipper
		e.HighestTipAmount = amount
	}

	return nil
}

// ValidateFinalize gates the payout fan-out: completed events with at
// least one tip.
func (e *Event) ValidateFinalize() error {
	if e.Status != EventCompleted {
		return ErrEventNotCompleted
	}

	if e.TotalTips == 0 {
		return ErrNoTips
	}

	return nil
}

// SplitTips computes the treasury fee (floor of totalTips*feeRate/1000)
// and the exact artist remainder. All arithmetic is checked.
func (e *Event) SplitTips(feeRate uint64) (Payout, error) {
	product, err := CheckedMul(e.TotalTips, feeRate)
	if err != nil {
		return Payout{}, err
	}

	fee := product / 1000

	artist, err := CheckedSub(e.TotalTips, fee)
	if err != nil {
		return Payout{}, err
	}

	return Payout{FeeAmount: fee, ArtistAmount: artist}, nil
}

// VerifyTicket is the read-only admission oracle: the ticket must belong
// to the event, be owned by the caller, and the event must be live.
func (e *Event) VerifyTicket(t *Ticket, caller Address) error {
	if t.EventID != e.ID {
		return ErrInvalidTicket
	}

	if t.Owner != caller {
		return ErrNotTicketOwner
	}

	if e.Status != EventLive {
		return ErrEventNotLive
	}

	return nil
}

// NextTicketSeq allocates the next sequential ticket id and bumps the
// sold counter. TicketSequence == TicketsSold holds before and after.
func (inv *TicketInventory) NextTicketSeq() uint64 {
	seq := inv.TicketSequence
	inv.TicketSequence++
	inv.TicketsSold++
	return seq
}

func CheckedAdd(a, b uint64) (uint64, error) {
	if a > math.MaxUint64-b {
		return 0, ErrCalculation
	}
	return a + b, nil
}

func CheckedSub(a, b uint64) (uint64, error) {
	if b > a {
		return 0, ErrCalculation
	}
	return a - b, nil
}

func CheckedMul(a, b uint64) (uint64, error) {
	if a != 0 && b > math.MaxUint64/a {
		return 0, ErrCalculation
	}
	return a * b, nil
}
