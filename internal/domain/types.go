package domain

import "time"

// Address is a deterministic account handle derived from stable fields
// (see internal/keys). Ownership is checked by equality, never by possession.
type Address string

// NoAddress marks an unset identity, e.g. an event with no tipper yet.
const NoAddress Address = ""

type EventStatus string

const (
	EventCreated   EventStatus = "created"
	EventLive      EventStatus = "live"
	EventCompleted EventStatus = "completed"
	EventFinalized EventStatus = "finalized"
)

type SaleType string

const (
	SaleCumulativeTips   SaleType = "cumulative_tips"
	SaleBlindAuction     SaleType = "blind_auction"
	SaleQuadraticTipping SaleType = "quadratic_tipping"
)

// Registry is the process-wide singleton holding platform authority,
// treasury address, fee rate and the monotonic event-id counter.
type Registry struct {
	Address      Address
	Authority    Address
	Treasury     Address
	FeeRate      uint64 // parts-per-thousand, denominator 1000 in finalize math
	EventCounter uint64
}

type Event struct {
	ID               uint64
	Address          Address
	Authority        Address
	Name             string
	Description      string
	Category         string
	InventorySize    uint64 // 0 means unlimited
	UnitPrice        uint64
	SaleType         SaleType
	ReservePrice     uint64
	StartTime        time.Time
	Duration         time.Duration
	TicketsSold      uint64
	TotalTips        uint64
	HighestTipper    Address
	HighestTipAmount uint64
	Status           EventStatus
	Mint             Address
	Metadata         Address
	MasterEdition    Address
	CreatedAt        time.Time
}

// TicketInventory is the per-event sales record owned by the event's
// authority. TicketSequence is the source of sequential ticket ids and
// always equals TicketsSold (no gaps, no burns).
type TicketInventory struct {
	EventID        uint64
	Authority      Address
	InventorySize  uint64
	UnitPrice      uint64
	TicketsSold    uint64
	TicketSequence uint64
}

type Ticket struct {
	Address       Address
	EventID       uint64
	Seq           uint64
	Owner         Address
	Mint          Address
	Metadata      Address
	MasterEdition Address
	CreatedAt     time.Time
}

// Tip is keyed on (event, tipper): one tip per tipper per event.
type Tip struct {
	Address  Address
	EventID  uint64
	Tipper   Address
	Amount   uint64
	TippedAt time.Time
}

type Account struct {
	Address   Address
	Balance   uint64
	CreatedAt time.Time
}

// Collectible is a unique non-fungible asset: exactly one unit, held by
// Owner, with metadata updatable by UpdateAuthority.
type Collectible struct {
	Mint            Address
	MetadataAddress Address
	MasterEdition   Address
	Name            string
	Symbol          string
	URI             string
	Creator         Address
	UpdateAuthority Address
	Owner           Address
	CreatedAt       time.Time
}

// Payout is the result of the finalize fee split.
type Payout struct {
	FeeAmount    uint64
	ArtistAmount uint64
}
