// Package keys derives the deterministic addresses under which ledger
// records live. Each record type has its own namespace, so equivalent
// lookups always land on the same collision-free handle.
package keys

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"

	"github.com/hauslive/hausd/internal/domain"
)

const (
	nsRegistry = "registry"
	nsAccount  = "account"
	nsEvent    = "event"
	nsTicket   = "ticket"
	nsTip      = "tip"
	nsMint     = "mint"
	nsMetadata = "metadata"
	nsEdition  = "edition"
)

func derive(namespace string, seeds ...[]byte) domain.Address {
	h := sha256.New()
	h.Write([]byte(namespace))
	for _, s := range seeds {
		// Length-prefix each seed so adjacent seeds cannot collide
		// across different splits of the same bytes.
		var n [4]byte
		binary.BigEndian.PutUint32(n[:], uint32(len(s)))
		h.Write(n[:])
		h.Write(s)
	}
	return domain.Address(hex.EncodeToString(h.Sum(nil)))
}

func u64(v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return b[:]
}

// Registry returns the fixed singleton address.
func Registry() domain.Address {
	return derive(nsRegistry)
}

// Account derives a fresh account address from an opaque seed
// (a UUID at registration time).
func Account(seed []byte) domain.Address {
	return derive(nsAccount, seed)
}

// Event derives the custodial event address from its id.
func Event(id uint64) domain.Address {
	return derive(nsEvent, u64(id))
}

// Ticket derives a ticket address from the event id and the sequential
// ticket id issued by the inventory counter.
func Ticket(eventID, seq uint64) domain.Address {
	return derive(nsTicket, u64(eventID), u64(seq))
}

// Tip derives the tip record address from the event id and the tipper.
// One tip per (event, tipper) pair is representable.
func Tip(eventID uint64, tipper domain.Address) domain.Address {
	return derive(nsTip, u64(eventID), []byte(tipper))
}

// Mint derives a collectible mint address from its owning record.
func Mint(scope domain.Address) domain.Address {
	return derive(nsMint, []byte(scope))
}

// Metadata derives the metadata address from the mint, the way token
// metadata accounts hang off their mint.
func Metadata(mint domain.Address) domain.Address {
	return derive(nsMetadata, []byte(mint))
}

// MasterEdition derives the edition address from the mint.
func MasterEdition(mint domain.Address) domain.Address {
	return derive(nsEdition, []byte(mint))
}
