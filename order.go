package match

import (
	"github.com/openvenue/matching-engine/protocol"
)

type Side = protocol.Side

const (
	Buy  Side = protocol.SideBuy
	Sell Side = protocol.SideSell
)

type OrderType = protocol.OrderType

const (
	Limit    OrderType = protocol.OrderTypeLimit
	Market   OrderType = protocol.OrderTypeMarket
	IOC      OrderType = protocol.OrderTypeIOC
	FOK      OrderType = protocol.OrderTypeFOK
	PostOnly OrderType = protocol.OrderTypePostOnly
)

// Order is one instruction resting in, or crossing, a book. Identity fields
// are immutable after admission; only Remaining changes, and only through
// fills, amends, or removal.
//
// Price and quantities are integer tick and lot counts.
type Order struct {
	ID        string    `json:"id"`
	Side      Side      `json:"side"`
	Type      OrderType `json:"type"`
	Price     uint64    `json:"price"` // 0 for market orders
	Original  uint64    `json:"original"`
	Remaining uint64    `json:"remaining"`
	Sequence  uint64    `json:"sequence"` // process-wide submission sequence, breaks time-priority ties
	Submitter string    `json:"submitter,omitempty"`

	// Intrusive linked list pointers (ignored by JSON)
	next *Order
	prev *Order
}

// fill reduces the remaining quantity by qty. Callers never fill more than
// Remaining; the trade quantity is always min(taker, maker) remaining.
func (o *Order) fill(qty uint64) {
	o.Remaining -= qty
}

// Filled returns the cumulative executed quantity.
func (o *Order) Filled() uint64 {
	return o.Original - o.Remaining
}
