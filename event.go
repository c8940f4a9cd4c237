package match

import (
	"sync"
	"time"

	"github.com/openvenue/matching-engine/protocol"
)

type EventType = protocol.EventType

const (
	EventFill               EventType = protocol.EventTypeFill
	EventAcceptedResting    EventType = protocol.EventTypeAcceptedResting
	EventCancelledRemainder EventType = protocol.EventTypeCancelledRemainder
	EventCancelled          EventType = protocol.EventTypeCancelled
	EventAmended            EventType = protocol.EventTypeAmended
)

// Event is one entry in a symbol's execution stream.
//
// StreamSequence is a per-symbol, gapless sequence stamped at publication,
// used by downstream consumers for ordering, deduplication, and rebuilds.
// Sequence is the process-wide submission sequence of the order the event is
// about; TradeSequence is the process-wide trade counter, set only on fills.
type Event struct {
	StreamSequence uint64    `json:"stream_sequence"`
	Sequence       uint64    `json:"sequence"`
	TradeSequence  uint64    `json:"trade_sequence,omitempty"`
	Type           EventType `json:"type"`
	Symbol         string    `json:"symbol"`
	Side           Side      `json:"side"` // taker side on fills, order side otherwise
	Price          uint64    `json:"price,omitempty"`
	Quantity       uint64    `json:"quantity"`
	OrderID        string    `json:"order_id"`
	MakerOrderID   string    `json:"maker_order_id,omitempty"`
	TakerRemaining uint64    `json:"taker_remaining,omitempty"`
	MakerRemaining uint64    `json:"maker_remaining,omitempty"`
	OldPrice       uint64    `json:"old_price,omitempty"`
	OldQuantity    uint64    `json:"old_quantity,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

var eventPool = sync.Pool{
	New: func() any {
		return new(Event)
	},
}

func acquireEvent() *Event {
	return eventPool.Get().(*Event)
}

// ReleaseEvent returns an event to the pool. Only the engine calls this,
// after every publisher has seen the event.
func ReleaseEvent(ev *Event) {
	*ev = Event{}
	eventPool.Put(ev)
}

// NewFillEvent records a trade between the incoming taker and a resting
// maker. The trade price is the maker's price.
func NewFillEvent(tradeSeq uint64, symbol string, taker, maker *Order, price, qty uint64) *Event {
	ev := acquireEvent()
	ev.Sequence = taker.Sequence
	ev.TradeSequence = tradeSeq
	ev.Type = EventFill
	ev.Symbol = symbol
	ev.Side = taker.Side
	ev.Price = price
	ev.Quantity = qty
	ev.OrderID = taker.ID
	ev.MakerOrderID = maker.ID
	ev.TakerRemaining = taker.Remaining
	ev.MakerRemaining = maker.Remaining
	ev.CreatedAt = time.Now().UTC()
	return ev
}

// NewRestingEvent records the unfilled remainder of a limit order entering
// the book.
func NewRestingEvent(symbol string, order *Order) *Event {
	ev := acquireEvent()
	ev.Sequence = order.Sequence
	ev.Type = EventAcceptedResting
	ev.Symbol = symbol
	ev.Side = order.Side
	ev.Price = order.Price
	ev.Quantity = order.Remaining
	ev.OrderID = order.ID
	ev.CreatedAt = time.Now().UTC()
	return ev
}

// NewRemainderCancelEvent records quantity discarded instead of resting
// (market/IOC remainders, killed FOK or post-only orders).
func NewRemainderCancelEvent(symbol string, order *Order, remainder uint64) *Event {
	ev := acquireEvent()
	ev.Sequence = order.Sequence
	ev.Type = EventCancelledRemainder
	ev.Symbol = symbol
	ev.Side = order.Side
	ev.Price = order.Price
	ev.Quantity = remainder
	ev.OrderID = order.ID
	ev.CreatedAt = time.Now().UTC()
	return ev
}

// NewCancelEvent records removal of a resting order on request. Quantity is
// what was still open at cancellation.
func NewCancelEvent(symbol string, order *Order) *Event {
	ev := acquireEvent()
	ev.Sequence = order.Sequence
	ev.Type = EventCancelled
	ev.Symbol = symbol
	ev.Side = order.Side
	ev.Price = order.Price
	ev.Quantity = order.Remaining
	ev.OrderID = order.ID
	ev.CreatedAt = time.Now().UTC()
	return ev
}

// NewAmendEvent records a resting order modification. When price or a size
// increase forfeits priority, the event stands for removal of the old
// resting state; follow-on fill/resting events establish the new state.
func NewAmendEvent(symbol string, order *Order, oldPrice, oldQuantity uint64) *Event {
	ev := acquireEvent()
	ev.Sequence = order.Sequence
	ev.Type = EventAmended
	ev.Symbol = symbol
	ev.Side = order.Side
	ev.Price = order.Price
	ev.Quantity = order.Remaining
	ev.OrderID = order.ID
	ev.OldPrice = oldPrice
	ev.OldQuantity = oldQuantity
	ev.CreatedAt = time.Now().UTC()
	return ev
}
