package match

import (
	"sync"

	"github.com/igrmk/treemap/v2"
)

// AggregatedBook is a price-level replica of one symbol's book, rebuilt
// purely from the execution stream. It is the consumer-side counterpart of
// OrderBook: market-data fan-out and UIs read from it instead of locking
// the matching book.
//
// Apply requires events in stream-sequence order and reports ErrSequenceGap
// on a gap, at which point the caller should reseed from a snapshot.
type AggregatedBook struct {
	mu     sync.RWMutex
	symbol string

	bids *treemap.TreeMap[uint64, uint64]
	asks *treemap.TreeMap[uint64, uint64]

	streamSeq uint64
	lastTrade uint64
}

func NewAggregatedBook(symbol string) *AggregatedBook {
	return &AggregatedBook{
		symbol: symbol,
		bids:   treemap.New[uint64, uint64](),
		asks:   treemap.New[uint64, uint64](),
	}
}

// Seed resets the replica from a snapshot. Stream application resumes at
// the snapshot's sequence.
func (a *AggregatedBook) Seed(snap *BookSnapshot) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.bids.Clear()
	a.asks.Clear()
	for _, lvl := range snap.Bids {
		a.bids.Set(lvl.Price, lvl.Quantity)
	}
	for _, lvl := range snap.Asks {
		a.asks.Set(lvl.Price, lvl.Quantity)
	}
	a.streamSeq = snap.Sequence
	a.lastTrade = snap.LastTradePrice
}

// Apply folds one event into the replica.
//
// Resting adds quantity at the order's price; Cancelled removes it. A fill
// consumes maker-side quantity at the trade price. A remainder cancel never
// touched the book. An amend adjusts in place when the price held;
// otherwise it removes the old resting quantity and the follow-on events of
// the re-entry establish the new state.
func (a *AggregatedBook) Apply(ev *Event) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.streamSeq != 0 && ev.StreamSequence != a.streamSeq+1 {
		return ErrSequenceGap
	}
	a.streamSeq = ev.StreamSequence

	switch ev.Type {
	case EventAcceptedResting:
		side := a.side(ev.Side)
		qty, _ := side.Get(ev.Price)
		side.Set(ev.Price, qty+ev.Quantity)

	case EventCancelled:
		a.subtract(a.side(ev.Side), ev.Price, ev.Quantity)

	case EventFill:
		// the maker rests opposite the taker side carried by the event
		a.subtract(a.side(opposite(ev.Side)), ev.Price, ev.Quantity)
		a.lastTrade = ev.Price

	case EventAmended:
		// in place only for a same-price decrease; a price change or size
		// increase removes the old resting state and the follow-on events
		// establish the new one
		side := a.side(ev.Side)
		if ev.Price == ev.OldPrice && ev.Quantity <= ev.OldQuantity {
			a.subtract(side, ev.OldPrice, ev.OldQuantity-ev.Quantity)
		} else {
			a.subtract(side, ev.OldPrice, ev.OldQuantity)
		}

	case EventCancelledRemainder:
	}

	return nil
}

func (a *AggregatedBook) side(s Side) *treemap.TreeMap[uint64, uint64] {
	if s == Buy {
		return a.bids
	}
	return a.asks
}

func (a *AggregatedBook) subtract(side *treemap.TreeMap[uint64, uint64], price, qty uint64) {
	cur, ok := side.Get(price)
	if !ok {
		return
	}
	if cur <= qty {
		side.Del(price)
		return
	}
	side.Set(price, cur-qty)
}

func opposite(s Side) Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// BestBid returns the highest bid level, or false when the side is empty.
func (a *AggregatedBook) BestBid() (uint64, uint64, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	it := a.bids.Reverse()
	if !it.Valid() {
		return 0, 0, false
	}
	return it.Key(), it.Value(), true
}

// BestAsk returns the lowest ask level, or false when the side is empty.
func (a *AggregatedBook) BestAsk() (uint64, uint64, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	it := a.asks.Iterator()
	if !it.Valid() {
		return 0, 0, false
	}
	return it.Key(), it.Value(), true
}

// QuantityAt returns the resting quantity at an exact price level.
func (a *AggregatedBook) QuantityAt(side Side, price uint64) uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()

	qty, _ := a.side(side).Get(price)
	return qty
}

// Depth renders up to limit levels per side, best-first. A limit of 0
// returns everything.
func (a *AggregatedBook) Depth(limit int) *Depth {
	a.mu.RLock()
	defer a.mu.RUnlock()

	d := &Depth{Symbol: a.symbol, Sequence: a.streamSeq}

	for it := a.bids.Reverse(); it.Valid() && (limit == 0 || len(d.Bids) < limit); it.Next() {
		d.Bids = append(d.Bids, PriceLevelInfo{Price: it.Key(), Quantity: it.Value()})
	}
	for it := a.asks.Iterator(); it.Valid() && (limit == 0 || len(d.Asks) < limit); it.Next() {
		d.Asks = append(d.Asks, PriceLevelInfo{Price: it.Key(), Quantity: it.Value()})
	}

	return d
}

// LastTradePrice returns the price of the most recent fill seen, or false
// before any.
func (a *AggregatedBook) LastTradePrice() (uint64, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastTrade, a.lastTrade != 0
}

// StreamSequence returns the sequence of the last applied event.
func (a *AggregatedBook) StreamSequence() uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.streamSeq
}
