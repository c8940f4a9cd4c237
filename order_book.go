package match

import (
	"sync"
	"sync/atomic"
	"time"
)

// OrderBook matches orders for a single symbol under price-time priority.
//
// All matching state is guarded by mu, and the submission sequence is
// assigned inside the critical section, so per-symbol execution order is
// exactly submission-sequence order. Observation points (best prices,
// counters) are mirrored into atomics and read without taking the lock.
type OrderBook struct {
	symbol string

	mu   sync.Mutex
	bids *sideQueue
	asks *sideQueue

	// process-wide counters shared across books, owned by the engine
	submissions *atomic.Uint64
	trades      *atomic.Uint64

	// per-symbol gapless stream sequence
	streamSeq atomic.Uint64

	publisher Publisher

	// lock-free mirrors, 0 means empty/none
	bestBid   atomic.Uint64
	bestAsk   atomic.Uint64
	lastTrade atomic.Uint64

	bidOrders atomic.Int64
	askOrders atomic.Int64
	bidLevels atomic.Int64
	askLevels atomic.Int64

	tradeCount   atomic.Uint64
	tradedVolume atomic.Uint64
}

// NewOrderBook creates an empty book for symbol. The submission and trade
// counters are shared with every other book in the process.
func NewOrderBook(symbol string, submissions, trades *atomic.Uint64, publisher Publisher) *OrderBook {
	if publisher == nil {
		publisher = DiscardPublisher{}
	}
	return &OrderBook{
		symbol:      symbol,
		bids:        newBidQueue(),
		asks:        newAskQueue(),
		submissions: submissions,
		trades:      trades,
		publisher:   publisher,
	}
}

// Symbol returns the symbol this book trades.
func (b *OrderBook) Symbol() string {
	return b.symbol
}

// Submit admits an order, matches it to completion, and returns the events
// it produced, already published in order. The order's submission sequence
// is assigned here, under the book lock.
func (b *OrderBook) Submit(order *Order) []*Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	order.Sequence = b.submissions.Add(1)

	var events []*Event
	switch order.Type {
	case Market:
		events = b.matchMarket(order)
	case IOC:
		events = b.matchIOC(order)
	case FOK:
		events = b.matchFOK(order)
	case PostOnly:
		events = b.matchPostOnly(order)
	default:
		events = b.matchLimit(order)
	}

	b.publish(events)
	b.syncMirrors()
	return events
}

// matchLimit sweeps the opposite side up to the order's limit, then rests
// any remainder.
func (b *OrderBook) matchLimit(taker *Order) []*Event {
	events := b.sweep(taker, taker.Price, true)

	if taker.Remaining > 0 {
		b.sameSide(taker.Side).insertOrder(taker, false)
		events = append(events, NewRestingEvent(b.symbol, taker))
	}

	return events
}

// matchMarket sweeps the whole opposite side. Whatever cannot execute is
// discarded; market orders never rest.
func (b *OrderBook) matchMarket(taker *Order) []*Event {
	events := b.sweep(taker, 0, false)

	if taker.Remaining > 0 {
		events = append(events, NewRemainderCancelEvent(b.symbol, taker, taker.Remaining))
	}

	return events
}

// matchIOC behaves like a limit order whose remainder is discarded instead
// of resting.
func (b *OrderBook) matchIOC(taker *Order) []*Event {
	events := b.sweep(taker, taker.Price, true)

	if taker.Remaining > 0 {
		events = append(events, NewRemainderCancelEvent(b.symbol, taker, taker.Remaining))
	}

	return events
}

// matchFOK executes in full or not at all. Liquidity within the limit is
// counted before any fill, so a shortfall leaves the book untouched.
func (b *OrderBook) matchFOK(taker *Order) []*Event {
	opp := b.oppositeSide(taker.Side)
	if !opp.availableWithin(taker.Price, taker.Remaining) {
		return []*Event{NewRemainderCancelEvent(b.symbol, taker, taker.Remaining)}
	}

	return b.sweep(taker, taker.Price, true)
}

// matchPostOnly rests the order only if it would not execute immediately.
func (b *OrderBook) matchPostOnly(taker *Order) []*Event {
	if best, ok := b.oppositeSide(taker.Side).bestPrice(); ok && crosses(taker.Side, taker.Price, best) {
		return []*Event{NewRemainderCancelEvent(b.symbol, taker, taker.Remaining)}
	}

	b.sameSide(taker.Side).insertOrder(taker, false)
	return []*Event{NewRestingEvent(b.symbol, taker)}
}

// sweep fills the taker against the opposite side, best price first, oldest
// order first within a level. The trade price is always the resting order's
// price. limited restricts fills to resting prices crossing limit.
func (b *OrderBook) sweep(taker *Order, limit uint64, limited bool) []*Event {
	opp := b.oppositeSide(taker.Side)

	var events []*Event
	for taker.Remaining > 0 {
		maker := opp.peekHead()
		if maker == nil {
			break
		}
		if limited && !crosses(taker.Side, limit, maker.Price) {
			break
		}

		qty := taker.Remaining
		if maker.Remaining < qty {
			qty = maker.Remaining
		}

		taker.fill(qty)
		opp.fillHead(qty)

		tradeSeq := b.trades.Add(1)
		events = append(events, NewFillEvent(tradeSeq, b.symbol, taker, maker, maker.Price, qty))

		b.lastTrade.Store(maker.Price)
		b.tradeCount.Add(1)
		b.tradedVolume.Add(qty)
	}

	return events
}

// Cancel removes a resting order and publishes the cancellation. Unknown
// ids, including already-filled or already-cancelled orders, return
// ErrOrderNotFound.
func (b *OrderBook) Cancel(id string) (*Event, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	order := b.asks.order(id)
	q := b.asks
	if order == nil {
		order = b.bids.order(id)
		q = b.bids
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}

	ev := NewCancelEvent(b.symbol, order)
	q.removeOrder(id)

	b.publish([]*Event{ev})
	b.syncMirrors()
	return ev, nil
}

// Amend changes a resting order's price or open quantity. Lowering the
// quantity at the same price keeps the order's queue position; any other
// change forfeits priority and re-enters the order as a fresh limit, which
// may execute immediately.
func (b *OrderBook) Amend(id string, newPrice, newQuantity uint64) ([]*Event, error) {
	if newQuantity == 0 {
		return nil, ErrInvalidQuantity
	}
	if newPrice == 0 {
		return nil, ErrInvalidPrice
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	order := b.asks.order(id)
	q := b.asks
	if order == nil {
		order = b.bids.order(id)
		q = b.bids
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}

	oldPrice := order.Price
	oldRemaining := order.Remaining
	filled := order.Filled()

	var events []*Event
	if newPrice == oldPrice && newQuantity <= oldRemaining {
		q.reduceOrder(id, newQuantity)
		order.Original = filled + newQuantity
		events = []*Event{NewAmendEvent(b.symbol, order, oldPrice, oldRemaining)}
	} else {
		q.removeOrder(id)
		order.Price = newPrice
		order.Original = filled + newQuantity
		order.Remaining = newQuantity

		events = []*Event{NewAmendEvent(b.symbol, order, oldPrice, oldRemaining)}
		events = append(events, b.matchLimit(order)...)
	}

	b.publish(events)
	b.syncMirrors()
	return events, nil
}

// resting reports whether the order currently rests on either side.
func (b *OrderBook) resting(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.asks.order(id) != nil || b.bids.order(id) != nil
}

// publish stamps the per-symbol stream sequence and hands the batch to the
// publisher. Called with the book lock held; publishers must not block.
func (b *OrderBook) publish(events []*Event) {
	if len(events) == 0 {
		return
	}
	for _, ev := range events {
		ev.StreamSequence = b.streamSeq.Add(1)
	}
	b.publisher.Publish(events...)
}

func (b *OrderBook) syncMirrors() {
	if best, ok := b.bids.bestPrice(); ok {
		b.bestBid.Store(best)
	} else {
		b.bestBid.Store(0)
	}
	if best, ok := b.asks.bestPrice(); ok {
		b.bestAsk.Store(best)
	} else {
		b.bestAsk.Store(0)
	}

	b.bidOrders.Store(b.bids.orderCount())
	b.askOrders.Store(b.asks.orderCount())
	b.bidLevels.Store(b.bids.depthCount())
	b.askLevels.Store(b.asks.depthCount())
}

func (b *OrderBook) sameSide(side Side) *sideQueue {
	if side == Buy {
		return b.bids
	}
	return b.asks
}

func (b *OrderBook) oppositeSide(side Side) *sideQueue {
	if side == Buy {
		return b.asks
	}
	return b.bids
}

// crosses reports whether a resting price is executable against a taker
// limit.
func crosses(takerSide Side, limit, restingPrice uint64) bool {
	if takerSide == Buy {
		return restingPrice <= limit
	}
	return restingPrice >= limit
}

// BestBid returns the highest resting buy price, or false when the bid side
// is empty. Lock-free.
func (b *OrderBook) BestBid() (uint64, bool) {
	p := b.bestBid.Load()
	return p, p != 0
}

// BestAsk returns the lowest resting sell price, or false when the ask side
// is empty. Lock-free.
func (b *OrderBook) BestAsk() (uint64, bool) {
	p := b.bestAsk.Load()
	return p, p != 0
}

// LastTradePrice returns the most recent execution price, or false before
// the first trade. Lock-free.
func (b *OrderBook) LastTradePrice() (uint64, bool) {
	p := b.lastTrade.Load()
	return p, p != 0
}

// StreamSequence returns the sequence of the last published event.
func (b *OrderBook) StreamSequence() uint64 {
	return b.streamSeq.Load()
}

// Depth returns up to limit aggregated levels per side. A limit of 0
// returns the full book.
func (b *OrderBook) Depth(limit int) *Depth {
	b.mu.Lock()
	defer b.mu.Unlock()

	return &Depth{
		Symbol:   b.symbol,
		Sequence: b.streamSeq.Load(),
		Bids:     b.bids.depth(limit),
		Asks:     b.asks.depth(limit),
	}
}

// Snapshot captures the full book plus the last trade price, tagged with
// the stream sequence so a consumer knows where to resume the stream.
func (b *OrderBook) Snapshot() *BookSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	return &BookSnapshot{
		Symbol:         b.symbol,
		Sequence:       b.streamSeq.Load(),
		LastTradePrice: b.lastTrade.Load(),
		Bids:           b.bids.depth(0),
		Asks:           b.asks.depth(0),
		CreatedAt:      time.Now().UTC(),
	}
}

// Stats reads the book's counters without touching the matching lock.
func (b *OrderBook) Stats() BookStats {
	return BookStats{
		Symbol:         b.symbol,
		BidOrders:      b.bidOrders.Load(),
		AskOrders:      b.askOrders.Load(),
		BidLevels:      b.bidLevels.Load(),
		AskLevels:      b.askLevels.Load(),
		BestBid:        b.bestBid.Load(),
		BestAsk:        b.bestAsk.Load(),
		LastTradePrice: b.lastTrade.Load(),
		Trades:         b.tradeCount.Load(),
		Volume:         b.tradedVolume.Load(),
	}
}
