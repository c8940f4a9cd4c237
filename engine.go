package match

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/xid"

	"github.com/openvenue/matching-engine/protocol"
)

// NewOrderRequest carries a validated-enough submission into the engine.
// Price is in ticks and ignored for market orders.
type NewOrderRequest struct {
	Symbol    string
	Side      Side
	Type      OrderType
	Price     uint64
	Quantity  uint64
	Submitter string
}

// OrderAck confirms admission. Sequence is the process-wide submission
// sequence; it totally orders this order against every other accepted
// order, on any symbol.
type OrderAck struct {
	OrderID  string `json:"order_id"`
	Sequence uint64 `json:"sequence"`
}

// MatchingEngine routes orders to per-symbol books and tracks which book
// owns each resting order so cancels and amends need only an order id.
//
// Books are created lazily on first touch of a symbol and live for the
// process lifetime. Different symbols match concurrently; the engine itself
// holds no lock across matching.
type MatchingEngine struct {
	isShutdown atomic.Bool

	books  sync.Map // symbol -> *OrderBook
	owners sync.Map // order id -> *OrderBook, resting orders only

	submissions atomic.Uint64
	trades      atomic.Uint64

	publisher Publisher
}

// NewMatchingEngine creates an engine whose books publish to the given
// publisher. A nil publisher discards events.
func NewMatchingEngine(publisher Publisher) *MatchingEngine {
	if publisher == nil {
		publisher = DiscardPublisher{}
	}
	return &MatchingEngine{publisher: publisher}
}

// NewOrder validates and submits an order. On acceptance the returned ack
// carries the generated order id and submission sequence; by the time it
// returns, every execution event the order produced has been published.
func (e *MatchingEngine) NewOrder(req *NewOrderRequest) (*OrderAck, error) {
	if e.isShutdown.Load() {
		return nil, ErrShutdown
	}

	if err := e.validate(req); err != nil {
		observeRejected(req.Symbol, string(RejectReasonFor(err)))
		return nil, err
	}

	price := req.Price
	if req.Type == Market {
		price = 0
	}

	order := &Order{
		ID:        xid.New().String(),
		Side:      req.Side,
		Type:      req.Type,
		Price:     price,
		Original:  req.Quantity,
		Remaining: req.Quantity,
		Submitter: req.Submitter,
	}

	book := e.Book(req.Symbol)

	start := time.Now()
	events := book.Submit(order)
	submitDuration.WithLabelValues(req.Symbol).Observe(time.Since(start).Seconds())

	observeAccepted(req.Symbol, req.Side, req.Type)
	e.afterEvents(book, events)

	return &OrderAck{OrderID: order.ID, Sequence: order.Sequence}, nil
}

// CancelOrder removes a resting order by id alone. Ids that never rested,
// already filled, or were already cancelled report ErrOrderNotFound, so
// cancellation is idempotent.
func (e *MatchingEngine) CancelOrder(orderID string) error {
	if e.isShutdown.Load() {
		return ErrShutdown
	}

	v, ok := e.owners.Load(orderID)
	if !ok {
		return ErrOrderNotFound
	}
	book := v.(*OrderBook)

	ev, err := book.Cancel(orderID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			// the index entry went stale, drop it
			e.owners.Delete(orderID)
		}
		return err
	}

	e.afterEvents(book, []*Event{ev})
	return nil
}

// AmendOrder modifies a resting order's price or open quantity. See
// OrderBook.Amend for the priority rules.
func (e *MatchingEngine) AmendOrder(orderID string, newPrice, newQuantity uint64) error {
	if e.isShutdown.Load() {
		return ErrShutdown
	}

	v, ok := e.owners.Load(orderID)
	if !ok {
		return ErrOrderNotFound
	}
	book := v.(*OrderBook)

	events, err := book.Amend(orderID, newPrice, newQuantity)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			e.owners.Delete(orderID)
		}
		return err
	}

	e.afterEvents(book, events)
	return nil
}

func (e *MatchingEngine) validate(req *NewOrderRequest) error {
	if req.Symbol == "" {
		return ErrInvalidSymbol
	}
	if req.Side != Buy && req.Side != Sell {
		return ErrInvalidSide
	}
	if req.Quantity == 0 {
		return ErrInvalidQuantity
	}

	switch req.Type {
	case Limit, IOC, FOK, PostOnly:
		if req.Price == 0 {
			return ErrMissingPrice
		}
	case Market:
	default:
		return ErrInvalidType
	}

	return nil
}

// afterEvents runs the post-match bookkeeping outside the book lock:
// ownership index maintenance, metrics, and returning events to the pool.
func (e *MatchingEngine) afterEvents(book *OrderBook, events []*Event) {
	for _, ev := range events {
		switch ev.Type {
		case EventAcceptedResting:
			e.owners.Store(ev.OrderID, book)
			// a later submission on this book may have consumed the order
			// and run its own bookkeeping before this Store; re-check so
			// the entry cannot outlive the resting order
			if !book.resting(ev.OrderID) {
				e.owners.Delete(ev.OrderID)
			}
		case EventCancelled:
			e.owners.Delete(ev.OrderID)
		case EventFill:
			if ev.MakerRemaining == 0 {
				e.owners.Delete(ev.MakerOrderID)
			}
			if ev.TakerRemaining == 0 {
				e.owners.Delete(ev.OrderID)
			}
		}
	}

	observeEvents(book.Symbol(), events)
	updateBookGauges(book.Stats())

	for _, ev := range events {
		ReleaseEvent(ev)
	}
}

// RejectReasonFor maps an engine error to its wire-level reject reason.
func RejectReasonFor(err error) protocol.RejectReason {
	switch err {
	case ErrInvalidQuantity:
		return protocol.RejectReasonInvalidQuantity
	case ErrInvalidPrice:
		return protocol.RejectReasonInvalidPrice
	case ErrMissingPrice:
		return protocol.RejectReasonMissingPrice
	case ErrInvalidSide:
		return protocol.RejectReasonInvalidSide
	case ErrInvalidType:
		return protocol.RejectReasonInvalidType
	case ErrInvalidSymbol:
		return protocol.RejectReasonInvalidSymbol
	case ErrOrderNotFound:
		return protocol.RejectReasonOrderNotFound
	case ErrShutdown:
		return protocol.RejectReasonShutdown
	default:
		return protocol.RejectReasonInternal
	}
}

// Book returns the order book for symbol, creating it on first use.
func (e *MatchingEngine) Book(symbol string) *OrderBook {
	if v, ok := e.books.Load(symbol); ok {
		return v.(*OrderBook)
	}

	book := NewOrderBook(symbol, &e.submissions, &e.trades, e.publisher)
	v, loaded := e.books.LoadOrStore(symbol, book)
	if loaded {
		return v.(*OrderBook)
	}

	logger.Info("order book created", "symbol", symbol)
	return book
}

// Depth returns an aggregated view of a symbol's book.
func (e *MatchingEngine) Depth(symbol string, limit int) *Depth {
	return e.Book(symbol).Depth(limit)
}

// Snapshot returns a full capture of a symbol's book.
func (e *MatchingEngine) Snapshot(symbol string) *BookSnapshot {
	return e.Book(symbol).Snapshot()
}

// Stats returns a symbol's lock-free counters.
func (e *MatchingEngine) Stats(symbol string) BookStats {
	return e.Book(symbol).Stats()
}

// Symbols lists every symbol that has a book.
func (e *MatchingEngine) Symbols() []string {
	var symbols []string
	e.books.Range(func(key, _ any) bool {
		symbols = append(symbols, key.(string))
		return true
	})
	return symbols
}

// Submissions returns the process-wide count of accepted orders.
func (e *MatchingEngine) Submissions() uint64 {
	return e.submissions.Load()
}

// Trades returns the process-wide count of executed trades.
func (e *MatchingEngine) Trades() uint64 {
	return e.trades.Load()
}

// Shutdown rejects further commands. In-flight submissions finish
// normally; draining the publisher is the caller's job.
func (e *MatchingEngine) Shutdown() {
	e.isShutdown.Store(true)
	logger.Info("matching engine shutdown",
		"submissions", e.submissions.Load(),
		"trades", e.trades.Load())
}
