package match

import "time"

// PriceLevelInfo is one aggregated level of a depth view.
type PriceLevelInfo struct {
	Price    uint64 `json:"price"`
	Quantity uint64 `json:"quantity"`
	Orders   int64  `json:"orders"`
}

// Depth is a point-in-time aggregated view of both sides of a book, bids
// best-first descending and asks best-first ascending.
type Depth struct {
	Symbol   string           `json:"symbol"`
	Sequence uint64           `json:"sequence"`
	Bids     []PriceLevelInfo `json:"bids"`
	Asks     []PriceLevelInfo `json:"asks"`
}

// BookSnapshot is a full-depth capture of a book, suitable for seeding a
// downstream replica before it applies the execution stream.
type BookSnapshot struct {
	Symbol         string           `json:"symbol"`
	Sequence       uint64           `json:"sequence"`
	LastTradePrice uint64           `json:"last_trade_price,omitempty"`
	Bids           []PriceLevelInfo `json:"bids"`
	Asks           []PriceLevelInfo `json:"asks"`
	CreatedAt      time.Time        `json:"created_at"`
}

// BookStats reports a book's observation counters. It is assembled from
// atomics and never touches the matching lock.
type BookStats struct {
	Symbol         string `json:"symbol"`
	BidOrders      int64  `json:"bid_orders"`
	AskOrders      int64  `json:"ask_orders"`
	BidLevels      int64  `json:"bid_levels"`
	AskLevels      int64  `json:"ask_levels"`
	BestBid        uint64 `json:"best_bid,omitempty"`
	BestAsk        uint64 `json:"best_ask,omitempty"`
	LastTradePrice uint64 `json:"last_trade_price,omitempty"`
	Trades         uint64 `json:"trades"`
	Volume         uint64 `json:"volume"`
}
