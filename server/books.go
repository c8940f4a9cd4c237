package server

import (
	"sync"

	match "github.com/openvenue/matching-engine"
)

// bookSet lazily creates one aggregated book per symbol.
type bookSet struct {
	books sync.Map // symbol -> *match.AggregatedBook
}

func newBookSet() *bookSet {
	return &bookSet{}
}

func (b *bookSet) get(symbol string) *match.AggregatedBook {
	if v, ok := b.books.Load(symbol); ok {
		return v.(*match.AggregatedBook)
	}
	v, _ := b.books.LoadOrStore(symbol, match.NewAggregatedBook(symbol))
	return v.(*match.AggregatedBook)
}
