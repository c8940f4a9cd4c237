package match

import (
	"math/rand"
	"strconv"
	"sync/atomic"
	"testing"
)

func BenchmarkSubmitResting(b *testing.B) {
	var submissions, trades atomic.Uint64
	book := NewOrderBook("BENCH", &submissions, &trades, DiscardPublisher{})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		// prices spread wide so nothing crosses
		book.Submit(limitOrder("o"+strconv.Itoa(i), Buy, uint64(1+i%1000), 1))
	}
}

func BenchmarkSubmitMatching(b *testing.B) {
	var submissions, trades atomic.Uint64
	book := NewOrderBook("BENCH", &submissions, &trades, DiscardPublisher{})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		side := Buy
		if i%2 == 1 {
			side = Sell
		}
		book.Submit(limitOrder("o"+strconv.Itoa(i), side, 100, 1))
	}
}

func BenchmarkSubmitRandomFlow(b *testing.B) {
	var submissions, trades atomic.Uint64
	book := NewOrderBook("BENCH", &submissions, &trades, DiscardPublisher{})
	rng := rand.New(rand.NewSource(42))

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		side := Buy
		price := uint64(10000 + rng.Intn(200))
		if rng.Intn(2) == 1 {
			side = Sell
			price = uint64(10000 - rng.Intn(200))
		}
		book.Submit(limitOrder("o"+strconv.Itoa(i), side, price, uint64(rng.Intn(5)+1)))
	}
}

func BenchmarkCancel(b *testing.B) {
	var submissions, trades atomic.Uint64
	book := NewOrderBook("BENCH", &submissions, &trades, DiscardPublisher{})

	ids := make([]string, b.N)
	for i := 0; i < b.N; i++ {
		id := "o" + strconv.Itoa(i)
		ids[i] = id
		book.Submit(limitOrder(id, Buy, uint64(1+i%1000), 1))
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = book.Cancel(ids[i])
	}
}
