package match

import (
	"fmt"
	"math/rand"
	"sync/atomic"
	"testing"
)

func BenchmarkEngineSingleSymbol(b *testing.B) {
	engine := NewMatchingEngine(DiscardPublisher{})
	rng := rand.New(rand.NewSource(42))

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		side := Buy
		if rng.Intn(2) == 1 {
			side = Sell
		}
		_, _ = engine.NewOrder(&NewOrderRequest{
			Symbol:   "BENCH",
			Side:     side,
			Type:     Limit,
			Price:    uint64(10000 + rng.Intn(100)),
			Quantity: uint64(rng.Intn(5) + 1),
		})
	}
}

func BenchmarkEngineParallelSymbols(b *testing.B) {
	engine := NewMatchingEngine(DiscardPublisher{})

	var worker atomic.Int64
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		symbol := fmt.Sprintf("SYM-%d", worker.Add(1))
		rng := rand.New(rand.NewSource(worker.Load()))
		for pb.Next() {
			side := Buy
			if rng.Intn(2) == 1 {
				side = Sell
			}
			_, _ = engine.NewOrder(&NewOrderRequest{
				Symbol:   symbol,
				Side:     side,
				Type:     Limit,
				Price:    uint64(10000 + rng.Intn(100)),
				Quantity: 1,
			})
		}
	})
}
