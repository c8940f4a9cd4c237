package match

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ordersAccepted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "matching",
		Name:      "orders_accepted_total",
		Help:      "Orders admitted to a book, by symbol, side and type.",
	}, []string{"symbol", "side", "type"})

	ordersRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "matching",
		Name:      "orders_rejected_total",
		Help:      "Orders rejected at validation, by reason.",
	}, []string{"symbol", "reason"})

	ordersCancelled = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "matching",
		Name:      "orders_cancelled_total",
		Help:      "Resting orders removed on request.",
	}, []string{"symbol"})

	tradesExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "matching",
		Name:      "trades_total",
		Help:      "Executed trades, by symbol.",
	}, []string{"symbol"})

	volumeTraded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "matching",
		Name:      "traded_volume_total",
		Help:      "Executed quantity, by symbol.",
	}, []string{"symbol"})

	bestBidGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "matching",
		Name:      "best_bid_price",
		Help:      "Highest resting buy price in ticks, 0 when empty.",
	}, []string{"symbol"})

	bestAskGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "matching",
		Name:      "best_ask_price",
		Help:      "Lowest resting sell price in ticks, 0 when empty.",
	}, []string{"symbol"})

	restingOrdersGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "matching",
		Name:      "resting_orders",
		Help:      "Open orders resting in the book, by side.",
	}, []string{"symbol", "side"})

	submitDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "matching",
		Name:      "submit_duration_seconds",
		Help:      "Wall time of a submission from admission to published events.",
		Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
	}, []string{"symbol"})
)

func observeAccepted(symbol string, side Side, typ OrderType) {
	ordersAccepted.WithLabelValues(symbol, side.String(), string(typ)).Inc()
}

func observeRejected(symbol, reason string) {
	ordersRejected.WithLabelValues(symbol, reason).Inc()
}

// observeEvents runs outside the matching critical section, after the book
// has returned.
func observeEvents(symbol string, events []*Event) {
	for _, ev := range events {
		switch ev.Type {
		case EventFill:
			tradesExecuted.WithLabelValues(symbol).Inc()
			volumeTraded.WithLabelValues(symbol).Add(float64(ev.Quantity))
		case EventCancelled:
			ordersCancelled.WithLabelValues(symbol).Inc()
		}
	}
}

func updateBookGauges(stats BookStats) {
	bestBidGauge.WithLabelValues(stats.Symbol).Set(float64(stats.BestBid))
	bestAskGauge.WithLabelValues(stats.Symbol).Set(float64(stats.BestAsk))
	restingOrdersGauge.WithLabelValues(stats.Symbol, Buy.String()).Set(float64(stats.BidOrders))
	restingOrdersGauge.WithLabelValues(stats.Symbol, Sell.String()).Set(float64(stats.AskOrders))
}
