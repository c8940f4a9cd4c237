package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"runtime/pprof"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	match "github.com/openvenue/matching-engine"
	"github.com/openvenue/matching-engine/protocol"
)

func main() {
	addr := flag.String("addr", "http://127.0.0.1:8080", "trading server base URL")
	symbols := flag.String("symbols", "SIM", "comma separated symbols to trade")
	totalOrders := flag.Int("orders", 100000, "number of orders to submit")
	workers := flag.Int("workers", 4, "concurrent submitter goroutines")
	rate := flag.Int("rate", 0, "orders per second per worker, 0 means unthrottled")
	basePrice := flag.Uint64("base-price", 10000, "mid price in ticks used for randomization")
	priceLevels := flag.Uint64("price-levels", 200, "unique price levels around the mid")
	tick := flag.Uint64("tick", 1, "tick size for limit prices")
	marketRatio := flag.Int("market-ratio", 5, "1 in N orders will be market instead of limit")
	cancelEvery := flag.Int("cancel-every", 0, "cancel a random resting order every N submissions")
	watch := flag.Bool("watch", false, "subscribe to the execution stream and count fills")
	seed := flag.Int64("seed", time.Now().UnixNano(), "seed for deterministic random streams")
	cpuProfile := flag.String("cpuprofile", "", "write cpu profile to file")
	flag.Parse()

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			panic(err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			panic(err)
		}
		defer pprof.StopCPUProfile()
	}

	syms := strings.Split(*symbols, ",")

	var fills atomic.Int64
	stopWatch := func() {}
	if *watch {
		stopWatch = watchExecutions(*addr, &fills)
	}

	var submitted, accepted, rejected atomic.Int64

	var throttle <-chan time.Time
	if *rate > 0 {
		ticker := time.NewTicker(time.Second / time.Duration(*rate))
		defer ticker.Stop()
		throttle = ticker.C
	}

	client := &http.Client{Timeout: 5 * time.Second}

	start := time.Now()
	var wg sync.WaitGroup
	perWorker := *totalOrders / *workers
	for w := 0; w < *workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(*seed + int64(w)))
			var resting []string

			for i := 0; i < perWorker; i++ {
				if throttle != nil {
					<-throttle
				}

				req := nextRandomOrder(rng, syms, *basePrice, *priceLevels, *tick, *marketRatio)
				submitted.Add(1)

				ack, ok := postOrder(client, *addr, req)
				if !ok {
					rejected.Add(1)
					continue
				}
				accepted.Add(1)
				if req.Type == string(match.Limit) {
					resting = append(resting, ack.OrderID)
				}

				if *cancelEvery > 0 && len(resting) > 0 && i%*cancelEvery == 0 {
					j := rng.Intn(len(resting))
					cancelOrder(client, *addr, resting[j])
					resting = append(resting[:j], resting[j+1:]...)
				}
			}
		}(w)
	}
	wg.Wait()
	elapsed := time.Since(start)

	stopWatch()

	ordersPerSec := float64(submitted.Load()) / elapsed.Seconds()
	fmt.Printf("submitted %d orders in %s (%.0f orders/s)\n",
		submitted.Load(), elapsed.Truncate(time.Millisecond), ordersPerSec)
	fmt.Printf("accepted %d, rejected %d\n", accepted.Load(), rejected.Load())
	if *watch {
		fmt.Printf("observed %d fills on the execution stream\n", fills.Load())
	}
}

func nextRandomOrder(rng *rand.Rand, symbols []string, mid, width, tick uint64, marketRatio int) protocol.NewOrderRequest {
	symbol := symbols[rng.Intn(len(symbols))]

	side := "buy"
	var price uint64
	if rng.Intn(2) == 0 {
		price = mid + uint64(rng.Int63n(int64(width)))*tick
	} else {
		side = "sell"
		offset := uint64(rng.Int63n(int64(width))) * tick
		if mid > offset {
			price = mid - offset
		} else {
			price = tick
		}
	}

	typ := string(match.Limit)
	if marketRatio > 0 && rng.Intn(marketRatio) == 0 {
		typ = string(match.Market)
		price = 0
	}

	return protocol.NewOrderRequest{
		Symbol:    symbol,
		Side:      side,
		Type:      typ,
		Price:     price,
		Quantity:  uint64(rng.Int63n(5)) + 1,
		Submitter: "loadgen",
	}
}

func postOrder(client *http.Client, addr string, req protocol.NewOrderRequest) (protocol.OrderAccepted, bool) {
	payload, _ := json.Marshal(req)

	resp, err := client.Post(addr+"/orders", "application/json", bytes.NewReader(payload))
	if err != nil {
		fmt.Fprintf(os.Stderr, "submit failed: %v\n", err)
		return protocol.OrderAccepted{}, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return protocol.OrderAccepted{}, false
	}

	var ack protocol.OrderAccepted
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return protocol.OrderAccepted{}, false
	}
	return ack, true
}

func cancelOrder(client *http.Client, addr, orderID string) {
	req, _ := http.NewRequest(http.MethodDelete, addr+"/orders/"+orderID, nil)
	resp, err := client.Do(req)
	if err != nil {
		return
	}
	resp.Body.Close()
}

// watchExecutions counts fill events from the websocket stream until the
// returned stop function is called.
func watchExecutions(addr string, fills *atomic.Int64) func() {
	wsURL := "ws" + strings.TrimPrefix(addr, "http") + "/ws/executions"

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "execution stream dial failed: %v\n", err)
		return func() {}
	}

	go func() {
		for {
			var ev match.Event
			if err := conn.ReadJSON(&ev); err != nil {
				return
			}
			if ev.Type == match.EventFill {
				fills.Add(1)
			}
		}
	}()

	return func() { conn.Close() }
}
