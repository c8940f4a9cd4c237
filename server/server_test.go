package server

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"

	match "github.com/openvenue/matching-engine"
	"github.com/openvenue/matching-engine/protocol"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	engine := match.NewMatchingEngine(nil)
	srv := New(engine, slog.Default())
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return srv, ts
}

func postOrder(t *testing.T, ts *httptest.Server, req protocol.NewOrderRequest) (*http.Response, protocol.OrderAccepted) {
	t.Helper()
	payload, err := json.Marshal(req)
	assert.NoError(t, err)

	resp, err := http.Post(ts.URL+"/orders", "application/json", bytes.NewReader(payload))
	assert.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var ack protocol.OrderAccepted
	if resp.StatusCode == http.StatusCreated {
		assert.NoError(t, json.NewDecoder(resp.Body).Decode(&ack))
	}
	return resp, ack
}

func TestSubmitOrder(t *testing.T) {
	_, ts := newTestServer(t)

	resp, ack := postOrder(t, ts, protocol.NewOrderRequest{
		Symbol:   "BTC-USDT",
		Side:     "buy",
		Type:     "limit",
		Price:    100,
		Quantity: 5,
	})

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.NotEmpty(t, ack.OrderID)
	assert.Equal(t, uint64(1), ack.Sequence)
}

func TestSubmitOrderRejections(t *testing.T) {
	_, ts := newTestServer(t)

	tests := []struct {
		name   string
		req    protocol.NewOrderRequest
		reason protocol.RejectReason
	}{
		{
			"BadSide",
			protocol.NewOrderRequest{Symbol: "BTC-USDT", Side: "hold", Type: "limit", Price: 100, Quantity: 1},
			protocol.RejectReasonInvalidSide,
		},
		{
			"BadType",
			protocol.NewOrderRequest{Symbol: "BTC-USDT", Side: "buy", Type: "stop", Price: 100, Quantity: 1},
			protocol.RejectReasonInvalidType,
		},
		{
			"ZeroQuantity",
			protocol.NewOrderRequest{Symbol: "BTC-USDT", Side: "buy", Type: "limit", Price: 100},
			protocol.RejectReasonInvalidQuantity,
		},
		{
			"LimitWithoutPrice",
			protocol.NewOrderRequest{Symbol: "BTC-USDT", Side: "buy", Type: "limit", Quantity: 1},
			protocol.RejectReasonMissingPrice,
		},
		{
			"EmptySymbol",
			protocol.NewOrderRequest{Side: "buy", Type: "limit", Price: 100, Quantity: 1},
			protocol.RejectReasonInvalidSymbol,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := postOrder(t, ts, tt.req)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

			var rejected protocol.OrderRejected
			assert.NoError(t, json.NewDecoder(resp.Body).Decode(&rejected))
			assert.Equal(t, tt.reason, rejected.Reason)
		})
	}
}

func TestCancelOrder(t *testing.T) {
	_, ts := newTestServer(t)

	_, ack := postOrder(t, ts, protocol.NewOrderRequest{
		Symbol: "BTC-USDT", Side: "buy", Type: "limit", Price: 100, Quantity: 5,
	})

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/orders/"+ack.OrderID, nil)
	resp, err := http.DefaultClient.Do(req)
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// second cancel of the same id is a 404
	req, _ = http.NewRequest(http.MethodDelete, ts.URL+"/orders/"+ack.OrderID, nil)
	resp2, err := http.DefaultClient.Do(req)
	assert.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp2.StatusCode)
}

func TestAmendOrder(t *testing.T) {
	_, ts := newTestServer(t)

	_, ack := postOrder(t, ts, protocol.NewOrderRequest{
		Symbol: "BTC-USDT", Side: "buy", Type: "limit", Price: 100, Quantity: 10,
	})

	payload, _ := json.Marshal(protocol.AmendOrderRequest{NewPrice: 100, NewQuantity: 4})
	req, _ := http.NewRequest(http.MethodPatch, ts.URL+"/orders/"+ack.OrderID, bytes.NewReader(payload))
	resp, err := http.DefaultClient.Do(req)
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	depthResp, err := http.Get(ts.URL + "/book?symbol=BTC-USDT")
	assert.NoError(t, err)
	defer depthResp.Body.Close()

	var depth match.Depth
	assert.NoError(t, json.NewDecoder(depthResp.Body).Decode(&depth))
	assert.Equal(t, uint64(4), depth.Bids[0].Quantity)
}

func TestDepthEndpoint(t *testing.T) {
	_, ts := newTestServer(t)

	postOrder(t, ts, protocol.NewOrderRequest{Symbol: "BTC-USDT", Side: "buy", Type: "limit", Price: 99, Quantity: 2})
	postOrder(t, ts, protocol.NewOrderRequest{Symbol: "BTC-USDT", Side: "sell", Type: "limit", Price: 101, Quantity: 3})

	resp, err := http.Get(ts.URL + "/book?symbol=BTC-USDT&limit=5")
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var depth match.Depth
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&depth))
	assert.Equal(t, "BTC-USDT", depth.Symbol)
	assert.Len(t, depth.Bids, 1)
	assert.Len(t, depth.Asks, 1)

	t.Run("MissingSymbol", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/book")
		assert.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestStatsEndpoint(t *testing.T) {
	_, ts := newTestServer(t)

	postOrder(t, ts, protocol.NewOrderRequest{Symbol: "BTC-USDT", Side: "sell", Type: "limit", Price: 100, Quantity: 5})
	postOrder(t, ts, protocol.NewOrderRequest{Symbol: "BTC-USDT", Side: "buy", Type: "limit", Price: 100, Quantity: 5})

	resp, err := http.Get(ts.URL + "/stats?symbol=BTC-USDT")
	assert.NoError(t, err)
	defer resp.Body.Close()

	var stats match.BookStats
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, uint64(1), stats.Trades)
	assert.Equal(t, uint64(5), stats.Volume)
}

func TestSymbolsEndpoint(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/symbols")
	assert.NoError(t, err)
	defer resp.Body.Close()

	var symbols []string
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&symbols))
	assert.Empty(t, symbols)

	postOrder(t, ts, protocol.NewOrderRequest{Symbol: "ETH-USDT", Side: "buy", Type: "limit", Price: 10, Quantity: 1})

	resp2, err := http.Get(ts.URL + "/symbols")
	assert.NoError(t, err)
	defer resp2.Body.Close()
	assert.NoError(t, json.NewDecoder(resp2.Body).Decode(&symbols))
	assert.Equal(t, []string{"ETH-USDT"}, symbols)
}

func TestServerOnEventMaintainsAggregatedBook(t *testing.T) {
	engine := match.NewMatchingEngine(nil)
	srv := New(engine, slog.Default())

	srv.OnEvent(match.Event{
		StreamSequence: 1,
		Type:           match.EventAcceptedResting,
		Symbol:         "BTC-USDT",
		Side:           match.Buy,
		Price:          100,
		Quantity:       5,
	})

	book := srv.books.get("BTC-USDT")
	price, qty, ok := book.BestBid()
	assert.True(t, ok)
	assert.Equal(t, uint64(100), price)
	assert.Equal(t, uint64(5), qty)
}

func TestBookStreamDeliversUpdatesAfterSnapshot(t *testing.T) {
	engine := match.NewMatchingEngine(nil)
	srv := New(engine, slog.Default())
	ts := httptest.NewServer(srv.Routes())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/book?symbol=BTC-USDT"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	assert.NoError(t, err)
	defer conn.Close()

	var initial match.Depth
	assert.NoError(t, conn.ReadJSON(&initial))
	assert.Empty(t, initial.Bids)

	// the subscription is live once the initial depth arrives, so a change
	// broadcast now must reach the client
	srv.OnEvent(match.Event{
		StreamSequence: 1,
		Type:           match.EventAcceptedResting,
		Symbol:         "BTC-USDT",
		Side:           match.Buy,
		Price:          100,
		Quantity:       5,
	})

	assert.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var update match.Depth
	assert.NoError(t, conn.ReadJSON(&update))
	assert.Len(t, update.Bids, 1)
	assert.Equal(t, uint64(100), update.Bids[0].Price)
	assert.Equal(t, uint64(5), update.Bids[0].Quantity)
}

func TestHealthz(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
