package server

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	match "github.com/openvenue/matching-engine"
	"github.com/openvenue/matching-engine/protocol"
)

// Server exposes the engine over HTTP and fans execution events out to
// websocket subscribers.
//
// It consumes the execution stream as a ring buffer handler: OnEvent keeps
// per-symbol aggregated books current and broadcasts to subscribers, so the
// matching path never waits on a client.
type Server struct {
	engine     *match.MatchingEngine
	log        *slog.Logger
	serializer protocol.Serializer
	upgrader   websocket.Upgrader

	execHub *hub[match.Event]
	bookHub *hub[string] // symbols whose aggregated book changed

	books *bookSet
}

func New(engine *match.MatchingEngine, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		engine:     engine,
		log:        log,
		serializer: &protocol.DefaultJSONSerializer{},
		upgrader:   websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		execHub:    newHub[match.Event](),
		bookHub:    newHub[string](),
		books:      newBookSet(),
	}
}

// OnEvent implements match.EventHandler. It runs on the execution ring's
// consumer goroutine.
func (s *Server) OnEvent(ev match.Event) {
	book := s.books.get(ev.Symbol)
	if err := book.Apply(&ev); err != nil {
		// a gap means this replica missed events; reseed from the source
		s.log.Warn("aggregated book gap, reseeding",
			"symbol", ev.Symbol,
			"stream_sequence", ev.StreamSequence,
			"applied", book.StreamSequence())
		book.Seed(s.engine.Snapshot(ev.Symbol))
	}

	s.execHub.Broadcast(ev)
	s.bookHub.Broadcast(ev.Symbol)
}

// Routes returns the HTTP handler tree.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /orders", s.handleNewOrder)
	mux.HandleFunc("DELETE /orders/{id}", s.handleCancel)
	mux.HandleFunc("PATCH /orders/{id}", s.handleAmend)
	mux.HandleFunc("GET /book", s.handleDepth)
	mux.HandleFunc("GET /snapshot", s.handleSnapshot)
	mux.HandleFunc("GET /stats", s.handleStats)
	mux.HandleFunc("GET /symbols", s.handleSymbols)
	mux.HandleFunc("GET /ws/executions", s.handleExecutionStream)
	mux.HandleFunc("GET /ws/book", s.handleBookStream)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

func (s *Server) handleNewOrder(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<16))
	if err != nil {
		s.writeReject(w, http.StatusBadRequest, protocol.RejectReasonInternal)
		return
	}

	var req protocol.NewOrderRequest
	if err := s.serializer.Unmarshal(body, &req); err != nil {
		s.writeReject(w, http.StatusBadRequest, protocol.RejectReasonInternal)
		return
	}

	side, err := protocol.ParseSide(req.Side)
	if err != nil {
		s.writeReject(w, http.StatusBadRequest, protocol.RejectReasonInvalidSide)
		return
	}
	typ, err := protocol.ParseOrderType(req.Type)
	if err != nil {
		s.writeReject(w, http.StatusBadRequest, protocol.RejectReasonInvalidType)
		return
	}

	ack, err := s.engine.NewOrder(&match.NewOrderRequest{
		Symbol:    req.Symbol,
		Side:      side,
		Type:      typ,
		Price:     req.Price,
		Quantity:  req.Quantity,
		Submitter: req.Submitter,
	})
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, match.ErrShutdown) {
			status = http.StatusServiceUnavailable
		}
		s.writeReject(w, status, match.RejectReasonFor(err))
		return
	}

	s.writeJSON(w, http.StatusCreated, protocol.OrderAccepted{
		OrderID:  ack.OrderID,
		Sequence: ack.Sequence,
	})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := s.engine.CancelOrder(id); err != nil {
		switch {
		case errors.Is(err, match.ErrOrderNotFound):
			s.writeReject(w, http.StatusNotFound, protocol.RejectReasonOrderNotFound)
		case errors.Is(err, match.ErrShutdown):
			s.writeReject(w, http.StatusServiceUnavailable, protocol.RejectReasonShutdown)
		default:
			s.writeReject(w, http.StatusInternalServerError, protocol.RejectReasonInternal)
		}
		return
	}

	s.writeJSON(w, http.StatusOK, protocol.CancelAck{OrderID: id})
}

func (s *Server) handleAmend(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<16))
	if err != nil {
		s.writeReject(w, http.StatusBadRequest, protocol.RejectReasonInternal)
		return
	}

	var req protocol.AmendOrderRequest
	if err := s.serializer.Unmarshal(body, &req); err != nil {
		s.writeReject(w, http.StatusBadRequest, protocol.RejectReasonInternal)
		return
	}

	if err := s.engine.AmendOrder(id, req.NewPrice, req.NewQuantity); err != nil {
		switch {
		case errors.Is(err, match.ErrOrderNotFound):
			s.writeReject(w, http.StatusNotFound, protocol.RejectReasonOrderNotFound)
		case errors.Is(err, match.ErrShutdown):
			s.writeReject(w, http.StatusServiceUnavailable, protocol.RejectReasonShutdown)
		default:
			s.writeReject(w, http.StatusBadRequest, match.RejectReasonFor(err))
		}
		return
	}

	s.writeJSON(w, http.StatusOK, protocol.CancelAck{OrderID: id})
}

func (s *Server) handleDepth(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		s.writeReject(w, http.StatusBadRequest, protocol.RejectReasonInvalidSymbol)
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	s.writeJSON(w, http.StatusOK, s.engine.Depth(symbol, limit))
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		s.writeReject(w, http.StatusBadRequest, protocol.RejectReasonInvalidSymbol)
		return
	}

	s.writeJSON(w, http.StatusOK, s.engine.Snapshot(symbol))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		s.writeReject(w, http.StatusBadRequest, protocol.RejectReasonInvalidSymbol)
		return
	}

	s.writeJSON(w, http.StatusOK, s.engine.Stats(symbol))
}

func (s *Server) handleSymbols(w http.ResponseWriter, _ *http.Request) {
	symbols := s.engine.Symbols()
	if symbols == nil {
		symbols = []string{}
	}
	s.writeJSON(w, http.StatusOK, symbols)
}

func (s *Server) handleExecutionStream(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol") // empty subscribes to everything

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sub := s.execHub.Subscribe(256)
	defer s.execHub.Unsubscribe(sub)

	for ev := range sub.ch {
		if symbol != "" && ev.Symbol != symbol {
			continue
		}
		if err := conn.WriteJSON(&ev); err != nil {
			return
		}
	}
}

func (s *Server) handleBookStream(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		http.Error(w, "symbol is required", http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	// subscribe before the initial depth so no update falls in between
	sub := s.bookHub.Subscribe(256)
	defer s.bookHub.Unsubscribe(sub)

	book := s.books.get(symbol)
	if err := conn.WriteJSON(book.Depth(20)); err != nil {
		return
	}

	for changed := range sub.ch {
		if changed != symbol {
			continue
		}
		if err := conn.WriteJSON(book.Depth(20)); err != nil {
			return
		}
	}
}

func (s *Server) writeReject(w http.ResponseWriter, status int, reason protocol.RejectReason) {
	s.writeJSON(w, status, protocol.OrderRejected{Reason: reason})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	data, err := s.serializer.Marshal(payload)
	if err != nil {
		s.log.Error("response marshal failed", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
