package api

import (
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/AmAyush18/DeCoin-Bazaar/pkg/exchange"
	"github.com/AmAyush18/DeCoin-Bazaar/pkg/market"
)

// Server exposes the exchange ledger over REST and streams its events
// over WebSocket.
type Server struct {
	ledger *exchange.Ledger
	pair   market.Pair
	router *mux.Router
	hub    *Hub
	log    *zap.SugaredLogger
}

// NewServer creates an API server for the given ledger. pair is the
// reference pair the /book projection uses.
func NewServer(ledger *exchange.Ledger, pair market.Pair, log *zap.SugaredLogger) *Server {
	s := &Server{
		ledger: ledger,
		pair:   pair,
		router: mux.NewRouter(),
		hub:    NewHub(log),
		log:    log,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Queries
	api.HandleFunc("/balances/{token}/{user}", s.handleGetBalance).Methods("GET")
	api.HandleFunc("/orders", s.handleGetOrders).Methods("GET")
	api.HandleFunc("/orders/{id:[0-9]+}", s.handleGetOrder).Methods("GET")
	api.HandleFunc("/book", s.handleGetBook).Methods("GET")
	api.HandleFunc("/events", s.handleGetEvents).Methods("GET")

	// Operations
	api.HandleFunc("/deposit", s.handleDeposit).Methods("POST")
	api.HandleFunc("/withdraw", s.handleWithdraw).Methods("POST")
	api.HandleFunc("/orders", s.handleMakeOrder).Methods("POST")
	api.HandleFunc("/orders/{id:[0-9]+}/cancel", s.handleCancelOrder).Methods("POST")
	api.HandleFunc("/orders/{id:[0-9]+}/fill", s.handleFillOrder).Methods("POST")

	// WebSocket event stream
	s.router.HandleFunc("/ws", s.handleWebSocket)

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Handler returns the routing handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start runs the hub, bridges ledger events onto it, and serves HTTP.
// Blocks until the listener fails.
func (s *Server) Start(addr string) error {
	go s.hub.Run()
	go s.pumpEvents()

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:3001"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	s.log.Infow("api_listening", "addr", addr)
	return http.ListenAndServe(addr, c.Handler(s.router))
}

// pumpEvents forwards every ledger event to subscribed WebSocket
// clients, channel-keyed by event kind.
func (s *Server) pumpEvents() {
	for ev := range s.ledger.Subscribe(256) {
		s.hub.BroadcastToChannel(ev.Kind(), EventMessage{Kind: ev.Kind(), Event: ev})
	}
}

// ==============================
// Query handlers
// ==============================

func (s *Server) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	tok, ok1 := parseAddress(vars["token"])
	user, ok2 := parseAddress(vars["user"])
	if !ok1 || !ok2 {
		respondError(w, http.StatusBadRequest, "invalid address", "")
		return
	}

	bal := s.ledger.BalanceOf(tok, user)
	respondJSON(w, BalanceInfo{Token: tok.Hex(), User: user.Hex(), Balance: bal.String()})
}

func (s *Server) handleGetOrders(w http.ResponseWriter, r *http.Request) {
	var orders []*exchange.Order
	switch r.URL.Query().Get("status") {
	case "", "all":
		orders = s.ledger.AllOrders()
	case "open":
		orders = s.ledger.OpenOrders()
	case "filled":
		orders = s.ledger.FilledOrders()
	case "cancelled":
		orders = s.ledger.CancelledOrders()
	default:
		respondError(w, http.StatusBadRequest, "unknown status filter", "")
		return
	}

	out := make([]OrderInfo, len(orders))
	for i, o := range orders {
		out[i] = s.orderInfo(o)
	}
	respondJSON(w, out)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	o, err := s.ledger.Order(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "order not found", err.Error())
		return
	}
	respondJSON(w, s.orderInfo(o))
}

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	book := market.BuildBook(s.ledger.OpenOrders(), s.pair)

	toInfo := func(side []market.BookOrder) []BookOrderInfo {
		out := make([]BookOrderInfo, len(side))
		for i, bo := range side {
			out[i] = BookOrderInfo{
				ID:          bo.Order.ID,
				Creator:     bo.Order.Creator.Hex(),
				Side:        string(bo.Side),
				BaseAmount:  bo.BaseAmount.String(),
				QuoteAmount: bo.QuoteAmount.String(),
				Price:       bo.Price.String(),
				CreatedAt:   bo.Order.CreatedAt,
			}
		}
		return out
	}

	respondJSON(w, BookSnapshot{
		Base:      s.pair.Base.Hex(),
		Quote:     s.pair.Quote.Hex(),
		Buys:      toInfo(book.Buys),
		Sells:     toInfo(book.Sells),
		Timestamp: time.Now().Unix(),
	})
}

func (s *Server) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	events := s.ledger.Events()
	out := make([]EventMessage, len(events))
	for i, ev := range events {
		out[i] = EventMessage{Kind: ev.Kind(), Event: ev}
	}
	respondJSON(w, out)
}

// ==============================
// Operation handlers
// ==============================

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	user, tok, amount, ok := s.decodeTransfer(w, r)
	if !ok {
		return
	}
	if err := s.ledger.DepositToken(user, tok, amount); err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	user, tok, amount, ok := s.decodeTransfer(w, r)
	if !ok {
		return
	}
	if err := s.ledger.WithdrawToken(user, tok, amount); err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleMakeOrder(w http.ResponseWriter, r *http.Request) {
	var req MakeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	user, ok1 := parseAddress(req.User)
	tokenGet, ok2 := parseAddress(req.TokenGet)
	tokenGive, ok3 := parseAddress(req.TokenGive)
	amountGet, ok4 := parseAmount(req.AmountGet)
	amountGive, ok5 := parseAmount(req.AmountGive)
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 {
		respondError(w, http.StatusBadRequest, "invalid address or amount", "")
		return
	}

	id, err := s.ledger.MakeOrder(user, tokenGet, amountGet, tokenGive, amountGive)
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, MakeOrderResponse{ID: id, Status: "open"})
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	s.handleOrderAction(w, r, s.ledger.CancelOrder)
}

func (s *Server) handleFillOrder(w http.ResponseWriter, r *http.Request) {
	s.handleOrderAction(w, r, s.ledger.FillOrder)
}

func (s *Server) handleOrderAction(w http.ResponseWriter, r *http.Request, action func(common.Address, uint64) error) {
	id, _ := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)

	var req OrderActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	user, ok := parseAddress(req.User)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid user address", "")
		return
	}

	if err := action(user, id); err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

// ==============================
// Helpers
// ==============================

func (s *Server) orderInfo(o *exchange.Order) OrderInfo {
	status, _ := s.ledger.OrderStatus(o.ID)
	return OrderInfo{
		ID:         o.ID,
		Creator:    o.Creator.Hex(),
		TokenGet:   o.TokenGet.Hex(),
		AmountGet:  o.AmountGet.String(),
		TokenGive:  o.TokenGive.Hex(),
		AmountGive: o.AmountGive.String(),
		CreatedAt:  o.CreatedAt,
		Status:     status.String(),
	}
}

func (s *Server) decodeTransfer(w http.ResponseWriter, r *http.Request) (common.Address, common.Address, *big.Int, bool) {
	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return common.Address{}, common.Address{}, nil, false
	}
	user, ok1 := parseAddress(req.User)
	tok, ok2 := parseAddress(req.Token)
	amount, ok3 := parseAmount(req.Amount)
	if !ok1 || !ok2 || !ok3 {
		respondError(w, http.StatusBadRequest, "invalid address or amount", "")
		return common.Address{}, common.Address{}, nil, false
	}
	return user, tok, amount, true
}

func parseAddress(s string) (common.Address, bool) {
	if !common.IsHexAddress(s) {
		return common.Address{}, false
	}
	return common.HexToAddress(s), true
}

func parseAmount(s string) (*big.Int, bool) {
	amount, ok := new(big.Int).SetString(s, 10)
	return amount, ok
}

// respondLedgerError maps the ledger's error taxonomy onto HTTP codes.
func respondLedgerError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, exchange.ErrOrderNotFound), errors.Is(err, exchange.ErrUnknownToken):
		status = http.StatusNotFound
	case errors.Is(err, exchange.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, exchange.ErrInvalidState):
		status = http.StatusConflict
	case errors.Is(err, exchange.ErrInsufficientBalance):
		status = http.StatusUnprocessableEntity
	}
	respondError(w, status, "operation rejected", err.Error())
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, error string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   error,
		Message: message,
	})
}
