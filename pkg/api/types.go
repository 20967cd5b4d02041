package api

// Request and response types for REST endpoints and WebSocket messages.
// Amounts travel as decimal strings in the token's smallest unit since
// 18-decimal balances overflow JSON numbers.

// BalanceInfo is the response for a balance query.
type BalanceInfo struct {
	Token   string `json:"token"`
	User    string `json:"user"`
	Balance string `json:"balance"`
}

// OrderInfo is an order record plus its derived lifecycle status.
type OrderInfo struct {
	ID         uint64 `json:"id"`
	Creator    string `json:"creator"`
	TokenGet   string `json:"tokenGet"`
	AmountGet  string `json:"amountGet"`
	TokenGive  string `json:"tokenGive"`
	AmountGive string `json:"amountGive"`
	CreatedAt  int64  `json:"createdAt"`
	Status     string `json:"status"`
}

// BookOrderInfo is a decorated entry of the order book view.
type BookOrderInfo struct {
	ID          uint64 `json:"id"`
	Creator     string `json:"creator"`
	Side        string `json:"side"`
	BaseAmount  string `json:"baseAmount"`
	QuoteAmount string `json:"quoteAmount"`
	Price       string `json:"price"`
	CreatedAt   int64  `json:"createdAt"`
}

// BookSnapshot groups the reference pair's open orders by side.
type BookSnapshot struct {
	Base      string          `json:"base"`
	Quote     string          `json:"quote"`
	Buys      []BookOrderInfo `json:"buys"`
	Sells     []BookOrderInfo `json:"sells"`
	Timestamp int64           `json:"timestamp"`
}

// TransferRequest is the body for deposit and withdraw calls.
type TransferRequest struct {
	User   string `json:"user"`
	Token  string `json:"token"`
	Amount string `json:"amount"`
}

// MakeOrderRequest is the body for order creation.
type MakeOrderRequest struct {
	User       string `json:"user"`
	TokenGet   string `json:"tokenGet"`
	AmountGet  string `json:"amountGet"`
	TokenGive  string `json:"tokenGive"`
	AmountGive string `json:"amountGive"`
}

// OrderActionRequest is the body for cancel and fill calls.
type OrderActionRequest struct {
	User string `json:"user"`
}

// MakeOrderResponse returns the assigned order id.
type MakeOrderResponse struct {
	ID     uint64 `json:"id"`
	Status string `json:"status"`
}

// EventMessage wraps a ledger event for WebSocket delivery.
type EventMessage struct {
	Kind  string      `json:"kind"`
	Event interface{} `json:"event"`
}

// WSSubscribeRequest is the client -> server subscription message.
type WSSubscribeRequest struct {
	Op       string   `json:"op"` // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
