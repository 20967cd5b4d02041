package exchange

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Event is a tagged record emitted on every successful state transition.
// Consumers switch on Kind() (or type-switch on the concrete struct).
// The event log, replayed against the order table, is sufficient to
// rebuild any read-side view.
type Event interface {
	Kind() string
}

const (
	KindDeposit  = "deposit"
	KindWithdraw = "withdraw"
	KindOrder    = "order"
	KindCancel   = "cancel"
	KindTrade    = "trade"
)

// DepositEvent: tokens pulled into custody and credited.
// Balance is the user's balance for Token after the credit.
type DepositEvent struct {
	Token   common.Address `json:"token"`
	User    common.Address `json:"user"`
	Amount  *big.Int       `json:"amount"`
	Balance *big.Int       `json:"balance"`
}

func (DepositEvent) Kind() string { return KindDeposit }

// WithdrawEvent: tokens debited and returned to the user.
type WithdrawEvent struct {
	Token   common.Address `json:"token"`
	User    common.Address `json:"user"`
	Amount  *big.Int       `json:"amount"`
	Balance *big.Int       `json:"balance"`
}

func (WithdrawEvent) Kind() string { return KindWithdraw }

// OrderEvent: a new order appended to the order table.
type OrderEvent struct {
	ID         uint64         `json:"id"`
	User       common.Address `json:"user"`
	TokenGet   common.Address `json:"tokenGet"`
	AmountGet  *big.Int       `json:"amountGet"`
	TokenGive  common.Address `json:"tokenGive"`
	AmountGive *big.Int       `json:"amountGive"`
	Timestamp  int64          `json:"timestamp"`
}

func (OrderEvent) Kind() string { return KindOrder }

// CancelEvent: an open order moved to the cancelled set by its creator.
// Timestamp is the cancel time, not the order's creation time.
type CancelEvent struct {
	ID         uint64         `json:"id"`
	User       common.Address `json:"user"`
	TokenGet   common.Address `json:"tokenGet"`
	AmountGet  *big.Int       `json:"amountGet"`
	TokenGive  common.Address `json:"tokenGive"`
	AmountGive *big.Int       `json:"amountGive"`
	Timestamp  int64          `json:"timestamp"`
}

func (CancelEvent) Kind() string { return KindCancel }

// TradeEvent: an open order settled. User is the filler, Creator the
// order's maker.
type TradeEvent struct {
	ID         uint64         `json:"id"`
	User       common.Address `json:"user"`
	TokenGet   common.Address `json:"tokenGet"`
	AmountGet  *big.Int       `json:"amountGet"`
	TokenGive  common.Address `json:"tokenGive"`
	AmountGive *big.Int       `json:"amountGive"`
	Creator    common.Address `json:"creator"`
	Timestamp  int64          `json:"timestamp"`
}

func (TradeEvent) Kind() string { return KindTrade }

// eventFeed fans ledger events out to subscribers. Slow subscribers are
// skipped rather than blocking the ledger, same policy as a full
// websocket send buffer.
type eventFeed struct {
	mu   sync.RWMutex
	subs []chan Event
}

func (f *eventFeed) subscribe(buf int) <-chan Event {
	ch := make(chan Event, buf)
	f.mu.Lock()
	f.subs = append(f.subs, ch)
	f.mu.Unlock()
	return ch
}

func (f *eventFeed) publish(ev Event) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, ch := range f.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
