package exchange

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/AmAyush18/DeCoin-Bazaar/pkg/token"
	"github.com/AmAyush18/DeCoin-Bazaar/pkg/util"
)

// Ledger custodies deposited tokens per user and runs the make/cancel/
// fill lifecycle of bilateral trade offers. It owns the balance table,
// the append-only order table, and the cancelled/filled id sets.
//
// Every operation is atomic: it either fully commits (state change +
// event) or aborts with no observable change. A single mutex serializes
// operations and doubles as the reentrancy guard around external token
// calls - no internal state is mutated until the external call has
// returned successfully.
type Ledger struct {
	addr       common.Address // exchange identity: custody account on every token ledger
	feeAccount common.Address
	feePercent int64

	mu        sync.RWMutex
	tokens    map[common.Address]token.Ledger
	balances  map[common.Address]map[common.Address]*big.Int // token -> user -> amount
	orders    []*Order                                       // index i holds order id i+1
	cancelled map[uint64]bool
	filled    map[uint64]bool
	events    []Event

	feed  eventFeed
	store *Store // nil for pure in-memory ledgers (tests)
	clock util.Clock
	log   *zap.SugaredLogger
}

// Config carries the immutable construction parameters.
type Config struct {
	// Address identifies the exchange itself on external token ledgers:
	// deposits are pulled into it, withdrawals paid out of it.
	Address common.Address

	// FeeAccount is credited floor(amountGet * FeePercent / 100) of the
	// get-token on every fill.
	FeeAccount common.Address

	// FeePercent is an integer percentage (10 means 10%). No upper
	// bound is enforced.
	FeePercent int64

	// Store enables pebble persistence when non-nil. Previously
	// persisted state is recovered at construction.
	Store *Store

	Clock  util.Clock
	Logger *zap.SugaredLogger
}

// NewLedger constructs the exchange ledger. FeeAccount and FeePercent
// are fixed for the ledger's lifetime.
func NewLedger(cfg Config) (*Ledger, error) {
	if cfg.FeePercent < 0 {
		return nil, fmt.Errorf("%w: fee percent %d", ErrInvalidAmount, cfg.FeePercent)
	}
	if cfg.Clock == nil {
		cfg.Clock = util.RealClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}

	l := &Ledger{
		addr:       cfg.Address,
		feeAccount: cfg.FeeAccount,
		feePercent: cfg.FeePercent,
		tokens:     make(map[common.Address]token.Ledger),
		balances:   make(map[common.Address]map[common.Address]*big.Int),
		cancelled:  make(map[uint64]bool),
		filled:     make(map[uint64]bool),
		store:      cfg.Store,
		clock:      cfg.Clock,
		log:        cfg.Logger,
	}

	if l.store != nil {
		st, err := l.store.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to recover ledger state: %w", err)
		}
		l.balances = st.balances
		l.orders = st.orders
		l.cancelled = st.cancelled
		l.filled = st.filled
		l.events = st.events
		if len(st.orders) > 0 || len(st.events) > 0 {
			l.log.Infow("ledger_recovered",
				"orders", len(st.orders),
				"events", len(st.events),
				"cancelled", len(st.cancelled),
				"filled", len(st.filled))
		}
	}

	return l, nil
}

// Address returns the exchange's custody identity.
func (l *Ledger) Address() common.Address { return l.addr }

// FeeAccount returns the account credited with fees.
func (l *Ledger) FeeAccount() common.Address { return l.feeAccount }

// FeePercent returns the integer fee percentage.
func (l *Ledger) FeePercent() int64 { return l.feePercent }

// RegisterToken binds a token identifier to its external ledger so
// deposits and withdrawals can move real funds.
func (l *Ledger) RegisterToken(id common.Address, tl token.Ledger) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tokens[id] = tl
}

// DepositToken pulls amount of tok from user into custody (the user
// must have approved at least amount to the exchange on the token
// ledger) and credits the internal balance. Emits a Deposit event.
func (l *Ledger) DepositToken(user, tok common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: deposit %v", ErrInvalidAmount, amount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	tl, ok := l.tokens[tok]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownToken, tok.Hex())
	}

	// External pull first: if it fails, nothing here has changed.
	if err := tl.TransferFrom(user, l.addr, amount); err != nil {
		return fmt.Errorf("deposit rejected: %w", err)
	}

	newBal := new(big.Int).Add(l.balanceLocked(tok, user), amount)
	ev := DepositEvent{Token: tok, User: user, Amount: new(big.Int).Set(amount), Balance: newBal}

	if err := l.persist(func(b *Batch) error {
		if err := b.SetBalance(tok, user, newBal); err != nil {
			return err
		}
		return b.AppendEvent(uint64(len(l.events)), ev)
	}); err != nil {
		return err
	}

	l.setBalanceLocked(tok, user, newBal)
	l.emitLocked(ev)
	l.log.Infow("deposit", "token", tok.Hex(), "user", user.Hex(), "amount", amount.String(), "balance", newBal.String())
	return nil
}

// WithdrawToken pays amount of tok back to user from custody and debits
// the internal balance. Emits a Withdraw event.
func (l *Ledger) WithdrawToken(user, tok common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: withdraw %v", ErrInvalidAmount, amount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	bal := l.balanceLocked(tok, user)
	if bal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: have %s, need %s", ErrInsufficientBalance, bal, amount)
	}

	tl, ok := l.tokens[tok]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownToken, tok.Hex())
	}

	// Pay out before recording the debit; the held mutex guards against
	// reentry and a failed transfer leaves the ledger untouched.
	if err := tl.Transfer(l.addr, user, amount); err != nil {
		return fmt.Errorf("withdraw rejected: %w", err)
	}

	newBal := new(big.Int).Sub(bal, amount)
	ev := WithdrawEvent{Token: tok, User: user, Amount: new(big.Int).Set(amount), Balance: newBal}

	if err := l.persist(func(b *Batch) error {
		if err := b.SetBalance(tok, user, newBal); err != nil {
			return err
		}
		return b.AppendEvent(uint64(len(l.events)), ev)
	}); err != nil {
		return err
	}

	l.setBalanceLocked(tok, user, newBal)
	l.emitLocked(ev)
	l.log.Infow("withdraw", "token", tok.Hex(), "user", user.Hex(), "amount", amount.String(), "balance", newBal.String())
	return nil
}

// BalanceOf returns the deposited balance for (tok, user). Never fails;
// unknown entries are zero.
func (l *Ledger) BalanceOf(tok, user common.Address) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balanceLocked(tok, user)
}

// MakeOrder appends a new order offering amountGive of tokenGive for
// amountGet of tokenGet. The creator must hold at least amountGive of
// tokenGive on the exchange; no funds move or lock at creation, so a
// later withdrawal can strand the order (the eventual fill then fails).
// Returns the assigned id and emits an Order event.
func (l *Ledger) MakeOrder(creator, tokenGet common.Address, amountGet *big.Int, tokenGive common.Address, amountGive *big.Int) (uint64, error) {
	if amountGet == nil || amountGet.Sign() <= 0 {
		return 0, fmt.Errorf("%w: amountGet %v", ErrInvalidAmount, amountGet)
	}
	if amountGive == nil || amountGive.Sign() <= 0 {
		return 0, fmt.Errorf("%w: amountGive %v", ErrInvalidAmount, amountGive)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if bal := l.balanceLocked(tokenGive, creator); bal.Cmp(amountGive) < 0 {
		return 0, fmt.Errorf("%w: have %s %s, offering %s", ErrInsufficientBalance, bal, tokenGive.Hex(), amountGive)
	}

	o := &Order{
		ID:         uint64(len(l.orders)) + 1,
		Creator:    creator,
		TokenGet:   tokenGet,
		AmountGet:  new(big.Int).Set(amountGet),
		TokenGive:  tokenGive,
		AmountGive: new(big.Int).Set(amountGive),
		CreatedAt:  l.clock.Now().Unix(),
	}
	ev := OrderEvent{
		ID: o.ID, User: creator,
		TokenGet: tokenGet, AmountGet: new(big.Int).Set(amountGet),
		TokenGive: tokenGive, AmountGive: new(big.Int).Set(amountGive),
		Timestamp: o.CreatedAt,
	}

	if err := l.persist(func(b *Batch) error {
		if err := b.PutOrder(o); err != nil {
			return err
		}
		return b.AppendEvent(uint64(len(l.events)), ev)
	}); err != nil {
		return 0, err
	}

	l.orders = append(l.orders, o)
	l.emitLocked(ev)
	l.log.Infow("order_made", "id", o.ID, "creator", creator.Hex(),
		"tokenGet", tokenGet.Hex(), "amountGet", amountGet.String(),
		"tokenGive", tokenGive.Hex(), "amountGive", amountGive.String())
	return o.ID, nil
}

// CancelOrder moves an open order to the cancelled set. Only the
// order's creator may cancel. Emits a Cancel event.
func (l *Ledger) CancelOrder(caller common.Address, id uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	o, err := l.openOrderLocked(id)
	if err != nil {
		return err
	}
	if o.Creator != caller {
		return fmt.Errorf("%w: order %d belongs to %s", ErrUnauthorized, id, o.Creator.Hex())
	}

	ev := CancelEvent{
		ID: o.ID, User: o.Creator,
		TokenGet: o.TokenGet, AmountGet: new(big.Int).Set(o.AmountGet),
		TokenGive: o.TokenGive, AmountGive: new(big.Int).Set(o.AmountGive),
		Timestamp: l.clock.Now().Unix(),
	}

	if err := l.persist(func(b *Batch) error {
		if err := b.SetStatus(id, StatusCancelled); err != nil {
			return err
		}
		return b.AppendEvent(uint64(len(l.events)), ev)
	}); err != nil {
		return err
	}

	l.cancelled[id] = true
	l.emitLocked(ev)
	l.log.Infow("order_cancelled", "id", id, "creator", o.Creator.Hex())
	return nil
}

// FillOrder settles an open order against the caller. The filler pays
// amountGet plus the fee in the get-token; the creator receives
// amountGet, the fee account receives the fee, and amountGive of the
// give-token moves from creator to filler. All five balance mutations
// and the status flag apply together or not at all. Emits a Trade
// event.
func (l *Ledger) FillOrder(filler common.Address, id uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	o, err := l.openOrderLocked(id)
	if err != nil {
		return err
	}

	// feeAmount = amountGet * feePercent / 100, truncating.
	feeAmount := new(big.Int).Mul(o.AmountGet, big.NewInt(l.feePercent))
	feeAmount.Div(feeAmount, big.NewInt(100))

	// Stage the settlement so nothing is visible until commit. The
	// staging map also keeps aliased entries coherent when filler,
	// creator, or fee account coincide.
	stage := newStaging(l)

	combined := new(big.Int).Add(o.AmountGet, feeAmount)
	if err := stage.debit(o.TokenGet, filler, combined); err != nil {
		return fmt.Errorf("filler %s: %w", filler.Hex(), err)
	}
	stage.credit(o.TokenGet, o.Creator, o.AmountGet)
	stage.credit(o.TokenGet, l.feeAccount, feeAmount)
	if err := stage.debit(o.TokenGive, o.Creator, o.AmountGive); err != nil {
		return fmt.Errorf("creator %s: %w", o.Creator.Hex(), err)
	}
	stage.credit(o.TokenGive, filler, o.AmountGive)

	ev := TradeEvent{
		ID: o.ID, User: filler,
		TokenGet: o.TokenGet, AmountGet: new(big.Int).Set(o.AmountGet),
		TokenGive: o.TokenGive, AmountGive: new(big.Int).Set(o.AmountGive),
		Creator:   o.Creator,
		Timestamp: l.clock.Now().Unix(),
	}

	if err := l.persist(func(b *Batch) error {
		for _, e := range stage.entries() {
			if err := b.SetBalance(e.token, e.user, e.amount); err != nil {
				return err
			}
		}
		if err := b.SetStatus(id, StatusFilled); err != nil {
			return err
		}
		return b.AppendEvent(uint64(len(l.events)), ev)
	}); err != nil {
		return err
	}

	for _, e := range stage.entries() {
		l.setBalanceLocked(e.token, e.user, e.amount)
	}
	l.filled[id] = true
	l.emitLocked(ev)
	l.log.Infow("order_filled", "id", id, "filler", filler.Hex(), "creator", o.Creator.Hex(),
		"fee", feeAmount.String())
	return nil
}

// OrdersCount returns the number of orders ever created.
func (l *Ledger) OrdersCount() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return uint64(len(l.orders))
}

// Order returns the order with the given id.
func (l *Ledger) Order(id uint64) (*Order, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if id < 1 || id > uint64(len(l.orders)) {
		return nil, fmt.Errorf("%w: id %d", ErrOrderNotFound, id)
	}
	return l.orders[id-1].clone(), nil
}

// OrderStatus returns the lifecycle state for an order id.
func (l *Ledger) OrderStatus(id uint64) (OrderStatus, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if id < 1 || id > uint64(len(l.orders)) {
		return StatusOpen, fmt.Errorf("%w: id %d", ErrOrderNotFound, id)
	}
	switch {
	case l.cancelled[id]:
		return StatusCancelled, nil
	case l.filled[id]:
		return StatusFilled, nil
	default:
		return StatusOpen, nil
	}
}

// AllOrders returns every order ever created, in id order.
func (l *Ledger) AllOrders() []*Order {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cloneOrdersLocked(nil)
}

// FilledOrders returns the orders in the filled set, in id order.
func (l *Ledger) FilledOrders() []*Order {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cloneOrdersLocked(l.filled)
}

// CancelledOrders returns the orders in the cancelled set, in id order.
func (l *Ledger) CancelledOrders() []*Order {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cloneOrdersLocked(l.cancelled)
}

// OpenOrders returns orders in neither terminal set, in id order.
func (l *Ledger) OpenOrders() []*Order {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []*Order
	for _, o := range l.orders {
		if !l.cancelled[o.ID] && !l.filled[o.ID] {
			out = append(out, o.clone())
		}
	}
	return out
}

// Events returns the full event log, oldest first. Replaying it against
// the order table reconstructs every read-side view.
func (l *Ledger) Events() []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// Subscribe returns a channel receiving every event emitted after the
// call. Slow consumers miss events rather than blocking the ledger.
func (l *Ledger) Subscribe(buf int) <-chan Event {
	return l.feed.subscribe(buf)
}

// ---- internals (lock held) ----

func (l *Ledger) balanceLocked(tok, user common.Address) *big.Int {
	if byUser, ok := l.balances[tok]; ok {
		if b, ok := byUser[user]; ok {
			return new(big.Int).Set(b)
		}
	}
	return new(big.Int)
}

func (l *Ledger) setBalanceLocked(tok, user common.Address, amount *big.Int) {
	byUser, ok := l.balances[tok]
	if !ok {
		byUser = make(map[common.Address]*big.Int)
		l.balances[tok] = byUser
	}
	byUser[user] = amount
}

// openOrderLocked resolves an id to an order that is still open.
func (l *Ledger) openOrderLocked(id uint64) (*Order, error) {
	if id < 1 || id > uint64(len(l.orders)) {
		return nil, fmt.Errorf("%w: id %d", ErrOrderNotFound, id)
	}
	if l.cancelled[id] {
		return nil, fmt.Errorf("%w: order %d already cancelled", ErrInvalidState, id)
	}
	if l.filled[id] {
		return nil, fmt.Errorf("%w: order %d already filled", ErrInvalidState, id)
	}
	return l.orders[id-1], nil
}

func (l *Ledger) cloneOrdersLocked(filter map[uint64]bool) []*Order {
	var out []*Order
	for _, o := range l.orders {
		if filter == nil || filter[o.ID] {
			out = append(out, o.clone())
		}
	}
	return out
}

// persist runs the batch writes for one operation, committing them
// atomically. A nil store makes the ledger purely in-memory.
func (l *Ledger) persist(fn func(b *Batch) error) error {
	if l.store == nil {
		return nil
	}
	b := l.store.NewBatch()
	if err := fn(b); err != nil {
		b.Close()
		return fmt.Errorf("failed to stage writes: %w", err)
	}
	if err := b.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

func (l *Ledger) emitLocked(ev Event) {
	l.events = append(l.events, ev)
	l.feed.publish(ev)
}
