package exchange

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/AmAyush18/DeCoin-Bazaar/pkg/token"
)

var (
	exchangeAddr = common.HexToAddress("0xE800000000000000000000000000000000000000")
	feeAccount   = common.HexToAddress("0xFE00000000000000000000000000000000000000")
	deployer     = common.HexToAddress("0xDD00000000000000000000000000000000000000")
	user1        = common.HexToAddress("0x1100000000000000000000000000000000000000")
	user2        = common.HexToAddress("0x2200000000000000000000000000000000000000")

	tokenA = common.HexToAddress("0xAA00000000000000000000000000000000000000")
	tokenB = common.HexToAddress("0xBB00000000000000000000000000000000000000")
)

// fakeClock pins ledger timestamps for assertions.
type fakeClock struct{ t time.Time }

func (c fakeClock) Now() time.Time                         { return c.t }
func (c fakeClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

type fixture struct {
	ledger *Ledger
	deco   *token.Token // registered as tokenA
	meth   *token.Token // registered as tokenB
	now    time.Time
}

// newTestLedger builds an in-memory ledger with feePercent 10 and two
// registered demo tokens, each fully minted to the deployer.
func newTestLedger(t *testing.T) *fixture {
	t.Helper()

	now := time.Unix(1_700_000_000, 0)
	ledger, err := NewLedger(Config{
		Address:    exchangeAddr,
		FeeAccount: feeAccount,
		FeePercent: 10,
		Clock:      fakeClock{t: now},
	})
	if err != nil {
		t.Fatalf("failed to create ledger: %v", err)
	}

	f := &fixture{
		ledger: ledger,
		deco:   token.NewToken("DeCoin", "DeCo", 1_000_000, deployer),
		meth:   token.NewToken("mETH", "mETH", 1_000_000, deployer),
		now:    now,
	}
	ledger.RegisterToken(tokenA, f.deco)
	ledger.RegisterToken(tokenB, f.meth)
	return f
}

// fund gives a user tokens and deposits them on the exchange.
func (f *fixture) fund(t *testing.T, user common.Address, tok common.Address, amount *big.Int) {
	t.Helper()

	tl := f.deco
	if tok == tokenB {
		tl = f.meth
	}
	if err := tl.Transfer(deployer, user, amount); err != nil {
		t.Fatalf("funding transfer failed: %v", err)
	}
	if err := tl.Approve(user, exchangeAddr, amount); err != nil {
		t.Fatalf("funding approve failed: %v", err)
	}
	if err := f.ledger.DepositToken(user, tok, amount); err != nil {
		t.Fatalf("funding deposit failed: %v", err)
	}
}

func TestLedgerConstruction(t *testing.T) {
	f := newTestLedger(t)

	if f.ledger.FeeAccount() != feeAccount {
		t.Errorf("fee account = %s, want %s", f.ledger.FeeAccount().Hex(), feeAccount.Hex())
	}
	if f.ledger.FeePercent() != 10 {
		t.Errorf("fee percent = %d, want 10", f.ledger.FeePercent())
	}

	if _, err := NewLedger(Config{FeePercent: -1}); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount for negative fee percent, got %v", err)
	}
}

func TestDeposit(t *testing.T) {
	f := newTestLedger(t)
	amount := token.Units(10)

	if err := f.deco.Transfer(deployer, user1, amount); err != nil {
		t.Fatal(err)
	}
	if err := f.deco.Approve(user1, exchangeAddr, amount); err != nil {
		t.Fatal(err)
	}
	if err := f.ledger.DepositToken(user1, tokenA, amount); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}

	// Custody moved to the exchange, internal balance credited.
	if got := f.deco.BalanceOf(exchangeAddr); got.Cmp(amount) != 0 {
		t.Errorf("custodied = %s, want %s", got, amount)
	}
	if got := f.ledger.BalanceOf(tokenA, user1); got.Cmp(amount) != 0 {
		t.Errorf("balance = %s, want %s", got, amount)
	}

	events := f.ledger.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	ev, ok := events[0].(DepositEvent)
	if !ok {
		t.Fatalf("expected DepositEvent, got %T", events[0])
	}
	if ev.Token != tokenA || ev.User != user1 || ev.Amount.Cmp(amount) != 0 || ev.Balance.Cmp(amount) != 0 {
		t.Errorf("unexpected deposit event: %+v", ev)
	}
}

func TestDepositWithoutApproval(t *testing.T) {
	f := newTestLedger(t)
	amount := token.Units(10)

	if err := f.deco.Transfer(deployer, user1, amount); err != nil {
		t.Fatal(err)
	}

	err := f.ledger.DepositToken(user1, tokenA, amount)
	if !errors.Is(err, token.ErrInsufficientAllowance) {
		t.Errorf("expected allowance failure, got %v", err)
	}

	if got := f.ledger.BalanceOf(tokenA, user1); got.Sign() != 0 {
		t.Errorf("balance = %s, want 0", got)
	}
	if len(f.ledger.Events()) != 0 {
		t.Errorf("failed deposit should emit no event")
	}
}

func TestDepositRejections(t *testing.T) {
	f := newTestLedger(t)

	if err := f.ledger.DepositToken(user1, tokenA, big.NewInt(0)); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("zero amount: expected ErrInvalidAmount, got %v", err)
	}
	if err := f.ledger.DepositToken(user1, tokenA, big.NewInt(-5)); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("negative amount: expected ErrInvalidAmount, got %v", err)
	}
	if err := f.ledger.DepositToken(user1, tokenA, nil); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("nil amount: expected ErrInvalidAmount, got %v", err)
	}

	unknown := common.HexToAddress("0x9900000000000000000000000000000000000000")
	if err := f.ledger.DepositToken(user1, unknown, big.NewInt(1)); !errors.Is(err, ErrUnknownToken) {
		t.Errorf("unknown token: expected ErrUnknownToken, got %v", err)
	}
}

func TestWithdraw(t *testing.T) {
	f := newTestLedger(t)
	amount := token.Units(10)
	f.fund(t, user1, tokenA, amount)

	if err := f.ledger.WithdrawToken(user1, tokenA, amount); err != nil {
		t.Fatalf("withdraw failed: %v", err)
	}

	if got := f.ledger.BalanceOf(tokenA, user1); got.Sign() != 0 {
		t.Errorf("balance = %s, want 0", got)
	}
	if got := f.deco.BalanceOf(user1); got.Cmp(amount) != 0 {
		t.Errorf("user token balance = %s, want %s", got, amount)
	}
	if got := f.deco.BalanceOf(exchangeAddr); got.Sign() != 0 {
		t.Errorf("custody = %s, want 0", got)
	}

	events := f.ledger.Events()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	ev, ok := events[1].(WithdrawEvent)
	if !ok {
		t.Fatalf("expected WithdrawEvent, got %T", events[1])
	}
	if ev.Amount.Cmp(amount) != 0 || ev.Balance.Sign() != 0 {
		t.Errorf("unexpected withdraw event: %+v", ev)
	}
}

func TestWithdrawInsufficientBalance(t *testing.T) {
	f := newTestLedger(t)
	f.fund(t, user1, tokenA, token.Units(5))

	err := f.ledger.WithdrawToken(user1, tokenA, token.Units(10))
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("expected ErrInsufficientBalance, got %v", err)
	}

	// No state change, no event beyond the funding deposit.
	if got, want := f.ledger.BalanceOf(tokenA, user1), token.Units(5); got.Cmp(want) != 0 {
		t.Errorf("balance = %s, want %s", got, want)
	}
	if len(f.ledger.Events()) != 1 {
		t.Errorf("failed withdraw should emit no event")
	}
}

func TestMakeOrder(t *testing.T) {
	f := newTestLedger(t)
	f.fund(t, user1, tokenA, token.Units(1))

	id, err := f.ledger.MakeOrder(user1, tokenB, token.Units(1), tokenA, token.Units(1))
	if err != nil {
		t.Fatalf("make order failed: %v", err)
	}
	if id != 1 {
		t.Errorf("order id = %d, want 1", id)
	}
	if got := f.ledger.OrdersCount(); got != 1 {
		t.Errorf("orders count = %d, want 1", got)
	}

	o, err := f.ledger.Order(1)
	if err != nil {
		t.Fatal(err)
	}
	if o.Creator != user1 || o.TokenGet != tokenB || o.TokenGive != tokenA {
		t.Errorf("unexpected order record: %+v", o)
	}
	if o.CreatedAt != f.now.Unix() {
		t.Errorf("createdAt = %d, want %d", o.CreatedAt, f.now.Unix())
	}

	// No balance movement at creation.
	if got, want := f.ledger.BalanceOf(tokenA, user1), token.Units(1); got.Cmp(want) != 0 {
		t.Errorf("balance moved on make: %s", got)
	}

	events := f.ledger.Events()
	ev, ok := events[len(events)-1].(OrderEvent)
	if !ok {
		t.Fatalf("expected OrderEvent, got %T", events[len(events)-1])
	}
	if ev.ID != 1 || ev.User != user1 || ev.TokenGet != tokenB || ev.AmountGet.Cmp(token.Units(1)) != 0 {
		t.Errorf("unexpected order event: %+v", ev)
	}
}

func TestMakeOrderRejections(t *testing.T) {
	f := newTestLedger(t)

	// Nothing deposited: balance check fails.
	_, err := f.ledger.MakeOrder(user1, tokenB, token.Units(1), tokenA, token.Units(1))
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("expected ErrInsufficientBalance, got %v", err)
	}

	f.fund(t, user1, tokenA, token.Units(1))
	if _, err := f.ledger.MakeOrder(user1, tokenB, big.NewInt(0), tokenA, token.Units(1)); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("zero amountGet: expected ErrInvalidAmount, got %v", err)
	}
	if _, err := f.ledger.MakeOrder(user1, tokenB, token.Units(1), tokenA, big.NewInt(0)); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("zero amountGive: expected ErrInvalidAmount, got %v", err)
	}

	// Failed attempts consume no ids.
	if got := f.ledger.OrdersCount(); got != 0 {
		t.Errorf("orders count = %d, want 0", got)
	}
}

func TestOrderIDMonotonicity(t *testing.T) {
	f := newTestLedger(t)
	f.fund(t, user1, tokenA, token.Units(100))

	for want := uint64(1); want <= 5; want++ {
		id, err := f.ledger.MakeOrder(user1, tokenB, token.Units(1), tokenA, token.Units(1))
		if err != nil {
			t.Fatalf("make order %d failed: %v", want, err)
		}
		if id != want {
			t.Errorf("order id = %d, want %d", id, want)
		}
	}
}

func TestCancelOrder(t *testing.T) {
	f := newTestLedger(t)
	f.fund(t, user1, tokenA, token.Units(1))

	id, err := f.ledger.MakeOrder(user1, tokenB, token.Units(1), tokenA, token.Units(1))
	if err != nil {
		t.Fatal(err)
	}

	if err := f.ledger.CancelOrder(user1, id); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	status, err := f.ledger.OrderStatus(id)
	if err != nil {
		t.Fatal(err)
	}
	if status != StatusCancelled {
		t.Errorf("status = %s, want cancelled", status)
	}
	if got := len(f.ledger.CancelledOrders()); got != 1 {
		t.Errorf("cancelled orders = %d, want 1", got)
	}

	// Filling a cancelled order is rejected.
	if err := f.ledger.FillOrder(user2, id); !errors.Is(err, ErrInvalidState) {
		t.Errorf("fill after cancel: expected ErrInvalidState, got %v", err)
	}
	// So is cancelling twice.
	if err := f.ledger.CancelOrder(user1, id); !errors.Is(err, ErrInvalidState) {
		t.Errorf("double cancel: expected ErrInvalidState, got %v", err)
	}

	events := f.ledger.Events()
	ev, ok := events[len(events)-1].(CancelEvent)
	if !ok {
		t.Fatalf("expected CancelEvent, got %T", events[len(events)-1])
	}
	if ev.ID != id || ev.User != user1 {
		t.Errorf("unexpected cancel event: %+v", ev)
	}
}

func TestCancelOrderRejections(t *testing.T) {
	f := newTestLedger(t)
	f.fund(t, user1, tokenA, token.Units(1))

	id, err := f.ledger.MakeOrder(user1, tokenB, token.Units(1), tokenA, token.Units(1))
	if err != nil {
		t.Fatal(err)
	}

	if err := f.ledger.CancelOrder(user2, id); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("foreign cancel: expected ErrUnauthorized, got %v", err)
	}
	if err := f.ledger.CancelOrder(user1, 0); !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("id 0: expected ErrOrderNotFound, got %v", err)
	}
	if err := f.ledger.CancelOrder(user1, 99); !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("id 99: expected ErrOrderNotFound, got %v", err)
	}

	// The order is still open after the failed attempts.
	status, _ := f.ledger.OrderStatus(id)
	if status != StatusOpen {
		t.Errorf("status = %s, want open", status)
	}
}

func TestFillOrder(t *testing.T) {
	f := newTestLedger(t)

	// user1 offers 1 DeCo for 1 mETH; user2 fills with 10% fee.
	f.fund(t, user1, tokenA, token.Units(1))
	f.fund(t, user2, tokenB, token.Units(2))

	id, err := f.ledger.MakeOrder(user1, tokenB, token.Units(1), tokenA, token.Units(1))
	if err != nil {
		t.Fatal(err)
	}
	if err := f.ledger.FillOrder(user2, id); err != nil {
		t.Fatalf("fill failed: %v", err)
	}

	tenth := new(big.Int).Div(token.Units(1), big.NewInt(10)) // 0.1 token

	checks := []struct {
		name string
		tok  common.Address
		user common.Address
		want *big.Int
	}{
		{"user1 tokenA", tokenA, user1, big.NewInt(0)},
		{"user1 tokenB", tokenB, user1, token.Units(1)},
		{"user2 tokenA", tokenA, user2, token.Units(1)},
		{"user2 tokenB", tokenB, user2, new(big.Int).Sub(token.Units(1), tenth)}, // 2 - 1.1
		{"feeAccount tokenB", tokenB, feeAccount, tenth},
	}
	for _, c := range checks {
		if got := f.ledger.BalanceOf(c.tok, c.user); got.Cmp(c.want) != 0 {
			t.Errorf("%s = %s, want %s", c.name, got, c.want)
		}
	}

	status, _ := f.ledger.OrderStatus(id)
	if status != StatusFilled {
		t.Errorf("status = %s, want filled", status)
	}
	if got := len(f.ledger.FilledOrders()); got != 1 {
		t.Errorf("filled orders = %d, want 1", got)
	}

	events := f.ledger.Events()
	ev, ok := events[len(events)-1].(TradeEvent)
	if !ok {
		t.Fatalf("expected TradeEvent, got %T", events[len(events)-1])
	}
	if ev.ID != id || ev.User != user2 || ev.Creator != user1 {
		t.Errorf("unexpected trade event: %+v", ev)
	}
}

func TestFillOrderAtomicRollback(t *testing.T) {
	f := newTestLedger(t)
	f.fund(t, user1, tokenA, token.Units(1))
	// user2 deposits exactly 1 mETH: not enough for 1 + 0.1 fee.
	f.fund(t, user2, tokenB, token.Units(1))

	id, err := f.ledger.MakeOrder(user1, tokenB, token.Units(1), tokenA, token.Units(1))
	if err != nil {
		t.Fatal(err)
	}
	eventsBefore := len(f.ledger.Events())

	if err := f.ledger.FillOrder(user2, id); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	// Zero observable change.
	if got, want := f.ledger.BalanceOf(tokenA, user1), token.Units(1); got.Cmp(want) != 0 {
		t.Errorf("user1 tokenA = %s, want %s", got, want)
	}
	if got, want := f.ledger.BalanceOf(tokenB, user2), token.Units(1); got.Cmp(want) != 0 {
		t.Errorf("user2 tokenB = %s, want %s", got, want)
	}
	if got := f.ledger.BalanceOf(tokenB, feeAccount); got.Sign() != 0 {
		t.Errorf("feeAccount credited on failed fill: %s", got)
	}
	if status, _ := f.ledger.OrderStatus(id); status != StatusOpen {
		t.Errorf("status = %s, want open", status)
	}
	if got := len(f.ledger.Events()); got != eventsBefore {
		t.Errorf("failed fill emitted events: %d -> %d", eventsBefore, got)
	}
}

func TestFillStrandedOrder(t *testing.T) {
	f := newTestLedger(t)
	f.fund(t, user1, tokenA, token.Units(1))
	f.fund(t, user2, tokenB, token.Units(2))

	id, err := f.ledger.MakeOrder(user1, tokenB, token.Units(1), tokenA, token.Units(1))
	if err != nil {
		t.Fatal(err)
	}

	// Orders don't escrow: the creator may withdraw the offered tokens,
	// stranding the order.
	if err := f.ledger.WithdrawToken(user1, tokenA, token.Units(1)); err != nil {
		t.Fatalf("withdraw failed: %v", err)
	}

	if err := f.ledger.FillOrder(user2, id); !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("expected ErrInsufficientBalance, got %v", err)
	}
	if status, _ := f.ledger.OrderStatus(id); status != StatusOpen {
		t.Errorf("stranded order status = %s, want open", status)
	}
}

func TestFillOrderRejections(t *testing.T) {
	f := newTestLedger(t)

	if err := f.ledger.FillOrder(user2, 1); !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("expected ErrOrderNotFound, got %v", err)
	}

	f.fund(t, user1, tokenA, token.Units(1))
	f.fund(t, user2, tokenB, token.Units(2))
	id, err := f.ledger.MakeOrder(user1, tokenB, token.Units(1), tokenA, token.Units(1))
	if err != nil {
		t.Fatal(err)
	}
	if err := f.ledger.FillOrder(user2, id); err != nil {
		t.Fatal(err)
	}

	// Terminal states are exclusive and final.
	if err := f.ledger.FillOrder(user2, id); !errors.Is(err, ErrInvalidState) {
		t.Errorf("double fill: expected ErrInvalidState, got %v", err)
	}
	if err := f.ledger.CancelOrder(user1, id); !errors.Is(err, ErrInvalidState) {
		t.Errorf("cancel after fill: expected ErrInvalidState, got %v", err)
	}
	if len(f.ledger.CancelledOrders()) != 0 {
		t.Errorf("filled order leaked into cancelled set")
	}
}

func TestFeeTruncation(t *testing.T) {
	f := newTestLedger(t)

	// amountGet = 15 smallest units, 10% fee truncates 1.5 to 1.
	f.fund(t, user1, tokenA, big.NewInt(100))
	f.fund(t, user2, tokenB, big.NewInt(100))

	id, err := f.ledger.MakeOrder(user1, tokenB, big.NewInt(15), tokenA, big.NewInt(10))
	if err != nil {
		t.Fatal(err)
	}
	if err := f.ledger.FillOrder(user2, id); err != nil {
		t.Fatal(err)
	}

	if got := f.ledger.BalanceOf(tokenB, feeAccount); got.Cmp(big.NewInt(1)) != 0 {
		t.Errorf("fee = %s, want 1", got)
	}
	// Filler paid 15 + 1.
	if got, want := f.ledger.BalanceOf(tokenB, user2), big.NewInt(84); got.Cmp(want) != 0 {
		t.Errorf("filler tokenB = %s, want %s", got, want)
	}
}

// TestConservation: internal balances never exceed actual custody.
func TestConservation(t *testing.T) {
	f := newTestLedger(t)
	f.fund(t, user1, tokenA, token.Units(50))
	f.fund(t, user2, tokenB, token.Units(50))

	id, _ := f.ledger.MakeOrder(user1, tokenB, token.Units(10), tokenA, token.Units(5))
	f.ledger.FillOrder(user2, id)
	f.ledger.WithdrawToken(user1, tokenB, token.Units(3))
	f.ledger.WithdrawToken(user2, tokenA, token.Units(2))

	users := []common.Address{user1, user2, feeAccount}
	for _, tc := range []struct {
		id common.Address
		tl *token.Token
	}{{tokenA, f.deco}, {tokenB, f.meth}} {
		sum := new(big.Int)
		for _, u := range users {
			sum.Add(sum, f.ledger.BalanceOf(tc.id, u))
		}
		custody := tc.tl.BalanceOf(exchangeAddr)
		if sum.Cmp(custody) != 0 {
			t.Errorf("token %s: internal sum %s != custody %s", tc.id.Hex(), sum, custody)
		}
	}
}

func TestSubscribe(t *testing.T) {
	f := newTestLedger(t)
	ch := f.ledger.Subscribe(16)

	f.fund(t, user1, tokenA, token.Units(1))
	if _, err := f.ledger.MakeOrder(user1, tokenB, token.Units(1), tokenA, token.Units(1)); err != nil {
		t.Fatal(err)
	}

	wantKinds := []string{KindDeposit, KindOrder}
	for _, want := range wantKinds {
		select {
		case ev := <-ch:
			if ev.Kind() != want {
				t.Errorf("event kind = %s, want %s", ev.Kind(), want)
			}
		default:
			t.Fatalf("missing %s event on feed", want)
		}
	}
}

func TestPersistenceRecovery(t *testing.T) {
	dbPath := t.TempDir() + "/ledger.db"

	store, err := NewStore(dbPath)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}

	now := time.Unix(1_700_000_000, 0)
	ledger, err := NewLedger(Config{
		Address:    exchangeAddr,
		FeeAccount: feeAccount,
		FeePercent: 10,
		Store:      store,
		Clock:      fakeClock{t: now},
	})
	if err != nil {
		t.Fatalf("failed to create ledger: %v", err)
	}

	deco := token.NewToken("DeCoin", "DeCo", 1_000_000, deployer)
	meth := token.NewToken("mETH", "mETH", 1_000_000, deployer)
	ledger.RegisterToken(tokenA, deco)
	ledger.RegisterToken(tokenB, meth)

	amount := token.Units(10)
	if err := deco.Transfer(deployer, user1, amount); err != nil {
		t.Fatal(err)
	}
	if err := deco.Approve(user1, exchangeAddr, amount); err != nil {
		t.Fatal(err)
	}
	if err := ledger.DepositToken(user1, tokenA, amount); err != nil {
		t.Fatal(err)
	}
	id, err := ledger.MakeOrder(user1, tokenB, token.Units(2), tokenA, token.Units(3))
	if err != nil {
		t.Fatal(err)
	}
	if err := ledger.CancelOrder(user1, id); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}

	// Reopen: balances, orders, statuses, and events all survive.
	store2, err := NewStore(dbPath)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	t.Cleanup(func() { store2.Close() })

	recovered, err := NewLedger(Config{
		Address:    exchangeAddr,
		FeeAccount: feeAccount,
		FeePercent: 10,
		Store:      store2,
		Clock:      fakeClock{t: now},
	})
	if err != nil {
		t.Fatalf("failed to recover ledger: %v", err)
	}

	if got := recovered.BalanceOf(tokenA, user1); got.Cmp(amount) != 0 {
		t.Errorf("recovered balance = %s, want %s", got, amount)
	}
	if got := recovered.OrdersCount(); got != 1 {
		t.Errorf("recovered orders count = %d, want 1", got)
	}
	o, err := recovered.Order(id)
	if err != nil {
		t.Fatal(err)
	}
	if o.Creator != user1 || o.AmountGet.Cmp(token.Units(2)) != 0 || o.AmountGive.Cmp(token.Units(3)) != 0 {
		t.Errorf("recovered order mismatch: %+v", o)
	}
	if status, _ := recovered.OrderStatus(id); status != StatusCancelled {
		t.Errorf("recovered status = %s, want cancelled", status)
	}

	events := recovered.Events()
	if len(events) != 3 {
		t.Fatalf("recovered events = %d, want 3", len(events))
	}
	kinds := []string{KindDeposit, KindOrder, KindCancel}
	for i, want := range kinds {
		if events[i].Kind() != want {
			t.Errorf("event[%d] kind = %s, want %s", i, events[i].Kind(), want)
		}
	}
}
