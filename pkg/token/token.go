package token

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Ledger is the fungible-token capability the exchange consumes.
// One instance per distinct token. Callers are passed explicitly since
// there is no ambient transaction sender.
type Ledger interface {
	// BalanceOf returns the holder's balance, zero for unknown holders.
	BalanceOf(user common.Address) *big.Int

	// Allowance returns how much spender may still pull from owner.
	Allowance(owner, spender common.Address) *big.Int

	// Transfer moves amount from `from` to `to`.
	// Fails if `from` holds less than amount or `to` is the zero address.
	Transfer(from, to common.Address, amount *big.Int) error

	// TransferFrom moves amount from owner to spender, authorized by a
	// prior Approve. Decrements the allowance by amount on success.
	TransferFrom(owner, spender common.Address, amount *big.Int) error

	// Approve lets spender pull up to amount from owner.
	Approve(owner, spender common.Address, amount *big.Int) error
}

var (
	ErrInsufficientFunds     = errors.New("token: insufficient funds")
	ErrInsufficientAllowance = errors.New("token: insufficient allowance")
	ErrZeroAddress           = errors.New("token: zero address")
)

// weiPerToken is 10^18: one whole token in smallest units.
var weiPerToken = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// Units converts n whole tokens into smallest units (18 decimals).
func Units(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), weiPerToken)
}

// TransferEvent records a balance movement.
type TransferEvent struct {
	From  common.Address
	To    common.Address
	Value *big.Int
}

// ApprovalEvent records an allowance grant.
type ApprovalEvent struct {
	Owner   common.Address
	Spender common.Address
	Value   *big.Int
}

// Token is an in-memory fungible token ledger with standard
// transfer/approve/transferFrom semantics. The full supply is minted to
// the deployer at construction.
type Token struct {
	name     string
	symbol   string
	decimals uint8
	supply   *big.Int

	mu         sync.RWMutex
	balances   map[common.Address]*big.Int
	allowances map[common.Address]map[common.Address]*big.Int

	transfers []TransferEvent
	approvals []ApprovalEvent
}

// NewToken mints `supply` whole tokens (18 decimals) to deployer.
func NewToken(name, symbol string, supply int64, deployer common.Address) *Token {
	t := &Token{
		name:       name,
		symbol:     symbol,
		decimals:   18,
		supply:     Units(supply),
		balances:   make(map[common.Address]*big.Int),
		allowances: make(map[common.Address]map[common.Address]*big.Int),
	}
	t.balances[deployer] = new(big.Int).Set(t.supply)
	return t
}

func (t *Token) Name() string          { return t.name }
func (t *Token) Symbol() string        { return t.symbol }
func (t *Token) Decimals() uint8       { return t.decimals }
func (t *Token) TotalSupply() *big.Int { return new(big.Int).Set(t.supply) }

func (t *Token) BalanceOf(user common.Address) *big.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.balanceLocked(user)
}

func (t *Token) balanceLocked(user common.Address) *big.Int {
	if b, ok := t.balances[user]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

func (t *Token) Allowance(owner, spender common.Address) *big.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if m, ok := t.allowances[owner]; ok {
		if a, ok := m[spender]; ok {
			return new(big.Int).Set(a)
		}
	}
	return new(big.Int)
}

func (t *Token) Transfer(from, to common.Address, amount *big.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.transferLocked(from, to, amount)
}

func (t *Token) transferLocked(from, to common.Address, amount *big.Int) error {
	if to == (common.Address{}) {
		return ErrZeroAddress
	}
	bal := t.balanceLocked(from)
	if bal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s has %s, need %s", ErrInsufficientFunds, from.Hex(), bal, amount)
	}
	t.balances[from] = bal.Sub(bal, amount)
	toBal := t.balanceLocked(to)
	t.balances[to] = toBal.Add(toBal, amount)

	t.transfers = append(t.transfers, TransferEvent{From: from, To: to, Value: new(big.Int).Set(amount)})
	return nil
}

func (t *Token) TransferFrom(owner, spender common.Address, amount *big.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	m := t.allowances[owner]
	allowed := new(big.Int)
	if m != nil && m[spender] != nil {
		allowed = m[spender]
	}
	if allowed.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s approved %s to %s, need %s",
			ErrInsufficientAllowance, owner.Hex(), allowed, spender.Hex(), amount)
	}
	if err := t.transferLocked(owner, spender, amount); err != nil {
		return err
	}
	if m == nil {
		m = make(map[common.Address]*big.Int)
		t.allowances[owner] = m
	}
	m[spender] = new(big.Int).Sub(allowed, amount)
	return nil
}

func (t *Token) Approve(owner, spender common.Address, amount *big.Int) error {
	if spender == (common.Address{}) {
		return ErrZeroAddress
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	m, ok := t.allowances[owner]
	if !ok {
		m = make(map[common.Address]*big.Int)
		t.allowances[owner] = m
	}
	m[spender] = new(big.Int).Set(amount)

	t.approvals = append(t.approvals, ApprovalEvent{Owner: owner, Spender: spender, Value: new(big.Int).Set(amount)})
	return nil
}

// Transfers returns the transfer event history (oldest first).
func (t *Token) Transfers() []TransferEvent {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]TransferEvent, len(t.transfers))
	copy(out, t.transfers)
	return out
}

// Approvals returns the approval event history (oldest first).
func (t *Token) Approvals() []ApprovalEvent {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]ApprovalEvent, len(t.approvals))
	copy(out, t.approvals)
	return out
}
