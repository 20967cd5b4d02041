package exchange

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// staging buffers balance mutations for a settlement so the live table
// stays untouched until the whole operation is known to succeed. Reads
// see earlier staged writes, which keeps sequential debits and credits
// correct when two parties in a fill are the same account.
type staging struct {
	ledger *Ledger
	vals   map[common.Address]map[common.Address]*big.Int
}

type stagedEntry struct {
	token  common.Address
	user   common.Address
	amount *big.Int
}

func newStaging(l *Ledger) *staging {
	return &staging{
		ledger: l,
		vals:   make(map[common.Address]map[common.Address]*big.Int),
	}
}

func (s *staging) get(tok, user common.Address) *big.Int {
	if byUser, ok := s.vals[tok]; ok {
		if v, ok := byUser[user]; ok {
			return v
		}
	}
	return s.ledger.balanceLocked(tok, user)
}

func (s *staging) set(tok, user common.Address, v *big.Int) {
	byUser, ok := s.vals[tok]
	if !ok {
		byUser = make(map[common.Address]*big.Int)
		s.vals[tok] = byUser
	}
	byUser[user] = v
}

func (s *staging) debit(tok, user common.Address, amount *big.Int) error {
	cur := s.get(tok, user)
	if cur.Cmp(amount) < 0 {
		return fmt.Errorf("%w: have %s of %s, need %s", ErrInsufficientBalance, cur, tok.Hex(), amount)
	}
	s.set(tok, user, new(big.Int).Sub(cur, amount))
	return nil
}

func (s *staging) credit(tok, user common.Address, amount *big.Int) {
	s.set(tok, user, new(big.Int).Add(s.get(tok, user), amount))
}

func (s *staging) entries() []stagedEntry {
	var out []stagedEntry
	for tok, byUser := range s.vals {
		for user, v := range byUser {
			out = append(out, stagedEntry{token: tok, user: user, amount: v})
		}
	}
	return out
}
