package exchange

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Pebble key schema.
// Numeric key components are zero-padded to 20 digits so lexicographic
// iteration matches numeric order (order ids, event sequence numbers).
const (
	prefixBalance = "bal:"  // bal:{token}:{user} -> big.Int
	prefixOrder   = "ord:"  // ord:{id} -> Order JSON
	prefixStatus  = "stat:" // stat:{id} -> "cancelled" | "filled"
	prefixEvent   = "evt:"  // evt:{seq} -> event envelope JSON
)

// balanceKey returns the key for a (token, user) balance entry.
// Format: "bal:{token}:{user}"
func balanceKey(tok, user common.Address) []byte {
	return []byte(fmt.Sprintf("%s%s:%s", prefixBalance, tok.Hex(), user.Hex()))
}

// orderKey returns the key for an order record.
// Format: "ord:00000000000000000001"
func orderKey(id uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", prefixOrder, id))
}

// statusKey returns the key for an order's terminal status.
func statusKey(id uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", prefixStatus, id))
}

// eventKey returns the key for the nth emitted event.
func eventKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", prefixEvent, seq))
}

// keyUpperBound returns the exclusive upper bound for a prefix scan.
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}
