package exchange

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Order is an offer to exchange AmountGive of TokenGive for AmountGet of
// TokenGet. Immutable once created; lifecycle state (open / cancelled /
// filled) is tracked by the ledger's status sets, not on the record.
type Order struct {
	// ID is assigned sequentially starting at 1, never reused.
	ID uint64 `json:"id"`

	// Creator is the user who made the order.
	Creator common.Address `json:"creator"`

	TokenGet  common.Address `json:"tokenGet"`
	AmountGet *big.Int       `json:"amountGet"`

	TokenGive  common.Address `json:"tokenGive"`
	AmountGive *big.Int       `json:"amountGive"`

	// CreatedAt is a unix timestamp in seconds.
	CreatedAt int64 `json:"createdAt"`
}

// OrderStatus is the derived lifecycle state of an order.
type OrderStatus int8

const (
	StatusOpen OrderStatus = iota
	StatusCancelled
	StatusFilled
)

func (s OrderStatus) String() string {
	switch s {
	case StatusOpen:
		return "open"
	case StatusCancelled:
		return "cancelled"
	case StatusFilled:
		return "filled"
	default:
		return "unknown"
	}
}

// clone returns a deep copy so callers cannot alias the ledger's record.
func (o *Order) clone() *Order {
	cp := *o
	cp.AmountGet = new(big.Int).Set(o.AmountGet)
	cp.AmountGive = new(big.Int).Set(o.AmountGive)
	return &cp
}
