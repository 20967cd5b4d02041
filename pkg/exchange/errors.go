package exchange

import "errors"

// Every ledger operation either fully commits or fails with one of these
// (possibly wrapped with context). A failed operation leaves the ledger
// state untouched and emits no event.
var (
	// ErrInsufficientBalance: a withdrawal or fill-time debit exceeds the
	// recorded balance.
	ErrInsufficientBalance = errors.New("exchange: insufficient balance")

	// ErrInvalidState: cancel or fill targets an order already cancelled
	// or filled.
	ErrInvalidState = errors.New("exchange: order not open")

	// ErrUnauthorized: cancel attempted by someone other than the creator.
	ErrUnauthorized = errors.New("exchange: not order creator")

	// ErrOrderNotFound: order id outside [1, OrdersCount()].
	ErrOrderNotFound = errors.New("exchange: order not found")

	// ErrInvalidAmount: zero or negative amount where a positive amount
	// is required.
	ErrInvalidAmount = errors.New("exchange: amount must be positive")

	// ErrUnknownToken: deposit or withdrawal names a token with no
	// registered ledger.
	ErrUnknownToken = errors.New("exchange: unknown token")
)
