// Package market derives display-side order book views from the
// exchange's order table. It holds no state of its own: every view is a
// pure function of the orders passed in and can always be rebuilt from
// the ledger's event log.
package market

import (
	"math/big"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/AmAyush18/DeCoin-Bazaar/pkg/exchange"
)

// Pair is the reference token pair a book is projected onto. Base is
// token0 (the asset being priced), Quote is token1 (what it is priced
// in).
type Pair struct {
	Base  common.Address
	Quote common.Address
}

// Side classifies an order relative to the pair's base asset.
type Side string

const (
	Buy  Side = "buy"  // gives quote, wants base
	Sell Side = "sell" // gives base, wants quote
)

// pricePrecision: prices are rounded to 5 decimal places for display.
const pricePrecision = 5

// BookOrder is an order decorated for display.
type BookOrder struct {
	Order *exchange.Order

	Side Side

	// BaseAmount and QuoteAmount are in whole tokens, not smallest
	// units.
	BaseAmount  decimal.Decimal
	QuoteAmount decimal.Decimal

	// Price is QuoteAmount/BaseAmount rounded to 5 places.
	Price decimal.Decimal

	CreatedAt time.Time
}

// Book groups a pair's open orders by side, both sorted by price
// descending.
type Book struct {
	Buys  []BookOrder
	Sells []BookOrder
}

// Decorate classifies and prices one order against the pair. The second
// return is false when the order does not trade the pair.
func Decorate(o *exchange.Order, pair Pair) (BookOrder, bool) {
	inPair := func(a common.Address) bool { return a == pair.Base || a == pair.Quote }
	if !inPair(o.TokenGet) || !inPair(o.TokenGive) || o.TokenGet == o.TokenGive {
		return BookOrder{}, false
	}

	bo := BookOrder{
		Order:     o,
		CreatedAt: time.Unix(o.CreatedAt, 0),
	}

	if o.TokenGive == pair.Quote {
		// Giving quote in exchange for base: a buy.
		bo.Side = Buy
		bo.BaseAmount = toTokens(o.AmountGet)
		bo.QuoteAmount = toTokens(o.AmountGive)
	} else {
		bo.Side = Sell
		bo.BaseAmount = toTokens(o.AmountGive)
		bo.QuoteAmount = toTokens(o.AmountGet)
	}

	bo.Price = bo.QuoteAmount.Div(bo.BaseAmount).Round(pricePrecision)
	return bo, true
}

// BuildBook projects open orders onto the pair. Orders outside the pair
// are dropped.
func BuildBook(orders []*exchange.Order, pair Pair) Book {
	var book Book
	for _, o := range orders {
		bo, ok := Decorate(o, pair)
		if !ok {
			continue
		}
		switch bo.Side {
		case Buy:
			book.Buys = append(book.Buys, bo)
		case Sell:
			book.Sells = append(book.Sells, bo)
		}
	}

	byPriceDesc := func(s []BookOrder) {
		sort.SliceStable(s, func(i, j int) bool { return s[i].Price.GreaterThan(s[j].Price) })
	}
	byPriceDesc(book.Buys)
	byPriceDesc(book.Sells)
	return book
}

// toTokens converts smallest units (18 decimals) to whole tokens.
func toTokens(units *big.Int) decimal.Decimal {
	return decimal.NewFromBigInt(units, -18)
}
