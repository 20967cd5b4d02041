// Seeds a fresh exchange database with demo activity: deposits for two
// users, a cancelled order, three filled orders, and a ladder of open
// orders on each side of the book.
package main

import (
	"log"
	"math/big"

	"go.uber.org/zap"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/AmAyush18/DeCoin-Bazaar/params"
	"github.com/AmAyush18/DeCoin-Bazaar/pkg/exchange"
	"github.com/AmAyush18/DeCoin-Bazaar/pkg/token"
	"github.com/AmAyush18/DeCoin-Bazaar/pkg/util"
)

var sugar *zap.SugaredLogger

var (
	deployer = common.HexToAddress("0x00000000000000000000000000000000DeF10e47")
	user1    = common.HexToAddress("0x1111111111111111111111111111111111111111")
	user2    = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

func tokenAddress(symbol string) common.Address {
	return common.BytesToAddress(crypto.Keccak256([]byte(symbol))[12:])
}

func main() {
	cfg := params.LoadFromEnv("")

	logger, err := util.NewLogger("")
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar = logger.Sugar()

	store, err := exchange.NewStore(cfg.Node.DBPath)
	if err != nil {
		sugar.Fatalw("store_open_failed", "path", cfg.Node.DBPath, "err", err)
	}
	defer store.Close()

	ledger, err := exchange.NewLedger(exchange.Config{
		Address:    common.HexToAddress("0x00000000000000000000000000000000DeC0BA2a"),
		FeeAccount: cfg.Fees.Account,
		FeePercent: cfg.Fees.Percent,
		Store:      store,
		Logger:     sugar,
	})
	if err != nil {
		sugar.Fatalw("ledger_init_failed", "err", err)
	}

	deco := token.NewToken("DeCoin", "DeCo", 1_000_000, deployer)
	meth := token.NewToken("mETH", "mETH", 1_000_000, deployer)
	mdai := token.NewToken("mDAI", "mDAI", 1_000_000, deployer)

	decoAddr := tokenAddress("DeCo")
	methAddr := tokenAddress("mETH")
	mdaiAddr := tokenAddress("mDAI")

	ledger.RegisterToken(decoAddr, deco)
	ledger.RegisterToken(methAddr, meth)
	ledger.RegisterToken(mdaiAddr, mdai)

	// Distribute: user1 gets DeCo, user2 gets mETH.
	amount := token.Units(10_000)
	must(deco.Transfer(deployer, user1, amount))
	must(meth.Transfer(deployer, user2, amount))

	// Approve and deposit for both users.
	must(deco.Approve(user1, ledger.Address(), amount))
	must(ledger.DepositToken(user1, decoAddr, amount))
	must(meth.Approve(user2, ledger.Address(), amount))
	must(ledger.DepositToken(user2, methAddr, amount))
	sugar.Infow("seed_deposits_done", "user1", user1.Hex(), "user2", user2.Hex())

	// A cancelled order.
	id, err := ledger.MakeOrder(user1, methAddr, token.Units(100), decoAddr, token.Units(5))
	must(err)
	must(ledger.CancelOrder(user1, id))

	// Three filled orders.
	fills := []struct{ get, give *big.Int }{
		{token.Units(100), token.Units(10)},
		{token.Units(50), token.Units(15)},
		{token.Units(200), token.Units(20)},
	}
	for _, f := range fills {
		id, err := ledger.MakeOrder(user1, methAddr, f.get, decoAddr, f.give)
		must(err)
		must(ledger.FillOrder(user2, id))
	}
	sugar.Infow("seed_fills_done", "trades", len(fills))

	// Open order ladder on each side.
	for i := int64(1); i <= 10; i++ {
		_, err := ledger.MakeOrder(user1, methAddr, token.Units(10*i), decoAddr, token.Units(10))
		must(err)
	}
	for i := int64(1); i <= 10; i++ {
		_, err := ledger.MakeOrder(user2, decoAddr, token.Units(10), methAddr, token.Units(10*i))
		must(err)
	}

	sugar.Infow("seed_complete", "orders", ledger.OrdersCount(), "events", len(ledger.Events()))
}

func must(err error) {
	if err != nil {
		sugar.Fatalw("seed_failed", "err", err)
	}
}
