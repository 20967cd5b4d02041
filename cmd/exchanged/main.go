package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/AmAyush18/DeCoin-Bazaar/params"
	"github.com/AmAyush18/DeCoin-Bazaar/pkg/api"
	"github.com/AmAyush18/DeCoin-Bazaar/pkg/exchange"
	"github.com/AmAyush18/DeCoin-Bazaar/pkg/market"
	"github.com/AmAyush18/DeCoin-Bazaar/pkg/token"
	"github.com/AmAyush18/DeCoin-Bazaar/pkg/util"
)

// Demo token supply, matching the deploy script: one million whole
// tokens each, minted to the deployer.
const demoSupply = 1_000_000

var deployer = common.HexToAddress("0x00000000000000000000000000000000DeF10e47")

// tokenAddress derives a stable identifier for a demo token from its
// symbol.
func tokenAddress(symbol string) common.Address {
	return common.BytesToAddress(crypto.Keccak256([]byte(symbol))[12:])
}

func main() {
	cfg := params.LoadFromEnv("") // "" means load .env from current directory

	logger, err := util.NewLogger(cfg.Node.LogFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

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

	// Mint the demo tokens and register them with the exchange.
	for _, symbol := range []string{"DeCo", "mETH", "mDAI"} {
		addr := tokenAddress(symbol)
		ledger.RegisterToken(addr, token.NewToken(symbol, symbol, demoSupply, deployer))
		sugar.Infow("token_registered", "symbol", symbol, "address", addr.Hex())
	}

	pair := market.Pair{
		Base:  tokenAddress(cfg.Market.Base),
		Quote: tokenAddress(cfg.Market.Quote),
	}

	server := api.NewServer(ledger, pair, sugar)
	go func() {
		if err := server.Start(cfg.Node.APIAddr); err != nil {
			sugar.Fatalw("api_failed", "err", err)
		}
	}()

	sugar.Infow("exchange_started",
		"fee_account", cfg.Fees.Account.Hex(),
		"fee_percent", cfg.Fees.Percent,
		"api", cfg.Node.APIAddr,
		"db", cfg.Node.DBPath)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	sugar.Infow("exchange_stopping")
}
