package params

import (
	"os"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
)

type Fees struct {
	// Account is credited the fee cut of every fill.
	Account common.Address
	// Percent is an integer percentage (10 means 10%). Fixed for the
	// ledger's lifetime.
	Percent int64
}

type Node struct {
	APIAddr string // REST/WebSocket listen address
	DBPath  string // pebble database directory
	LogFile string // structured log output (empty: console only)
}

type Market struct {
	// Base/Quote name the reference pair the order book view is
	// projected onto, by token symbol.
	Base  string
	Quote string
}

type Config struct {
	Fees   Fees
	Node   Node
	Market Market
}

func Default() Config {
	return Config{
		Fees: Fees{
			Account: common.HexToAddress("0x0000000000000000000000000000000000000Fee"),
			Percent: 10,
		},
		Node: Node{
			APIAddr: ":8080",
			DBPath:  "data/exchange.db",
			LogFile: "data/exchange.log",
		},
		Market: Market{
			Base:  "DeCo",
			Quote: "mETH",
		},
	}
}

// LoadFromEnv loads configuration from a .env file (if present) and
// environment variables. Priority: ENV > .env file > defaults.
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	if acct := os.Getenv("FEE_ACCOUNT"); common.IsHexAddress(acct) {
		cfg.Fees.Account = common.HexToAddress(acct)
	}
	if pct := os.Getenv("FEE_PERCENT"); pct != "" {
		if n, err := strconv.ParseInt(pct, 10, 64); err == nil && n >= 0 {
			cfg.Fees.Percent = n
		}
	}

	if addr := os.Getenv("API_ADDR"); addr != "" {
		cfg.Node.APIAddr = addr
	}
	if db := os.Getenv("DB_PATH"); db != "" {
		cfg.Node.DBPath = db
	}
	if lf := os.Getenv("LOG_FILE"); lf != "" {
		cfg.Node.LogFile = lf
	}

	if base := os.Getenv("MARKET_BASE"); base != "" {
		cfg.Market.Base = base
	}
	if quote := os.Getenv("MARKET_QUOTE"); quote != "" {
		cfg.Market.Quote = quote
	}

	return cfg
}
