package token

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

var (
	deployer = common.HexToAddress("0xDD00000000000000000000000000000000000000")
	receiver = common.HexToAddress("0xCC00000000000000000000000000000000000000")
	spender  = common.HexToAddress("0xEE00000000000000000000000000000000000000")
)

func TestTokenDeployment(t *testing.T) {
	tok := NewToken("DeCoin", "DeCo", 1_000_000, deployer)

	if tok.Name() != "DeCoin" {
		t.Errorf("name = %q, want DeCoin", tok.Name())
	}
	if tok.Symbol() != "DeCo" {
		t.Errorf("symbol = %q, want DeCo", tok.Symbol())
	}
	if tok.Decimals() != 18 {
		t.Errorf("decimals = %d, want 18", tok.Decimals())
	}

	supply := Units(1_000_000)
	if tok.TotalSupply().Cmp(supply) != 0 {
		t.Errorf("total supply = %s, want %s", tok.TotalSupply(), supply)
	}
	// Full supply assigned to deployer
	if tok.BalanceOf(deployer).Cmp(supply) != 0 {
		t.Errorf("deployer balance = %s, want %s", tok.BalanceOf(deployer), supply)
	}
}

func TestTokenTransfer(t *testing.T) {
	tok := NewToken("DeCoin", "DeCo", 1_000_000, deployer)
	amount := Units(100)

	if err := tok.Transfer(deployer, receiver, amount); err != nil {
		t.Fatalf("transfer failed: %v", err)
	}

	if got, want := tok.BalanceOf(deployer), Units(999_900); got.Cmp(want) != 0 {
		t.Errorf("deployer balance = %s, want %s", got, want)
	}
	if got := tok.BalanceOf(receiver); got.Cmp(amount) != 0 {
		t.Errorf("receiver balance = %s, want %s", got, amount)
	}

	transfers := tok.Transfers()
	if len(transfers) != 1 {
		t.Fatalf("expected 1 transfer event, got %d", len(transfers))
	}
	ev := transfers[0]
	if ev.From != deployer || ev.To != receiver || ev.Value.Cmp(amount) != 0 {
		t.Errorf("unexpected transfer event: %+v", ev)
	}
}

func TestTokenTransferRejections(t *testing.T) {
	tok := NewToken("DeCoin", "DeCo", 1_000_000, deployer)

	// More than the whole supply
	err := tok.Transfer(deployer, receiver, Units(100_000_000))
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("expected ErrInsufficientFunds, got %v", err)
	}

	// Zero-address recipient
	err = tok.Transfer(deployer, common.Address{}, Units(100))
	if !errors.Is(err, ErrZeroAddress) {
		t.Errorf("expected ErrZeroAddress, got %v", err)
	}

	// Failed transfers move nothing
	if got, want := tok.BalanceOf(deployer), Units(1_000_000); got.Cmp(want) != 0 {
		t.Errorf("deployer balance changed on failed transfer: %s", got)
	}
	if len(tok.Transfers()) != 0 {
		t.Errorf("failed transfers should emit no events")
	}
}

func TestTokenApprove(t *testing.T) {
	tok := NewToken("DeCoin", "DeCo", 1_000_000, deployer)
	amount := Units(100)

	if err := tok.Approve(deployer, spender, amount); err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if got := tok.Allowance(deployer, spender); got.Cmp(amount) != 0 {
		t.Errorf("allowance = %s, want %s", got, amount)
	}

	approvals := tok.Approvals()
	if len(approvals) != 1 {
		t.Fatalf("expected 1 approval event, got %d", len(approvals))
	}
	ev := approvals[0]
	if ev.Owner != deployer || ev.Spender != spender || ev.Value.Cmp(amount) != 0 {
		t.Errorf("unexpected approval event: %+v", ev)
	}

	if err := tok.Approve(deployer, common.Address{}, amount); !errors.Is(err, ErrZeroAddress) {
		t.Errorf("expected ErrZeroAddress for zero spender, got %v", err)
	}
}

func TestTokenTransferFrom(t *testing.T) {
	tok := NewToken("DeCoin", "DeCo", 1_000_000, deployer)
	amount := Units(100)

	if err := tok.Approve(deployer, spender, amount); err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if err := tok.TransferFrom(deployer, spender, amount); err != nil {
		t.Fatalf("transferFrom failed: %v", err)
	}

	if got, want := tok.BalanceOf(deployer), Units(999_900); got.Cmp(want) != 0 {
		t.Errorf("deployer balance = %s, want %s", got, want)
	}
	if got := tok.BalanceOf(spender); got.Cmp(amount) != 0 {
		t.Errorf("spender balance = %s, want %s", got, amount)
	}

	// Allowance is consumed
	if got := tok.Allowance(deployer, spender); got.Sign() != 0 {
		t.Errorf("allowance = %s, want 0", got)
	}
}

func TestTokenTransferFromWithoutApproval(t *testing.T) {
	tok := NewToken("DeCoin", "DeCo", 1_000_000, deployer)

	err := tok.TransferFrom(deployer, spender, Units(100))
	if !errors.Is(err, ErrInsufficientAllowance) {
		t.Errorf("expected ErrInsufficientAllowance, got %v", err)
	}
	if got, want := tok.BalanceOf(deployer), Units(1_000_000); got.Cmp(want) != 0 {
		t.Errorf("deployer balance changed: %s", got)
	}
}

func TestUnits(t *testing.T) {
	want, _ := new(big.Int).SetString("10000000000000000000", 10)
	if got := Units(10); got.Cmp(want) != 0 {
		t.Errorf("Units(10) = %s, want %s", got, want)
	}
}
