package diagnostics

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/GuillermoSiaira/simpleswap-cli/internal/gateway"
	"github.com/GuillermoSiaira/simpleswap-cli/internal/model"
	"github.com/GuillermoSiaira/simpleswap-cli/internal/registry"
	"github.com/GuillermoSiaira/simpleswap-cli/internal/wallet"
	"github.com/GuillermoSiaira/simpleswap-cli/internal/wallet/wallettest"
)

var (
	diagTokenA = common.HexToAddress("0x0000000000000000000000000000000000000a02")
	diagTokenB = common.HexToAddress("0x0000000000000000000000000000000000000b02")
	diagSwap   = common.HexToAddress("0x0000000000000000000000000000000000000c02")
	diagOwner  = common.HexToAddress("0x2222222222222222222222222222222222222222")

	diagERC20 = mustParse(registry.ERC20ABI)
	diagPool  = mustParse(registry.ReserveBasedSwapABI)
)

func mustParse(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}

func serveReads(reserveA, reserveB, balance *big.Int) func(msg ethereum.CallMsg) ([]byte, error) {
	return func(msg ethereum.CallMsg) ([]byte, error) {
		if msg.To == nil || len(msg.Data) < 4 {
			return nil, fmt.Errorf("malformed call")
		}
		sel := msg.Data[:4]
		switch {
		case bytes.Equal(sel, diagPool.Methods["getReserves"].ID):
			return diagPool.Methods["getReserves"].Outputs.Pack(reserveA, reserveB)
		case bytes.Equal(sel, diagERC20.Methods["balanceOf"].ID):
			return diagERC20.Methods["balanceOf"].Outputs.Pack(balance)
		}
		return nil, fmt.Errorf("unsupported call %x", sel)
	}
}

func newChecker(t *testing.T, bridge *wallettest.Bridge, connect bool) *Checker {
	t.Helper()
	gw, err := gateway.New(bridge, gateway.Config{TokenA: diagTokenA, TokenB: diagTokenB, Swap: diagSwap}, zap.NewNop())
	if err != nil {
		t.Fatalf("gateway: %v", err)
	}
	session := wallet.NewSession(bridge, registry.Sepolia, zap.NewNop())
	if connect {
		if _, err := session.Connect(context.Background()); err != nil {
			t.Fatalf("connect: %v", err)
		}
	}
	return New(bridge, gw, session, registry.Sepolia, zap.NewNop())
}

func issuesFor(report model.DiagnosticsReport, check string) []model.Issue {
	var out []model.Issue
	for _, issue := range report.Issues {
		if issue.Check == check {
			out = append(out, issue)
		}
	}
	return out
}

func TestRunHealthyDeployment(t *testing.T) {
	bridge := wallettest.New(registry.SepoliaChainID, diagOwner)
	bridge.Code[diagTokenA] = []byte{0x60}
	bridge.Code[diagTokenB] = []byte{0x60}
	bridge.Code[diagSwap] = []byte{0x60}
	bridge.CallFn = serveReads(big.NewInt(1_000), big.NewInt(2_000), big.NewInt(50))

	report := newChecker(t, bridge, true).Run(context.Background())
	if !report.Healthy {
		t.Fatalf("report unhealthy: %+v", report.Issues)
	}
	if len(issuesFor(report, "bytecode")) != 0 {
		t.Fatalf("unexpected bytecode issues: %+v", report.Issues)
	}
	// Metadata reads are not served, so both tokens degrade to defaults.
	warnings := issuesFor(report, "metadata")
	if len(warnings) != 2 {
		t.Fatalf("metadata warnings = %d, want one per token", len(warnings))
	}
	for _, issue := range warnings {
		if issue.Severity != model.SeverityWarning {
			t.Fatalf("metadata issue severity = %q", issue.Severity)
		}
	}
}

func TestRunReportsMissingBytecode(t *testing.T) {
	bridge := wallettest.New(registry.SepoliaChainID, diagOwner)
	bridge.Code[diagTokenA] = []byte{0x60}
	// Token B and the swap contract have no code.

	report := newChecker(t, bridge, true).Run(context.Background())
	if report.Healthy {
		t.Fatalf("report healthy despite missing contracts")
	}
	missing := issuesFor(report, "bytecode")
	if len(missing) != 2 {
		t.Fatalf("bytecode issues = %d, want 2", len(missing))
	}
	if len(issuesFor(report, "reserves")) != 0 {
		t.Fatalf("reserve check should be skipped without bytecode")
	}
}

func TestRunReportsWrongNetwork(t *testing.T) {
	bridge := wallettest.New(1, diagOwner)

	report := newChecker(t, bridge, false).Run(context.Background())
	if report.Healthy {
		t.Fatalf("report healthy on the wrong chain")
	}
	network := issuesFor(report, "network")
	if len(network) != 1 || network[0].Severity != model.SeverityError {
		t.Fatalf("network issues = %+v", network)
	}
	if len(report.Issues) != 1 {
		t.Fatalf("later checks should be skipped on the wrong chain: %+v", report.Issues)
	}
}

func TestRunFlagsEmptyPoolAsBlocking(t *testing.T) {
	bridge := wallettest.New(registry.SepoliaChainID, diagOwner)
	bridge.Code[diagTokenA] = []byte{0x60}
	bridge.Code[diagTokenB] = []byte{0x60}
	bridge.Code[diagSwap] = []byte{0x60}
	bridge.CallFn = serveReads(new(big.Int), new(big.Int), big.NewInt(50))

	report := newChecker(t, bridge, true).Run(context.Background())
	if report.Healthy {
		t.Fatalf("empty reserves must mark the deployment unhealthy: %+v", report.Issues)
	}
	reserves := issuesFor(report, "reserves")
	if len(reserves) != 1 || reserves[0].Severity != model.SeverityError {
		t.Fatalf("reserve issues = %+v", reserves)
	}
}

func TestRunWarnsOnUnfundedAccount(t *testing.T) {
	bridge := wallettest.New(registry.SepoliaChainID, diagOwner)
	bridge.Code[diagTokenA] = []byte{0x60}
	bridge.Code[diagTokenB] = []byte{0x60}
	bridge.Code[diagSwap] = []byte{0x60}
	bridge.CallFn = serveReads(big.NewInt(1_000), big.NewInt(2_000), new(big.Int))

	report := newChecker(t, bridge, true).Run(context.Background())
	if !report.Healthy {
		t.Fatalf("an unfunded account is a warning, not blocking: %+v", report.Issues)
	}
	balances := issuesFor(report, "balances")
	if len(balances) != 1 || balances[0].Severity != model.SeverityWarning {
		t.Fatalf("balance issues = %+v, want a single warning", balances)
	}
}

func TestRunSkipsBalancesWithoutSession(t *testing.T) {
	bridge := wallettest.New(registry.SepoliaChainID, diagOwner)
	bridge.Code[diagTokenA] = []byte{0x60}
	bridge.Code[diagTokenB] = []byte{0x60}
	bridge.Code[diagSwap] = []byte{0x60}
	bridge.CallFn = serveReads(big.NewInt(1_000), big.NewInt(2_000), big.NewInt(50))

	report := newChecker(t, bridge, false).Run(context.Background())
	balances := issuesFor(report, "balances")
	if len(balances) != 1 || balances[0].Severity != model.SeverityInfo {
		t.Fatalf("balance issues = %+v, want a single info entry", balances)
	}
}
